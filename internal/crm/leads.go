// Package crm implements the crm_action handler collaborator: leads captured
// from conversation turns are stored and the configured team inbox is
// notified.
package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"

	stderrors "propertygpt/internal/common/errors"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/models"
)

const (
	LeadSourceConversation = "conversation"
	LeadStatusNew          = "new"
)

// SESService is the slice of the SES client used here, defined for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Config struct {
	EmailEnabled bool
	FromEmail    string
	LeadsEmail   string
}

type LeadService struct {
	config    Config
	db        *sql.DB
	sesClient SESService
	logger    logger.Logger
}

func NewLeadService(cfg Config, db *sql.DB, sesClient SESService, log logger.Logger) *LeadService {
	return &LeadService{
		config:    cfg,
		db:        db,
		sesClient: sesClient,
		logger:    log.WithFields(map[string]interface{}{"component": "lead-service"}),
	}
}

// CreateLead stores a lead derived from a conversation turn and notifies the
// leads inbox. Notification failure never fails the lead: the record is the
// source of truth, the email is best-effort.
func (s *LeadService) CreateLead(ctx context.Context, userID, utterance string, entities models.ExtractedEntities) (*models.Lead, error) {
	lead := &models.Lead{
		ID:        uuid.NewString(),
		UserID:    userID,
		Source:    LeadSourceConversation,
		Status:    LeadStatusNew,
		Notes:     utterance,
		Entities:  entities,
		CreatedAt: time.Now().UTC(),
	}

	entityData, err := json.Marshal(lead.Entities)
	if err != nil {
		return nil, stderrors.NewDatabaseInsertFailedError("leads", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leads (id, user_id, name, email, phone, source, status, notes, entities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lead.ID, lead.UserID, lead.Name, lead.Email, lead.Phone,
		lead.Source, lead.Status, lead.Notes, entityData, lead.CreatedAt,
	)
	if err != nil {
		return nil, stderrors.NewDatabaseInsertFailedError("leads", err)
	}

	if s.config.EmailEnabled && s.config.LeadsEmail != "" {
		if err := s.notifyLeadsInbox(ctx, lead); err != nil {
			s.logger.Error("lead notification failed", map[string]interface{}{
				"leadId": lead.ID,
				"error":  err.Error(),
			})
		}
	}

	s.logger.Info("lead created", map[string]interface{}{
		"leadId": lead.ID,
		"userId": lead.UserID,
	})

	return lead, nil
}

// UpdateLeadStatus moves a lead through the pipeline.
func (s *LeadService) UpdateLeadStatus(ctx context.Context, leadID, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE leads SET status = $1 WHERE id = $2`,
		status, leadID,
	)
	if err != nil {
		return stderrors.NewQueryExecutionFailedError("update_lead_status", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return stderrors.NewQueryExecutionFailedError("update_lead_status",
			fmt.Errorf("lead %s not found", leadID))
	}

	return nil
}

func (s *LeadService) notifyLeadsInbox(ctx context.Context, lead *models.Lead) error {
	subject := "New lead from PropertyGPT conversation"
	body := fmt.Sprintf(
		"Lead %s\nUser: %s\nLocation: %s\nProperty type: %s\nNotes: %s",
		lead.ID, lead.UserID,
		lead.Entities.Location, lead.Entities.PropertyType, lead.Notes,
	)

	_, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{s.config.LeadsEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.config.FromEmail),
	})
	if err != nil {
		return stderrors.NewNotificationSendFailedError(err)
	}
	return nil
}
