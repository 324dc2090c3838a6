package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "propertygpt/internal/common/errors"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/models"
)

type mockSES struct {
	calls  int
	lastIn *ses.SendEmailInput
	err    error
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls++
	m.lastIn = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

func newTestLeadService(t *testing.T, cfg Config, sesClient SESService) (*LeadService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLeadService(cfg, db, sesClient, logger.NewNoOpLogger()), mock
}

func TestCreateLead_StoresAndNotifies(t *testing.T) {
	sesClient := &mockSES{}
	svc, mock := newTestLeadService(t, Config{
		EmailEnabled: true,
		FromEmail:    "noreply@propertygpt.test",
		LeadsEmail:   "leads@propertygpt.test",
	}, sesClient)

	mock.ExpectExec("INSERT INTO leads").
		WillReturnResult(sqlmock.NewResult(0, 1))

	lead, err := svc.CreateLead(context.Background(), "user-1", "add this buyer to my pipeline", models.ExtractedEntities{
		Location:     "Venice",
		PropertyType: "condo",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, LeadStatusNew, lead.Status)
	assert.Equal(t, LeadSourceConversation, lead.Source)
	assert.Equal(t, "Venice", lead.Entities.Location)

	assert.Equal(t, 1, sesClient.calls)
	require.NotNil(t, sesClient.lastIn)
	assert.Equal(t, []string{"leads@propertygpt.test"}, sesClient.lastIn.Destination.ToAddresses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLead_NotificationFailureDoesNotFailLead(t *testing.T) {
	sesClient := &mockSES{err: errors.New("ses throttled")}
	svc, mock := newTestLeadService(t, Config{
		EmailEnabled: true,
		FromEmail:    "noreply@propertygpt.test",
		LeadsEmail:   "leads@propertygpt.test",
	}, sesClient)

	mock.ExpectExec("INSERT INTO leads").
		WillReturnResult(sqlmock.NewResult(0, 1))

	lead, err := svc.CreateLead(context.Background(), "user-1", "call me back", models.ExtractedEntities{})

	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, 1, sesClient.calls)
}

func TestCreateLead_EmailDisabledSkipsNotification(t *testing.T) {
	sesClient := &mockSES{}
	svc, mock := newTestLeadService(t, Config{EmailEnabled: false}, sesClient)

	mock.ExpectExec("INSERT INTO leads").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.CreateLead(context.Background(), "user-1", "call me back", models.ExtractedEntities{})

	require.NoError(t, err)
	assert.Equal(t, 0, sesClient.calls)
}

func TestCreateLead_InsertFailure(t *testing.T) {
	sesClient := &mockSES{}
	svc, mock := newTestLeadService(t, Config{EmailEnabled: true, LeadsEmail: "leads@propertygpt.test"}, sesClient)

	mock.ExpectExec("INSERT INTO leads").
		WillReturnError(errors.New("disk full"))

	_, err := svc.CreateLead(context.Background(), "user-1", "call me back", models.ExtractedEntities{})

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeDatabaseInsertFailed, stderrors.CodeOf(err))
	assert.Equal(t, 0, sesClient.calls)
}

func TestUpdateLeadStatus(t *testing.T) {
	sesClient := &mockSES{}
	svc, mock := newTestLeadService(t, Config{}, sesClient)

	mock.ExpectExec("UPDATE leads SET status").
		WithArgs("qualified", "lead-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.UpdateLeadStatus(context.Background(), "lead-1", "qualified"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadStatus_MissingLead(t *testing.T) {
	sesClient := &mockSES{}
	svc, mock := newTestLeadService(t, Config{}, sesClient)

	mock.ExpectExec("UPDATE leads SET status").
		WithArgs("qualified", "lead-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.UpdateLeadStatus(context.Background(), "lead-404", "qualified")

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeQueryExecutionFailed, stderrors.CodeOf(err))
}
