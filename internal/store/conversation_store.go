// Package store persists conversation messages and per-session context in
// PostgreSQL. The router never touches persistence; the API layer writes
// through this store after each turn.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	stderrors "propertygpt/internal/common/errors"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/models"
)

// DefaultHistoryLimit bounds how many turns are loaded for prompt context.
const DefaultHistoryLimit = 20

type ConversationStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewConversationStore(db *sql.DB, log logger.Logger) *ConversationStore {
	return &ConversationStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "conversation-store"}),
	}
}

// SaveMessage inserts one turn. A missing ID or timestamp is filled in.
func (s *ConversationStore) SaveMessage(ctx context.Context, msg *models.ConversationMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	richContent, err := json.Marshal(msg.RichContent)
	if err != nil {
		return stderrors.NewDatabaseInsertFailedError("conversation_messages", err)
	}
	actions, err := json.Marshal(msg.AnticipatedActions)
	if err != nil {
		return stderrors.NewDatabaseInsertFailedError("conversation_messages", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages
			(id, session_id, user_id, sender, content, rich_content, anticipated_actions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.SessionID, msg.UserID, string(msg.Sender), msg.Content,
		richContent, actions, msg.CreatedAt,
	)
	if err != nil {
		return stderrors.NewDatabaseInsertFailedError("conversation_messages", err)
	}

	return nil
}

// RecentMessages returns the most recent turns for a session in
// chronological order.
func (s *ConversationStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]models.ConversationMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, sender, content, rich_content, anticipated_actions, created_at
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("recent_messages", err)
	}
	defer rows.Close()

	messages := make([]models.ConversationMessage, 0, limit)
	for rows.Next() {
		var msg models.ConversationMessage
		var sender string
		var richContent, actions []byte

		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UserID, &sender, &msg.Content,
			&richContent, &actions, &msg.CreatedAt); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("recent_messages", err)
		}

		msg.Sender = models.Sender(sender)
		if len(richContent) > 0 {
			if err := json.Unmarshal(richContent, &msg.RichContent); err != nil {
				s.logger.Warn("discarding undecodable rich content", map[string]interface{}{
					"messageId": msg.ID,
				})
			}
		}
		if len(actions) > 0 {
			if err := json.Unmarshal(actions, &msg.AnticipatedActions); err != nil {
				s.logger.Warn("discarding undecodable anticipated actions", map[string]interface{}{
					"messageId": msg.ID,
				})
			}
		}

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("recent_messages", err)
	}

	// Rows arrive newest-first; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// Context loads the session context. A session without a stored context gets
// the session-start defaults.
func (s *ConversationStore) Context(ctx context.Context, sessionID string) (*models.ConversationContext, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT context FROM conversation_contexts WHERE session_id = $1`,
		sessionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return models.NewConversationContext(), nil
	}
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("load_context", err)
	}

	var convCtx models.ConversationContext
	if err := json.Unmarshal(data, &convCtx); err != nil {
		s.logger.Warn("discarding undecodable context, using defaults", map[string]interface{}{
			"sessionId": sessionID,
		})
		return models.NewConversationContext(), nil
	}

	return &convCtx, nil
}

// UpdateContext upserts the session context.
func (s *ConversationStore) UpdateContext(ctx context.Context, sessionID string, convCtx *models.ConversationContext) error {
	data, err := json.Marshal(convCtx)
	if err != nil {
		return stderrors.NewDatabaseInsertFailedError("conversation_contexts", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_contexts (session_id, context, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id)
		DO UPDATE SET context = EXCLUDED.context, updated_at = EXCLUDED.updated_at`,
		sessionID, data, time.Now().UTC(),
	)
	if err != nil {
		return stderrors.NewDatabaseInsertFailedError("conversation_contexts", err)
	}

	return nil
}
