package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"propertygpt/internal/common/logger"
	"propertygpt/internal/common/metrics"
	"propertygpt/internal/conversation"
	"propertygpt/internal/models"
)

// ConversationStore is the persistence surface the chat handler writes
// through after each turn.
type ConversationStore interface {
	SaveMessage(ctx context.Context, msg *models.ConversationMessage) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]models.ConversationMessage, error)
	Context(ctx context.Context, sessionID string) (*models.ConversationContext, error)
	UpdateContext(ctx context.Context, sessionID string, convCtx *models.ConversationContext) error
}

type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type ChatResponse struct {
	MessageID           string                     `json:"message_id"`
	Intent              models.Intent              `json:"intent"`
	ResponseText        string                     `json:"response_text"`
	RichContent         []models.RichContent       `json:"rich_content"`
	AnticipatoryActions []models.AnticipatedAction `json:"anticipatory_actions"`
	FollowUpPredictions []models.Prediction        `json:"follow_up_predictions"`
	Confidence          float64                    `json:"confidence"`
}

type ChatHandler struct {
	router     *conversation.Router
	dispatcher *Dispatcher
	store      ConversationStore
	logger     logger.Logger
}

func NewChatHandler(router *conversation.Router, dispatcher *Dispatcher, store ConversationStore, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		router:     router,
		dispatcher: dispatcher,
		store:      store,
		logger:     log.WithFields(map[string]interface{}{"component": "chat-handler"}),
	}
}

// Handle processes one chat turn: load session state, classify, dispatch,
// persist, respond. Persistence failures degrade to an unpersisted turn
// rather than failing the conversation.
func (h *ChatHandler) Handle(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id, user_id and message are required"})
		return
	}

	ctx := c.Request.Context()
	start := time.Now()

	convCtx, err := h.store.Context(ctx, req.SessionID)
	if err != nil {
		h.logger.Warn("context load failed, using defaults", map[string]interface{}{
			"sessionId": req.SessionID,
			"error":     err.Error(),
		})
		convCtx = models.NewConversationContext()
	}

	history, err := h.store.RecentMessages(ctx, req.SessionID, 0)
	if err != nil {
		h.logger.Warn("history load failed, continuing without history", map[string]interface{}{
			"sessionId": req.SessionID,
			"error":     err.Error(),
		})
		history = nil
	}

	h.persistMessage(ctx, &models.ConversationMessage{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Sender:    models.SenderUser,
		Content:   req.Message,
	})

	resp := h.router.Process(ctx, req.Message, convCtx, history)

	// Anticipatory predictions run independently of classification.
	resp.FollowUpPredictions = append(resp.FollowUpPredictions,
		conversation.GeneratePredictions(req.Message, convCtx)...)

	richContent := h.dispatcher.Dispatch(ctx, req.UserID, req.Message, resp, convCtx)

	convCtx.MergeTurn(resp.Intent, resp.ExtractedEntities)
	if err := h.store.UpdateContext(ctx, req.SessionID, convCtx); err != nil {
		h.logger.Warn("context update failed", map[string]interface{}{
			"sessionId": req.SessionID,
			"error":     err.Error(),
		})
	}

	aiMsg := &models.ConversationMessage{
		SessionID:          req.SessionID,
		UserID:             req.UserID,
		Sender:             models.SenderAI,
		Content:            resp.ResponseText,
		RichContent:        richContent,
		AnticipatedActions: resp.AnticipatoryActions,
	}
	h.persistMessage(ctx, aiMsg)

	metrics.ChatTurnDuration.WithLabelValues(string(resp.Intent)).Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, ChatResponse{
		MessageID:           aiMsg.ID,
		Intent:              resp.Intent,
		ResponseText:        resp.ResponseText,
		RichContent:         richContent,
		AnticipatoryActions: resp.AnticipatoryActions,
		FollowUpPredictions: resp.FollowUpPredictions,
		Confidence:          resp.Confidence,
	})
}

func (h *ChatHandler) persistMessage(ctx context.Context, msg *models.ConversationMessage) {
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		h.logger.Warn("message persistence failed", map[string]interface{}{
			"sessionId": msg.SessionID,
			"sender":    string(msg.Sender),
			"error":     err.Error(),
		})
	}
}
