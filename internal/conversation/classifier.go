// Package conversation routes natural-language utterances to intents and
// generates anticipatory follow-up suggestions. Classification runs behind a
// strategy interface with a generative and a heuristic implementation; the
// strategy is selected at construction time.
package conversation

import (
	"context"

	"propertygpt/internal/common/logger"
	"propertygpt/internal/common/metrics"
	"propertygpt/internal/models"
)

// Classifier turns one utterance plus session context and history into a
// structured response.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, input string, convCtx *models.ConversationContext, history []models.ConversationMessage) (*models.ConversationResponse, error)
}

// Router wraps the selected classifier with failure recovery: backend errors
// are converted into a low-confidence general_inquiry response, never
// surfaced to the caller.
type Router struct {
	classifier Classifier
	logger     logger.Logger
}

func NewRouter(classifier Classifier, log logger.Logger) *Router {
	return &Router{
		classifier: classifier,
		logger:     log.WithFields(map[string]interface{}{"component": "conversation-router"}),
	}
}

// Process classifies a single turn. It never returns an error.
func (r *Router) Process(ctx context.Context, input string, convCtx *models.ConversationContext, history []models.ConversationMessage) *models.ConversationResponse {
	resp, err := r.classifier.Classify(ctx, input, convCtx, history)
	if err != nil {
		r.logger.Warn("classification failed, using fallback response", map[string]interface{}{
			"strategy": r.classifier.Name(),
			"error":    err.Error(),
		})
		metrics.ClassifierFallbacks.Inc()
		resp = FallbackResponse()
	}

	normalizeResponse(resp)
	metrics.IntentsClassified.WithLabelValues(string(resp.Intent), r.classifier.Name()).Inc()

	return resp
}

// FallbackResponse is the low-confidence response returned when the
// generative backend fails or produces unusable output.
func FallbackResponse() *models.ConversationResponse {
	return &models.ConversationResponse{
		Intent:              models.IntentGeneralInquiry,
		ResponseText:        "I'm here to help with your real estate needs. Could you please rephrase your question?",
		AnticipatoryActions: []models.AnticipatedAction{},
		FollowUpPredictions: []models.Prediction{},
		Confidence:          0.5,
	}
}

// normalizeResponse enforces the response contract: a known intent and
// non-nil collections.
func normalizeResponse(resp *models.ConversationResponse) {
	if !models.ValidIntent(string(resp.Intent)) {
		resp.Intent = models.IntentGeneralInquiry
	}
	if resp.AnticipatoryActions == nil {
		resp.AnticipatoryActions = []models.AnticipatedAction{}
	}
	if resp.FollowUpPredictions == nil {
		resp.FollowUpPredictions = []models.Prediction{}
	}
}
