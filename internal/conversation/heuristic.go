package conversation

import (
	"context"
	"strings"

	"propertygpt/internal/models"
)

// HeuristicClassifier is the keyword fallback strategy, used when no
// generative backend is configured. Matching follows a fixed priority list.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

func (h *HeuristicClassifier) Name() string { return "heuristic" }

func (h *HeuristicClassifier) Classify(ctx context.Context, input string, convCtx *models.ConversationContext, history []models.ConversationMessage) (*models.ConversationResponse, error) {
	lowered := strings.ToLower(input)

	intent := models.IntentGeneralInquiry
	responseText := "Thank you for your question. I'm here to help with your real estate needs."

	switch {
	case containsAny(lowered, "search", "property", "home"):
		intent = models.IntentPropertySearch
		responseText = "I'd be happy to help you search for properties! Here are some options based on your criteria."
	case containsAny(lowered, "market", "trend", "price"):
		intent = models.IntentMarketAnalysis
		responseText = "Let me provide you with current market analysis and trends for the area you're interested in."
	case containsAny(lowered, "compliance", "regulation", "law"):
		intent = models.IntentComplianceQuestion
		responseText = "I can help you with compliance and regulatory questions. Here's what you need to know."
	}

	return &models.ConversationResponse{
		Intent:       intent,
		ResponseText: responseText,
		AnticipatoryActions: []models.AnticipatedAction{
			{Label: "View More Details", Action: "view_details", Confidence: 0.8},
			{Label: "Save This Search", Action: "save_search", Confidence: 0.7},
		},
		FollowUpPredictions: []models.Prediction{
			{
				Content:    "Would you like to see similar properties?",
				Confidence: 0.75,
				Trigger:    models.TriggerContextCue,
				Category:   string(models.IntentPropertySearch),
			},
		},
		Confidence: 0.8,
	}, nil
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
