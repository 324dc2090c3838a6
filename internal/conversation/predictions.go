package conversation

import (
	"strings"

	"propertygpt/internal/models"
)

// GeneratePredictions inspects the utterance and session context for
// anticipatory triggers. The checks are independent: every trigger that
// matches contributes one prediction, in the order of the checks. The result
// is fully deterministic.
func GeneratePredictions(input string, convCtx *models.ConversationContext) []models.Prediction {
	predictions := make([]models.Prediction, 0)

	if strings.Contains(strings.ToLower(input), "looking for") {
		predictions = append(predictions, models.Prediction{
			Content:    "Set up automated alerts for similar properties?",
			Confidence: 0.85,
			Trigger:    models.TriggerContextCue,
			Category:   string(models.IntentPropertySearch),
		})
	}

	if convCtx.HasPattern("market_analysis_frequent") {
		predictions = append(predictions, models.Prediction{
			Content:    "Generate market snapshot for this area?",
			Confidence: 0.78,
			Trigger:    models.TriggerTemporalPattern,
			Category:   string(models.IntentMarketAnalysis),
		})
	}

	if convCtx.UserExpertise == models.ExpertiseExpert && strings.Contains(input, "compliance") {
		predictions = append(predictions, models.Prediction{
			Content:    "Check recent regulatory updates?",
			Confidence: 0.82,
			Trigger:    models.TriggerContextCue,
			Category:   "compliance",
		})
	}

	return predictions
}
