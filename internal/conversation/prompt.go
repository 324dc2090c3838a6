package conversation

import (
	"fmt"
	"strings"

	"propertygpt/internal/models"
)

const systemPromptTemplate = `You are PropertyGPT, an anticipatory real estate intelligence assistant. Your role is to predict agent needs, surface adjacent opportunities, and provide insights that elevate their capabilities.

CORE PRINCIPLES:
1. Anticipate next 2-3 likely needs based on current conversation
2. Surface opportunities agents haven't considered
3. Provide insights that demonstrate deep market understanding
4. Guide toward workflow optimizations and capability amplification

CURRENT CONTEXT:
- User expertise: %s
- Conversation stage: %s
- Market focus: %s
- Previous intents: %s

RESPONSE REQUIREMENTS:
- Always suggest 2-3 anticipatory actions
- Predict likely follow-up needs
- Include confidence scores for all suggestions
- Provide specific, actionable insights
- Format responses for conversational UI display

ANTICIPATORY INTELLIGENCE:
Based on context, predict what this agent will likely need next and prepare those suggestions proactively.`

// buildSystemPrompt embeds the session context fields into the assistant
// persona prompt.
func buildSystemPrompt(convCtx *models.ConversationContext) string {
	return fmt.Sprintf(systemPromptTemplate,
		convCtx.UserExpertise,
		convCtx.ConversationStage,
		strings.Join(convCtx.MarketFocus, ", "),
		strings.Join(convCtx.UserIntent, ", "),
	)
}

// buildConversationPrompt renders the last 5 history turns plus the new
// utterance.
func buildConversationPrompt(input string, history []models.ConversationMessage) string {
	recent := history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	lines := make([]string, 0, len(recent))
	for _, msg := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Sender, msg.Content))
	}

	return fmt.Sprintf("Recent conversation:\n%s\n\nUser: %s", strings.Join(lines, "\n"), input)
}
