// internal/models/conversation.go
package models

import "time"

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentPropertySearch     Intent = "property_search"
	IntentMarketAnalysis     Intent = "market_analysis"
	IntentComplianceQuestion Intent = "compliance_question"
	IntentCRMAction          Intent = "crm_action"
	IntentGeneralInquiry     Intent = "general_inquiry"
)

// ValidIntent reports whether s is one of the five known intents.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentPropertySearch, IntentMarketAnalysis, IntentComplianceQuestion,
		IntentCRMAction, IntentGeneralInquiry:
		return true
	}
	return false
}

// ConversationStage tracks where the session is in the workflow. Transitions
// are owned by the caller; the router only reads the stage.
type ConversationStage string

const (
	StageGreeting  ConversationStage = "greeting"
	StageDiscovery ConversationStage = "discovery"
	StageSearch    ConversationStage = "search"
	StageAnalysis  ConversationStage = "analysis"
	StageAction    ConversationStage = "action"
)

// UserExpertise tailors response tone.
type UserExpertise string

const (
	ExpertiseNovice       UserExpertise = "novice"
	ExpertiseIntermediate UserExpertise = "intermediate"
	ExpertiseExpert       UserExpertise = "expert"
)

// ExtractedEntities is the partial record of entities pulled from utterances.
type ExtractedEntities struct {
	Location     string      `json:"location,omitempty"`
	PriceRange   *PriceRange `json:"price_range,omitempty"`
	PropertyType string      `json:"property_type,omitempty"`
	Bedrooms     int         `json:"bedrooms,omitempty"`
	Bathrooms    float64     `json:"bathrooms,omitempty"`
	Features     []string    `json:"features,omitempty"`
}

type PriceRange struct {
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`
}

// InteractionPattern records a recurring behavior for a session.
type InteractionPattern struct {
	Type           string    `json:"type"`
	Frequency      int       `json:"frequency"`
	LastOccurrence time.Time `json:"last_occurrence"`
	Confidence     float64   `json:"confidence"`
}

// ConversationContext is the mutable per-session state. Created at session
// start, merged after every turn, discarded when the session ends.
type ConversationContext struct {
	UserIntent          []string             `json:"user_intent"`
	ExtractedEntities   ExtractedEntities    `json:"extracted_entities"`
	ConversationStage   ConversationStage    `json:"conversation_stage"`
	UserExpertise       UserExpertise        `json:"user_expertise"`
	MarketFocus         []string             `json:"market_focus"`
	InteractionPatterns []InteractionPattern `json:"interaction_patterns"`
}

// NewConversationContext returns the session-start defaults.
func NewConversationContext() *ConversationContext {
	return &ConversationContext{
		UserIntent:          []string{},
		ConversationStage:   StageGreeting,
		UserExpertise:       ExpertiseIntermediate,
		MarketFocus:         []string{},
		InteractionPatterns: []InteractionPattern{},
	}
}

// HasPattern reports whether a pattern of the given type was recorded.
func (c *ConversationContext) HasPattern(patternType string) bool {
	for _, p := range c.InteractionPatterns {
		if p.Type == patternType {
			return true
		}
	}
	return false
}

// MergeTurn folds a classified turn into the context: the intent is appended
// and non-empty extracted entities overwrite previous values.
func (c *ConversationContext) MergeTurn(intent Intent, entities ExtractedEntities) {
	c.UserIntent = append(c.UserIntent, string(intent))

	if entities.Location != "" {
		c.ExtractedEntities.Location = entities.Location
	}
	if entities.PriceRange != nil {
		c.ExtractedEntities.PriceRange = entities.PriceRange
	}
	if entities.PropertyType != "" {
		c.ExtractedEntities.PropertyType = entities.PropertyType
	}
	if entities.Bedrooms != 0 {
		c.ExtractedEntities.Bedrooms = entities.Bedrooms
	}
	if entities.Bathrooms != 0 {
		c.ExtractedEntities.Bathrooms = entities.Bathrooms
	}
	if len(entities.Features) > 0 {
		c.ExtractedEntities.Features = entities.Features
	}
}

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ConversationMessage is one stored turn of the conversation.
type ConversationMessage struct {
	ID                 string              `json:"id"`
	SessionID          string              `json:"session_id"`
	UserID             string              `json:"user_id"`
	Sender             Sender              `json:"sender"`
	Content            string              `json:"content"`
	RichContent        []RichContent       `json:"rich_content,omitempty"`
	AnticipatedActions []AnticipatedAction `json:"anticipated_actions,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// AnticipatedAction is a suggested next user action with a confidence score.
type AnticipatedAction struct {
	Label      string  `json:"label"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// PredictionTrigger names what caused a prediction to fire.
type PredictionTrigger string

const (
	TriggerTypingPattern  PredictionTrigger = "typing_pattern"
	TriggerContextCue     PredictionTrigger = "context_cue"
	TriggerTemporalPattern PredictionTrigger = "temporal_pattern"
)

// Prediction is an ephemeral per-turn follow-up suggestion.
type Prediction struct {
	Content    string            `json:"content"`
	Confidence float64           `json:"confidence"`
	Trigger    PredictionTrigger `json:"trigger"`
	Category   string            `json:"category"`
}

// ConversationResponse is produced once per turn and consumed immediately by
// the dispatcher.
type ConversationResponse struct {
	Intent              Intent              `json:"intent"`
	ResponseText        string              `json:"response_text"`
	ExtractedEntities   ExtractedEntities   `json:"extracted_entities"`
	AnticipatoryActions []AnticipatedAction `json:"anticipatory_actions"`
	FollowUpPredictions []Prediction        `json:"follow_up_predictions"`
	Confidence          float64             `json:"confidence"`
}

// RichContentType identifies the typed payload attached to an assistant
// response for UI rendering.
type RichContentType string

const (
	RichPropertyGrid     RichContentType = "property_grid"
	RichMarketChart      RichContentType = "market_chart"
	RichComplianceAnswer RichContentType = "compliance_answer"
	RichLeadSummary      RichContentType = "lead_summary"
)

// RichContent is a typed structured payload for UI rendering.
type RichContent struct {
	Type RichContentType `json:"type"`
	Data interface{}     `json:"data"`
}
