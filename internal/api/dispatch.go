package api

import (
	"context"

	"propertygpt/internal/common/logger"
	"propertygpt/internal/models"
)

// Handler collaborators, one per actionable intent. Defined here so the
// dispatcher can be tested against stubs.
type PropertyFinder interface {
	Search(ctx context.Context, entities models.ExtractedEntities) ([]models.Property, int64, error)
}

type MarketAnalyzer interface {
	Generate(ctx context.Context, location, timeframe string) (*models.MarketAnalysis, error)
}

type ComplianceFinder interface {
	Search(ctx context.Context, query string) ([]models.ComplianceRecord, error)
}

type LeadCreator interface {
	CreateLead(ctx context.Context, userID, utterance string, entities models.ExtractedEntities) (*models.Lead, error)
}

// Dispatcher maps a classified turn to its handler and collects the rich
// content for the response. Handler failures are logged and yield no rich
// content; the conversational reply still goes out.
type Dispatcher struct {
	properties PropertyFinder
	market     MarketAnalyzer
	compliance ComplianceFinder
	leads      LeadCreator
	logger     logger.Logger
}

func NewDispatcher(properties PropertyFinder, market MarketAnalyzer, compliance ComplianceFinder, leads LeadCreator, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		properties: properties,
		market:     market,
		compliance: compliance,
		leads:      leads,
		logger:     log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, userID, utterance string, resp *models.ConversationResponse, convCtx *models.ConversationContext) []models.RichContent {
	switch resp.Intent {
	case models.IntentPropertySearch:
		return d.dispatchPropertySearch(ctx, resp, convCtx)
	case models.IntentMarketAnalysis:
		return d.dispatchMarketAnalysis(ctx, resp, convCtx)
	case models.IntentComplianceQuestion:
		return d.dispatchCompliance(ctx, utterance)
	case models.IntentCRMAction:
		return d.dispatchCRMAction(ctx, userID, utterance, resp)
	default:
		return []models.RichContent{}
	}
}

func (d *Dispatcher) dispatchPropertySearch(ctx context.Context, resp *models.ConversationResponse, convCtx *models.ConversationContext) []models.RichContent {
	entities := mergeEntities(resp.ExtractedEntities, convCtx.ExtractedEntities)

	properties, total, err := d.properties.Search(ctx, entities)
	if err != nil {
		d.logger.Error("property search handler failed", map[string]interface{}{
			"error": err.Error(),
		})
		return []models.RichContent{}
	}

	return []models.RichContent{{
		Type: models.RichPropertyGrid,
		Data: map[string]interface{}{
			"properties": properties,
			"total":      total,
		},
	}}
}

func (d *Dispatcher) dispatchMarketAnalysis(ctx context.Context, resp *models.ConversationResponse, convCtx *models.ConversationContext) []models.RichContent {
	location := resp.ExtractedEntities.Location
	if location == "" {
		location = convCtx.ExtractedEntities.Location
	}
	if location == "" && len(convCtx.MarketFocus) > 0 {
		location = convCtx.MarketFocus[0]
	}
	if location == "" {
		d.logger.Warn("market analysis requested without a location", nil)
		return []models.RichContent{}
	}

	analysis, err := d.market.Generate(ctx, location, "")
	if err != nil {
		d.logger.Error("market analysis handler failed", map[string]interface{}{
			"location": location,
			"error":    err.Error(),
		})
		return []models.RichContent{}
	}

	return []models.RichContent{{
		Type: models.RichMarketChart,
		Data: analysis,
	}}
}

func (d *Dispatcher) dispatchCompliance(ctx context.Context, utterance string) []models.RichContent {
	records, err := d.compliance.Search(ctx, utterance)
	if err != nil {
		d.logger.Error("compliance search handler failed", map[string]interface{}{
			"error": err.Error(),
		})
		return []models.RichContent{}
	}

	return []models.RichContent{{
		Type: models.RichComplianceAnswer,
		Data: map[string]interface{}{
			"regulations": records,
		},
	}}
}

func (d *Dispatcher) dispatchCRMAction(ctx context.Context, userID, utterance string, resp *models.ConversationResponse) []models.RichContent {
	lead, err := d.leads.CreateLead(ctx, userID, utterance, resp.ExtractedEntities)
	if err != nil {
		d.logger.Error("lead creation handler failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return []models.RichContent{}
	}

	return []models.RichContent{{
		Type: models.RichLeadSummary,
		Data: lead,
	}}
}

// mergeEntities overlays this turn's entities on the accumulated session
// entities, so "show me cheaper ones" keeps the earlier location.
func mergeEntities(turn, session models.ExtractedEntities) models.ExtractedEntities {
	merged := session
	if turn.Location != "" {
		merged.Location = turn.Location
	}
	if turn.PriceRange != nil {
		merged.PriceRange = turn.PriceRange
	}
	if turn.PropertyType != "" {
		merged.PropertyType = turn.PropertyType
	}
	if turn.Bedrooms != 0 {
		merged.Bedrooms = turn.Bedrooms
	}
	if turn.Bathrooms != 0 {
		merged.Bathrooms = turn.Bathrooms
	}
	if len(turn.Features) > 0 {
		merged.Features = turn.Features
	}
	return merged
}
