// Package market derives structured MarketAnalysis reports from raw market
// time-series, fronted by a short-TTL best-effort cache.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"propertygpt/internal/common/cache"
	stderrors "propertygpt/internal/common/errors"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/common/metrics"
	"propertygpt/internal/market/provider"
	"propertygpt/internal/models"
)

// DefaultTimeframe is applied when the caller passes an empty timeframe.
const DefaultTimeframe = "6m"

// Engine derives MarketAnalysis reports. The cache is a correctness-neutral
// performance layer: read and write failures are logged and swallowed.
type Engine struct {
	provider provider.Provider
	cache    cache.Store
	ttl      time.Duration
	logger   logger.Logger
}

func NewEngine(p provider.Provider, store cache.Store, ttl time.Duration, log logger.Logger) *Engine {
	if store == nil {
		store = cache.NewNoop()
	}
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &Engine{
		provider: p,
		cache:    store,
		ttl:      ttl,
		logger:   log.WithFields(map[string]interface{}{"component": "market-engine"}),
	}
}

// Generate produces the derived analysis for (location, timeframe). On a
// cache hit the stored report is returned verbatim without re-derivation.
// Provider failure is the only hard failure.
func (e *Engine) Generate(ctx context.Context, location, timeframe string) (*models.MarketAnalysis, error) {
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}

	cacheKey := fmt.Sprintf("market_analysis:%s:%s", location, timeframe)

	if cached, err := e.cache.Get(ctx, cacheKey); err == nil {
		var analysis models.MarketAnalysis
		if err := json.Unmarshal([]byte(cached), &analysis); err == nil {
			metrics.AnalysisCacheHits.Inc()
			return &analysis, nil
		}
		e.logger.Warn("discarding undecodable cache entry", map[string]interface{}{
			"key": cacheKey,
		})
	} else if err != cache.ErrMiss {
		e.logger.Warn("cache read error", map[string]interface{}{
			"key":   cacheKey,
			"error": err.Error(),
		})
	}
	metrics.AnalysisCacheMisses.Inc()

	raw, err := e.provider.GetMarketData(ctx, location, timeframe)
	if err != nil {
		return nil, stderrors.NewProviderFetchFailedError(location, err)
	}

	trends := derivePriceTrends(raw.PriceHistory)

	analysis := &models.MarketAnalysis{
		Location:               location,
		Timeframe:              timeframe,
		Summary:                deriveSummary(raw),
		PriceTrends:            trends,
		InventoryAnalysis:      deriveInventoryAnalysis(raw),
		NeighborhoodComparison: e.compareNeighborhoods(raw),
		PredictiveInsights:     derivePredictiveInsights(raw, trends),
		Recommendations:        deriveRecommendations(raw),
	}

	if data, err := json.Marshal(analysis); err == nil {
		if err := e.cache.SetEx(ctx, cacheKey, string(data), e.ttl); err != nil {
			e.logger.Warn("cache write error", map[string]interface{}{
				"key":   cacheKey,
				"error": err.Error(),
			})
		}
	}

	metrics.AnalysesGenerated.WithLabelValues(timeframe).Inc()
	e.logger.Info("market analysis generated", map[string]interface{}{
		"location":  location,
		"timeframe": timeframe,
		"trends":    len(analysis.PriceTrends),
		"insights":  len(analysis.PredictiveInsights),
	})

	return analysis, nil
}

func deriveSummary(raw *provider.RawMarketData) models.MarketSummary {
	return models.MarketSummary{
		MedianPrice:      raw.MedianPrice,
		AveragePrice:     raw.AveragePrice,
		PriceChangePct:   calculatePriceChange(raw.PriceHistory),
		DaysOnMarket:     raw.AverageDaysOnMarket,
		InventoryLevel:   classifyInventoryLevel(raw.InventoryMonths),
		MarketTempo:      assessMarketTempo(raw.AverageDaysOnMarket, raw.InventoryMonths),
		BuyerSellerRatio: raw.BuyerSellerRatio,
	}
}

// derivePriceTrends walks the chronological history pairwise. The first
// period has no predecessor and yields no entry.
func derivePriceTrends(history []provider.PricePoint) []models.PriceTrend {
	trends := make([]models.PriceTrend, 0)
	for i := 1; i < len(history); i++ {
		current := history[i]
		previous := history[i-1]

		changePct := 0.0
		if previous.MedianPrice != 0 {
			changePct = (current.MedianPrice - previous.MedianPrice) / previous.MedianPrice * 100
		}

		trends = append(trends, models.PriceTrend{
			Period:       current.Period,
			MedianPrice:  current.MedianPrice,
			ChangePct:    changePct,
			ChangeAmount: current.MedianPrice - previous.MedianPrice,
			Volume:       current.SalesVolume,
		})
	}
	return trends
}

func deriveInventoryAnalysis(raw *provider.RawMarketData) models.InventoryAnalysis {
	change := relativeInventoryChange(raw.InventoryTrend)

	trend := models.TrendStable
	if change > 0.1 {
		trend = models.TrendIncreasing
	} else if change < -0.1 {
		trend = models.TrendDecreasing
	}

	monthly := raw.InventoryTrend
	if monthly == nil {
		monthly = []models.InventoryPoint{}
	}

	return models.InventoryAnalysis{
		MonthsSupply: raw.InventoryMonths,
		Trend:        trend,
		MonthlyData:  monthly,
	}
}

func derivePredictiveInsights(raw *provider.RawMarketData, trends []models.PriceTrend) []models.PredictiveInsight {
	insights := make([]models.PredictiveInsight, 0)

	// Price forecast from the most recent trend deltas.
	recent := trends
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	if len(recent) >= 2 {
		direction := trendDirection(recent)
		if math.Abs(direction) > 0.02 {
			title := "Downward Price Pressure"
			verb := "decrease"
			if direction > 0 {
				title = "Upward Price Pressure"
				verb = "increase"
			}
			insights = append(insights, models.PredictiveInsight{
				Type:  "price_forecast",
				Title: title,
				Description: fmt.Sprintf(
					"Based on recent trends, prices may %s by %.1f%% over the next 3 months.",
					verb, math.Abs(direction*100)),
				Confidence: 0.75,
				Impact:     "high",
				Timeline:   "3_months",
			})
		}
	}

	// Inventory forecast.
	if len(raw.InventoryTrend) > 0 {
		change := relativeInventoryChange(raw.InventoryTrend)
		if math.Abs(change) > 0.15 {
			title := "Decreasing Inventory"
			direction := "down"
			favors := "favors sellers"
			if change > 0 {
				title = "Increasing Inventory"
				direction = "up"
				favors = "favors buyers"
			}
			insights = append(insights, models.PredictiveInsight{
				Type:  "inventory_forecast",
				Title: title,
				Description: fmt.Sprintf(
					"Inventory levels are trending %s, which typically %s.", direction, favors),
				Confidence: 0.68,
				Impact:     "medium",
				Timeline:   "2_months",
			})
		}
	}

	// Market tempo alert.
	if assessMarketTempo(raw.AverageDaysOnMarket, raw.InventoryMonths) == models.TempoHot {
		insights = append(insights, models.PredictiveInsight{
			Type:        "market_tempo",
			Title:       "Competitive Market Alert",
			Description: "Market is moving quickly with high demand. Consider acting fast on desirable properties.",
			Confidence:  0.82,
			Impact:      "high",
			Timeline:    "1_month",
		})
	}

	return insights
}

func deriveRecommendations(raw *provider.RawMarketData) []models.MarketRecommendation {
	recommendations := make([]models.MarketRecommendation, 0)

	tempo := assessMarketTempo(raw.AverageDaysOnMarket, raw.InventoryMonths)
	level := classifyInventoryLevel(raw.InventoryMonths)

	if tempo == models.TempoHot && level == models.InventoryLow {
		recommendations = append(recommendations, models.MarketRecommendation{
			Title:       "Act Quickly",
			Description: "Hot market with low inventory. Be prepared to make competitive offers.",
			Priority:    "high",
			Category:    "timing",
		})
	} else if tempo == models.TempoCool && level == models.InventoryHigh {
		recommendations = append(recommendations, models.MarketRecommendation{
			Title:       "Buyer's Market",
			Description: "Take your time and negotiate. Multiple options available.",
			Priority:    "medium",
			Category:    "strategy",
		})
	}

	priceChange := calculatePriceChange(raw.PriceHistory)
	if priceChange > 0.05 {
		recommendations = append(recommendations, models.MarketRecommendation{
			Title:       "Rising Prices",
			Description: "Prices have increased recently. Consider buying sooner rather than later.",
			Priority:    "high",
			Category:    "pricing",
		})
	} else if priceChange < -0.05 {
		recommendations = append(recommendations, models.MarketRecommendation{
			Title:       "Price Opportunity",
			Description: "Prices have declined. Good opportunity for value-conscious buyers.",
			Priority:    "medium",
			Category:    "pricing",
		})
	}

	return recommendations
}

// calculatePriceChange returns the full-window price change as a fraction.
// Zero when fewer than 2 points exist or the earliest price is zero.
func calculatePriceChange(history []provider.PricePoint) float64 {
	if len(history) < 2 {
		return 0
	}

	earliest := history[0].MedianPrice
	latest := history[len(history)-1].MedianPrice

	if earliest == 0 || latest == 0 {
		return 0
	}

	return (latest - earliest) / earliest
}

// relativeInventoryChange compares the two most recent months_supply points.
func relativeInventoryChange(trend []models.InventoryPoint) float64 {
	if len(trend) < 2 {
		return 0
	}

	latest := trend[len(trend)-1].MonthsSupply
	previous := trend[len(trend)-2].MonthsSupply

	if previous == 0 {
		return 0
	}

	return (latest - previous) / previous
}

// trendDirection averages trend change percentages into a fraction.
func trendDirection(trends []models.PriceTrend) float64 {
	if len(trends) < 2 {
		return 0
	}

	sum := 0.0
	for _, t := range trends {
		sum += t.ChangePct
	}
	return sum / float64(len(trends)) / 100
}

func classifyInventoryLevel(inventoryMonths float64) models.InventoryLevel {
	if inventoryMonths < 3 {
		return models.InventoryLow
	}
	if inventoryMonths > 6 {
		return models.InventoryHigh
	}
	return models.InventoryBalanced
}

// assessMarketTempo applies the nested thresholds in precedence order.
func assessMarketTempo(daysOnMarket, inventoryMonths float64) models.MarketTempo {
	switch {
	case daysOnMarket < 20 && inventoryMonths < 2:
		return models.TempoHot
	case daysOnMarket < 35 && inventoryMonths < 4:
		return models.TempoWarm
	case daysOnMarket < 60 && inventoryMonths < 8:
		return models.TempoCool
	default:
		return models.TempoCold
	}
}
