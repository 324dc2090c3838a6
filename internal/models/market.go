// internal/models/market.go
package models

// InventoryLevel classifies months of supply.
type InventoryLevel string

const (
	InventoryLow      InventoryLevel = "low"
	InventoryBalanced InventoryLevel = "balanced"
	InventoryHigh     InventoryLevel = "high"
)

// MarketTempo is a four-level classification of sale velocity derived from
// days-on-market and inventory-months.
type MarketTempo string

const (
	TempoHot  MarketTempo = "hot"
	TempoWarm MarketTempo = "warm"
	TempoCool MarketTempo = "cool"
	TempoCold MarketTempo = "cold"
)

// InventoryTrend describes the direction of months-of-supply movement.
type InventoryTrend string

const (
	TrendIncreasing InventoryTrend = "increasing"
	TrendStable     InventoryTrend = "stable"
	TrendDecreasing InventoryTrend = "decreasing"
)

// MarketAnalysis is the derived report. Immutable once produced; cached by
// (location, timeframe).
type MarketAnalysis struct {
	Location               string                   `json:"location"`
	Timeframe              string                   `json:"timeframe"`
	Summary                MarketSummary            `json:"summary"`
	PriceTrends            []PriceTrend             `json:"price_trends"`
	InventoryAnalysis      InventoryAnalysis        `json:"inventory_analysis"`
	NeighborhoodComparison []NeighborhoodComparison `json:"neighborhood_comparison"`
	PredictiveInsights     []PredictiveInsight      `json:"predictive_insights"`
	Recommendations        []MarketRecommendation   `json:"recommendations"`
}

type MarketSummary struct {
	MedianPrice      float64        `json:"median_price"`
	AveragePrice     float64        `json:"average_price"`
	PriceChangePct   float64        `json:"price_change_pct"`
	DaysOnMarket     float64        `json:"days_on_market"`
	InventoryLevel   InventoryLevel `json:"inventory_level"`
	MarketTempo      MarketTempo    `json:"market_tempo"`
	BuyerSellerRatio float64        `json:"buyer_seller_ratio"`
}

// PriceTrend is one pairwise delta in the chronological price history. The
// first period has no predecessor and produces no entry.
type PriceTrend struct {
	Period       string  `json:"period"`
	MedianPrice  float64 `json:"median_price"`
	ChangePct    float64 `json:"change_pct"`
	ChangeAmount float64 `json:"change_amount"`
	Volume       int     `json:"volume"`
}

type InventoryAnalysis struct {
	MonthsSupply float64          `json:"months_supply"`
	Trend        InventoryTrend   `json:"trend"`
	MonthlyData  []InventoryPoint `json:"monthly_data"`
}

type InventoryPoint struct {
	Period       string  `json:"period"`
	MonthsSupply float64 `json:"months_supply"`
	NewListings  int     `json:"new_listings"`
}

type NeighborhoodComparison struct {
	Name           string  `json:"name"`
	MedianPrice    float64 `json:"median_price"`
	PriceChangePct float64 `json:"price_change_pct"`
	DaysOnMarket   float64 `json:"days_on_market"`
}

type PredictiveInsight struct {
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Impact      string  `json:"impact"`
	Timeline    string  `json:"timeline"`
}

type MarketRecommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}
