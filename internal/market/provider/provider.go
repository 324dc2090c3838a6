// Package provider fetches raw market time-series from the external market
// data backend and normalizes its loosely named fields into one canonical
// schema, so derivation logic never branches on field-name variants.
package provider

import (
	"context"
	"encoding/json"

	"propertygpt/internal/models"
)

// Provider is the engine-facing boundary to the external market data source.
type Provider interface {
	GetMarketData(ctx context.Context, location, timeframe string) (*RawMarketData, error)
}

// RawMarketData is the canonical normalized record. Defaults are applied at
// this boundary: inventory months 3, days on market 45, buyer/seller ratio 1.
type RawMarketData struct {
	Location               string
	Timeframe              string
	MedianPrice            float64
	AveragePrice           float64
	AverageDaysOnMarket    float64
	InventoryMonths        float64
	BuyerSellerRatio       float64
	PriceHistory           []PricePoint
	InventoryTrend         []models.InventoryPoint
	NeighborhoodComparison []models.NeighborhoodComparison
}

// PricePoint is one period of the chronological price history.
type PricePoint struct {
	Period      string
	MedianPrice float64
	SalesVolume int
}

// rawPayload mirrors the provider wire format, tolerating both the
// median_price/price and sales_volume/volume alias pairs.
type rawPayload struct {
	Location            string  `json:"location"`
	Timeframe           string  `json:"timeframe"`
	MedianPrice         float64 `json:"median_price"`
	Price               float64 `json:"price"`
	AveragePrice        float64 `json:"average_price"`
	AverageDaysOnMarket float64 `json:"average_days_on_market"`
	DaysOnMarket        float64 `json:"days_on_market"`
	InventoryMonths     float64 `json:"inventory_months"`
	BuyerSellerRatio    float64 `json:"buyer_seller_ratio"`

	PriceHistory []rawPricePoint `json:"price_history"`
	PriceTrends  []rawPricePoint `json:"price_trends"`

	InventoryTrend []rawInventoryPoint `json:"inventory_trend"`

	NeighborhoodComparison []rawNeighborhood `json:"neighborhood_comparison"`
}

type rawPricePoint struct {
	Period      string  `json:"period"`
	MedianPrice float64 `json:"median_price"`
	Price       float64 `json:"price"`
	SalesVolume int     `json:"sales_volume"`
	Volume      int     `json:"volume"`
}

type rawInventoryPoint struct {
	Period       string  `json:"period"`
	MonthsSupply float64 `json:"months_supply"`
	NewListings  int     `json:"new_listings"`
}

type rawNeighborhood struct {
	Name           string  `json:"name"`
	MedianPrice    float64 `json:"median_price"`
	Price          float64 `json:"price"`
	PriceChangePct float64 `json:"price_change_pct"`
	DaysOnMarket   float64 `json:"days_on_market"`
}

// Normalize decodes a raw provider payload and resolves field aliases and
// defaults into the canonical schema.
func Normalize(data []byte, location, timeframe string) (*RawMarketData, error) {
	var p rawPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p.normalize(location, timeframe), nil
}

func (p *rawPayload) normalize(location, timeframe string) *RawMarketData {
	out := &RawMarketData{
		Location:         firstNonEmpty(p.Location, location),
		Timeframe:        firstNonEmpty(p.Timeframe, timeframe),
		MedianPrice:      firstNonZero(p.MedianPrice, p.Price),
		AveragePrice:     p.AveragePrice,
		BuyerSellerRatio: p.BuyerSellerRatio,
		InventoryMonths:  p.InventoryMonths,
	}

	out.AverageDaysOnMarket = firstNonZero(p.AverageDaysOnMarket, p.DaysOnMarket)
	if out.AverageDaysOnMarket == 0 {
		out.AverageDaysOnMarket = 45
	}
	if out.InventoryMonths == 0 {
		out.InventoryMonths = 3
	}
	if out.BuyerSellerRatio == 0 {
		out.BuyerSellerRatio = 1.0
	}

	history := p.PriceHistory
	if len(history) == 0 {
		history = p.PriceTrends
	}
	out.PriceHistory = make([]PricePoint, 0, len(history))
	for _, h := range history {
		out.PriceHistory = append(out.PriceHistory, PricePoint{
			Period:      h.Period,
			MedianPrice: firstNonZero(h.MedianPrice, h.Price),
			SalesVolume: firstNonZeroInt(h.SalesVolume, h.Volume),
		})
	}

	out.InventoryTrend = make([]models.InventoryPoint, 0, len(p.InventoryTrend))
	for _, pt := range p.InventoryTrend {
		out.InventoryTrend = append(out.InventoryTrend, models.InventoryPoint{
			Period:       pt.Period,
			MonthsSupply: pt.MonthsSupply,
			NewListings:  pt.NewListings,
		})
	}

	for _, n := range p.NeighborhoodComparison {
		out.NeighborhoodComparison = append(out.NeighborhoodComparison, models.NeighborhoodComparison{
			Name:           n.Name,
			MedianPrice:    firstNonZero(n.MedianPrice, n.Price),
			PriceChangePct: n.PriceChangePct,
			DaysOnMarket:   n.DaysOnMarket,
		})
	}

	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b float64) float64 {
	if a != 0 {
		return a
	}
	return b
}

func firstNonZeroInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}
