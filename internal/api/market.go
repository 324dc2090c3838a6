package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propertygpt/internal/common/logger"
)

type MarketHandler struct {
	engine MarketAnalyzer
	logger logger.Logger
}

func NewMarketHandler(engine MarketAnalyzer, log logger.Logger) *MarketHandler {
	return &MarketHandler{
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"component": "market-handler"}),
	}
}

// Handle serves GET /api/market/analysis. Engine failures surface as a
// generic 500; details stay in the logs.
func (h *MarketHandler) Handle(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
		return
	}

	analysis, err := h.engine.Generate(c.Request.Context(), location, c.Query("timeframe"))
	if err != nil {
		h.logger.Error("market analysis failed", map[string]interface{}{
			"location": location,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}
