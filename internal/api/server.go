// Package api exposes the assistant over HTTP: the chat endpoint, the direct
// market analysis endpoint, health and metrics.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"propertygpt/internal/common/config"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/common/observability"
)

type Server struct {
	config config.ServerConfig
	engine *gin.Engine
	srv    *http.Server
	logger logger.Logger
}

func NewServer(cfg config.ServerConfig, chat *ChatHandler, market *MarketHandler, obs *observability.Observability, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(obs, log))

	engine.POST("/api/chat", chat.Handle)
	engine.GET("/api/market/analysis", market.Handle)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		config: cfg,
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"component": "http-server"}),
	}
}

// Handler exposes the route tree, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:    s.config.Address,
		Handler: s.engine,
	}

	s.logger.Info("http server listening", map[string]interface{}{
		"address": s.config.Address,
	})

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func requestLogger(obs *observability.Observability, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		if obs != nil {
			obs.RecordRequest(c.Request.Context(), route, strconv.Itoa(status))
			obs.RecordDuration(c.Request.Context(), route, duration)
		}

		log.Info("request completed", map[string]interface{}{
			"method":   c.Request.Method,
			"route":    route,
			"status":   status,
			"duration": duration.String(),
		})
	}
}
