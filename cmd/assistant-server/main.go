// cmd/assistant-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"propertygpt/internal/api"
	"propertygpt/internal/common/aws"
	"propertygpt/internal/common/cache"
	"propertygpt/internal/common/config"
	"propertygpt/internal/common/database"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/common/observability"
	"propertygpt/internal/common/ratelimit"
	"propertygpt/internal/conversation"
	"propertygpt/internal/crm"
	"propertygpt/internal/market"
	"propertygpt/internal/market/provider"
	"propertygpt/internal/search"
	"propertygpt/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("assistant-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis cache (optional, engine degrades to uncached) ---
	var analysisCache cache.Store
	if cfg.Cache.Enabled {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, market analyses will be uncached", zap.Error(err))
		} else {
			defer redis.Close()
			analysisCache = cache.NewRedis(redis.Client)
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Market analysis engine ---
	marketProvider := provider.NewHTTPProvider(&provider.Config{
		BaseURL:    cfg.MarketData.BaseURL,
		APIKey:     cfg.MarketData.APIKey,
		Timeout:    time.Duration(cfg.MarketData.Timeout) * time.Millisecond,
		MaxRetries: cfg.MarketData.MaxRetries,
	}, log)

	engine := market.NewEngine(marketProvider, analysisCache,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second, log)

	// --- Conversation router ---
	var classifier conversation.Classifier
	if cfg.GenAI.BaseURL != "" {
		limiter := ratelimit.NewSlidingWindow(cfg.GenAI.RequestsPerMinute, time.Minute)
		classifier = conversation.NewGenerativeClassifier(cfg.GenAI, limiter, log)
		zapLog.Info("Using generative classification strategy")
	} else {
		classifier = conversation.NewHeuristicClassifier()
		zapLog.Warn("No generative backend configured, using heuristic classification")
	}
	router := conversation.NewRouter(classifier, log)

	// --- Intent handler collaborators ---
	propertySearcher := search.NewPropertySearcher(esClient.Client,
		cfg.Database.Elasticsearch.PropertyIndex, cfg.Search.MaxResults, log)
	complianceSearcher := search.NewComplianceSearcher(esClient.Client,
		cfg.Database.Elasticsearch.ComplianceIndex, cfg.Search.MaxResults, log)

	var sesClient crm.SESService
	if cfg.Integrations.AWS.SES.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		sesClient = client
	}
	leadService := crm.NewLeadService(crm.Config{
		EmailEnabled: cfg.Integrations.AWS.SES.Enabled,
		FromEmail:    cfg.Integrations.AWS.SES.FromEmail,
		LeadsEmail:   cfg.Integrations.AWS.SES.LeadsEmail,
	}, pg.DB, sesClient, log)

	dispatcher := api.NewDispatcher(propertySearcher, engine, complianceSearcher, leadService, log)

	// --- HTTP server ---
	conversationStore := store.NewConversationStore(pg.DB, log)
	chatHandler := api.NewChatHandler(router, dispatcher, conversationStore, log)
	marketHandler := api.NewMarketHandler(engine, log)

	server := api.NewServer(cfg.Server, chatHandler, marketHandler, obs, log)

	go func() {
		if err := server.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}

	zapLog.Info("Assistant server stopped")
}
