package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/prepwise/interview-platform/cmd/mainconfig"
	"github.com/prepwise/interview-platform/internal/api/router"
	appconfig "github.com/prepwise/interview-platform/internal/config"
	"github.com/prepwise/interview-platform/internal/feedback"
	"github.com/prepwise/interview-platform/internal/gateway"
	"github.com/prepwise/interview-platform/internal/http/handlers"
	"github.com/prepwise/interview-platform/internal/livetranscript"
	"github.com/prepwise/interview-platform/internal/observability/metrics"
	"github.com/prepwise/interview-platform/internal/session"
	"github.com/prepwise/interview-platform/internal/store"
	"github.com/prepwise/interview-platform/pkg/logging"
)

func main() {
	// .env is optional; production supplies real environment variables.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting interview-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	interviewStore := store.NewInterviewStore(dynamoClient, cfg.InterviewsTable, logger)
	feedbackStore := store.NewFeedbackStore(dynamoClient, cfg.FeedbackTable, logger)
	userStore := store.NewUserStore(dynamoClient, cfg.UsersTable, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sessionMetrics := metrics.NewSessionMetrics(registry)
	feedbackMetrics := metrics.NewFeedbackMetrics(registry)

	var dispatcher session.FeedbackDispatcher
	if cfg.GeminiAPIKey != "" {
		generator, err := feedback.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModelID, logger)
		if err != nil {
			logger.Error("failed to create gemini generator", "error", err)
			os.Exit(1)
		}
		defer generator.Close()
		dispatcher = feedback.NewPipeline(generator, feedbackStore, logger, feedbackMetrics)
	} else {
		logger.Warn("GEMINI_API_KEY not set; sessions will complete without feedback")
	}

	var mirror session.TranscriptMirror
	if cfg.TranscriptMirror {
		redisOpts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		mirror = livetranscript.NewMirror(redisClient, cfg.TranscriptMirrorTTL, nil)
	}

	sessionHandler := handlers.NewSessionHandler(handlers.SessionHandlerConfig{
		Gateways: func() gateway.Client {
			return gateway.NewVapiClient(cfg.VapiPublicKey, cfg.VapiBaseURL, logger)
		},
		Feedback:        dispatcher,
		Mirror:          mirror,
		Metrics:         sessionMetrics,
		Users:           userStore,
		Interviews:      interviewStore,
		Logger:          logger,
		PublicKey:       cfg.VapiPublicKey,
		WorkflowID:      cfg.VapiWorkflowID,
		AssistantID:     cfg.VapiAssistantID,
		CompletionDelay: cfg.CompletionDelay,
	})
	interviewHandler := handlers.NewInterviewHandler(interviewStore, feedbackStore, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Interviews:         interviewHandler,
		Session:            sessionHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
