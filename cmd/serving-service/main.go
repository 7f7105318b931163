package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/urisense/platform/pkg/common/config"
	"github.com/urisense/platform/pkg/common/database"
	"github.com/urisense/platform/pkg/common/kafka"
	"github.com/urisense/platform/pkg/common/logger"
	"github.com/urisense/platform/pkg/dlp"
	"github.com/urisense/platform/pkg/gateway/middleware"
	"github.com/urisense/platform/pkg/normalizer"
	"github.com/urisense/platform/pkg/observability/metrics"
	"github.com/urisense/platform/pkg/serving"
	"github.com/urisense/platform/pkg/serving/predictor"
)

func main() {
	logger.Init()
	cfg := config.Load()

	schema, err := normalizer.LoadSchema(cfg.SchemaPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load feature schema")
	}
	policy, err := normalizer.ParsePolicy(cfg.NormalizationPolicy)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid normalization policy")
	}
	norm, err := normalizer.New(schema, policy)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build normalizer")
	}

	artifact, err := predictor.LoadArtifact(cfg.ModelPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.ModelPath).Fatal("Failed to load model artifact")
	}
	if err := artifact.Validate(norm.Schema()); err != nil {
		logger.Log.WithError(err).Fatal("Model artifact does not match feature schema")
	}
	model, err := artifact.Model()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build model")
	}
	classifier, err := predictor.NewClassifier(model, artifact.Classes)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build classifier")
	}

	rules, err := dlp.LoadRules(cfg.RedactionRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load redaction rules")
	}
	redactor, err := dlp.NewRedactor(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid redaction rules")
	}

	m := metrics.New()
	opts := serving.Options{ModelVersion: artifact.Version, Metrics: m, Redactor: redactor}
	var history serving.History

	if cfg.PostgresEnabled {
		db, err := database.OpenPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to database")
		}
		defer database.ClosePostgres(db)

		repo := serving.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate prediction log")
		}
		opts.Recorder = repo
		history = repo
	}

	if cfg.RedisEnabled {
		client, err := database.OpenRedis(context.Background(), cfg)
		if err != nil {
			logger.Log.WithError(err).Warn("Prediction cache unavailable, continuing without it")
		} else {
			defer client.Close()
			opts.Cache = serving.NewRedisCache(client, cfg.PredictionCacheTTL)
		}
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaPredictionTopic)
		defer producer.Close()
		opts.Publisher = producer
	}

	service, err := serving.NewService(norm, classifier, opts)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build serving service")
	}

	router := mux.NewRouter()
	serving.NewHTTPHandler(service, serving.DescribeModel(artifact, norm), history).Register(router)

	var handler http.Handler = router
	handler = middleware.BodyLimit(cfg.MaxRequestBody)(handler)
	handler = middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)(handler)
	handler = middleware.CORS(cfg.CORSAllowedOrigin)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":          cfg.ServerHost,
			"port":          cfg.ServerPort,
			"model":         artifact.Name,
			"model_version": artifact.Version,
			"algorithm":     artifact.Algorithm,
			"policy":        policy,
		}).Info("Serving Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Serving Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Serving Service stopped")
}
