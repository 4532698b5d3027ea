package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/ai"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/crm"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/events"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/server"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/config"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
)

const (
	version             = "1.0.0"
	eventHandlerTimeout = 30 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.LogLevel)
	mainLog := appLogger.WithService("clarity-api")

	db, err := database.NewConnection(&cfg.Database, appLogger)
	if err != nil {
		mainLog.WithError(err).Fatal("Failed to connect to database")
	}

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.CreateSchema(ctx)
		cancel()
		if err != nil {
			mainLog.WithError(err).Fatal("Failed to create schema")
		}
	}

	metrics := monitoring.NewMetricsCollector("clarity-api")

	tracer, err := monitoring.NewTracer(monitoring.TracingConfig{
		ServiceName:    "clarity-api",
		ServiceVersion: version,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		Environment:    cfg.Tracing.Environment,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		mainLog.WithError(err).Fatal("Failed to initialize tracing")
	}

	bus := events.NewBus(events.BusConfig{
		BufferSize:     cfg.Events.BufferSize,
		Workers:        cfg.Events.Workers,
		HandlerTimeout: eventHandlerTimeout,
	}, appLogger, metrics)

	if cfg.Events.AMQPURL != "" {
		sink, err := events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			// the API stays up without the broker; in-process subscribers still run
			mainLog.WithError(err).Warn("Event broker unavailable, continuing without it")
		} else {
			bus.AddSink(sink)
		}
	}

	crm.NewHubSpotSubscriber(cfg.HubSpot.BaseURL, cfg.HubSpot.AccessToken, metrics, appLogger).Register(bus)
	bus.Start()

	predictor := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, time.Duration(cfg.AI.TimeoutSeconds)*time.Second, metrics)
	if !predictor.Configured() {
		mainLog.Warn("AI service URL not set, AI endpoints will answer 503")
	}

	srv := server.New(cfg, server.Dependencies{
		DB:        db,
		Health:    db,
		Tokens:    tenant.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Audience),
		Publisher: bus,
		Predictor: predictor,
		Metrics:   metrics,
		Tracer:    tracer,
		Logger:    appLogger,
	})

	// Start the server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLog.Info("Shutting down ClarityClaim API...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Events.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		mainLog.WithError(err).Error("Failed to shutdown server gracefully")
	}

	// events published by the last requests are delivered before the pool closes
	if err := bus.Close(ctx); err != nil {
		mainLog.WithError(err).Error("Event bus did not drain")
	}

	if err := tracer.Shutdown(ctx); err != nil {
		mainLog.WithError(err).Error("Failed to flush traces")
	}

	if err := db.Close(); err != nil {
		mainLog.WithError(err).Error("Failed to close database")
	}

	mainLog.Info("ClarityClaim API stopped")
}
