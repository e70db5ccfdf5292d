// Package main is the entry point for the Genie Slack bot.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/charotAmine/databricks-genieslack/internal/config"
	"github.com/charotAmine/databricks-genieslack/internal/genie"
	"github.com/charotAmine/databricks-genieslack/internal/service"
	slackclient "github.com/charotAmine/databricks-genieslack/internal/slack"
	"github.com/charotAmine/databricks-genieslack/pkg/logger"
	"github.com/charotAmine/databricks-genieslack/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Missing required configuration is fatal before any event handling.
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}
	log.Info("configuration OK",
		zap.String("host", cfg.DatabricksHost),
		zap.String("space_id", cfg.GenieSpaceID),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "genie-slack-bot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Initialize Genie client
	genieClient, err := genie.New(genie.Config{
		Host:         cfg.DatabricksHost,
		Token:        cfg.DatabricksToken,
		SpaceID:      cfg.GenieSpaceID,
		PollInterval: cfg.GeniePollInterval,
		MaxWait:      cfg.GenieMaxWait,
		HTTPTimeout:  cfg.GenieHTTPTimeout,
	}, log)
	if err != nil {
		log.Error("failed to create Genie client", zap.Error(err))
		os.Exit(1)
	}

	// Connect to Slack
	slackClient, err := slackclient.Connect(ctx, slackclient.Config{
		BotToken: cfg.SlackBotToken,
		AppToken: cfg.SlackAppToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to Slack", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Slack client ready", zap.String("bot_user_id", slackClient.BotUserID()))

	// Initialize the orchestrator
	tracker := service.NewTracker(cfg.TrackerMaxEntries)
	bot := service.NewBot(genieClient, slackClient, tracker, log, slackClient.BotUserID(), cfg.TableMaxRows)

	// Ops server: health, readiness, metrics
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !slackClient.IsConnected() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "Slack not connected",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("ops server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ops server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Run the Slack event loop
	runErr := make(chan error, 1)
	go func() {
		log.Info("starting Slack socket mode handler")
		runErr <- slackClient.Run(ctx, bot)
	}()

	// Wait for shutdown signal or event-loop failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down")
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			log.Error("event loop stopped", zap.Error(err))
		}
	}

	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("ops server forced to shutdown", zap.Error(err))
	}

	log.Info("stopped")
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
