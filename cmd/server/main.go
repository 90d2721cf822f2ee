// Package main is the entry point for the MeetQuorum negotiation server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dtorcivia/meetquorum/internal/calendar"
	"github.com/dtorcivia/meetquorum/internal/config"
	"github.com/dtorcivia/meetquorum/internal/database"
	"github.com/dtorcivia/meetquorum/internal/engine"
	"github.com/dtorcivia/meetquorum/internal/history"
	"github.com/dtorcivia/meetquorum/internal/intent"
	"github.com/dtorcivia/meetquorum/internal/negotiation"
	"github.com/dtorcivia/meetquorum/internal/oracle"
	"github.com/dtorcivia/meetquorum/internal/schedule"
	"github.com/dtorcivia/meetquorum/internal/server"
	"github.com/dtorcivia/meetquorum/internal/util"
	"github.com/dtorcivia/meetquorum/internal/webhook"
	"github.com/dtorcivia/meetquorum/internal/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.IncludeCaller)
	util.SetDefaultLogger(logger)

	logger.Info("Starting MeetQuorum negotiation server",
		"version", "1.0.0",
		"port", cfg.Server.Port,
	)

	db, err := database.OpenWithOptions(cfg.Database.Path, database.Options{
		WALMode:       cfg.Database.WALMode,
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logger.Info("Database initialized",
		"path", cfg.Database.Path,
		"wal_mode", cfg.Database.WALMode,
	)

	eng, err := buildEngine(cfg, db)
	if err != nil {
		return err
	}
	srv := server.New(cfg, db, eng)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			"addr", httpServer.Addr,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	cleanup := workers.NewCleanupWorker(db, &cfg.Retention)
	go cleanup.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Shutting down gracefully...")
	cancel()
	eng.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

// buildEngine wires the scheduling pipeline from configuration: calendar
// source, intent extractor, decision model, consensus engine, protocol,
// history repository and the outcome webhook.
func buildEngine(cfg *config.Config, db *database.DB) (*engine.Engine, error) {
	scorer, err := schedule.ScorerByName(cfg.Negotiation.ScoringStrategy)
	if err != nil {
		return nil, err
	}

	var source calendar.Source
	if cfg.Google.Enabled {
		source = calendar.NewGoogleSource(calendar.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			TokenDir:     cfg.Google.TokenDir,
			MaxResults:   cfg.Google.MaxResults,
		})
		util.Info("Calendar source: Google Calendar", "token_dir", cfg.Google.TokenDir)
	} else {
		source = &calendar.Static{}
		util.Info("Calendar source: none configured, all participants treated as free")
	}

	var orc oracle.Oracle
	if cfg.Oracle.Enabled {
		orc = oracle.NewClient(
			cfg.Oracle.BaseURL,
			cfg.Oracle.Model,
			cfg.Oracle.Timeout,
			cfg.Oracle.MaxRetries,
			cfg.Oracle.Temperature,
		)
		util.Info("Reasoning oracle enabled", "model", cfg.Oracle.Model, "base_url", cfg.Oracle.BaseURL)
	}

	var extractor intent.Extractor = intent.RuleExtractor{}
	if orc != nil {
		extractor = intent.NewOracleExtractor(orc, 0)
	}

	avail := schedule.NewAvailabilityEngine(
		scorer,
		cfg.Scheduling.WindowStartHour,
		cfg.Scheduling.WindowEndHour,
		cfg.Scheduling.MaxSlots,
	)
	model := negotiation.NewDecisionModel(avail, scorer, negotiation.DefaultThresholds, nil)

	consensusCfg := negotiation.DefaultConsensusConfig
	consensusCfg.MaxResults = cfg.Scheduling.MaxSlots
	consensus := negotiation.NewConsensusEngine(model, consensusCfg)

	protocol := negotiation.NewProtocol(model, consensus, orc, negotiation.ProtocolConfig{
		UrgentRetryThreshold: cfg.Negotiation.UrgentRetryThreshold,
		EscalationThreshold:  cfg.Negotiation.EscalationThreshold,
		EscalationHour:       cfg.Negotiation.EscalationHour,
		FanOut:               cfg.Negotiation.FanOut,
	})

	repo := history.NewRepository(db)
	hook := webhook.NewClient(&cfg.Webhook)

	return engine.NewEngine(cfg, source, extractor, protocol, repo, hook), nil
}
