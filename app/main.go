package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safarai/intelwatch/app/api"
	"github.com/safarai/intelwatch/app/cfg"
	"github.com/safarai/intelwatch/app/database"
	"github.com/safarai/intelwatch/app/fetch"
	"github.com/safarai/intelwatch/app/notify"
	"github.com/safarai/intelwatch/app/pipeline"
	"github.com/safarai/intelwatch/app/reason"
	"github.com/safarai/intelwatch/app/retry"
	"github.com/safarai/intelwatch/app/sources"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting IntelWatch server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	store := pipeline.Store{
		Sources: database.NewSourceRepository(db),
		Items:   database.NewItemRepository(db),
		Runs:    database.NewRunRepository(db),
		Events:  database.NewEventRepository(db),
		Briefs:  database.NewBriefRepository(db),
		Logs:    database.NewLogRepository(db),
	}

	seed, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		slog.Warn("Failed to load sources file, using embedded defaults", "path", appCfg.SourcesFile, "error", err)
		seed, err = sources.Load("")
		if err != nil {
			slog.Error("Failed to load embedded sources", "error", err)
			os.Exit(1)
		}
	}
	if err := sources.SeedIfEmpty(store.Sources, seed); err != nil {
		slog.Error("Failed to seed source registry", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: time.Duration(appCfg.FetchTimeout+10) * time.Second}

	fetcher := fetch.NewHTTPFetcher(httpClient)
	reasoner := reason.NewHTTPClient(&http.Client{Timeout: 120 * time.Second})

	var notifier notify.Notifier = notify.NopNotifier{}
	if appCfg.NotifyURL != "" && len(appCfg.NotifyRecipients) > 0 {
		notifier = notify.NewHTTPNotifier(httpClient)
		slog.Info("Brief delivery enabled", "recipients", len(appCfg.NotifyRecipients))
	} else {
		slog.Info("Brief delivery disabled (NOTIFY_URL or NOTIFY_RECIPIENTS not set)")
	}

	orchestrator := pipeline.NewOrchestrator(store, fetcher, reasoner, notifier, pipeline.Options{
		WorkerCount:   appCfg.WorkerCount,
		SourceTimeout: time.Duration(appCfg.SourceTimeout) * time.Second,
		RunTimeout:    time.Duration(appCfg.RunTimeout) * time.Second,
		ReasonBudget:  appCfg.ReasonBudget,
		FetchRetry:    retry.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second},
		ReasonRetry:   retry.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second},
	})

	handler := api.NewHandler(orchestrator, store)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Let an in-flight run finish its bookkeeping before closing the
	// database.
	for orchestrator.Active() {
		select {
		case <-shutdownCtx.Done():
			slog.Warn("Shutdown deadline reached with a run still active")
			return
		case <-time.After(200 * time.Millisecond):
		}
	}

	slog.Info("Shutdown complete")
}
