package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
	"github.com/promptping-ai/pull-request-ping/internal/config"
	"github.com/promptping-ai/pull-request-ping/internal/discovery"
	"github.com/promptping-ai/pull-request-ping/internal/provider"
	"github.com/promptping-ai/pull-request-ping/internal/provider/azure"
	"github.com/promptping-ai/pull-request-ping/internal/provider/github"
	"github.com/promptping-ai/pull-request-ping/internal/provider/gitlab"
	"github.com/promptping-ai/pull-request-ping/internal/store"
)

// pollTrigger is a channel that signals the ingestion loop to run an
// immediate cycle. Used by the API server when a client requests a poll.
var pollTrigger = make(chan struct{}, 1)

// TriggerPoll sends a non-blocking signal to the ingestion loop to poll immediately.
func TriggerPoll() {
	select {
	case pollTrigger <- struct{}{}:
		slog.Debug("poll trigger sent")
	default:
		// Already triggered, don't block.
	}
}

// RequestPoll asks a running daemon on the given port for an immediate
// ingestion cycle.
func RequestPoll(ctx context.Context, port int) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/poll", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reaching daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return nil
}

// serverStartTime records when the server started for uptime calculation.
var serverStartTime time.Time

// NewRegistry builds the provider registry in priority order. Registration
// order doubles as the fallback probe order when no remote matches.
func NewRegistry(cfg *config.Config) *provider.Registry {
	timeout := cfg.Providers.ParseCommandTimeout()

	reg := provider.NewRegistry()
	reg.Register(github.NewBackend(timeout))
	reg.Register(gitlab.NewBackend(timeout))
	reg.Register(azure.NewBackend(timeout))
	return reg
}

// RunServer opens the store, starts the ingestion loop, and serves the HTTP
// API until the context is cancelled.
func RunServer(ctx context.Context, port int, cfg *config.Config) error {
	serverStartTime = time.Now()

	db, err := store.NewDB(config.ExpandPath(cfg.Storage.Path))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()
	st := store.NewStore(db)

	registry := NewRegistry(cfg)
	scanner := discovery.NewScanner(cfg.Discovery.Roots, cliexec.NewRunner("git", cfg.Providers.ParseCommandTimeout()))
	notifier := NewNotifier(st, cfg.Notify)
	daily := NewDailyFetcher(st, cfg.Daily.URL)
	ingester := NewIngester(cfg, st, registry, scanner, notifier, daily)

	mux := http.NewServeMux()
	api := &apiServer{store: st}
	api.registerRoutes(mux)

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var wg sync.WaitGroup

	// Start the ingestion loop in background.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ingester.RunLoop(ctx); err != nil {
			slog.Error("ingestion loop error", "error", err)
		}
	}()

	// Shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("starting HTTP server", "addr", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	// Wait for the ingestion loop to finish.
	wg.Wait()
	return nil
}
