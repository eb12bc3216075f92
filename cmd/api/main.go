package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/equitylist/safe-report-service/internal/api"
	"github.com/equitylist/safe-report-service/internal/config"
	"github.com/equitylist/safe-report-service/internal/dispatch"
	"github.com/equitylist/safe-report-service/internal/email"
	"github.com/equitylist/safe-report-service/internal/leads"
	"github.com/equitylist/safe-report-service/internal/render"
	"github.com/equitylist/safe-report-service/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded",
		"env", cfg.Env,
		"port", cfg.Port,
		"emailProvider", cfg.EmailProvider,
		"sendMode", cfg.SendMode,
	)

	// ── Lead store ────────────────────────────────────────────────────────────
	store := leads.NewStore(cfg.LeadsFile, logger)

	// ── Browser + renderer ────────────────────────────────────────────────────
	// The browser launches lazily on first render, so a misconfigured
	// CHROME_PATH surfaces on the first request rather than blocking startup.
	surface := render.NewSurface(cfg.ChromePath, logger)
	defer surface.Close()

	renderer := render.NewRenderer(surface, cfg.TemplatesDir, cfg.SettleDelay, logger)

	// ── Email ─────────────────────────────────────────────────────────────────
	// Missing credentials are not fatal here: /generate-pdf works without
	// email, and /send-email reports the config error per delivery.
	var mailer email.Sender
	switch cfg.EmailProvider {
	case config.ProviderResend:
		mailer = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName)
		logger.Info("email: using Resend")
	default:
		mailer = email.NewSMTPClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		logger.Info("email: using SMTP", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	}

	// ── Dispatcher + worker ───────────────────────────────────────────────────
	dispatcher := dispatch.NewDispatcher(mailer, store, logger)

	statuses := worker.NewStatusStore()
	job := worker.NewJob(renderer, dispatcher, logger)
	runner := worker.NewRunner(job, statuses, worker.RunnerConfig{
		Workers:    cfg.WorkerCount,
		JobTimeout: cfg.JobTimeout,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		renderer,
		store,
		runner, // *Runner satisfies worker.Enqueuer
		job,    // *Job satisfies api.SyncSender
		statuses,
		api.Config{
			SendMode:      cfg.SendMode,
			RenderTimeout: cfg.RenderTimeout,
			Env:           cfg.Env,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // rendering three pages can take a while on first hit
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Worker and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the worker pool in a background goroutine. It blocks until ctx is done.
	go runner.Start(ctx)

	// Start the HTTP server in a background goroutine.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// The worker goroutine exits when ctx is cancelled (already done), and the
	// deferred surface.Close tears the browser down last.
	logger.Info("shutdown complete")
	return nil
}
