// Package api implements the HTTP layer for the SAFE report service.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/equitylist/safe-report-service/internal/config"
	"github.com/equitylist/safe-report-service/internal/dispatch"
	"github.com/equitylist/safe-report-service/internal/leads"
	"github.com/equitylist/safe-report-service/internal/render"
	"github.com/equitylist/safe-report-service/internal/worker"
)

// SyncSender runs one delivery inline — the SEND_MODE=sync execution model,
// where the HTTP response carries the final outcome. *worker.Job satisfies
// it; the async path goes through worker.Enqueuer instead.
type SyncSender interface {
	Run(ctx context.Context, job worker.SendJob) (dispatch.Receipt, error)
}

// Config holds the request-handling options read at startup.
type Config struct {
	// SendMode selects the /send-email execution model.
	SendMode config.SendMode

	// RenderTimeout caps the synchronous render on /generate-pdf.
	// Zero means no ceiling beyond the client's own patience.
	RenderTimeout time.Duration

	// Env is "development" or "production".
	Env string
}

// Server holds all shared dependencies. Each handler file attaches methods
// to this type and uses only the fields it needs.
type Server struct {
	// renderer produces the three template page PDFs for a payload.
	renderer render.ReportRenderer

	// recorder captures leads on /generate-pdf (the dispatcher handles
	// capture on the send path).
	recorder leads.Recorder

	// enqueuer hands deliveries to the background worker (async mode).
	enqueuer worker.Enqueuer

	// sender runs a delivery inline (sync mode).
	sender SyncSender

	// statuses resolves delivery IDs for the status endpoint.
	statuses worker.StatusReader

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	renderer render.ReportRenderer,
	recorder leads.Recorder,
	enqueuer worker.Enqueuer,
	sender SyncSender,
	statuses worker.StatusReader,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		renderer: renderer,
		recorder: recorder,
		enqueuer: enqueuer,
		sender:   sender,
		statuses: statuses,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// The calculator frontend has always called these at the root, so the
	// root paths stay canonical; /api mirrors them for newer clients.
	mount := func(r chi.Router) {
		r.Post("/generate-pdf", s.handleGeneratePDF)
		r.Post("/send-email", s.handleSendEmail)
		r.Get("/delivery/{deliveryID}", s.handleGetDelivery)
	}
	mount(r)
	r.Route("/api", mount)

	return r
}
