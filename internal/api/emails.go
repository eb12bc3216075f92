package api

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/equitylist/safe-report-service/internal/config"
	"github.com/equitylist/safe-report-service/internal/dispatch"
	"github.com/equitylist/safe-report-service/internal/leads"
	"github.com/equitylist/safe-report-service/internal/report"
	"github.com/equitylist/safe-report-service/internal/worker"
)

// ─── POST /send-email ────────────────────────────────────────────────────────

type sendEmailRequest struct {
	ToEmail recipients `json:"to_email"`

	// Exactly one document source is required: a pre-rendered PDF from a
	// previous /generate-pdf call, or a payload to render now.
	PDFBase64  string          `json:"pdfBase64"`
	ReportData *report.Payload `json:"reportData"`

	SummaryData *dispatch.SummaryFields `json:"summaryData"`
	LeadData    *leads.Fields           `json:"leadData"`
}

type sendEmailResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	DeliveryID string `json:"deliveryId,omitempty"`
}

// handleSendEmail delivers the report by email. In async mode (the default)
// it acknowledges immediately and the delivery runs in the background, with
// the outcome observable at GET /delivery/{id}. In sync mode the response
// carries the final result.
func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if !decode(w, r, &req) {
		return
	}

	if len(req.ToEmail) == 0 || (req.PDFBase64 == "" && req.ReportData == nil) {
		respondFail(w, http.StatusBadRequest, "Missing required data")
		return
	}

	var doc []byte
	if req.PDFBase64 != "" {
		var err error
		doc, err = base64.StdEncoding.DecodeString(req.PDFBase64)
		if err != nil {
			respondFail(w, http.StatusBadRequest, "Invalid pdfBase64")
			return
		}
	}

	job := worker.SendJob{
		To:      req.ToEmail,
		PDF:     doc,
		Payload: req.ReportData,
	}
	if req.SummaryData != nil {
		job.Summary = *req.SummaryData
	}
	if req.LeadData != nil {
		job.Lead = *req.LeadData
	}

	if s.cfg.SendMode == config.SendModeSync {
		// The request context governs the whole render+send; the worker's
		// own timeout still applies inside Run.
		if _, err := s.sender.Run(r.Context(), job); err != nil {
			s.respondInternalErr(w, r, "Failed to send email", err)
			return
		}
		respond(w, http.StatusOK, sendEmailResponse{
			Success: true,
			Message: "Your report has been sent to " + req.ToEmail[0] + ".",
		})
		return
	}

	id, err := s.enqueuer.Enqueue(r.Context(), job)
	if err != nil {
		s.respondInternalErr(w, r, "Failed to queue email", err)
		return
	}

	respond(w, http.StatusOK, sendEmailResponse{
		Success:    true,
		Message:    fmt.Sprintf("Your report is being processed and will be sent to %s momentarily.", req.ToEmail[0]),
		DeliveryID: id.String(),
	})
}

// ─── GET /delivery/{deliveryID} ──────────────────────────────────────────────

// handleGetDelivery resolves a delivery ID from an async /send-email call.
func (s *Server) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "deliveryID"))
	if err != nil {
		respondFail(w, http.StatusBadRequest, "invalid delivery id")
		return
	}

	status, ok := s.statuses.Get(id)
	if !ok {
		respondFail(w, http.StatusNotFound, "delivery not found")
		return
	}

	respond(w, http.StatusOK, status)
}
