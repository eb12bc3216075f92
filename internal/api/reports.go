package api

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/equitylist/safe-report-service/internal/leads"
	"github.com/equitylist/safe-report-service/internal/pdf"
	"github.com/equitylist/safe-report-service/internal/report"
)

// ─── POST /generate-pdf ──────────────────────────────────────────────────────

type generatePDFRequest struct {
	ReportData *report.Payload `json:"reportData"`

	// LeadData and ToEmail are optional: when both are present the lead is
	// captured as a side effect of the download.
	LeadData *leads.Fields `json:"leadData"`
	ToEmail  recipients    `json:"to_email"`
}

type generatePDFResponse struct {
	Success   bool   `json:"success"`
	PDFBase64 string `json:"pdfBase64"`
}

// handleGeneratePDF renders the three report templates for the supplied
// payload, merges them into one document, and returns it base64-encoded.
// Rendering is synchronous — the caller waits for the document.
func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	var req generatePDFRequest
	if !decode(w, r, &req) {
		return
	}

	if req.ReportData == nil {
		respondFail(w, http.StatusBadRequest, "Missing report data")
		return
	}

	if req.LeadData != nil && len(req.ToEmail) > 0 {
		s.recorder.Record(req.ToEmail[0], *req.LeadData)
	}

	ctx := r.Context()
	if s.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RenderTimeout)
		defer cancel()
	}

	pages, err := s.renderer.Render(ctx, *req.ReportData)
	if err != nil {
		s.respondInternalErr(w, r, "Failed to generate PDF", err)
		return
	}

	merged, err := pdf.Merge(pages)
	if err != nil {
		s.respondInternalErr(w, r, "Failed to generate PDF", err)
		return
	}

	respond(w, http.StatusOK, generatePDFResponse{
		Success:   true,
		PDFBase64: base64.StdEncoding.EncodeToString(merged),
	})
}
