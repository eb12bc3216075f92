package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/equitylist/safe-report-service/internal/dispatch"
	"github.com/equitylist/safe-report-service/internal/leads"
	"github.com/equitylist/safe-report-service/internal/pdf"
	"github.com/equitylist/safe-report-service/internal/render"
	"github.com/equitylist/safe-report-service/internal/report"
)

// SendJob is one background delivery order. Exactly one of PDF / Payload
// must be set: a pre-rendered document is attached as-is, a payload is
// rendered and merged first.
type SendJob struct {
	ID      uuid.UUID
	To      []string
	PDF     []byte
	Payload *report.Payload
	Summary dispatch.SummaryFields
	Lead    leads.Fields
}

// Deliverer is the slice of the dispatcher the job needs.
type Deliverer interface {
	Send(ctx context.Context, req dispatch.Request) (dispatch.Receipt, error)
}

// Job executes the render-or-reuse → merge → dispatch pipeline for a single
// delivery. Each send gets exactly one attempt — nothing in this system is
// automatically retried.
type Job struct {
	renderer  render.ReportRenderer
	deliverer Deliverer
	logger    *slog.Logger
}

// NewJob constructs a Job.
func NewJob(renderer render.ReportRenderer, deliverer Deliverer, logger *slog.Logger) *Job {
	return &Job{renderer: renderer, deliverer: deliverer, logger: logger}
}

// Run renders the report when no pre-rendered document was supplied, merges
// the pages, and hands the result to the dispatcher.
func (j *Job) Run(ctx context.Context, sj SendJob) (dispatch.Receipt, error) {
	log := j.logger.With("delivery_id", sj.ID)

	doc := sj.PDF
	if len(doc) == 0 {
		if sj.Payload == nil {
			return dispatch.Receipt{}, fmt.Errorf("job: neither document nor payload supplied")
		}
		log.Info("job: rendering report before send", "round", sj.Payload.RoundName)

		pages, err := j.renderer.Render(ctx, *sj.Payload)
		if err != nil {
			return dispatch.Receipt{}, fmt.Errorf("job: render: %w", err)
		}
		doc, err = pdf.Merge(pages)
		if err != nil {
			return dispatch.Receipt{}, fmt.Errorf("job: merge: %w", err)
		}
	}

	receipt, err := j.deliverer.Send(ctx, dispatch.Request{
		To:      sj.To,
		PDF:     doc,
		Summary: sj.Summary,
		Lead:    sj.Lead,
	})
	if err != nil {
		return dispatch.Receipt{}, fmt.Errorf("job: %w", err)
	}

	log.Info("job: delivered", "to", receipt.Recipients[0], "attachment", receipt.Attachment)
	return receipt, nil
}
