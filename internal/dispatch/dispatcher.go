// Package dispatch owns the outbound delivery path: given a recipient list,
// a merged report PDF, and the summary fields, it records the lead, formats
// the transactional email, and submits it through whichever provider channel
// is configured. It never retries — a failed send surfaces to the caller
// (or, on the background path, to the delivery status store).
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/equitylist/safe-report-service/internal/email"
	"github.com/equitylist/safe-report-service/internal/leads"
)

// ErrDelivery wraps provider rejections and connectivity failures. Missing
// credentials are not wrapped — they keep their email.ErrMissingCredentials
// identity so callers can tell configuration problems from provider ones.
var ErrDelivery = errors.New("dispatch: delivery failed")

// ─── TYPES ────────────────────────────────────────────────────────────────────

// SummaryFields are the headline values interpolated into the email body.
// Missing values render as "N/A".
type SummaryFields struct {
	FirstName        string `json:"firstName"`
	FounderOwnership string `json:"founderOwnership"`
	PostMoney        string `json:"postMoney"`
	TotalRaised      string `json:"totalRaised"`
}

// Request is one delivery order.
type Request struct {
	// To is the recipient list. Every address receives the message; the
	// first one is the primary recipient used for lead capture.
	To []string

	// PDF is the merged report document to attach.
	PDF []byte

	Summary SummaryFields
	Lead    leads.Fields
}

// Receipt describes an accepted send.
type Receipt struct {
	Recipients []string
	Attachment string
	SentAt     time.Time
}

// ─── DISPATCHER ──────────────────────────────────────────────────────────────

// Dispatcher assembles and submits report emails.
type Dispatcher struct {
	sender   email.Sender
	recorder leads.Recorder
	logger   *slog.Logger

	now func() time.Time
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(sender email.Sender, recorder leads.Recorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, recorder: recorder, logger: logger, now: time.Now}
}

// Send records the lead, then builds and submits the message. The lead is
// captured before the delivery attempt on purpose: it marks intent, and is
// wanted even when the provider rejects the send.
func (d *Dispatcher) Send(ctx context.Context, req Request) (Receipt, error) {
	if len(req.To) == 0 {
		return Receipt{}, fmt.Errorf("%w: no recipient", ErrDelivery)
	}
	if len(req.PDF) == 0 {
		return Receipt{}, fmt.Errorf("%w: no document to attach", ErrDelivery)
	}

	primary := req.To[0]

	lead := req.Lead
	if lead.FirstName == "" {
		lead.FirstName = req.Summary.FirstName
	}
	d.recorder.Record(primary, lead)

	filename := fmt.Sprintf("SAFE_Equity_Report_%d.pdf", d.now().UnixMilli())
	msg := email.Message{
		To:      req.To,
		Subject: "Your EquityList SAFE Calculator Results",
		HTML:    bodyHTML(req.Summary),
		Attachment: &email.Attachment{
			Filename: filename,
			Content:  req.PDF,
		},
	}

	d.logger.Info("dispatch: sending report",
		"to", primary,
		"recipients", len(req.To),
		"attachment_bytes", len(req.PDF),
	)

	if err := d.sender.Send(ctx, msg); err != nil {
		if errors.Is(err, email.ErrMissingCredentials) {
			return Receipt{}, err
		}
		return Receipt{}, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	receipt := Receipt{Recipients: req.To, Attachment: filename, SentAt: d.now()}
	d.logger.Info("dispatch: delivered", "to", primary, "attachment", filename)
	return receipt, nil
}

// ─── MESSAGE BODY ────────────────────────────────────────────────────────────

func bodyHTML(s SummaryFields) string {
	name := s.FirstName
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf(`
<div style="font-family: sans-serif; max-width: 600px; line-height: 1.6; color: #334155;">
    <h2>Hi %s,</h2>
    <p>Thank you for using our SAFE Calculator. Please find your detailed report attached.</p>

    <div style="background: #f1f5f9; padding: 20px; border-radius: 8px; margin: 20px 0;">
        <p style="margin: 5px 0;"><strong>Founder Ownership:</strong> %s</p>
        <p style="margin: 5px 0;"><strong>Post-Money Valuation:</strong> %s</p>
        <p style="margin: 5px 0;"><strong>Total Raised:</strong> %s</p>
    </div>

    <p>If you have any questions about these results, feel free to reply to this email.</p>
    <p>Best regards,<br>The EquityList Team</p>
</div>`,
		name, orNA(s.FounderOwnership), orNA(s.PostMoney), orNA(s.TotalRaised))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
