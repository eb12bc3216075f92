package dispatch_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/equitylist/safe-report-service/internal/dispatch"
	"github.com/equitylist/safe-report-service/internal/email"
	"github.com/equitylist/safe-report-service/internal/leads"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubSender struct {
	sent []email.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, m email.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

type stubRecorder struct {
	emails []string
	fields []leads.Fields
}

func (r *stubRecorder) Record(e string, f leads.Fields) {
	r.emails = append(r.emails, e)
	r.fields = append(r.fields, f)
}

func testDispatcher(sender *stubSender, recorder *stubRecorder) *dispatch.Dispatcher {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return dispatch.NewDispatcher(sender, recorder, logger)
}

func validRequest() dispatch.Request {
	return dispatch.Request{
		To:  []string{"a@b.com", "c@d.com"},
		PDF: []byte("%PDF-1.4 merged"),
		Summary: dispatch.SummaryFields{
			FirstName:   "Ada",
			PostMoney:   "$12,000,000",
			TotalRaised: "$2,500,000",
		},
	}
}

// ─── TESTS ────────────────────────────────────────────────────────────────────

func TestSend_DeliversToFullRecipientList(t *testing.T) {
	sender := &stubSender{}
	recorder := &stubRecorder{}

	receipt, err := testDispatcher(sender, recorder).Send(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if len(msg.To) != 2 {
		t.Errorf("message went to %d recipients, want the full list of 2", len(msg.To))
	}
	if msg.Attachment == nil || !strings.HasPrefix(msg.Attachment.Filename, "SAFE_Equity_Report_") {
		t.Errorf("attachment missing or misnamed: %+v", msg.Attachment)
	}
	if len(receipt.Recipients) != 2 {
		t.Errorf("receipt lists %d recipients, want 2", len(receipt.Recipients))
	}
}

func TestSend_RecordsLeadBeforeDeliveryAttempt(t *testing.T) {
	// Provider failure: the lead must already be captured.
	sender := &stubSender{err: errors.New("connection refused")}
	recorder := &stubRecorder{}

	_, err := testDispatcher(sender, recorder).Send(context.Background(), validRequest())
	if !errors.Is(err, dispatch.ErrDelivery) {
		t.Fatalf("got %v, want ErrDelivery", err)
	}

	if len(recorder.emails) != 1 || recorder.emails[0] != "a@b.com" {
		t.Errorf("lead capture = %v, want the primary recipient a@b.com", recorder.emails)
	}
	if recorder.fields[0].FirstName != "Ada" {
		t.Errorf("lead first name = %q, want Ada from summary fields", recorder.fields[0].FirstName)
	}
}

func TestSend_MissingCredentialsKeepIdentity(t *testing.T) {
	sender := &stubSender{err: email.ErrMissingCredentials}
	recorder := &stubRecorder{}

	_, err := testDispatcher(sender, recorder).Send(context.Background(), validRequest())
	if !errors.Is(err, email.ErrMissingCredentials) {
		t.Fatalf("got %v, want ErrMissingCredentials to pass through", err)
	}
	if errors.Is(err, dispatch.ErrDelivery) {
		t.Error("configuration errors must not be classified as delivery failures")
	}
	// Lead is still recorded — capture happens before the provider call.
	if len(recorder.emails) != 1 {
		t.Errorf("got %d lead records, want 1", len(recorder.emails))
	}
}

func TestSend_BodyFallsBackToNA(t *testing.T) {
	sender := &stubSender{}
	req := validRequest()
	req.Summary = dispatch.SummaryFields{}

	_, err := testDispatcher(sender, &stubRecorder{}).Send(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := sender.sent[0].HTML
	if !strings.Contains(body, "Hi User,") {
		t.Error("missing first name should greet 'User'")
	}
	if strings.Count(body, "N/A") != 3 {
		t.Errorf("body should fall back to N/A for the three summary fields:\n%s", body)
	}
}

func TestSend_RejectsEmptyRequest(t *testing.T) {
	d := testDispatcher(&stubSender{}, &stubRecorder{})

	if _, err := d.Send(context.Background(), dispatch.Request{PDF: []byte("x")}); !errors.Is(err, dispatch.ErrDelivery) {
		t.Errorf("no recipient: got %v, want ErrDelivery", err)
	}
	if _, err := d.Send(context.Background(), dispatch.Request{To: []string{"a@b.com"}}); !errors.Is(err, dispatch.ErrDelivery) {
		t.Errorf("no document: got %v, want ErrDelivery", err)
	}
}
