package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/equitylist/safe-report-service/internal/dispatch"
	"github.com/equitylist/safe-report-service/internal/pdf/pdftest"
	"github.com/equitylist/safe-report-service/internal/report"
	"github.com/equitylist/safe-report-service/internal/worker"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubRenderer struct {
	calls int
	err   error
}

func (r *stubRenderer) Render(_ context.Context, _ report.Payload) ([][]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return [][]byte{pdftest.SinglePage(), pdftest.SinglePage(), pdftest.SinglePage()}, nil
}

type stubDeliverer struct {
	reqs []dispatch.Request
	err  error
}

func (d *stubDeliverer) Send(_ context.Context, req dispatch.Request) (dispatch.Receipt, error) {
	if d.err != nil {
		return dispatch.Receipt{}, d.err
	}
	d.reqs = append(d.reqs, req)
	return dispatch.Receipt{Recipients: req.To, Attachment: "SAFE_Equity_Report_1.pdf", SentAt: time.Now()}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// waitForState polls the status store until the delivery leaves the queued/
// processing states or the deadline passes.
func waitForState(t *testing.T, statuses *worker.StatusStore, id uuid.UUID) worker.Status {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			st, _ := statuses.Get(id)
			t.Fatalf("delivery %s stuck in state %q", id, st.State)
			return st
		case <-time.After(10 * time.Millisecond):
			st, ok := statuses.Get(id)
			if ok && st.State != worker.StateQueued && st.State != worker.StateProcessing {
				return st
			}
		}
	}
}

func startRunner(t *testing.T, renderer *stubRenderer, deliverer *stubDeliverer) (*worker.Runner, *worker.StatusStore) {
	t.Helper()
	statuses := worker.NewStatusStore()
	job := worker.NewJob(renderer, deliverer, testLogger())
	runner := worker.NewRunner(job, statuses, worker.RunnerConfig{Workers: 1, JobTimeout: time.Second}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go runner.Start(ctx)
	return runner, statuses
}

// ─── TESTS ────────────────────────────────────────────────────────────────────

func TestEnqueue_RegistersQueuedStatus(t *testing.T) {
	statuses := worker.NewStatusStore()
	job := worker.NewJob(&stubRenderer{}, &stubDeliverer{}, testLogger())
	runner := worker.NewRunner(job, statuses, worker.DefaultRunnerConfig(), testLogger())
	// Not started — the job must sit in the queue with a visible status.

	id, err := runner.Enqueue(context.Background(), worker.SendJob{
		To:  []string{"a@b.com"},
		PDF: pdftest.SinglePage(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, ok := statuses.Get(id)
	if !ok {
		t.Fatal("enqueued delivery has no status entry")
	}
	if st.State != worker.StateQueued || st.Recipient != "a@b.com" {
		t.Errorf("status = %+v, want queued for a@b.com", st)
	}
}

func TestRunner_PreRenderedDocumentSkipsRenderer(t *testing.T) {
	renderer := &stubRenderer{}
	deliverer := &stubDeliverer{}
	runner, statuses := startRunner(t, renderer, deliverer)

	id, err := runner.Enqueue(context.Background(), worker.SendJob{
		To:  []string{"a@b.com"},
		PDF: pdftest.SinglePage(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := waitForState(t, statuses, id)
	if st.State != worker.StateSent {
		t.Fatalf("state = %q (%s), want sent", st.State, st.Error)
	}
	if renderer.calls != 0 {
		t.Errorf("renderer called %d times for a pre-rendered document", renderer.calls)
	}
}

func TestRunner_RendersWhenOnlyPayloadGiven(t *testing.T) {
	renderer := &stubRenderer{}
	deliverer := &stubDeliverer{}
	runner, statuses := startRunner(t, renderer, deliverer)

	payload := report.Payload{
		RoundName: "Series A",
		Rows:      []report.Row{{Name: "Founder 1", PreShares: 1, PostShares: 1, IsFounder: true}},
	}
	id, err := runner.Enqueue(context.Background(), worker.SendJob{
		To:      []string{"a@b.com"},
		Payload: &payload,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := waitForState(t, statuses, id)
	if st.State != worker.StateSent {
		t.Fatalf("state = %q (%s), want sent", st.State, st.Error)
	}
	if renderer.calls != 1 {
		t.Errorf("renderer called %d times, want 1", renderer.calls)
	}
	if len(deliverer.reqs) != 1 || len(deliverer.reqs[0].PDF) == 0 {
		t.Error("deliverer did not receive the merged document")
	}
}

func TestRunner_FailureIsTerminalAndVisible(t *testing.T) {
	deliverer := &stubDeliverer{err: errors.New("provider rejected the send")}
	runner, statuses := startRunner(t, &stubRenderer{}, deliverer)

	id, _ := runner.Enqueue(context.Background(), worker.SendJob{
		To:  []string{"a@b.com"},
		PDF: pdftest.SinglePage(),
	})

	st := waitForState(t, statuses, id)
	if st.State != worker.StateFailed {
		t.Fatalf("state = %q, want failed", st.State)
	}
	if !strings.Contains(st.Error, "provider rejected the send") {
		t.Errorf("status error %q should carry the failure message", st.Error)
	}
}

func TestJob_RejectsEmptyOrder(t *testing.T) {
	job := worker.NewJob(&stubRenderer{}, &stubDeliverer{}, testLogger())
	_, err := job.Run(context.Background(), worker.SendJob{To: []string{"a@b.com"}})
	if err == nil {
		t.Fatal("job with neither document nor payload must fail")
	}
}
