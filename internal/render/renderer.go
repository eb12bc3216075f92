package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/errgroup"

	"github.com/equitylist/safe-report-service/internal/report"
)

// ErrRender wraps every page load/rasterize failure. A single page failing
// fails the whole batch and cancels its sibling renders.
var ErrRender = errors.New("render: report render failed")

// templateFiles are the three fixed report templates, in output page order.
var templateFiles = [...]string{"summary.html", "ownership.html", "terms.html"}

// PrintToPDF takes paper sizes in inches; 1920×1080 px at 96 dpi.
const (
	pageWidthIn  = 20.0
	pageHeightIn = 11.25
)

// ReportRenderer is the interface the HTTP layer and the delivery worker
// consume. Tests substitute a stub that returns canned page buffers.
type ReportRenderer interface {
	Render(ctx context.Context, p report.Payload) ([][]byte, error)
}

// Renderer renders the three templates against the shared Surface.
type Renderer struct {
	surface      *Surface
	templatesDir string
	settle       time.Duration
	logger       *slog.Logger
}

// NewRenderer constructs a Renderer. settle is the fixed wait after invoking
// the page's sync routine — chart drawing is asynchronous with no completion
// signal, so the renderer gives it a tuned head start rather than polling.
func NewRenderer(surface *Surface, templatesDir string, settle time.Duration, logger *slog.Logger) *Renderer {
	return &Renderer{
		surface:      surface,
		templatesDir: templatesDir,
		settle:       settle,
		logger:       logger,
	}
}

// pageGlobal is the value injected as window.reportData. The raw payload
// fields are flattened at the top level (what the templates' syncReport
// already reads); the recomputed figures ride along under "derived".
type pageGlobal struct {
	report.Payload
	Derived report.Derived `json:"derived"`
}

// Render produces one PDF buffer per template, in template order. The three
// pages render concurrently in separate tabs of the shared browser.
func (r *Renderer) Render(ctx context.Context, p report.Payload) ([][]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	if p.Timestamp == "" {
		p.Timestamp = time.Now().UTC().Format("2006-01-02 15:04 MST")
	}

	browserCtx, err := r.surface.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	script, err := injectScript(pageGlobal{Payload: p, Derived: report.Derive(p)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	start := time.Now()
	bufs := make([][]byte, len(templateFiles))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range templateFiles {
		g.Go(func() error {
			buf, err := r.renderPage(gctx, browserCtx, name, script)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrRender, name, err)
			}
			bufs[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("render: report rendered",
		"round", p.RoundName,
		"pages", len(bufs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return bufs, nil
}

// renderPage opens a fresh tab, navigates to the template, injects the
// payload, triggers the in-page sync routine, waits the settle delay, and
// captures the fixed-size PDF snapshot.
func (r *Renderer) renderPage(ctx context.Context, browserCtx context.Context, name, script string) ([]byte, error) {
	absDir, err := filepath.Abs(r.templatesDir)
	if err != nil {
		return nil, err
	}
	url := "file://" + filepath.ToSlash(filepath.Join(absDir, name))

	// Tabs derive from the browser context, not the request context, so the
	// request context is bridged manually: a sibling failure or caller
	// timeout closes the tab mid-run.
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-done:
		}
	}()

	var buf []byte
	err = chromedp.Run(tabCtx,
		network.SetCacheDisabled(true),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(script, nil),
		chromedp.Sleep(r.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			b, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(pageWidthIn).
				WithPaperHeight(pageHeightIn).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				Do(ctx)
			if err != nil {
				return err
			}
			buf = b
			return nil
		}),
	)
	if err != nil {
		// Prefer the caller's error when it caused the tab to close.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	r.logger.Debug("render: page captured", "template", name, "bytes", len(buf))
	return buf, nil
}

// injectScript serializes the page global and appends the call into the
// template's own synchronization entry point. Injection is per-page — no
// shared companion file exists, so concurrent requests cannot race on it.
func injectScript(g pageGlobal) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"window.reportData = %s; if (typeof syncReport === 'function') { syncReport(); }",
		data,
	), nil
}
