// Package render turns a report payload into the three template page PDFs
// using a headless Chromium instance. The browser is a process-wide shared
// resource owned by Surface; renderers open isolated tabs against it and
// rely on Chromium's page isolation rather than explicit locking.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
)

// ErrSurface wraps every browser acquisition failure. Launch failure is
// fatal for the request — there is no retry.
var ErrSurface = errors.New("render: browser surface unavailable")

// Surface is the lifecycle-managed handle around the shared browser. It is
// lazily launched on first Acquire and relaunched whenever the previous
// instance has disconnected (its context reports an error). All state
// transitions happen under the mutex; the returned browser context is safe
// to open tabs against concurrently.
type Surface struct {
	execPath string
	logger   *slog.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSurface creates an unlaunched Surface. execPath overrides the browser
// binary location; empty means chromedp's default lookup.
func NewSurface(execPath string, logger *slog.Logger) *Surface {
	return &Surface{execPath: execPath, logger: logger}
}

// Acquire returns a healthy browser context, launching or relaunching the
// browser as needed.
func (s *Surface) Acquire(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCtx != nil {
		if s.browserCtx.Err() == nil {
			return s.browserCtx, nil
		}
		// The browser died or was closed out from under us. Tear down the
		// old contexts and fall through to a fresh launch.
		s.logger.Warn("render: browser disconnected, relaunching")
		s.teardownLocked()
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrSurface, ctx.Err())
	default:
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("allow-file-access-from-files", true),
		chromedp.WindowSize(1920, 1080),
	)
	if s.execPath != "" {
		opts = append(opts, chromedp.ExecPath(s.execPath))
	}

	// The allocator hangs off context.Background() on purpose: the surface
	// outlives the request that happened to trigger the launch.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser process now, so a bad binary
	// path or a broken environment fails here instead of mid-render.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: launch: %v", ErrSurface, err)
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.logger.Info("render: browser launched")
	return browserCtx, nil
}

// Close shuts the browser down. Safe to call multiple times and on a
// never-launched surface.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

func (s *Surface) teardownLocked() {
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.browserCtx = nil
}
