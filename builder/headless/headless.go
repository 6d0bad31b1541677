// Package headless manages one lazily started headless Chrome shared by the
// critical CSS and social image steps.
package headless

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
)

// Orchestrator owns a headless Chrome instance. Tabs may be used
// concurrently; the browser itself starts once and stops once.
type Orchestrator struct {
	mu          sync.Mutex
	logger      *slog.Logger
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	opts        []chromedp.ExecAllocatorOption
}

// New creates a new Orchestrator (Chrome is started lazily on the first tab)
func New(logger *slog.Logger, extra ...chromedp.ExecAllocatorOption) *Orchestrator {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("allow-file-access-from-files", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	opts = append(opts, extra...)
	return &Orchestrator{logger: logger, opts: opts}
}

// ensureStarted lazily initializes Chrome on first use. Caller holds mu.
func (o *Orchestrator) ensureStarted() error {
	if o.started {
		return nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), o.opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Warm up the browser
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return fmt.Errorf("failed to start Chrome: %w", err)
	}

	o.allocCancel = allocCancel
	o.ctx = ctx
	o.cancel = cancel
	o.started = true
	o.logger.Info("🌐 Headless Chrome started")
	return nil
}

// NewTab opens a tab in the shared browser. The tab closes when the returned
// cancel func is called or ctx is done, whichever comes first.
func (o *Orchestrator) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	o.mu.Lock()
	if err := o.ensureStarted(); err != nil {
		o.mu.Unlock()
		return nil, nil, err
	}
	browserCtx := o.ctx
	o.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	stop := context.AfterFunc(ctx, cancel)
	return tabCtx, func() {
		stop()
		cancel()
	}, nil
}

// Started reports whether Chrome has been launched.
func (o *Orchestrator) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// Stop closes the Chrome instance. It is safe to call more than once and
// when Chrome never started.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return
	}
	o.cancel()
	o.allocCancel()
	o.started = false
	o.logger.Info("🌐 Headless Chrome stopped")
}
