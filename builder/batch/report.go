package batch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// SkippedItem records an item that was not processed and why.
type SkippedItem struct {
	Item   string
	Reason string
}

// Report is the outcome of one batch operation. It is safe for concurrent use.
type Report struct {
	Name string

	mu        sync.Mutex
	processed []string
	skipped   []SkippedItem
	failures  []*Error
}

func NewReport(name string) *Report {
	return &Report{Name: name}
}

func (r *Report) AddProcessed(item string) {
	r.mu.Lock()
	r.processed = append(r.processed, item)
	r.mu.Unlock()
}

func (r *Report) AddSkipped(item, reason string) {
	r.mu.Lock()
	r.skipped = append(r.skipped, SkippedItem{Item: item, Reason: reason})
	r.mu.Unlock()
}

// AddFailure records err against item, classifying it with kind unless err
// already carries one.
func (r *Report) AddFailure(item string, kind Kind, err error) {
	var be *Error
	if !errors.As(Wrap(item, kind, err), &be) {
		return
	}
	r.mu.Lock()
	r.failures = append(r.failures, be)
	r.mu.Unlock()
}

func (r *Report) Processed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.processed...)
}

func (r *Report) Skipped() []SkippedItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SkippedItem(nil), r.skipped...)
}

func (r *Report) Failures() []*Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Error(nil), r.failures...)
}

func (r *Report) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures) > 0
}

// Err joins all failures, or returns nil when there are none.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.failures))
	for i, f := range r.failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Merge appends other's entries to r.
func (r *Report) Merge(other *Report) {
	if other == nil || other == r {
		return
	}
	other.mu.Lock()
	processed := append([]string(nil), other.processed...)
	skipped := append([]SkippedItem(nil), other.skipped...)
	failures := append([]*Error(nil), other.failures...)
	other.mu.Unlock()

	r.mu.Lock()
	r.processed = append(r.processed, processed...)
	r.skipped = append(r.skipped, skipped...)
	r.failures = append(r.failures, failures...)
	r.mu.Unlock()
}

func (r *Report) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("%s: %d processed, %d skipped, %d failed", r.Name, len(r.processed), len(r.skipped), len(r.failures))
}

// Log writes one line per skip and failure plus a summary.
func (r *Report) Log(logger *slog.Logger) {
	for _, s := range r.Skipped() {
		logger.Info("Skipped", "op", r.Name, "item", s.Item, "reason", s.Reason)
	}
	for _, f := range r.Failures() {
		logger.Error("Failed", "op", r.Name, "item", f.Item, "kind", f.Kind.String(), "error", f.Err)
	}
	r.mu.Lock()
	p, s, f := len(r.processed), len(r.skipped), len(r.failures)
	r.mu.Unlock()
	logger.Info("Batch finished", "op", r.Name, "processed", p, "skipped", s, "failed", f)
}
