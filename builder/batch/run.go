package batch

import (
	"context"
	"errors"

	"github.com/pustelto/sitepipe/builder/utils"
)

// Options bounds a batch run.
type Options struct {
	// Concurrency is the number of items processed at once. Values below 1
	// mean sequential.
	Concurrency int
	// FailFast stops scheduling new items after the first failure.
	FailFast bool
	// Kind classifies failures that do not carry their own kind.
	Kind Kind
}

type outcome struct {
	done bool
	err  error
}

type task[T any] struct {
	index int
	item  T
}

// Run applies fn to every item on a bounded worker pool and records the
// outcome of each in a report. Items are reported in input order regardless
// of completion order. Items never started, because ctx was cancelled or an
// earlier item failed under FailFast, are recorded as skipped.
func Run[T any](ctx context.Context, name string, items []T, opts Options, key func(T) string, fn func(context.Context, T) error) *Report {
	report := NewReport(name)
	if len(items) == 0 {
		return report
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	kind := opts.Kind
	if kind == KindUnknown {
		kind = KindExternalProcess
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]outcome, len(items))
	pool := utils.NewWorkerPool(runCtx, workers, func(taskCtx context.Context, t task[T]) {
		err := fn(taskCtx, t.item)
		// Each index is written by exactly one worker; Stop orders the reads.
		outcomes[t.index] = outcome{done: true, err: err}
		if err != nil && opts.FailFast && !isSkip(err) {
			cancel()
		}
	})
	pool.Start()
	for i, item := range items {
		if !pool.Submit(task[T]{index: i, item: item}) {
			break
		}
	}
	pool.Stop()

	aborted := "cancelled"
	if ctx.Err() == nil {
		aborted = "aborted after earlier failure"
	}
	for i, item := range items {
		id := key(item)
		o := outcomes[i]
		switch {
		case !o.done:
			report.AddSkipped(id, aborted)
		case o.err == nil:
			report.AddProcessed(id)
		case isSkip(o.err):
			var s *SkipError
			errors.As(o.err, &s)
			report.AddSkipped(id, s.Reason)
		default:
			report.AddFailure(id, kind, o.err)
		}
	}
	return report
}

func isSkip(err error) bool {
	var s *SkipError
	return errors.As(err, &s)
}
