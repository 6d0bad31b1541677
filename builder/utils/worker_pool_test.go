package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
)

func TestWorkerPoolProcessesAllTasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	var sum atomic.Int64
	pool := NewWorkerPool(context.Background(), 4, func(_ context.Context, n int) {
		sum.Add(int64(n))
	})
	pool.Start()
	for i := 1; i <= 100; i++ {
		if !pool.Submit(i) {
			t.Fatalf("Submit(%d) rejected", i)
		}
	}
	pool.Stop()

	if got := sum.Load(); got != 5050 {
		t.Errorf("sum = %d, want 5050", got)
	}
}

func TestWorkerPoolClampsWorkers(t *testing.T) {
	p := NewWorkerPool(context.Background(), 1000, func(context.Context, int) {})
	if p.Workers() != MaxWorkers {
		t.Errorf("Workers() = %d, want %d", p.Workers(), MaxWorkers)
	}
	p = NewWorkerPool(context.Background(), 0, func(context.Context, int) {})
	if p.Workers() < 1 {
		t.Errorf("Workers() = %d, want >= 1", p.Workers())
	}
}

func TestWorkerPoolCancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewWorkerPool(ctx, 2, func(context.Context, int) {})
	pool.Start()
	if pool.Submit(1) {
		t.Error("Submit should be rejected after cancellation")
	}
	pool.Stop()
}
