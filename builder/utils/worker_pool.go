package utils

import (
	"context"
	"runtime"
	"sync"
)

const (
	MaxWorkers       = 32
	WorkerBufferSize = 4
)

// WorkerPool runs handler over submitted tasks with a fixed number of
// goroutines. Once ctx is cancelled, pending tasks are dropped.
type WorkerPool[T any] struct {
	workers   int
	ctx       context.Context
	wg        sync.WaitGroup
	taskQueue chan T
	handler   func(context.Context, T)
}

func NewWorkerPool[T any](ctx context.Context, workers int, handler func(context.Context, T)) *WorkerPool[T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &WorkerPool[T]{
		workers:   workers,
		ctx:       ctx,
		taskQueue: make(chan T, workers*WorkerBufferSize),
		handler:   handler,
	}
}

// Workers reports the effective pool size after clamping.
func (p *WorkerPool[T]) Workers() int {
	return p.workers
}

func (p *WorkerPool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool[T]) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			// A task dequeued after cancellation is dropped, not run.
			if p.ctx.Err() != nil {
				return
			}
			p.handler(p.ctx, task)
		}
	}
}

// Submit queues a task. It returns false when the pool context is done and
// the task was not accepted.
func (p *WorkerPool[T]) Submit(task T) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	}
}

func (p *WorkerPool[T]) Stop() {
	close(p.taskQueue)
	p.wg.Wait()
}
