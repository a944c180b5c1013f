package server

import (
	"context"
	"sync"
)

// job is one queued unit of work.
type job[T, R any] struct {
	ctx     context.Context
	payload T
	result  chan<- R
}

// workerPool is a fixed-size goroutine pool with a bounded input queue.
// The server runs it with one worker so operations never overlap.
type workerPool[T, R any] struct {
	queue   chan job[T, R]
	process func(ctx context.Context, t T) R
	wg      sync.WaitGroup
	once    sync.Once
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity size.
func newWorkerPool[T, R any](ctx context.Context, n, size int, fn func(context.Context, T) R) *workerPool[T, R] {
	p := &workerPool[T, R]{
		queue:   make(chan job[T, R], size),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T, R]) run(ctx context.Context) {
	for {
		select {
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			// a caller that gave up before its turn is skipped
			if j.ctx.Err() != nil {
				continue
			}
			r := p.process(j.ctx, j.payload)
			if j.result != nil {
				j.result <- r
			}
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues a job without blocking (returns false if full). The result
// channel must be buffered.
func (p *workerPool[T, R]) Submit(ctx context.Context, t T, result chan<- R) bool {
	select {
	case p.queue <- job[T, R]{ctx: ctx, payload: t, result: result}:
		return true
	default:
		return false
	}
}

// Drain closes the queue and waits for the workers to finish.
func (p *workerPool[T, R]) Drain() {
	p.once.Do(func() { close(p.queue) })
	p.wg.Wait()
}

// QueueLen returns how many jobs are currently queued.
func (p *workerPool[T, R]) QueueLen() int { return len(p.queue) }

// QueueCap returns the total queue capacity.
func (p *workerPool[T, R]) QueueCap() int { return cap(p.queue) }
