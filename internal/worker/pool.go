// Package worker runs background ingestion off the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrPoolClosed is reported by handles for tasks submitted after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Handle tracks one submitted task. Done is closed when the task finishes;
// Err is valid after that.
type Handle struct {
	name string
	done chan struct{}
	err  error
}

func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the task's outcome. Only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

type task struct {
	fn     func(context.Context) error
	handle *Handle
}

// Pool is a fixed-size worker pool. Tasks run to completion or failure with
// no retry and no cancellation once started; the outcome is always logged.
type Pool struct {
	tasks chan task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewPool(workers int) *Pool {
	p := &Pool{tasks: make(chan task, 128)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for t := range p.tasks {
		start := time.Now()
		slog.Info("background task started", "task", t.handle.name)

		err := runTask(t.fn)

		t.handle.err = err
		close(t.handle.done)

		if err != nil {
			slog.Error("background task failed", "task", t.handle.name, "error", err, "duration", time.Since(start))
		} else {
			slog.Info("background task completed", "task", t.handle.name, "duration", time.Since(start))
		}
	}
}

// runTask executes fn detached from the submitting request: the caller does
// not wait and cannot cancel. A panicking task must not take its worker
// goroutine down with it, so panics surface as task errors.
func runTask(fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(context.Background())
}

// Submit enqueues fn and returns a handle to its completion. Submitting to
// a closed pool does not run the task; the handle reports ErrPoolClosed.
func (p *Pool) Submit(name string, fn func(context.Context) error) *Handle {
	h := &Handle{name: name, done: make(chan struct{})}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		slog.Warn("task submitted after pool close, dropping", "task", name)
		h.err = ErrPoolClosed
		close(h.done)
		return h
	}
	p.tasks <- task{fn: fn, handle: h}
	return h
}

// Close stops accepting tasks and waits for in-flight ones to finish.
// Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
