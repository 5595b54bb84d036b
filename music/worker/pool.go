package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/liuran001/MusicPreview-Go/music"
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrPoolBusy   = errors.New("worker pool busy")
)

// Pool runs catalog and audio calls on a fixed set of goroutines.
type Pool struct {
	size   int
	queue  chan func()
	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	logger atomic.Pointer[music.Logger]
}

// New starts size workers (at least one) behind a queue of eight slots per worker.
func New(size int) *Pool {
	size = max(size, 1)
	p := &Pool{
		size:  size,
		queue: make(chan func(), size*8),
		done:  make(chan struct{}),
	}
	p.SetLogger(nil)

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

// SetLogger sets the logger that receives recovered task panics.
func (p *Pool) SetLogger(logger music.Logger) {
	if logger == nil {
		logger = music.NopLogger{}
	}
	p.logger.Store(&logger)
}

func (p *Pool) work() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			(*p.logger.Load()).Error("worker task panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	task()
}

// Submit queues task without blocking. It returns ErrPoolBusy when the queue is full.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return ErrPoolBusy
	}
}

// Shutdown stops accepting work and waits for queued tasks until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.StopNow()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopNow stops accepting work without waiting. Queued tasks still run.
func (p *Pool) StopNow() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
	close(p.queue)
}

// Size returns the worker count.
func (p *Pool) Size() int {
	return p.size
}
