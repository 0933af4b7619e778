// Package worker runs section warm-up tasks taken off the queue.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/marquee/internal/adapters/mq/queue"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	defaultTaskTimeout    = 60 * time.Second
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Task is what workers read off the queue.
type Task = queue.Task

// Processor handles one task.
type Processor interface {
	Process(ctx context.Context, t Task) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, t Task) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, t Task) error { return f(ctx, t) }

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Worker processes tasks from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current task.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	processor   Processor
	name        string
	taskTimeout time.Duration
	processed   *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		processor:   p,
		name:        "worker",
		taskTimeout: defaultTaskTimeout,
		processed:   &atomic.Int64{},
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			if err := w.process(ctx, t); err != nil {
				w.logger.Error(ctx, "error processing warm-up", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, t Task) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("warm-up %s panicked: %v", t.Signature(), r)
		}
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordWorkerError()
		}
		w.processed.Add(1)
	}()

	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	if err := w.processor.Process(taskCtx, t); err != nil {
		return fmt.Errorf("warm-up %s: %w", t.Signature(), err)
	}
	w.logger.Debug(ctx, "warm-up complete",
		logger.String("section", t.Signature()),
		logger.Duration("took", time.Since(start)))
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, q Queue, p Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, p, wopts...)
		w.processed = &pool.processed
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many tasks the pool has handled.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Stop signals every worker and waits briefly for each.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue, then stops the workers within ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
