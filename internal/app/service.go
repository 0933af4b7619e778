// Package service wires the section pipeline with the warm-up queue and
// workers and exposes what the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/marquee/internal/adapters/mq/queue"
	workerpool "github.com/okian/marquee/internal/adapters/mq/worker"
	"github.com/okian/marquee/internal/domain/dedupe"
	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount = 2
	defaultQueueSize   = 64
	defaultTaskTimeout = 2 * time.Minute
)

// ErrNotStarted is returned by Warm before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

// GenreLister lists catalog genres.
type GenreLister interface {
	List(ctx context.Context) ([]model.Genre, error)
}

// BreakerReporter reports the circuit breaker state of one upstream.
type BreakerReporter interface {
	Provider() string
	BreakerState() string
}

// Service implements the API dependencies for the section server.
type Service struct {
	mu sync.RWMutex

	pipeline  *Pipeline
	genres    GenreLister
	upstreams []BreakerReporter

	tracker    dedupe.Tracker
	warmQueue  eventqueue.Queue
	workerPool *workerpool.Pool
	cancelRun  context.CancelFunc

	workerCount int
	queueSize   int
	taskTimeout time.Duration

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of warm-up workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the warm-up queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTaskTimeout bounds a single warm-up.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.taskTimeout = d
		}
	}
}

// WithGenres sets the genre list source for the /genres endpoint.
func WithGenres(g GenreLister) Option {
	return func(s *Service) {
		s.genres = g
	}
}

// WithUpstreams registers upstream clients whose breaker state is reported
// in stats.
func WithUpstreams(u ...BreakerReporter) Option {
	return func(s *Service) {
		s.upstreams = append(s.upstreams, u...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service around pipeline.
func New(pipeline *Pipeline, opts ...Option) *Service {
	s := &Service{
		pipeline:    pipeline,
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		taskTimeout: defaultTaskTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start creates the warm-up queue and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.pipeline == nil {
		return errors.New("service: pipeline is required")
	}
	s.logger.Info(ctx, "starting section service...")

	// Each worker holds one task in hand and its dequeue loop one more.
	s.tracker = dedupe.NewInMemoryTracker(
		dedupe.WithMaxSize(s.queueSize+2*s.workerCount),
		dedupe.WithStaleAfter(s.taskTimeout),
	)
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.warmQueue = q

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelRun = cancel
	s.workerPool = workerpool.NewPool(s.workerCount, q,
		workerpool.ProcessorFunc(s.processWarmup),
		workerpool.WithTaskTimeout(s.taskTimeout))
	s.workerPool.Start(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "section service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxLimit", s.pipeline.MaxLimit()),
	)
	return nil
}

// Stop shuts down the warm-up workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping section service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(context.Background()); err != nil {
			s.logger.Warn(context.Background(), "worker pool shutdown", logger.Error(err))
		}
	}
	if s.cancelRun != nil {
		s.cancelRun()
	}

	s.started = false
	s.logger.Info(context.Background(), "section service stopped")
}

// FetchSection runs the pipeline for req.
func (s *Service) FetchSection(ctx context.Context, req model.SectionRequest) []model.DisplayMovie {
	return s.pipeline.FetchSection(ctx, req.Category, req.Filter, req.Limit)
}

// MaxLimit returns the largest section size served.
func (s *Service) MaxLimit() int { return s.pipeline.MaxLimit() }

// Genres returns the catalog genre list.
func (s *Service) Genres(ctx context.Context) ([]model.Genre, error) {
	if s.genres == nil {
		return []model.Genre{}, nil
	}
	return s.genres.List(ctx)
}

// Warm queues a prefetch of req. A request already pending is reported as
// model.WarmDuplicate; a full queue returns eventqueue.ErrFull.
func (s *Service) Warm(ctx context.Context, req model.SectionRequest) (model.WarmResult, error) {
	s.mu.RLock()
	started, tracker, q := s.started, s.tracker, s.warmQueue
	s.mu.RUnlock()
	if !started {
		return 0, ErrNotStarted
	}

	key := req.Signature()
	if !tracker.Claim(ctx, key) {
		metrics.RecordWarmupDuplicate()
		s.logger.Debug(ctx, "warm-up already pending", logger.String("section", key))
		return model.WarmDuplicate, nil
	}
	if err := q.Enqueue(ctx, req); err != nil {
		tracker.Release(ctx, key)
		return 0, fmt.Errorf("enqueue warm-up %s: %w", key, err)
	}
	return model.WarmQueued, nil
}

// WarmAll queues every request, logging rather than returning failures.
// It returns how many were queued.
func (s *Service) WarmAll(ctx context.Context, reqs []model.SectionRequest) int {
	queued := 0
	for _, req := range reqs {
		res, err := s.Warm(ctx, req)
		if err != nil {
			s.logger.Warn(ctx, "warm-up not queued", logger.String("section", req.Signature()), logger.Error(err))
			continue
		}
		if res == model.WarmQueued {
			queued++
		}
	}
	return queued
}

func (s *Service) processWarmup(ctx context.Context, req model.SectionRequest) error {
	defer s.tracker.Release(context.Background(), req.Signature())
	movies := s.pipeline.FetchSection(ctx, req.Category, req.Filter, req.Limit)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debug(ctx, "section warmed",
		logger.String("section", req.Signature()),
		logger.Int("items", len(movies)))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"maxLimit":    s.pipeline.MaxLimit(),
		"caches":      s.pipeline.CacheStats(),
		"goroutines":  runtime.NumGoroutine(),
	}

	breakers := make(map[string]string, len(s.upstreams))
	for _, u := range s.upstreams {
		breakers[u.Provider()] = u.BreakerState()
	}
	stats["breakers"] = breakers

	if s.started {
		queueLen := s.warmQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["pendingWarmups"] = s.tracker.Size()
		stats["warmupsProcessed"] = s.workerPool.Processed()
		stats["uptime"] = time.Since(s.startedAt).Round(time.Second).String()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
