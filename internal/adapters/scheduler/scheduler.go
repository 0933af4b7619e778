// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/marquee/pkg/logger"
)

const defaultJobTimeout = 5 * time.Minute

// ErrDuplicateJob is returned when a job name is registered twice.
var ErrDuplicateJob = errors.New("job already registered")

// ErrUnknownJob is returned by RunNow for a name never registered.
var ErrUnknownJob = errors.New("job not registered")

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name implements Job.
func (j JobFunc) Name() string { return j.JobName }

// Run implements Job.
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped and panics are recovered.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]Job
	running bool
	timeout time.Duration
	log     logger.Logger
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithJobTimeout bounds a single run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a scheduler. Specs accept an optional seconds field and the
// @every / @hourly style descriptors.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:    make(map[string]Job),
		timeout: defaultJobTimeout,
		log:     logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: s.log}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// AddJob registers job under spec.
func (s *Scheduler) AddJob(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(job) }); err != nil {
		return fmt.Errorf("add job %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = job
	return nil
}

// Start starts the cron runner.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.log.Info(context.Background(), "scheduler started", logger.Int("jobs", len(s.jobs)))
}

// Stop stops the runner and waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn(ctx, "scheduler stop timed out")
	}
	s.log.Info(ctx, "scheduler stopped")
}

// RunNow runs a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(job)
}

// Entries returns the number of scheduled entries.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) run(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error(ctx, "scheduled job failed", logger.String("job", job.Name()), logger.Error(err))
		return fmt.Errorf("job %s: %w", job.Name(), err)
	}
	s.log.Debug(ctx, "scheduled job complete",
		logger.String("job", job.Name()),
		logger.Duration("took", time.Since(start)))
	return nil
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), "cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(context.Background(), "cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}
