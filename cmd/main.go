package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/marquee/internal/adapters/http/api"
	"github.com/okian/marquee/internal/adapters/http/swagger"
	"github.com/okian/marquee/internal/adapters/omdb"
	"github.com/okian/marquee/internal/adapters/scheduler"
	"github.com/okian/marquee/internal/adapters/tmdb"
	"github.com/okian/marquee/internal/adapters/upstream"
	app "github.com/okian/marquee/internal/app"
	"github.com/okian/marquee/internal/config"
	"github.com/okian/marquee/internal/domain/enrich"
	"github.com/okian/marquee/internal/domain/genre"
	"github.com/okian/marquee/internal/domain/model"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
	warmupJobName             = "section-warmup"
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if cfg.LogFile != "" {
		if err := logger.SetOutputFile(cfg.LogFile); err != nil {
			os.Stderr.WriteString("failed to open log file: " + err.Error() + "\n")
			return
		}
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := buildService(cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	// Prefetch the configured sections now and on schedule.
	sections := warmupRequests(cfg.WarmupSections, cfg.WarmupLimit)
	queued := svc.WarmAll(ctx, sections)
	loggerInstance.Info(ctx, "startup warm-up queued", logger.Int("sections", queued))

	sched, err := buildScheduler(cfg.WarmupSchedule, svc, sections, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "invalid warmup_schedule", logger.String("schedule", cfg.WarmupSchedule), logger.Error(err))
		return
	}
	if sched != nil {
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildService wires the upstream clients, caches and pipeline into a
// Service. Without an OMDb key ratings are reported unavailable.
func buildService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	upstreamOpts := []upstream.Option{
		upstream.WithTimeout(cfg.UpstreamTimeout()),
		upstream.WithRetries(cfg.UpstreamRetries),
		upstream.WithRateLimit(cfg.UpstreamRPS),
	}

	catalog, err := tmdb.New(cfg.TMDBBaseURL, cfg.TMDBAPIKey,
		tmdb.WithRegion(cfg.Region),
		tmdb.WithUpstreamOptions(upstreamOpts...),
		tmdb.WithLogger(log.Named(tmdb.Provider)),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}
	reporters := []app.BreakerReporter{catalog.Upstream()}

	var ratings enrich.RatingsSource
	if cfg.OMDBAPIKey != "" {
		client, err := omdb.New(cfg.OMDBBaseURL, cfg.OMDBAPIKey,
			append(upstreamOpts, upstream.WithLogger(log.Named(omdb.Provider)))...)
		if err != nil {
			return nil, fmt.Errorf("ratings client: %w", err)
		}
		ratings = client
		reporters = append(reporters, client.Upstream())
	} else {
		log.Warn(context.Background(), "no OMDb key configured; critic ratings will be unavailable")
	}

	genres := genre.New(catalog,
		genre.WithTTL(cfg.GenreTTL()),
		genre.WithLogger(log.Named("genres")))
	enricher := enrich.New(catalog, ratings,
		enrich.WithRegion(cfg.Region),
		enrich.WithTTL(cfg.EnrichmentTTL()),
		enrich.WithLogger(log.Named("enrich")))

	pipeline := app.NewPipeline(catalog, genres, enricher,
		app.WithEnrichConcurrency(cfg.EnrichConcurrency),
		app.WithMaxLimit(cfg.MaxSectionLimit),
		app.WithListingTTL(cfg.ListingTTL()),
		app.WithPipelineLogger(log.Named("pipeline")),
	)

	return app.New(pipeline,
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WarmupWorkers),
		app.WithQueueSize(cfg.WarmupQueueSize),
		app.WithGenres(genres),
		app.WithUpstreams(reporters...),
	), nil
}

// warmupRequests turns configured category names into section requests.
// Names were validated by config.Load; anything unparseable is skipped.
func warmupRequests(names []string, limit int) []model.SectionRequest {
	reqs := make([]model.SectionRequest, 0, len(names))
	for _, name := range names {
		category, ok := model.ParseCategory(name)
		if !ok {
			continue
		}
		reqs = append(reqs, model.SectionRequest{Category: category, Limit: limit})
	}
	return reqs
}

// buildScheduler returns nil when spec is empty.
func buildScheduler(spec string, svc *app.Service, sections []model.SectionRequest, log logger.Logger) (*scheduler.Scheduler, error) {
	if spec == "" || len(sections) == 0 {
		return nil, nil
	}
	sched := scheduler.New(scheduler.WithLogger(log.Named("scheduler")))
	job := scheduler.JobFunc{JobName: warmupJobName, Fn: func(ctx context.Context) error {
		svc.WarmAll(ctx, sections)
		return nil
	}}
	if err := sched.AddJob(spec, job); err != nil {
		return nil, err
	}
	return sched, nil
}

// newHandler registers every route and wraps the mux with request ids.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return api.RequestIDMiddleware(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
