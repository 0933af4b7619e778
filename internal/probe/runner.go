package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/okian/marquee/pkg/logger"
)

// ErrViolations is returned by Run when any check failed.
var ErrViolations = errors.New("probe found violations")

// Run fetches every configured section, unfiltered and once per query, and
// verifies the responses.
func Run(ctx context.Context, config *Config) (*Report, error) {
	log := logger.Get().Named("probe")
	report := &Report{StartTime: time.Now()}

	log.Info(ctx, "starting section probe",
		logger.String("baseURL", config.BaseURL),
		logger.Any("sections", config.Sections),
		logger.Any("queries", config.Queries),
		logger.Int("workers", config.Workers))

	c := newClient(config.BaseURL, config.Timeout)
	if err := c.get(ctx, "/healthz", nil, nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Search results are drawn from the capped listing, so the comparison
	// baseline is fetched at the cap.
	maxLimit, err := c.maxLimit(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}

	var (
		mu         sync.Mutex
		violations []string
		movies     int
		requests   int
	)
	record := func(n int, issues []string) {
		mu.Lock()
		defer mu.Unlock()
		requests++
		movies += n
		violations = append(violations, issues...)
	}

	workers := pool.New().WithMaxGoroutines(max(1, config.Workers))
	for _, category := range config.Sections {
		category := category
		workers.Go(func() {
			s, err := c.section(ctx, category, config.Limit, "")
			if err != nil {
				record(0, []string{err.Error()})
				return
			}
			record(len(s.Movies), verifySection(category, s, config.Limit))
			if config.Verbose {
				for _, m := range s.Movies {
					log.Debug(ctx, "movie", logger.String("section", category), logger.Int64("id", m.ID), logger.String("title", m.Title))
				}
			}
		})

		if len(config.Queries) == 0 {
			continue
		}
		workers.Go(func() {
			full, err := c.section(ctx, category, maxLimit, "")
			if err != nil {
				record(0, []string{err.Error()})
				return
			}
			record(len(full.Movies), verifySection(category, full, maxLimit))
			for _, q := range config.Queries {
				name := fmt.Sprintf("%s?q=%s", category, q)
				hits, err := c.section(ctx, category, maxLimit, q)
				if err != nil {
					record(0, []string{err.Error()})
					continue
				}
				issues := verifySection(name, hits, maxLimit)
				record(len(hits.Movies), append(issues, verifySearch(name, q, full, hits)...))
			}
		})
	}
	workers.Wait()

	report.Requests = requests
	report.Movies = movies
	report.Violations = violations
	report.Duration = time.Since(report.StartTime)

	log.Info(ctx, "probe finished",
		logger.Int("requests", report.Requests),
		logger.Int("movies", report.Movies),
		logger.Int("violations", len(report.Violations)),
		logger.Duration("duration", report.Duration))
	for _, v := range report.Violations {
		log.Warn(ctx, "violation", logger.String("detail", v))
	}

	if !report.OK() {
		return report, ErrViolations
	}
	return report, nil
}
