package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/issuerelay/internal/monitoring"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

const (
	// JobCachePurge is the job that drops expired cache entries.
	JobCachePurge = "cache_purge"

	defaultPurgeSpec = "@every 10m"
)

// Purger removes expired entries; cache.Service satisfies it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (string, error)
}

// Cleaner coordinates background maintenance for the issue cache.
type Cleaner struct {
	purger  Purger
	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger
	enabled bool

	purgeSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used to time job runs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithPurgeSchedule overrides the cron specification for the cache purge.
func WithPurgeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.purgeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil purger disables the purge job.
func NewCleaner(purger Purger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		purger:        purger,
		now:           time.Now,
		purgeSchedule: defaultPurgeSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.purger != nil

	return cleaner
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.purger != nil {
		jobs = append(jobs, job{name: JobCachePurge, schedule: c.purgeSchedule, run: c.purgeCache})
	}
	return jobs
}

func (c *Cleaner) purgeCache(ctx context.Context) (string, error) {
	removed, err := c.purger.PurgeExpired(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d expired entries", removed), nil
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	for _, j := range c.jobs() {
		j := j
		if _, err := c.cron.AddFunc(j.schedule, func() {
			if err := c.execute(context.Background(), j); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured jobs sequentially. Used by the CLI and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.execute(ctx, j))
	}
	return errs
}

func (c *Cleaner) execute(ctx context.Context, j job) error {
	start := c.now()
	message, err := j.run(ctx)
	duration := c.now().Sub(start)

	if err != nil {
		monitoring.RecordMaintenanceRun(j.name, monitoring.ResultFailure, err.Error(), duration)
		return fmt.Errorf("%s: %w", j.name, err)
	}

	monitoring.RecordMaintenanceRun(j.name, monitoring.ResultSuccess, message, duration)
	c.log.Debug("maintenance job completed", zap.String("job", j.name), zap.String("result", message), zap.Duration("duration", duration))
	return nil
}
