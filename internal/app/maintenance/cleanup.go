package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/osanyin/herbal/internal/cache"
	"github.com/osanyin/herbal/internal/services"
	"github.com/osanyin/herbal/pkg/logger"
)

const (
	defaultCheckRetentionDays = 90
	defaultCacheSpec          = "@hourly"
	defaultChecksSpec         = "@daily"
)

// Cleaner coordinates background maintenance: purging expired cache entries
// and pruning old interaction check records.
type Cleaner struct {
	store        *cache.DatabaseStore
	interactions *services.InteractionService
	cron         *cron.Cron
	now          func() time.Time
	log          *zap.Logger
	enabled      bool
	retention    int

	cacheSchedule  string
	checksSchedule string
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

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCheckRetentionDays adjusts how long interaction checks are retained.
func WithCheckRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache purges.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithChecksSchedule overrides the cron specification for check pruning.
func WithChecksSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.checksSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil dependency
// results in the corresponding job being skipped.
func NewCleaner(store *cache.DatabaseStore, interactions *services.InteractionService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		store:          store,
		interactions:   interactions,
		now:            time.Now,
		retention:      defaultCheckRetentionDays,
		cacheSchedule:  defaultCacheSpec,
		checksSchedule: defaultChecksSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.store != nil || cleaner.interactions != nil

	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it if at
// least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.store != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			ctx := context.Background()
			if _, err := c.store.PurgeExpired(ctx); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.interactions != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.checksSchedule, func() {
			ctx := context.Background()
			if _, err := c.interactions.PruneOlderThan(ctx, c.retentionCutoff()); err != nil {
				c.log.Warn("interaction check pruning failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.store != nil {
		if _, err := c.store.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.interactions != nil && c.retention > 0 {
		if _, err := c.interactions.PruneOlderThan(ctx, c.retentionCutoff()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (c *Cleaner) retentionCutoff() time.Time {
	return c.now().AddDate(0, 0, -c.retention)
}
