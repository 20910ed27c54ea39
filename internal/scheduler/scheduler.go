// Package scheduler drives the refresh cycle: the registry load at boot, the
// concurrent fetch of every configured source, and the periodic triggers.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"memer/internal/config"
	"memer/internal/postcache"
)

// housekeeping is how often the blacklist epoch is checked between
// deliveries and idle rate-limit buckets are dropped.
const housekeeping = "@every 1m"

// Cache refreshes the posts of a set of sources.
type Cache interface {
	Refresh(ctx context.Context, sources []string) postcache.Report
}

// Registry loads every registration from storage.
type Registry interface {
	LoadAll(ctx context.Context) (int, error)
}

// Blacklist ends its epoch once the boundary is reached.
type Blacklist interface {
	ResetIfExpired(now time.Time) bool
	ResetAt() time.Time
}

// Limiter drops rate-limit buckets that hold no state.
type Limiter interface {
	Prune() int
	Len() int
}

// Scheduler coordinates refresh cycles. Cycles never overlap: a refresh
// started while another is running waits for it.
type Scheduler struct {
	sources   config.Sources
	cache     Cache
	registry  Registry
	blacklist Blacklist
	limiter   Limiter
	schedule  string
	log       *slog.Logger

	refreshMu sync.Mutex
}

// New creates a Scheduler. schedule is a cron spec such as "@every 1h".
// limiter may be nil.
func New(sources config.Sources, cache Cache, registry Registry, bl Blacklist, limiter Limiter, schedule string, log *slog.Logger) *Scheduler {
	return &Scheduler{
		sources:   sources,
		cache:     cache,
		registry:  registry,
		blacklist: bl,
		limiter:   limiter,
		schedule:  schedule,
		log:       log,
	}
}

// Boot loads the registry and runs the first refresh. A registry failure is
// returned; source failures are not.
func (s *Scheduler) Boot(ctx context.Context) error {
	if _, err := s.registry.LoadAll(ctx); err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	s.Refresh(ctx)
	return nil
}

// Refresh fetches every configured source into the cache.
func (s *Scheduler) Refresh(ctx context.Context) postcache.Report {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	names := s.sources.Names()
	s.log.Info("refreshing sources", "count", len(names))

	rep := s.cache.Refresh(ctx, names)
	s.log.Info("refreshed sources",
		"succeeded", len(rep.Succeeded),
		"failed", len(rep.Failed),
		"items", rep.Items,
		"elapsed", rep.Elapsed,
	)
	return rep
}

// Run triggers Refresh on the configured schedule and checks the blacklist
// epoch every minute, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{log: s.log}
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	if _, err := c.AddFunc(s.schedule, func() { s.Refresh(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.schedule, err)
	}
	if _, err := c.AddFunc(housekeeping, func() { s.housekeep(time.Now()) }); err != nil {
		return fmt.Errorf("schedule housekeeping: %w", err)
	}

	c.Start()
	s.log.Info("scheduler started", "refresh", s.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) housekeep(now time.Time) {
	if s.blacklist.ResetIfExpired(now) {
		s.log.Info("blacklist reset", "next_reset", s.blacklist.ResetAt())
	}
	if s.limiter == nil {
		return
	}
	if n := s.limiter.Prune(); n > 0 {
		s.log.Debug("pruned rate limit buckets", "pruned", n, "remaining", s.limiter.Len())
	}
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
