// Package delivery picks the next item for a channel. A delivery is rate
// limited per channel, never repeats the previous item and skips anything the
// channel has already received during the current blacklist epoch.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"memer/internal/blacklist"
	"memer/internal/config"
	"memer/internal/filter"
	"memer/internal/model"
	"memer/internal/ratelimit"
	"memer/internal/tracker"
)

var (
	// ErrRateLimited is returned when the channel used up its request budget.
	// The Result carries the wait.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoItems is returned when nothing cached is eligible for the channel.
	ErrNoItems = errors.New("no items available")
	// ErrUnknownGroup is returned for a group missing from the source file.
	ErrUnknownGroup = errors.New("unknown group")
)

// Limiter admits or denies a request for a channel.
type Limiter interface {
	Check(key model.ChannelID) ratelimit.Decision
}

// Cache returns the cached posts of a source.
type Cache interface {
	Get(source string) []model.Item
}

// Registry returns a channel's registration.
type Registry interface {
	Get(id model.ChannelID) (model.Channel, bool)
}

// Result is the outcome of Deliver.
type Result struct {
	Item       model.Item
	RetryAfter time.Duration
}

// Deps are the collaborators of a Deliverer. Now and Pick are optional.
type Deps struct {
	Sources   config.Sources
	Limiter   Limiter
	Blacklist *blacklist.Store
	Tracker   *tracker.Tracker
	Cache     Cache
	Registry  Registry

	Now  func() time.Time
	Pick func(n int) int
}

// Deliverer composes the limiter, blacklist, tracker and cache.
type Deliverer struct {
	deps Deps
	log  *slog.Logger
}

// New creates a Deliverer.
func New(deps Deps, log *slog.Logger) *Deliverer {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Pick == nil {
		deps.Pick = rand.IntN
	}
	return &Deliverer{deps: deps, log: log}
}

// Sources returns the configured source groups.
func (d *Deliverer) Sources() config.Sources {
	return d.deps.Sources
}

// Deliver selects an item for channel id from the given group, or from every
// configured source when group is empty. The selected item is recorded as the
// channel's last delivery and blacklisted until the epoch ends.
func (d *Deliverer) Deliver(ctx context.Context, id model.ChannelID, group string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// An unknown group is rejected before it can spend the channel's budget.
	sources, err := d.sourcesFor(group)
	if err != nil {
		return Result{}, err
	}

	if dec := d.deps.Limiter.Check(id); !dec.Allowed {
		return Result{RetryAfter: dec.RetryAfter}, ErrRateLimited
	}

	bl := d.deps.Blacklist
	if bl.ResetIfExpired(d.deps.Now()) {
		d.log.Info("blacklist reset", "next_reset", bl.ResetAt())
	}

	reg, _ := d.deps.Registry.Get(id)
	last, _ := d.deps.Tracker.Last(id)
	rules := filter.Rules{
		AllowSensitive: reg.Sensitive,
		LastPermalink:  last.Permalink,
		Blocked: func(permalink string) bool {
			return bl.ContainsPermalink(id, permalink)
		},
	}

	var eligible []model.Item
	for _, s := range sources {
		eligible = append(eligible, filter.Eligible(d.deps.Cache.Get(s), rules)...)
	}
	if len(eligible) == 0 {
		return Result{}, ErrNoItems
	}

	item := eligible[d.deps.Pick(len(eligible))]
	d.deps.Tracker.Set(id, item)
	bl.Add(id, item)

	d.log.Debug("delivered", "channel", id, "source", item.Source, "permalink", item.Permalink, "eligible", len(eligible))
	return Result{Item: item}, nil
}

func (d *Deliverer) sourcesFor(group string) ([]string, error) {
	if group == "" {
		return d.deps.Sources.Names(), nil
	}
	sources, ok := d.deps.Sources.Group(group)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	return sources, nil
}
