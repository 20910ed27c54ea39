// Package postcache stores the posts fetched for every source and refreshes
// them concurrently.
package postcache

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"memer/internal/model"
	"memer/internal/shardmap"
)

// Fetcher returns the current posts of a source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]model.Item, error)
}

// Options configures Refresh.
type Options struct {
	// Concurrency caps in-flight fetches. Zero means one goroutine per source.
	Concurrency int
	// FetchTimeout bounds each fetch independently.
	FetchTimeout time.Duration
}

// Report summarizes one Refresh call.
type Report struct {
	Succeeded []string
	Failed    []string
	Items     int
	Elapsed   time.Duration
}

// Cache maps a source name to its posts. Every entry is replaced as a whole,
// so readers see either the old or the new list.
type Cache struct {
	posts   *shardmap.Map[string, []model.Item]
	fetcher Fetcher
	opts    Options
	log     *slog.Logger
}

// New creates an empty Cache that refreshes through f.
func New(f Fetcher, opts Options, log *slog.Logger) *Cache {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	return &Cache{
		posts:   shardmap.New[string, []model.Item](0),
		fetcher: f,
		opts:    opts,
		log:     log,
	}
}

// Get returns the posts cached for source, or nil. The slice must not be
// modified.
func (c *Cache) Get(source string) []model.Item {
	items, _ := c.posts.Get(source)
	return items
}

// Append merges items into source's entry. Items whose permalink is already
// cached replace the cached copy in place; new ones are added at the end.
// Nothing is ever dropped.
func (c *Cache) Append(source string, items []model.Item) {
	c.posts.Update(source, func(old []model.Item, _ bool) []model.Item {
		return merge(old, items)
	})
}

// Sources returns the cached source names in sorted order.
func (c *Cache) Sources() []string {
	var names []string
	c.posts.Range(func(name string, _ []model.Item) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	return c.posts.Len()
}

// Refresh fetches every source concurrently and appends the results. A
// failing source is logged and left untouched; it never fails the batch.
func (c *Cache) Refresh(ctx context.Context, sources []string) Report {
	start := time.Now()

	var (
		mu  sync.Mutex
		rep Report
	)

	var g errgroup.Group
	if c.opts.Concurrency > 0 {
		g.SetLimit(c.opts.Concurrency)
	}

	for _, source := range sources {
		g.Go(func() error {
			items, err := c.fetch(ctx, source)
			if err != nil {
				c.log.Error("fetch source", "source", source, "error", err)
			} else {
				c.Append(source, items)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failed = append(rep.Failed, source)
				return nil
			}
			rep.Succeeded = append(rep.Succeeded, source)
			rep.Items += len(items)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(rep.Succeeded)
	sort.Strings(rep.Failed)
	rep.Elapsed = time.Since(start)
	return rep
}

func (c *Cache) fetch(ctx context.Context, source string) ([]model.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	c.log.Debug("fetching source", "source", source)
	return c.fetcher.Fetch(ctx, source)
}

func merge(old, items []model.Item) []model.Item {
	out := slices.Clone(old)
	index := make(map[string]int, len(out)+len(items))
	for i, it := range out {
		index[it.Permalink] = i
	}
	for _, it := range items {
		if i, ok := index[it.Permalink]; ok {
			out[i] = it
			continue
		}
		index[it.Permalink] = len(out)
		out = append(out, it)
	}
	return out
}
