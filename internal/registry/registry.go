// Package registry keeps the in-memory set of registered channels, loaded
// from storage at boot and written through on every registration.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"memer/internal/model"
	"memer/internal/shardmap"
)

// Store is the persistence the registry needs.
type Store interface {
	ListChannels(ctx context.Context) ([]model.ChannelDocument, error)
	UpsertChannel(ctx context.Context, doc model.ChannelDocument) error
}

// Registry maps channel IDs to their registration.
type Registry struct {
	store    Store
	channels *shardmap.Map[model.ChannelID, model.Channel]
	// writes serializes Upsert per channel so storage and memory agree on
	// the last write.
	writes *shardmap.Map[model.ChannelID, *sync.Mutex]
	log    *slog.Logger
}

// New creates an empty Registry over store.
func New(store Store, log *slog.Logger) *Registry {
	return &Registry{
		store:    store,
		channels: shardmap.New[model.ChannelID, model.Channel](0),
		writes:   shardmap.New[model.ChannelID, *sync.Mutex](0),
		log:      log,
	}
}

// LoadAll reads every stored channel into memory and returns how many were
// loaded. Documents that fail to decode are logged and skipped. An error is
// returned only when storage cannot be read at all.
func (r *Registry) LoadAll(ctx context.Context) (int, error) {
	start := time.Now()

	docs, err := r.store.ListChannels(ctx)
	if err != nil {
		return 0, fmt.Errorf("list channels: %w", err)
	}

	var g errgroup.Group
	loaded := make([]bool, len(docs))
	for i, doc := range docs {
		g.Go(func() error {
			c, err := doc.Decode()
			if err != nil {
				r.log.Error("decode channel", "channel", doc.Channel, "error", err)
				return nil
			}
			r.channels.Set(c.ID, c)
			loaded[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range loaded {
		if ok {
			n++
		}
	}
	r.log.Info("loaded channels", "count", n, "skipped", len(docs)-n, "elapsed", time.Since(start))
	return n, nil
}

// Upsert persists c and then records it in memory. When storage fails the
// in-memory entry is left as it was. Upserts for the same channel run one at
// a time.
func (r *Registry) Upsert(ctx context.Context, c model.Channel) error {
	mu := r.writes.Update(c.ID, func(old *sync.Mutex, ok bool) *sync.Mutex {
		if ok {
			return old
		}
		return &sync.Mutex{}
	})
	mu.Lock()
	defer mu.Unlock()

	if err := r.store.UpsertChannel(ctx, c.Document()); err != nil {
		return fmt.Errorf("upsert channel %s: %w", c.ID, err)
	}
	r.channels.Set(c.ID, c)
	return nil
}

// Get returns the registration for id.
func (r *Registry) Get(id model.ChannelID) (model.Channel, bool) {
	return r.channels.Get(id)
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	return r.channels.Len()
}

// All returns every registration ordered by channel ID.
func (r *Registry) All() []model.Channel {
	var out []model.Channel
	r.channels.Range(func(_ model.ChannelID, c model.Channel) bool {
		out = append(out, c)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
