// Package blacklist keeps, per channel, the items already delivered during the
// current epoch. When the epoch ends the whole store is replaced at once.
package blacklist

import (
	"slices"
	"sync/atomic"
	"time"

	"memer/internal/model"
	"memer/internal/shardmap"
)

// Window is the length of one blacklist epoch.
const Window = 3 * time.Hour

type epoch struct {
	entries *shardmap.Map[model.ChannelID, []model.Item]
	resetAt time.Time
}

func newEpoch(resetAt time.Time) *epoch {
	return &epoch{
		entries: shardmap.New[model.ChannelID, []model.Item](0),
		resetAt: resetAt,
	}
}

// Store is a per-channel blacklist. The zero value is not usable; use New.
type Store struct {
	cur atomic.Pointer[epoch]
}

// New creates an empty Store whose first epoch ends at resetAt.
func New(resetAt time.Time) *Store {
	s := &Store{}
	s.cur.Store(newEpoch(resetAt))
	return s
}

// Add appends item to key's blacklist for the current epoch.
func (s *Store) Add(key model.ChannelID, item model.Item) {
	s.cur.Load().entries.Update(key, func(old []model.Item, _ bool) []model.Item {
		// Copy so slices handed out by Items stay unchanged.
		return append(slices.Clip(old), item)
	})
}

// Contains reports whether an item with the same permalink was added for key
// in the current epoch.
func (s *Store) Contains(key model.ChannelID, item model.Item) bool {
	return s.ContainsPermalink(key, item.Permalink)
}

// ContainsPermalink is Contains keyed by permalink alone.
func (s *Store) ContainsPermalink(key model.ChannelID, permalink string) bool {
	items, ok := s.cur.Load().entries.Get(key)
	if !ok {
		return false
	}
	return slices.ContainsFunc(items, func(it model.Item) bool {
		return it.Permalink == permalink
	})
}

// Items returns key's blacklist in insertion order. The slice must not be
// modified.
func (s *Store) Items(key model.ChannelID) []model.Item {
	items, _ := s.cur.Load().entries.Get(key)
	return items
}

// Len returns the number of blacklisted items for key.
func (s *Store) Len(key model.ChannelID) int {
	return len(s.Items(key))
}

// ResetAt returns the end of the current epoch.
func (s *Store) ResetAt() time.Time {
	return s.cur.Load().resetAt
}

// ResetIfExpired swaps in an empty store when now has reached the end of the
// current epoch and reports whether it did. The next epoch ends one Window
// after the old boundary, skipping whole windows that already passed.
// Concurrent callers for the same epoch reset it once.
func (s *Store) ResetIfExpired(now time.Time) bool {
	old := s.cur.Load()
	if now.Before(old.resetAt) {
		return false
	}
	next := old.resetAt.Add(Window)
	for !next.After(now) {
		next = next.Add(Window)
	}
	return s.cur.CompareAndSwap(old, newEpoch(next))
}
