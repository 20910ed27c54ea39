// Package tracker remembers the last item delivered to each channel.
package tracker

import (
	"memer/internal/model"
	"memer/internal/shardmap"
)

// Tracker maps a channel to the last item it received. Writes are
// last-write-wins.
type Tracker struct {
	last *shardmap.Map[model.ChannelID, model.Item]
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{last: shardmap.New[model.ChannelID, model.Item](0)}
}

// Last returns the item most recently recorded for key.
func (t *Tracker) Last(key model.ChannelID) (model.Item, bool) {
	return t.last.Get(key)
}

// Set records item as key's most recent delivery.
func (t *Tracker) Set(key model.ChannelID, item model.Item) {
	t.last.Set(key, item)
}
