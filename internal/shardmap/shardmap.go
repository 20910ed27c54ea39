// Package shardmap provides a concurrent map split into independently locked
// shards. Operations on one key are serialized; there is no whole-map lock.
package shardmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShards is the shard count used when New is given n <= 0.
const DefaultShards = 32

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// Map is a sharded map safe for concurrent use.
type Map[K comparable, V any] struct {
	seed   maphash.Seed
	shards []*shard[K, V]
}

// New creates a Map with n shards.
func New[K comparable, V any](n int) *Map[K, V] {
	if n <= 0 {
		n = DefaultShards
	}
	m := &Map[K, V]{
		seed:   maphash.MakeSeed(),
		shards: make([]*shard[K, V], n),
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{m: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	h := maphash.Comparable(m.seed, key)
	return m.shards[h%uint64(len(m.shards))]
}

// Get returns the value stored for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// Set stores v for key, replacing any previous value.
func (m *Map[K, V]) Set(key K, v V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = v
}

// Update runs fn with the current value for key while holding the key's shard
// lock and stores the result. fn must not call back into m.
func (m *Map[K, V]) Update(key K, fn func(old V, ok bool) V) V {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.m[key]
	v := fn(old, ok)
	s.m[key] = v
	return v
}

// Delete removes key.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// Len counts entries across all shards. The result is not a snapshot.
func (m *Map[K, V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for each entry, one shard at a time, until fn returns false.
// fn must not call back into m.
func (m *Map[K, V]) Range(fn func(key K, v V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.m {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}
