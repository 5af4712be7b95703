// Package store implements the two keyed state abstractions every
// operator reads and writes: a single-value store and a bounded-history
// store, both addressed by (element_key, inner_key).
package store

import (
	"sync"

	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/schema"
	"streamteam/pkg/types"
)

const component = "store"

type compositeKey struct {
	Key      string
	InnerKey string
}

// SingleValueStore holds one Value per (element_key, inner_key). Per-key
// operations are serially consistent with the order in which the owning
// partition's goroutine issues them; the mutex here only
// protects against the rare case of a store being read by a background
// reporter goroutine concurrently with the partition's own writes.
type SingleValueStore struct {
	mu   sync.RWMutex
	data map[compositeKey]types.Value
	keys map[string]map[string]struct{} // element_key -> set of inner keys, for eviction
}

// NewSingleValueStore constructs an empty store.
func NewSingleValueStore() *SingleValueStore {
	return &SingleValueStore{
		data: make(map[compositeKey]types.Value),
		keys: make(map[string]map[string]struct{}),
	}
}

// Put overwrites the value at (key, innerKey).
func (s *SingleValueStore) Put(key, innerKey string, v types.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[compositeKey{key, innerKey}] = v
	inner, ok := s.keys[key]
	if !ok {
		inner = make(map[string]struct{})
		s.keys[key] = inner
	}
	inner[innerKey] = struct{}{}
}

// PutElement resolves the inner key via ik and writes v at (e.Key, innerKey).
func (s *SingleValueStore) PutElement(e *types.Element, ik schema.InnerKey, v types.Value) error {
	innerKey, err := ik.Resolve(e)
	if err != nil {
		return err
	}
	s.Put(e.Key, innerKey, v)
	return nil
}

// Get returns the stored value and whether it was present.
func (s *SingleValueStore) Get(key, innerKey string) (types.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[compositeKey{key, innerKey}]
	return v, ok
}

// GetLong returns the stored long, or 0 if absent; a present value of the
// wrong kind is a store error.
func (s *SingleValueStore) GetLong(key, innerKey string) (int64, error) {
	v, ok := s.Get(key, innerKey)
	if !ok {
		return 0, nil
	}
	if v.Kind != types.KindLong {
		return 0, streamerrors.Store(component, "GetLong", "stored value is not a long", nil)
	}
	return v.Long, nil
}

// GetDouble returns the stored double, or 0.0 if absent.
func (s *SingleValueStore) GetDouble(key, innerKey string) (float64, error) {
	v, ok := s.Get(key, innerKey)
	if !ok {
		return 0, nil
	}
	if v.Kind != types.KindDouble {
		return 0, streamerrors.Store(component, "GetDouble", "stored value is not a double", nil)
	}
	return v.Double, nil
}

// GetBoolean returns the stored boolean, or false if absent.
func (s *SingleValueStore) GetBoolean(key, innerKey string) (bool, error) {
	v, ok := s.Get(key, innerKey)
	if !ok {
		return false, nil
	}
	if v.Kind != types.KindBool {
		return false, streamerrors.Store(component, "GetBoolean", "stored value is not a boolean", nil)
	}
	return v.Bool, nil
}

// Increase adds delta to the value at (key, innerKey), atomically within
// the owning partition's serial processing. Fails if the stored value is
// non-numeric.
func (s *SingleValueStore) Increase(key, innerKey string, delta types.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ck := compositeKey{key, innerKey}
	cur, ok := s.data[ck]
	if !ok {
		s.data[ck] = delta
		inner, ok := s.keys[key]
		if !ok {
			inner = make(map[string]struct{})
			s.keys[key] = inner
		}
		inner[innerKey] = struct{}{}
		return nil
	}
	next, err := cur.Add(delta)
	if err != nil {
		return streamerrors.Store(component, "Increase", "stored value is non-numeric", err)
	}
	s.data[ck] = next
	return nil
}

// ForEach visits every stored entry. Intended for operational
// reporting; the store is locked for the duration of the walk.
func (s *SingleValueStore) ForEach(fn func(key, innerKey string, v types.Value)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ck, v := range s.data {
		fn(ck.Key, ck.InnerKey, v)
	}
}

// Delete removes the value at (key, innerKey), if present.
func (s *SingleValueStore) Delete(key, innerKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, compositeKey{key, innerKey})
	if inner, ok := s.keys[key]; ok {
		delete(inner, innerKey)
	}
}

// EvictKey drops every inner-key entry belonging to key. Called by the
// active-keys window processing when a key falls out of the active set,
// keeping state bounded.
func (s *SingleValueStore) EvictKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for innerKey := range s.keys[key] {
		delete(s.data, compositeKey{key, innerKey})
	}
	delete(s.keys, key)
}
