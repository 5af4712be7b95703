package ops

import (
	"sync"
	"time"

	"streamteam/internal/metrics"
	"streamteam/pkg/clock"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// ActiveKeysStream is the name of the internal tick element consumed by
// the windowed statistics operators.
const ActiveKeysStream = "activeKeys"

const (
	lastProcessingSlot = "lastProcessingTs"
	maxGenerationSlot  = "maxGenerationTs"
)

// ActiveKeys is the shared bookkeeping behind the lazy per-key tick: the
// ordered list of keys seen recently, plus the per-key last-processing
// and max-generation timestamps. The element-side Tracker writes it, the
// window-side TickSource reads and prunes it.
type ActiveKeys struct {
	mu    sync.Mutex
	order []string
	seen  map[string]struct{}

	timestamps *store.SingleValueStore
	clock      clock.Clock

	// registry, when set, has its state for a key swept once the key
	// falls out of the active set.
	registry *store.Registry
}

// NewActiveKeys builds the shared active-keys state. registry may be nil
// when no state sweeping is wanted (tests).
func NewActiveKeys(c clock.Clock, registry *store.Registry) *ActiveKeys {
	return &ActiveKeys{
		seen:       make(map[string]struct{}),
		timestamps: store.NewSingleValueStore(),
		clock:      c,
		registry:   registry,
	}
}

func millis(t time.Time) int64 { return t.UnixMilli() }

// Touch records an element arrival for its key: last processing time,
// running max of the generation timestamp (generation times arrive out
// of order), and membership in the active list.
func (a *ActiveKeys) Touch(e *types.Element) {
	now := millis(a.clock.Now())
	a.mu.Lock()
	defer a.mu.Unlock()

	a.timestamps.Put(e.Key, lastProcessingSlot, types.LongValue(now))

	prev, ok := a.timestamps.Get(e.Key, maxGenerationSlot)
	if !ok || prev.Long < e.GenerationTimestamp {
		a.timestamps.Put(e.Key, maxGenerationSlot, types.LongValue(e.GenerationTimestamp))
	}

	if _, ok := a.seen[e.Key]; !ok {
		a.seen[e.Key] = struct{}{}
		a.order = append(a.order, e.Key)
	}
}

// Sweep partitions the active list by threshold against now, rewrites it
// to the still-active subset, and returns the still-active keys in their
// original arrival order paired with each key's max generation timestamp.
// State belonging to dropped keys is evicted from the bound registry.
func (a *ActiveKeys) Sweep(threshold time.Duration) []TickKey {
	now := millis(a.clock.Now())
	limit := threshold.Milliseconds()

	a.mu.Lock()
	defer a.mu.Unlock()

	stillActive := a.order[:0:0]
	var ticks []TickKey
	for _, key := range a.order {
		last, ok := a.timestamps.Get(key, lastProcessingSlot)
		if ok && now-last.Long <= limit {
			stillActive = append(stillActive, key)
			maxGen, _ := a.timestamps.Get(key, maxGenerationSlot)
			ticks = append(ticks, TickKey{Key: key, MaxGenerationTimestamp: maxGen.Long})
			continue
		}
		delete(a.seen, key)
		a.timestamps.EvictKey(key)
		if a.registry != nil {
			a.registry.EvictKey(key)
		}
		metrics.KeysEvictedTotal.Inc()
	}
	a.order = stillActive
	metrics.ActiveKeys.Set(float64(len(stillActive)))
	return ticks
}

// TickKey is one still-active key at sweep time.
type TickKey struct {
	Key                    string
	MaxGenerationTimestamp int64
}

// Tracker is the element-side operator: it touches the active-keys state
// and forwards the input element unchanged.
type Tracker struct {
	Keys *ActiveKeys
}

func (t *Tracker) Process(e *types.Element) ([]*types.Element, error) {
	t.Keys.Touch(e)
	return []*types.Element{e}, nil
}

// TickSource is the window-graph root: on each tick it sweeps the active
// list and emits one internal activeKeys element per still-active key,
// carrying the key's max generation timestamp as the element's
// generation timestamp.
type TickSource struct {
	Keys      *ActiveKeys
	Threshold time.Duration
}

func (s *TickSource) Emit() ([]*types.Element, error) {
	ticks := s.Keys.Sweep(s.Threshold)
	now := millis(s.Keys.clock.Now())
	out := make([]*types.Element, 0, len(ticks))
	for _, tk := range ticks {
		out = append(out, &types.Element{
			StreamName:          ActiveKeysStream,
			Key:                 tk.Key,
			GenerationTimestamp: tk.MaxGenerationTimestamp,
			ProcessingTimestamp: now,
			Category:            types.Internal,
		})
	}
	return out, nil
}

var (
	_ graph.Operator = (*Tracker)(nil)
	_ graph.Source   = (*TickSource)(nil)
)
