// Package deduplication filters envelopes already seen on a partition.
// After a supervisor restarts a partition from its last committed
// offset, the first envelopes replay; an LRU of xxhash fingerprints
// of (key, offset, payload) drops them before they re-enter the graph.
package deduplication

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

// Config tunes the deduplication window.
type Config struct {
	Enabled  bool `yaml:"enabled"`
	MaxItems int  `yaml:"maxItems"`
}

// Deduplicator remembers recently seen envelope fingerprints.
type Deduplicator struct {
	config Config
	logger *logrus.Logger

	mu    sync.Mutex
	seen  map[uint64]*list.Element
	order *list.List // front = most recent
}

// New builds a deduplicator with a 100k-entry default window.
func New(config Config, logger *logrus.Logger) *Deduplicator {
	if config.MaxItems <= 0 {
		config.MaxItems = 100_000
	}
	return &Deduplicator{
		config: config,
		logger: logger,
		seen:   make(map[uint64]*list.Element),
		order:  list.New(),
	}
}

// IsDuplicate records the envelope and reports whether it was already
// seen. Disabled deduplication never reports duplicates.
func (d *Deduplicator) IsDuplicate(key string, offset int64, payload []byte) bool {
	if !d.config.Enabled {
		return false
	}
	h := xxhash.New()
	h.WriteString(key)
	h.WriteString("|")
	h.WriteString(strconv.FormatInt(offset, 10))
	h.WriteString("|")
	h.Write(payload)
	sum := h.Sum64()

	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[sum]; ok {
		d.order.MoveToFront(el)
		return true
	}
	d.seen[sum] = d.order.PushFront(sum)
	for d.order.Len() > d.config.MaxItems {
		oldest := d.order.Back()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(uint64))
	}
	return false
}

// Len reports the current window size.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
