package transport

import (
	"context"
	"sync"

	"streamteam/pkg/types"
)

// MemoryIngress serves envelopes from an in-memory queue, for tests and
// local replay.
type MemoryIngress struct {
	ch     chan *types.Envelope
	closed chan struct{}
	once   sync.Once
}

// NewMemoryIngress builds an ingress with the given buffer capacity.
func NewMemoryIngress(capacity int) *MemoryIngress {
	return &MemoryIngress{
		ch:     make(chan *types.Envelope, capacity),
		closed: make(chan struct{}),
	}
}

// Offer enqueues an envelope; it blocks when the buffer is full.
func (m *MemoryIngress) Offer(env *types.Envelope) {
	m.ch <- env
}

func (m *MemoryIngress) Next(ctx context.Context) (*types.Envelope, error) {
	select {
	case env := <-m.ch:
		return env, nil
	default:
	}
	select {
	case env := <-m.ch:
		return env, nil
	case <-m.closed:
		// Drain what was offered before the close.
		select {
		case env := <-m.ch:
			return env, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *MemoryIngress) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

// MemoryEgress collects published envelopes for inspection.
type MemoryEgress struct {
	mu        sync.Mutex
	published []types.OutputEnvelope
}

// NewMemoryEgress builds an empty collector.
func NewMemoryEgress() *MemoryEgress {
	return &MemoryEgress{}
}

func (m *MemoryEgress) Publish(env types.OutputEnvelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, env)
	return nil
}

func (m *MemoryEgress) Close() error { return nil }

// Published returns a copy of everything published so far.
func (m *MemoryEgress) Published() []types.OutputEnvelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.OutputEnvelope, len(m.published))
	copy(out, m.published)
	return out
}

var (
	_ Ingress = (*MemoryIngress)(nil)
	_ Egress  = (*MemoryEgress)(nil)
)
