// Package transport carries envelopes between the partitioned log and
// the analytics runtime. The core only sees the Ingress and Egress
// interfaces; Kafka and in-memory implementations live alongside.
package transport

import (
	"context"

	"streamteam/pkg/types"
)

// Ingress pulls input envelopes, one partition's order preserved.
type Ingress interface {
	// Next blocks until an envelope arrives, the context is cancelled,
	// or the ingress is closed (returns ErrClosed).
	Next(ctx context.Context) (*types.Envelope, error)
	Close() error
}

// Egress publishes serialised output elements to their named streams.
type Egress interface {
	Publish(env types.OutputEnvelope) error
	Close() error
}

// ErrClosed is returned by Next once the ingress has been closed and
// drained.
type closedError struct{}

func (closedError) Error() string { return "transport: ingress closed" }

// ErrClosed signals an orderly end of the envelope stream.
var ErrClosed error = closedError{}
