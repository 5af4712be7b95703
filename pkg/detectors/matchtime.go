package detectors

import (
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// MatchTimeDetector emits one matchTimeProgressEvent per elapsed second
// of play, counted from the first kickoff. Ball samples before the first
// kickoff produce nothing.
type MatchTimeDetector struct {
	Roster *Roster
	state  *store.SingleValueStore
}

const (
	slotKickoffTS  = "kickoffTs"
	slotLastSecond = "lastEmittedSecond"
)

// NewMatchTimeDetector builds the detector with its state in reg.
func NewMatchTimeDetector(roster *Roster, reg *store.Registry) *MatchTimeDetector {
	return &MatchTimeDetector{Roster: roster, state: reg.NewSingleValue()}
}

func (d *MatchTimeDetector) Process(e *types.Element) ([]*types.Element, error) {
	key := e.Key
	if e.StreamName == StreamKickoffEvent {
		if _, ok := d.state.Get(key, slotKickoffTS); !ok {
			d.state.Put(key, slotKickoffTS, types.LongValue(e.GenerationTimestamp))
		}
		return nil, nil
	}

	if len(e.ObjectIdentifiers) == 0 || !d.Roster.IsBall(e.ObjectIdentifiers[0]) {
		return nil, nil
	}
	kickoff, ok := d.state.Get(key, slotKickoffTS)
	if !ok {
		return nil, nil
	}
	elapsed := (e.GenerationTimestamp - kickoff.Long) / 1000
	if elapsed < 0 {
		return nil, nil
	}
	last, seen := d.state.Get(key, slotLastSecond)
	if seen && last.Long == elapsed {
		return nil, nil
	}
	d.state.Put(key, slotLastSecond, types.LongValue(elapsed))
	return []*types.Element{derive(e, StreamMatchTimeProgressEvent, map[string]types.Value{
		"matchTimeSec": types.LongValue(elapsed),
	})}, nil
}

var _ graph.Operator = (*MatchTimeDetector)(nil)
