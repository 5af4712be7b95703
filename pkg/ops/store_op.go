package ops

import (
	"fmt"

	"github.com/sirupsen/logrus"

	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/graph"
	"streamteam/pkg/schema"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// SingleEntry binds a projection to a single-value store: on each input
// the schema result is written at (element key, resolved inner key).
type SingleEntry struct {
	Schema   schema.Schema
	InnerKey schema.InnerKey
	Kind     types.ValueKind
	Target   *store.SingleValueStore
}

// HistoryEntry binds a projection to a history store; results are
// appended newest-first.
type HistoryEntry struct {
	Schema   schema.Schema
	InnerKey schema.InnerKey
	Kind     types.ValueKind
	Target   *store.HistoryStore
}

// StoreOp applies every configured entry's schema to each input element
// and writes the result to the bound store. A type mismatch is logged as
// a storage error; the element is still forwarded when Forward is set.
type StoreOp struct {
	Singles   []SingleEntry
	Histories []HistoryEntry
	Forward   bool
	Logger    logrus.FieldLogger
}

// Process writes every entry, then forwards or drops the input element.
func (s *StoreOp) Process(e *types.Element) ([]*types.Element, error) {
	for i, entry := range s.Singles {
		if err := s.writeSingle(e, entry); err != nil {
			s.logEntryError(e, "single", i, err)
		}
	}
	for i, entry := range s.Histories {
		if err := s.writeHistory(e, entry); err != nil {
			s.logEntryError(e, "history", i, err)
		}
	}
	if !s.Forward {
		return nil, nil
	}
	return []*types.Element{e}, nil
}

func (s *StoreOp) writeSingle(e *types.Element, entry SingleEntry) error {
	v, err := entry.Schema.Apply(e)
	if err != nil {
		return err
	}
	if err := checkKind(v, entry.Kind); err != nil {
		return err
	}
	innerKey, err := entry.InnerKey.Resolve(e)
	if err != nil {
		return err
	}
	entry.Target.Put(e.Key, innerKey, v)
	return nil
}

func (s *StoreOp) writeHistory(e *types.Element, entry HistoryEntry) error {
	v, err := entry.Schema.Apply(e)
	if err != nil {
		return err
	}
	if err := checkKind(v, entry.Kind); err != nil {
		return err
	}
	innerKey, err := entry.InnerKey.Resolve(e)
	if err != nil {
		return err
	}
	entry.Target.Add(e.Key, innerKey, v)
	return nil
}

func checkKind(v types.Value, want types.ValueKind) error {
	if v.Kind == types.KindNull || v.Kind == want {
		return nil
	}
	return streamerrors.Store(component, "StoreOp",
		fmt.Sprintf("projected value kind %v does not match expected %v", v.Kind, want), nil)
}

func (s *StoreOp) logEntryError(e *types.Element, which string, idx int, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithFields(logrus.Fields{
		"entry":  fmt.Sprintf("%s[%d]", which, idx),
		"key":    e.Key,
		"stream": e.StreamName,
	}).WithError(err).Warn("store entry write failed")
}

var _ graph.Operator = (*StoreOp)(nil)
