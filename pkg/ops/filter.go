// Package ops implements the generic operators that sit between ingress
// and the detectors: element filters, the store operator, and the two
// halves of the active-keys mechanism. These are the routing and
// bookkeeping nodes of a task's processor graph; the football-specific
// operators live in pkg/detectors.
package ops

import (
	"fmt"

	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/graph"
	"streamteam/pkg/schema"
	"streamteam/pkg/types"
)

const component = "ops"

// MatchMode selects how a filter combines its predicates.
type MatchMode int

const (
	// MatchAll passes an element only if every predicate holds.
	MatchAll MatchMode = iota
	// MatchAny passes an element if at least one predicate holds.
	MatchAny
)

// PredicateForm is the comparison a single predicate performs.
type PredicateForm int

const (
	Equality PredicateForm = iota
	Inequality
	ContainedInSet
)

// Predicate pairs a projection schema with an expected value (Equality,
// Inequality) or an expected set (ContainedInSet).
type Predicate struct {
	Schema   schema.Schema
	Form     PredicateForm
	Expected types.Value
	Set      []types.Value
}

// Filter passes or drops elements based on its predicates. Floating-point
// expectations are rejected at construction time since equality on
// doubles is ill-defined.
type Filter struct {
	mode  MatchMode
	preds []Predicate
}

// NewFilter validates the predicates and builds a Filter. An empty
// predicate list defaults to pass-everything.
func NewFilter(mode MatchMode, preds []Predicate) (*Filter, error) {
	for i, p := range preds {
		if p.Schema == nil {
			return nil, streamerrors.Config(component, "NewFilter",
				fmt.Sprintf("predicate %d has no schema", i), nil)
		}
		if floatingPoint(p.Expected) {
			return nil, streamerrors.Config(component, "NewFilter",
				fmt.Sprintf("predicate %d compares a floating-point value", i), nil)
		}
		for _, sv := range p.Set {
			if floatingPoint(sv) {
				return nil, streamerrors.Config(component, "NewFilter",
					fmt.Sprintf("predicate %d set contains a floating-point value", i), nil)
			}
		}
		if p.Form == ContainedInSet && len(p.Set) == 0 {
			return nil, streamerrors.Config(component, "NewFilter",
				fmt.Sprintf("predicate %d is ContainedInSet with an empty set", i), nil)
		}
	}
	return &Filter{mode: mode, preds: preds}, nil
}

func floatingPoint(v types.Value) bool {
	return v.Kind == types.KindDouble || v.Kind == types.KindDoubleList ||
		v.Kind == types.KindVector3 || v.Kind == types.KindVector3List
}

// Process returns exactly the input element (pass) or nothing (drop).
func (f *Filter) Process(e *types.Element) ([]*types.Element, error) {
	if len(f.preds) == 0 {
		return []*types.Element{e}, nil
	}
	matched := 0
	for _, p := range f.preds {
		ok, err := p.evaluate(e)
		if err != nil {
			return nil, err
		}
		if ok {
			matched++
		} else if f.mode == MatchAll {
			return nil, nil
		}
	}
	if f.mode == MatchAny && matched == 0 {
		return nil, nil
	}
	return []*types.Element{e}, nil
}

func (p Predicate) evaluate(e *types.Element) (bool, error) {
	v, err := p.Schema.Apply(e)
	if err != nil {
		return false, err
	}
	switch p.Form {
	case Equality:
		return valueEqual(v, p.Expected), nil
	case Inequality:
		return !valueEqual(v, p.Expected), nil
	case ContainedInSet:
		for _, sv := range p.Set {
			if valueEqual(v, sv) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, streamerrors.Config(component, "evaluate", "unknown predicate form", nil)
	}
}

// valueEqual compares the non-floating-point value kinds a filter may
// see. Floating-point kinds are rejected at construction; the remaining
// list kinds are not compared and simply compare unequal here.
func valueEqual(a, b types.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case types.KindNull:
		return true
	case types.KindLong:
		return a.Long == b.Long
	case types.KindString:
		return a.String == b.String
	case types.KindBool:
		return a.Bool == b.Bool
	case types.KindPhase:
		return a.Phase == b.Phase
	case types.KindPossession:
		return a.Possession == b.Possession
	default:
		return false
	}
}

var _ graph.Operator = (*Filter)(nil)
