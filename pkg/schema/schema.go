// Package schema implements the tiny projection expression language: a
// schema maps a stream element to a scalar Value, used by filters
// (pkg/ops) and by the store operator to pick what gets written. A
// schema is compiled from its declarative form once, then applied
// repeatedly to many elements.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/types"
)

// Schema is a compiled projection expression. Construction happens once;
// Apply may be called concurrently across independent elements.
type Schema interface {
	Apply(e *types.Element) (types.Value, error)
	String() string
}

const component = "schema"

// streamNameSchema projects the element's stream name.
type streamNameSchema struct{}

func (streamNameSchema) Apply(e *types.Element) (types.Value, error) {
	return types.StringValue(e.StreamName), nil
}
func (streamNameSchema) String() string { return "streamName" }

// phaseSchema projects the element's phase; only meaningful for non-atomic
// event streams, but any element has a Phase field (PhaseNone otherwise).
type phaseSchema struct{}

func (phaseSchema) Apply(e *types.Element) (types.Value, error) {
	return types.PhaseValue(e.Phase), nil
}
func (phaseSchema) String() string { return "phase" }

// fieldValueSchema looks up a payload field by name.
type fieldValueSchema struct {
	Name     string
	Required bool
}

func (s fieldValueSchema) Apply(e *types.Element) (types.Value, error) {
	v, ok := e.Payload[s.Name]
	if !ok {
		if s.Required {
			return types.Value{}, streamerrors.Schema(component, "fieldValue",
				fmt.Sprintf("required payload field %q missing", s.Name), nil)
		}
		return types.NullValue(), nil
	}
	return v, nil
}
func (s fieldValueSchema) String() string {
	return fmt.Sprintf("fieldValue{%s,%v}", s.Name, s.Required)
}

// arraySource distinguishes which ordered identifier sequence arrayValue
// indexes into.
type arraySource int

const (
	sourceObjectIdentifiers arraySource = iota
	sourceGroupIdentifiers
)

type arrayValueSchema struct {
	Source   arraySource
	Index    int
	Required bool
}

func (s arrayValueSchema) slice(e *types.Element) []string {
	if s.Source == sourceObjectIdentifiers {
		return e.ObjectIdentifiers
	}
	return e.GroupIdentifiers
}

func (s arrayValueSchema) sourceName() string {
	if s.Source == sourceObjectIdentifiers {
		return "objectIdentifiers"
	}
	return "groupIdentifiers"
}

func (s arrayValueSchema) Apply(e *types.Element) (types.Value, error) {
	arr := s.slice(e)
	if s.Index < 0 || s.Index >= len(arr) {
		if s.Required {
			return types.Value{}, streamerrors.Schema(component, "arrayValue",
				fmt.Sprintf("index %d out of range for %s (len %d)", s.Index, s.sourceName(), len(arr)), nil)
		}
		return types.NullValue(), nil
	}
	return types.StringValue(arr[s.Index]), nil
}

func (s arrayValueSchema) String() string {
	return fmt.Sprintf("arrayValue{%s,%d,%v}", s.sourceName(), s.Index, s.Required)
}

// positionValueSchema projects positions[I] as a 3-vector.
type positionValueSchema struct {
	Index int
}

func (s positionValueSchema) Apply(e *types.Element) (types.Value, error) {
	if s.Index < 0 || s.Index >= len(e.Positions) {
		return types.Value{}, streamerrors.Schema(component, "positionValue",
			fmt.Sprintf("index %d out of range for positions (len %d)", s.Index, len(e.Positions)), nil)
	}
	return types.Vector3Value(e.Positions[s.Index]), nil
}
func (s positionValueSchema) String() string { return fmt.Sprintf("positionValue{%d}", s.Index) }

// Parse compiles one of the recognised schema forms into a
// Schema. It is a construction-time operation; a malformed expression is a
// configuration error, since schemas are wired up from worker config.
func Parse(expr string) (Schema, error) {
	expr = strings.TrimSpace(expr)
	name, args, hasArgs := splitCall(expr)

	switch name {
	case "streamName":
		return streamNameSchema{}, nil
	case "phase":
		return phaseSchema{}, nil
	case "fieldValue":
		if !hasArgs || len(args) != 2 {
			return nil, streamerrors.Config(component, "Parse", "fieldValue requires {NAME,REQUIRED}", nil)
		}
		required, err := strconv.ParseBool(args[1])
		if err != nil {
			return nil, streamerrors.Config(component, "Parse", "fieldValue REQUIRED must be a bool", err)
		}
		return fieldValueSchema{Name: args[0], Required: required}, nil
	case "arrayValue":
		if !hasArgs || len(args) != 3 {
			return nil, streamerrors.Config(component, "Parse", "arrayValue requires {SOURCE,I,REQUIRED}", nil)
		}
		var src arraySource
		switch args[0] {
		case "objectIdentifiers":
			src = sourceObjectIdentifiers
		case "groupIdentifiers":
			src = sourceGroupIdentifiers
		default:
			return nil, streamerrors.Config(component, "Parse", fmt.Sprintf("unknown arrayValue source %q", args[0]), nil)
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, streamerrors.Config(component, "Parse", "arrayValue index must be an int", err)
		}
		required, err := strconv.ParseBool(args[2])
		if err != nil {
			return nil, streamerrors.Config(component, "Parse", "arrayValue REQUIRED must be a bool", err)
		}
		return arrayValueSchema{Source: src, Index: idx, Required: required}, nil
	case "positionValue":
		if !hasArgs || len(args) != 1 {
			return nil, streamerrors.Config(component, "Parse", "positionValue requires {I}", nil)
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, streamerrors.Config(component, "Parse", "positionValue index must be an int", err)
		}
		return positionValueSchema{Index: idx}, nil
	default:
		return nil, streamerrors.Config(component, "Parse", fmt.Sprintf("unrecognised schema %q", expr), nil)
	}
}

// MustParse panics on a malformed schema. Reserved for wiring detector
// graphs from trusted, already-validated configuration at startup.
func MustParse(expr string) Schema {
	s, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// splitCall splits "name{a,b,c}" into ("name", []string{"a","b","c"}, true)
// or "name" into ("name", nil, false).
func splitCall(expr string) (name string, args []string, hasArgs bool) {
	open := strings.IndexByte(expr, '{')
	if open == -1 {
		return expr, nil, false
	}
	if !strings.HasSuffix(expr, "}") {
		return expr, nil, false
	}
	name = expr[:open]
	inner := expr[open+1 : len(expr)-1]
	if inner == "" {
		return name, []string{}, true
	}
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return name, parts, true
}
