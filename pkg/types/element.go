// Package types defines the core data structures that flow through the
// analytics runtime: the typed stream element, its category and phase
// tags, and the envelope contract used by ingress/egress.
package types

import (
	"encoding/json"
	"fmt"

	"streamteam/pkg/geometry"
)

// Category tags where an element sits relative to the worker boundary.
type Category int

const (
	// RawInput is an element decoded straight from an ingress envelope.
	RawInput Category = iota
	// Internal elements never cross a worker boundary (e.g. activeKeys).
	Internal
	// Output elements may be published on an egress stream.
	Output
)

func (c Category) String() string {
	switch c {
	case RawInput:
		return "RAW_INPUT"
	case Internal:
		return "INTERNAL"
	case Output:
		return "OUTPUT"
	default:
		return "UNKNOWN"
	}
}

// Phase tags a non-atomic event's position in its START/ACTIVE/END run.
// Elements whose stream is atomic (kicks, kickoffs, ...) leave Phase at
// its zero value, PhaseNone.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseStart
	PhaseActive
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "START"
	case PhaseActive:
		return "ACTIVE"
	case PhaseEnd:
		return "END"
	default:
		return "NONE"
	}
}

// Element is the common-header stream element every operator consumes.
// It is immutable after construction and is valid only for the duration
// of one graph evaluation; state store writes copy out of it, they never
// alias it.
type Element struct {
	StreamName string `json:"streamName"`
	Key        string `json:"key"`

	GenerationTimestamp int64  `json:"generationTimestamp"`
	IngestTimestamp     *int64 `json:"ingestTimestamp,omitempty"`
	ProcessingTimestamp int64  `json:"processingTimestamp"`
	SequenceNumber      *int64 `json:"sequenceNumber,omitempty"`

	ObjectIdentifiers []string           `json:"objectIdentifiers,omitempty"`
	GroupIdentifiers  []string           `json:"groupIdentifiers,omitempty"`
	Positions         []geometry.Vector3 `json:"positions,omitempty"`

	Payload map[string]Value `json:"payload,omitempty"`

	Category Category `json:"category"`
	Phase    Phase    `json:"phase,omitempty"`
}

// IsIngress reports whether e carries the ingest timestamp and sequence
// number that only ingress-decoded elements have; internal elements
// carry neither.
func (e *Element) IsIngress() bool {
	return e.IngestTimestamp != nil && e.SequenceNumber != nil
}

// Clone returns a deep copy of e, since Payload/Positions/identifier
// slices must not be aliased across operators that might mutate them
// when building a derived output element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	clone := *e
	if e.IngestTimestamp != nil {
		v := *e.IngestTimestamp
		clone.IngestTimestamp = &v
	}
	if e.SequenceNumber != nil {
		v := *e.SequenceNumber
		clone.SequenceNumber = &v
	}
	if e.ObjectIdentifiers != nil {
		clone.ObjectIdentifiers = append([]string(nil), e.ObjectIdentifiers...)
	}
	if e.GroupIdentifiers != nil {
		clone.GroupIdentifiers = append([]string(nil), e.GroupIdentifiers...)
	}
	if e.Positions != nil {
		clone.Positions = append([]geometry.Vector3(nil), e.Positions...)
	}
	if e.Payload != nil {
		clone.Payload = make(map[string]Value, len(e.Payload))
		for k, v := range e.Payload {
			clone.Payload[k] = v
		}
	}
	return &clone
}

// wireElement is the JSON-serialisable shape of Element used for the
// encode/decode round trip. Value isn't trivially
// JSON-marshalable as a tagged union, so it is flattened here.
type wireElement struct {
	StreamName          string             `json:"streamName"`
	Key                 string             `json:"key"`
	GenerationTimestamp int64              `json:"generationTimestamp"`
	IngestTimestamp     *int64             `json:"ingestTimestamp,omitempty"`
	ProcessingTimestamp int64              `json:"processingTimestamp"`
	SequenceNumber      *int64             `json:"sequenceNumber,omitempty"`
	ObjectIdentifiers   []string           `json:"objectIdentifiers,omitempty"`
	GroupIdentifiers    []string           `json:"groupIdentifiers,omitempty"`
	Positions           []geometry.Vector3 `json:"positions,omitempty"`
	Payload             map[string]wireValue `json:"payload,omitempty"`
	Category            int                `json:"category"`
	Phase               int                `json:"phase,omitempty"`
}

type wireValue struct {
	Kind        ValueKind          `json:"kind"`
	Long        int64              `json:"long,omitempty"`
	Double      float64            `json:"double,omitempty"`
	String      string             `json:"string,omitempty"`
	Bool        bool               `json:"bool,omitempty"`
	Vector3     geometry.Vector3   `json:"vector3,omitempty"`
	Phase       Phase              `json:"phase,omitempty"`
	Possession  PossessionInfo     `json:"possession,omitempty"`
	LongList    []int64            `json:"longList,omitempty"`
	DoubleList  []float64          `json:"doubleList,omitempty"`
	StringList  []string           `json:"stringList,omitempty"`
	Vector3List []geometry.Vector3 `json:"vector3List,omitempty"`
}

func toWireValue(v Value) wireValue {
	return wireValue{
		Kind: v.Kind, Long: v.Long, Double: v.Double, String: v.String, Bool: v.Bool,
		Vector3: v.Vector3, Phase: v.Phase, Possession: v.Possession,
		LongList: v.LongList, DoubleList: v.DoubleList, StringList: v.StringList,
		Vector3List: v.Vector3List,
	}
}

func fromWireValue(w wireValue) Value {
	return Value{
		Kind: w.Kind, Long: w.Long, Double: w.Double, String: w.String, Bool: w.Bool,
		Vector3: w.Vector3, Phase: w.Phase, Possession: w.Possession,
		LongList: w.LongList, DoubleList: w.DoubleList, StringList: w.StringList,
		Vector3List: w.Vector3List,
	}
}

// Encode serialises e to JSON bytes, the payload carried by the
// egress/ingress envelope contract.
func Encode(e *Element) ([]byte, error) {
	w := wireElement{
		StreamName: e.StreamName, Key: e.Key,
		GenerationTimestamp: e.GenerationTimestamp, IngestTimestamp: e.IngestTimestamp,
		ProcessingTimestamp: e.ProcessingTimestamp, SequenceNumber: e.SequenceNumber,
		ObjectIdentifiers: e.ObjectIdentifiers, GroupIdentifiers: e.GroupIdentifiers,
		Positions: e.Positions, Category: int(e.Category), Phase: int(e.Phase),
	}
	if e.Payload != nil {
		w.Payload = make(map[string]wireValue, len(e.Payload))
		for k, v := range e.Payload {
			w.Payload[k] = toWireValue(v)
		}
	}
	return json.Marshal(w)
}

// Decode parses payload bytes into an Element. It does not validate the
// stream name against an expected value; that check belongs to ingress.
func Decode(data []byte) (*Element, error) {
	var w wireElement
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode element: %w", err)
	}
	e := &Element{
		StreamName: w.StreamName, Key: w.Key,
		GenerationTimestamp: w.GenerationTimestamp, IngestTimestamp: w.IngestTimestamp,
		ProcessingTimestamp: w.ProcessingTimestamp, SequenceNumber: w.SequenceNumber,
		ObjectIdentifiers: w.ObjectIdentifiers, GroupIdentifiers: w.GroupIdentifiers,
		Positions: w.Positions, Category: Category(w.Category), Phase: Phase(w.Phase),
	}
	if w.Payload != nil {
		e.Payload = make(map[string]Value, len(w.Payload))
		for k, v := range w.Payload {
			e.Payload[k] = fromWireValue(v)
		}
	}
	return e, nil
}
