package types

import (
	"fmt"

	"streamteam/pkg/geometry"
)

// ValueKind tags which concrete Go type a Value currently holds. The set
// is closed so stores and schemas can switch exhaustively instead of
// doing interface type assertions everywhere.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindLong
	KindDouble
	KindString
	KindBool
	KindVector3
	KindPhase
	KindPossession
	KindLongList
	KindDoubleList
	KindStringList
	KindVector3List
)

// PossessionInfo is the payload carried by a ballPossessionChangeEvent:
// either both PlayerID and TeamID are set, or neither is.
type PossessionInfo struct {
	PlayerID string
	TeamID   string
}

// Value is the closed variant every state store and schema projection
// produces. Only one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind        ValueKind
	Long        int64
	Double      float64
	String      string
	Bool        bool
	Vector3     geometry.Vector3
	Phase       Phase
	Possession  PossessionInfo
	LongList    []int64
	DoubleList  []float64
	StringList  []string
	Vector3List []geometry.Vector3
}

func NullValue() Value                    { return Value{Kind: KindNull} }
func LongValue(v int64) Value             { return Value{Kind: KindLong, Long: v} }
func DoubleValue(v float64) Value         { return Value{Kind: KindDouble, Double: v} }
func StringValue(v string) Value          { return Value{Kind: KindString, String: v} }
func BoolValue(v bool) Value              { return Value{Kind: KindBool, Bool: v} }
func Vector3Value(v geometry.Vector3) Value { return Value{Kind: KindVector3, Vector3: v} }
func PhaseValue(v Phase) Value            { return Value{Kind: KindPhase, Phase: v} }
func PossessionValue(v PossessionInfo) Value {
	return Value{Kind: KindPossession, Possession: v}
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsLong returns the long value, or an error if v does not hold a long.
func (v Value) AsLong() (int64, error) {
	if v.Kind != KindLong {
		return 0, fmt.Errorf("value kind %v is not a long", v.Kind)
	}
	return v.Long, nil
}

// AsDouble returns the double value, or an error if v does not hold a double.
func (v Value) AsDouble() (float64, error) {
	if v.Kind != KindDouble {
		return 0, fmt.Errorf("value kind %v is not a double", v.Kind)
	}
	return v.Double, nil
}

// Numeric reports whether v can participate in Increase (Long or Double).
func (v Value) Numeric() bool {
	return v.Kind == KindLong || v.Kind == KindDouble
}

// Add returns v + delta for Long/Double kinds; it is the implementation
// behind the single-value store's Increase operation, which is defined
// only for numeric variants.
func (v Value) Add(delta Value) (Value, error) {
	switch v.Kind {
	case KindLong:
		d, err := delta.AsLong()
		if err != nil {
			return Value{}, err
		}
		return LongValue(v.Long + d), nil
	case KindDouble:
		d, err := delta.AsDouble()
		if err != nil {
			return Value{}, err
		}
		return DoubleValue(v.Double + d), nil
	default:
		return Value{}, fmt.Errorf("increase not defined for value kind %v", v.Kind)
	}
}
