package types

import (
	"reflect"
	"testing"

	"streamteam/pkg/geometry"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ingest := int64(1000)
	seq := int64(42)
	e := &Element{
		StreamName:          "fieldObjectState",
		Key:                 "match-1",
		GenerationTimestamp: 12345,
		IngestTimestamp:     &ingest,
		ProcessingTimestamp: 12400,
		SequenceNumber:      &seq,
		ObjectIdentifiers:   []string{"ball"},
		GroupIdentifiers:    []string{"teamA"},
		Positions:           []geometry.Vector3{{X: 1.5, Y: -2.5, Z: 0}},
		Payload: map[string]Value{
			"speed": DoubleValue(3.14),
			"count": LongValue(7),
			"name":  StringValue("p1"),
			"flag":  BoolValue(true),
		},
		Category: Output,
		Phase:    PhaseActive,
	}

	bytes, err := Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(bytes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(e, got) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, e)
	}
}

func TestIsIngress(t *testing.T) {
	ingest := int64(5)
	seq := int64(1)
	e := &Element{IngestTimestamp: &ingest, SequenceNumber: &seq}
	if !e.IsIngress() {
		t.Fatal("expected ingress element")
	}
	internal := &Element{Category: Internal}
	if internal.IsIngress() {
		t.Fatal("internal element must not be considered ingress")
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := &Element{
		ObjectIdentifiers: []string{"a"},
		Payload:           map[string]Value{"x": LongValue(1)},
	}
	clone := e.Clone()
	clone.ObjectIdentifiers[0] = "mutated"
	clone.Payload["x"] = LongValue(999)
	if e.ObjectIdentifiers[0] != "a" {
		t.Fatal("clone aliased ObjectIdentifiers")
	}
	v := e.Payload["x"]
	if v.Long != 1 {
		t.Fatal("clone aliased Payload")
	}
}

func TestValueAddNumeric(t *testing.T) {
	v, err := LongValue(3).Add(LongValue(4))
	if err != nil || v.Long != 7 {
		t.Fatalf("long add failed: %v %+v", err, v)
	}
	if _, err := StringValue("x").Add(LongValue(1)); err == nil {
		t.Fatal("expected error adding to non-numeric value")
	}
}
