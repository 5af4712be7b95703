package schema

import (
	"reflect"
	"testing"

	"streamteam/pkg/geometry"
	"streamteam/pkg/types"
)

func elem() *types.Element {
	return &types.Element{
		StreamName:        "fieldObjectState",
		ObjectIdentifiers: []string{"ball", "p1"},
		GroupIdentifiers:  []string{"teamA"},
		Positions:         []geometry.Vector3{{X: 1, Y: 2, Z: 0}},
		Payload:           map[string]types.Value{"speed": types.DoubleValue(4.2)},
		Phase:             types.PhaseActive,
	}
}

func TestStreamNameAndPhase(t *testing.T) {
	e := elem()
	s, err := Parse("streamName")
	if err != nil {
		t.Fatal(err)
	}
	v, err := s.Apply(e)
	if err != nil || v.String != "fieldObjectState" {
		t.Fatalf("got %+v, err %v", v, err)
	}

	ph, err := Parse("phase")
	if err != nil {
		t.Fatal(err)
	}
	v, err = ph.Apply(e)
	if err != nil || v.Phase != types.PhaseActive {
		t.Fatalf("got %+v, err %v", v, err)
	}
}

func TestFieldValueRequiredMissing(t *testing.T) {
	e := elem()
	s, err := Parse("fieldValue{speed,true}")
	if err != nil {
		t.Fatal(err)
	}
	v, err := s.Apply(e)
	if err != nil || v.Double != 4.2 {
		t.Fatalf("got %+v err %v", v, err)
	}

	missing, _ := Parse("fieldValue{missing,true}")
	if _, err := missing.Apply(e); err == nil {
		t.Fatal("expected schema error for missing required field")
	}

	optional, _ := Parse("fieldValue{missing,false}")
	v, err = optional.Apply(e)
	if err != nil || !v.IsNull() {
		t.Fatalf("expected null, got %+v err %v", v, err)
	}
}

func TestArrayValueOutOfRange(t *testing.T) {
	e := elem()
	s, _ := Parse("arrayValue{objectIdentifiers,1,true}")
	v, err := s.Apply(e)
	if err != nil || v.String != "p1" {
		t.Fatalf("got %+v err %v", v, err)
	}

	oob, _ := Parse("arrayValue{objectIdentifiers,5,true}")
	if _, err := oob.Apply(e); err == nil {
		t.Fatal("expected out-of-range schema error")
	}
}

func TestPositionValue(t *testing.T) {
	e := elem()
	s, _ := Parse("positionValue{0}")
	v, err := s.Apply(e)
	if err != nil || v.Vector3.X != 1 || v.Vector3.Y != 2 {
		t.Fatalf("got %+v err %v", v, err)
	}
}

func TestSchemaDeterministic(t *testing.T) {
	e := elem()
	s, _ := Parse("fieldValue{speed,true}")
	a, _ := s.Apply(e)
	b, _ := s.Apply(e)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("schema not deterministic: %+v vs %+v", a, b)
	}
}

func TestInnerKeyStaticAndExpr(t *testing.T) {
	e := elem()
	k, err := ParseInnerKey("STATIC")
	if err != nil {
		t.Fatal(err)
	}
	s, err := k.Resolve(e)
	if err != nil || s != "" {
		t.Fatalf("want empty static inner key, got %q", s)
	}

	k2, err := ParseInnerKey("EXPR(arrayValue{objectIdentifiers,0,true})")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := k2.Resolve(e)
	if err != nil || s2 != "ball" {
		t.Fatalf("got %q err %v", s2, err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	if _, err := Parse("fieldValue{onlyone}"); err == nil {
		t.Fatal("expected error for wrong arity")
	}
	if _, err := Parse("notAThing"); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}
