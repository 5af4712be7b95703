package store

import (
	"testing"

	"streamteam/pkg/types"
)

func TestSingleValuePutGet(t *testing.T) {
	s := NewSingleValueStore()
	s.Put("k1", "p1", types.LongValue(5))
	v, ok := s.Get("k1", "p1")
	if !ok || v.Long != 5 {
		t.Fatalf("got %+v ok=%v", v, ok)
	}
	if _, ok := s.Get("k1", "missing"); ok {
		t.Fatal("expected absent")
	}
}

func TestSingleValueDefaults(t *testing.T) {
	s := NewSingleValueStore()
	l, err := s.GetLong("k", "absent")
	if err != nil || l != 0 {
		t.Fatalf("want 0,nil got %v %v", l, err)
	}
	d, err := s.GetDouble("k", "absent")
	if err != nil || d != 0 {
		t.Fatalf("want 0,nil got %v %v", d, err)
	}
	b, err := s.GetBoolean("k", "absent")
	if err != nil || b != false {
		t.Fatalf("want false,nil got %v %v", b, err)
	}
}

func TestSingleValueWrongTypeFails(t *testing.T) {
	s := NewSingleValueStore()
	s.Put("k", "p", types.StringValue("x"))
	if _, err := s.GetLong("k", "p"); err == nil {
		t.Fatal("expected store error for type mismatch")
	}
}

func TestIncreaseNumeric(t *testing.T) {
	s := NewSingleValueStore()
	if err := s.Increase("k", "c", types.LongValue(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Increase("k", "c", types.LongValue(2)); err != nil {
		t.Fatal(err)
	}
	v, _ := s.Get("k", "c")
	if v.Long != 3 {
		t.Fatalf("want 3 got %v", v.Long)
	}
}

func TestIncreaseNonNumericFails(t *testing.T) {
	s := NewSingleValueStore()
	s.Put("k", "c", types.StringValue("x"))
	if err := s.Increase("k", "c", types.LongValue(1)); err == nil {
		t.Fatal("expected error increasing a non-numeric value")
	}
}

func TestSingleValueEvictKey(t *testing.T) {
	s := NewSingleValueStore()
	s.Put("k1", "a", types.LongValue(1))
	s.Put("k1", "b", types.LongValue(2))
	s.Put("k2", "a", types.LongValue(3))
	s.EvictKey("k1")
	if _, ok := s.Get("k1", "a"); ok {
		t.Fatal("k1/a should be evicted")
	}
	if _, ok := s.Get("k1", "b"); ok {
		t.Fatal("k1/b should be evicted")
	}
	if _, ok := s.Get("k2", "a"); !ok {
		t.Fatal("k2/a must survive eviction of k1")
	}
}

// Adding past the maximum keeps the newest entries, newest first.
func TestHistoryEviction(t *testing.T) {
	h := NewHistoryStore(3)
	h.Add("k", "i", int64(1))
	h.Add("k", "i", int64(2))
	h.Add("k", "i", int64(3))
	h.Add("k", "i", int64(4))

	got := h.GetList("k", "i")
	want := []interface{}{int64(4), int64(3), int64(2)}
	if len(got) != len(want) {
		t.Fatalf("len(got)=%d want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestHistoryNeverExceedsMax(t *testing.T) {
	h := NewHistoryStore(2)
	for i := 0; i < 50; i++ {
		h.Add("k", "i", i)
		if h.Len("k", "i") > 2 {
			t.Fatalf("history exceeded max length: %d", h.Len("k", "i"))
		}
	}
}

func TestTypedHistory(t *testing.T) {
	raw := NewHistoryStore(2)
	typed := NewTypedHistory[float64](raw)
	typed.Add("k", "i", 1.5)
	typed.Add("k", "i", 2.5)
	latest, ok := typed.GetLatest("k", "i")
	if !ok || latest != 2.5 {
		t.Fatalf("got %v ok=%v", latest, ok)
	}
	list := typed.GetList("k", "i")
	if len(list) != 2 || list[0] != 2.5 || list[1] != 1.5 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestRegistryEvictsAllStores(t *testing.T) {
	r := NewRegistry()
	sv := r.NewSingleValue()
	hs := r.NewHistory(3)
	sv.Put("k", "a", types.LongValue(1))
	hs.Add("k", "a", 1)
	r.EvictKey("k")
	if _, ok := sv.Get("k", "a"); ok {
		t.Fatal("single-value store should be evicted via registry")
	}
	if hs.Len("k", "a") != 0 {
		t.Fatal("history store should be evicted via registry")
	}
}
