package geometry

import (
	"math"
	"testing"
)

func TestDist2DIgnoresHeight(t *testing.T) {
	a := Vector3{X: 0, Y: 0, Z: 10}
	b := Vector3{X: 3, Y: 4, Z: -10}
	if got := Dist2D(a, b); math.Abs(got-5) > 1e-9 {
		t.Fatalf("Dist2D = %v, want 5", got)
	}
}

func TestAngleBetween2D(t *testing.T) {
	prev := Vector3{X: 1, Y: 0}
	cur := Vector3{X: 0, Y: 1}
	got := AngleBetween2D(prev, cur)
	if math.Abs(got-math.Pi/2) > 1e-9 {
		t.Fatalf("angle = %v, want pi/2", got)
	}
}

func TestBoundingRect(t *testing.T) {
	pts := []Vector3{{X: -1, Y: 2}, {X: 5, Y: -3}, {X: 0, Y: 0}}
	r := BoundingRect(pts)
	if r.MinX != -1 || r.MaxX != 5 || r.MinY != -3 || r.MaxY != 2 {
		t.Fatalf("unexpected rect: %+v", r)
	}
}

func TestConvexHullSquare(t *testing.T) {
	pts := []Vector3{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		{X: 5, Y: 5}, // interior point, must not appear on hull
	}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("expected 4 hull vertices, got %d: %+v", len(hull), hull)
	}
	area := PolygonArea(hull)
	if math.Abs(area-100) > 1e-6 {
		t.Fatalf("hull area = %v, want 100", area)
	}
}

func TestFinite(t *testing.T) {
	if !(Vector3{1, 2, 3}).Finite() {
		t.Fatal("expected finite")
	}
	if (Vector3{math.NaN(), 0, 0}).Finite() {
		t.Fatal("expected non-finite")
	}
}
