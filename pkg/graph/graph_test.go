package graph

import (
	"fmt"
	"testing"

	"streamteam/pkg/types"
)

func TestDepthFirstSiblingOrder(t *testing.T) {
	var order []string
	track := func(name string) Operator {
		return OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
			order = append(order, name)
			return []*types.Element{e}, nil
		})
	}

	g := NewGraph(nil)
	a := NewNode("a", track("a"))
	b := NewNode("b", track("b"))
	a1 := NewNode("a1", track("a1"))
	a2 := NewNode("a2", track("a2"))
	a.AddChild(a1).AddChild(a2)
	g.AddStart(a).AddStart(b)

	g.Process(&types.Element{Key: "m1"})

	want := []string{"a", "a1", "a2", "b"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("got %v want %v", order, want)
	}
}

func TestChildSeesParentOutputNotInput(t *testing.T) {
	g := NewGraph(nil)
	rename := OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
		out := e.Clone()
		out.StreamName = "renamed"
		return []*types.Element{out}, nil
	})
	var seen string
	child := NewNode("child", OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
		seen = e.StreamName
		return nil, nil
	}))
	root := NewNode("root", rename).AddChild(child)
	g.AddStart(root)

	g.Process(&types.Element{StreamName: "original"})
	if seen != "renamed" {
		t.Fatalf("child saw %q, want %q", seen, "renamed")
	}
}

func TestOperatorErrorDropsOnlyItsBranch(t *testing.T) {
	g := NewGraph(nil)
	var sawB bool
	failing := OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
		return nil, fmt.Errorf("boom")
	})
	b := NewNode("b", OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
		sawB = true
		return nil, nil
	}))
	g.AddStart(NewNode("a", failing))
	g.AddStart(b)

	g.Process(&types.Element{})
	if !sawB {
		t.Fatal("sibling should still run after another start node's operator errors")
	}
}

func TestOutputElementsCollectedInTraversalOrder(t *testing.T) {
	var collected []string
	g := NewGraph(nil)
	g.OnOutput = func(e *types.Element) { collected = append(collected, e.StreamName) }

	mkOutput := func(name string) Operator {
		return OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
			return []*types.Element{{StreamName: name, Category: types.Output}}, nil
		})
	}
	g.AddStart(NewNode("first", mkOutput("one")))
	g.AddStart(NewNode("second", mkOutput("two")))

	g.Process(&types.Element{})
	if fmt.Sprint(collected) != fmt.Sprint([]string{"one", "two"}) {
		t.Fatalf("got %v", collected)
	}
}

func TestWindowGraphTickFansOutSeeds(t *testing.T) {
	var seen []string
	wg := NewWindowGraph(nil)
	src := SourceFunc(func() ([]*types.Element, error) {
		return []*types.Element{{Key: "k1"}, {Key: "k2"}}, nil
	})
	child := NewNode("child", OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
		seen = append(seen, e.Key)
		return nil, nil
	}))
	wg.AddRoot(NewWindowRoot("root", src).AddChild(child))

	wg.Tick()
	if fmt.Sprint(seen) != fmt.Sprint([]string{"k1", "k2"}) {
		t.Fatalf("got %v", seen)
	}
}

func TestWindowGraphEmptySourceProducesNoOutputs(t *testing.T) {
	var calls int
	wg := NewWindowGraph(nil)
	src := SourceFunc(func() ([]*types.Element, error) { return nil, nil })
	child := NewNode("child", OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
		calls++
		return nil, nil
	}))
	wg.AddRoot(NewWindowRoot("root", src).AddChild(child))
	wg.Tick()
	if calls != 0 {
		t.Fatalf("expected no downstream calls for empty tick, got %d", calls)
	}
}
