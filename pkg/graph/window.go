package graph

import (
	"github.com/sirupsen/logrus"

	"streamteam/pkg/types"
)

// Source is a window-graph root operator: unlike Operator, it takes no
// input element and instead produces seed elements on every tick, which
// its children then consume.
type Source interface {
	Emit() ([]*types.Element, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() ([]*types.Element, error)

func (f SourceFunc) Emit() ([]*types.Element, error) { return f() }

// WindowRoot is a window-graph root: a Source plus the ordinary
// single-element children that consume its seed elements.
type WindowRoot struct {
	Label    string
	Src      Source
	Children []*Node
}

// NewWindowRoot constructs a window-graph root node.
func NewWindowRoot(label string, src Source) *WindowRoot {
	return &WindowRoot{Label: label, Src: src}
}

func (r *WindowRoot) AddChild(child *Node) *WindowRoot {
	r.Children = append(r.Children, child)
	return r
}

// WindowGraph is the parallel DAG invoked on a periodic timer. It
// shares Node/Operator with Graph; only the roots differ.
type WindowGraph struct {
	Roots    []*WindowRoot
	Logger   logrus.FieldLogger
	OnOutput func(*types.Element)
}

func NewWindowGraph(logger logrus.FieldLogger) *WindowGraph {
	return &WindowGraph{Logger: logger}
}

func (g *WindowGraph) AddRoot(r *WindowRoot) *WindowGraph {
	g.Roots = append(g.Roots, r)
	return g
}

// Tick fires every window root's Source in declared order and propagates
// each seed element depth-first through that root's children, exactly as
// Graph.Process does for single-element graphs.
func (g *WindowGraph) Tick() {
	inner := &Graph{Logger: g.Logger, OnOutput: g.OnOutput}
	for _, r := range g.Roots {
		seeds, err := r.Src.Emit()
		if err != nil {
			if g.Logger != nil {
				g.Logger.WithField("root", r.Label).WithError(err).Warn("window source failed")
			}
			continue
		}
		for _, seed := range seeds {
			if seed.Category == types.Output && g.OnOutput != nil {
				g.OnOutput(seed)
			}
			inner.processNodes(r.Children, seed)
		}
	}
}
