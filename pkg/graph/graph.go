// Package graph implements the single-element and window processor
// graphs: a directed, parent-to-child (acyclic by construction) tree of
// operators, evaluated depth-first and single-threaded per input
// element, so one parent can fan out to several filter, store and
// detector children.
package graph

import (
	"github.com/sirupsen/logrus"

	"streamteam/internal/metrics"
	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/types"
)

// Operator is the capability every graph node wraps: given one input
// element, it returns zero or more output elements. Implementations never
// mutate shared state outside their own bound stores.
type Operator interface {
	Process(e *types.Element) ([]*types.Element, error)
}

// OperatorFunc adapts a plain function to Operator.
type OperatorFunc func(e *types.Element) ([]*types.Element, error)

func (f OperatorFunc) Process(e *types.Element) ([]*types.Element, error) { return f(e) }

// Node is a graph element: one operator plus its ordered children. The
// graph is built parent-to-child only; there is no way to express a cycle
// through this type.
type Node struct {
	Label    string // for logging/metrics only
	Op       Operator
	Children []*Node
}

// NewNode constructs a leaf node; use AddChild to attach children.
func NewNode(label string, op Operator) *Node {
	return &Node{Label: label, Op: op}
}

// AddChild appends child to n's ordered child list and returns n, so
// graphs can be assembled fluently.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// Graph is a single-element processor graph: one or more start nodes,
// evaluated in declared order for every input element.
type Graph struct {
	Starts []*Node
	Logger logrus.FieldLogger
	// OnOutput is invoked, in traversal order, for every element of
	// Category == Output produced anywhere in the graph. Internal
	// elements are never passed here; they only ever reach a node's
	// children.
	OnOutput func(*types.Element)
}

// NewGraph constructs an empty graph; call AddStart to add roots.
func NewGraph(logger logrus.FieldLogger) *Graph {
	return &Graph{Logger: logger}
}

// AddStart registers a root node, evaluated after previously-added roots
// for the same input element.
func (g *Graph) AddStart(n *Node) *Graph {
	g.Starts = append(g.Starts, n)
	return g
}

// Process evaluates element through every start node in declared order,
// depth-first:
//
//	process(start_list, element):
//	  for s in start_list:
//	      outs = s.operator.process_element(element)
//	      for o in outs:
//	          process(s.children, o)
//
// A schema/store error raised by one operator drops that operator's
// output (and so its subtree) without affecting sibling start nodes or
// other branches; errors never travel past the operator boundary.
func (g *Graph) Process(element *types.Element) {
	g.processNodes(g.Starts, element)
}

func (g *Graph) processNodes(nodes []*Node, element *types.Element) {
	for _, n := range nodes {
		outs, err := n.Op.Process(element)
		if err != nil {
			kind, _ := streamerrors.KindOf(err)
			metrics.OperatorErrorsTotal.WithLabelValues(n.Label, string(kind)).Inc()
			if g.Logger != nil {
				g.Logger.WithFields(logrus.Fields{
					"node": n.Label, "key": element.Key, "stream": element.StreamName,
				}).WithError(err).Warn("operator failed, dropping element")
			}
			continue
		}
		for _, o := range outs {
			if o.Category == types.Output && g.OnOutput != nil {
				g.OnOutput(o)
			}
			g.processNodes(n.Children, o)
		}
	}
}
