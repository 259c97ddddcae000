// Package graph implements the build-phase pipeline graph.
//
// A Graph is the mutable, node-by-node form a pipeline takes while it is
// being constructed. Nodes and sources are keyed by opaque ids; positions
// in the linear instruction form (package ir) are plain ints. The two id
// spaces are deliberately distinct so a graph handle can never be confused
// with an instruction index.
//
// Construction is append-only: nodes are never deleted and ids are never
// reused. Structural edits happen on the linear form after linearization.
package graph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowforge/flowforge/pkg/op"
)

var (
	// ErrUnknownDependency is returned when a dependency references an id
	// that is neither a node nor a source of the graph.
	ErrUnknownDependency = errors.New("unknown dependency id")

	// ErrUnknownNode is returned when an operation references a node id
	// that does not exist in the graph.
	ErrUnknownNode = errors.New("unknown node id")

	// ErrUnknownSink is returned when a sink id has no mapping.
	ErrUnknownSink = errors.New("unknown sink id")

	// ErrNotEstimator is returned by [Graph.AddDelegate] when the
	// referenced node does not carry an estimator payload.
	ErrNotEstimator = errors.New("delegate target is not an estimator node")

	// ErrNilOperator is returned when a nil operator or estimator value
	// is added to the graph.
	ErrNilOperator = errors.New("operator must not be nil")

	// ErrGraphHasCycle is returned by [Graph.Validate] when the node
	// dependency relation contains a directed cycle.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// ID is an opaque handle for a graph node or source.
type ID string

// SinkID is an opaque handle for a graph output point.
type SinkID string

// External is the reserved id for the pipeline's own run-time input. It may
// appear in dependency lists like any source id, but it is not a member of
// the graph; linearization maps it to the SOURCE sentinel index.
const External ID = "__input__"

// PayloadKind discriminates the operator payload attached to a node.
type PayloadKind int

const (
	// PayloadOperator marks a node carrying an already-usable transformer.
	PayloadOperator PayloadKind = iota
	// PayloadEstimator marks a node carrying a trainable estimator.
	PayloadEstimator
	// PayloadDelegate marks a node whose operator is supplied at run time
	// by the fitted output of an estimator node elsewhere in the graph.
	PayloadDelegate
)

// String returns the payload kind name used in diagnostics and serialization.
func (k PayloadKind) String() string {
	switch k {
	case PayloadOperator:
		return "operator"
	case PayloadEstimator:
		return "estimator"
	case PayloadDelegate:
		return "delegate"
	default:
		return fmt.Sprintf("payload(%d)", int(k))
	}
}

// Payload is the operator value carried by a node.
// Exactly one of Op, Est, Delegate is meaningful, selected by Kind.
type Payload struct {
	Kind     PayloadKind
	Op       op.Transformer // PayloadOperator
	Est      op.Estimator   // PayloadEstimator
	Delegate ID             // PayloadDelegate: the estimator node id
	Label    string         // diagnostic name
}

// Node is a vertex of the build-phase graph.
//
// Dependencies are split by kind: DataDeps are the inputs the node's
// operator consumes, FitDeps reference the estimator node whose fitted
// output supplies a delegating node's behavior. Entries are node ids,
// source ids, or [External].
type Node struct {
	ID       ID
	Payload  Payload
	DataDeps []ID
	FitDeps  []ID
}

// Dependencies returns the node's combined dependency list, fit deps first.
// This is the visit order used by linearization.
func (n *Node) Dependencies() []ID {
	deps := make([]ID, 0, len(n.FitDeps)+len(n.DataDeps))
	deps = append(deps, n.FitDeps...)
	deps = append(deps, n.DataDeps...)
	return deps
}

// Graph is the build-phase pipeline graph.
// The zero value is not usable - use New. Graph is not safe for concurrent
// mutation without external synchronization; read-only snapshots may be
// shared freely.
type Graph struct {
	nodes   map[ID]*Node
	order   []ID // node insertion order, for deterministic traversal
	sources map[ID]bool
	sinks   map[SinkID]ID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[ID]*Node),
		sources: make(map[ID]bool),
		sinks:   make(map[SinkID]ID),
	}
}

// AddSource registers a new external-input placeholder and returns its id.
// Sources have no dependencies and no payload.
func (g *Graph) AddSource() ID {
	id := ID(uuid.NewString())
	g.sources[id] = true
	return id
}

// AddOperator adds a node carrying a transformer and returns its id.
func (g *Graph) AddOperator(t op.Transformer, deps ...ID) (ID, error) {
	if t == nil {
		return "", ErrNilOperator
	}
	return g.addNode(Payload{Kind: PayloadOperator, Op: t, Label: op.NameOf(t)}, deps, nil)
}

// AddEstimator adds a node carrying a trainable estimator and returns its id.
func (g *Graph) AddEstimator(e op.Estimator, deps ...ID) (ID, error) {
	if e == nil {
		return "", ErrNilOperator
	}
	return g.addNode(Payload{Kind: PayloadEstimator, Est: e, Label: op.NameOf(e)}, deps, nil)
}

// AddDelegate adds a late-bound node whose operator is the fitted output of
// the estimator node est. The node's data dependencies are deps.
func (g *Graph) AddDelegate(est ID, deps ...ID) (ID, error) {
	target, ok := g.nodes[est]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, est)
	}
	if target.Payload.Kind != PayloadEstimator {
		return "", fmt.Errorf("%w: %s is %s", ErrNotEstimator, est, target.Payload.Kind)
	}
	label := fmt.Sprintf("%s.fitted", target.Payload.Label)
	return g.addNode(Payload{Kind: PayloadDelegate, Delegate: est, Label: label}, deps, []ID{est})
}

func (g *Graph) addNode(p Payload, dataDeps, fitDeps []ID) (ID, error) {
	for _, dep := range dataDeps {
		if !g.Has(dep) {
			return "", fmt.Errorf("%w: %s", ErrUnknownDependency, dep)
		}
	}
	id := ID(uuid.NewString())
	n := &Node{ID: id, Payload: p}
	n.DataDeps = append(n.DataDeps, dataDeps...)
	n.FitDeps = append(n.FitDeps, fitDeps...)
	g.nodes[id] = n
	g.order = append(g.order, id)
	return id, nil
}

// ReplaceDataDeps rebinds a node's data dependencies. Node addition is
// append-only, but compiling a linear program back into graph form needs
// this: a fit instruction's dependency list supersedes the estimator
// declaration it targets.
func (g *Graph) ReplaceDataDeps(id ID, deps ...ID) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	for _, dep := range deps {
		if !g.Has(dep) {
			return fmt.Errorf("%w: %s", ErrUnknownDependency, dep)
		}
	}
	n.DataDeps = append([]ID(nil), deps...)
	return nil
}

// AddSink exposes target as a pipeline output and returns the sink handle.
func (g *Graph) AddSink(target ID) (SinkID, error) {
	if !g.Has(target) || target == External {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, target)
	}
	sink := SinkID(uuid.NewString())
	g.sinks[sink] = target
	return sink, nil
}

// Has reports whether id is a node, a source, or the External placeholder.
func (g *Graph) Has(id ID) bool {
	if id == External {
		return true
	}
	if _, ok := g.nodes[id]; ok {
		return true
	}
	return g.sources[id]
}

// IsSource reports whether id is a registered source placeholder.
func (g *Graph) IsSource(id ID) bool { return g.sources[id] }

// Node returns the node with the given id, or false if it does not exist.
func (g *Graph) Node(id ID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all node ids in insertion order.
func (g *Graph) Nodes() []ID {
	out := make([]ID, len(g.order))
	copy(out, g.order)
	return out
}

// Sources returns all source ids. The order is not guaranteed.
func (g *Graph) Sources() []ID {
	out := make([]ID, 0, len(g.sources))
	for id := range g.sources {
		out = append(out, id)
	}
	return out
}

// Sinks returns all sink handles. The order is not guaranteed.
func (g *Graph) Sinks() []SinkID {
	out := make([]SinkID, 0, len(g.sinks))
	for s := range g.sinks {
		out = append(out, s)
	}
	return out
}

// SinkTarget returns the node a sink exposes.
func (g *Graph) SinkTarget(sink SinkID) (ID, error) {
	target, ok := g.sinks[sink]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSink, sink)
	}
	return target, nil
}

// OnlySink returns the graph's single sink handle. It fails when the graph
// has zero or several sinks, in which case the caller must pick one
// explicitly.
func (g *Graph) OnlySink() (SinkID, error) {
	if len(g.sinks) != 1 {
		return "", fmt.Errorf("%w: graph has %d sinks", ErrUnknownSink, len(g.sinks))
	}
	var sink SinkID
	for s := range g.sinks {
		sink = s
	}
	return sink, nil
}

// NodeCount returns the number of nodes (sources excluded).
func (g *Graph) NodeCount() int { return len(g.nodes) }

// SourceCount returns the number of source placeholders.
func (g *Graph) SourceCount() int { return len(g.sources) }

// Validate checks graph integrity: every dependency and sink target must
// exist, delegate references must point at estimator nodes, and the node
// dependency relation must be acyclic.
//
// Cycle detection uses an iterative depth-first search with an explicit
// stack, so arbitrarily deep graphs do not exhaust goroutine stack space.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		n := g.nodes[id]
		for _, dep := range n.Dependencies() {
			if !g.Has(dep) {
				return fmt.Errorf("node %s: %w: %s", id, ErrUnknownDependency, dep)
			}
		}
		if n.Payload.Kind == PayloadDelegate {
			target, ok := g.nodes[n.Payload.Delegate]
			if !ok {
				return fmt.Errorf("node %s: %w: %s", id, ErrUnknownNode, n.Payload.Delegate)
			}
			if target.Payload.Kind != PayloadEstimator {
				return fmt.Errorf("node %s: %w", id, ErrNotEstimator)
			}
		}
	}
	for sink, target := range g.sinks {
		if !g.Has(target) {
			return fmt.Errorf("sink %s: %w: %s", sink, ErrUnknownNode, target)
		}
	}
	return g.detectCycles()
}

func (g *Graph) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[ID]int, len(g.nodes))

	// Iterative white/gray/black DFS. Frames stay on the stack until all
	// children are done so they can be blackened in post-order.
	type frame struct {
		id   ID
		next int
	}

	for _, start := range g.order {
		if color[start] != white {
			continue
		}
		color[start] = gray
		stack := []frame{{id: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.nodes[top.id].Dependencies()
			advanced := false
			for top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				if _, ok := g.nodes[dep]; !ok {
					continue // sources cannot participate in cycles
				}
				switch color[dep] {
				case white:
					color[dep] = gray
					stack = append(stack, frame{id: dep})
					advanced = true
				case gray:
					return fmt.Errorf("%w: via node %s", ErrGraphHasCycle, dep)
				}
				if advanced {
					break
				}
			}
			if !advanced {
				color[top.id] = black
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}
