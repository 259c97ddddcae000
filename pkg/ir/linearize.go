package ir

import (
	"fmt"

	"github.com/flowforge/flowforge/pkg/graph"
)

// Linearize converts a graph into an ordered instruction sequence rooted
// at the given sink.
//
// The traversal is a depth-first post-order walk from the sink: a node's
// dependencies (fit deps first, then data deps) are fully emitted before
// the node itself, so the resulting sequence satisfies the
// no-forward-reference invariant by construction. Shared producers are
// emitted once; the [graph.External] placeholder resolves to
// [SourceIndex] and each reachable source placeholder emits one source
// instruction.
//
// Emission per node payload:
//   - operator node: an operator declaration immediately followed by an
//     apply referencing it and the node's resolved data deps
//   - estimator node: an estimator declaration immediately followed by a
//     fit referencing it and the node's resolved data deps
//   - delegating node: a single apply whose target is the already-emitted
//     fit of the referenced estimator
//
// The walk uses an explicit work stack rather than recursion, so pipeline
// depth is bounded by memory, not goroutine stack size.
func Linearize(g *graph.Graph, sink graph.SinkID) ([]Instruction, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("linearize: %w", err)
	}
	root, err := g.SinkTarget(sink)
	if err != nil {
		return nil, fmt.Errorf("linearize: %w", err)
	}

	index := map[graph.ID]int{graph.External: SourceIndex}
	var instrs []Instruction

	// emitSource indexes a source placeholder on first visit.
	emitSource := func(id graph.ID) {
		if _, done := index[id]; done {
			return
		}
		instrs = append(instrs, Source())
		index[id] = len(instrs) - 1
	}

	if g.IsSource(root) {
		emitSource(root)
		return instrs, nil
	}

	type frame struct {
		id   graph.ID
		next int
	}
	stack := []frame{{id: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if _, done := index[top.id]; done {
			stack = stack[:len(stack)-1]
			continue
		}
		n, ok := g.Node(top.id)
		if !ok {
			return nil, fmt.Errorf("linearize: %w: %s", graph.ErrUnknownNode, top.id)
		}

		deps := n.Dependencies()
		pushed := false
		for top.next < len(deps) {
			dep := deps[top.next]
			top.next++
			if _, done := index[dep]; done {
				continue
			}
			if g.IsSource(dep) {
				emitSource(dep)
				continue
			}
			stack = append(stack, frame{id: dep})
			pushed = true
			break
		}
		if pushed {
			continue
		}

		// All dependencies indexed: emit the node itself.
		inputs := make([]int, len(n.DataDeps))
		for i, dep := range n.DataDeps {
			inputs[i] = index[dep]
		}
		switch n.Payload.Kind {
		case graph.PayloadOperator:
			decl := Operator(n.Payload.Op)
			decl.Label = n.Payload.Label
			instrs = append(instrs, decl)
			instrs = append(instrs, Apply(len(instrs)-1, inputs...))
		case graph.PayloadEstimator:
			decl := Estimator(n.Payload.Est)
			decl.Label = n.Payload.Label
			instrs = append(instrs, decl)
			instrs = append(instrs, Fit(len(instrs)-1, inputs...))
		case graph.PayloadDelegate:
			fitIdx, done := index[n.Payload.Delegate]
			if !done {
				// Validate() guarantees the delegate target is a node;
				// fit deps are visited before data deps, so it is indexed.
				return nil, fmt.Errorf("linearize: %w: %s", graph.ErrUnknownNode, n.Payload.Delegate)
			}
			instrs = append(instrs, Apply(fitIdx, inputs...))
		default:
			return nil, fmt.Errorf("linearize: node %s: unknown payload kind %s", n.ID, n.Payload.Kind)
		}
		index[top.id] = len(instrs) - 1
		stack = stack[:len(stack)-1]
	}

	return instrs, nil
}
