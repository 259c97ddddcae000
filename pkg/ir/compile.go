package ir

import (
	"fmt"

	"github.com/flowforge/flowforge/pkg/graph"
)

// Compile converts an instruction sequence back into graph form. The last
// instruction becomes the sink.
//
// The conversion is a single left-to-right fold maintaining a remap from
// instruction index to graph id:
//   - source instructions become source placeholders
//   - operator and estimator declarations become nodes
//   - a fit reuses its estimator's node, rebinding it to the fit's inputs
//   - an apply targeting an operator becomes a new node carrying that
//     operator; an apply targeting a fit becomes a delegating node bound
//     to the fit's resolved node
//
// An apply targeting anything else is a structural violation and fails;
// the IR is malformed and the condition is not retryable.
func Compile(instrs []Instruction) (*graph.Graph, graph.SinkID, error) {
	if len(instrs) == 0 {
		return nil, "", fmt.Errorf("compile: %w", ErrEmptyProgram)
	}
	if err := Validate(instrs); err != nil {
		return nil, "", fmt.Errorf("compile: %w", err)
	}

	g := graph.New()
	ids := make([]graph.ID, len(instrs))

	mapDep := func(d int) graph.ID {
		if d == SourceIndex {
			return graph.External
		}
		return ids[d]
	}
	mapInputs := func(inputs []int) []graph.ID {
		deps := make([]graph.ID, len(inputs))
		for i, d := range inputs {
			deps[i] = mapDep(d)
		}
		return deps
	}

	for i, in := range instrs {
		switch in.Kind {
		case KindSource:
			ids[i] = g.AddSource()

		case KindOperator:
			id, err := g.AddOperator(in.Op)
			if err != nil {
				return nil, "", fmt.Errorf("compile: instruction %d: %w", i, err)
			}
			relabel(g, id, in.Label)
			ids[i] = id

		case KindEstimator:
			id, err := g.AddEstimator(in.Est)
			if err != nil {
				return nil, "", fmt.Errorf("compile: instruction %d: %w", i, err)
			}
			relabel(g, id, in.Label)
			ids[i] = id

		case KindFit:
			estID := ids[in.Target]
			if err := g.ReplaceDataDeps(estID, mapInputs(in.Inputs)...); err != nil {
				return nil, "", fmt.Errorf("compile: instruction %d: %w", i, err)
			}
			ids[i] = estID

		case KindApply:
			switch instrs[in.Target].Kind {
			case KindOperator:
				id, err := g.AddOperator(instrs[in.Target].Op, mapInputs(in.Inputs)...)
				if err != nil {
					return nil, "", fmt.Errorf("compile: instruction %d: %w", i, err)
				}
				relabel(g, id, instrs[in.Target].Label)
				ids[i] = id
			case KindFit:
				id, err := g.AddDelegate(ids[in.Target], mapInputs(in.Inputs)...)
				if err != nil {
					return nil, "", fmt.Errorf("compile: instruction %d: %w", i, err)
				}
				ids[i] = id
			default:
				// Validate() rejects this, but keep the fold defensive.
				return nil, "", fmt.Errorf("compile: instruction %d: %w: apply targets %s",
					i, ErrInvalidTarget, instrs[in.Target].Kind)
			}

		default:
			return nil, "", fmt.Errorf("compile: instruction %d: unknown kind %s", i, in.Kind)
		}
	}

	sink, err := g.AddSink(ids[len(ids)-1])
	if err != nil {
		return nil, "", fmt.Errorf("compile: %w", err)
	}
	return g, sink, nil
}

// relabel restores a declaration's diagnostic label on the compiled node.
func relabel(g *graph.Graph, id graph.ID, label string) {
	if label == "" {
		return
	}
	if n, ok := g.Node(id); ok {
		n.Payload.Label = label
	}
}
