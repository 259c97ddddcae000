package io

import (
	"fmt"

	"github.com/flowforge/flowforge/pkg/graph"
	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
)

// Instruction kind names on the wire.
const (
	KindSource    = "source"
	KindOperator  = "operator"
	KindEstimator = "estimator"
	KindApply     = "apply"
	KindFit       = "fit"
)

var kindFromString = map[string]ir.Kind{
	KindSource:    ir.KindSource,
	KindOperator:  ir.KindOperator,
	KindEstimator: ir.KindEstimator,
	KindApply:     ir.KindApply,
	KindFit:       ir.KindFit,
}

// Program is the canonical serialization format for a linear instruction
// sequence. Used for API responses, storage, and file import/export.
//
// The format is designed for round-trip fidelity: export followed by
// import against the same registry reproduces the program exactly.
type Program struct {
	Name         string        `json:"name,omitempty" bson:"name,omitempty"`
	Instructions []Instruction `json:"instructions" bson:"instructions"`
}

// Instruction is the wire form of one IR instruction.
//
// Op is the registry name a declaration resolves through on import; Label
// is the diagnostic name and is only emitted when it differs from Op.
// Target is a pointer so that declarations (which have no target) are
// distinguishable from an apply targeting index 0.
type Instruction struct {
	Kind   string `json:"kind" bson:"kind"`
	Op     string `json:"op,omitempty" bson:"op,omitempty"`
	Label  string `json:"label,omitempty" bson:"label,omitempty"`
	Target *int   `json:"target,omitempty" bson:"target,omitempty"`
	Inputs []int  `json:"inputs,omitempty" bson:"inputs,omitempty"`
}

// FromProgram converts an instruction sequence to its wire form.
func FromProgram(instrs []ir.Instruction) Program {
	out := Program{Instructions: make([]Instruction, len(instrs))}
	for i, in := range instrs {
		wi := Instruction{Kind: in.Kind.String()}
		switch in.Kind {
		case ir.KindOperator, ir.KindEstimator:
			wi.Op = in.OpName
			if in.Label != in.OpName {
				wi.Label = in.Label
			}
		case ir.KindApply, ir.KindFit:
			target := in.Target
			wi.Target = &target
			wi.Inputs = append([]int(nil), in.Inputs...)
		}
		out.Instructions[i] = wi
	}
	return out
}

// ToProgram converts a wire program back to an instruction sequence,
// resolving declaration names through reg. The result is validated before
// it is returned.
func ToProgram(p Program, reg *op.Registry) ([]ir.Instruction, error) {
	instrs := make([]ir.Instruction, len(p.Instructions))
	for i, wi := range p.Instructions {
		kind, ok := kindFromString[wi.Kind]
		if !ok {
			return nil, fmt.Errorf("instruction %d: unknown kind %q", i, wi.Kind)
		}
		switch kind {
		case ir.KindSource:
			instrs[i] = ir.Source()
		case ir.KindOperator:
			t, err := reg.Transformer(wi.Op)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			instrs[i] = ir.Operator(t)
			instrs[i].OpName = wi.Op
			instrs[i].Label = declLabel(wi)
		case ir.KindEstimator:
			e, err := reg.Estimator(wi.Op)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			instrs[i] = ir.Estimator(e)
			instrs[i].OpName = wi.Op
			instrs[i].Label = declLabel(wi)
		case ir.KindApply, ir.KindFit:
			if wi.Target == nil {
				return nil, fmt.Errorf("instruction %d: %s without target", i, wi.Kind)
			}
			if kind == ir.KindApply {
				instrs[i] = ir.Apply(*wi.Target, wi.Inputs...)
			} else {
				instrs[i] = ir.Fit(*wi.Target, wi.Inputs...)
			}
		}
	}
	if err := ir.Validate(instrs); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return instrs, nil
}

// declLabel picks the diagnostic label for an imported declaration: the
// wire label when present, otherwise the registry name.
func declLabel(wi Instruction) string {
	if wi.Label != "" {
		return wi.Label
	}
	return wi.Op
}

// Graph is the serialization snapshot of a build-phase graph. It is
// export-only: the import path for persisted pipelines is the linear
// program form, compiled back with [ir.Compile].
type Graph struct {
	Nodes   []Node   `json:"nodes" bson:"nodes"`
	Sources []string `json:"sources,omitempty" bson:"sources,omitempty"`
	Sinks   []Sink   `json:"sinks,omitempty" bson:"sinks,omitempty"`
}

// Node is the wire form of one graph node.
type Node struct {
	ID       string   `json:"id" bson:"id"`
	Kind     string   `json:"kind" bson:"kind"`
	Label    string   `json:"label,omitempty" bson:"label,omitempty"`
	DataDeps []string `json:"data_deps,omitempty" bson:"data_deps,omitempty"`
	FitDeps  []string `json:"fit_deps,omitempty" bson:"fit_deps,omitempty"`
}

// Sink maps a sink handle to the node it exposes.
type Sink struct {
	ID     string `json:"id" bson:"id"`
	Target string `json:"target" bson:"target"`
}

// FromGraph converts a graph to its serialization snapshot. Nodes appear
// in insertion order; sources and sinks are sorted for deterministic
// output.
func FromGraph(g *graph.Graph) Graph {
	out := Graph{Nodes: make([]Node, 0, g.NodeCount())}
	for _, id := range g.Nodes() {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		wn := Node{
			ID:    string(n.ID),
			Kind:  n.Payload.Kind.String(),
			Label: n.Payload.Label,
		}
		for _, d := range n.DataDeps {
			wn.DataDeps = append(wn.DataDeps, string(d))
		}
		for _, d := range n.FitDeps {
			wn.FitDeps = append(wn.FitDeps, string(d))
		}
		out.Nodes = append(out.Nodes, wn)
	}
	for _, s := range g.Sources() {
		out.Sources = append(out.Sources, string(s))
	}
	for _, s := range g.Sinks() {
		target, err := g.SinkTarget(s)
		if err != nil {
			continue
		}
		out.Sinks = append(out.Sinks, Sink{ID: string(s), Target: string(target)})
	}
	sortStrings(out.Sources)
	sortSinks(out.Sinks)
	return out
}
