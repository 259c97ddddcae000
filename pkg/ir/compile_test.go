package ir

import (
	"errors"
	"testing"

	"github.com/flowforge/flowforge/pkg/graph"
)

// programEqual compares two programs structurally: kinds, targets, inputs
// and declaration labels.
func programEqual(t *testing.T, got, want []Instruction) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("program length = %d, want %d\ngot:  %v\nwant: %v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i].Kind != want[i].Kind {
			t.Errorf("instr %d kind = %s, want %s", i, got[i].Kind, want[i].Kind)
			continue
		}
		if got[i].String() != want[i].String() {
			t.Errorf("instr %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCompileRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) (*graph.Graph, graph.SinkID)
	}{
		{name: "Delegating", build: buildDelegating},
		{
			name: "OperatorChain",
			build: func(t *testing.T) (*graph.Graph, graph.SinkID) {
				g := graph.New()
				a, _ := g.AddOperator(identity(), graph.External)
				b, _ := g.AddOperator(identity(), a)
				sink, err := g.AddSink(b)
				if err != nil {
					t.Fatalf("AddSink: %v", err)
				}
				return g, sink
			},
		},
		{
			name: "Diamond",
			build: func(t *testing.T) (*graph.Graph, graph.SinkID) {
				g := graph.New()
				a, _ := g.AddOperator(identity(), graph.External)
				b, _ := g.AddOperator(identity(), a)
				c, _ := g.AddOperator(identity(), a)
				d, _ := g.AddOperator(identity(), b, c)
				sink, err := g.AddSink(d)
				if err != nil {
					t.Fatalf("AddSink: %v", err)
				}
				return g, sink
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, sink := tt.build(t)
			instrs, err := Linearize(g, sink)
			if err != nil {
				t.Fatalf("Linearize: %v", err)
			}

			// Compiling the program and linearizing again must reproduce
			// it exactly: the linear form is canonical up to id renaming.
			g2, sink2, err := Compile(instrs)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			instrs2, err := Linearize(g2, sink2)
			if err != nil {
				t.Fatalf("Linearize(compiled): %v", err)
			}
			programEqual(t, instrs2, instrs)
		})
	}
}

func TestCompileDelegatingLabels(t *testing.T) {
	g, sink := buildDelegating(t)
	instrs, err := Linearize(g, sink)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	g2, sink2, err := Compile(instrs)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	target, err := g2.SinkTarget(sink2)
	if err != nil {
		t.Fatalf("SinkTarget: %v", err)
	}
	n, ok := g2.Node(target)
	if !ok {
		t.Fatalf("sink target %s missing", target)
	}
	if n.Payload.Kind != graph.PayloadDelegate {
		t.Fatalf("sink payload = %s, want delegate", n.Payload.Kind)
	}
	// Delegating nodes are labeled after the estimator they defer to.
	if n.Payload.Label != "est.fitted" {
		t.Errorf("delegate label = %q, want %q", n.Payload.Label, "est.fitted")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		instrs  []Instruction
		wantErr error
	}{
		{
			name:    "Empty",
			wantErr: ErrEmptyProgram,
		},
		{
			name: "ApplyTargetsEstimator",
			instrs: []Instruction{
				Estimator(estimator()),
				Apply(0, SourceIndex),
			},
			wantErr: ErrInvalidTarget,
		},
		{
			name: "ApplyTargetsApply",
			instrs: []Instruction{
				Operator(identity()),
				Apply(0, SourceIndex),
				Apply(1, SourceIndex),
			},
			wantErr: ErrInvalidTarget,
		},
		{
			name: "ForwardReference",
			instrs: []Instruction{
				Operator(identity()),
				Apply(0, 2),
				Source(),
			},
			wantErr: ErrForwardReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Compile(tt.instrs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Compile = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
