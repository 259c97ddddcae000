package viz

import (
	"strings"
	"testing"

	"github.com/flowforge/flowforge/pkg/graph"
	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
)

func TestGraphToDOT(t *testing.T) {
	reg := op.NewRegistry()
	vocab, err := reg.Estimator("vocab")
	if err != nil {
		t.Fatalf("Estimator: %v", err)
	}

	g := graph.New()
	src := g.AddSource()
	est, err := g.AddEstimator(vocab, src)
	if err != nil {
		t.Fatalf("AddEstimator: %v", err)
	}
	del, err := g.AddDelegate(est, graph.External)
	if err != nil {
		t.Fatalf("AddDelegate: %v", err)
	}

	dot := GraphToDOT(g, Options{})
	for _, want := range []string{
		"digraph G {",
		`label="vocab"`,
		`label="vocab.fitted"`,
		"style=dashed", // fit edge
		"fillcolor=lightgrey",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
	// One data edge into the estimator, one fit edge into the delegate.
	if !strings.Contains(dot, `"`+string(src)+`" -> "`+string(est)+`";`) {
		t.Errorf("missing data edge %s -> %s:\n%s", src, est, dot)
	}
	if !strings.Contains(dot, `"`+string(est)+`" -> "`+string(del)+`" [style=dashed];`) {
		t.Errorf("missing fit edge %s -> %s:\n%s", est, del, dot)
	}
}

func TestProgramToDOT(t *testing.T) {
	reg := op.NewRegistry()
	lower, err := reg.Transformer("lower")
	if err != nil {
		t.Fatalf("Transformer: %v", err)
	}
	instrs := []ir.Instruction{
		ir.Operator(lower),
		ir.Apply(0, ir.SourceIndex),
	}

	dot := ProgramToDOT(instrs, Options{})
	for _, want := range []string{
		`"0" [label="0: lower"];`,
		`"0" -> "1" [style=dashed];`,
		`"input" -> "1";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}

func TestProgramToDOTDetailed(t *testing.T) {
	instrs := []ir.Instruction{
		ir.Source(),
	}
	dot := ProgramToDOT(instrs, Options{Detailed: true})
	if !strings.Contains(dot, `label="0: source"`) {
		t.Errorf("detailed DOT missing instruction string:\n%s", dot)
	}
}
