package graph

import (
	"errors"
	"testing"

	"github.com/flowforge/flowforge/pkg/op"
)

func tf(label string) op.Transformer {
	return &op.Func{Label: label, Fn: func(v any) (any, error) { return v, nil }}
}

func est(label string) op.Estimator {
	return &op.EstimatorFunc{Label: label, Fn: nil}
}

func TestAddOperator(t *testing.T) {
	g := New()
	src := g.AddSource()

	id, err := g.AddOperator(tf("lower"), src, External)
	if err != nil {
		t.Fatalf("AddOperator: %v", err)
	}
	n, ok := g.Node(id)
	if !ok {
		t.Fatal("node not found after AddOperator")
	}
	if n.Payload.Kind != PayloadOperator || n.Payload.Label != "lower" {
		t.Errorf("payload = %s %q, want operator lower", n.Payload.Kind, n.Payload.Label)
	}
	if len(n.DataDeps) != 2 || n.DataDeps[0] != src || n.DataDeps[1] != External {
		t.Errorf("data deps = %v, want [%s %s]", n.DataDeps, src, External)
	}
	if len(n.FitDeps) != 0 {
		t.Errorf("fit deps = %v, want none", n.FitDeps)
	}
}

func TestAddOperatorErrors(t *testing.T) {
	g := New()
	if _, err := g.AddOperator(nil); !errors.Is(err, ErrNilOperator) {
		t.Errorf("AddOperator(nil) = %v, want %v", err, ErrNilOperator)
	}
	if _, err := g.AddOperator(tf("a"), ID("ghost")); !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("AddOperator(ghost dep) = %v, want %v", err, ErrUnknownDependency)
	}
	if _, err := g.AddEstimator(nil); !errors.Is(err, ErrNilOperator) {
		t.Errorf("AddEstimator(nil) = %v, want %v", err, ErrNilOperator)
	}
}

func TestAddDelegate(t *testing.T) {
	g := New()
	e, err := g.AddEstimator(est("vocab"), External)
	if err != nil {
		t.Fatalf("AddEstimator: %v", err)
	}

	d, err := g.AddDelegate(e, External)
	if err != nil {
		t.Fatalf("AddDelegate: %v", err)
	}
	n, _ := g.Node(d)
	if n.Payload.Kind != PayloadDelegate || n.Payload.Delegate != e {
		t.Errorf("payload = %s -> %s, want delegate -> %s", n.Payload.Kind, n.Payload.Delegate, e)
	}
	if n.Payload.Label != "vocab.fitted" {
		t.Errorf("label = %q, want %q", n.Payload.Label, "vocab.fitted")
	}
	// The estimator edge travels as a fit dependency, ordered first.
	deps := n.Dependencies()
	if len(deps) != 2 || deps[0] != e || deps[1] != External {
		t.Errorf("dependencies = %v, want [%s %s]", deps, e, External)
	}
}

func TestAddDelegateErrors(t *testing.T) {
	g := New()
	o, err := g.AddOperator(tf("a"), External)
	if err != nil {
		t.Fatalf("AddOperator: %v", err)
	}

	if _, err := g.AddDelegate(ID("ghost")); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("AddDelegate(ghost) = %v, want %v", err, ErrUnknownNode)
	}
	if _, err := g.AddDelegate(o); !errors.Is(err, ErrNotEstimator) {
		t.Errorf("AddDelegate(operator) = %v, want %v", err, ErrNotEstimator)
	}
}

func TestReplaceDataDeps(t *testing.T) {
	g := New()
	src := g.AddSource()
	id, err := g.AddOperator(tf("a"), External)
	if err != nil {
		t.Fatalf("AddOperator: %v", err)
	}

	if err := g.ReplaceDataDeps(id, src); err != nil {
		t.Fatalf("ReplaceDataDeps: %v", err)
	}
	n, _ := g.Node(id)
	if len(n.DataDeps) != 1 || n.DataDeps[0] != src {
		t.Errorf("data deps = %v, want [%s]", n.DataDeps, src)
	}

	if err := g.ReplaceDataDeps(ID("ghost"), src); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("ReplaceDataDeps(ghost) = %v, want %v", err, ErrUnknownNode)
	}
	if err := g.ReplaceDataDeps(id, ID("ghost")); !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("ReplaceDataDeps(ghost dep) = %v, want %v", err, ErrUnknownDependency)
	}
}

func TestSinks(t *testing.T) {
	g := New()
	id, err := g.AddOperator(tf("a"), External)
	if err != nil {
		t.Fatalf("AddOperator: %v", err)
	}

	if _, err := g.OnlySink(); !errors.Is(err, ErrUnknownSink) {
		t.Errorf("OnlySink on empty graph = %v, want %v", err, ErrUnknownSink)
	}

	sink, err := g.AddSink(id)
	if err != nil {
		t.Fatalf("AddSink: %v", err)
	}
	target, err := g.SinkTarget(sink)
	if err != nil {
		t.Fatalf("SinkTarget: %v", err)
	}
	if target != id {
		t.Errorf("SinkTarget = %s, want %s", target, id)
	}
	only, err := g.OnlySink()
	if err != nil {
		t.Fatalf("OnlySink: %v", err)
	}
	if only != sink {
		t.Errorf("OnlySink = %s, want %s", only, sink)
	}

	if _, err := g.SinkTarget(SinkID("ghost")); !errors.Is(err, ErrUnknownSink) {
		t.Errorf("SinkTarget(ghost) = %v, want %v", err, ErrUnknownSink)
	}
	if _, err := g.AddSink(External); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("AddSink(External) = %v, want %v", err, ErrUnknownNode)
	}

	if _, err := g.AddSink(id); err != nil {
		t.Fatalf("AddSink: %v", err)
	}
	if _, err := g.OnlySink(); !errors.Is(err, ErrUnknownSink) {
		t.Errorf("OnlySink with two sinks = %v, want %v", err, ErrUnknownSink)
	}
}

func TestHas(t *testing.T) {
	g := New()
	src := g.AddSource()
	id, err := g.AddOperator(tf("a"), src)
	if err != nil {
		t.Fatalf("AddOperator: %v", err)
	}

	for _, tc := range []struct {
		id   ID
		want bool
	}{
		{External, true},
		{src, true},
		{id, true},
		{ID("ghost"), false},
	} {
		if got := g.Has(tc.id); got != tc.want {
			t.Errorf("Has(%s) = %t, want %t", tc.id, got, tc.want)
		}
	}
	if !g.IsSource(src) || g.IsSource(id) {
		t.Error("IsSource should hold for sources only")
	}
	if g.NodeCount() != 1 || g.SourceCount() != 1 {
		t.Errorf("counts = %d nodes, %d sources, want 1 and 1", g.NodeCount(), g.SourceCount())
	}
}

func TestNodesOrder(t *testing.T) {
	g := New()
	a, _ := g.AddOperator(tf("a"), External)
	b, _ := g.AddOperator(tf("b"), a)
	c, _ := g.AddOperator(tf("c"), b)

	got := g.Nodes()
	want := []ID{a, b, c}
	if len(got) != len(want) {
		t.Fatalf("Nodes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Nodes()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	g := New()
	src := g.AddSource()
	e, err := g.AddEstimator(est("vocab"), src)
	if err != nil {
		t.Fatalf("AddEstimator: %v", err)
	}
	d, err := g.AddDelegate(e, External)
	if err != nil {
		t.Fatalf("AddDelegate: %v", err)
	}
	if _, err := g.AddSink(d); err != nil {
		t.Fatalf("AddSink: %v", err)
	}

	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCycle(t *testing.T) {
	g := New()
	a, err := g.AddOperator(tf("a"), External)
	if err != nil {
		t.Fatalf("AddOperator: %v", err)
	}
	b, err := g.AddOperator(tf("b"), a)
	if err != nil {
		t.Fatalf("AddOperator: %v", err)
	}
	// Close the loop through the rebinding hook.
	if err := g.ReplaceDataDeps(a, b); err != nil {
		t.Fatalf("ReplaceDataDeps: %v", err)
	}

	if err := g.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Fatalf("Validate = %v, want %v", err, ErrGraphHasCycle)
	}
}

func TestValidateDeepChain(t *testing.T) {
	g := New()
	prev := External
	var err error
	for i := 0; i < 50000; i++ {
		prev, err = g.AddOperator(tf("stage"), prev)
		if err != nil {
			t.Fatalf("AddOperator: %v", err)
		}
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
