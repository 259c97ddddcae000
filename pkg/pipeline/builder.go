package pipeline

import (
	"fmt"

	"github.com/flowforge/flowforge/pkg/graph"
	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
)

// InputRef is the stage input name bound to the pipeline's run-time
// input.
const InputRef = "input"

// Builder assembles a pipeline graph stage by stage, with stages referring
// to each other by name instead of graph id. It is the programmatic
// counterpart of a TOML manifest; manifest parsing drives the same
// builder.
//
// Builders are single-use: after Build the builder should be discarded.
type Builder struct {
	graph  *graph.Graph
	byName map[string]graph.ID
	output string
	err    error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		graph:  graph.New(),
		byName: make(map[string]graph.ID),
	}
}

// Source declares a named training-data source.
func (b *Builder) Source(name string) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.checkName(name); err != nil {
		b.err = err
		return b
	}
	b.byName[name] = b.graph.AddSource()
	return b
}

// Transform adds a transformer stage reading the named inputs.
func (b *Builder) Transform(name string, t op.Transformer, inputs ...string) *Builder {
	return b.add(name, inputs, func(deps []graph.ID) (graph.ID, error) {
		return b.graph.AddOperator(t, deps...)
	})
}

// Estimate adds an estimator stage reading the named inputs.
func (b *Builder) Estimate(name string, e op.Estimator, inputs ...string) *Builder {
	return b.add(name, inputs, func(deps []graph.ID) (graph.ID, error) {
		return b.graph.AddEstimator(e, deps...)
	})
}

// Delegate adds a stage whose operator is the fitted output of the named
// estimator stage.
func (b *Builder) Delegate(name, estimator string, inputs ...string) *Builder {
	return b.add(name, inputs, func(deps []graph.ID) (graph.ID, error) {
		est, ok := b.byName[estimator]
		if !ok {
			return "", fmt.Errorf("stage %s: unknown estimator stage %q", name, estimator)
		}
		return b.graph.AddDelegate(est, deps...)
	})
}

// Output marks the named stage as the pipeline's result.
func (b *Builder) Output(name string) *Builder {
	if b.err != nil {
		return b
	}
	if _, ok := b.byName[name]; !ok {
		b.err = fmt.Errorf("output: unknown stage %q", name)
		return b
	}
	b.output = name
	return b
}

// Build linearizes the assembled graph into an instruction program.
func (b *Builder) Build() ([]ir.Instruction, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.output == "" {
		return nil, fmt.Errorf("build: no output stage declared")
	}
	sink, err := b.graph.AddSink(b.byName[b.output])
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	instrs, err := ir.Linearize(b.graph, sink)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return instrs, nil
}

// Graph returns the underlying build-phase graph and the id of the named
// stage, for callers that need graph-level access before Build.
func (b *Builder) Graph() *graph.Graph { return b.graph }

// StageID resolves a stage name to its graph id.
func (b *Builder) StageID(name string) (graph.ID, bool) {
	id, ok := b.byName[name]
	return id, ok
}

func (b *Builder) add(name string, inputs []string, mk func([]graph.ID) (graph.ID, error)) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.checkName(name); err != nil {
		b.err = err
		return b
	}
	deps, err := b.resolve(name, inputs)
	if err != nil {
		b.err = err
		return b
	}
	id, err := mk(deps)
	if err != nil {
		b.err = fmt.Errorf("stage %s: %w", name, err)
		return b
	}
	if n, ok := b.graph.Node(id); ok {
		n.Payload.Label = name
	}
	b.byName[name] = id
	return b
}

func (b *Builder) checkName(name string) error {
	if name == "" || name == InputRef {
		return fmt.Errorf("invalid stage name %q", name)
	}
	if _, ok := b.byName[name]; ok {
		return fmt.Errorf("duplicate stage name %q", name)
	}
	return nil
}

func (b *Builder) resolve(stage string, inputs []string) ([]graph.ID, error) {
	deps := make([]graph.ID, len(inputs))
	for i, in := range inputs {
		if in == InputRef {
			deps[i] = graph.External
			continue
		}
		id, ok := b.byName[in]
		if !ok {
			return nil, fmt.Errorf("stage %s: unknown input %q", stage, in)
		}
		deps[i] = id
	}
	return deps, nil
}
