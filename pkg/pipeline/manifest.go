package pipeline

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
)

// Manifest is the TOML description of a pipeline.
//
// Example:
//
//	name = "newsgroups"
//	sources = ["train"]
//	output = "filter"
//
//	[[stage]]
//	name = "tok"
//	op = "tokenize"
//	inputs = ["input"]
//
//	[[stage]]
//	name = "vocab"
//	kind = "estimator"
//	op = "vocab"
//	inputs = ["train"]
//
//	[[stage]]
//	name = "filter"
//	kind = "delegate"
//	estimator = "vocab"
//	inputs = ["tok"]
//
// Stage inputs name earlier stages, declared sources, or the reserved
// name "input" for the pipeline's run-time input.
type Manifest struct {
	Name    string   `toml:"name"`
	Sources []string `toml:"sources"`
	Output  string   `toml:"output"`
	Stages  []Stage  `toml:"stage"`
}

// Stage is one manifest entry. Kind selects the stage type:
// "transformer" (the default), "estimator", or "delegate".
type Stage struct {
	Name      string   `toml:"name"`
	Kind      string   `toml:"kind"`
	Op        string   `toml:"op"`
	Estimator string   `toml:"estimator"`
	Inputs    []string `toml:"inputs"`
}

// Stage kinds accepted in manifests.
const (
	StageTransformer = "transformer"
	StageEstimator   = "estimator"
	StageDelegate    = "delegate"
)

// ParseManifest decodes a TOML manifest.
func ParseManifest(data string) (Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// LoadManifest reads and decodes a TOML manifest file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return ParseManifest(string(data))
}

func (m Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.Output == "" {
		return fmt.Errorf("manifest %s: output is required", m.Name)
	}
	if len(m.Stages) == 0 {
		return fmt.Errorf("manifest %s: at least one stage is required", m.Name)
	}
	for _, s := range m.Stages {
		if s.Name == "" {
			return fmt.Errorf("manifest %s: stage without a name", m.Name)
		}
		switch s.Kind {
		case "", StageTransformer, StageEstimator:
			if s.Op == "" {
				return fmt.Errorf("manifest %s: stage %s: op is required", m.Name, s.Name)
			}
		case StageDelegate:
			if s.Estimator == "" {
				return fmt.Errorf("manifest %s: stage %s: estimator is required", m.Name, s.Name)
			}
		default:
			return fmt.Errorf("manifest %s: stage %s: unknown kind %q", m.Name, s.Name, s.Kind)
		}
	}
	return nil
}

// BuildProgram resolves the manifest's operators through reg and
// linearizes the described pipeline into an instruction program.
func (m Manifest) BuildProgram(reg *op.Registry) ([]ir.Instruction, error) {
	b := NewBuilder()
	for _, src := range m.Sources {
		b.Source(src)
	}
	for _, s := range m.Stages {
		switch s.Kind {
		case "", StageTransformer:
			t, err := reg.Transformer(s.Op)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: stage %s: %w", m.Name, s.Name, err)
			}
			b.Transform(s.Name, t, s.Inputs...)
		case StageEstimator:
			e, err := reg.Estimator(s.Op)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: stage %s: %w", m.Name, s.Name, err)
			}
			b.Estimate(s.Name, e, s.Inputs...)
		case StageDelegate:
			b.Delegate(s.Name, s.Estimator, s.Inputs...)
		}
	}
	b.Output(m.Output)

	instrs, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", m.Name, err)
	}
	return instrs, nil
}
