package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	stdio "io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/flowforge/flowforge/pkg/cache"
	flowio "github.com/flowforge/flowforge/pkg/io"
	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
)

const sampleManifest = `
name = "demo"
sources = ["train"]
output = "filter"

[[stage]]
name = "vocab"
kind = "estimator"
op = "vocab"
inputs = ["train"]

[[stage]]
name = "tok"
op = "lower"
inputs = ["input"]

[[stage]]
name = "filter"
kind = "delegate"
estimator = "vocab"
inputs = ["tok"]
`

func quietLogger() *log.Logger {
	return log.NewWithOptions(stdio.Discard, log.Options{})
}

func TestValidateFormat(t *testing.T) {
	for _, format := range []string{FormatDOT, FormatSVG, FormatJSON} {
		if err := ValidateFormat(format); err != nil {
			t.Errorf("ValidateFormat(%q) = %v, want nil", format, err)
		}
	}
	if err := ValidateFormat("png"); err == nil {
		t.Error("ValidateFormat(png) should fail")
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "NoManifest",
			opts:    Options{},
			wantErr: true,
		},
		{
			name:    "BothManifestSources",
			opts:    Options{ManifestPath: "a.toml", Manifest: sampleManifest},
			wantErr: true,
		},
		{
			name:    "BadFormat",
			opts:    Options{Manifest: sampleManifest, Format: "png"},
			wantErr: true,
		},
		{
			name: "InlineManifest",
			opts: Options{Manifest: sampleManifest},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAndSetDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.opts.Format != DefaultFormat {
				t.Errorf("Format = %q, want default %q", tt.opts.Format, DefaultFormat)
			}
			if tt.opts.Registry == nil {
				t.Error("Registry should default to the built-in registry")
			}
			if tt.opts.Logger == nil {
				t.Error("Logger should default to a discard logger")
			}
			// Idempotent: a second call must not fail or change anything.
			if err := tt.opts.ValidateAndSetDefaults(); err != nil {
				t.Errorf("second ValidateAndSetDefaults() = %v", err)
			}
		})
	}
}

func TestBuilderChain(t *testing.T) {
	lower := mustTransformer(t, "lower")
	upper := mustTransformer(t, "upper")

	instrs, err := NewBuilder().
		Transform("a", lower, InputRef).
		Transform("b", upper, "a").
		Output("b").
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := []string{
		"operator a",
		"apply(op=0, inputs=[SOURCE])",
		"operator b",
		"apply(op=2, inputs=[1])",
	}
	checkStrings(t, instrs, want)
}

func TestBuilderDelegate(t *testing.T) {
	lower := mustTransformer(t, "lower")
	vocab := mustEstimator(t, "vocab")

	instrs, err := NewBuilder().
		Source("train").
		Estimate("vocab", vocab, "train").
		Transform("tok", lower, InputRef).
		Delegate("filter", "vocab", "tok").
		Output("filter").
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := []string{
		"source",
		"estimator vocab",
		"fit(est=1, inputs=[0])",
		"operator tok",
		"apply(op=3, inputs=[SOURCE])",
		"apply(op=2, inputs=[4])",
	}
	checkStrings(t, instrs, want)
}

func TestBuilderErrors(t *testing.T) {
	lower := mustTransformer(t, "lower")

	tests := []struct {
		name    string
		build   func() *Builder
		wantSub string
	}{
		{
			name: "DuplicateStage",
			build: func() *Builder {
				return NewBuilder().
					Transform("a", lower, InputRef).
					Transform("a", lower, InputRef).
					Output("a")
			},
			wantSub: "duplicate stage name",
		},
		{
			name: "ReservedName",
			build: func() *Builder {
				return NewBuilder().Transform(InputRef, lower).Output(InputRef)
			},
			wantSub: "invalid stage name",
		},
		{
			name: "UnknownInput",
			build: func() *Builder {
				return NewBuilder().Transform("a", lower, "ghost").Output("a")
			},
			wantSub: "unknown input",
		},
		{
			name: "UnknownEstimatorStage",
			build: func() *Builder {
				return NewBuilder().
					Transform("a", lower, InputRef).
					Delegate("d", "ghost", "a").
					Output("d")
			},
			wantSub: "unknown estimator stage",
		},
		{
			name: "UnknownOutput",
			build: func() *Builder {
				return NewBuilder().Transform("a", lower, InputRef).Output("ghost")
			},
			wantSub: "unknown stage",
		},
		{
			name: "NoOutput",
			build: func() *Builder {
				return NewBuilder().Transform("a", lower, InputRef)
			},
			wantSub: "no output stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			if err == nil {
				t.Fatal("Build() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not contain %q", err, tt.wantSub)
			}
		})
	}
}

func TestBuilderErrorLatched(t *testing.T) {
	lower := mustTransformer(t, "lower")

	// The first error sticks; later stages must not mask it.
	b := NewBuilder().
		Transform("a", lower, "ghost").
		Transform("b", lower, InputRef).
		Output("b")
	_, err := b.Build()
	if err == nil || !strings.Contains(err.Error(), "unknown input") {
		t.Fatalf("Build() = %v, want the first error", err)
	}
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(sampleManifest)
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}
	if m.Name != "demo" {
		t.Errorf("Name = %q, want demo", m.Name)
	}
	if m.Output != "filter" {
		t.Errorf("Output = %q, want filter", m.Output)
	}
	if len(m.Sources) != 1 || m.Sources[0] != "train" {
		t.Errorf("Sources = %v, want [train]", m.Sources)
	}
	if len(m.Stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(m.Stages))
	}
	if m.Stages[2].Kind != StageDelegate || m.Stages[2].Estimator != "vocab" {
		t.Errorf("stage 3 = %+v, want delegate on vocab", m.Stages[2])
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"Malformed", `name = `},
		{"MissingName", `output = "a"` + "\n" + `[[stage]]` + "\n" + `name = "a"` + "\n" + `op = "lower"`},
		{"MissingOutput", `name = "x"` + "\n" + `[[stage]]` + "\n" + `name = "a"` + "\n" + `op = "lower"`},
		{"NoStages", `name = "x"` + "\n" + `output = "a"`},
		{"StageWithoutOp", `name = "x"` + "\n" + `output = "a"` + "\n" + `[[stage]]` + "\n" + `name = "a"`},
		{"DelegateWithoutEstimator", `name = "x"` + "\n" + `output = "a"` + "\n" + `[[stage]]` + "\n" + `name = "a"` + "\n" + `kind = "delegate"`},
		{"UnknownKind", `name = "x"` + "\n" + `output = "a"` + "\n" + `[[stage]]` + "\n" + `name = "a"` + "\n" + `kind = "magic"` + "\n" + `op = "lower"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseManifest(tt.manifest); err == nil {
				t.Error("ParseManifest() should fail")
			}
		})
	}
}

func TestManifestBuildProgram(t *testing.T) {
	m, err := ParseManifest(sampleManifest)
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}

	instrs, err := m.BuildProgram(op.NewRegistry())
	if err != nil {
		t.Fatalf("BuildProgram() error: %v", err)
	}

	want := []string{
		"source",
		"estimator vocab",
		"fit(est=1, inputs=[0])",
		"operator tok",
		"apply(op=3, inputs=[SOURCE])",
		"apply(op=2, inputs=[4])",
	}
	checkStrings(t, instrs, want)
}

// Stage names double as declaration labels, so programs with stage names
// that differ from their op names ("tok" running "lower") must still
// serialize under the registry name and decode back.
func TestManifestBuildProgramRoundTrip(t *testing.T) {
	m, err := ParseManifest(sampleManifest)
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}
	instrs, err := m.BuildProgram(op.NewRegistry())
	if err != nil {
		t.Fatalf("BuildProgram() error: %v", err)
	}

	wire := flowio.FromProgram(instrs)
	if wire.Instructions[3].Op != "lower" {
		t.Errorf("wire op = %q, want registry name %q", wire.Instructions[3].Op, "lower")
	}
	if wire.Instructions[3].Label != "tok" {
		t.Errorf("wire label = %q, want stage name %q", wire.Instructions[3].Label, "tok")
	}

	got, err := flowio.ToProgram(wire, op.NewRegistry())
	if err != nil {
		t.Fatalf("ToProgram() error: %v", err)
	}
	if len(got) != len(instrs) {
		t.Fatalf("got %d instructions, want %d", len(got), len(instrs))
	}
	for i := range instrs {
		if got[i].String() != instrs[i].String() {
			t.Errorf("instr %d = %s, want %s", i, got[i], instrs[i])
		}
	}
}

func TestManifestBuildProgramUnknownOp(t *testing.T) {
	manifest := `
name = "x"
output = "a"

[[stage]]
name = "a"
op = "no-such-op"
inputs = ["input"]
`
	m, err := ParseManifest(manifest)
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}
	if _, err := m.BuildProgram(op.NewRegistry()); !errors.Is(err, op.ErrUnknownOp) {
		t.Fatalf("BuildProgram() = %v, want ErrUnknownOp", err)
	}
}

func TestRunnerExecute(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	runner := NewRunner(c, nil, quietLogger())
	defer runner.Close()

	result, err := runner.Execute(ctx, Options{Manifest: sampleManifest})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.Name != "demo" {
		t.Errorf("Name = %q, want demo", result.Name)
	}
	if result.Stats.InstructionCount != 6 {
		t.Errorf("InstructionCount = %d, want 6", result.Stats.InstructionCount)
	}
	if result.Stats.StageCount != 4 {
		t.Errorf("StageCount = %d, want 4", result.Stats.StageCount)
	}
	if result.ProgramHash == "" {
		t.Error("ProgramHash should be set")
	}
	if result.CacheInfo.BuildHit || result.CacheInfo.RenderHit {
		t.Error("first run should not hit the cache")
	}
	dot := string(result.Artifacts[FormatDOT])
	if !strings.Contains(dot, "digraph") {
		t.Errorf("dot artifact missing digraph header: %q", dot)
	}

	// Second run hits both cache layers.
	cached, err := runner.Execute(ctx, Options{Manifest: sampleManifest})
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	if !cached.CacheInfo.BuildHit {
		t.Error("second run should hit the build cache")
	}
	if !cached.CacheInfo.RenderHit {
		t.Error("second run should hit the render cache")
	}
	if cached.ProgramHash != result.ProgramHash {
		t.Errorf("ProgramHash changed across runs: %q vs %q", cached.ProgramHash, result.ProgramHash)
	}

	// Refresh bypasses the cache.
	fresh, err := runner.Execute(ctx, Options{Manifest: sampleManifest, Refresh: true})
	if err != nil {
		t.Fatalf("refresh Execute() error: %v", err)
	}
	if fresh.CacheInfo.BuildHit || fresh.CacheInfo.RenderHit {
		t.Error("refresh run should not hit the cache")
	}
}

func TestRunnerExecuteJSON(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(nil, nil, quietLogger())

	result, err := runner.Execute(ctx, Options{Manifest: sampleManifest, Format: FormatJSON})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	var wire flowio.Program
	if err := json.Unmarshal(result.Artifacts[FormatJSON], &wire); err != nil {
		t.Fatalf("json artifact does not decode: %v", err)
	}
	if len(wire.Instructions) != 6 {
		t.Errorf("got %d wire instructions, want 6", len(wire.Instructions))
	}
}

func TestRunnerExecuteInvalidOptions(t *testing.T) {
	runner := NewRunner(nil, nil, quietLogger())
	if _, err := runner.Execute(context.Background(), Options{}); err == nil {
		t.Fatal("Execute() with no manifest should fail")
	}
}

func mustTransformer(t *testing.T, name string) op.Transformer {
	t.Helper()
	tr, err := op.NewRegistry().Transformer(name)
	if err != nil {
		t.Fatalf("Transformer(%q): %v", name, err)
	}
	return tr
}

func mustEstimator(t *testing.T, name string) op.Estimator {
	t.Helper()
	e, err := op.NewRegistry().Estimator(name)
	if err != nil {
		t.Fatalf("Estimator(%q): %v", name, err)
	}
	return e
}

func checkStrings(t *testing.T, instrs []ir.Instruction, want []string) {
	t.Helper()
	if len(instrs) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(instrs), len(want))
	}
	for i, in := range instrs {
		if got := in.String(); got != want[i] {
			t.Errorf("instruction %d = %q, want %q", i, got, want[i])
		}
	}
}
