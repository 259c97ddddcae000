// Package pipeline provides pipeline construction and orchestration for
// Flowforge.
//
// This package implements the build → rewrite → render flow shared by the
// CLI and the API. By centralizing this logic, we ensure consistent
// behavior across all entry points and avoid code duplication.
//
// # Architecture
//
// A pipeline starts life as a TOML manifest or a programmatic [Builder],
// becomes a build-phase graph, and is linearized into an instruction
// program (package ir). All analysis and editing happens on the program;
// rendering and persistence consume it. Executing the built pipeline on
// data is out of scope here.
//
// # Usage
//
// Create a Runner and build a pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    ManifestPath: "newsgroups.toml",
//	}
//	result, err := runner.Build(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	program := result.Program
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Format constants for render output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// DefaultFormat is the default render format.
const DefaultFormat = FormatDOT

// ValidFormats is the set of supported render formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatJSON: true,
}

// DefaultCacheTTL is how long built programs and rendered artifacts stay
// cached.
const DefaultCacheTTL = 24 * time.Hour

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for building and rendering a
// pipeline. This struct supports JSON serialization for API requests.
type Options struct {
	// Build options. Exactly one of ManifestPath and Manifest is set:
	// ManifestPath names a TOML file, Manifest carries inline TOML.
	ManifestPath string `json:"manifest_path,omitempty"`
	Manifest     string `json:"manifest,omitempty"`
	Refresh      bool   `json:"refresh,omitempty"`

	// Render options
	Format   string `json:"format,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger  `json:"-"`
	Registry *op.Registry `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline build.
type Result struct {
	// Name is the pipeline name from the manifest.
	Name string

	// Program is the linearized instruction sequence.
	Program []ir.Instruction

	// ProgramHash is the content hash of the program's wire form.
	ProgramHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains build statistics.
type Stats struct {
	InstructionCount int
	StageCount       int
	BuildTime        time.Duration
	RenderTime       time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	BuildHit  bool // Whether the built program came from cache
	RenderHit bool // Whether the rendered artifact came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a render format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg, json)", format)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.ManifestPath == "" && o.Manifest == "" {
		return fmt.Errorf("manifest_path or manifest is required")
	}
	if o.ManifestPath != "" && o.Manifest != "" {
		return fmt.Errorf("manifest_path and manifest are mutually exclusive")
	}
	o.SetRenderDefaults()
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if o.Registry == nil {
		o.Registry = op.NewRegistry()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
}
