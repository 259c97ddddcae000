package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flowforge/flowforge/pkg/cache"
	flowio "github.com/flowforge/flowforge/pkg/io"
	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/observability"
	"github.com/flowforge/flowforge/pkg/viz"
)

// Runner encapsulates pipeline building and rendering with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store build results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Build
	buildStart := time.Now()
	name, program, buildHit, err := r.BuildWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Name = name
	result.Program = program
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.InstructionCount = len(program)
	result.Stats.StageCount = stageCount(program)
	result.CacheInfo.BuildHit = buildHit

	// Compute program hash for cache keys and API responses
	if wire, err := json.Marshal(flowio.FromProgram(program)); err == nil {
		result.ProgramHash = cache.Hash(wire)
	}

	r.Logger.Info("built program",
		"name", name,
		"instructions", len(program),
		"stages", result.Stats.StageCount,
		"duration", result.Stats.BuildTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, program, result.ProgramHash, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered output",
		"format", opts.Format,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// BuildWithCacheInfo builds the program from the manifest with caching
// and returns the pipeline name, the program, and cache hit info.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, opts Options) (string, []ir.Instruction, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return "", nil, false, err
	}

	manifest := opts.Manifest
	if opts.ManifestPath != "" {
		data, err := os.ReadFile(opts.ManifestPath)
		if err != nil {
			return "", nil, false, fmt.Errorf("read manifest %s: %w", opts.ManifestPath, err)
		}
		manifest = string(data)
	}
	m, err := ParseManifest(manifest)
	if err != nil {
		return "", nil, false, err
	}

	observability.Pipeline().OnBuildStart(ctx, m.Name)
	start := time.Now()

	// Programs are keyed by manifest content, so edits invalidate the
	// cached build automatically.
	cacheKey := r.Keyer.ProgramKey(cache.Hash([]byte(manifest)))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var wp flowio.Program
			if err := json.Unmarshal(data, &wp); err == nil {
				if instrs, err := flowio.ToProgram(wp, opts.Registry); err == nil {
					observability.Cache().OnCacheHit(ctx, "program")
					observability.Pipeline().OnBuildComplete(ctx, m.Name, len(instrs), time.Since(start), nil)
					return m.Name, instrs, true, nil
				}
			}
			// If deserialization fails, fall through to rebuild
		}
		observability.Cache().OnCacheMiss(ctx, "program")
	}

	instrs, err := m.BuildProgram(opts.Registry)
	if err != nil {
		observability.Pipeline().OnBuildComplete(ctx, m.Name, 0, time.Since(start), err)
		return "", nil, false, err
	}

	// Cache the result
	wp := flowio.FromProgram(instrs)
	wp.Name = m.Name
	if data, err := json.Marshal(wp); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, DefaultCacheTTL)
		observability.Cache().OnCacheSet(ctx, "program", len(data))
	}

	observability.Pipeline().OnBuildComplete(ctx, m.Name, len(instrs), time.Since(start), nil)
	return m.Name, instrs, false, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards the cache hit info.
func (r *Runner) Build(ctx context.Context, opts Options) (string, []ir.Instruction, error) {
	name, instrs, _, err := r.BuildWithCacheInfo(ctx, opts)
	return name, instrs, err
}

// RenderWithCacheInfo renders the program with caching and returns cache hit info.
// programHash must be the content hash of the program's wire form; it scopes
// the cache entry to this exact program.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, program []ir.Instruction, programHash string, opts Options) (map[string][]byte, bool, error) {
	opts.SetRenderDefaults()
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	observability.Pipeline().OnRenderStart(ctx, opts.Format)
	start := time.Now()

	cacheKey := r.Keyer.RenderKey(programHash, cache.RenderKeyOpts{
		Format:   opts.Format,
		Detailed: opts.Detailed,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "render")
			observability.Pipeline().OnRenderComplete(ctx, opts.Format, time.Since(start), nil)
			return map[string][]byte{opts.Format: data}, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "render")
	}

	data, err := renderProgram(program, opts)
	if err != nil {
		observability.Pipeline().OnRenderComplete(ctx, opts.Format, time.Since(start), err)
		return nil, false, err
	}

	_ = r.Cache.Set(ctx, cacheKey, data, DefaultCacheTTL)
	observability.Cache().OnCacheSet(ctx, "render", len(data))

	observability.Pipeline().OnRenderComplete(ctx, opts.Format, time.Since(start), nil)
	return map[string][]byte{opts.Format: data}, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, program []ir.Instruction, programHash string, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, program, programHash, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// renderProgram produces the artifact for a single format.
func renderProgram(program []ir.Instruction, opts Options) ([]byte, error) {
	switch opts.Format {
	case FormatDOT:
		return []byte(viz.ProgramToDOT(program, viz.Options{Detailed: opts.Detailed})), nil
	case FormatSVG:
		dot := viz.ProgramToDOT(program, viz.Options{Detailed: opts.Detailed})
		return viz.RenderSVG(dot)
	case FormatJSON:
		return json.MarshalIndent(flowio.FromProgram(program), "", "  ")
	default:
		return nil, fmt.Errorf("invalid format: %q", opts.Format)
	}
}

// stageCount counts the value-producing instructions: sources plus the
// apply and fit steps that realize each stage.
func stageCount(program []ir.Instruction) int {
	n := 0
	for _, in := range program {
		switch in.Kind {
		case ir.KindSource, ir.KindApply, ir.KindFit:
			n++
		}
	}
	return n
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
