// Package cli implements the flowforge command-line interface.
//
// This package provides commands for building pipeline programs from TOML
// manifests, inspecting and editing the linear instruction form, rendering
// diagrams, serving the HTTP API, and managing the local artifact cache.
// The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - build: Compile a TOML manifest into an instruction program
//   - inspect: Browse a program and query its dependency structure
//   - edit: Rewrite a program (remove, prune, replace, inline)
//   - viz: Render a program as a DOT or SVG diagram
//   - serve: Run the HTTP API
//   - store: Push and pull programs from the program store
//   - cache: Manage the local artifact cache
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/flowforge/flowforge/pkg/buildinfo"
	"github.com/flowforge/flowforge/pkg/cache"
	"github.com/flowforge/flowforge/pkg/op"
	"github.com/flowforge/flowforge/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flowforge"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger   *log.Logger
	Registry *op.Registry
}

// New creates a new CLI instance with a default logger and the built-in
// operator registry.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Registry: op.NewRegistry(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "flowforge",
		Short:        "Flowforge builds and rewrites dataflow pipelines",
		Long:         `Flowforge is a tool for assembling dataflow pipelines from manifests, linearizing them into an editable instruction form, and rendering the result as diagrams.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.vizCommand())
	root.AddCommand(c.opsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/flowforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// outputPath derives the output file path: the explicit output if given,
// otherwise the input path with its extension swapped for the format's.
func outputPath(output, input, format string) string {
	if output != "" {
		return output
	}
	base := input[:len(input)-len(filepath.Ext(input))]
	return base + "." + format
}
