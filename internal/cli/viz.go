package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowforge/flowforge/pkg/cache"
	flowio "github.com/flowforge/flowforge/pkg/io"
	"github.com/flowforge/flowforge/pkg/pipeline"
)

// vizCommand creates the viz command for rendering a program file.
func (c *CLI) vizCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "viz [program.json]",
		Short: "Render a program as a DOT or SVG diagram",
		Long: `Render a program as a DOT or SVG diagram.

The viz command takes a program file (produced by 'build') and renders the
instruction sequence as a diagram. Declarations, applies, and fits are
shown as nodes; dashed edges mark declaration and fit relationships.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
			}
			return c.runViz(cmd, args[0], format, output, detailed, noCache)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatSVG, "output format: svg (default), dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with format extension)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show instruction details")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runViz loads the program and renders it.
func (c *CLI) runViz(cmd *cobra.Command, input, format, output string, detailed, noCache bool) error {
	ctx := cmd.Context()

	instrs, err := flowio.ImportProgram(input, c.Registry)
	if err != nil {
		return fmt.Errorf("load program %s: %w", input, err)
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	wire, err := json.Marshal(flowio.FromProgram(instrs))
	if err != nil {
		return err
	}
	programHash := cache.Hash(wire)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", format))
	spinner.Start()

	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, instrs, programHash, pipeline.Options{
		Format:   format,
		Detailed: detailed,
		Logger:   c.Logger,
	})
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return fmt.Errorf("viz: %w", err)
	}
	spinner.Stop()

	path := outputPath(output, input, format)
	if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	printSuccess("Rendered %s", format)
	printStats(len(instrs), 0, cacheHit)
	printFile(path)
	return nil
}
