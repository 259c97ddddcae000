package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowforge/flowforge/pkg/pipeline"
)

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
		refresh  bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "build [manifest.toml]",
		Short: "Compile a TOML manifest into an instruction program",
		Long: `Compile a TOML manifest into an instruction program.

The build command parses the manifest, assembles the pipeline graph, and
linearizes it into the instruction form. The resulting artifact is written
next to the manifest (or to --output) in the requested format.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
			}
			return c.runBuild(cmd, args[0], buildParams{
				output:   output,
				format:   format,
				detailed: detailed,
				refresh:  refresh,
				noCache:  noCache,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: manifest path with format extension)")
	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatJSON, "output format: json (default), dot, svg")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show instruction details in diagrams")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "rebuild even when a cached program exists")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

type buildParams struct {
	output   string
	format   string
	detailed bool
	refresh  bool
	noCache  bool
}

func (c *CLI) runBuild(cmd *cobra.Command, manifestPath string, p buildParams) error {
	ctx := cmd.Context()

	runner, err := c.newRunner(p.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := pipeline.Options{
		ManifestPath: manifestPath,
		Format:       p.format,
		Detailed:     p.detailed,
		Refresh:      p.refresh,
		Logger:       c.Logger,
		Registry:     c.Registry,
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Building %s...", manifestPath))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		if spinner.Cancelled() {
			spinner.StopWithError("Build cancelled")
		} else {
			spinner.StopWithError("Build failed")
		}
		return err
	}
	spinner.Stop()

	path := outputPath(p.output, manifestPath, p.format)
	if err := os.WriteFile(path, result.Artifacts[p.format], 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	printSuccess("Built %s", StyleHighlight.Render(result.Name))
	printStats(result.Stats.InstructionCount, result.Stats.StageCount, result.CacheInfo.BuildHit)
	printFile(path)
	if p.format == pipeline.FormatJSON {
		printNewline()
		printNextStep("Inspect the program", fmt.Sprintf("flowforge inspect %s", path))
	}

	return nil
}
