package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	flowio "github.com/flowforge/flowforge/pkg/io"
	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/ir/transform"
)

// editCommand creates the edit command group for program surgery.
func (c *CLI) editCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Rewrite an instruction program",
		Long: `Rewrite an instruction program.

All edit subcommands read a program file, apply one rewrite, and write the
result. The input file is never modified in place unless --output names it
explicitly. Every rewrite preserves the program's structural invariants or
fails without writing anything.`,
	}

	cmd.AddCommand(c.editRemoveCommand())
	cmd.AddCommand(c.editDisconnectCommand())
	cmd.AddCommand(c.editPruneCommand())
	cmd.AddCommand(c.editReplaceCommand())
	cmd.AddCommand(c.editInlineCommand())

	return cmd
}

// editRemoveCommand creates the "edit remove" subcommand.
func (c *CLI) editRemoveCommand() *cobra.Command {
	var (
		at     string
		output string
	)

	cmd := &cobra.Command{
		Use:   "remove [program.json]",
		Short: "Remove instructions by index",
		Long: `Remove instructions by index.

The removal is all-or-nothing: if any surviving instruction still depends
on a removed index, the command fails and the program is left unchanged.
Use "edit disconnect" to redirect consumers first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := parseIndexList(at)
			if err != nil {
				return err
			}
			toRemove := make(map[int]bool, len(indices))
			for _, idx := range indices {
				toRemove[idx] = true
			}

			return c.runEdit(args[0], output, func(instrs []ir.Instruction) ([]ir.Instruction, string, error) {
				out, _, err := ir.Remove(toRemove, instrs)
				if err != nil {
					return nil, "", err
				}
				return out, fmt.Sprintf("Removed %d instructions", len(indices)), nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "comma-separated instruction indices to remove")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .edited.json suffix)")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

// editDisconnectCommand creates the "edit disconnect" subcommand.
func (c *CLI) editDisconnectCommand() *cobra.Command {
	var (
		mapping string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "disconnect [program.json]",
		Short: "Redirect consumers of instructions, then remove them",
		Long: `Redirect consumers of instructions, then remove them.

The --map flag gives old=new pairs: every consumer of old is rewired to
new, then old is removed. Use "input" as the new value to rebind consumers
to the external input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replacement, err := parseIndexMap(mapping)
			if err != nil {
				return err
			}

			return c.runEdit(args[0], output, func(instrs []ir.Instruction) ([]ir.Instruction, string, error) {
				out, _, err := ir.DisconnectAndRemove(replacement, instrs)
				if err != nil {
					return nil, "", err
				}
				return out, fmt.Sprintf("Disconnected %d instructions", len(replacement)), nil
			})
		},
	}

	cmd.Flags().StringVar(&mapping, "map", "", `comma-separated old=new pairs, e.g. "3=1,4=input"`)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .edited.json suffix)")
	_ = cmd.MarkFlagRequired("map")

	return cmd
}

// editPruneCommand creates the "edit prune" subcommand.
func (c *CLI) editPruneCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "prune [program.json]",
		Short: "Drop instructions the final result does not depend on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(args[0], output, func(instrs []ir.Instruction) ([]ir.Instruction, string, error) {
				out, _, res, err := transform.Prune(instrs)
				if err != nil {
					return nil, "", err
				}
				return out, fmt.Sprintf("Pruned %d dead instructions", res.Removed), nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .edited.json suffix)")

	return cmd
}

// editReplaceCommand creates the "edit replace" subcommand.
func (c *CLI) editReplaceCommand() *cobra.Command {
	var (
		at     int
		opName string
		output string
	)

	cmd := &cobra.Command{
		Use:   "replace [program.json]",
		Short: "Swap the operator behind an apply instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.Registry.Transformer(opName)
			if err != nil {
				return err
			}

			return c.runEdit(args[0], output, func(instrs []ir.Instruction) ([]ir.Instruction, string, error) {
				out, _, _, err := transform.ReplaceOperator(at, t, instrs)
				if err != nil {
					return nil, "", err
				}
				return out, fmt.Sprintf("Replaced operator at %d with %s", at, opName), nil
			})
		},
	}

	cmd.Flags().IntVar(&at, "at", 0, "index of the apply instruction to rewrite")
	cmd.Flags().StringVar(&opName, "op", "", "registry name of the replacement operator")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .edited.json suffix)")
	_ = cmd.MarkFlagRequired("op")

	return cmd
}

// editInlineCommand creates the "edit inline" subcommand.
func (c *CLI) editInlineCommand() *cobra.Command {
	var (
		at      int
		subPath string
		imports string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "inline [program.json]",
		Short: "Expand an instruction into a sub-program",
		Long: `Expand an instruction into a sub-program.

The sub-program's external inputs are bound through the --imports flag:
sub=host pairs map a sub-program index (or "input") to a host index. The
instruction at --at is replaced by the sub-program's result and unused
remnants are pruned.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := flowio.ImportProgram(subPath, c.Registry)
			if err != nil {
				return fmt.Errorf("load sub-program %s: %w", subPath, err)
			}
			importMap, err := parseIndexMap(imports)
			if err != nil {
				return err
			}

			return c.runEdit(args[0], output, func(instrs []ir.Instruction) ([]ir.Instruction, string, error) {
				out, _, res, err := transform.Inline(sub, importMap, at, instrs)
				if err != nil {
					return nil, "", err
				}
				return out, fmt.Sprintf("Inlined %d instructions, removed %d", res.Inserted, res.Removed), nil
			})
		},
	}

	cmd.Flags().IntVar(&at, "at", 0, "index of the instruction to expand")
	cmd.Flags().StringVar(&subPath, "sub", "", "program file to inline")
	cmd.Flags().StringVar(&imports, "imports", "", `comma-separated sub=host index pairs; unbound "input" references stay bound to the external input`)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .edited.json suffix)")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}

// runEdit loads a program, applies one rewrite, and writes the result.
func (c *CLI) runEdit(input, output string, rewrite func([]ir.Instruction) ([]ir.Instruction, string, error)) error {
	instrs, err := flowio.ImportProgram(input, c.Registry)
	if err != nil {
		return fmt.Errorf("load program %s: %w", input, err)
	}

	out, msg, err := rewrite(instrs)
	if err != nil {
		return err
	}

	path := output
	if path == "" {
		path = strings.TrimSuffix(input, ".json") + ".edited.json"
	}
	if err := flowio.ExportProgram(out, path); err != nil {
		return err
	}

	printSuccess("%s", msg)
	printDetail("%d → %d instructions", len(instrs), len(out))
	printFile(path)
	return nil
}

// parseIndexList parses a comma-separated list of instruction indices.
func parseIndexList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	indices := make([]int, 0, len(parts))
	for _, p := range parts {
		idx, err := parseIndex(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// parseIndexMap parses comma-separated key=value index pairs. The word
// "input" on either side denotes the external input sentinel.
func parseIndexMap(s string) (map[int]int, error) {
	result := make(map[int]int)
	if s == "" {
		return result, nil
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid pair %q: want old=new", pair)
		}
		k, err := parseIndex(kv[0])
		if err != nil {
			return nil, err
		}
		v, err := parseIndex(kv[1])
		if err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, nil
}

// parseIndex parses one instruction index, accepting "input" for the
// external input sentinel.
func parseIndex(s string) (int, error) {
	if s == "input" {
		return ir.SourceIndex, nil
	}
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return idx, nil
}
