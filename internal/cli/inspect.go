package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	flowio "github.com/flowforge/flowforge/pkg/io"
	"github.com/flowforge/flowforge/pkg/ir"
)

// inspectCommand creates the inspect command for browsing a program.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		ancestors   int
		descendants int
		children    int
		list        bool
	)
	// Sentinel meaning "flag not set"; instruction indices are >= 0.
	const unset = -1
	ancestors, descendants, children = unset, unset, unset

	cmd := &cobra.Command{
		Use:   "inspect [program.json]",
		Short: "Browse a program and query its dependency structure",
		Long: `Browse a program and query its dependency structure.

Without flags, inspect opens an interactive browser over the instruction
sequence. With --ancestors, --descendants, or --children, it prints the
requested dependency set for the given instruction index and exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instrs, err := flowio.ImportProgram(args[0], c.Registry)
			if err != nil {
				return fmt.Errorf("load program %s: %w", args[0], err)
			}
			loggerFromContext(cmd.Context()).Debugf("Loaded %d instructions from %s", len(instrs), args[0])

			switch {
			case ancestors != unset:
				return printQuerySet("ancestors", ancestors, instrs, ir.Ancestors)
			case descendants != unset:
				return printQuerySet("descendants", descendants, instrs, ir.Descendants)
			case children != unset:
				return printChildren(children, instrs)
			case list:
				printProgram(instrs)
				return nil
			default:
				model := newProgramModel(args[0], instrs)
				_, err := tea.NewProgram(model).Run()
				return err
			}
		},
	}

	cmd.Flags().IntVar(&ancestors, "ancestors", unset, "print the transitive inputs of the instruction at this index")
	cmd.Flags().IntVar(&descendants, "descendants", unset, "print the transitive consumers of the instruction at this index")
	cmd.Flags().IntVar(&children, "children", unset, "print the direct consumers of the instruction at this index")
	cmd.Flags().BoolVar(&list, "list", false, "print the instruction listing instead of opening the browser")

	return cmd
}

// printQuerySet runs an ancestor or descendant query and prints the result.
func printQuerySet(kind string, id int, instrs []ir.Instruction, query func(int, []ir.Instruction) (map[int]bool, error)) error {
	set, err := query(id, instrs)
	if err != nil {
		return err
	}
	printInfo("%s of instruction %d:", kind, id)
	for _, idx := range ir.SortedIndices(set) {
		printDetail("%3d  %s", idx, instrs[idx])
	}
	if len(set) == 0 {
		printDetail("none")
	}
	return nil
}

// printChildren prints the direct consumers of an instruction, with
// multiplicity.
func printChildren(id int, instrs []ir.Instruction) error {
	kids, err := ir.Children(id, instrs)
	if err != nil {
		return err
	}
	printInfo("children of instruction %d:", id)
	for _, idx := range kids {
		printDetail("%3d  %s", idx, instrs[idx])
	}
	if len(kids) == 0 {
		printDetail("none")
	}
	return nil
}

// printProgram prints the full instruction listing.
func printProgram(instrs []ir.Instruction) {
	for i, in := range instrs {
		fmt.Printf("%s  %s\n", StyleNumber.Render(fmt.Sprintf("%3d", i)), StyleValue.Render(in.String()))
	}
}
