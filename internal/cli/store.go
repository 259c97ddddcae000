package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowforge/flowforge/pkg/errors"
	flowio "github.com/flowforge/flowforge/pkg/io"
	"github.com/flowforge/flowforge/pkg/store"
)

// storeFlags holds the shared connection flags for store subcommands.
type storeFlags struct {
	uri      string
	database string
}

// open connects to the configured program store.
func (f *storeFlags) open(ctx context.Context) (*store.Mongo, error) {
	s, err := store.NewMongo(ctx, f.uri, f.database)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	return s, nil
}

// storeCommand creates the store command group.
func (c *CLI) storeCommand() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Push and pull programs from the program store",
	}

	cmd.PersistentFlags().StringVar(&flags.uri, "uri", "mongodb://localhost:27017", "MongoDB connection URI")
	cmd.PersistentFlags().StringVar(&flags.database, "db", appName, "database name")

	cmd.AddCommand(c.storePushCommand(flags))
	cmd.AddCommand(c.storePullCommand(flags))
	cmd.AddCommand(c.storeListCommand(flags))
	cmd.AddCommand(c.storeRemoveCommand(flags))

	return cmd
}

// storePushCommand creates the "store push" subcommand.
func (c *CLI) storePushCommand(flags *storeFlags) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "push [program.json]",
		Short: "Upload a program to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog := newProgress(loggerFromContext(ctx))

			// Validating through the registry catches malformed files
			// before they reach the store.
			instrs, err := flowio.ImportProgram(args[0], c.Registry)
			if err != nil {
				return fmt.Errorf("load program %s: %w", args[0], err)
			}

			if name == "" {
				base := filepath.Base(args[0])
				name = strings.TrimSuffix(base, filepath.Ext(base))
			}
			if err := errors.ValidateName(name); err != nil {
				return err
			}

			s, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			if err := s.Save(ctx, name, flowio.FromProgram(instrs)); err != nil {
				return fmt.Errorf("save %s: %w", name, err)
			}
			prog.done(fmt.Sprintf("Pushed %d instructions", len(instrs)))
			printSuccess("Pushed %s (%d instructions)", StyleHighlight.Render(name), len(instrs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "program name (default: file name without extension)")

	return cmd
}

// storePullCommand creates the "store pull" subcommand.
func (c *CLI) storePullCommand(flags *storeFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pull [name]",
		Short: "Download a program from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			p, err := s.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			instrs, err := flowio.ToProgram(p, c.Registry)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			path := output
			if path == "" {
				path = args[0] + ".json"
			}
			if err := flowio.ExportProgram(instrs, path); err != nil {
				return err
			}
			printSuccess("Pulled %s (%d instructions)", StyleHighlight.Render(args[0]), len(instrs))
			printFile(path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <name>.json)")

	return cmd
}

// storeListCommand creates the "store ls" subcommand.
func (c *CLI) storeListCommand(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			names, err := s.List(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No stored programs")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

// storeRemoveCommand creates the "store rm" subcommand.
func (c *CLI) storeRemoveCommand(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [name]",
		Short: "Delete a stored program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			if err := s.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}
