package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newDDLCmd(opts *options) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the DDL of the schema file",
		Long: `Print the statements that create the tables of the schema file.

With --watch, the DDL is printed again each time the schema file changes,
until the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := renderDDL(out, opts); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchFile(cmd.Context(), opts.schemaPath, opts.logger, func() {
				fmt.Fprintln(out)
				if err := renderDDL(out, opts); err != nil {
					opts.logger.Error("failed to render ddl", "error", err)
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Print the DDL again when the schema file changes")
	return cmd
}

func renderDDL(w io.Writer, opts *options) error {
	name, tables, err := opts.load()
	if err != nil {
		return err
	}
	c, err := opts.compiler(name)
	if err != nil {
		return err
	}
	for _, t := range tables {
		t.Decorate()
		for _, stmt := range c.CreateTable(t) {
			if _, err := fmt.Fprintf(w, "%s;\n", stmt); err != nil {
				return err
			}
		}
	}
	return nil
}
