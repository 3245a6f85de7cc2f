package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/velox-timescaledb/dialect/sql/schema"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the schema file",
		Long: `Validate the tables of the schema file.

Besides the generic checks (primary keys, index columns, duplicates),
hypertables are checked against the rules TimescaleDB enforces when
create_hypertable runs: the time column type, and unique constraints
covering the partitioning columns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tables, err := opts.load()
			if err != nil {
				return err
			}
			res := schema.ValidateSchema(tables)
			out := cmd.OutOrStdout()
			if !res.HasErrors() && !res.HasWarnings() {
				fmt.Fprintf(out, "%d table(s) ok\n", len(tables))
				return nil
			}
			fmt.Fprint(out, res.String())
			if res.HasErrors() {
				return fmt.Errorf("schema has %d error(s)", len(res.Errors))
			}
			return nil
		},
	}
}
