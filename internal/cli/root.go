// Package cli implements the velox-timescaledb command line.
package cli

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/syssam/velox-timescaledb/dialect/sql"
	"github.com/syssam/velox-timescaledb/dialect/sql/schema"
	"github.com/syssam/velox-timescaledb/dialect/timescaledb"
	"github.com/syssam/velox-timescaledb/internal/config"
)

// options are the flags shared by all subcommands.
type options struct {
	schemaPath string
	dialect    string
	logLevel   string
	logger     *slog.Logger
	// open opens the database selected by a connection URL.
	open func(string) (*sql.Driver, error)
}

// NewRootCmd returns the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{open: sql.OpenURL})
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "velox-timescaledb",
		Short: "Render, check and apply TimescaleDB schemas",
		Long: `Render, check and apply table definitions for TimescaleDB.

Tables are read from a YAML schema file. Tables carrying a "timescaledb"
block are created as hypertables; all other tables get plain PostgreSQL DDL.

Commands:
- ddl:     print the DDL of the schema file
- migrate: create (or drop) the tables in a database
- diff:    write the DDL as a versioned migration file
- check:   validate the schema file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", opts.logLevel, err)
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.schemaPath, "schema", "s", "schema.yaml", "Path to the YAML schema file")
	flags.StringVar(&opts.dialect, "dialect", "", "Dialect to compile for (overrides the schema file)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newDDLCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newDiffCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	return cmd
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// load reads the schema file and returns the dialect to compile for and
// the tables it defines.
func (o *options) load() (string, []*schema.Table, error) {
	return o.loadFile(o.schemaPath)
}

// loadFile is like load, for the schema file at path.
func (o *options) loadFile(path string) (string, []*schema.Table, error) {
	f, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}
	tables, err := f.Build()
	if err != nil {
		return "", nil, err
	}
	return cmp.Or(o.dialect, f.Dialect, timescaledb.Name), tables, nil
}

// compiler returns the DDL compiler of the dialect, logging to the
// command logger.
func (o *options) compiler(name string) (schema.Compiler, error) {
	c, err := schema.CompilerFor(name)
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*timescaledb.Compiler); ok {
		cc := *tc
		cc.Logger = o.logger
		c = &cc
	}
	return c, nil
}
