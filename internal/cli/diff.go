package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/sqltool"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/syssam/velox-timescaledb/dialect/sql/schema"
)

// Migration directory formats.
const (
	formatAtlas         = "atlas"
	formatGolangMigrate = "golang-migrate"
	formatGoose         = "goose"
	formatDBMate        = "dbmate"
	formatFlyway        = "flyway"
	formatLiquibase     = "liquibase"
)

var dirFormats = []string{formatAtlas, formatGolangMigrate, formatGoose, formatDBMate, formatFlyway, formatLiquibase}

// dirFormat is a pflag.Value accepting one of dirFormats.
type dirFormat string

func (f *dirFormat) String() string { return string(*f) }

func (f *dirFormat) Set(v string) error {
	v = strings.ToLower(v)
	if !slices.Contains(dirFormats, v) {
		return fmt.Errorf("must be one of %s", strings.Join(dirFormats, ", "))
	}
	*f = dirFormat(v)
	return nil
}

func (*dirFormat) Type() string { return "format" }

var _ pflag.Value = (*dirFormat)(nil)

func newDiffCmd(opts *options) *cobra.Command {
	var (
		dir          string
		name         string
		from         string
		allowDrop    bool
		allowNotNull bool
		format       = dirFormat(formatGolangMigrate)
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Write the DDL of the schema file as a migration file",
		Long: `Write the statements that create the tables of the schema file as a new
versioned migration file, and update the directory sum file.

With --from, only the difference to the schema file the database is at is
written: tables missing from the schema are dropped and new tables are
created. Changes that lose data (dropped tables, columns and indexes, or
columns becoming NOT NULL) fail the command unless allowed, and no file is
written if nothing changed.

  velox-timescaledb diff --from schema.prev.yaml --allow-drop

The file layout follows the migration tool selected by --format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDir(string(format), dir)
			if err != nil {
				return err
			}
			dialectName, tables, err := opts.load()
			if err != nil {
				return err
			}
			c, err := opts.compiler(dialectName)
			if err != nil {
				return err
			}
			mopts := []schema.MigrateOption{
				schema.WithDialect(dialectName),
				schema.WithCompiler(c),
				schema.WithLogger(opts.logger),
				schema.WithDir(d),
			}
			if format == formatAtlas {
				mopts = append(mopts, schema.WithFormatter(migrate.DefaultFormatter))
			}
			m, err := schema.NewMigrate(nil, mopts...)
			if err != nil {
				return err
			}
			if from == "" {
				return m.WriteMigration(cmd.Context(), name, tables...)
			}
			_, current, err := opts.loadFile(from)
			if err != nil {
				return err
			}
			var vopts []schema.ValidateOption
			if allowDrop {
				vopts = append(vopts, schema.AllowDropTable(), schema.AllowDropColumn(), schema.AllowDropIndex())
			}
			if allowNotNull {
				vopts = append(vopts, schema.AllowNullToNotNull())
			}
			res, err := m.WriteDiff(cmd.Context(), name, current, tables, vopts...)
			if res != nil && (res.HasErrors() || res.HasWarnings()) {
				fmt.Fprint(cmd.OutOrStdout(), res.String())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "migrations", "Migration directory")
	cmd.Flags().StringVar(&name, "name", "schema", "Migration name")
	cmd.Flags().StringVar(&from, "from", "", "Schema file the database is at, write only the difference")
	cmd.Flags().BoolVar(&allowDrop, "allow-drop", false, "Allow dropping tables, columns and indexes (with --from)")
	cmd.Flags().BoolVar(&allowNotNull, "allow-not-null", false, "Allow nullable columns to become NOT NULL (with --from)")
	cmd.Flags().Var(&format, "format", "Migration directory format ("+strings.Join(dirFormats, ", ")+")")
	return cmd
}

// openDir opens (and creates) the migration directory at path.
func openDir(format, path string) (migrate.Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migration directory: %w", err)
	}
	var (
		d   migrate.Dir
		err error
	)
	switch format {
	case formatAtlas:
		d, err = migrate.NewLocalDir(path)
	case formatGoose:
		d, err = sqltool.NewGooseDir(path)
	case formatDBMate:
		d, err = sqltool.NewDBMateDir(path)
	case formatFlyway:
		d, err = sqltool.NewFlywayDir(path)
	case formatLiquibase:
		d, err = sqltool.NewLiquibaseDir(path)
	default:
		d, err = sqltool.NewGolangMigrateDir(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open migration directory: %w", err)
	}
	return d, nil
}
