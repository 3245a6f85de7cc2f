package schema

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/sqltool"

	"github.com/syssam/velox-timescaledb/dialect"
	"github.com/syssam/velox-timescaledb/dialect/sql"
	"github.com/syssam/velox-timescaledb/schema/field"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestMigrate_Create(t *testing.T) {
	db, mk, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	stmts := (&Postgres{}).CreateTable(metricsTable())
	mk.ExpectBegin()
	for _, stmt := range stmts {
		mk.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mk.ExpectCommit()

	m, err := NewMigrate(sql.OpenDB(dialect.Postgres, db))
	require.NoError(t, err)
	require.Equal(t, dialect.Postgres, m.Dialect())
	require.NoError(t, m.Create(context.Background(), metricsTable()))
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_CreateError(t *testing.T) {
	db, mk, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	stmts := (&Postgres{}).CreateTable(metricsTable())
	dbErr := errors.New(`pq: relation "metrics_name" already exists`)
	mk.ExpectBegin()
	mk.ExpectExec(stmts[0]).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(stmts[1]).WillReturnError(dbErr)
	mk.ExpectRollback()

	m, err := NewMigrate(sql.OpenDB(dialect.Postgres, db))
	require.NoError(t, err)
	err = m.Create(context.Background(), metricsTable())
	require.ErrorIs(t, err, dbErr, "database errors are wrapped, not replaced")
	require.ErrorContains(t, err, `sql/schema: create table "metrics": `)
	require.NoError(t, mk.ExpectationsWereMet())

	// Rollback errors are reported along with the statement error.
	mk.ExpectBegin()
	mk.ExpectExec(stmts[0]).WillReturnError(dbErr)
	mk.ExpectRollback().WillReturnError(errors.New("connection reset"))
	err = m.Create(context.Background(), metricsTable())
	require.ErrorIs(t, err, dbErr)
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_Drop(t *testing.T) {
	db, mk, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	mk.ExpectBegin()
	mk.ExpectExec(`DROP TABLE IF EXISTS "b"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(`DROP TABLE IF EXISTS "a"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectCommit()

	m, err := NewMigrate(sql.OpenDB(dialect.Postgres, db))
	require.NoError(t, err)
	require.NoError(t, m.Drop(context.Background(), NewTable("a"), NewTable("b")))
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestMigrate_Hooks(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	var calls []string
	hook := func(name string) Hook {
		return func(next Creator) Creator {
			return CreateFunc(func(ctx context.Context, tables ...*Table) error {
				calls = append(calls, name)
				return next.Create(ctx, tables...)
			})
		}
	}
	stop := errors.New("stop")
	m, err := NewMigrate(sql.OpenDB(dialect.Postgres, db),
		WithHooks(hook("first"), hook("second")),
		WithHooks(func(Creator) Creator {
			return CreateFunc(func(context.Context, ...*Table) error { return stop })
		}),
	)
	require.NoError(t, err)
	require.ErrorIs(t, m.Create(context.Background(), metricsTable()), stop)
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestMigrate_Options(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)

	_, err = NewMigrate(sql.OpenDB(dialect.MySQL, db))
	require.Error(t, err, "no compiler for mysql")

	m, err := NewMigrate(sql.OpenDB(dialect.MySQL, db), WithDialect(dialect.SQLite))
	require.NoError(t, err)
	require.Equal(t, dialect.SQLite, m.Dialect())
	require.IsType(t, &SQLite{}, m.compiler)

	c := &Postgres{Dialect: "custom"}
	m, err = NewMigrate(sql.OpenDB(dialect.MySQL, db), WithCompiler(c))
	require.NoError(t, err)
	require.Same(t, c, m.compiler)

	_, err = NewMigrate(nil, WithDialect(dialect.Postgres))
	require.NoError(t, err, "a driver is only required to apply changes")
}

func TestMigrate_Formatter(t *testing.T) {
	// If no formatter is given it is picked according to the migration directory implementation.
	for _, tt := range []struct {
		dir migrate.Dir
		fmt migrate.Formatter
	}{
		{&migrate.LocalDir{}, sqltool.GolangMigrateFormatter},
		{&sqltool.GolangMigrateDir{}, sqltool.GolangMigrateFormatter},
		{&sqltool.GooseDir{}, sqltool.GooseFormatter},
		{&sqltool.DBMateDir{}, sqltool.DBMateFormatter},
		{&sqltool.FlywayDir{}, sqltool.FlywayFormatter},
		{&sqltool.LiquibaseDir{}, sqltool.LiquibaseFormatter},
		{struct{ migrate.Dir }{}, sqltool.GolangMigrateFormatter},
	} {
		m, err := NewMigrate(nil, WithDialect(dialect.Postgres), WithDir(tt.dir))
		require.NoError(t, err)
		require.Equal(t, tt.fmt, m.fmt)
	}

	// If a formatter is given, it is not overridden.
	m, err := NewMigrate(nil, WithDialect(dialect.Postgres), WithDir(&migrate.LocalDir{}), WithFormatter(migrate.DefaultFormatter))
	require.NoError(t, err)
	require.Equal(t, migrate.DefaultFormatter, m.fmt)
}

func TestMigrate_WriteMigration(t *testing.T) {
	p := t.TempDir()
	dir, err := migrate.NewLocalDir(p)
	require.NoError(t, err)
	var logs bytes.Buffer
	m, err := NewMigrate(nil,
		WithDialect(dialect.Postgres),
		WithDir(dir),
		WithFormatter(migrate.DefaultFormatter),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)
	require.NoError(t, m.WriteMigration(context.Background(), "metrics", metricsTable()))

	files, err := dir.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "metrics", files[0].Desc())
	require.Contains(t, string(files[0].Bytes()), `CREATE TABLE IF NOT EXISTS "metrics"`)
	require.Contains(t, string(files[0].Bytes()), `CREATE INDEX IF NOT EXISTS "metrics_name" ON "metrics" ("name");`)
	_, err = os.Stat(filepath.Join(p, migrate.HashFileName))
	require.NoError(t, err)
	require.NoError(t, migrate.Validate(dir))
	require.Contains(t, logs.String(), "migration file written")

	m, err = NewMigrate(nil, WithDialect(dialect.Postgres))
	require.NoError(t, err)
	require.ErrorContains(t, m.WriteMigration(context.Background(), "x"), "requires a migration directory")
}

func TestMigrate_PlanDiff(t *testing.T) {
	m, err := NewMigrate(nil, WithDialect(dialect.Postgres))
	require.NoError(t, err)
	devices := func() *Table {
		return NewTable("devices").AddPrimary(&Column{Name: "id", Type: field.TypeInt64})
	}
	current := []*Table{metricsTable(), NewTable("legacy").AddPrimary(&Column{Name: "id", Type: field.TypeInt64})}

	_, res, err := m.PlanDiff("diff", current, []*Table{metricsTable(), devices()})
	require.ErrorContains(t, err, "plan diff: 1 error(s)")
	require.Equal(t, "legacy: table will be dropped", res.Errors[0].Error())

	changed := metricsTable().AddColumn(&Column{Name: "host", Type: field.TypeString, Nullable: true})
	plan, res, err := m.PlanDiff("diff", current, []*Table{changed, devices()}, AllowDropTable())
	require.NoError(t, err)
	require.Len(t, plan.Changes, 2)
	require.Equal(t, `DROP TABLE IF EXISTS "legacy"`, plan.Changes[0].Cmd)
	require.Contains(t, plan.Changes[1].Cmd, `CREATE TABLE IF NOT EXISTS "devices"`)
	require.Len(t, res.Warnings, 2)
	require.Equal(t, "metrics: table definition changed, ALTER statements are not generated", res.Warnings[1].Error())

	_, _, err = m.PlanDiff("diff", nil, []*Table{nil})
	require.ErrorContains(t, err, "nil table")
}

func TestMigrate_WriteDiff(t *testing.T) {
	dir, err := migrate.NewLocalDir(t.TempDir())
	require.NoError(t, err)
	var logs bytes.Buffer
	m, err := NewMigrate(nil,
		WithDialect(dialect.Postgres),
		WithDir(dir),
		WithFormatter(migrate.DefaultFormatter),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := m.WriteDiff(ctx, "noop", []*Table{metricsTable()}, []*Table{metricsTable()})
	require.NoError(t, err)
	require.False(t, res.HasWarnings())
	files, err := dir.Files()
	require.NoError(t, err)
	require.Empty(t, files)
	require.Contains(t, logs.String(), "schema is up to date")

	devices := NewTable("devices").AddPrimary(&Column{Name: "id", Type: field.TypeInt64})
	_, err = m.WriteDiff(ctx, "devices", []*Table{metricsTable()}, []*Table{metricsTable(), devices})
	require.NoError(t, err)
	files, err = dir.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "devices", files[0].Desc())
	require.Contains(t, string(files[0].Bytes()), `CREATE TABLE IF NOT EXISTS "devices"`)
	require.NotContains(t, string(files[0].Bytes()), `"metrics"`)
	require.NoError(t, migrate.Validate(dir))
}

// TestMigrate_SQLite applies the migration on a real in-memory database.
func TestMigrate_SQLite(t *testing.T) {
	drv, err := sql.Open(dialect.SQLite, "file:migrate_test?mode=memory")
	require.NoError(t, err)
	defer drv.Close()
	drv.DB().SetMaxOpenConns(1)
	ctx := context.Background()

	m, err := NewMigrate(drv)
	require.NoError(t, err)
	require.NoError(t, m.Create(ctx, metricsTable()))
	// Statements are idempotent.
	require.NoError(t, m.Create(ctx, metricsTable()))

	rows := &sql.Rows{}
	require.NoError(t, drv.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?`, []any{"metrics"}, rows))
	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Close())
	require.Equal(t, []string{"metrics_name"}, names)

	require.NoError(t, m.Drop(ctx, metricsTable()))
	require.NoError(t, drv.Exec(ctx, `CREATE TABLE "metrics" ("id" integer)`, []any{}, nil), "table was dropped")
}
