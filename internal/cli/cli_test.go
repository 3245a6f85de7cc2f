package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/velox-timescaledb/dialect/sql"
	"github.com/syssam/velox-timescaledb/dialect/timescaledb"
)

const schemaYAML = `
dialect: timescaledb
tables:
  - name: metrics
    columns:
      - {name: time, type: time}
      - {name: device, type: string, size: 64}
      - {name: value, type: float64, nullable: true}
    primary_key: [time, device]
    timescaledb:
      time_column_name: time
      chunk_time_interval: 1 day
  - name: devices
    columns:
      - {name: id, type: int64, increment: true}
      - {name: name, type: string}
    primary_key: [id]
`

// lockedBuffer is a bytes.Buffer safe for concurrent use.
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(ctx context.Context, opts *options, args ...string) (stdout, stderr *lockedBuffer, err error) {
	if opts == nil {
		opts = &options{open: sql.OpenURL}
	}
	stdout, stderr = &lockedBuffer{}, &lockedBuffer{}
	cmd := newRootCmd(opts)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(ctx)
	return stdout, stderr, err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "velox-timescaledb", cmd.Use)
	for _, name := range []string{"ddl", "migrate", "diff", "check"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("schema"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestDDL(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	stdout, stderr, err := execute(context.Background(), nil, "ddl", "--schema", path)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "metrics" (`)
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "devices" (`)
	assert.Contains(t, out, "SELECT create_hypertable('metrics', 'time', chunk_time_interval => INTERVAL '1 day', if_not_exists => TRUE);\n")
	assert.NotContains(t, out, "metrics_time_idx")
	assert.Contains(t, stderr.String(), "index=metrics_time_idx")
}

func TestDDL_Dialect(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	stdout, _, err := execute(context.Background(), nil, "ddl", "--schema", path, "--dialect", "postgres")
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), `CREATE TABLE IF NOT EXISTS "metrics" (`)
	assert.NotContains(t, stdout.String(), "create_hypertable")
	assert.Contains(t, stdout.String(), `CREATE INDEX IF NOT EXISTS "metrics_time_idx" ON "metrics" ("time" DESC);`)

	_, _, err = execute(context.Background(), nil, "ddl", "--schema", path, "--dialect", "oracle")
	require.ErrorContains(t, err, `no DDL compiler registered for dialect "oracle"`)
}

func TestDDL_Watch(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		stdout, stderr *lockedBuffer
		err            error
		done           = make(chan struct{})
	)
	stdout, stderr = &lockedBuffer{}, &lockedBuffer{}
	go func() {
		defer close(done)
		cmd := newRootCmd(&options{open: sql.OpenURL})
		cmd.SetOut(stdout)
		cmd.SetErr(stderr)
		cmd.SetArgs([]string{"ddl", "--schema", path, "--watch"})
		err = cmd.ExecuteContext(ctx)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "watching schema file")
	}, 5*time.Second, 10*time.Millisecond)

	updated := schemaYAML + `
  - name: events
    columns:
      - {name: id, type: int64}
    primary_key: [id]
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), `CREATE TABLE IF NOT EXISTS "events"`)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	require.NoError(t, err)
}

func TestInvalidFlags(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	_, _, err := execute(context.Background(), nil, "ddl", "--schema", path, "--log-level", "verbose")
	require.ErrorContains(t, err, `invalid --log-level "verbose"`)

	_, _, err = execute(context.Background(), nil, "ddl", "--schema", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "config: open schema file")

	_, _, err = execute(context.Background(), nil, "migrate", "--schema", path)
	require.ErrorContains(t, err, `required flag(s) "url" not set`)
}

func mockOpen(t *testing.T) (*options, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &options{
		open: func(string) (*sql.Driver, error) {
			return sql.OpenDB(timescaledb.Name, db), nil
		},
	}, mock
}

func TestMigrate(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	opts, mock := mockOpen(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "metrics"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT create_hypertable('metrics', 'time'`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "devices"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectClose()

	stdout, stderr, err := execute(context.Background(), opts, "migrate", "--schema", path, "--url", "timescaledb://localhost/metrics", "--stats")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, stdout.String(), "queries=0 execs=3")
	assert.Contains(t, stderr.String(), `msg="schema migrated" dialect=timescaledb tables=2`)
}

func TestMigrate_Drop(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	opts, mock := mockOpen(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "devices"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "metrics"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectClose()

	_, stderr, err := execute(context.Background(), opts, "migrate", "--schema", path, "--url", "timescaledb://localhost/metrics", "--drop", "--debug", "--log-level", "debug")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, stderr.String(), "begin transaction")
}

func TestMigrate_Error(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	opts, mock := mockOpen(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "metrics"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT create_hypertable`)).WillReturnError(assert.AnError)
	mock.ExpectRollback()
	mock.ExpectClose()

	_, _, err := execute(context.Background(), opts, "migrate", "--schema", path, "--url", "timescaledb://localhost/metrics")
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())

	_, _, err = execute(context.Background(), opts, "migrate", "--schema", path, "--url", "x", "--stats", "--debug")
	require.ErrorContains(t, err, "none of the others can be")
}

func TestMigrate_Timeouts(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	opts, mock := mockOpen(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL statement_timeout = '30000'`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL lock_timeout = '5000'`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "metrics"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT create_hypertable('metrics', 'time'`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "devices"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectClose()

	_, _, err := execute(context.Background(), opts, "migrate", "--schema", path, "--url", "timescaledb://localhost/metrics",
		"--statement-timeout", "30s", "--lock-timeout", "5s")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	opts, _ = mockOpen(t)
	_, _, err = execute(context.Background(), opts, "migrate", "--schema", path, "--url", "timescaledb://localhost/metrics",
		"--dialect", "sqlite", "--lock-timeout", "5s")
	require.ErrorContains(t, err, `lock_timeout is not supported by dialect "sqlite"`)
}

func TestDiff(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	tests := []struct {
		format string
		glob   string
	}{
		{"atlas", "*_schema.sql"},
		{"golang-migrate", "*_schema.up.sql"},
		{"goose", "*_schema.sql"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "migrations")
			_, stderr, err := execute(context.Background(), nil, "diff", "--schema", path, "--dir", dir, "--format", tt.format)
			require.NoError(t, err)

			files, err := filepath.Glob(filepath.Join(dir, tt.glob))
			require.NoError(t, err)
			require.Len(t, files, 1)
			data, err := os.ReadFile(files[0])
			require.NoError(t, err)
			assert.Contains(t, string(data), "SELECT create_hypertable('metrics', 'time', chunk_time_interval => INTERVAL '1 day', if_not_exists => TRUE);")
			assert.FileExists(t, filepath.Join(dir, "atlas.sum"))
			assert.Contains(t, stderr.String(), "migration file written")
		})
	}

	_, _, err := execute(context.Background(), nil, "diff", "--schema", path, "--format", "rails")
	require.ErrorContains(t, err, "must be one of atlas, golang-migrate")
}

const prevSchemaYAML = `
dialect: timescaledb
tables:
  - name: metrics
    columns:
      - {name: time, type: time}
      - {name: device, type: string, size: 64}
      - {name: value, type: float64, nullable: true}
    primary_key: [time, device]
    timescaledb:
      time_column_name: time
      chunk_time_interval: 1 day
  - name: legacy
    columns:
      - {name: id, type: int64}
    primary_key: [id]
`

func TestDiff_From(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	prev := writeSchema(t, prevSchemaYAML)
	dir := filepath.Join(t.TempDir(), "migrations")
	args := []string{"diff", "--schema", path, "--from", prev, "--dir", dir, "--format", "atlas"}

	stdout, _, err := execute(context.Background(), nil, args...)
	require.ErrorContains(t, err, "plan diff: 1 error(s)")
	assert.Contains(t, stdout.String(), "legacy: table will be dropped [BREAKING]")
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	require.NoError(t, err)
	require.Empty(t, files)

	stdout, _, err = execute(context.Background(), nil, append(args, "--allow-drop")...)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Warnings:")
	files, err = filepath.Glob(filepath.Join(dir, "*_schema.sql"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `DROP TABLE IF EXISTS "legacy";`)
	assert.Contains(t, string(data), `CREATE TABLE IF NOT EXISTS "devices"`)
	assert.NotContains(t, string(data), "create_hypertable")

	_, stderr, err := execute(context.Background(), nil, "diff", "--schema", path, "--from", path, "--dir", dir, "--format", "atlas", "--name", "noop")
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "schema is up to date")
	files, err = filepath.Glob(filepath.Join(dir, "*_noop.sql"))
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestCheck(t *testing.T) {
	path := writeSchema(t, schemaYAML)
	stdout, _, err := execute(context.Background(), nil, "check", "--schema", path)
	require.NoError(t, err)
	assert.Equal(t, "2 table(s) ok\n", stdout.String())

	path = writeSchema(t, `
tables:
  - name: metrics
    columns:
      - {name: time, type: string}
      - {name: device, type: string, unique: true}
    timescaledb:
      time_column_name: time
`)
	stdout, _, err = execute(context.Background(), nil, "check", "--schema", path)
	require.EqualError(t, err, "schema has 2 error(s)")
	out := stdout.String()
	assert.Contains(t, out, "metrics.time: hypertable time column must be a time or integer column, got string")
	assert.Contains(t, out, `metrics.device: unique column is not allowed on a hypertable, use a unique index including "time"`)
	assert.Contains(t, out, "table has no primary key")
}
