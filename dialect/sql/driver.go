package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/velox-timescaledb/dialect"
)

// validIdentifierRe matches session variable names, optionally qualified
// ("timescaledb.max_background_workers").
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes s for a single quoted literal of the given
// base dialect. MySQL also treats backslashes as escape characters.
func escapeStringValue(base, s string) string {
	if base == dialect.MySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return strings.ReplaceAll(s, "'", "''")
}

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
}

// Open opens a connection for the given dialect name. Registered names are
// resolved to their database/sql driver, so opening "timescaledb" uses the
// "postgres" driver while the returned Driver keeps reporting "timescaledb".
func Open(name, source string) (*Driver, error) {
	driverName := name
	if info, ok := dialect.Lookup(name); ok {
		driverName = info.Driver
	}
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %q: %w", name, err)
	}
	return OpenDB(name, db), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(name string, db *sql.DB) *Driver {
	return &Driver{Conn: Conn{ExecQuerier: db, dialect: name}, dialect: name}
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Dialect method.
func (d Driver) Dialect() string {
	if _, ok := dialect.Lookup(d.dialect); ok {
		return d.dialect
	}
	// The underlying driver is wrapped with a telemetry driver
	// (e.g. "postgres-otel"). Pick the longest registered prefix.
	var match string
	for _, name := range dialect.Names() {
		if strings.HasPrefix(d.dialect, name) && len(name) > len(match) {
			match = name
		}
	}
	if match != "" {
		return match
	}
	return d.dialect
}

// Capabilities returns the capabilities of the driver dialect.
func (d Driver) Capabilities() dialect.Capabilities {
	return dialect.CapabilitiesOf(d.Dialect())
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{ExecQuerier: tx, dialect: d.dialect, applied: make(map[string]string)},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx interface. Session variables of the statement
// contexts are set once per transaction and value.
type Tx struct {
	Conn
	driver.Tx
}

type ctxVarsKey struct{}

type sessionVar struct{ name, value string }

// WithVar returns a new context that holds the session variable to be set
// before every statement executed with it. Outside a transaction the
// statement runs on a dedicated connection and the variable is reset
// afterwards; inside a PostgreSQL transaction it is set with SET LOCAL.
//
//	ctx = sql.WithIntVar(ctx, "statement_timeout", 30000)
func WithVar(ctx context.Context, name, value string) context.Context {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	return context.WithValue(ctx, ctxVarsKey{}, append(slices.Clip(vars), sessionVar{name: name, value: value}))
}

// WithIntVar calls WithVar with the string representation of the value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
	// applied holds the session variables set in a transaction.
	applied map[string]string
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (rerr error) {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	switch v := v.(type) {
	case nil:
		if _, err := ex.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := ex.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, argv...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	if cf != nil {
		vr.ColumnScanner = rowsWithCloser{rows, cf}
	}
	return nil
}

// maySetVars sets the session variables of ctx before a statement. It
// returns the ExecQuerier to run the statement on and, for pooled
// connections, the function releasing it.
func (c Conn) maySetVars(ctx context.Context) (ExecQuerier, func() error, error) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	if len(vars) == 0 {
		return c, nil, nil
	}
	for _, v := range vars {
		if !isValidIdentifier(v.name) {
			return nil, nil, fmt.Errorf("invalid session variable name: %q", v.name)
		}
	}
	base := dialect.Base(c.dialect)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		for _, v := range vars {
			if cur, ok := c.applied[v.name]; ok && cur == v.value {
				continue
			}
			if _, err := e.ExecContext(ctx, setVarQuery(base, v, true)); err != nil {
				return nil, nil, err
			}
			if c.applied != nil {
				c.applied[v.name] = v.value
			}
		}
		return e, nil, nil
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		var reset []string
		for _, v := range vars {
			if q, ok := resetVarQuery(base, v.name); ok && !slices.Contains(reset, q) {
				reset = append(reset, q)
			}
			if _, err := conn.ExecContext(ctx, setVarQuery(base, v, false)); err != nil {
				return nil, nil, errors.Join(err, conn.Close())
			}
		}
		if len(reset) == 0 {
			return conn, conn.Close, nil
		}
		// The connection goes back to the pool, so the variables are reset
		// even if ctx was canceled.
		return conn, func() error {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := conn.ExecContext(rctx, q); err != nil {
					return errors.Join(err, conn.Close())
				}
			}
			return conn.Close()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
}

func setVarQuery(base string, v sessionVar, local bool) string {
	set := "SET "
	if local && base == dialect.Postgres {
		set = "SET LOCAL "
	}
	return set + v.name + " = '" + escapeStringValue(base, v.value) + "'"
}

func resetVarQuery(base, name string) (string, bool) {
	switch base {
	case dialect.Postgres:
		return "RESET " + name, true
	case dialect.MySQL:
		return "SET " + name + " = NULL", true
	default:
		return "", false
	}
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// rowsWithCloser wraps the ColumnScanner interface with a custom Close hook.
type rowsWithCloser struct {
	ColumnScanner
	closer func() error
}

// Close closes the underlying ColumnScanner and calls the custom closer.
func (r rowsWithCloser) Close() error {
	err := r.ColumnScanner.Close()
	return errors.Join(err, r.closer())
}
