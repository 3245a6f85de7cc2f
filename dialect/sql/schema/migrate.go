package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/sqltool"

	"github.com/syssam/velox-timescaledb/dialect"
)

type (
	// Creator is the interface that wraps the Create method.
	Creator interface {
		// Create creates the given tables in the database. See Migrate.Create for more details.
		Create(context.Context, ...*Table) error
	}

	// The CreateFunc type is an adapter to allow the use of ordinary function as Creator.
	// If f is a function with the appropriate signature, CreateFunc(f) is a Creator that calls f.
	CreateFunc func(context.Context, ...*Table) error

	// Hook defines the "create middleware". A function that gets a Creator and returns a Creator.
	// For example:
	//
	//	hook := func(next schema.Creator) schema.Creator {
	//		return schema.CreateFunc(func(ctx context.Context, tables ...*schema.Table) error {
	//			fmt.Println("Tables:", tables)
	//			return next.Create(ctx, tables...)
	//		})
	//	}
	//
	Hook func(Creator) Creator
)

// Create calls f(ctx, tables...).
func (f CreateFunc) Create(ctx context.Context, tables ...*Table) error {
	return f(ctx, tables...)
}

// MigrateOption allows configuring Migrate using functional arguments.
type MigrateOption func(*Migrate)

// WithHooks adds a list of hooks to the schema migration.
func WithHooks(hooks ...Hook) MigrateOption {
	return func(m *Migrate) {
		m.hooks = append(m.hooks, hooks...)
	}
}

// WithDialect configures the dialect name the DDL is compiled for. It
// defaults to the dialect of the driver.
func WithDialect(name string) MigrateOption {
	return func(m *Migrate) {
		m.dialect = name
	}
}

// WithCompiler overrides the DDL compiler resolved from the dialect.
func WithCompiler(c Compiler) MigrateOption {
	return func(m *Migrate) {
		m.compiler = c
	}
}

// WithLogger sets the logger used to report executed statements.
func WithLogger(logger *slog.Logger) MigrateOption {
	return func(m *Migrate) {
		m.logger = logger
	}
}

// WithDir sets the atlas migration directory WriteMigration writes to.
func WithDir(dir migrate.Dir) MigrateOption {
	return func(m *Migrate) {
		m.dir = dir
	}
}

// WithFormatter sets the atlas formatter of migration files. If not set,
// it is picked from the type of the migration directory.
func WithFormatter(fmt migrate.Formatter) MigrateOption {
	return func(m *Migrate) {
		m.fmt = fmt
	}
}

// Migrate runs the DDL of tables against a database, or writes it to a
// migration directory.
type Migrate struct {
	drv      dialect.Driver
	dialect  string
	compiler Compiler
	hooks    []Hook
	logger   *slog.Logger
	dir      migrate.Dir
	fmt      migrate.Formatter
}

// NewMigrate creates a new schema migration for the given driver.
func NewMigrate(drv dialect.Driver, opts ...MigrateOption) (*Migrate, error) {
	m := &Migrate{drv: drv}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialect == "" && drv != nil {
		m.dialect = drv.Dialect()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.compiler == nil {
		c, err := CompilerFor(m.dialect)
		if err != nil {
			return nil, err
		}
		m.compiler = c
	}
	if m.dir != nil && m.fmt == nil {
		m.fmt = formatter(m.dir)
	}
	return m, nil
}

// Dialect returns the dialect name the migration compiles for.
func (m *Migrate) Dialect() string { return m.dialect }

// Create creates all tables in one transaction. Statements run in the
// order the compiler returns them; the first failing statement rolls the
// transaction back and its error is returned wrapped.
func (m *Migrate) Create(ctx context.Context, tables ...*Table) error {
	var creator Creator = CreateFunc(m.create)
	for i := len(m.hooks) - 1; i >= 0; i-- {
		creator = m.hooks[i](creator)
	}
	return creator.Create(ctx, tables...)
}

func (m *Migrate) create(ctx context.Context, tables ...*Table) error {
	if m.drv == nil {
		return errors.New("sql/schema: create: missing driver")
	}
	plan, err := m.Plan("create", tables...)
	if err != nil {
		return err
	}
	return m.apply(ctx, plan)
}

// Drop drops the given tables in reverse order, in one transaction.
func (m *Migrate) Drop(ctx context.Context, tables ...*Table) error {
	if m.drv == nil {
		return errors.New("sql/schema: drop: missing driver")
	}
	plan := &migrate.Plan{Name: "drop", Transactional: true}
	for _, t := range slices.Backward(tables) {
		for _, stmt := range m.compiler.DropTable(t) {
			plan.Changes = append(plan.Changes, &migrate.Change{
				Cmd:     stmt,
				Comment: fmt.Sprintf("drop table %q", t.Name),
			})
		}
	}
	return m.apply(ctx, plan)
}

// Plan compiles the given tables into an atlas migration plan. Tables are
// decorated before compiling, so implicitly created objects are known to
// the compiler.
func (m *Migrate) Plan(name string, tables ...*Table) (*migrate.Plan, error) {
	plan := &migrate.Plan{Name: name, Transactional: true}
	for _, t := range tables {
		if t == nil {
			return nil, errors.New("sql/schema: plan: nil table")
		}
		t.Decorate()
		for _, stmt := range m.compiler.CreateTable(t) {
			plan.Changes = append(plan.Changes, &migrate.Change{
				Cmd:     stmt,
				Comment: fmt.Sprintf("create table %q", t.Name),
			})
		}
	}
	return plan, nil
}

// WriteMigration writes the DDL of the given tables as a new versioned
// migration file into the configured migration directory and updates its
// sum file.
func (m *Migrate) WriteMigration(ctx context.Context, name string, tables ...*Table) error {
	plan, err := m.Plan(name, tables...)
	if err != nil {
		return err
	}
	return m.writePlan(ctx, plan)
}

// PlanDiff plans the move from the current tables to the desired ones.
// Tables missing from desired are dropped, in reverse order, and new
// tables are created. Tables on both sides are not altered; if their
// DDL differs, a warning is added to the result. The plan is not
// returned if the validation of the diff has errors.
func (m *Migrate) PlanDiff(name string, current, desired []*Table, opts ...ValidateOption) (*migrate.Plan, *ValidationResult, error) {
	if slices.Contains(current, nil) || slices.Contains(desired, nil) {
		return nil, nil, errors.New("sql/schema: plan diff: nil table")
	}
	res := ValidateDiff(current, desired, opts...)
	if res.HasErrors() {
		return nil, res, fmt.Errorf("sql/schema: plan diff: %d error(s)", len(res.Errors))
	}
	plan := &migrate.Plan{Name: name, Transactional: true}
	for _, t := range slices.Backward(current) {
		if slices.ContainsFunc(desired, named(t.Name)) {
			continue
		}
		for _, stmt := range m.compiler.DropTable(t) {
			plan.Changes = append(plan.Changes, &migrate.Change{Cmd: stmt, Comment: fmt.Sprintf("drop table %q", t.Name)})
		}
	}
	for _, t := range desired {
		i := slices.IndexFunc(current, named(t.Name))
		if i >= 0 {
			if !slices.Equal(m.compiler.CreateTable(current[i]), m.compiler.CreateTable(t)) {
				res.warn(t.Name, "", "table definition changed, ALTER statements are not generated")
			}
			continue
		}
		for _, stmt := range m.compiler.CreateTable(t) {
			plan.Changes = append(plan.Changes, &migrate.Change{Cmd: stmt, Comment: fmt.Sprintf("create table %q", t.Name)})
		}
	}
	return plan, res, nil
}

// WriteDiff writes the plan of PlanDiff as a new versioned migration
// file. No file is written if the plan has no changes.
func (m *Migrate) WriteDiff(ctx context.Context, name string, current, desired []*Table, opts ...ValidateOption) (*ValidationResult, error) {
	plan, res, err := m.PlanDiff(name, current, desired, opts...)
	if err != nil {
		return res, err
	}
	if len(plan.Changes) == 0 {
		m.logger.InfoContext(ctx, "schema is up to date", "dialect", m.dialect)
		return res, nil
	}
	return res, m.writePlan(ctx, plan)
}

func (m *Migrate) writePlan(ctx context.Context, plan *migrate.Plan) error {
	if m.dir == nil {
		return errors.New("sql/schema: writing migrations requires a migration directory (WithDir)")
	}
	plan.Version = time.Now().UTC().Format("20060102150405")
	files, err := m.fmt.Format(plan)
	if err != nil {
		return fmt.Errorf("sql/schema: format migration: %w", err)
	}
	for _, f := range files {
		if err := m.dir.WriteFile(f.Name(), f.Bytes()); err != nil {
			return fmt.Errorf("sql/schema: write migration file %q: %w", f.Name(), err)
		}
		m.logger.InfoContext(ctx, "migration file written", "file", f.Name(), "dialect", m.dialect, "changes", len(plan.Changes))
	}
	sum, err := m.dir.Checksum()
	if err != nil {
		return fmt.Errorf("sql/schema: compute checksum: %w", err)
	}
	return migrate.WriteSumFile(m.dir, sum)
}

func (m *Migrate) apply(ctx context.Context, plan *migrate.Plan) error {
	tx, err := m.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("sql/schema: begin transaction: %w", err)
	}
	for _, c := range plan.Changes {
		m.logger.DebugContext(ctx, "executing migration statement", "dialect", m.dialect, "statement", c.Cmd)
		if err := tx.Exec(ctx, c.Cmd, []any{}, nil); err != nil {
			return rollback(tx, fmt.Errorf("sql/schema: %s: %w", c.Comment, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sql/schema: commit: %w", err)
	}
	return nil
}

// rollback calls to tx.Rollback and wraps the given error with the rollback error if occurred.
func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: %v", err, rerr)
	}
	return err
}

// formatter returns the atlas formatter matching the migration directory type.
func formatter(dir migrate.Dir) migrate.Formatter {
	switch dir.(type) {
	case *sqltool.GooseDir:
		return sqltool.GooseFormatter
	case *sqltool.DBMateDir:
		return sqltool.DBMateFormatter
	case *sqltool.FlywayDir:
		return sqltool.FlywayFormatter
	case *sqltool.LiquibaseDir:
		return sqltool.LiquibaseFormatter
	default:
		return sqltool.GolangMigrateFormatter
	}
}
