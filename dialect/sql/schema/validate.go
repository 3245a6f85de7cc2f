package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is a single finding of a schema validation.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking marks changes that lose data or fail on existing rows.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the findings of a schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges reports if any finding, allowed or not, is breaking.
func (r *ValidationResult) HasBreakingChanges() bool {
	breaking := func(e *ValidationError) bool { return e.Breaking }
	return slices.ContainsFunc(r.Errors, breaking) || slices.ContainsFunc(r.Warnings, breaking)
}

// Merge appends the findings of other to r.
func (r *ValidationResult) Merge(other *ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// report records e as an error, or as a warning if it was allowed.
func (r *ValidationResult) report(e *ValidationError, allowed bool) {
	if allowed {
		r.Warnings = append(r.Warnings, e)
	} else {
		r.Errors = append(r.Errors, e)
	}
}

func (r *ValidationResult) warn(table, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) fail(table, column, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

// String returns the findings, one per line.
func (r *ValidationResult) String() string {
	if !r.HasErrors() && !r.HasWarnings() {
		return "No issues found"
	}
	var b strings.Builder
	write := func(title string, errs []*ValidationError) {
		if len(errs) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, e := range errs {
			b.WriteString("  - " + e.Error())
			if e.Breaking {
				b.WriteString(" [BREAKING]")
			}
			b.WriteByte('\n')
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	return b.String()
}

// ValidateOption configures ValidateDiff.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowDropColumn    bool
	allowDropTable     bool
	allowDropIndex     bool
	allowNullToNotNull bool
}

// AllowDropColumn reports dropped columns as warnings.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropColumn = true
	}
}

// AllowDropTable reports dropped tables as warnings.
func AllowDropTable() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropTable = true
	}
}

// AllowDropIndex reports dropped indexes as warnings.
func AllowDropIndex() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropIndex = true
	}
}

// AllowNullToNotNull reports nullable columns becoming NOT NULL as warnings.
func AllowNullToNotNull() ValidateOption {
	return func(c *validateConfig) {
		c.allowNullToNotNull = true
	}
}

// DiffValidator is implemented by table annotations that check how the
// table they are attached to changes. The annotation of either side is
// called, once per annotation name, and the other side may not have it.
type DiffValidator interface {
	ValidateDiff(current, desired *Table, r *ValidationResult)
}

// ValidateDiff checks the changes from the current tables to the desired
// ones. Changes that lose data or fail on existing rows are errors unless
// allowed by an option, the rest are warnings. Both sides are decorated,
// so indexes the database creates are compared as well. Findings are in
// the order of the tables and columns.
func ValidateDiff(current, desired []*Table, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	r := &ValidationResult{}
	for _, t := range current {
		t.Decorate()
		if !slices.ContainsFunc(desired, named(t.Name)) {
			r.report(&ValidationError{Table: t.Name, Message: "table will be dropped", Breaking: true}, cfg.allowDropTable)
		}
	}
	for _, t := range desired {
		t.Decorate()
		if i := slices.IndexFunc(current, named(t.Name)); i >= 0 {
			validateTableDiff(current[i], t, cfg, r)
		}
	}
	return r
}

func named(name string) func(*Table) bool {
	return func(t *Table) bool { return t.Name == name }
}

func validateTableDiff(current, desired *Table, cfg *validateConfig, r *ValidationResult) {
	for _, c := range current.Columns {
		if !desired.HasColumn(c.Name) {
			r.report(&ValidationError{Table: current.Name, Column: c.Name, Message: "column will be dropped", Breaking: true}, cfg.allowDropColumn)
		}
	}
	for _, dc := range desired.Columns {
		cc, ok := current.Column(dc.Name)
		if !ok {
			if !dc.Nullable && dc.Default == nil && !dc.PrimaryKey() {
				r.warn(current.Name, dc.Name, "new NOT NULL column without default value may fail if table has data")
			}
			continue
		}
		if cc.Type != dc.Type {
			r.warn(current.Name, dc.Name, "column type changing from %v to %v", cc.Type, dc.Type)
		}
		if cc.Nullable && !dc.Nullable {
			r.report(&ValidationError{
				Table:    current.Name,
				Column:   dc.Name,
				Message:  "column changing from NULL to NOT NULL may fail if column has NULL values",
				Breaking: true,
			}, cfg.allowNullToNotNull)
		}
		if cc.Size > 0 && dc.Size > 0 && dc.Size < cc.Size {
			r.warn(current.Name, dc.Name, "column size reducing from %d to %d may truncate data", cc.Size, dc.Size)
		}
		if !cc.Unique && dc.Unique {
			r.warn(current.Name, dc.Name, "adding UNIQUE constraint may fail if duplicate values exist")
		}
	}
	for _, idx := range current.Indexes {
		if _, ok := desired.Index(idx.Name); ok {
			continue
		}
		// Indexes owned by the database go away with the object that
		// created them.
		if idx.Managed {
			r.warn(current.Name, "", "managed index %q is no longer declared", idx.Name)
			continue
		}
		r.report(&ValidationError{Table: current.Name, Message: fmt.Sprintf("index %q will be dropped", idx.Name)}, cfg.allowDropIndex)
	}
	// Annotations dropped from the table are asked as well.
	for _, name := range annotationNames(desired) {
		if v, ok := desired.Annotations[name].(DiffValidator); ok {
			v.ValidateDiff(current, desired, r)
		}
	}
	for _, name := range annotationNames(current) {
		if _, ok := desired.Annotations[name]; ok {
			continue
		}
		if v, ok := current.Annotations[name].(DiffValidator); ok {
			v.ValidateDiff(current, desired, r)
		}
	}
}

// ValidateTable validates a single table definition. The table is
// decorated first, and the TableValidator annotations of the table add
// their own findings.
func ValidateTable(t *Table) *ValidationResult {
	r := &ValidationResult{}
	t.Decorate()
	if len(t.PrimaryKey) == 0 {
		r.warn(t.Name, "", "table has no primary key")
	}
	columns := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if columns[c.Name] {
			r.fail(t.Name, c.Name, "duplicate column name")
		}
		columns[c.Name] = true
	}
	indexes := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if indexes[idx.Name] {
			r.fail(t.Name, "", "duplicate index name: %s", idx.Name)
		}
		indexes[idx.Name] = true
		for _, name := range idx.ColumnNames() {
			if !columns[name] {
				r.fail(t.Name, "", "index %q references non-existent column %q", idx.Name, name)
			}
		}
	}
	for _, c := range t.PrimaryKey {
		if !columns[c.Name] {
			r.fail(t.Name, c.Name, "primary key references non-existent column")
		}
	}
	for _, name := range annotationNames(t) {
		if v, ok := t.Annotations[name].(TableValidator); ok {
			v.ValidateTable(t, r)
		}
	}
	return r
}

// TableValidator is implemented by table annotations that check the
// table they are attached to. Findings are appended to the result.
type TableValidator interface {
	ValidateTable(*Table, *ValidationResult)
}

// ValidateSchema validates all tables in a schema.
func ValidateSchema(tables []*Table) *ValidationResult {
	r := &ValidationResult{}
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if seen[t.Name] {
			r.fail(t.Name, "", "duplicate table name")
		}
		seen[t.Name] = true
		r.Merge(ValidateTable(t))
	}
	return r
}

// annotationNames returns the sorted annotation names of t.
func annotationNames(t *Table) []string {
	names := make([]string, 0, len(t.Annotations))
	for name := range t.Annotations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
