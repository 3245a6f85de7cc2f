// Package sqlschema provides SQL-specific annotations for tables, columns
// and indexes. The DDL compilers read them by name and apply the settings
// they know.
//
// Functional style:
//
//	sqlschema.Size(64)
//	sqlschema.ColumnType("timestamptz")
//	sqlschema.DefaultExpr("now()")
//
// Struct literal style:
//
//	&sqlschema.Annotation{
//		ColumnType:  "timestamptz",
//		DefaultExpr: "now()",
//	}
package sqlschema

import (
	"maps"

	"github.com/syssam/velox-timescaledb/schema"
)

// AnnotationName is the name used for SQL annotations.
const AnnotationName = "sql"

// Annotation holds SQL-specific settings for tables, columns and indexes.
type Annotation struct {
	// Table overrides the database table name.
	Table string `yaml:"table,omitempty"`

	// Schema sets the database schema (namespace) of a table.
	Schema string `yaml:"schema,omitempty"`

	// Size overrides the column size (e.g., VARCHAR(Size)).
	Size int64 `yaml:"size,omitempty"`

	// ColumnType sets a custom database column type.
	ColumnType string `yaml:"type,omitempty"`

	// Collation sets the collation for string columns.
	Collation string `yaml:"collation,omitempty"`

	// Check adds a CHECK constraint expression to a column.
	Check string `yaml:"check,omitempty"`

	// Checks holds named table CHECK constraints.
	Checks map[string]string `yaml:"checks,omitempty"`

	// Default is the SQL literal default value.
	Default string `yaml:"default,omitempty"`

	// DefaultExpr is a SQL expression for the default value.
	DefaultExpr string `yaml:"default_expr,omitempty"`

	// IndexType sets the index access method (BTREE, HASH, GIN, BRIN, etc.).
	IndexType string `yaml:"index_type,omitempty"`

	// IndexWhere sets the predicate of a partial index.
	IndexWhere string `yaml:"index_where,omitempty"`
}

// Name implements schema.Annotation.
func (*Annotation) Name() string {
	return AnnotationName
}

// Merge implements the schema.Merger interface. Fields set on the other
// annotation override the ones set on a.
func (a *Annotation) Merge(other schema.Annotation) schema.Annotation {
	next, ok := other.(*Annotation)
	if !ok || next == nil {
		return a
	}
	merged := Merge(*a, *next)
	return &merged
}

var (
	_ schema.Annotation = (*Annotation)(nil)
	_ schema.Merger     = (*Annotation)(nil)
)

// Table sets the database table name.
func Table(name string) *Annotation {
	return &Annotation{Table: name}
}

// Schema sets the database schema of a table.
//
//	schema.NewTable("metrics").AddAnnotations(sqlschema.Schema("telemetry"))
func Schema(name string) *Annotation {
	return &Annotation{Schema: name}
}

// Size sets the column size override.
func Size(size int64) *Annotation {
	return &Annotation{Size: size}
}

// ColumnType sets a custom database column type.
//
//	&schema.Column{Name: "payload", Type: field.TypeJSON, Annotation: sqlschema.ColumnType("jsonb")}
func ColumnType(typ string) *Annotation {
	return &Annotation{ColumnType: typ}
}

// Collation sets the collation for a string column.
func Collation(c string) *Annotation {
	return &Annotation{Collation: c}
}

// Check adds a CHECK constraint to the column.
func Check(expr string) *Annotation {
	return &Annotation{Check: expr}
}

// Checks adds named CHECK constraints to the table.
func Checks(c map[string]string) *Annotation {
	return &Annotation{Checks: c}
}

// Default sets a SQL literal default value. The value is used as-is in the
// DEFAULT clause, so string literals must carry their own quotes.
func Default(value string) *Annotation {
	return &Annotation{Default: value}
}

// DefaultExpr sets a SQL expression as the default value.
//
//	sqlschema.DefaultExpr("now()")
func DefaultExpr(expr string) *Annotation {
	return &Annotation{DefaultExpr: expr}
}

// IndexType sets the index access method.
func IndexType(typ string) *Annotation {
	return &Annotation{IndexType: typ}
}

// IndexWhere turns the index into a partial index.
func IndexWhere(pred string) *Annotation {
	return &Annotation{IndexWhere: pred}
}

// DefaultValue returns the DEFAULT clause value of a column, preferring
// the expression form. The second return value reports if any was set.
func (a *Annotation) DefaultValue() (string, bool) {
	if a == nil {
		return "", false
	}
	if a.DefaultExpr != "" {
		return a.DefaultExpr, true
	}
	return a.Default, a.Default != ""
}

// Merge combines multiple SQL annotations into one.
// Later annotations override earlier ones for the same field.
func Merge(annotations ...Annotation) Annotation {
	var result Annotation
	for _, a := range annotations {
		if a.Table != "" {
			result.Table = a.Table
		}
		if a.Schema != "" {
			result.Schema = a.Schema
		}
		if a.Size != 0 {
			result.Size = a.Size
		}
		if a.ColumnType != "" {
			result.ColumnType = a.ColumnType
		}
		if a.Collation != "" {
			result.Collation = a.Collation
		}
		if a.Check != "" {
			result.Check = a.Check
		}
		if len(a.Checks) > 0 {
			if result.Checks == nil {
				result.Checks = make(map[string]string, len(a.Checks))
			}
			maps.Copy(result.Checks, a.Checks)
		}
		if a.Default != "" {
			result.Default = a.Default
		}
		if a.DefaultExpr != "" {
			result.DefaultExpr = a.DefaultExpr
		}
		if a.IndexType != "" {
			result.IndexType = a.IndexType
		}
		if a.IndexWhere != "" {
			result.IndexWhere = a.IndexWhere
		}
	}
	return result
}
