package schema

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/syssam/velox-timescaledb/dialect"
	"github.com/syssam/velox-timescaledb/dialect/sql"
	"github.com/syssam/velox-timescaledb/schema/field"
)

// Postgres is the PostgreSQL DDL compiler. Dialects built on top of
// PostgreSQL embed it and append their own statements.
type Postgres struct {
	// Dialect is the name whose capabilities apply. Defaults to postgres.
	Dialect string
	// SkipManaged leaves managed indexes to the database.
	SkipManaged bool
}

// CreateTable implements the Compiler interface.
func (d *Postgres) CreateTable(t *Table) []string {
	caps := dialect.CapabilitiesOf(d.dialect())
	b := d.builder()
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	d.tableName(b, t, caps)
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.Comma()
		}
		d.column(b, c, caps)
	}
	if len(t.PrimaryKey) > 0 {
		b.Comma().WriteString("PRIMARY KEY (")
		for i, c := range t.PrimaryKey {
			if i > 0 {
				b.Comma()
			}
			b.WriteString(b.Quote(c.Name))
		}
		b.WriteByte(')')
	}
	writeChecks(b, t)
	b.WriteByte(')')
	stmts := []string{b.String()}
	for _, idx := range t.Indexes {
		if idx.Managed && d.SkipManaged {
			continue
		}
		stmts = append(stmts, d.CreateIndex(t, idx))
	}
	stmts = append(stmts, d.comments(t, caps)...)
	return stmts
}

// CreateIndex returns the statement that creates the given table index.
func (d *Postgres) CreateIndex(t *Table, idx *Index) string {
	caps := dialect.CapabilitiesOf(d.dialect())
	b := d.builder()
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX IF NOT EXISTS ").WriteString(b.Quote(idx.Name)).WriteString(" ON ")
	d.tableName(b, t, caps)
	if idx.Annotation != nil && idx.Annotation.IndexType != "" {
		b.WriteString(" USING ").WriteString(idx.Annotation.IndexType)
	}
	writeIndexColumns(b, idx)
	return b.String()
}

// DropTable implements the Compiler interface.
func (d *Postgres) DropTable(t *Table) []string {
	b := d.builder()
	b.WriteString("DROP TABLE IF EXISTS ")
	d.tableName(b, t, dialect.CapabilitiesOf(d.dialect()))
	return []string{b.String()}
}

func (d *Postgres) dialect() string {
	if d.Dialect == "" {
		return dialect.Postgres
	}
	return d.Dialect
}

func (d *Postgres) builder() *sql.Builder {
	b := &sql.Builder{}
	b.SetDialect(d.dialect())
	return b
}

func (d *Postgres) tableName(b *sql.Builder, t *Table, caps dialect.Capabilities) {
	if s := t.SchemaName(); s != "" && caps.Schemas {
		b.WriteString(b.Quote(s)).WriteByte('.')
	}
	b.WriteString(b.Quote(t.Name))
}

func (d *Postgres) column(b *sql.Builder, c *Column, caps dialect.Capabilities) {
	b.WriteString(b.Quote(c.Name)).Pad().WriteString(d.columnType(c))
	if ant := c.Annotation; ant != nil && ant.Collation != "" {
		b.WriteString(" COLLATE ").WriteString(b.Quote(ant.Collation))
	}
	if c.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if c.Increment {
		b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
	}
	if c.Unique && !c.PrimaryKey() {
		b.WriteString(" UNIQUE")
	}
	if caps.ServerSideDefaults && !c.Increment {
		if v, ok := defaultValue(c); ok {
			b.WriteString(" DEFAULT ").WriteString(v)
		}
	}
	if ant := c.Annotation; ant != nil && ant.Check != "" {
		b.WriteString(" CHECK (").WriteString(ant.Check).WriteByte(')')
	}
}

func (d *Postgres) columnType(c *Column) string {
	if ant := c.Annotation; ant != nil && ant.ColumnType != "" {
		return ant.ColumnType
	}
	switch c.Type {
	case field.TypeBool:
		return "boolean"
	case field.TypeTime:
		return "timestamp with time zone"
	case field.TypeJSON:
		return "jsonb"
	case field.TypeUUID:
		return "uuid"
	case field.TypeBytes:
		return "bytea"
	case field.TypeString, field.TypeEnum:
		if size := columnSize(c); size > 0 {
			return "character varying(" + strconv.FormatInt(size, 10) + ")"
		}
		return "character varying"
	case field.TypeInt8, field.TypeInt16:
		return "smallint"
	case field.TypeInt32:
		return "integer"
	case field.TypeInt, field.TypeInt64:
		return "bigint"
	case field.TypeFloat32:
		return "real"
	case field.TypeFloat64:
		return "double precision"
	default:
		return "text"
	}
}

func (d *Postgres) comments(t *Table, caps dialect.Capabilities) []string {
	var stmts []string
	if t.Comment != "" {
		b := d.builder()
		b.WriteString("COMMENT ON TABLE ")
		d.tableName(b, t, caps)
		b.WriteString(" IS ").WriteString(sql.QuoteLiteral(t.Comment))
		stmts = append(stmts, b.String())
	}
	for _, c := range t.Columns {
		if c.Comment == "" {
			continue
		}
		b := d.builder()
		b.WriteString("COMMENT ON COLUMN ")
		d.tableName(b, t, caps)
		b.WriteByte('.').WriteString(b.Quote(c.Name)).WriteString(" IS ").WriteString(sql.QuoteLiteral(c.Comment))
		stmts = append(stmts, b.String())
	}
	return stmts
}

func columnSize(c *Column) int64 {
	if ant := c.Annotation; ant != nil && ant.Size > 0 {
		return ant.Size
	}
	return c.Size
}

// defaultValue returns the DEFAULT clause value of the column. Values set
// on the SQL annotation are used as is; Go values are rendered as literals.
func defaultValue(c *Column) (string, bool) {
	if v, ok := c.Annotation.DefaultValue(); ok {
		return v, true
	}
	switch v := c.Default.(type) {
	case nil:
		return "", false
	case string:
		return sql.QuoteLiteral(v), true
	case bool:
		return strconv.FormatBool(v), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	case time.Time:
		return sql.QuoteLiteral(v.Format(time.RFC3339Nano)), true
	case fmt.Stringer:
		return sql.QuoteLiteral(v.String()), true
	default:
		return "", false
	}
}

func writeChecks(b *sql.Builder, t *Table) {
	ant := t.SQLAnnotation()
	if ant == nil || len(ant.Checks) == 0 {
		return
	}
	names := make([]string, 0, len(ant.Checks))
	for name := range ant.Checks {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		b.Comma().WriteString("CONSTRAINT ").WriteString(b.Quote(name)).
			WriteString(" CHECK (").WriteString(ant.Checks[name]).WriteByte(')')
	}
}

func writeIndexColumns(b *sql.Builder, idx *Index) {
	b.WriteString(" (")
	for i, name := range idx.ColumnNames() {
		if i > 0 {
			b.Comma()
		}
		b.WriteString(b.Quote(name))
		if idx.Desc {
			b.WriteString(" DESC")
		}
	}
	b.WriteByte(')')
	if idx.Annotation != nil && idx.Annotation.IndexWhere != "" {
		b.WriteString(" WHERE ").WriteString(idx.Annotation.IndexWhere)
	}
}
