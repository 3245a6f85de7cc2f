package schema

import (
	"github.com/syssam/velox-timescaledb/dialect"
	"github.com/syssam/velox-timescaledb/dialect/sql"
	"github.com/syssam/velox-timescaledb/schema/field"
)

// SQLite is the SQLite DDL compiler.
type SQLite struct{}

// CreateTable implements the Compiler interface.
func (d *SQLite) CreateTable(t *Table) []string {
	b := d.builder()
	b.WriteString("CREATE TABLE IF NOT EXISTS ").WriteString(b.Quote(t.Name)).WriteString(" (")
	// A single auto-increment key is declared inline as the rowid alias.
	inline := len(t.PrimaryKey) == 1 && t.PrimaryKey[0].Increment
	for i, c := range t.Columns {
		if i > 0 {
			b.Comma()
		}
		b.WriteString(b.Quote(c.Name)).Pad().WriteString(d.columnType(c))
		switch {
		case inline && c == t.PrimaryKey[0]:
			b.WriteString(" PRIMARY KEY AUTOINCREMENT")
			continue
		case c.Nullable:
			b.WriteString(" NULL")
		default:
			b.WriteString(" NOT NULL")
		}
		if c.Unique && !c.PrimaryKey() {
			b.WriteString(" UNIQUE")
		}
		if v, ok := defaultValue(c); ok {
			b.WriteString(" DEFAULT ").WriteString(v)
		}
		if ant := c.Annotation; ant != nil && ant.Check != "" {
			b.WriteString(" CHECK (").WriteString(ant.Check).WriteByte(')')
		}
	}
	if len(t.PrimaryKey) > 0 && !inline {
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
		ib := d.builder()
		ib.WriteString("CREATE ")
		if idx.Unique {
			ib.WriteString("UNIQUE ")
		}
		ib.WriteString("INDEX IF NOT EXISTS ").WriteString(ib.Quote(idx.Name)).
			WriteString(" ON ").WriteString(ib.Quote(t.Name))
		writeIndexColumns(ib, idx)
		stmts = append(stmts, ib.String())
	}
	return stmts
}

// DropTable implements the Compiler interface.
func (d *SQLite) DropTable(t *Table) []string {
	b := d.builder()
	b.WriteString("DROP TABLE IF EXISTS ").WriteString(b.Quote(t.Name))
	return []string{b.String()}
}

func (*SQLite) builder() *sql.Builder {
	b := &sql.Builder{}
	b.SetDialect(dialect.SQLite)
	return b
}

func (*SQLite) columnType(c *Column) string {
	if ant := c.Annotation; ant != nil && ant.ColumnType != "" {
		return ant.ColumnType
	}
	switch {
	case c.Type.Integer():
		return "integer"
	case c.Type.Numeric():
		return "real"
	}
	switch c.Type {
	case field.TypeBool:
		return "bool"
	case field.TypeTime:
		return "datetime"
	case field.TypeJSON:
		return "json"
	case field.TypeUUID:
		return "uuid"
	case field.TypeBytes:
		return "blob"
	default:
		return "text"
	}
}
