package timescaledb

import (
	"context"
	"log/slog"

	"github.com/syssam/velox-timescaledb/dialect/sql/schema"
)

// Compiler is the TimescaleDB DDL compiler. It emits the PostgreSQL DDL
// of a table, followed by the hypertable creation for tables annotated
// with a Hypertable.
type Compiler struct {
	schema.Postgres
	// Logger reports the indexes left to TimescaleDB. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewCompiler returns a compiler for the given dialect name.
func NewCompiler(name string) *Compiler {
	return &Compiler{Postgres: schema.Postgres{Dialect: name, SkipManaged: true}}
}

// CreateTable implements the schema.Compiler interface. Hypertables are
// decorated first, which declares the time index on t. That index is
// created by create_hypertable and not emitted.
func (c *Compiler) CreateTable(t *schema.Table) []string {
	h, ok := FromTable(t)
	if !ok {
		return c.Postgres.CreateTable(t)
	}
	t.Decorate()
	for _, idx := range t.Indexes {
		if idx.Managed {
			c.logger().LogAttrs(context.Background(), slog.LevelInfo, "index created by timescaledb, skipping",
				slog.String("table", t.Name),
				slog.String("index", idx.Name),
			)
		}
	}
	return append(c.Postgres.CreateTable(t), CreateHypertable(t, h))
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

var _ schema.Compiler = (*Compiler)(nil)
