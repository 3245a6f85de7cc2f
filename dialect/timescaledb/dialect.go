package timescaledb

import (
	"fmt"
	"slices"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/syssam/velox-timescaledb/dialect"
	"github.com/syssam/velox-timescaledb/dialect/sql"
	"github.com/syssam/velox-timescaledb/dialect/sql/schema"
)

// Dialect names.
const (
	Name    = "timescaledb"
	NamePQ  = "timescaledb+pq"
	NamePGX = "timescaledb+pgx"
)

// Names returns the dialect names registered by the package.
func Names() []string {
	return []string{Name, NamePQ, NamePGX}
}

func init() {
	drivers := map[string]string{
		Name:    "postgres",
		NamePQ:  "postgres",
		NamePGX: "pgx",
	}
	for _, name := range Names() {
		dialect.Register(dialect.Info{
			Name:         name,
			Driver:       drivers[name],
			Base:         dialect.Postgres,
			URLScheme:    "postgres",
			Capabilities: dialect.CapabilitiesOf(dialect.Postgres),
		})
		schema.RegisterCompiler(name, NewCompiler(name))
	}
}

// Open opens a TimescaleDB connection with the default driver.
//
//	drv, err := timescaledb.Open("host=localhost user=postgres dbname=metrics sslmode=disable")
func Open(dsn string) (*sql.Driver, error) {
	return OpenWith(Name, dsn)
}

// OpenWith opens a TimescaleDB connection for one of the registered
// dialect names, which selects the database/sql driver.
func OpenWith(name, dsn string) (*sql.Driver, error) {
	if !slices.Contains(Names(), name) {
		return nil, fmt.Errorf("timescaledb: unknown dialect %q", name)
	}
	return sql.Open(name, dsn)
}
