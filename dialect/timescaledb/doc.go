// Package timescaledb registers the TimescaleDB dialect.
//
// TimescaleDB is a PostgreSQL extension, so the dialect generates
// PostgreSQL SQL everywhere except in two places: tables annotated with a
// Hypertable are turned into hypertables after they are created, and the
// first, last and time_bucket functions are available to queries.
//
// Importing the package registers the dialect names:
//
//	timescaledb      lib/pq driver
//	timescaledb+pq   lib/pq driver
//	timescaledb+pgx  jackc/pgx driver
//
// Hypertables are declared with a table annotation:
//
//	t := schema.NewTable("metrics").
//		AddColumns(
//			&schema.Column{Name: "time", Type: field.TypeTime},
//			&schema.Column{Name: "value", Type: field.TypeFloat64},
//		).
//		AddAnnotations(
//			timescaledb.TimeColumn("time"),
//			timescaledb.ChunkTimeInterval("1 day"),
//		)
//
// Migrating the table with a timescaledb driver runs
//
//	CREATE TABLE IF NOT EXISTS "metrics" (...)
//	SELECT create_hypertable('metrics', 'time', chunk_time_interval => INTERVAL '1 day', if_not_exists => TRUE)
package timescaledb
