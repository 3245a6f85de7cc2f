// Package schema provides the shared vocabulary used to describe tables
// to the velox dialect layer.
//
// The package defines the Annotation interface. Annotations are attached to
// tables and columns of the dialect/sql/schema package and are read by the
// dialect that owns them:
//
//   - [field]: Column value types
//   - [dialect/sqlschema]: SQL-specific annotations (column types, defaults, checks)
//   - [dialect/timescaledb]: Hypertable configuration
//
// # Annotations
//
// An annotation is identified by its name. A table holds at most one annotation
// per name. Annotations that implement Merger are merged with the previous value
// instead of replacing it:
//
//	t := schema.NewTable("metrics").
//	    AddAnnotations(
//	        timescaledb.TimeColumn("timestamp"),
//	        timescaledb.ChunkTimeInterval("1 day"),
//	    )
//
// Both hypertable annotations above are merged into a single configuration.
package schema
