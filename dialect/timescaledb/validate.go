package timescaledb

import (
	"fmt"
	"slices"

	"github.com/syssam/velox-timescaledb/dialect/sql/schema"
	"github.com/syssam/velox-timescaledb/schema/field"
)

// ValidateTable validates the table definition, including the rules
// TimescaleDB applies to hypertables. Generating DDL never validates; this
// is meant for tooling that wants to report problems before the server
// does.
func ValidateTable(t *schema.Table) *schema.ValidationResult {
	return schema.ValidateTable(t)
}

// ValidateTable implements the schema.TableValidator interface.
func (h *Hypertable) ValidateTable(t *schema.Table, r *schema.ValidationResult) {
	report := func(column, format string, args ...any) {
		r.Errors = append(r.Errors, &schema.ValidationError{Table: t.Name, Column: column, Message: fmt.Sprintf(format, args...)})
	}
	if h.TimeColumn == "" {
		report("", "hypertable time column is not set")
		return
	}
	c, ok := t.Column(h.TimeColumn)
	if !ok {
		report(h.TimeColumn, "hypertable time column does not exist")
		return
	}
	if !c.Type.Integer() && c.Type != field.TypeTime {
		if c.Annotation == nil || c.Annotation.ColumnType == "" {
			report(h.TimeColumn, "hypertable time column must be a time or integer column, got %s", c.Type)
		}
	}
	if c.Nullable {
		r.Warnings = append(r.Warnings, &schema.ValidationError{
			Table:   t.Name,
			Column:  h.TimeColumn,
			Message: "hypertable time column is nullable, TimescaleDB makes it NOT NULL",
		})
	}
	if isDigits(h.ChunkTimeInterval) && c.Type == field.TypeTime && len(h.ChunkTimeInterval) < 7 {
		r.Warnings = append(r.Warnings, &schema.ValidationError{
			Table:   t.Name,
			Column:  h.TimeColumn,
			Message: fmt.Sprintf("integer chunk interval %s on a time column is read as microseconds", h.ChunkTimeInterval),
		})
	}
	if h.PartitioningColumn != "" && !t.HasColumn(h.PartitioningColumn) {
		report(h.PartitioningColumn, "hypertable partitioning column does not exist")
	}
	if h.NumberPartitions > 0 && h.PartitioningColumn == "" {
		report("", "number of partitions is set without a partitioning column")
	}
	// Unique constraints must include all partitioning columns.
	partitions := []string{h.TimeColumn}
	if h.PartitioningColumn != "" {
		partitions = append(partitions, h.PartitioningColumn)
	}
	if len(t.PrimaryKey) > 0 {
		pk := make([]string, len(t.PrimaryKey))
		for i, c := range t.PrimaryKey {
			pk[i] = c.Name
		}
		for _, p := range partitions {
			if !slices.Contains(pk, p) {
				report("", "primary key must include the partitioning column %q", p)
			}
		}
	}
	for _, idx := range t.Indexes {
		if !idx.Unique {
			continue
		}
		for _, p := range partitions {
			if !slices.Contains(idx.ColumnNames(), p) {
				report("", "unique index %q must include the partitioning column %q", idx.Name, p)
			}
		}
	}
	for _, c := range t.Columns {
		if c.Unique && !c.PrimaryKey() && !slices.Contains(partitions, c.Name) {
			report(c.Name, "unique column is not allowed on a hypertable, use a unique index including %q", h.TimeColumn)
		}
	}
}

// ValidateDiff implements the schema.DiffValidator interface. A table
// cannot stop being a hypertable, and its dimensions cannot change after
// it was created.
func (*Hypertable) ValidateDiff(current, desired *schema.Table, r *schema.ValidationResult) {
	breaking := func(column, format string, args ...any) {
		r.Errors = append(r.Errors, &schema.ValidationError{
			Table:    desired.Name,
			Column:   column,
			Message:  fmt.Sprintf(format, args...),
			Breaking: true,
		})
	}
	warn := func(format string, args ...any) {
		r.Warnings = append(r.Warnings, &schema.ValidationError{Table: desired.Name, Message: fmt.Sprintf(format, args...)})
	}
	cur, isCur := FromTable(current)
	des, isDes := FromTable(desired)
	switch {
	case !isDes:
		breaking("", "hypertable cannot be converted back to a plain table")
		return
	case !isCur:
		if !des.MigrateData {
			warn("converting a table with data to a hypertable requires migrate_data")
		}
		return
	}
	if cur.TimeColumn != des.TimeColumn {
		breaking(des.TimeColumn, "hypertable time column changing from %q to %q requires recreating the table", cur.TimeColumn, des.TimeColumn)
	}
	if cur.PartitioningColumn != des.PartitioningColumn || cur.NumberPartitions != des.NumberPartitions {
		breaking(des.PartitioningColumn, "hypertable space partitioning cannot be changed")
	}
	if cur.Interval() != des.Interval() {
		warn("chunk interval changing from %s to %s applies to new chunks only", cur.Interval(), des.Interval())
	}
}
