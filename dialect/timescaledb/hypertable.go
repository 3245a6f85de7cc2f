package timescaledb

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/velox-timescaledb/dialect/sql"
	"github.com/syssam/velox-timescaledb/dialect/sql/schema"
	velox "github.com/syssam/velox-timescaledb/schema"
)

// AnnotationName is the name of the hypertable annotation.
const AnnotationName = "timescaledb"

// Hypertable is a table annotation that turns the table into a
// TimescaleDB hypertable after it is created. Setting the same annotation
// more than once merges the settings, the last one wins.
type Hypertable struct {
	// TimeColumn is the column the table is partitioned by. Required.
	TimeColumn string `yaml:"time_column_name"`
	// ChunkTimeInterval is forwarded to create_hypertable. Digits only
	// values are integers, anything else is an interval ("1 day").
	// Defaults to DefaultChunkTimeInterval.
	ChunkTimeInterval string `yaml:"chunk_time_interval,omitempty"`
	// PartitioningColumn adds a space partitioning dimension.
	PartitioningColumn string `yaml:"partitioning_column,omitempty"`
	// NumberPartitions is the number of hash partitions of PartitioningColumn.
	NumberPartitions int `yaml:"number_partitions,omitempty"`
	// CreateDefaultIndexes controls the indexes TimescaleDB creates on the
	// time column. Nil means the server default (true).
	CreateDefaultIndexes *bool `yaml:"create_default_indexes,omitempty"`
	// MigrateData moves existing rows into chunks.
	MigrateData bool `yaml:"migrate_data,omitempty"`
}

// TimeColumn returns a hypertable annotation partitioned by the given column.
func TimeColumn(name string) *Hypertable {
	return &Hypertable{TimeColumn: name}
}

// ChunkTimeInterval sets the chunk interval, e.g. "1 day" or "86400000000".
func ChunkTimeInterval(v string) *Hypertable {
	return &Hypertable{ChunkTimeInterval: v}
}

// ChunkTimeIntervalDuration sets the chunk interval from a duration.
func ChunkTimeIntervalDuration(d time.Duration) *Hypertable {
	return &Hypertable{ChunkTimeInterval: FormatDuration(d)}
}

// ChunkTimeIntervalInt sets an integer chunk interval, used by tables with
// an integer time column or to express timestamps in microseconds.
func ChunkTimeIntervalInt(n int64) *Hypertable {
	return &Hypertable{ChunkTimeInterval: strconv.FormatInt(n, 10)}
}

// PartitionBy adds a hash partitioning dimension on the given column.
func PartitionBy(column string, partitions int) *Hypertable {
	return &Hypertable{PartitioningColumn: column, NumberPartitions: partitions}
}

// WithoutDefaultIndexes disables the indexes TimescaleDB creates by default.
func WithoutDefaultIndexes() *Hypertable {
	f := false
	return &Hypertable{CreateDefaultIndexes: &f}
}

// MigrateData migrates the existing rows of the table into chunks.
func MigrateData() *Hypertable {
	return &Hypertable{MigrateData: true}
}

// Name implements the schema.Annotation interface.
func (*Hypertable) Name() string {
	return AnnotationName
}

// Merge implements the schema.Merger interface.
func (h *Hypertable) Merge(other velox.Annotation) velox.Annotation {
	o, ok := other.(*Hypertable)
	if !ok || o == nil {
		return h
	}
	merged := *h
	if o.TimeColumn != "" {
		merged.TimeColumn = o.TimeColumn
	}
	if o.ChunkTimeInterval != "" {
		merged.ChunkTimeInterval = o.ChunkTimeInterval
	}
	if o.PartitioningColumn != "" {
		merged.PartitioningColumn = o.PartitioningColumn
	}
	if o.NumberPartitions != 0 {
		merged.NumberPartitions = o.NumberPartitions
	}
	if o.CreateDefaultIndexes != nil {
		merged.CreateDefaultIndexes = o.CreateDefaultIndexes
	}
	if o.MigrateData {
		merged.MigrateData = true
	}
	return &merged
}

// Interval returns the chunk interval of the hypertable as a SQL literal.
func (h *Hypertable) Interval() string {
	return Interval(h.ChunkTimeInterval)
}

// TimeIndexName returns the name of the index TimescaleDB creates on the
// time column of the table.
func (h *Hypertable) TimeIndexName(t *schema.Table) string {
	return t.Name + "_" + h.TimeColumn + "_idx"
}

// Decorate implements the schema.TableDecorator interface. It declares the
// time column index TimescaleDB creates with the hypertable, so schema
// diffs do not report it as dropped and compilers do not emit it.
func (h *Hypertable) Decorate(t *schema.Table) {
	c, ok := t.Column(h.TimeColumn)
	if !ok || h.CreateDefaultIndexes != nil && !*h.CreateDefaultIndexes {
		c = nil
	}
	// Drop the time index of a previous configuration.
	for _, idx := range slices.Clone(t.Indexes) {
		if idx.Managed && isTimeIndex(t, idx) && (c == nil || idx.Name != h.TimeIndexName(t)) {
			t.RemoveIndex(idx.Name)
		}
	}
	if c == nil {
		return
	}
	t.AddIndexes(&schema.Index{
		Name:    h.TimeIndexName(t),
		Columns: []*schema.Column{c},
		Desc:    true,
		Managed: true,
	})
}

// isTimeIndex reports if idx has the shape of the index TimescaleDB
// creates on a time column.
func isTimeIndex(t *schema.Table, idx *schema.Index) bool {
	names := idx.ColumnNames()
	return len(names) == 1 && idx.Desc && idx.Name == t.Name+"_"+names[0]+"_idx"
}

// FromTable returns the hypertable annotation of the table, if exists.
func FromTable(t *schema.Table) (*Hypertable, bool) {
	a, ok := t.Annotation(AnnotationName)
	if !ok {
		return nil, false
	}
	h, ok := a.(*Hypertable)
	return h, ok && h != nil
}

// CreateHypertable returns the statement that converts the table into a
// hypertable. The table and column names are forwarded as string literals
// and are not checked against the table definition.
func CreateHypertable(t *schema.Table, h *Hypertable) string {
	var b strings.Builder
	b.WriteString("SELECT create_hypertable(")
	b.WriteString(sql.QuoteLiteral(t.QualifiedName()))
	b.WriteString(", ")
	b.WriteString(sql.QuoteLiteral(h.TimeColumn))
	b.WriteString(", chunk_time_interval => ")
	b.WriteString(h.Interval())
	if h.PartitioningColumn != "" {
		b.WriteString(", partitioning_column => ")
		b.WriteString(sql.QuoteLiteral(h.PartitioningColumn))
		if h.NumberPartitions > 0 {
			fmt.Fprintf(&b, ", number_partitions => %d", h.NumberPartitions)
		}
	}
	if h.CreateDefaultIndexes != nil && !*h.CreateDefaultIndexes {
		b.WriteString(", create_default_indexes => FALSE")
	}
	if h.MigrateData {
		b.WriteString(", migrate_data => TRUE")
	}
	b.WriteString(", if_not_exists => TRUE)")
	return b.String()
}

var (
	_ velox.Annotation      = (*Hypertable)(nil)
	_ velox.Merger          = (*Hypertable)(nil)
	_ schema.TableDecorator = (*Hypertable)(nil)
	_ schema.TableValidator = (*Hypertable)(nil)
	_ schema.DiffValidator  = (*Hypertable)(nil)
)
