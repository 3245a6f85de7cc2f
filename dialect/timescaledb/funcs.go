package timescaledb

import (
	"time"

	"github.com/syssam/velox-timescaledb/dialect/sql"
)

// First returns the first aggregate: the value of the value column at the
// earliest time of the time column.
//
//	sql.Dialect(timescaledb.Name).
//		SelectExpr(timescaledb.First("price", "time").As("open")).
//		From(sql.Table("trades"))
func First(valueColumn, timeColumn string) *sql.FuncExpr {
	return sql.Func("first", valueColumn, timeColumn)
}

// Last returns the last aggregate: the value of the value column at the
// latest time of the time column.
func Last(valueColumn, timeColumn string) *sql.FuncExpr {
	return sql.Func("last", valueColumn, timeColumn)
}

// TimeBucket returns a time_bucket call grouping the column into buckets
// of the given interval, rendered like a chunk interval.
//
//	timescaledb.TimeBucket("5 minutes", "time") // time_bucket(INTERVAL '5 minutes', "time")
func TimeBucket(interval, column string) *sql.FuncExpr {
	return sql.Func("time_bucket", sql.Raw(Interval(interval)), column)
}

// TimeBucketDuration is like TimeBucket, with the interval given as a duration.
func TimeBucketDuration(d time.Duration, column string) *sql.FuncExpr {
	return TimeBucket(FormatDuration(d), column)
}
