package timescaledb_test

import (
	"testing"
	"time"

	"github.com/syssam/velox-timescaledb/dialect/sql"
	"github.com/syssam/velox-timescaledb/dialect/timescaledb"

	"github.com/stretchr/testify/assert"
)

func TestFirstLast(t *testing.T) {
	query, args := timescaledb.First("value", "time").Query()
	assert.Equal(t, `first("value", "time")`, query)
	assert.Empty(t, args)

	query, _ = timescaledb.Last("value", "time").Query()
	assert.Equal(t, `last("value", "time")`, query)

	// Arguments are kept in the given order.
	query, _ = timescaledb.First("time", "value").Query()
	assert.Equal(t, `first("time", "value")`, query)
	assert.Equal(t, "first", timescaledb.First("a", "b").Name())

	query, _ = timescaledb.First("my value", "time").Query()
	assert.Equal(t, `first("my value", "time")`, query)
}

func TestFirstLast_Selector(t *testing.T) {
	trades := sql.Table("trades")
	query, args := sql.Dialect(timescaledb.Name).
		SelectExpr(
			timescaledb.TimeBucket("1 hour", trades.C("time")).As("bucket"),
			timescaledb.First(trades.C("price"), trades.C("time")).As("open"),
			timescaledb.Last(trades.C("price"), trades.C("time")).As("close"),
		).
		From(trades).
		Where(sql.EQ(trades.C("symbol"), "AAPL")).
		GroupByExpr(sql.Raw(`"bucket"`)).
		Query()
	assert.Equal(t, `SELECT time_bucket(INTERVAL '1 hour', "trades"."time") AS "bucket", `+
		`first("trades"."price", "trades"."time") AS "open", `+
		`last("trades"."price", "trades"."time") AS "close" `+
		`FROM "trades" WHERE "trades"."symbol" = $1 GROUP BY "bucket"`, query)
	assert.Equal(t, []any{"AAPL"}, args)
}

func TestTimeBucket(t *testing.T) {
	query, _ := timescaledb.TimeBucket("10", "ts").Query()
	assert.Equal(t, `time_bucket(10, "ts")`, query)
	query, _ = timescaledb.TimeBucketDuration(15*time.Minute, "time").Query()
	assert.Equal(t, `time_bucket(INTERVAL '15 minutes', "time")`, query)
}
