package timescaledb

import (
	"strconv"
	"strings"
	"time"

	"github.com/syssam/velox-timescaledb/dialect/sql"
)

// DefaultChunkTimeInterval is the chunk interval of hypertables that do not set one.
const DefaultChunkTimeInterval = "7 days"

// Interval renders a chunk interval value as a SQL literal. Values made of
// digits only are integer literals (in the unit of the time column, e.g.
// microseconds for timestamps), anything else is an INTERVAL literal.
// An empty value renders the default interval.
//
//	Interval("86400000000") // 86400000000
//	Interval("1 day")       // INTERVAL '1 day'
func Interval(v string) string {
	if v == "" {
		v = DefaultChunkTimeInterval
	}
	if isDigits(v) {
		return v
	}
	return "INTERVAL " + sql.QuoteLiteral(v)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatDuration formats d in the largest whole unit PostgreSQL intervals
// accept, from days down to microseconds.
//
//	FormatDuration(24 * time.Hour)   // "1 day"
//	FormatDuration(90 * time.Minute) // "90 minutes"
func FormatDuration(d time.Duration) string {
	units := []struct {
		d    time.Duration
		name string
	}{
		{24 * time.Hour, "day"},
		{time.Hour, "hour"},
		{time.Minute, "minute"},
		{time.Second, "second"},
		{time.Millisecond, "millisecond"},
		{time.Microsecond, "microsecond"},
	}
	for _, u := range units {
		if d%u.d == 0 {
			return plural(int64(d/u.d), u.name)
		}
	}
	// Sub-microsecond precision is not representable.
	return plural(int64(d/time.Microsecond), "microsecond")
}

func plural(n int64, unit string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(n, 10))
	b.WriteByte(' ')
	b.WriteString(unit)
	if n != 1 && n != -1 {
		b.WriteByte('s')
	}
	return b.String()
}
