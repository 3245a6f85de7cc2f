package sql

import (
	"testing"

	"github.com/syssam/velox-timescaledb/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	dialect.Register(dialect.Info{
		Name:      "urltest+pq",
		Driver:    "postgres",
		Base:      dialect.Postgres,
		URLScheme: "postgres",
	})
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dialect string
		source  string
		wantErr string
	}{
		{
			name:    "postgres",
			url:     "postgres://u:p@localhost:5432/db?sslmode=disable",
			dialect: dialect.Postgres,
			source:  "postgres://u:p@localhost:5432/db?sslmode=disable",
		},
		{
			name:    "rewritten scheme",
			url:     "urltest+pq://u:p@localhost/db",
			dialect: "urltest+pq",
			source:  "postgres://u:p@localhost/db",
		},
		{
			name:    "sqlite keeps source",
			url:     "sqlite://file.db",
			dialect: dialect.SQLite,
			source:  "sqlite://file.db",
		},
		{
			name:    "unknown scheme",
			url:     "oracle://u:p@localhost/db",
			wantErr: `unknown dialect "oracle"`,
		},
		{
			name:    "missing scheme",
			url:     "localhost/db",
			wantErr: "missing scheme",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, source, err := ParseURL(tt.url)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, name)
			assert.Equal(t, tt.source, source)
		})
	}
}
