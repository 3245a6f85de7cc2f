package dialect_test

import (
	"testing"

	"github.com/syssam/velox-timescaledb/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	for _, name := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite} {
		info, ok := dialect.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, info.Base)
		assert.Equal(t, name, dialect.Base(name))
	}
	info, _ := dialect.Lookup(dialect.Postgres)
	assert.Equal(t, "postgres", info.URLScheme)
	assert.True(t, info.Capabilities.ServerSideDefaults)
	assert.True(t, dialect.CapabilitiesOf(dialect.Postgres).Schemas)
	assert.False(t, dialect.CapabilitiesOf(dialect.SQLite).Schemas)
}

func TestRegister(t *testing.T) {
	dialect.Register(dialect.Info{Name: "test-pg", Base: dialect.Postgres})

	info, ok := dialect.Lookup("test-pg")
	require.True(t, ok)
	assert.Equal(t, dialect.Postgres, info.Base)
	assert.Equal(t, dialect.Postgres, info.Driver, "driver defaults to the base dialect")
	assert.Equal(t, dialect.Postgres, dialect.Base("test-pg"))
	assert.Contains(t, dialect.Names(), "test-pg")
	assert.IsIncreasing(t, dialect.Names())

	assert.Panics(t, func() { dialect.Register(dialect.Info{Name: "test-pg"}) })
	assert.Panics(t, func() { dialect.Register(dialect.Info{}) })
}

func TestBase_Unknown(t *testing.T) {
	assert.Equal(t, "oracle", dialect.Base("oracle"))
	_, ok := dialect.Lookup("oracle")
	assert.False(t, ok)
	assert.Equal(t, dialect.Capabilities{}, dialect.CapabilitiesOf("oracle"))
}
