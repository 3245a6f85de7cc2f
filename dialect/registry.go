package dialect

import (
	"fmt"
	"slices"
	"sync"
)

// Capabilities are the superficial feature flags of a dialect. They do not
// change the SQL dialect a name compiles to, only which optional clauses
// the compilers emit.
type Capabilities struct {
	// Returning reports if INSERT/UPDATE ... RETURNING is supported.
	Returning bool
	// ServerSideDefaults reports if column DEFAULT clauses are honored by the server.
	ServerSideDefaults bool
	// StatementCache reports if prepared statements can be cached per connection.
	StatementCache bool
	// Schemas reports if tables can be qualified with a schema (namespace).
	Schemas bool
}

// Info describes a registered dialect name.
type Info struct {
	// Name is the name users select the dialect by (e.g. "timescaledb").
	Name string
	// Driver is the database/sql driver name used to open connections.
	Driver string
	// Base is the SQL dialect the name compiles to. Builders and
	// compilers that have no entry for Name fall back to Base.
	Base string
	// URLScheme is the scheme the driver expects in connection URLs.
	// An empty value leaves URLs untouched.
	URLScheme string
	// Capabilities of the dialect.
	Capabilities Capabilities
}

var registry = struct {
	sync.RWMutex
	infos map[string]Info
}{infos: make(map[string]Info)}

// Register makes a dialect available by the provided name. If Register is called
// twice with the same name or if the name is empty, it panics.
func Register(info Info) {
	registry.Lock()
	defer registry.Unlock()
	if info.Name == "" {
		panic("dialect: Register called with empty name")
	}
	if _, dup := registry.infos[info.Name]; dup {
		panic(fmt.Sprintf("dialect: Register called twice for %q", info.Name))
	}
	if info.Base == "" {
		info.Base = info.Name
	}
	if info.Driver == "" {
		info.Driver = info.Base
	}
	registry.infos[info.Name] = info
}

// Lookup returns the registered dialect with the given name.
func Lookup(name string) (Info, bool) {
	registry.RLock()
	defer registry.RUnlock()
	info, ok := registry.infos[name]
	return info, ok
}

// Base returns the SQL dialect the given name compiles to.
// Unregistered names are returned as is.
func Base(name string) string {
	if info, ok := Lookup(name); ok {
		return info.Base
	}
	return name
}

// CapabilitiesOf returns the capabilities of the given dialect name.
func CapabilitiesOf(name string) Capabilities {
	info, _ := Lookup(name)
	return info.Capabilities
}

// Names returns a sorted list of the registered dialect names.
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.infos))
	for name := range registry.infos {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func init() {
	Register(Info{
		Name:      Postgres,
		Driver:    "postgres",
		URLScheme: "postgres",
		Capabilities: Capabilities{
			Returning:          true,
			ServerSideDefaults: true,
			StatementCache:     true,
			Schemas:            true,
		},
	})
	Register(Info{
		Name: MySQL,
		Capabilities: Capabilities{
			ServerSideDefaults: true,
			StatementCache:     true,
			Schemas:            true,
		},
	})
	Register(Info{
		Name: SQLite,
		Capabilities: Capabilities{
			Returning:          true,
			ServerSideDefaults: true,
		},
	})
}
