package schema

import (
	"fmt"
	"sync"

	"github.com/syssam/velox-timescaledb/dialect"
)

// Compiler compiles table definitions into the DDL statements of a dialect.
type Compiler interface {
	// CreateTable returns the statements that create the table and its
	// indexes, in execution order.
	CreateTable(*Table) []string
	// DropTable returns the statements that drop the table.
	DropTable(*Table) []string
}

var compilers = struct {
	sync.RWMutex
	m map[string]Compiler
}{m: make(map[string]Compiler)}

// RegisterCompiler registers the DDL compiler of a dialect name. It panics
// if the compiler is nil or a compiler was already registered for the name.
func RegisterCompiler(name string, c Compiler) {
	compilers.Lock()
	defer compilers.Unlock()
	if c == nil {
		panic("sql/schema: RegisterCompiler compiler is nil")
	}
	if _, dup := compilers.m[name]; dup {
		panic(fmt.Sprintf("sql/schema: RegisterCompiler called twice for %q", name))
	}
	compilers.m[name] = c
}

// CompilerFor returns the compiler registered for the dialect name. Names
// without a compiler of their own use the compiler of their base dialect.
func CompilerFor(name string) (Compiler, error) {
	compilers.RLock()
	defer compilers.RUnlock()
	if c, ok := compilers.m[name]; ok {
		return c, nil
	}
	if c, ok := compilers.m[dialect.Base(name)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("sql/schema: no DDL compiler registered for dialect %q", name)
}

func init() {
	RegisterCompiler(dialect.Postgres, &Postgres{})
	RegisterCompiler(dialect.SQLite, &SQLite{})
}
