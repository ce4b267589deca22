// Package introspect reads the live structure of a target database (or,
// via internal/migrate/baseline, a SQL dump standing in for one) into a
// dialect-neutral DbSchema, the input the schema migrator diffs against
// the IR-derived target schema.
//
// The Introspecter interface and the dialect registry below are adapted
// directly from the teacher's internal/introspect package: a
// package-level map keyed by dialect, guarded by a mutex, populated by
// each dialect subpackage's init().
package introspect

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Dialect identifies which database engine an Introspecter talks to.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// DbColumn is one column of a DbTable as read back from the database.
type DbColumn struct {
	Name         string
	DBType       string
	IsNullable   bool
	DefaultValue *string
	IsPrimaryKey bool
}

// DbIndex is one index of a DbTable as read back from the database.
type DbIndex struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// DbTable is a single introspected table.
type DbTable struct {
	Name        string
	Columns     []DbColumn
	PrimaryKeys []string
	Indexes     []DbIndex
}

// DbSchema is the full introspected (or baseline-parsed) database
// structure, keyed by table name.
type DbSchema struct {
	Tables map[string]*DbTable
}

// SortedTableNames returns the schema's table names in a deterministic
// order, used everywhere a diff needs stable iteration.
func (s *DbSchema) SortedTableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Introspecter reads the current schema of a connected database.
type Introspecter interface {
	Introspect(ctx context.Context, dsn string) (*DbSchema, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[Dialect]func() Introspecter{}
)

// Register associates a dialect with a constructor for its Introspecter,
// called from each dialect subpackage's init().
func Register(dialect Dialect, fn func() Introspecter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[dialect] = fn
}

// New looks up the Introspecter registered for dialect.
func New(dialect Dialect) (Introspecter, error) {
	registryMu.RLock()
	fn, ok := registry[dialect]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("introspect: no introspecter registered for dialect %q", dialect)
	}
	return fn(), nil
}

// internalTablePrefixes lists the table-name prefixes every dialect
// excludes from introspection: the database engine's own catalog tables
// and PolyGen's own bookkeeping tables, matching the exclusion rule the
// original Rust SQLite introspector applied via `NOT LIKE 'sqlite_%' AND
// NOT LIKE '_polygen_%'`.
var internalTablePrefixes = []string{"sqlite_", "_polygen_"}

// IsInternalTable reports whether name should be skipped during
// introspection.
func IsInternalTable(name string) bool {
	for _, prefix := range internalTablePrefixes {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
