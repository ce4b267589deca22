// Package sqlite introspects a SQLite database file into an
// introspect.DbSchema, grounded on original_source/src/db_introspection.rs's
// SqliteIntrospector: enumerate sqlite_master, then PRAGMA table_info /
// PRAGMA index_list / PRAGMA index_info per table. This is the default
// migration target dialect — spec.md's introspection exclusion rule
// (`sqlite_%`, `_polygen_%`) is enforced in the master-table query
// below.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/polygen/polygen/internal/introspect"
)

func init() {
	introspect.Register(introspect.DialectSQLite, New)
}

type sqliteIntrospecter struct{}

// New constructs the SQLite Introspecter, registered under
// introspect.DialectSQLite.
func New() introspect.Introspecter {
	return &sqliteIntrospecter{}
}

func (i *sqliteIntrospecter) Introspect(ctx context.Context, dsn string) (*introspect.DbSchema, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("introspect/sqlite: open: %w", err)
	}
	defer db.Close()

	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	schema := &introspect.DbSchema{Tables: map[string]*introspect.DbTable{}}
	for _, name := range names {
		t, err := introspectTable(ctx, db, name)
		if err != nil {
			return nil, err
		}
		schema.Tables[name] = t
	}
	return schema, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name NOT LIKE '\_polygen\_%' ESCAPE '\'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("introspect/sqlite: list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("introspect/sqlite: scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func introspectTable(ctx context.Context, db *sql.DB, name string) (*introspect.DbTable, error) {
	t := &introspect.DbTable{Name: name}

	colRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return nil, fmt.Errorf("introspect/sqlite: table_info(%s): %w", name, err)
	}
	defer colRows.Close()
	for colRows.Next() {
		var cid int
		var colName, colType string
		var notNull int
		var dfltValue sql.NullString
		var pk int
		if err := colRows.Scan(&cid, &colName, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("introspect/sqlite: scan table_info(%s): %w", name, err)
		}
		col := introspect.DbColumn{
			Name:         colName,
			DBType:       colType,
			IsNullable:   notNull == 0,
			IsPrimaryKey: pk > 0,
		}
		if dfltValue.Valid {
			col.DefaultValue = &dfltValue.String
		}
		t.Columns = append(t.Columns, col)
		if col.IsPrimaryKey {
			t.PrimaryKeys = append(t.PrimaryKeys, colName)
		}
	}
	if err := colRows.Err(); err != nil {
		return nil, err
	}

	idxRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", name))
	if err != nil {
		return nil, fmt.Errorf("introspect/sqlite: index_list(%s): %w", name, err)
	}
	defer idxRows.Close()
	type idxMeta struct {
		seq     int
		name    string
		unique  int
		origin  string
		partial int
	}
	var idxs []idxMeta
	for idxRows.Next() {
		var m idxMeta
		if err := idxRows.Scan(&m.seq, &m.name, &m.unique, &m.origin, &m.partial); err != nil {
			return nil, fmt.Errorf("introspect/sqlite: scan index_list(%s): %w", name, err)
		}
		if m.origin == "pk" {
			continue // the primary key's implicit index is represented via PrimaryKeys
		}
		idxs = append(idxs, m)
	}
	if err := idxRows.Err(); err != nil {
		return nil, err
	}

	for _, m := range idxs {
		cols, err := indexColumns(ctx, db, m.name)
		if err != nil {
			return nil, err
		}
		t.Indexes = append(t.Indexes, introspect.DbIndex{
			Name:     m.name,
			Columns:  cols,
			IsUnique: m.unique == 1,
		})
	}
	return t, nil
}

func indexColumns(ctx context.Context, db *sql.DB, indexName string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", indexName))
	if err != nil {
		return nil, fmt.Errorf("introspect/sqlite: index_info(%s): %w", indexName, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var seqno, cid int
		var colName string
		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, fmt.Errorf("introspect/sqlite: scan index_info(%s): %w", indexName, err)
		}
		cols = append(cols, colName)
	}
	return cols, rows.Err()
}
