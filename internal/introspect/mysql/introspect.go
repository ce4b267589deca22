// Package mysql introspects a MySQL (or MySQL-wire-compatible MariaDB /
// TiDB) database's tables, columns, and indexes into an
// introspect.DbSchema, adapted from the teacher's information_schema
// queries in internal/introspect/mysql (tables.go/columns.go/indexes.go)
// against the teacher's rich core.Database — narrowed here to the
// column/index/primary-key shape the schema migrator actually diffs.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/polygen/polygen/internal/introspect"
)

func init() {
	introspect.Register(introspect.DialectMySQL, New)
}

type introspecter struct{}

// New constructs the MySQL Introspecter, registered under
// introspect.DialectMySQL.
func New() introspect.Introspecter {
	return &introspecter{}
}

func (i *introspecter) Introspect(ctx context.Context, dsn string) (*introspect.DbSchema, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: open: %w", err)
	}
	defer db.Close()

	schema := &introspect.DbSchema{Tables: map[string]*introspect.DbTable{}}

	rows, err := db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
	`)
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("introspect/mysql: scan table name: %w", err)
		}
		if introspect.IsInternalTable(name) {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, name := range names {
		t, err := introspectTable(ctx, db, name)
		if err != nil {
			return nil, err
		}
		schema.Tables[name] = t
	}
	return schema, nil
}

func introspectTable(ctx context.Context, db *sql.DB, name string) (*introspect.DbTable, error) {
	t := &introspect.DbTable{Name: name}

	colRows, err := db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_default, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: columns of %s: %w", name, err)
	}
	defer colRows.Close()
	for colRows.Next() {
		var colName, colType, nullable, colKey string
		var defaultVal sql.NullString
		if err := colRows.Scan(&colName, &colType, &nullable, &defaultVal, &colKey); err != nil {
			return nil, fmt.Errorf("introspect/mysql: scan column of %s: %w", name, err)
		}
		col := introspect.DbColumn{
			Name:         colName,
			DBType:       colType,
			IsNullable:   nullable == "YES",
			IsPrimaryKey: colKey == "PRI",
		}
		if defaultVal.Valid {
			col.DefaultValue = &defaultVal.String
		}
		t.Columns = append(t.Columns, col)
		if col.IsPrimaryKey {
			t.PrimaryKeys = append(t.PrimaryKeys, colName)
		}
	}
	if err := colRows.Err(); err != nil {
		return nil, err
	}

	idxRows, err := db.QueryContext(ctx, `
		SELECT
			i.index_name,
			i.non_unique,
			GROUP_CONCAT(c.column_name ORDER BY c.seq_in_index SEPARATOR ',')
		FROM information_schema.statistics i
		JOIN information_schema.statistics c
			ON i.table_schema = c.table_schema
			AND i.table_name = c.table_name
			AND i.index_name = c.index_name
		WHERE i.table_schema = DATABASE() AND i.table_name = ? AND i.index_name <> 'PRIMARY'
		GROUP BY i.index_name, i.non_unique
	`, name)
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: indexes of %s: %w", name, err)
	}
	defer idxRows.Close()
	for idxRows.Next() {
		var idxName string
		var nonUnique int
		var columns string
		if err := idxRows.Scan(&idxName, &nonUnique, &columns); err != nil {
			return nil, fmt.Errorf("introspect/mysql: scan index of %s: %w", name, err)
		}
		t.Indexes = append(t.Indexes, introspect.DbIndex{
			Name:     idxName,
			Columns:  strings.Split(columns, ","),
			IsUnique: nonUnique == 0,
		})
	}
	return t, idxRows.Err()
}
