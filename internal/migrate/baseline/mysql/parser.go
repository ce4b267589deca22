// Package mysql parses a MySQL schema dump into the same DbSchema shape
// introspect/mysql reads back from a live connection, so `polygen
// migrate --baseline dump.sql` and `polygen migrate --db ...` share one
// diffing path. It uses TiDB's parser, so both MySQL and TiDB-specific
// DDL dialects parse correctly.
package mysql

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/polygen/polygen/internal/introspect"
)

// Parser converts a MySQL schema dump's CREATE TABLE statements into a
// DbSchema. Every other statement kind (INSERT, CREATE VIEW, DROP, ...)
// is ignored, since a baseline dump is only ever used as a migration
// source, never replayed.
type Parser struct {
	p *parser.Parser
}

func NewParser() *Parser {
	return &Parser{p: parser.New()}
}

func (p *Parser) Parse(sql string) (*introspect.DbSchema, error) {
	stmtNodes, _, err := p.p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("mysql baseline: parse error: %w", err)
	}

	schema := &introspect.DbSchema{Tables: map[string]*introspect.DbTable{}}
	for _, stmt := range stmtNodes {
		create, ok := stmt.(*ast.CreateTableStmt)
		if !ok {
			continue
		}
		table := p.convertCreateTable(create)
		schema.Tables[table.Name] = table
	}
	return schema, nil
}

func (p *Parser) convertCreateTable(stmt *ast.CreateTableStmt) *introspect.DbTable {
	table := &introspect.DbTable{Name: stmt.Table.Name.O}
	p.parseColumns(stmt.Cols, table)
	p.parseConstraints(stmt.Constraints, table)
	return table
}

func (p *Parser) parseColumns(cols []*ast.ColumnDef, table *introspect.DbTable) {
	for _, colDef := range cols {
		col := introspect.DbColumn{
			Name:       colDef.Name.Name.O,
			DBType:     colDef.Tp.String(),
			IsNullable: true,
		}
		for _, opt := range colDef.Options {
			switch opt.Tp {
			case ast.ColumnOptionNotNull:
				col.IsNullable = false
			case ast.ColumnOptionNull:
				col.IsNullable = true
			case ast.ColumnOptionPrimaryKey:
				col.IsPrimaryKey = true
				col.IsNullable = false
			case ast.ColumnOptionDefaultValue:
				col.DefaultValue = p.exprToString(opt.Expr)
			case ast.ColumnOptionUniqKey:
				table.Indexes = append(table.Indexes, introspect.DbIndex{
					Name: "uk_" + table.Name + "_" + col.Name, Columns: []string{col.Name}, IsUnique: true,
				})
			}
		}
		table.Columns = append(table.Columns, col)
		if col.IsPrimaryKey {
			table.PrimaryKeys = append(table.PrimaryKeys, col.Name)
		}
	}
}

func (p *Parser) parseConstraints(constraints []*ast.Constraint, table *introspect.DbTable) {
	for _, constraint := range constraints {
		columns := make([]string, 0, len(constraint.Keys))
		for _, key := range constraint.Keys {
			columns = append(columns, key.Column.Name.O)
		}

		switch constraint.Tp {
		case ast.ConstraintPrimaryKey:
			table.PrimaryKeys = mergeUnique(table.PrimaryKeys, columns)
			markPrimaryKeys(table, columns)
		case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
			table.Indexes = append(table.Indexes, introspect.DbIndex{Name: constraint.Name, Columns: columns, IsUnique: true})
		case ast.ConstraintIndex, ast.ConstraintKey:
			table.Indexes = append(table.Indexes, introspect.DbIndex{Name: constraint.Name, Columns: columns, IsUnique: false})
		}
	}
}

func markPrimaryKeys(table *introspect.DbTable, columns []string) {
	pk := map[string]bool{}
	for _, c := range columns {
		pk[strings.ToLower(c)] = true
	}
	for i := range table.Columns {
		if pk[strings.ToLower(table.Columns[i].Name)] {
			table.Columns[i].IsPrimaryKey = true
			table.Columns[i].IsNullable = false
		}
	}
}

func mergeUnique(existing, add []string) []string {
	seen := map[string]bool{}
	for _, e := range existing {
		seen[strings.ToLower(e)] = true
	}
	for _, a := range add {
		if !seen[strings.ToLower(a)] {
			existing = append(existing, a)
			seen[strings.ToLower(a)] = true
		}
	}
	return existing
}

func (p *Parser) exprToString(expr ast.ExprNode) *string {
	if expr == nil {
		return nil
	}
	var sb strings.Builder
	restoreCtx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := expr.Restore(restoreCtx); err != nil {
		return nil
	}
	s := strings.TrimSpace(sb.String())
	if unquoted, ok := tryUnquoteSQLStringLiteral(s); ok {
		return &unquoted
	}
	return &s
}

func tryUnquoteSQLStringLiteral(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[len(s)-1] != '\'' {
		return "", false
	}
	if s[0] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
	}
	q := strings.IndexByte(s, '\'')
	if q <= 0 {
		return "", false
	}
	prefix := strings.TrimSpace(s[:q])
	if !isSQLStringIntroducer(prefix) {
		return "", false
	}
	inner := s[q+1 : len(s)-1]
	return strings.ReplaceAll(inner, "''", "'"), true
}

func isSQLStringIntroducer(prefix string) bool {
	if prefix == "" {
		return false
	}
	if strings.EqualFold(prefix, "N") {
		return true
	}
	if !strings.HasPrefix(prefix, "_") || len(prefix) == 1 {
		return false
	}
	for _, r := range prefix[1:] {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
