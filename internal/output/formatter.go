// Package output formats a schema diff or migration plan for the CLI:
// SQL (the migration.sql the migrate command writes to disk),
// JSON (for tooling that consumes polygen's output programmatically),
// and a compact human summary.
package output

import (
	"fmt"
	"strings"

	"github.com/polygen/polygen/internal/migrate"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatSQL     Format = "sql"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
)

// Formatter is an interface for formatting schema diffs and migrations.
type Formatter interface {
	FormatDiff(*migrate.SchemaDiff) (string, error)
	FormatMigration(*migrate.Migration) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to SQL format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatSQL:
		return sqlFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'sql', 'json', or 'summary'", name)
	}
}

func normalizeStatements(stmts []string) []string {
	var out []string
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func reverseStatements(stmts []string) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[len(stmts)-1-i] = s
	}
	return out
}
