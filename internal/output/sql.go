package output

import (
	"io"
	"strings"

	"github.com/polygen/polygen/internal/migrate"
)

type sqlFormatter struct{}

// FormatDiff formats a schema diff as the same plain-text listing the
// other formatters build on (no SQL comment markers are added).
func (sqlFormatter) FormatDiff(d *migrate.SchemaDiff) (string, error) {
	if d == nil {
		return "", nil
	}
	return formatDiffText(d), nil
}

// FormatMigration formats a migration in SQL format.
func (sqlFormatter) FormatMigration(m *migrate.Migration) (string, error) {
	if m == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("-- polygen migration\n")
	sb.WriteString("-- Review before running in production.\n")

	writeCommentSection(&sb, "BREAKING CHANGES (manual review required)", m.BreakingNotes())
	writeCommentSection(&sb, "UNRESOLVED (cannot auto-generate safely)", m.UnresolvedNotes())
	writeCommentSection(&sb, "NOTES", m.InfoNotes())

	sqlOps := getSQLOperations(m)
	rb := m.RollbackStatements()

	if len(sqlOps) == 0 {
		return formatEmptyMigration(&sb, rb), nil
	}

	writeSQLOperations(&sb, sqlOps)

	if len(rb) > 0 {
		sb.WriteString("\n-- ROLLBACK SQL (run separately)\n")
		writeRollbackAsComments(&sb, rb)
	}

	return sb.String(), nil
}

func formatEmptyMigration(sb *strings.Builder, rb []string) string {
	sb.WriteString("\n-- No SQL statements generated.\n")
	if len(rb) > 0 {
		sb.WriteString("\n-- ROLLBACK SQL (run separately if needed)\n")
		writeRollbackAsComments(sb, rb)
	}
	return sb.String()
}

func writeSQLOperations(sb *strings.Builder, sqlOps []migrate.Operation) {
	sb.WriteString("\n-- SQL\n")
	for _, op := range sqlOps {
		if op.SQL == "" {
			continue
		}
		writeRiskComment(sb, op)
		sb.WriteString(op.SQL)
		if !strings.HasSuffix(op.SQL, ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
}

func writeRiskComment(sb *strings.Builder, op migrate.Operation) {
	if op.Risk != "" && op.Risk != migrate.RiskInfo {
		sb.WriteString("-- [" + string(op.Risk) + "]")
		if op.RequiresLock {
			sb.WriteString(" (may acquire locks)")
		}
		sb.WriteString("\n")
	}
}

// FormatRollbackSQL formats a migration's rollback statements as SQL, in
// reverse application order.
func FormatRollbackSQL(m *migrate.Migration) string {
	if m == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("-- polygen rollback\n")
	sb.WriteString("-- Run to revert the migration (review carefully).\n")

	rb := m.RollbackStatements()
	if len(rb) == 0 {
		sb.WriteString("\n-- No rollback statements generated.\n")
		return sb.String()
	}

	sb.WriteString("\n-- SQL\n")
	for i := len(rb) - 1; i >= 0; i-- {
		stmt := strings.TrimSpace(rb[i])
		if stmt == "" {
			continue
		}
		sb.WriteString(stmt)
		if !strings.HasSuffix(stmt, ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// WriteMigration writes a formatted migration to the given writer.
func WriteMigration(m *migrate.Migration, w io.Writer) error {
	content, err := sqlFormatter{}.FormatMigration(m)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

// WriteRollback writes formatted rollback SQL to the given writer.
func WriteRollback(m *migrate.Migration, w io.Writer) error {
	_, err := io.WriteString(w, FormatRollbackSQL(m))
	return err
}

func getSQLOperations(m *migrate.Migration) []migrate.Operation {
	var ops []migrate.Operation
	for _, op := range m.Plan() {
		if op.Kind == migrate.OperationSQL && op.SQL != "" {
			ops = append(ops, op)
		}
	}
	return ops
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

func writeRollbackAsComments(sb *strings.Builder, rollback []string) {
	for i := len(rollback) - 1; i >= 0; i-- {
		for _, line := range splitCommentLines(rollback[i]) {
			if line == "" {
				continue
			}
			sb.WriteString("-- ")
			sb.WriteString(line)
			if !strings.HasSuffix(line, ";") {
				sb.WriteString(";")
			}
			sb.WriteString("\n")
		}
	}
}
