package migrate

import (
	"fmt"
	"strings"

	"github.com/polygen/polygen/internal/introspect"
)

// Plan renders a SchemaDiff into an ordered Migration: diff warnings as
// notes, then table creations, then each modified table's changes in
// turn (added columns, renames, column modifications, added indexes,
// dropped indexes, and last the dropped columns, flagged BREAKING), and
// finally dropped tables, flagged BREAKING. Column and index drops thus
// close their own table's block rather than sitting at the bottom of the
// whole plan.
func Plan(diff *SchemaDiff) *Migration {
	m := &Migration{}
	for _, w := range diff.Warnings {
		m.AddNote(w)
	}
	for _, t := range diff.AddedTables {
		up, down := createTableSQL(t), dropTableSQL(t.Name)
		m.AddStatementWithRollback(up, down)
	}
	for _, td := range diff.ModifiedTables {
		planTable(m, td)
	}
	for _, t := range diff.RemovedTables {
		m.AddBreaking(fmt.Sprintf("table %q is no longer declared and will be dropped", t.Name))
		m.AddStatementWithRollback(dropTableSQL(t.Name), createTableSQL(t))
	}
	m.Dedupe()
	return m
}

func planTable(m *Migration, td *TableDiff) {
	for _, c := range td.AddedColumns {
		m.AddStatementWithRollback(addColumnSQL(td.Name, c), dropColumnSQL(td.Name, c.Name))
	}
	for _, r := range td.RenamedColumns {
		m.AddStatementWithRollback(renameColumnSQL(td.Name, r.Old.Name, r.New.Name), renameColumnSQL(td.Name, r.New.Name, r.Old.Name))
	}
	for _, c := range td.ModifiedColumns {
		m.AddStatementWithRollback(modifyColumnSQL(td.Name, c.New), modifyColumnSQL(td.Name, c.Old))
	}
	for _, idx := range td.AddedIndexes {
		m.AddStatementWithRollback(createIndexSQL(td.Name, idx), dropIndexSQL(idx.Name))
	}
	for _, idx := range td.RemovedIndexes {
		m.AddStatementWithRollback(dropIndexSQL(idx.Name), createIndexSQL(td.Name, idx))
	}
	for _, c := range td.RemovedColumns {
		m.AddBreaking(fmt.Sprintf("column %q.%q is no longer declared and will be dropped", td.Name, c.Name))
		m.AddStatementWithRollback(dropColumnSQL(td.Name, c.Name), addColumnSQL(td.Name, c))
	}
}

func createTableSQL(t *introspect.DbTable) string {
	var cols []string
	for _, c := range t.Columns {
		cols = append(cols, columnDefSQL(&c))
	}
	if len(t.PrimaryKeys) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdentList(t.PrimaryKeys)))
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", quoteIdent(t.Name), strings.Join(cols, ",\n  "))
	for _, idx := range t.Indexes {
		stmt += "\n" + createIndexSQL(t.Name, &idx)
	}
	return stmt
}

func dropTableSQL(name string) string {
	return fmt.Sprintf("DROP TABLE %s;", quoteIdent(name))
}

func columnDefSQL(c *introspect.DbColumn) string {
	def := fmt.Sprintf("%s %s", quoteIdent(c.Name), c.DBType)
	if !c.IsNullable {
		def += " NOT NULL"
	}
	if c.DefaultValue != nil {
		def += " DEFAULT " + *c.DefaultValue
	}
	return def
}

func addColumnSQL(table string, c *introspect.DbColumn) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", quoteIdent(table), columnDefSQL(c))
}

func dropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", quoteIdent(table), quoteIdent(column))
}

func renameColumnSQL(table, from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", quoteIdent(table), quoteIdent(from), quoteIdent(to))
}

func modifyColumnSQL(table string, c *introspect.DbColumn) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", quoteIdent(table), columnDefSQL(c))
}

func createIndexSQL(table string, idx *introspect.DbIndex) string {
	kind := "INDEX"
	if idx.IsUnique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s);", kind, quoteIdent(idx.Name), quoteIdent(table), quoteIdentList(idx.Columns))
}

func dropIndexSQL(name string) string {
	return fmt.Sprintf("DROP INDEX %s;", quoteIdent(name))
}

// quoteIdent backtick-quotes a table/column/index name, doubling any
// embedded backtick the way the teacher's mysql dialect generator does.
func quoteIdent(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "`", "``")
	return "`" + name + "`"
}

func quoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
