package migrate

import (
	"sort"
	"strings"

	"github.com/polygen/polygen/internal/introspect"
)

// renameDetectionScoreThreshold is the minimum similarity score (see
// columnSimilarity) required to treat a removed+added column pair as a
// rename rather than an independent drop and add.
const renameDetectionScoreThreshold = 6

// SchemaDiff is the set of differences between an expected schema (one
// ExpectedSchema derives from an ir.SchemaContext) and an actual one
// (one an introspect.Introspecter returns, or one loaded from a baseline
// SQL dump).
type SchemaDiff struct {
	Warnings       []string
	AddedTables    []*introspect.DbTable
	RemovedTables  []*introspect.DbTable
	ModifiedTables []*TableDiff
}

// TableDiff is the set of differences between two versions of one table.
type TableDiff struct {
	Name            string
	AddedColumns    []*introspect.DbColumn
	RemovedColumns  []*introspect.DbColumn
	RenamedColumns  []*ColumnRename
	ModifiedColumns []*ColumnChange
	AddedIndexes    []*introspect.DbIndex
	RemovedIndexes  []*introspect.DbIndex
}

// ColumnChange is a column present in both schemas with a differing
// definition.
type ColumnChange struct {
	Name    string
	Old     *introspect.DbColumn
	New     *introspect.DbColumn
	Changes []FieldChange
}

// ColumnRename pairs a removed column with an added one the similarity
// heuristic believes is the same column under a new name.
type ColumnRename struct {
	Old   *introspect.DbColumn
	New   *introspect.DbColumn
	Score int
}

// FieldChange is one changed attribute of a modified column.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

func (td *TableDiff) IsEmpty() bool {
	return len(td.AddedColumns) == 0 && len(td.RemovedColumns) == 0 &&
		len(td.RenamedColumns) == 0 && len(td.ModifiedColumns) == 0 &&
		len(td.AddedIndexes) == 0 && len(td.RemovedIndexes) == 0
}

// Diff compares an old (actual) and new (expected) schema and returns
// everything that changed. Column rename detection follows the
// teacher's diff package: a removed and an added column in the same
// table are treated as a rename, rather than an independent drop and
// add, when their similarity score clears renameDetectionScoreThreshold.
func Diff(oldSchema, newSchema *introspect.DbSchema) *SchemaDiff {
	d := &SchemaDiff{}
	oldTables, oldWarn := mapTablesByName(oldSchema)
	newTables, newWarn := mapTablesByName(newSchema)
	d.Warnings = append(d.Warnings, oldWarn...)
	d.Warnings = append(d.Warnings, newWarn...)

	for name, nt := range newTables {
		if ot, ok := oldTables[name]; ok {
			if td := compareTable(ot, nt); !td.IsEmpty() {
				d.ModifiedTables = append(d.ModifiedTables, td)
			}
		} else {
			d.AddedTables = append(d.AddedTables, nt)
		}
	}
	for name, ot := range oldTables {
		if _, ok := newTables[name]; !ok {
			d.RemovedTables = append(d.RemovedTables, ot)
		}
	}

	sortByName(d.AddedTables, func(t *introspect.DbTable) string { return t.Name })
	sortByName(d.RemovedTables, func(t *introspect.DbTable) string { return t.Name })
	sortByName(d.ModifiedTables, func(t *TableDiff) string { return t.Name })
	return d
}

func (d *SchemaDiff) IsEmpty() bool {
	return len(d.AddedTables) == 0 && len(d.RemovedTables) == 0 && len(d.ModifiedTables) == 0
}

func compareTable(old, new *introspect.DbTable) *TableDiff {
	td := &TableDiff{Name: new.Name}
	oldCols, _ := mapColumnsByName(old.Columns)
	newCols, _ := mapColumnsByName(new.Columns)

	var removedNames []string
	for name, oc := range oldCols {
		if _, ok := newCols[name]; !ok {
			td.RemovedColumns = append(td.RemovedColumns, oc)
			removedNames = append(removedNames, name)
		}
	}
	var addedNames []string
	for name, nc := range newCols {
		if oc, ok := oldCols[name]; ok {
			if changes := compareColumn(oc, nc); len(changes) > 0 {
				td.ModifiedColumns = append(td.ModifiedColumns, &ColumnChange{Name: nc.Name, Old: oc, New: nc, Changes: changes})
			}
		} else {
			td.AddedColumns = append(td.AddedColumns, nc)
			addedNames = append(addedNames, name)
		}
	}

	detectRenames(td, oldCols, newCols, removedNames, addedNames)

	td.AddedIndexes, td.RemovedIndexes = diffIndexes(old.Indexes, new.Indexes)

	sortByName(td.AddedColumns, func(c *introspect.DbColumn) string { return c.Name })
	sortByName(td.RemovedColumns, func(c *introspect.DbColumn) string { return c.Name })
	sortByName(td.ModifiedColumns, func(c *ColumnChange) string { return c.Name })
	return td
}

func detectRenames(td *TableDiff, oldCols, newCols map[string]*introspect.DbColumn, removedNames, addedNames []string) {
	used := map[string]bool{}
	for _, rn := range removedNames {
		oc := oldCols[rn]
		bestScore, bestName := 0, ""
		for _, an := range addedNames {
			if used[an] {
				continue
			}
			score := columnSimilarity(oc, newCols[an])
			if score > bestScore {
				bestScore, bestName = score, an
			}
		}
		if bestScore >= renameDetectionScoreThreshold {
			used[bestName] = true
			td.RenamedColumns = append(td.RenamedColumns, &ColumnRename{Old: oc, New: newCols[bestName], Score: bestScore})
		}
	}
	if len(td.RenamedColumns) == 0 {
		return
	}
	var filteredRemoved, filteredAdded []*introspect.DbColumn
	renamedOld := map[string]bool{}
	renamedNew := map[string]bool{}
	for _, r := range td.RenamedColumns {
		renamedOld[r.Old.Name] = true
		renamedNew[r.New.Name] = true
	}
	for _, c := range td.RemovedColumns {
		if !renamedOld[c.Name] {
			filteredRemoved = append(filteredRemoved, c)
		}
	}
	for _, c := range td.AddedColumns {
		if !renamedNew[c.Name] {
			filteredAdded = append(filteredAdded, c)
		}
	}
	td.RemovedColumns, td.AddedColumns = filteredRemoved, filteredAdded
}

// columnSimilarity scores how alike two columns of the same name-change
// candidacy are. Unlike the teacher's richer MySQL-option-aware scoring,
// introspect.DbColumn only carries type/nullability/default/PK — the
// fields every dialect this package targets (MySQL, SQLite) exposes in
// common — so the score tops out lower; renameDetectionScoreThreshold is
// calibrated to that narrower scale.
func columnSimilarity(a, b *introspect.DbColumn) int {
	score := 0
	if strings.EqualFold(a.DBType, b.DBType) {
		score += 4
	}
	if a.IsNullable == b.IsNullable {
		score += 1
	}
	if a.IsPrimaryKey == b.IsPrimaryKey {
		score += 1
	}
	if ptrEq(a.DefaultValue, b.DefaultValue) {
		score += 1
	}
	return score
}

func compareColumn(old, new *introspect.DbColumn) []FieldChange {
	var changes []FieldChange
	add := func(field, o, n string) {
		if o != n {
			changes = append(changes, FieldChange{Field: field, Old: o, New: n})
		}
	}
	add("type", old.DBType, new.DBType)
	add("nullable", boolStr(old.IsNullable), boolStr(new.IsNullable))
	add("primary_key", boolStr(old.IsPrimaryKey), boolStr(new.IsPrimaryKey))
	add("default", ptrStr(old.DefaultValue), ptrStr(new.DefaultValue))
	return changes
}

func diffIndexes(old, new []introspect.DbIndex) (added, removed []*introspect.DbIndex) {
	oldByKey := map[string]*introspect.DbIndex{}
	for i := range old {
		oldByKey[indexKey(&old[i])] = &old[i]
	}
	newByKey := map[string]*introspect.DbIndex{}
	for i := range new {
		newByKey[indexKey(&new[i])] = &new[i]
	}
	for k, idx := range newByKey {
		if _, ok := oldByKey[k]; !ok {
			removedOrAdded := idx
			added = append(added, removedOrAdded)
		}
	}
	for k, idx := range oldByKey {
		if _, ok := newByKey[k]; !ok {
			removed = append(removed, idx)
		}
	}
	sortByName(added, func(i *introspect.DbIndex) string { return i.Name })
	sortByName(removed, func(i *introspect.DbIndex) string { return i.Name })
	return added, removed
}

func indexKey(idx *introspect.DbIndex) string {
	return strings.ToLower(strings.Join(idx.Columns, ",")) + "|" + boolStr(idx.IsUnique)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func ptrStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptrEq(a, b *string) bool { return ptrStr(a) == ptrStr(b) }

func mapTablesByName(schema *introspect.DbSchema) (map[string]*introspect.DbTable, []string) {
	m := map[string]*introspect.DbTable{}
	original := map[string]string{}
	var warnings []string
	for _, name := range schema.SortedTableNames() {
		t := schema.Tables[name]
		key := strings.ToLower(t.Name)
		if prev, ok := original[key]; ok && prev != t.Name {
			warnings = append(warnings, "case-insensitive table name collision: "+prev+" vs "+t.Name)
			continue
		}
		original[key] = t.Name
		m[key] = t
	}
	return m, warnings
}

func mapColumnsByName(cols []introspect.DbColumn) (map[string]*introspect.DbColumn, []string) {
	m := map[string]*introspect.DbColumn{}
	for i := range cols {
		m[strings.ToLower(cols[i].Name)] = &cols[i]
	}
	return m, nil
}

func sortByName[T any](items []T, name func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(name(items[i])) < strings.ToLower(name(items[j]))
	})
}
