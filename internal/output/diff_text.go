package output

import (
	"fmt"
	"strings"

	"github.com/polygen/polygen/internal/introspect"
	"github.com/polygen/polygen/internal/migrate"
)

// formatDiffText returns a human-readable rendering of a SchemaDiff.
func formatDiffText(d *migrate.SchemaDiff) string {
	if d.IsEmpty() {
		return "No differences detected."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Schema differences:\n")

	writeDiffWarnings(&sb, d.Warnings)
	writeAddedTables(&sb, d.AddedTables)
	writeRemovedTables(&sb, d.RemovedTables)
	writeModifiedTables(&sb, d.ModifiedTables)

	return sb.String()
}

func writeDiffWarnings(sb *strings.Builder, warnings []string) {
	if len(warnings) > 0 {
		fmt.Fprintf(sb, "\nWarnings:\n")
		for _, w := range warnings {
			w = strings.TrimSpace(w)
			if w == "" {
				continue
			}
			fmt.Fprintf(sb, "  - %s\n", w)
		}
	}
}

func writeAddedTables(sb *strings.Builder, tables []*introspect.DbTable) {
	if len(tables) > 0 {
		fmt.Fprintf(sb, "\nAdded tables:\n")
		for _, at := range tables {
			fmt.Fprintf(sb, "  - %s\n", at.Name)
		}
	}
}

func writeRemovedTables(sb *strings.Builder, tables []*introspect.DbTable) {
	if len(tables) > 0 {
		fmt.Fprintf(sb, "\nRemoved tables:\n")
		for _, rt := range tables {
			fmt.Fprintf(sb, "  - %s\n", rt.Name)
		}
	}
}

func writeModifiedTables(sb *strings.Builder, tables []*migrate.TableDiff) {
	if len(tables) > 0 {
		fmt.Fprintf(sb, "\nModified tables:\n")
		for _, mt := range tables {
			writeTableDiffText(sb, mt)
		}
	}
}

func writeTableDiffText(sb *strings.Builder, mt *migrate.TableDiff) {
	fmt.Fprintf(sb, "\n  - %s\n", mt.Name)

	writeColumns(sb, mt)
	writeIndexes(sb, mt)
}

func writeColumns(sb *strings.Builder, mt *migrate.TableDiff) {
	if len(mt.AddedColumns) > 0 {
		fmt.Fprintf(sb, "    Added columns:\n")
		for _, ac := range mt.AddedColumns {
			fmt.Fprintf(sb, "      - %s: %s\n", ac.Name, ac.DBType)
		}
	}

	if len(mt.RemovedColumns) > 0 {
		fmt.Fprintf(sb, "    Removed columns:\n")
		for _, rc := range mt.RemovedColumns {
			fmt.Fprintf(sb, "      - %s: %s\n", rc.Name, rc.DBType)
		}
	}

	if len(mt.RenamedColumns) > 0 {
		fmt.Fprintf(sb, "    Renamed columns:\n")
		for _, rc := range mt.RenamedColumns {
			fmt.Fprintf(sb, "      - %s -> %s\n", rc.Old.Name, rc.New.Name)
		}
	}

	if len(mt.ModifiedColumns) > 0 {
		fmt.Fprintf(sb, "    Modified columns:\n")
		for _, mc := range mt.ModifiedColumns {
			fmt.Fprintf(sb, "      - %s:\n", mc.Name)
			for _, fc := range mc.Changes {
				fmt.Fprintf(sb, "        - %s: %q -> %q\n", fc.Field, fc.Old, fc.New)
			}
		}
	}
}

func writeIndexes(sb *strings.Builder, mt *migrate.TableDiff) {
	if len(mt.AddedIndexes) > 0 {
		fmt.Fprintf(sb, "    Added indexes:\n")
		for _, idx := range mt.AddedIndexes {
			fmt.Fprintf(sb, "      - %s (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
		}
	}

	if len(mt.RemovedIndexes) > 0 {
		fmt.Fprintf(sb, "    Removed indexes:\n")
		for _, idx := range mt.RemovedIndexes {
			fmt.Fprintf(sb, "      - %s (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
		}
	}
}
