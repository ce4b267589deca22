package migrate

import (
	"strings"

	"github.com/polygen/polygen/internal/ir"
	"github.com/polygen/polygen/internal/introspect"
)

// sqlTypeMap gives the ANSI-ish column type migrate emits for each
// .poly primitive when no richer per-dialect mapping is configured.
// spec.md's migrator targets MySQL and SQLite, both of which accept
// these type names directly.
var sqlTypeMap = map[string]string{
	"string":    "TEXT",
	"bool":      "BOOLEAN",
	"bytes":     "BLOB",
	"timestamp": "DATETIME",
	"i8":        "TINYINT",
	"i16":       "SMALLINT",
	"i32":       "INT",
	"i64":       "BIGINT",
	"u8":        "TINYINT UNSIGNED",
	"u16":       "SMALLINT UNSIGNED",
	"u32":       "INT UNSIGNED",
	"u64":       "BIGINT UNSIGNED",
	"f32":       "FLOAT",
	"f64":       "DOUBLE",
}

// ExpectedSchema lowers an IR schema context into the DbSchema shape the
// migrator diffs against an introspected (or baseline) database: one
// table per non-embed struct, skipping embeds (which a template renders
// inline into their owning struct rather than as their own database
// table) and enums (which have no table of their own — an enum-typed
// field's column carries the enum's underlying integer tag).
func ExpectedSchema(ctx *ir.SchemaContext) *introspect.DbSchema {
	schema := &introspect.DbSchema{Tables: map[string]*introspect.DbTable{}}
	for _, file := range ctx.Files {
		for _, ns := range file.Namespaces {
			for _, item := range ns.Items {
				if item.Kind != ir.ItemStruct || item.Struct.IsEmbed {
					continue
				}
				schema.Tables[tableName(item.Struct)] = structToTable(item.Struct)
			}
		}
	}
	return schema
}

func tableName(s *ir.StructItem) string {
	return strings.ToLower(strings.ReplaceAll(s.FQN, ".", "_"))
}

func structToTable(s *ir.StructItem) *introspect.DbTable {
	t := &introspect.DbTable{Name: tableName(s)}
	for _, f := range s.Fields {
		col := introspect.DbColumn{
			Name:       strings.ToLower(f.Name),
			DBType:     columnType(f.Type),
			IsNullable: f.Type.IsOption,
		}
		for _, attr := range f.Attributes {
			if attr == "Key" {
				col.IsPrimaryKey = true
				t.PrimaryKeys = append(t.PrimaryKeys, col.Name)
			}
		}
		t.Columns = append(t.Columns, col)
	}
	for _, idx := range s.Indexes {
		cols := make([]string, len(idx.Fields))
		for i, f := range idx.Fields {
			cols[i] = strings.ToLower(f.Name)
		}
		t.Indexes = append(t.Indexes, introspect.DbIndex{Name: indexName(t.Name, cols), Columns: cols, IsUnique: idx.IsUnique})
	}
	return t
}

func indexName(table string, cols []string) string {
	return "idx_" + table + "_" + strings.Join(cols, "_")
}

func columnType(t ir.TypeRef) string {
	switch {
	case t.IsOption || t.IsList:
		return columnType(*t.Inner)
	case t.IsPrimitive:
		if sqlType, ok := sqlTypeMap[t.Primitive]; ok {
			return sqlType
		}
		return "TEXT"
	default:
		// A reference to another struct's primary key (a relation field)
		// is stored as that struct's key type; lacking a PK-type lookup
		// here, BIGINT is the common case spec.md's examples use for
		// surrogate keys.
		return "BIGINT"
	}
}
