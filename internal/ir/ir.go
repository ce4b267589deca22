// Package ir defines the intermediate representation the template
// renderer and schema migrator both consume: a flattened, fully
// qualified view of a linked and validated .poly program.
//
// The shapes mirror original_source/src/ir_builder.rs's richer IR
// (FileDef / NamespaceItem / StructItem / EnumItem / TypeRef), extended
// with the relation/index/foreign-key materialization spec.md describes
// that the Rust snapshot in this pack had not yet grown.
package ir

// SchemaContext is the root of the IR: every file that took part in the
// link, in link order.
type SchemaContext struct {
	Files []FileDef
}

// FileDef is one source file's contribution to the IR: its top-level
// namespace items, in declaration order. A synthetic namespace named ""
// is always inserted first to hold file-level (non-namespaced)
// definitions, per spec.md's namespace-hoisting rule.
type FileDef struct {
	SourcePath string
	Namespaces []NamespaceItem
}

// NamespaceItem is one namespace's flattened contents.
type NamespaceItem struct {
	Name   string // "" for the synthetic global namespace
	FQN    string
	Items  []Item
}

// ItemKind discriminates the variant held by an Item.
type ItemKind int

const (
	ItemStruct ItemKind = iota
	ItemEnum
	ItemComment
	ItemAnnotation
)

// Item is one member of a namespace's flattened item list.
type Item struct {
	Kind       ItemKind
	Struct     *StructItem
	Enum       *EnumItem
	Comment    string
	Annotation *AnnotationItem
}

// AnnotationItem is a namespace- or file-level annotation carried into
// the IR for template access (e.g. a generator directive attached above
// a table rather than inside it).
type AnnotationItem struct {
	Name   string
	Params []AnnotationParam
}

// AnnotationParam mirrors ast.AnnotationParam but with literals resolved
// to plain Go values for direct template consumption.
type AnnotationParam struct {
	Name    string
	IsNamed bool
	Value   any
}

// StructItem is a materialized table, flattened to its final field list.
// Inline embed/enum fields refer to their type by FQN; no separate
// StructItem or EnumItem is emitted for those inline types.
type StructItem struct {
	Name        string // PascalCase identifier used by templates
	FQN         string
	DocComment  string
	Annotations []AnnotationItem
	Fields      []FieldDef
	Indexes     []IndexDef
	// Relations holds the reciprocal side of every foreign_key field that
	// targets this struct from elsewhere in the schema (spec.md's relation
	// materialization: the owning field gets the ForeignKeyDef, the
	// target struct gets the RelationDef).
	Relations []RelationDef
	IsEmbed   bool
}

// FieldDef is one field of a StructItem.
type FieldDef struct {
	Name        string
	DocComment  string
	Annotations []AnnotationItem
	Type        TypeRef
	Attributes  []string // e.g. "Key", "Index(IsUnique = true)", "MaxLength(64)"
	ForeignKey  *ForeignKeyDef
	AutoCreate  *TimezoneDef
	AutoUpdate  *TimezoneDef
	FieldNumber *int64
}

// TimezoneDef is the resolved argument of an auto_create/auto_update
// constraint: `{Utc | Local | Offset(±h, m) | Named("…")}`.
type TimezoneDef struct {
	Kind          string // "Utc", "Local", "Offset", or "Named"
	OffsetHours   int64  // set when Kind == "Offset"
	OffsetMinutes int64  // set when Kind == "Offset"
	Name          string // set when Kind == "Named"
}

// TypeRef is a field's resolved type: either a primitive keyword or an
// FQN reference to another StructItem/EnumItem, optionally wrapped in
// Option<T> / List<T>.
type TypeRef struct {
	IsPrimitive bool
	Primitive   string // set when IsPrimitive
	FQN         string // set when !IsPrimitive: fully qualified target name
	IsOption    bool
	IsList      bool
	Inner       *TypeRef // set when IsOption || IsList
}

// EnumItem is a materialized enum with its values assigned deterministic
// integer tags per spec.md's enum-numbering rule (original_source's
// ir_builder.rs convert_enum_to_enum_def: counter starts at 0, an
// explicit `= N` resets the counter, otherwise the running counter is
// used and then post-incremented).
type EnumItem struct {
	Name       string
	FQN        string
	DocComment string
	Values     []EnumValueDef
}

// EnumValueDef is one member of an EnumItem with its resolved tag.
type EnumValueDef struct {
	Name       string
	Value      int64
	DocComment string
}

// RelationDef is the reciprocal side of a foreign_key field, attached to
// the *target* struct (never the owning one) per spec.md's materialization
// rule: name = alias, or else the owning table's simple name lowercased
// plus "s" — always expressed via FQN/name strings, never back-pointers,
// so the IR stays acyclic to walk.
type RelationDef struct {
	Name            string
	SourceTableFQN  string
	SourceTableName string
	SourceField     string
}

// ForeignKeyDef records the constraint-level detail of a `foreign_key(...)`
// field constraint, attached to the owning field.
type ForeignKeyDef struct {
	TargetTableFQN string
	TargetField    string
	Alias          string
}

// IndexField is one column of an IndexDef, carrying the resolved type of
// the field it names.
type IndexField struct {
	Name string
	Type TypeRef
}

// IndexDef is a table-level index, materialized either from a
// field-level primary_key/unique/index constraint (Source == "field") or
// from a table-level index(...)/unique_index(...) annotation naming
// several fields (Source == "table").
type IndexDef struct {
	Name     string
	Fields   []IndexField
	IsUnique bool
	Source   string // "field" or "table"
}
