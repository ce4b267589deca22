// Package ast defines the abstract syntax tree produced by internal/parser
// for a single .poly source file. The shapes here follow the richer of the
// two historical schema models this project once carried (see DESIGN.md);
// the older, narrower shape has been retired.
package ast

// Span locates a node in its source file for diagnostics and for the
// language-server symbol table.
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return s.File + ":" + itoa(s.Line) + ":" + itoa(s.Column)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Metadata is the doc-comment and annotation prefix that can precede any
// definition, field, or enum value.
type Metadata struct {
	DocComment  string
	Annotations []Annotation
}

// AnnotationParam is either a bare positional literal or a named
// key=literal pair; exactly one of Name being empty distinguishes them.
type AnnotationParam struct {
	Name    string // empty for positional params
	Literal Literal
}

// Annotation is an @name(args...) decoration attached via Metadata.
type Annotation struct {
	Name   string
	Params []AnnotationParam
	Span   Span
}

// LiteralKind discriminates the value carried by a Literal.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralInt
	LiteralFloat
	LiteralBool
	LiteralIdent
)

// Literal is a constant value as written in source: a string, integer,
// float, boolean, or bare identifier (used for things like enum member
// references in annotation args).
type Literal struct {
	Kind  LiteralKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// Root is the parsed representation of one .poly file.
type Root struct {
	File    string
	Imports []Import
	Defs    []Definition
}

// Import is a `import "path";` statement.
type Import struct {
	Path string
	Span Span
}

// DefinitionKind discriminates the variant held by a Definition.
type DefinitionKind int

const (
	DefNamespace DefinitionKind = iota
	DefTable
	DefEnum
)

// Definition is a top-level or nested declaration: a namespace, a table,
// or a standalone enum. Exactly one of Namespace/Table/Enum is populated,
// selected by Kind.
type Definition struct {
	Kind      DefinitionKind
	Metadata  Metadata
	Namespace *NamespaceDef
	Table     *Table
	Enum      *Enum
}

// NamespaceDef groups nested definitions under a dotted name.
type NamespaceDef struct {
	Name string
	Defs []Definition
	Span Span
}

// Table is a `table Name { ... }` definition.
type Table struct {
	Name    string
	Members []TableMember
	Span    Span
}

// TableMemberKind discriminates the variant held by a TableMember.
type TableMemberKind int

const (
	MemberField TableMemberKind = iota
	MemberEmbed
	MemberEnum
)

// TableMember is one line inside a table body: a field, an embedded
// struct, or a nested enum.
type TableMember struct {
	Kind     TableMemberKind
	Metadata Metadata
	Field    *Field
	Embed    *Embed
	Enum     *Enum
}

// FieldKind distinguishes a plain field from one whose type is defined
// inline (an anonymous embed or an anonymous enum).
type FieldKind int

const (
	FieldRegular FieldKind = iota
	FieldInlineEmbed
	FieldInlineEnum
)

// Field is a named, typed table or embed member.
type Field struct {
	Kind        FieldKind
	Name        string
	Type        *TypeWithCardinality // set when Kind == FieldRegular
	InlineEmbed *Embed               // set when Kind == FieldInlineEmbed
	InlineEnum  *Enum                // set when Kind == FieldInlineEnum
	Constraints []Constraint
	FieldNumber *int64 // set by `= N` suffix, nil if absent
	Span        Span
}

// Embed is an `embed Name { ... }` definition, usable standalone or
// inline as a field's type.
type Embed struct {
	Name    string
	Members []TableMember
	Span    Span
}

// Enum is an `enum Name { ... }` definition, usable standalone, nested
// inside a table, or inline as a field's type.
type Enum struct {
	Name   string
	Values []EnumValue
	Span   Span
}

// EnumValue is one member of an enum, with an optional explicit `= N`.
type EnumValue struct {
	Metadata Metadata
	Name     string
	Value    *int64 // nil unless an explicit value was written
	Span     Span
}

// BasicType enumerates the built-in primitive type keywords: the closed
// set {string, bool, bytes, timestamp, i8/i16/i32/i64, u8/u16/u32/u64,
// f32/f64}. Nothing outside this set is a primitive; everything else
// must resolve as a dotted-path reference to a table or enum.
type BasicType int

const (
	TypeString BasicType = iota
	TypeBool
	TypeBytes
	TypeTimestamp
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeF32
	TypeF64
)

var basicTypeNames = map[string]BasicType{
	"string":    TypeString,
	"bool":      TypeBool,
	"bytes":     TypeBytes,
	"timestamp": TypeTimestamp,
	"i8":        TypeI8,
	"i16":       TypeI16,
	"i32":       TypeI32,
	"i64":       TypeI64,
	"u8":        TypeU8,
	"u16":       TypeU16,
	"u32":       TypeU32,
	"u64":       TypeU64,
	"f32":       TypeF32,
	"f64":       TypeF64,
}

// LookupBasicType resolves a primitive type keyword, reporting ok=false
// for anything that must instead be resolved as a named reference.
func LookupBasicType(name string) (BasicType, bool) {
	bt, ok := basicTypeNames[name]
	return bt, ok
}

func (b BasicType) String() string {
	for name, v := range basicTypeNames {
		if v == b {
			return name
		}
	}
	return "unknown"
}

// Cardinality describes how a base type is wrapped.
type Cardinality int

const (
	CardinalitySingle Cardinality = iota
	CardinalityOptional            // `Type?`
	CardinalityList                 // `Type[]`
)

// TypeNameKind discriminates the variant held by a TypeName.
type TypeNameKind int

const (
	TypeNameBasic TypeNameKind = iota
	TypeNamePath               // reference to a table/enum/embed by dotted path
	TypeNameInlineEnum         // `enum { ... }` written directly as a field type
)

// TypeName is the unwrapped base type referenced by a TypeWithCardinality.
type TypeName struct {
	Kind       TypeNameKind
	Basic      BasicType
	Path       []string // dotted path segments, set when Kind == TypeNamePath
	InlineEnum *Enum    // set when Kind == TypeNameInlineEnum
}

// TypeWithCardinality is a field's full type: a base TypeName plus
// optional/list wrapping.
type TypeWithCardinality struct {
	Base        TypeName
	Cardinality Cardinality
	Span        Span
}

// ConstraintKind discriminates the variant held by a Constraint. The ten
// kinds mirror spec.md's constraint sum exactly: primary_key, unique,
// index, max_length, default, range, regex, foreign_key, auto_create,
// auto_update.
type ConstraintKind int

const (
	ConstraintPrimaryKey ConstraintKind = iota
	ConstraintUnique
	ConstraintIndex
	ConstraintMaxLength
	ConstraintDefault
	ConstraintRange
	ConstraintRegex
	ConstraintForeignKey
	ConstraintAutoCreate
	ConstraintAutoUpdate
)

// TimezoneKind discriminates the variant held by a Timezone.
type TimezoneKind int

const (
	TimezoneUtc TimezoneKind = iota
	TimezoneLocal
	TimezoneOffset // `Offset(h, m)`
	TimezoneNamed  // `Named("...")`
)

func (k TimezoneKind) String() string {
	switch k {
	case TimezoneUtc:
		return "Utc"
	case TimezoneLocal:
		return "Local"
	case TimezoneOffset:
		return "Offset"
	case TimezoneNamed:
		return "Named"
	default:
		return "unknown"
	}
}

// Timezone is the argument to auto_create/auto_update: `{Utc | Local |
// Offset(±h, m) | Named("…")}`.
type Timezone struct {
	Kind          TimezoneKind
	OffsetHours   int64  // TimezoneOffset
	OffsetMinutes int64  // TimezoneOffset
	Name          string // TimezoneNamed
}

// Constraint is one field-level constraint clause.
type Constraint struct {
	Kind ConstraintKind

	MaxLength int64      // ConstraintMaxLength
	Default   Literal    // ConstraintDefault
	RangeMin  *Literal   // ConstraintRange
	RangeMax  *Literal   // ConstraintRange
	Regex     string     // ConstraintRegex
	RefPath   []string   // ConstraintForeignKey: dotted path to the referenced table
	Alias     string     // ConstraintForeignKey: optional `as <alias>`
	Timezone  *Timezone  // ConstraintAutoCreate / ConstraintAutoUpdate: optional argument

	Span Span
}
