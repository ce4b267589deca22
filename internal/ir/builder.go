package ir

import (
	"fmt"
	"strings"

	"github.com/polygen/polygen/internal/ast"
	"github.com/polygen/polygen/internal/validate"
)

// Build lowers a linked, validated set of files into the IR, using idx
// (the validator's FQN registry) to resolve every type reference.
// Grounded on original_source/src/ir_builder.rs's build_ir: a synthetic
// global namespace ("") is always inserted first in each file, and
// structs and enums are emitted in source order. An inline embed or enum
// field is not left anonymous: its TypeRef names `<Owner>.<Field>` or
// `<Owner>.<Field>__Enum`, the FQN the validator registers for it. The
// inline type's own body is not emitted as a StructItem or EnumItem, and
// neither are nested embed or enum members of a table.
//
// Relation materialization (spec.md §4.4) happens in a second pass once
// every struct in every file has been built: a foreign_key field can
// target a struct declared later in the same file or in a different
// file entirely, so the reciprocal RelationDef can only be attached
// after the whole program has been lowered once.
func Build(roots []*ast.Root, idx *validate.Index) (*SchemaContext, error) {
	b := &builder{idx: idx}
	ctx := &SchemaContext{}
	for _, root := range roots {
		global := &NamespaceItem{Name: "", FQN: ""}
		all := []*NamespaceItem{global}
		if err := b.populateItemsRecursively(global, "", root.Defs, &all); err != nil {
			return nil, err
		}
		namespaces := make([]NamespaceItem, len(all))
		for i, n := range all {
			namespaces[i] = *n
		}
		ctx.Files = append(ctx.Files, FileDef{SourcePath: root.File, Namespaces: namespaces})
	}
	b.materializeRelations(ctx)
	return ctx, nil
}

// builder carries the validator's FQN registry plus the foreign_key
// fields discovered during the first pass, queued for relation
// materialization once every struct exists.
type builder struct {
	idx     *validate.Index
	pending []pendingRelation
}

// pendingRelation is one foreign_key field waiting for its target
// struct to gain the reciprocal RelationDef.
type pendingRelation struct {
	sourceTableFQN  string
	sourceTableName string
	sourceField     string
	targetFQN       string
	alias           string
}

// materializeRelations implements spec.md §4.4's relation rule: every
// foreign_key(target, alias?) field on struct A produces exactly one
// ForeignKeyDef on A (already attached in convertField) and exactly one
// RelationDef on the target struct, named alias ∨ lowercase(A) + "s".
func (b *builder) materializeRelations(ctx *SchemaContext) {
	byFQN := map[string]*StructItem{}
	for fi := range ctx.Files {
		for ni := range ctx.Files[fi].Namespaces {
			for ii := range ctx.Files[fi].Namespaces[ni].Items {
				item := &ctx.Files[fi].Namespaces[ni].Items[ii]
				if item.Kind == ItemStruct {
					byFQN[item.Struct.FQN] = item.Struct
				}
			}
		}
	}
	for _, p := range b.pending {
		target, ok := byFQN[p.targetFQN]
		if !ok {
			continue
		}
		name := p.alias
		if name == "" {
			name = strings.ToLower(p.sourceTableName) + "s"
		}
		target.Relations = append(target.Relations, RelationDef{
			Name:            name,
			SourceTableFQN:  p.sourceTableFQN,
			SourceTableName: p.sourceTableName,
			SourceField:     p.sourceField,
		})
	}
}

// populateItemsRecursively fills ns with its own structs/enums/annotations
// in document order, and for every nested `namespace { ... }` definition
// it encounters, appends a new NamespaceItem to *all (so every file ends
// up with a flat, ordered list of namespaces: the synthetic global one
// first, then each nested namespace in the order its header was seen)
// and recurses into it. This mirrors
// original_source/src/ir_builder.rs's populate_items_recursively /
// add_definition_to_items pair, collapsed into one pass since Go's
// explicit error returns make a two-function split unnecessary here.
func (b *builder) populateItemsRecursively(ns *NamespaceItem, namespace string, defs []ast.Definition, all *[]*NamespaceItem) error {
	for _, def := range defs {
		switch def.Kind {
		case ast.DefNamespace:
			child := &NamespaceItem{Name: def.Namespace.Name, FQN: qualify(namespace, def.Namespace.Name)}
			*all = append(*all, child)
			if err := b.populateItemsRecursively(child, child.FQN, def.Namespace.Defs, all); err != nil {
				return err
			}
		case ast.DefTable:
			s, err := b.convertTable(def.Table, def.Metadata, namespace)
			if err != nil {
				return err
			}
			ns.Items = append(ns.Items, Item{Kind: ItemStruct, Struct: s})
		case ast.DefEnum:
			e := convertEnum(def.Enum, qualify(namespace, def.Enum.Name))
			ns.Items = append(ns.Items, Item{Kind: ItemEnum, Enum: e})
		}
		for _, ann := range def.Metadata.Annotations {
			ns.Items = append(ns.Items, Item{Kind: ItemAnnotation, Annotation: convertAnnotation(ann)})
		}
	}
	return nil
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func (b *builder) convertTable(t *ast.Table, md ast.Metadata, namespace string) (*StructItem, error) {
	fqn := qualify(namespace, t.Name)
	s := &StructItem{Name: t.Name, FQN: fqn, DocComment: md.DocComment}
	for _, m := range t.Members {
		if err := b.convertMember(s, fqn, m); err != nil {
			return nil, err
		}
	}
	for _, ann := range md.Annotations {
		switch ann.Name {
		case "index", "unique_index":
			idxDef, err := compositeIndexFromAnnotation(s, ann)
			if err != nil {
				return nil, err
			}
			s.Indexes = append(s.Indexes, *idxDef)
		default:
			s.Annotations = append(s.Annotations, *convertAnnotation(ann))
		}
	}
	return s, nil
}

// compositeIndexFromAnnotation materializes a table-level index(a, b) or
// unique_index(a, b) annotation into an IndexDef{Source: "table"},
// resolving each named field against the fields already converted onto s
// (spec.md §4.4: "resolved in the enclosing scope").
func compositeIndexFromAnnotation(s *StructItem, ann ast.Annotation) (*IndexDef, error) {
	fieldsByName := make(map[string]*FieldDef, len(s.Fields))
	for i := range s.Fields {
		fieldsByName[s.Fields[i].Name] = &s.Fields[i]
	}

	var names []string
	var fields []IndexField
	for _, param := range ann.Params {
		name := param.Literal.Str
		fd, ok := fieldsByName[name]
		if !ok {
			return nil, fmt.Errorf("ir: %s annotation on %s references unknown field %q", ann.Name, s.FQN, name)
		}
		names = append(names, name)
		fields = append(fields, IndexField{Name: name, Type: fd.Type})
	}

	return &IndexDef{
		Name:     s.Name + "_" + strings.Join(names, "_"),
		Fields:   fields,
		IsUnique: ann.Name == "unique_index",
		Source:   "table",
	}, nil
}

func (b *builder) convertMember(s *StructItem, ownerFQN string, m ast.TableMember) error {
	switch m.Kind {
	case ast.MemberField:
		fd, err := b.convertField(s.Name, ownerFQN, m.Field)
		if err != nil {
			return err
		}
		fd.DocComment = m.Metadata.DocComment
		for _, ann := range m.Metadata.Annotations {
			fd.Annotations = append(fd.Annotations, *convertAnnotation(ann))
		}
		s.Fields = append(s.Fields, *fd)
		if idxDef := indexFromField(s.Name, &s.Fields[len(s.Fields)-1]); idxDef != nil {
			s.Indexes = append(s.Indexes, *idxDef)
		}
	case ast.MemberEmbed:
		// A standalone embed used as a table member is registered by the
		// validator under the owner's FQN; here its body is converted
		// only for its errors and foreign_key relations. It is not
		// emitted as an item and adds nothing to the owning struct's
		// field list.
		if _, err := b.convertTable(&ast.Table{Name: m.Embed.Name, Members: m.Embed.Members, Span: m.Embed.Span}, m.Metadata, ownerFQN); err != nil {
			return err
		}
	case ast.MemberEnum:
		// A nested enum member is registered by the validator only; no
		// EnumItem is emitted for it and the struct's own field list is
		// untouched by it.
	}
	return nil
}

func (b *builder) convertField(ownerName, ownerFQN string, f *ast.Field) (*FieldDef, error) {
	fd := &FieldDef{Name: f.Name, FieldNumber: f.FieldNumber}

	switch f.Kind {
	case ast.FieldInlineEmbed:
		embedFQN := qualify(ownerFQN, pascalCase(f.Name))
		if _, err := b.convertTable(&ast.Table{Name: pascalCase(f.Name), Members: f.InlineEmbed.Members, Span: f.InlineEmbed.Span}, ast.Metadata{}, ownerFQN); err != nil {
			return nil, err
		}
		fd.Type = TypeRef{FQN: embedFQN}
	case ast.FieldInlineEnum:
		enumFQN := qualify(ownerFQN, pascalCase(f.Name)+"__Enum")
		fd.Type = TypeRef{FQN: enumFQN}
	default:
		tr, err := buildTypeRef(ownerFQN, f.Type, b.idx)
		if err != nil {
			return nil, err
		}
		fd.Type = *tr
	}

	for _, c := range f.Constraints {
		switch c.Kind {
		case ast.ConstraintPrimaryKey:
			fd.Attributes = append(fd.Attributes, "Key")
		case ast.ConstraintUnique:
			fd.Attributes = append(fd.Attributes, "Index(IsUnique = true)")
		case ast.ConstraintIndex:
			fd.Attributes = append(fd.Attributes, "Index")
		case ast.ConstraintMaxLength:
			fd.Attributes = append(fd.Attributes, fmt.Sprintf("MaxLength(%d)", c.MaxLength))
		case ast.ConstraintForeignKey:
			tablePath, targetField := splitForeignKeyPath(c.RefPath)
			targetFQN, ok := b.idx.Resolve(ownerFQN, tablePath)
			if !ok {
				return nil, fmt.Errorf("ir: unresolved foreign_key target %q from %s", strings.Join(c.RefPath, "."), ownerFQN)
			}
			fd.ForeignKey = &ForeignKeyDef{
				TargetTableFQN: targetFQN,
				TargetField:    targetField,
				Alias:          c.Alias,
			}
			b.pending = append(b.pending, pendingRelation{
				sourceTableFQN:  ownerFQN,
				sourceTableName: ownerName,
				sourceField:     f.Name,
				targetFQN:       targetFQN,
				alias:           c.Alias,
			})
		case ast.ConstraintAutoCreate:
			fd.AutoCreate = convertTimezone(c.Timezone)
		case ast.ConstraintAutoUpdate:
			fd.AutoUpdate = convertTimezone(c.Timezone)
		}
	}
	return fd, nil
}

// splitForeignKeyPath mirrors internal/validate's split of the same
// name: the last path segment is the target field, everything before it
// is the dotted path to the target table; a bare single-segment path
// names the table alone and defaults to its primary key field "id".
func splitForeignKeyPath(path []string) (tablePath []string, field string) {
	if len(path) <= 1 {
		return path, "id"
	}
	return path[:len(path)-1], path[len(path)-1]
}

func convertTimezone(tz *ast.Timezone) *TimezoneDef {
	if tz == nil {
		return &TimezoneDef{Kind: "Utc"}
	}
	return &TimezoneDef{
		Kind:          tz.Kind.String(),
		OffsetHours:   tz.OffsetHours,
		OffsetMinutes: tz.OffsetMinutes,
		Name:          tz.Name,
	}
}

// indexFromField materializes the per-field IndexDef that a primary_key,
// unique, or index constraint produces (spec.md §4.4, concrete scenario
// 1: `id: u32 primary_key` on table Player yields
// IndexDef{Name: "Player_id", IsUnique: true, Source: "field"}).
func indexFromField(structName string, fd *FieldDef) *IndexDef {
	name := structName + "_" + fd.Name
	field := IndexField{Name: fd.Name, Type: fd.Type}
	for _, attr := range fd.Attributes {
		switch attr {
		case "Key", "Index(IsUnique = true)":
			return &IndexDef{Name: name, Fields: []IndexField{field}, IsUnique: true, Source: "field"}
		case "Index":
			return &IndexDef{Name: name, Fields: []IndexField{field}, IsUnique: false, Source: "field"}
		}
	}
	return nil
}

func buildTypeRef(ownerFQN string, t *ast.TypeWithCardinality, idx *validate.Index) (*TypeRef, error) {
	base, err := buildBaseTypeRef(ownerFQN, &t.Base, idx)
	if err != nil {
		return nil, err
	}
	switch t.Cardinality {
	case ast.CardinalityOptional:
		return &TypeRef{IsOption: true, Inner: base}, nil
	case ast.CardinalityList:
		return &TypeRef{IsList: true, Inner: base}, nil
	default:
		return base, nil
	}
}

func buildBaseTypeRef(ownerFQN string, t *ast.TypeName, idx *validate.Index) (*TypeRef, error) {
	switch t.Kind {
	case ast.TypeNameBasic:
		return &TypeRef{IsPrimitive: true, Primitive: t.Basic.String()}, nil
	case ast.TypeNamePath:
		fqn, ok := idx.Resolve(ownerFQN, t.Path)
		if !ok {
			return nil, fmt.Errorf("ir: unresolved type reference %q from %s", strings.Join(t.Path, "."), ownerFQN)
		}
		return &TypeRef{FQN: fqn}, nil
	default:
		return nil, fmt.Errorf("ir: unexpected inline type in reference position at %s", ownerFQN)
	}
}

// convertEnum assigns deterministic integer tags: the counter starts at
// 0, an explicit `= N` resets it, and every value (explicit or not) is
// followed by a post-increment, so [A, B=5, C, D=2, E] yields
// [0, 5, 6, 2, 3] — exactly original_source/src/ir_builder.rs's rule.
func convertEnum(e *ast.Enum, fqn string) *EnumItem {
	ei := &EnumItem{Name: e.Name, FQN: fqn}
	var current int64
	for _, v := range e.Values {
		if v.Value != nil {
			current = *v.Value
		}
		ei.Values = append(ei.Values, EnumValueDef{Name: v.Name, Value: current, DocComment: v.Metadata.DocComment})
		current++
	}
	return ei
}

func convertAnnotation(a ast.Annotation) *AnnotationItem {
	ai := &AnnotationItem{Name: a.Name}
	for _, p := range a.Params {
		ai.Params = append(ai.Params, AnnotationParam{Name: p.Name, IsNamed: p.Name != "", Value: literalValue(p.Literal)})
	}
	return ai
}

func literalValue(l ast.Literal) any {
	switch l.Kind {
	case ast.LiteralString, ast.LiteralIdent:
		return l.Str
	case ast.LiteralInt:
		return l.Int
	case ast.LiteralFloat:
		return l.Float
	case ast.LiteralBool:
		return l.Bool
	default:
		return nil
	}
}

func pascalCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
