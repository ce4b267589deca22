// Package symboltable builds the language-server-facing index over a
// linked, validated program: every definition's location and every type
// reference's resolved target, supporting go-to-definition,
// find-references, and hover without re-running the full IR lowering.
package symboltable

import (
	"github.com/polygen/polygen/internal/ast"
	"github.com/polygen/polygen/internal/validate"
)

// DefinitionKind mirrors validate.DefKind for external (LSP) consumers
// that should not need to import the validate package directly.
type DefinitionKind int

const (
	KindTable DefinitionKind = iota
	KindEnum
	KindEmbed
)

// DefinitionInfo is one symbol's declaration site.
type DefinitionInfo struct {
	FQN      string
	Name     string
	Kind     DefinitionKind
	NameSpan ast.Span
	FilePath string
}

// TypeReference is one resolved use of a symbol: a field's type, or a
// foreign_key constraint's target.
type TypeReference struct {
	Path             []string
	Span             ast.Span
	ContextNamespace string
	ResolvedFQN      string
}

// Table is the queryable symbol index for one linked program.
type Table struct {
	Definitions map[string]*DefinitionInfo
	References  []TypeReference
}

// Build walks the same AST validate.Validate already checked, recording
// every definition site and the resolved references in table and nested
// embed members; fields declared inside an inline embed field's body are
// not walked, so references there are not recorded. It is
// only ever called after Validate has returned without error, so every
// resolution here is guaranteed to succeed.
func Build(roots []*ast.Root, idx *validate.Index) *Table {
	t := &Table{Definitions: map[string]*DefinitionInfo{}}
	for fqn, entry := range idx.Defs {
		t.Definitions[fqn] = &DefinitionInfo{
			FQN:      fqn,
			Name:     lastSegment(fqn),
			Kind:     convertKind(entry.Kind),
			NameSpan: entry.Span,
			FilePath: entry.File,
		}
	}
	for _, root := range roots {
		collectReferences(t, idx, "", root.Defs)
	}
	return t
}

// DefinitionAt returns the symbol defined at exactly fqn, if any — the
// go-to-definition query for a reference already resolved via
// TypeReference.ResolvedFQN.
func (t *Table) DefinitionAt(fqn string) (*DefinitionInfo, bool) {
	d, ok := t.Definitions[fqn]
	return d, ok
}

// ReferencesTo returns every TypeReference whose ResolvedFQN is fqn —
// the find-references query.
func (t *Table) ReferencesTo(fqn string) []TypeReference {
	var out []TypeReference
	for _, ref := range t.References {
		if ref.ResolvedFQN == fqn {
			out = append(out, ref)
		}
	}
	return out
}

func convertKind(k validate.DefKind) DefinitionKind {
	switch k {
	case validate.DefKindTable:
		return KindTable
	case validate.DefKindEnum:
		return KindEnum
	default:
		return KindEmbed
	}
}

func lastSegment(fqn string) string {
	for i := len(fqn) - 1; i >= 0; i-- {
		if fqn[i] == '.' {
			return fqn[i+1:]
		}
	}
	return fqn
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// splitForeignKeyPath mirrors internal/validate's split of a foreign_key
// path into the target table's dotted path and the field named on it.
func splitForeignKeyPath(path []string) (tablePath []string, field string) {
	if len(path) <= 1 {
		return path, "id"
	}
	return path[:len(path)-1], path[len(path)-1]
}

func collectReferences(t *Table, idx *validate.Index, namespace string, defs []ast.Definition) {
	for _, def := range defs {
		switch def.Kind {
		case ast.DefNamespace:
			collectReferences(t, idx, qualify(namespace, def.Namespace.Name), def.Namespace.Defs)
		case ast.DefTable:
			collectMemberReferences(t, idx, qualify(namespace, def.Table.Name), def.Table.Members)
		}
	}
}

func collectMemberReferences(t *Table, idx *validate.Index, ownerFQN string, members []ast.TableMember) {
	for _, m := range members {
		switch m.Kind {
		case ast.MemberEmbed:
			collectMemberReferences(t, idx, qualify(ownerFQN, m.Embed.Name), m.Embed.Members)
		case ast.MemberField:
			f := m.Field
			if f.Kind == ast.FieldRegular && f.Type.Base.Kind == ast.TypeNamePath {
				if fqn, ok := idx.Resolve(ownerFQN, f.Type.Base.Path); ok {
					t.References = append(t.References, TypeReference{
						Path: f.Type.Base.Path, Span: f.Type.Span, ContextNamespace: ownerFQN, ResolvedFQN: fqn,
					})
				}
			}
			for _, c := range f.Constraints {
				if c.Kind == ast.ConstraintForeignKey {
					tablePath, _ := splitForeignKeyPath(c.RefPath)
					if fqn, ok := idx.Resolve(ownerFQN, tablePath); ok {
						t.References = append(t.References, TypeReference{
							Path: c.RefPath, Span: c.Span, ContextNamespace: ownerFQN, ResolvedFQN: fqn,
						})
					}
				}
			}
		}
	}
}
