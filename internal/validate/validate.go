// Package validate performs semantic validation over a linked set of
// .poly files: every table/enum/embed gets a fully qualified name, FQNs
// must be unique, and every type reference (field types, foreign_key
// targets) must resolve to a defined name using the walk-up scoping rule
// spec.md describes: a reference is tried first qualified by the full
// current namespace, then by progressively shorter prefixes of it, and
// finally unqualified.
package validate

import (
	"fmt"
	"strings"

	"github.com/polygen/polygen/internal/ast"
)

// DefKind discriminates what a DefEntry's Def points at.
type DefKind int

const (
	DefKindTable DefKind = iota
	DefKindEnum
	DefKindEmbed
)

// DefEntry is one globally registered, fully qualified definition.
type DefEntry struct {
	FQN       string
	Kind      DefKind
	Namespace string
	File      string
	Span      ast.Span
	Table     *ast.Table
	Enum      *ast.Enum
	Embed     *ast.Embed
}

// DuplicateDefinitionError reports two definitions claiming the same FQN.
type DuplicateDefinitionError struct {
	FQN   string
	First ast.Span
	Again ast.Span
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("duplicate definition %q: first defined at %s, redefined at %s", e.FQN, e.First, e.Again)
}

// TypeNotFoundError reports a type reference that could not be resolved
// from any enclosing namespace.
type TypeNotFoundError struct {
	Path      []string
	Namespace string
	Span      ast.Span
}

func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("%s: type %q not found (searched from namespace %q outward)", e.Span, strings.Join(e.Path, "."), e.Namespace)
}

// Index is the result of a successful Validate: every definition keyed
// by FQN, ready for walk-up reference resolution.
type Index struct {
	Defs map[string]*DefEntry
}

// Resolve implements the walk-up scope rule: from namespace
// "a.b.c", a reference to "x.y" is tried as "a.b.c.x.y", "a.b.x.y",
// "a.x.y", then bare "x.y", returning the first FQN that exists.
func (idx *Index) Resolve(namespace string, path []string) (string, bool) {
	target := strings.Join(path, ".")
	prefixes := namespacePrefixes(namespace)
	for _, prefix := range prefixes {
		candidate := target
		if prefix != "" {
			candidate = prefix + "." + target
		}
		if _, ok := idx.Defs[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// namespacePrefixes returns ns, then ns with its last dotted segment
// stripped repeatedly, ending with "" (the global namespace), longest
// first — the search order the walk-up rule requires.
func namespacePrefixes(ns string) []string {
	if ns == "" {
		return []string{""}
	}
	segs := strings.Split(ns, ".")
	out := make([]string, 0, len(segs)+1)
	for i := len(segs); i >= 0; i-- {
		out = append(out, strings.Join(segs[:i], "."))
	}
	return out
}

// Validate builds the FQN registry across every linked file and checks
// that every type reference and foreign_key target resolves.
func Validate(roots []*ast.Root) (*Index, error) {
	idx := &Index{Defs: map[string]*DefEntry{}}
	for _, root := range roots {
		if err := collectDefs(idx, "", root.Defs, root.File); err != nil {
			return nil, err
		}
	}
	for _, root := range roots {
		if err := checkReferences(idx, "", root.Defs); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func register(idx *Index, fqn string, entry *DefEntry) error {
	if existing, ok := idx.Defs[fqn]; ok {
		return &DuplicateDefinitionError{FQN: fqn, First: existing.Span, Again: entry.Span}
	}
	idx.Defs[fqn] = entry
	return nil
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func collectDefs(idx *Index, namespace string, defs []ast.Definition, file string) error {
	for _, def := range defs {
		switch def.Kind {
		case ast.DefNamespace:
			childNS := qualify(namespace, def.Namespace.Name)
			if err := collectDefs(idx, childNS, def.Namespace.Defs, file); err != nil {
				return err
			}
		case ast.DefTable:
			fqn := qualify(namespace, def.Table.Name)
			if err := register(idx, fqn, &DefEntry{FQN: fqn, Kind: DefKindTable, Namespace: namespace, File: file, Span: def.Table.Span, Table: def.Table}); err != nil {
				return err
			}
			if err := collectTableMembers(idx, fqn, def.Table.Members, file); err != nil {
				return err
			}
		case ast.DefEnum:
			fqn := qualify(namespace, def.Enum.Name)
			if err := register(idx, fqn, &DefEntry{FQN: fqn, Kind: DefKindEnum, Namespace: namespace, File: file, Span: def.Enum.Span, Enum: def.Enum}); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectTableMembers registers nested enums and embeds (standalone or
// via an inline field type) as siblings of their owning table/embed,
// under that table's FQN as their namespace — mirroring the hoisting
// spec.md's IR builder performs.
func collectTableMembers(idx *Index, ownerFQN string, members []ast.TableMember, file string) error {
	for _, m := range members {
		switch m.Kind {
		case ast.MemberEnum:
			fqn := qualify(ownerFQN, m.Enum.Name)
			if err := register(idx, fqn, &DefEntry{FQN: fqn, Kind: DefKindEnum, Namespace: ownerFQN, File: file, Span: m.Enum.Span, Enum: m.Enum}); err != nil {
				return err
			}
		case ast.MemberEmbed:
			fqn := qualify(ownerFQN, m.Embed.Name)
			if err := register(idx, fqn, &DefEntry{FQN: fqn, Kind: DefKindEmbed, Namespace: ownerFQN, File: file, Span: m.Embed.Span, Embed: m.Embed}); err != nil {
				return err
			}
			if err := collectTableMembers(idx, fqn, m.Embed.Members, file); err != nil {
				return err
			}
		case ast.MemberField:
			if err := collectInlineTypes(idx, ownerFQN, m.Field, file); err != nil {
				return err
			}
		}
	}
	return nil
}

func collectInlineTypes(idx *Index, ownerFQN string, f *ast.Field, file string) error {
	switch f.Kind {
	case ast.FieldInlineEmbed:
		fqn := qualify(ownerFQN, pascalCase(f.Name))
		if err := register(idx, fqn, &DefEntry{FQN: fqn, Kind: DefKindEmbed, Namespace: ownerFQN, File: file, Span: f.InlineEmbed.Span, Embed: f.InlineEmbed}); err != nil {
			return err
		}
		return collectTableMembers(idx, fqn, f.InlineEmbed.Members, file)
	case ast.FieldInlineEnum:
		fqn := qualify(ownerFQN, pascalCase(f.Name)+"__Enum")
		return register(idx, fqn, &DefEntry{FQN: fqn, Kind: DefKindEnum, Namespace: ownerFQN, File: file, Span: f.InlineEnum.Span, Enum: f.InlineEnum})
	}
	return nil
}

func checkReferences(idx *Index, namespace string, defs []ast.Definition) error {
	for _, def := range defs {
		switch def.Kind {
		case ast.DefNamespace:
			childNS := qualify(namespace, def.Namespace.Name)
			if err := checkReferences(idx, childNS, def.Namespace.Defs); err != nil {
				return err
			}
		case ast.DefTable:
			if err := checkTableMembers(idx, qualify(namespace, def.Table.Name), def.Table.Members); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkTableMembers(idx *Index, ownerFQN string, members []ast.TableMember) error {
	for _, m := range members {
		switch m.Kind {
		case ast.MemberEmbed:
			if err := checkTableMembers(idx, qualify(ownerFQN, m.Embed.Name), m.Embed.Members); err != nil {
				return err
			}
		case ast.MemberField:
			if err := checkField(idx, ownerFQN, m.Field); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkField(idx *Index, ownerFQN string, f *ast.Field) error {
	switch f.Kind {
	case ast.FieldInlineEmbed:
		return checkTableMembers(idx, qualify(ownerFQN, pascalCase(f.Name)), f.InlineEmbed.Members)
	case ast.FieldInlineEnum:
		return nil
	case ast.FieldRegular:
		if f.Type.Base.Kind == ast.TypeNamePath {
			if _, ok := idx.Resolve(ownerFQN, f.Type.Base.Path); !ok {
				return &TypeNotFoundError{Path: f.Type.Base.Path, Namespace: ownerFQN, Span: f.Type.Span}
			}
		}
	}
	for _, c := range f.Constraints {
		if c.Kind == ast.ConstraintForeignKey {
			tablePath, _ := splitForeignKeyPath(c.RefPath)
			if _, ok := idx.Resolve(ownerFQN, tablePath); !ok {
				return &TypeNotFoundError{Path: c.RefPath, Namespace: ownerFQN, Span: c.Span}
			}
		}
	}
	return nil
}

// splitForeignKeyPath splits a foreign_key path into the dotted path to
// the target table and the field named on it: `Player.id` is table
// ["Player"], field "id"; a bare `Player` names the table alone and
// defaults to its primary key field "id".
func splitForeignKeyPath(path []string) (tablePath []string, field string) {
	if len(path) <= 1 {
		return path, "id"
	}
	return path[:len(path)-1], path[len(path)-1]
}

// pascalCase upper-cases the first letter of s, which is all spec.md
// requires here: field names are already validated identifiers
// (ASCII, no separators) by the grammar.
func pascalCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
