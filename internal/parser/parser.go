// Package parser builds an internal/ast.Root from .poly source text.
//
// Tokenization is delegated to internal/lexer (a participle lexer.Definition
// instance). The grammar itself — namespaces, tables, embeds, enums,
// fields, constraints, annotations — is walked by hand: a small
// recursive-descent reader over the token slice, in the same
// switch-over-token-kind, explicit-error-return style
// internal/migrate/baseline/mysql (the schema-migration sibling package)
// uses to convert a tidb AST into the domain model. Grammatical failures become
// *ParseError; failures building a node from an otherwise valid token
// sequence become *AstBuildError.
package parser

import (
	"io"
	"strconv"
	"strings"

	"github.com/polygen/polygen/internal/ast"
	"github.com/polygen/polygen/internal/lexer"
)

// Parse reads and parses a single .poly file from r, attributing
// diagnostics to filename.
func Parse(filename string, r io.Reader) (*ast.Root, error) {
	toks, err := lexer.Tokenize(filename, r)
	if err != nil {
		return nil, &ParseError{File: filename, Wanted: "valid token", Got: err.Error()}
	}
	p := &parser{file: filename, toks: toks}
	return p.parseRoot()
}

// ParseString is a convenience wrapper over Parse for in-memory source,
// used heavily by tests.
func ParseString(filename, src string) (*ast.Root, error) {
	return Parse(filename, strings.NewReader(src))
}

type parser struct {
	file string
	toks []lexer.Token
	pos  int
}

func (p *parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) span() ast.Span {
	t := p.cur()
	return ast.Span{File: p.file, Line: t.Pos.Line, Column: t.Pos.Column}
}

func (p *parser) atEOF() bool {
	return p.cur().Type == lexer.KindEOF
}

func (p *parser) atPunct(v string) bool {
	t := p.cur()
	return t.Type == lexer.KindPunct && t.Value == v
}

func (p *parser) atIdentValue(v string) bool {
	t := p.cur()
	return t.Type == lexer.KindIdent && t.Value == v
}

func (p *parser) atIdent() bool {
	return p.cur().Type == lexer.KindIdent
}

func (p *parser) parseErr(wanted string) error {
	t := p.cur()
	got := t.Value
	if got == "" {
		got = t.Type
	}
	return &ParseError{File: p.file, Line: t.Pos.Line, Column: t.Pos.Column, Wanted: wanted, Got: got}
}

func (p *parser) buildErr(kind AstBuildErrorKind, detail string) error {
	t := p.cur()
	return &AstBuildError{Kind: kind, File: p.file, Line: t.Pos.Line, Column: t.Pos.Column, Detail: detail}
}

func (p *parser) expectPunct(v string) (lexer.Token, error) {
	if !p.atPunct(v) {
		return lexer.Token{}, p.parseErr("'" + v + "'")
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(word string) (lexer.Token, error) {
	if !p.atIdentValue(word) {
		return lexer.Token{}, p.parseErr("'" + word + "'")
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (lexer.Token, error) {
	if p.cur().Type != lexer.KindIdent {
		return lexer.Token{}, p.parseErr("identifier")
	}
	if lexer.IsKeyword(p.cur().Value) {
		return lexer.Token{}, p.parseErr("identifier (not reserved word '" + p.cur().Value + "')")
	}
	return p.advance(), nil
}

// parseRoot consumes the whole token stream: imports first, then an
// arbitrary mix of namespace/table/enum definitions, matching spec.md's
// file-level grammar (imports are lexically required to precede
// definitions).
func (p *parser) parseRoot() (*ast.Root, error) {
	root := &ast.Root{File: p.file}
	for p.atIdentValue("import") {
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		root.Imports = append(root.Imports, *imp)
	}
	for !p.atEOF() {
		def, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}
		root.Defs = append(root.Defs, *def)
	}
	return root, nil
}

func (p *parser) parseImport() (*ast.Import, error) {
	sp := p.span()
	if _, err := p.expectKeyword("import"); err != nil {
		return nil, err
	}
	if p.cur().Type != lexer.KindString {
		return nil, p.parseErr("string literal")
	}
	pathTok := p.advance()
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.Import{Path: unquote(pathTok.Value), Span: sp}, nil
}

// parseMetadata collects the interleaved run of doc comments and
// annotations that may precede any definition, field, or enum value. Doc
// comment lines are joined with "\n" in source order.
func (p *parser) parseMetadata() (ast.Metadata, error) {
	var md ast.Metadata
	var doc []string
	for {
		switch {
		case p.cur().Type == lexer.KindDocComment:
			line := strings.TrimPrefix(p.cur().Value, "///")
			doc = append(doc, strings.TrimSpace(line))
			p.advance()
		case p.atPunct("@"):
			ann, err := p.parseAnnotation()
			if err != nil {
				return md, err
			}
			md.Annotations = append(md.Annotations, *ann)
		default:
			md.DocComment = strings.Join(doc, "\n")
			return md, nil
		}
	}
}

func (p *parser) parseAnnotation() (*ast.Annotation, error) {
	sp := p.span()
	if _, err := p.expectPunct("@"); err != nil {
		return nil, err
	}
	// Annotation names share no namespace with field/type identifiers, so
	// reserved constraint words like "index" remain valid here.
	if p.cur().Type != lexer.KindIdent {
		return nil, p.parseErr("identifier")
	}
	nameTok := p.advance()
	ann := &ast.Annotation{Name: nameTok.Value, Span: sp}
	if p.atPunct("(") {
		p.advance()
		for !p.atPunct(")") {
			param, err := p.parseAnnotationParam()
			if err != nil {
				return nil, err
			}
			ann.Params = append(ann.Params, *param)
			if p.atPunct(",") {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	return ann, nil
}

func (p *parser) parseAnnotationParam() (*ast.AnnotationParam, error) {
	// named form: IDENT "=" literal
	if p.atIdent() && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Type == lexer.KindPunct && p.toks[p.pos+1].Value == "=" {
		name := p.advance().Value
		p.advance() // "="
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.AnnotationParam{Name: name, Literal: *lit}, nil
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &ast.AnnotationParam{Literal: *lit}, nil
}

func (p *parser) parseLiteral() (*ast.Literal, error) {
	t := p.cur()
	switch t.Type {
	case lexer.KindString:
		p.advance()
		return &ast.Literal{Kind: ast.LiteralString, Str: unquote(t.Value)}, nil
	case lexer.KindInt:
		p.advance()
		n, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, p.buildErr(InvalidValue, "bad integer literal "+t.Value)
		}
		return &ast.Literal{Kind: ast.LiteralInt, Int: n}, nil
	case lexer.KindFloat:
		p.advance()
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, p.buildErr(InvalidValue, "bad float literal "+t.Value)
		}
		return &ast.Literal{Kind: ast.LiteralFloat, Float: f}, nil
	case lexer.KindIdent:
		switch t.Value {
		case "true":
			p.advance()
			return &ast.Literal{Kind: ast.LiteralBool, Bool: true}, nil
		case "false":
			p.advance()
			return &ast.Literal{Kind: ast.LiteralBool, Bool: false}, nil
		default:
			p.advance()
			return &ast.Literal{Kind: ast.LiteralIdent, Str: t.Value}, nil
		}
	default:
		return nil, p.parseErr("literal")
	}
}

func (p *parser) parseDefinition() (*ast.Definition, error) {
	md, err := p.parseMetadata()
	if err != nil {
		return nil, err
	}
	switch {
	case p.atIdentValue("namespace"):
		ns, err := p.parseNamespace()
		if err != nil {
			return nil, err
		}
		return &ast.Definition{Kind: ast.DefNamespace, Metadata: md, Namespace: ns}, nil
	case p.atIdentValue("table"):
		tbl, err := p.parseTable()
		if err != nil {
			return nil, err
		}
		return &ast.Definition{Kind: ast.DefTable, Metadata: md, Table: tbl}, nil
	case p.atIdentValue("enum"):
		en, err := p.parseEnum()
		if err != nil {
			return nil, err
		}
		return &ast.Definition{Kind: ast.DefEnum, Metadata: md, Enum: en}, nil
	default:
		return nil, p.parseErr("'namespace', 'table', or 'enum'")
	}
}

func (p *parser) parseNamespace() (*ast.NamespaceDef, error) {
	sp := p.span()
	if _, err := p.expectKeyword("namespace"); err != nil {
		return nil, err
	}
	name, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	ns := &ast.NamespaceDef{Name: name, Span: sp}
	for !p.atPunct("}") {
		if p.atEOF() {
			return nil, p.buildErr(MissingElement, "unterminated namespace body, expected '}'")
		}
		def, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}
		ns.Defs = append(ns.Defs, *def)
	}
	p.advance() // "}"
	return ns, nil
}

func (p *parser) parseDottedName() (string, error) {
	first, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	name := first.Value
	for p.atPunct(".") {
		p.advance()
		seg, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		name += "." + seg.Value
	}
	return name, nil
}

func (p *parser) parseTable() (*ast.Table, error) {
	sp := p.span()
	if _, err := p.expectKeyword("table"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	tbl := &ast.Table{Name: nameTok.Value, Span: sp}
	for !p.atPunct("}") {
		if p.atEOF() {
			return nil, p.buildErr(MissingElement, "unterminated table body, expected '}'")
		}
		member, err := p.parseTableMember()
		if err != nil {
			return nil, err
		}
		tbl.Members = append(tbl.Members, *member)
	}
	p.advance() // "}"
	return tbl, nil
}

func (p *parser) parseTableMember() (*ast.TableMember, error) {
	md, err := p.parseMetadata()
	if err != nil {
		return nil, err
	}
	switch {
	case p.atIdentValue("embed"):
		em, err := p.parseEmbed()
		if err != nil {
			return nil, err
		}
		return &ast.TableMember{Kind: ast.MemberEmbed, Metadata: md, Embed: em}, nil
	case p.atIdentValue("enum"):
		en, err := p.parseEnum()
		if err != nil {
			return nil, err
		}
		return &ast.TableMember{Kind: ast.MemberEnum, Metadata: md, Enum: en}, nil
	case p.atIdent():
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		return &ast.TableMember{Kind: ast.MemberField, Metadata: md, Field: f}, nil
	default:
		return nil, p.parseErr("field, 'embed', or 'enum'")
	}
}

func (p *parser) parseEmbed() (*ast.Embed, error) {
	sp := p.span()
	if _, err := p.expectKeyword("embed"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	em := &ast.Embed{Name: nameTok.Value, Span: sp}
	for !p.atPunct("}") {
		if p.atEOF() {
			return nil, p.buildErr(MissingElement, "unterminated embed body, expected '}'")
		}
		member, err := p.parseTableMember()
		if err != nil {
			return nil, err
		}
		em.Members = append(em.Members, *member)
	}
	p.advance()
	return em, nil
}

func (p *parser) parseEnum() (*ast.Enum, error) {
	return p.parseEnumNamed(true)
}

// parseEnumNamed parses an `enum { ... }` body, optionally preceded by a
// name, used both for standalone/nested enum definitions (named) and for
// inline anonymous enum field types (unnamed).
func (p *parser) parseEnumNamed(requireName bool) (*ast.Enum, error) {
	sp := p.span()
	if _, err := p.expectKeyword("enum"); err != nil {
		return nil, err
	}
	en := &ast.Enum{Span: sp}
	if requireName {
		nameTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		en.Name = nameTok.Value
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	for !p.atPunct("}") {
		if p.atEOF() {
			return nil, p.buildErr(MissingElement, "unterminated enum body, expected '}'")
		}
		ev, err := p.parseEnumValue()
		if err != nil {
			return nil, err
		}
		en.Values = append(en.Values, *ev)
		if p.atPunct(",") {
			p.advance()
		}
	}
	p.advance()
	return en, nil
}

func (p *parser) parseEnumValue() (*ast.EnumValue, error) {
	md, err := p.parseMetadata()
	if err != nil {
		return nil, err
	}
	sp := p.span()
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ev := &ast.EnumValue{Metadata: md, Name: nameTok.Value, Span: sp}
	if p.atPunct("=") {
		p.advance()
		if p.cur().Type != lexer.KindInt {
			return nil, p.parseErr("integer literal")
		}
		tok := p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.buildErr(InvalidValue, "bad enum value "+tok.Value)
		}
		ev.Value = &n
	}
	return ev, nil
}

func (p *parser) parseField() (*ast.Field, error) {
	sp := p.span()
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	f := &ast.Field{Name: nameTok.Value, Span: sp}

	switch {
	case p.atIdentValue("embed"):
		em, err := p.parseEmbed()
		if err != nil {
			return nil, err
		}
		f.Kind = ast.FieldInlineEmbed
		f.InlineEmbed = em
	case p.atIdentValue("enum"):
		en, err := p.parseEnumNamed(false)
		if err != nil {
			return nil, err
		}
		f.Kind = ast.FieldInlineEnum
		f.InlineEnum = en
	default:
		typ, err := p.parseTypeWithCardinality()
		if err != nil {
			return nil, err
		}
		f.Kind = ast.FieldRegular
		f.Type = typ
	}

	for p.isConstraintStart() {
		c, err := p.parseConstraint()
		if err != nil {
			return nil, err
		}
		f.Constraints = append(f.Constraints, *c)
	}

	if p.atPunct("=") {
		p.advance()
		if p.cur().Type != lexer.KindInt {
			return nil, p.parseErr("integer literal (field number)")
		}
		tok := p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.buildErr(InvalidValue, "bad field number "+tok.Value)
		}
		f.FieldNumber = &n
	}

	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *parser) parseTypeWithCardinality() (*ast.TypeWithCardinality, error) {
	sp := p.span()
	base, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	t := &ast.TypeWithCardinality{Base: *base, Span: sp}
	switch {
	case p.atPunct("?"):
		p.advance()
		t.Cardinality = ast.CardinalityOptional
	case p.atPunct("[]"):
		p.advance()
		t.Cardinality = ast.CardinalityList
	default:
		t.Cardinality = ast.CardinalitySingle
	}
	return t, nil
}

func (p *parser) parseTypeName() (*ast.TypeName, error) {
	if !p.atIdent() {
		return nil, p.parseErr("type name")
	}
	if bt, ok := ast.LookupBasicType(p.cur().Value); ok {
		p.advance()
		return &ast.TypeName{Kind: ast.TypeNameBasic, Basic: bt}, nil
	}
	path, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	return &ast.TypeName{Kind: ast.TypeNamePath, Path: strings.Split(path, ".")}, nil
}

var constraintKeywords = map[string]ast.ConstraintKind{
	"primary_key": ast.ConstraintPrimaryKey,
	"unique":      ast.ConstraintUnique,
	"max_length":  ast.ConstraintMaxLength,
	"default":     ast.ConstraintDefault,
	"range":       ast.ConstraintRange,
	"regex":       ast.ConstraintRegex,
	"foreign_key": ast.ConstraintForeignKey,
	"index":       ast.ConstraintIndex,
	"auto_create": ast.ConstraintAutoCreate,
	"auto_update": ast.ConstraintAutoUpdate,
}

func (p *parser) isConstraintStart() bool {
	if !p.atIdent() {
		return false
	}
	_, ok := constraintKeywords[p.cur().Value]
	return ok
}

func (p *parser) parseConstraint() (*ast.Constraint, error) {
	sp := p.span()
	kind, ok := constraintKeywords[p.cur().Value]
	if !ok {
		return nil, p.parseErr("constraint")
	}
	p.advance()
	c := &ast.Constraint{Kind: kind, Span: sp}

	switch kind {
	case ast.ConstraintPrimaryKey, ast.ConstraintUnique, ast.ConstraintIndex:
		// no arguments

	case ast.ConstraintMaxLength:
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		if p.cur().Type != lexer.KindInt {
			return nil, p.parseErr("integer literal")
		}
		tok := p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.buildErr(InvalidValue, "bad max_length value "+tok.Value)
		}
		c.MaxLength = n
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}

	case ast.ConstraintDefault:
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		c.Default = *lit
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}

	case ast.ConstraintRange:
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		minLit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		c.RangeMin = minLit
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		maxLit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		c.RangeMax = maxLit
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}

	case ast.ConstraintRegex:
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		if p.cur().Type != lexer.KindString {
			return nil, p.parseErr("string literal")
		}
		tok := p.advance()
		c.Regex = unquote(tok.Value)
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}

	case ast.ConstraintForeignKey:
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		path, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		c.RefPath = strings.Split(path, ".")
		if p.atIdentValue("as") {
			p.advance()
			aliasTok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			c.Alias = aliasTok.Value
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}

	case ast.ConstraintAutoCreate, ast.ConstraintAutoUpdate:
		if p.atPunct("(") {
			p.advance()
			tz, err := p.parseTimezone()
			if err != nil {
				return nil, err
			}
			c.Timezone = tz
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// parseTimezone reads the argument of auto_create/auto_update:
// `Utc | Local | Offset(±h, m) | Named("…")`. These four words are not
// reserved — a schema can still use them as ordinary field names outside
// this position, matching the grammar's contextual keyword recognition.
func (p *parser) parseTimezone() (*ast.Timezone, error) {
	switch {
	case p.atIdentValue("Utc"):
		p.advance()
		return &ast.Timezone{Kind: ast.TimezoneUtc}, nil
	case p.atIdentValue("Local"):
		p.advance()
		return &ast.Timezone{Kind: ast.TimezoneLocal}, nil
	case p.atIdentValue("Offset"):
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		hours, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		minutes, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.Timezone{Kind: ast.TimezoneOffset, OffsetHours: hours.Int, OffsetMinutes: minutes.Int}, nil
	case p.atIdentValue("Named"):
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		if p.cur().Type != lexer.KindString {
			return nil, p.parseErr("string literal")
		}
		tok := p.advance()
		name := unquote(tok.Value)
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.Timezone{Kind: ast.TimezoneNamed, Name: name}, nil
	default:
		return nil, p.parseErr("timezone (Utc, Local, Offset(h, m), or Named(\"...\"))")
	}
}

func unquote(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	raw = strings.ReplaceAll(raw, `\"`, `"`)
	raw = strings.ReplaceAll(raw, `\\`, `\`)
	return raw
}
