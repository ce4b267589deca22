// Package lexer tokenizes .poly source text ahead of internal/parser's
// hand-written recursive-descent reader. Tokenization itself is delegated
// to participle's lexer so the terminal grammar (identifiers, literals,
// punctuation, comments) is declared once as a table of regexes instead of
// a bespoke scanner loop.
package lexer

import (
	"io"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token kind names, used both to build the lexer.Definition and to test
// tokens returned from it against expected kinds in the parser.
const (
	KindDocComment  = "DocComment"
	KindLineComment = "LineComment"
	KindKeyword     = "Keyword"
	KindIdent       = "Ident"
	KindString      = "String"
	KindFloat       = "Float"
	KindInt         = "Int"
	KindPunct       = "Punct"
	KindWhitespace  = "Whitespace"
	KindEOF         = "EOF"
)

// Definition is the shared participle lexer.Definition for .poly files.
var Definition = lexer.MustSimple([]lexer.SimpleRule{
	{Name: KindDocComment, Pattern: `///[^\n]*`},
	{Name: KindLineComment, Pattern: `//[^\n]*`},
	{Name: KindFloat, Pattern: `[-+]?\d+\.\d+([eE][-+]?\d+)?`},
	{Name: KindInt, Pattern: `[-+]?\d+`},
	{Name: KindString, Pattern: `"(\\"|[^"])*"`},
	{Name: KindIdent, Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: KindPunct, Pattern: `\[\]|::|[{}()\[\];:,.=?@]`},
	{Name: KindWhitespace, Pattern: `[ \t\r\n]+`},
})

// keywords is the set of identifiers the parser treats specially. The
// lexer itself emits every bare word as Ident; the parser consults this
// table when it needs to recognize a reserved word at the current
// position, which keeps the lexer table small and keyword recognition
// context-sensitive (so e.g. "table" can still be used loosely elsewhere
// if a future grammar revision needs it).
var keywords = map[string]bool{
	"namespace":    true,
	"import":       true,
	"table":        true,
	"enum":         true,
	"embed":        true,
	"primary_key":  true,
	"unique":       true,
	"max_length":   true,
	"default":      true,
	"range":        true,
	"regex":        true,
	"foreign_key":  true,
	"index":        true,
	"auto_create":  true,
	"auto_update":  true,
	"as":           true,
	"true":         true,
	"false":        true,
}

// IsKeyword reports whether ident is a reserved word in the grammar.
func IsKeyword(ident string) bool {
	return keywords[ident]
}

// Token mirrors lexer.Token so callers outside this package don't need to
// import participle directly.
type Token struct {
	Type  string
	Value string
	Pos   Position
}

// Position locates a token in its source file.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

// Tokenize lexes the full contents of r (attributed to filename for
// diagnostics) into a slice of non-whitespace, non-comment-stripped
// tokens. Doc comments are retained (the parser consumes them as
// metadata); plain line comments and whitespace are discarded here,
// mirroring how the original grammar treats insignificant trivia.
func Tokenize(filename string, r io.Reader) ([]Token, error) {
	lx, err := Definition.Lex(filename, r)
	if err != nil {
		return nil, err
	}
	symbolsByRune := lexer.SymbolsByRune(Definition)
	var out []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			out = append(out, Token{
				Type: KindEOF,
				Pos:  Position{Filename: tok.Pos.Filename, Offset: tok.Pos.Offset, Line: tok.Pos.Line, Column: tok.Pos.Column},
			})
			break
		}
		name := symbolsByRune[tok.Type]
		if name == KindWhitespace || name == KindLineComment {
			continue
		}
		out = append(out, Token{
			Type:  name,
			Value: tok.Value,
			Pos:   Position{Filename: tok.Pos.Filename, Offset: tok.Pos.Offset, Line: tok.Pos.Line, Column: tok.Pos.Column},
		})
	}
	return out, nil
}
