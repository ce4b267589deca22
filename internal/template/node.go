// Package template implements the .ptpl directive-based line-oriented
// template engine: parsing (this file's Node tree), expression
// evaluation, a filter registry, and rendering with a per-output-line
// source map.
//
// The node shapes mirror original_source/src/template/parser.rs's
// TemplateNode enum one-to-one; spec.md §4.5 names the same directive
// set.
package template

// Node is one parsed line (or directive block) of a .ptpl template.
// Exactly one of the typed fields is populated, selected by Kind.
type Node struct {
	Kind NodeKind
	Line int

	Output *OutputLine
	Cond   *Conditional
	For    *ForLoop
	While  *While
	Inc    *Include
	LetSet *LetSet
	Logic  *LogicBlock
	Match  *Match
	Block  *BlockDef
	Render *Render
}

// NodeKind discriminates the variant held by a Node.
type NodeKind int

const (
	NodeOutputLine NodeKind = iota
	NodeBlankLine
	NodeConditional
	NodeForLoop
	NodeWhile
	NodeInclude
	NodeLetSet
	NodeLogicBlock
	NodeMatch
	NodeBlockDef
	NodeRender
)

// OutputLine is a literal line of template text: a sequence of literal
// text and `{{ expr | filters }}` segments, emitted once per expansion
// with its expression segments substituted.
type OutputLine struct {
	Segments []LineSegment
}

// LineSegment is one piece of an OutputLine: either literal text or an
// interpolated expression pipeline.
type LineSegment struct {
	Literal string // set when Expr is nil
	Expr    *ExprPipeline
}

// Conditional is `%if cond ... %elif cond ... %else ... %endif`.
type Conditional struct {
	Condition string
	Then      []Node
	ElifConds []string
	ElifBody  [][]Node
	Else      []Node
}

// ForLoop is `%for v in collection ... %endfor`.
type ForLoop struct {
	Variable   string
	Collection string
	Body       []Node
}

// While is `%while cond ... %endwhile`, capped at 10000 iterations per
// spec.md to guarantee termination of a runaway condition.
type While struct {
	Condition string
	Body      []Node
}

const maxWhileIterations = 10000

// Include is `%include "path" [as a = expr, b = expr] [indent N]`.
type Include struct {
	TemplatePath string
	Bindings     []IncludeBinding
	Indent       int
}

// IncludeBinding passes a named expression into an included template's
// scope.
type IncludeBinding struct {
	Name string
	Expr string
}

const maxIncludeDepth = 16

// LetSet is `%let name = expr` (new binding) or `%set name = expr`
// (mutates an existing one); the renderer enforces the distinction.
type LetSet struct {
	Mutate bool
	Name   string
	Expr   string
}

// LogicBlock is `%logic ... %endlogic`: a fenced block of scripted logic
// bridged to the embedded logic engine (see logic.go) rather than parsed
// as template directives.
type LogicBlock struct {
	Body string
}

// Match is `%match subject %when pattern [if guard] ... %else ... %endmatch`.
type Match struct {
	Subject string
	Arms    []MatchArm
	Else    []Node
}

// MatchArm is one `%when pattern [if guard]` branch.
type MatchArm struct {
	Pattern string
	Guard   string
	Body    []Node
}

// BlockDef is `%block name(params) ... %endblock`: a reusable named
// fragment invoked via %render.
type BlockDef struct {
	Name   string
	Params []string
	Body   []Node
}

// Render is `%render name(args)`: invokes a previously defined %block.
type Render struct {
	Target string
	Args   []string
}
