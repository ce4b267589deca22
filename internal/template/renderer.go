package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Loader resolves a %include path to its parsed node tree. The
// generator wires this to a directory of .ptpl files on disk; tests can
// substitute an in-memory map.
type Loader interface {
	Load(path string) ([]Node, error)
}

// Renderer walks a parsed node tree against a Scope, producing output
// text and a SourceMap.
type Renderer struct {
	loader Loader
	blocks map[string][]Node
}

// NewRenderer creates a renderer that resolves %include through loader.
func NewRenderer(loader Loader) *Renderer {
	return &Renderer{loader: loader, blocks: map[string][]Node{}}
}

type renderState struct {
	out          strings.Builder
	sourceMap    *SourceMap
	includeStack []string
	// includeInstanceIDs parallels includeStack with a fresh id per
	// include frame, so a cyclic-include diagnostic or a source map
	// entry can name *which* recursive invocation of a template produced
	// it; this is purely a debugging aid, never consulted by control
	// flow (cycle detection still compares template paths).
	includeInstanceIDs []uuid.UUID
	lineNo             int
}

// Render executes nodes (the top-level template's node tree, typically
// the return value of Parse on the driver config's main template) against
// scope, returning the generated text and its source map.
func (r *Renderer) Render(templateFile string, nodes []Node, scope *Scope) (string, *SourceMap, error) {
	registerBlocks(r.blocks, nodes)
	st := &renderState{
		sourceMap:          &SourceMap{},
		includeStack:       []string{templateFile},
		includeInstanceIDs: []uuid.UUID{uuid.New()},
	}
	if err := r.renderNodes(nodes, scope, st, templateFile); err != nil {
		return "", nil, err
	}
	return st.out.String(), st.sourceMap, nil
}

func registerBlocks(registry map[string][]Node, nodes []Node) {
	for _, n := range nodes {
		if n.Kind == NodeBlockDef {
			registry[n.Block.Name] = n.Block.Body
		}
	}
}

func (r *Renderer) renderNodes(nodes []Node, scope *Scope, st *renderState, file string) error {
	for _, n := range nodes {
		if err := r.renderNode(n, scope, st, file); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderNode(n Node, scope *Scope, st *renderState, file string) error {
	switch n.Kind {
	case NodeOutputLine:
		return r.emitOutputLine(n, scope, st, file)
	case NodeBlankLine:
		st.out.WriteByte('\n')
		return nil
	case NodeConditional:
		return r.renderConditional(n, scope, st, file)
	case NodeForLoop:
		return r.renderFor(n, scope, st, file)
	case NodeWhile:
		return r.renderWhile(n, scope, st, file)
	case NodeInclude:
		return r.renderInclude(n, scope, st, file)
	case NodeLetSet:
		return r.renderLetSet(n, scope)
	case NodeLogicBlock:
		return EvalLogicBlock(n.Logic.Body, scope)
	case NodeMatch:
		return r.renderMatch(n, scope, st, file)
	case NodeBlockDef:
		r.blocks[n.Block.Name] = n.Block.Body
		return nil
	case NodeRender:
		return r.renderRender(n, scope, st, file)
	default:
		return fmt.Errorf("template: unhandled node kind %d", n.Kind)
	}
}

func (r *Renderer) emitOutputLine(n Node, scope *Scope, st *renderState, file string) error {
	var line strings.Builder
	for _, seg := range n.Output.Segments {
		if seg.Expr == nil {
			line.WriteString(seg.Literal)
			continue
		}
		v, err := seg.Expr.Eval(scope)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		s, err := stringify(v)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		line.WriteString(s)
	}
	st.out.WriteString(line.String())
	st.out.WriteByte('\n')
	st.lineNo++
	st.sourceMap.record(st.lineNo, file, n.Line, st.includeStack, st.includeInstanceIDs[len(st.includeInstanceIDs)-1], "")
	return nil
}

func stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return fmt.Sprintf("%v", x), nil
	}
}

func (r *Renderer) renderConditional(n Node, scope *Scope, st *renderState, file string) error {
	c := n.Cond
	ok, err := EvalCondition(c.Condition, scope)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, n.Line, err)
	}
	if ok {
		return r.renderNodes(c.Then, scope.Child(), st, file)
	}
	for i, elifCond := range c.ElifConds {
		ok, err := EvalCondition(elifCond, scope)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		if ok {
			return r.renderNodes(c.ElifBody[i], scope.Child(), st, file)
		}
	}
	if c.Else != nil {
		return r.renderNodes(c.Else, scope.Child(), st, file)
	}
	return nil
}

func (r *Renderer) renderFor(n Node, scope *Scope, st *renderState, file string) error {
	f := n.For
	pipeline, err := ParseExprPipeline(f.Collection)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, n.Line, err)
	}
	collection, err := pipeline.Eval(scope)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, n.Line, err)
	}
	items, err := AsIterable(collection)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, n.Line, err)
	}
	for _, item := range items {
		child := scope.Child()
		child.Let(f.Variable, item)
		if err := r.renderNodes(f.Body, child, st, file); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderWhile(n Node, scope *Scope, st *renderState, file string) error {
	w := n.While
	for i := 0; ; i++ {
		if i >= maxWhileIterations {
			return fmt.Errorf("%s:%d: %%while exceeded %d iterations", file, n.Line, maxWhileIterations)
		}
		ok, err := EvalCondition(w.Condition, scope)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		if !ok {
			return nil
		}
		if err := r.renderNodes(w.Body, scope, st, file); err != nil {
			return err
		}
	}
}

func (r *Renderer) renderInclude(n Node, scope *Scope, st *renderState, file string) error {
	inc := n.Inc
	if len(st.includeStack) >= maxIncludeDepth {
		return fmt.Errorf("%s:%d: %%include exceeds max depth %d (%s)", file, n.Line, maxIncludeDepth, strings.Join(st.includeStack, " -> "))
	}
	for i, seen := range st.includeStack {
		if seen == inc.TemplatePath {
			return fmt.Errorf("%s:%d: cyclic %%include of %q via %s (first entered as instance %s)",
				file, n.Line, inc.TemplatePath, strings.Join(st.includeStack, " -> "), st.includeInstanceIDs[i])
		}
	}
	nodes, err := r.loader.Load(inc.TemplatePath)
	if err != nil {
		return fmt.Errorf("%s:%d: %%include %q: %w", file, n.Line, inc.TemplatePath, err)
	}
	child := scope.Child()
	for _, b := range inc.Bindings {
		pipeline, err := ParseExprPipeline(b.Expr)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		v, err := pipeline.Eval(scope)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		child.Let(b.Name, v)
	}
	registerBlocks(r.blocks, nodes)
	st.includeStack = append(st.includeStack, inc.TemplatePath)
	st.includeInstanceIDs = append(st.includeInstanceIDs, uuid.New())
	defer func() {
		st.includeStack = st.includeStack[:len(st.includeStack)-1]
		st.includeInstanceIDs = st.includeInstanceIDs[:len(st.includeInstanceIDs)-1]
	}()
	return r.renderNodes(nodes, child, st, inc.TemplatePath)
}

func (r *Renderer) renderLetSet(n Node, scope *Scope) error {
	ls := n.LetSet
	pipeline, err := ParseExprPipeline(ls.Expr)
	if err != nil {
		return err
	}
	v, err := pipeline.Eval(scope)
	if err != nil {
		return err
	}
	if ls.Mutate {
		return scope.Set(ls.Name, v)
	}
	scope.Let(ls.Name, v)
	return nil
}

func (r *Renderer) renderMatch(n Node, scope *Scope, st *renderState, file string) error {
	m := n.Match
	subjectPipeline, err := ParseExprPipeline(m.Subject)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, n.Line, err)
	}
	subject, err := subjectPipeline.Eval(scope)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", file, n.Line, err)
	}
	for _, arm := range m.Arms {
		matched, err := matchPattern(arm.Pattern, subject, scope)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		if matched && arm.Guard != "" {
			matched, err = EvalCondition(arm.Guard, scope)
			if err != nil {
				return fmt.Errorf("%s:%d: %w", file, n.Line, err)
			}
		}
		if matched {
			return r.renderNodes(arm.Body, scope.Child(), st, file)
		}
	}
	if m.Else != nil {
		return r.renderNodes(m.Else, scope.Child(), st, file)
	}
	return nil
}

func matchPattern(pattern string, subject any, scope *Scope) (bool, error) {
	if pattern == "_" {
		return true, nil
	}
	base, err := parseBaseExpr(pattern)
	if err != nil {
		return false, err
	}
	v, err := evalBase(base, scope)
	if err != nil {
		return false, err
	}
	return valuesEqual(subject, v), nil
}

func (r *Renderer) renderRender(n Node, scope *Scope, st *renderState, file string) error {
	rn := n.Render
	body, ok := r.blocks[rn.Target]
	if !ok {
		return fmt.Errorf("%s:%d: %%render of undefined block %q", file, n.Line, rn.Target)
	}
	child := scope.Child()
	for i, arg := range rn.Args {
		pipeline, err := ParseExprPipeline(arg)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		v, err := pipeline.Eval(scope)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		child.Let(strconv.Itoa(i), v)
	}
	return r.renderNodes(body, child, st, file)
}
