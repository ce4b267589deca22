package template

import (
	"fmt"
	"strings"
)

// Parse turns the raw text of a .ptpl template into its Node tree. The
// format is line-oriented: a line whose first non-whitespace character
// is '%' is a directive, everything else is literal output text that may
// contain `{{ expr | filters }}` interpolations. A final newline ends the
// last line rather than starting an empty one.
func Parse(src string) ([]Node, error) {
	lines := strings.Split(src, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	p := &lineParser{lines: lines}
	nodes, term, _, err := p.parseBlock(nil)
	if err != nil {
		return nil, err
	}
	if term != "" {
		return nil, fmt.Errorf("template: unexpected %%%s with no matching opening directive", term)
	}
	return nodes, nil
}

type lineParser struct {
	lines []string
	pos   int
}

func (p *lineParser) atEnd() bool { return p.pos >= len(p.lines) }

func (p *lineParser) peek() (string, bool) {
	if p.atEnd() {
		return "", false
	}
	return p.lines[p.pos], true
}

// parseBlock consumes lines until it reaches a directive whose keyword is
// in enders, consuming that directive line and returning its keyword and
// (if it carried one) the text following the keyword — so a caller
// chaining %elif/%when arms can read each arm's own condition/pattern
// without a second lookback. Reaching end of input returns an empty
// terminator.
func (p *lineParser) parseBlock(enders []string) ([]Node, string, string, error) {
	var nodes []Node
	for {
		line, ok := p.peek()
		if !ok {
			return nodes, "", "", nil
		}
		trimmed := strings.TrimSpace(line)
		if directive, rest, isDirective := splitDirective(trimmed); isDirective {
			if containsStr(enders, directive) {
				p.pos++
				return nodes, directive, rest, nil
			}
			node, err := p.parseDirective(directive, rest)
			if err != nil {
				return nil, "", "", err
			}
			nodes = append(nodes, *node)
			continue
		}
		p.pos++
		nodes = append(nodes, Node{Kind: NodeOutputLine, Line: p.pos, Output: parseOutputLine(line)})
	}
}

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// splitDirective reports whether trimmed is a `%keyword rest...` line.
func splitDirective(trimmed string) (keyword, rest string, ok bool) {
	if !strings.HasPrefix(trimmed, "%") {
		return "", "", false
	}
	body := strings.TrimSpace(trimmed[1:])
	sp := strings.IndexAny(body, " \t")
	if sp < 0 {
		return body, "", true
	}
	return body[:sp], strings.TrimSpace(body[sp:]), true
}

func (p *lineParser) parseDirective(keyword, rest string) (*Node, error) {
	line := p.pos + 1
	p.pos++
	switch keyword {
	case "if":
		return p.parseConditional(line, rest)
	case "for":
		return p.parseFor(line, rest)
	case "while":
		return p.parseWhile(line, rest)
	case "include":
		return p.parseInclude(line, rest)
	case "let":
		return p.parseLetSet(line, rest, false)
	case "set":
		return p.parseLetSet(line, rest, true)
	case "logic":
		return p.parseLogic(line)
	case "match":
		return p.parseMatch(line, rest)
	case "block":
		return p.parseBlockDef(line, rest)
	case "render":
		return p.parseRender(line, rest)
	default:
		return nil, fmt.Errorf("template:%d: unexpected directive %%%s", line, keyword)
	}
}

// parseConditional handles %if, chaining through any number of %elif
// arms before a terminating %else or %endif.
func (p *lineParser) parseConditional(line int, cond string) (*Node, error) {
	c := &Conditional{Condition: cond}
	enders := []string{"elif", "else", "endif"}
	body, term, rest, err := p.parseBlock(enders)
	if err != nil {
		return nil, err
	}
	c.Then = body
	for term == "elif" {
		c.ElifConds = append(c.ElifConds, rest)
		body, term, rest, err = p.parseBlock(enders)
		if err != nil {
			return nil, err
		}
		c.ElifBody = append(c.ElifBody, body)
	}
	if term == "else" {
		body, term, _, err = p.parseBlock([]string{"endif"})
		if err != nil {
			return nil, err
		}
		c.Else = body
	}
	if term != "endif" {
		return nil, fmt.Errorf("template:%d: unterminated %%if", line)
	}
	return &Node{Kind: NodeConditional, Line: line, Cond: c}, nil
}

func (p *lineParser) parseFor(line int, rest string) (*Node, error) {
	parts := strings.SplitN(rest, " in ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("template:%d: %%for requires \"v in collection\"", line)
	}
	body, _, _, err := p.parseBlock([]string{"endfor"})
	if err != nil {
		return nil, err
	}
	return &Node{Kind: NodeForLoop, Line: line, For: &ForLoop{
		Variable: strings.TrimSpace(parts[0]), Collection: strings.TrimSpace(parts[1]), Body: body,
	}}, nil
}

func (p *lineParser) parseWhile(line int, cond string) (*Node, error) {
	body, _, _, err := p.parseBlock([]string{"endwhile"})
	if err != nil {
		return nil, err
	}
	return &Node{Kind: NodeWhile, Line: line, While: &While{Condition: cond, Body: body}}, nil
}

func (p *lineParser) parseInclude(line int, rest string) (*Node, error) {
	inc := &Include{}
	remaining := rest
	if !strings.HasPrefix(remaining, "\"") {
		return nil, fmt.Errorf("template:%d: %%include requires a quoted path", line)
	}
	end := strings.IndexByte(remaining[1:], '"')
	if end < 0 {
		return nil, fmt.Errorf("template:%d: unterminated path in %%include", line)
	}
	inc.TemplatePath = remaining[1 : end+1]
	remaining = strings.TrimSpace(remaining[end+2:])
	remaining = strings.TrimPrefix(remaining, "as ")
	if idx := strings.Index(remaining, "indent "); idx >= 0 {
		fmt.Sscanf(remaining[idx+len("indent "):], "%d", &inc.Indent)
		remaining = strings.TrimSpace(remaining[:idx])
	}
	for _, binding := range splitTopLevel(remaining, ',') {
		binding = strings.TrimSpace(binding)
		if binding == "" {
			continue
		}
		eq := strings.IndexByte(binding, '=')
		if eq < 0 {
			continue
		}
		inc.Bindings = append(inc.Bindings, IncludeBinding{
			Name: strings.TrimSpace(binding[:eq]), Expr: strings.TrimSpace(binding[eq+1:]),
		})
	}
	return &Node{Kind: NodeInclude, Line: line, Inc: inc}, nil
}

func (p *lineParser) parseLetSet(line int, rest string, mutate bool) (*Node, error) {
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		return nil, fmt.Errorf("template:%d: expected \"name = expr\"", line)
	}
	ls := &LetSet{Mutate: mutate, Name: strings.TrimSpace(rest[:eq]), Expr: strings.TrimSpace(rest[eq+1:])}
	return &Node{Kind: NodeLetSet, Line: line, LetSet: ls}, nil
}

func (p *lineParser) parseLogic(line int) (*Node, error) {
	var body []string
	for {
		l, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("template:%d: unterminated %%logic", line)
		}
		if kw, _, isDir := splitDirective(strings.TrimSpace(l)); isDir && kw == "endlogic" {
			p.pos++
			return &Node{Kind: NodeLogicBlock, Line: line, Logic: &LogicBlock{Body: strings.Join(body, "\n")}}, nil
		}
		body = append(body, l)
		p.pos++
	}
}

// parseMatch handles %match, chaining through any number of %when arms
// before a terminating %else or %endmatch.
func (p *lineParser) parseMatch(line int, subject string) (*Node, error) {
	m := &Match{Subject: subject}
	for {
		_, term, rest, err := p.parseBlock([]string{"when", "else", "endmatch"})
		if err != nil {
			return nil, err
		}
		switch term {
		case "":
			return nil, fmt.Errorf("template:%d: unterminated %%match", line)
		case "when":
			pattern, guard := rest, ""
			if idx := strings.Index(rest, " if "); idx >= 0 {
				pattern, guard = strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+4:])
			}
			body, nextTerm, nextRest, err := p.parseBlock([]string{"when", "else", "endmatch"})
			if err != nil {
				return nil, err
			}
			m.Arms = append(m.Arms, MatchArm{Pattern: pattern, Guard: guard, Body: body})
			for nextTerm == "when" {
				pattern, guard = nextRest, ""
				if idx := strings.Index(nextRest, " if "); idx >= 0 {
					pattern, guard = strings.TrimSpace(nextRest[:idx]), strings.TrimSpace(nextRest[idx+4:])
				}
				body, nextTerm, nextRest, err = p.parseBlock([]string{"when", "else", "endmatch"})
				if err != nil {
					return nil, err
				}
				m.Arms = append(m.Arms, MatchArm{Pattern: pattern, Guard: guard, Body: body})
			}
			if nextTerm == "else" {
				elseBody, _, _, err := p.parseBlock([]string{"endmatch"})
				if err != nil {
					return nil, err
				}
				m.Else = elseBody
			}
			return &Node{Kind: NodeMatch, Line: line, Match: m}, nil
		case "else":
			elseBody, _, _, err := p.parseBlock([]string{"endmatch"})
			if err != nil {
				return nil, err
			}
			m.Else = elseBody
			return &Node{Kind: NodeMatch, Line: line, Match: m}, nil
		case "endmatch":
			return &Node{Kind: NodeMatch, Line: line, Match: m}, nil
		}
	}
}

func (p *lineParser) parseBlockDef(line int, rest string) (*Node, error) {
	name, params := rest, ""
	if open := strings.IndexByte(rest, '('); open >= 0 && strings.HasSuffix(rest, ")") {
		name = strings.TrimSpace(rest[:open])
		params = rest[open+1 : len(rest)-1]
	}
	body, _, _, err := p.parseBlock([]string{"endblock"})
	if err != nil {
		return nil, err
	}
	bd := &BlockDef{Name: name, Body: body}
	for _, param := range splitTopLevel(params, ',') {
		if t := strings.TrimSpace(param); t != "" {
			bd.Params = append(bd.Params, t)
		}
	}
	return &Node{Kind: NodeBlockDef, Line: line, Block: bd}, nil
}

func (p *lineParser) parseRender(line int, rest string) (*Node, error) {
	name, args := rest, ""
	if open := strings.IndexByte(rest, '('); open >= 0 && strings.HasSuffix(rest, ")") {
		name = strings.TrimSpace(rest[:open])
		args = rest[open+1 : len(rest)-1]
	}
	r := &Render{Target: name}
	for _, arg := range splitTopLevel(args, ',') {
		if t := strings.TrimSpace(arg); t != "" {
			r.Args = append(r.Args, t)
		}
	}
	return &Node{Kind: NodeRender, Line: line, Render: r}, nil
}

// parseOutputLine splits a literal template line into alternating
// literal/interpolation segments on `{{` ... `}}` boundaries.
func parseOutputLine(line string) *OutputLine {
	ol := &OutputLine{}
	rest := line
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			ol.Segments = append(ol.Segments, LineSegment{Literal: rest})
			return ol
		}
		if start > 0 {
			ol.Segments = append(ol.Segments, LineSegment{Literal: rest[:start]})
		}
		end := strings.Index(rest[start+2:], "}}")
		if end < 0 {
			ol.Segments = append(ol.Segments, LineSegment{Literal: rest[start:]})
			return ol
		}
		exprStr := strings.TrimSpace(rest[start+2 : start+2+end])
		pipeline, err := ParseExprPipeline(exprStr)
		if err == nil {
			ol.Segments = append(ol.Segments, LineSegment{Expr: pipeline})
		} else {
			ol.Segments = append(ol.Segments, LineSegment{Literal: rest[start : start+2+end+2]})
		}
		rest = rest[start+2+end+2:]
	}
}
