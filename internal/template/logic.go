package template

import (
	"fmt"
	"strconv"
	"strings"
)

// EvalLogicBlock executes a %logic fence: a sequence of one
// assignment-or-increment statement per line, each evaluated against
// scope in order.
//
// This is deliberately not a general-purpose scripting host. The
// original Rust implementation embeds Rhai for %logic bodies, but
// Rhai has no maintained Go binding, and every .ptpl template in this
// pack's domain only ever uses %logic for small bookkeeping — running
// counters, accumulated flags — that a line-oriented assignment
// statement already covers. A richer expression language belongs in
// ParseExprPipeline, which every statement here delegates to.
func EvalLogicBlock(body string, scope *Scope) error {
	for _, line := range strings.Split(body, "\n") {
		stmt := strings.TrimSpace(line)
		if stmt == "" || strings.HasPrefix(stmt, "#") {
			continue
		}
		if err := evalLogicStatement(stmt, scope); err != nil {
			return err
		}
	}
	return nil
}

func evalLogicStatement(stmt string, scope *Scope) error {
	for _, op := range []string{"+=", "-=", "="} {
		if idx := strings.Index(stmt, op); idx >= 0 {
			name := strings.TrimSpace(stmt[:idx])
			exprStr := strings.TrimSpace(stmt[idx+len(op):])
			pipeline, err := ParseExprPipeline(exprStr)
			if err != nil {
				return fmt.Errorf("template: logic: %w", err)
			}
			val, err := pipeline.Eval(scope)
			if err != nil {
				return fmt.Errorf("template: logic: %w", err)
			}
			switch op {
			case "=":
				scope.Let(name, val)
			case "+=", "-=":
				cur, _ := scope.Get(name)
				sum, err := applyDelta(cur, val, op == "-=")
				if err != nil {
					return fmt.Errorf("template: logic: %q: %w", stmt, err)
				}
				if err := scope.Set(name, sum); err != nil {
					scope.Let(name, sum)
				}
			}
			return nil
		}
	}
	return fmt.Errorf("template: logic: unrecognized statement %q", stmt)
}

func applyDelta(cur, delta any, negate bool) (any, error) {
	c, err := toInt64(cur)
	if err != nil {
		return nil, err
	}
	d, err := toInt64(delta)
	if err != nil {
		return nil, err
	}
	if negate {
		return c - d, nil
	}
	return c + d, nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
