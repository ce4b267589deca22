package template

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Scope is one lexical binding frame: %for, %include, and %block each
// push a child scope so their bindings don't leak into the caller, while
// still resolving outward for anything not locally bound. Bindings are
// kept in an OrderedMap rather than a plain map so a %let/%set trace
// dump (debug tooling around the renderer) can walk a scope's own
// bindings in the order they were declared instead of Go's randomized
// map order.
type Scope struct {
	vars   *orderedmap.OrderedMap[string, any]
	parent *Scope
}

// NewScope creates a root scope seeded with the given bindings (the IR
// values handed to the top-level render call). Go map iteration order is
// unspecified, so seed order only matters for Dump; Render itself never
// iterates a scope's own bindings.
func NewScope(seed map[string]any) *Scope {
	vars := orderedmap.New[string, any]()
	for k, v := range seed {
		vars.Set(k, v)
	}
	return &Scope{vars: vars}
}

// Child creates a nested scope for a loop body, include, or block call.
func (s *Scope) Child() *Scope {
	return &Scope{vars: orderedmap.New[string, any](), parent: s}
}

// Get resolves name in this scope or any enclosing scope.
func (s *Scope) Get(name string) (any, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Let introduces a new binding in this scope, shadowing any outer
// binding of the same name (corresponds to the %let directive).
func (s *Scope) Let(name string, v any) {
	s.vars.Set(name, v)
}

// Set mutates an existing binding in whichever scope in the chain
// declared it (corresponds to the %set directive), erroring if name was
// never %let anywhere in the chain.
func (s *Scope) Set(name string, v any) error {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars.Get(name); ok {
			sc.vars.Set(name, v)
			return nil
		}
	}
	return fmt.Errorf("template: cannot %%set undeclared variable %q", name)
}

// Dump returns this scope's own bindings (not outer ones) in declaration
// order, for renderer debug tooling.
func (s *Scope) Dump() []string {
	names := make([]string, 0, s.vars.Len())
	for pair := s.vars.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
