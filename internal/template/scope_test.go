package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeGetWalksUpParentChain(t *testing.T) {
	root := NewScope(map[string]any{"a": 1})
	child := root.Child()
	child.Let("b", 2)

	v, ok := child.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = child.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = root.Get("b")
	assert.False(t, ok, "child bindings must not leak into the parent")
}

func TestScopeChildShadowsParentBinding(t *testing.T) {
	root := NewScope(map[string]any{"x": "outer"})
	child := root.Child()
	child.Let("x", "inner")

	v, _ := child.Get("x")
	assert.Equal(t, "inner", v)

	v, _ = root.Get("x")
	assert.Equal(t, "outer", v)
}

func TestScopeSetMutatesDeclaringScope(t *testing.T) {
	root := NewScope(map[string]any{"count": 0})
	child := root.Child()

	require.NoError(t, child.Set("count", 1))

	v, _ := root.Get("count")
	assert.Equal(t, 1, v)
}

func TestScopeSetUndeclaredReturnsError(t *testing.T) {
	root := NewScope(nil)
	err := root.Set("missing", 1)
	require.Error(t, err)
	assert.ErrorContains(t, err, "missing")
}

func TestScopeDumpPreservesDeclarationOrder(t *testing.T) {
	root := NewScope(nil)
	root.Let("third", 3)
	root.Let("first", 1)
	root.Let("second", 2)

	assert.Equal(t, []string{"third", "first", "second"}, root.Dump())
}

func TestScopeDumpExcludesParentBindings(t *testing.T) {
	root := NewScope(map[string]any{"outer": true})
	child := root.Child()
	child.Let("inner", true)

	assert.Equal(t, []string{"inner"}, child.Dump())
}
