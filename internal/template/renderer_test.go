package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapLoader resolves %include paths from an in-memory map of raw .ptpl
// source, so tests don't need a scratch directory on disk.
type mapLoader map[string]string

func (m mapLoader) Load(path string) ([]Node, error) {
	src, ok := m[path]
	if !ok {
		return nil, assert.AnError
	}
	return Parse(src)
}

func render(t *testing.T, loader mapLoader, entry string, seed map[string]any) (string, *SourceMap) {
	t.Helper()
	nodes, err := Parse(loader[entry])
	require.NoError(t, err)
	r := NewRenderer(loader)
	out, sm, err := r.Render(entry, nodes, NewScope(seed))
	require.NoError(t, err)
	return out, sm
}

func TestRenderOutputLineInterpolation(t *testing.T) {
	loader := mapLoader{"main.ptpl": "hello {{ name }}\n"}
	out, _ := render(t, loader, "main.ptpl", map[string]any{"name": "Player"})
	assert.Equal(t, "hello Player\n", out)
}

func TestRenderConditionalAndForLoop(t *testing.T) {
	loader := mapLoader{"main.ptpl": `%if active
%for f in fields
field {{ f }}
%endfor
%else
inactive
%endif
`}
	out, _ := render(t, loader, "main.ptpl", map[string]any{
		"active": true,
		"fields": []any{"id", "name"},
	})
	assert.Equal(t, "field id\nfield name\n", out)

	out, _ = render(t, loader, "main.ptpl", map[string]any{
		"active": false,
		"fields": []any{},
	})
	assert.Equal(t, "inactive\n", out)
}

func TestRenderIncludeProducesSourceMapEntries(t *testing.T) {
	loader := mapLoader{
		"main.ptpl":  "top\n%include \"child.ptpl\"\n",
		"child.ptpl": "nested {{ who }}\n",
	}
	out, sm := render(t, loader, "main.ptpl", map[string]any{"who": "x"})
	assert.Equal(t, "top\nnested x\n", out)

	require.Len(t, sm.Entries, 2)
	top, nested := sm.Entries[0], sm.Entries[1]
	assert.Equal(t, "main.ptpl", top.TemplateFile)
	assert.Equal(t, []string{"main.ptpl"}, top.IncludeStack)

	assert.Equal(t, "child.ptpl", nested.TemplateFile)
	assert.Equal(t, 1, nested.TemplateLine)
	assert.Equal(t, []string{"main.ptpl", "child.ptpl"}, nested.IncludeStack)

	// Each include frame gets its own instance id, distinct from the
	// top-level render's, so diagnostics can name which invocation of a
	// shared template produced a given line.
	assert.NotEqual(t, top.IncludeInstance, nested.IncludeInstance)
}

func TestRenderIncludeBindingsVisibleInChild(t *testing.T) {
	loader := mapLoader{
		"main.ptpl":  "%include \"child.ptpl\" as greeting = name\n",
		"child.ptpl": "hi {{ greeting }}\n",
	}
	out, _ := render(t, loader, "main.ptpl", map[string]any{"name": "Ada"})
	assert.Equal(t, "hi Ada\n", out)
}

func TestRenderCyclicIncludeErrors(t *testing.T) {
	loader := mapLoader{
		"a.ptpl": "%include \"b.ptpl\"\n",
		"b.ptpl": "%include \"a.ptpl\"\n",
	}
	nodes, err := Parse(loader["a.ptpl"])
	require.NoError(t, err)
	r := NewRenderer(loader)
	_, _, err = r.Render("a.ptpl", nodes, NewScope(nil))
	require.Error(t, err)
	assert.ErrorContains(t, err, "cyclic %include")
	assert.ErrorContains(t, err, "a.ptpl")
}

func TestRenderIncludeExceedsMaxDepth(t *testing.T) {
	loader := mapLoader{}
	for i := 0; i < maxIncludeDepth+2; i++ {
		loader[nthTemplate(i)] = "%include \"" + nthTemplate(i+1) + "\"\n"
	}
	loader[nthTemplate(maxIncludeDepth+2)] = "leaf\n"

	nodes, err := Parse(loader[nthTemplate(0)])
	require.NoError(t, err)
	r := NewRenderer(loader)
	_, _, err = r.Render(nthTemplate(0), nodes, NewScope(nil))
	require.Error(t, err)
	assert.ErrorContains(t, err, "exceeds max depth")
}

func nthTemplate(i int) string {
	return string(rune('a'+i%26)) + ".ptpl"
}

func TestRenderMatchArms(t *testing.T) {
	loader := mapLoader{"main.ptpl": `%match kind
%when "a"
got a
%when "b" if flag
got b with flag
%else
fallback
%endmatch
`}
	out, _ := render(t, loader, "main.ptpl", map[string]any{"kind": "a", "flag": false})
	assert.Equal(t, "got a\n", out)

	out, _ = render(t, loader, "main.ptpl", map[string]any{"kind": "b", "flag": true})
	assert.Equal(t, "got b with flag\n", out)

	out, _ = render(t, loader, "main.ptpl", map[string]any{"kind": "c", "flag": false})
	assert.Equal(t, "fallback\n", out)
}

func TestRenderLetAndSet(t *testing.T) {
	loader := mapLoader{"main.ptpl": `%let total = 1
%set total = 2
{{ total }}
`}
	out, _ := render(t, loader, "main.ptpl", nil)
	assert.Equal(t, "2\n", out)
}

func TestRenderSetUndeclaredVariableErrors(t *testing.T) {
	loader := mapLoader{"main.ptpl": "%set missing = 1\n"}
	nodes, err := Parse(loader["main.ptpl"])
	require.NoError(t, err)
	r := NewRenderer(loader)
	_, _, err = r.Render("main.ptpl", nodes, NewScope(nil))
	require.Error(t, err)
	assert.ErrorContains(t, err, "undeclared variable")
}

func TestRenderBlockDefAndRender(t *testing.T) {
	loader := mapLoader{"main.ptpl": `%block greet
hi
%endblock
%render greet()
`}
	out, _ := render(t, loader, "main.ptpl", nil)
	assert.Equal(t, "hi\n", out)
}

func TestRenderWhileExceedsMaxIterations(t *testing.T) {
	loader := mapLoader{"main.ptpl": `%while true
x
%endwhile
`}
	nodes, err := Parse(loader["main.ptpl"])
	require.NoError(t, err)
	r := NewRenderer(loader)
	_, _, err = r.Render("main.ptpl", nodes, NewScope(nil))
	require.Error(t, err)
	assert.ErrorContains(t, err, "exceeded")
}
