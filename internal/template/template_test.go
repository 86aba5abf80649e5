package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
)

func TestRenderExpression(t *testing.T) {
	e, err := RenderExpression("Plus.invoke(${left}, ${right})",
		NewValues("left", "a", "right", "b"))
	require.NoError(t, err)
	assert.Equal(t, "Plus.invoke(a, b)", e.String())
	assert.Equal(t, "method_invocation", e.Kind())
}

func TestRenderStatement(t *testing.T) {
	s, err := RenderStatement("while (${cond}) {${body}}",
		NewValues("cond", "x", "body", "a();\nb();"))
	require.NoError(t, err)
	assert.Equal(t, "while (x) {\n    a();\n    b();\n}", s.String())
}

func TestSubstitutionIsSinglePass(t *testing.T) {
	got, err := Substitute("${a}${b}", NewValues("a", "${b}", "b", "x"))
	require.NoError(t, err)
	assert.Equal(t, "${b}x", got)
}

func TestEmptySubstitutionStillParses(t *testing.T) {
	s, err := RenderStatement("for (; ${cond}; ${step}) {${body}}",
		NewValues("cond", "", "step", "", "body", ""))
	require.NoError(t, err)
	assert.Equal(t, "for (;;) {}", s.String())
}

func TestMissingPlaceholder(t *testing.T) {
	_, err := RenderExpression("foo(${x}, ${y})", NewValues("x", "1"))
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.TemplateRenderFailure))

	var de *diagnostics.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "foo(${x}, ${y})", de.Fragment)
	assert.Contains(t, de.Message, "${y}")
}

func TestUnterminatedPlaceholder(t *testing.T) {
	_, err := Substitute("foo(${x", NewValues("x", "1"))
	assert.True(t, diagnostics.HasCode(err, diagnostics.TemplateRenderFailure))
}

func TestUnparseableResult(t *testing.T) {
	_, err := RenderExpression("${a} +", NewValues("a", "1"))
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.TemplateRenderFailure))

	var se *java.SyntaxError
	assert.True(t, errors.As(err, &se), "syntax error must stay reachable")

	var de *diagnostics.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "1 +", de.Fragment)
}

func TestStatementTemplateMustBeOneStatement(t *testing.T) {
	_, err := RenderStatement("${a} ${b}", NewValues("a", "x();", "b", "y();"))
	assert.True(t, diagnostics.HasCode(err, diagnostics.TemplateRenderFailure))

	s, err := RenderStatement("{${a} ${b}}", NewValues("a", "x();", "b", "y();"))
	require.NoError(t, err)
	assert.Len(t, s.Statements(), 2)
}

func TestValuesOrder(t *testing.T) {
	v := NewValues("b", "1", "a", "2")
	v.Set("b", "3").Set("c", "4")
	assert.Equal(t, []string{"b", "a", "c"}, v.Names())
	text, ok := v.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, "3", text)
}

func TestRenderIsDeterministic(t *testing.T) {
	tmpl := "Referencer.get(${ctx}, ${obj}, ${key}, ${safe})"
	values := NewValues("ctx", "context", "obj", "x", "key", "T.keys[0]", "safe", "false")
	first, err := RenderExpression(tmpl, values)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := RenderExpression(tmpl, values)
		require.NoError(t, err)
		assert.Equal(t, first.String(), again.String())
	}
}

func TestRenderDeclaration(t *testing.T) {
	d, err := RenderDeclaration("public static class ${name} extends Lambda {}", NewValues("name", "Lambda_1"))
	require.NoError(t, err)
	assert.Equal(t, "Lambda_1", d.Name())
	assert.Equal(t, "public static class Lambda_1 extends Lambda {}", d.String())
}
