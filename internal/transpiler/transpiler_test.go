package transpiler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
)

var fixedTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func decodeScript(t *testing.T, doc string) *ast.Script {
	t.Helper()
	s, err := ast.DecodeScript([]byte(doc), "Test.bxs", ast.FormatYAML)
	require.NoError(t, err)
	return s
}

func newTestTranspiler(opts ...Option) *Transpiler {
	base := []Option{WithClassName("Test"), WithPackage("ortus.test"), WithCompiledOn(fixedTime)}
	return New(append(base, opts...)...)
}

func transpile(t *testing.T, doc string, opts ...Option) *TranspiledCode {
	t.Helper()
	code, err := newTestTranspiler(opts...).Transpile(decodeScript(t, doc))
	require.NoError(t, err)
	return code
}

func transpileErr(t *testing.T, doc string, opts ...Option) error {
	t.Helper()
	_, err := newTestTranspiler(opts...).Transpile(decodeScript(t, doc))
	require.Error(t, err)
	return err
}

// invokeBody returns the top-level statements of the unit's _invoke.
func invokeBody(t *testing.T, code *TranspiledCode) []string {
	t.Helper()
	require.NotNil(t, code.Unit.Class)
	m := code.Unit.Class.Method("_invoke")
	require.NotNil(t, m, "no _invoke method")
	out := make([]string, len(m.Body))
	for i, s := range m.Body {
		out[i] = s.Text
	}
	return out
}

// result extracts the expression returned by the last statement.
func result(t *testing.T, code *TranspiledCode) string {
	t.Helper()
	body := invokeBody(t, code)
	require.NotEmpty(t, body)
	last := body[len(body)-1]
	require.True(t, strings.HasPrefix(last, "return "), "last statement %q is not a return", last)
	return strings.TrimSuffix(strings.TrimPrefix(last, "return "), ";")
}

func exprDoc(expr string) string {
	return "ASTType: BoxScript\nstatements:\n  - ASTType: BoxExpressionStatement\n    expression: " + expr + "\n"
}

func TestRegistryCoversEveryKind(t *testing.T) {
	r := NewRegistry()
	for _, k := range ast.KnownKinds() {
		_, err := r.Resolve(k)
		if IsStructural(k) {
			if !diagnostics.HasCode(err, diagnostics.UnsupportedNodeKind) {
				t.Errorf("structural kind %s resolved: %v", k, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("no transformer for %s: %v", k, err)
		}
	}
	_, err := r.Resolve("BoxSpaceship")
	assert.True(t, diagnostics.HasCode(err, diagnostics.UnsupportedNodeKind))
}

func TestRegistryOverride(t *testing.T) {
	custom := exprFunc[*ast.NullLiteral](func(tr *Transpiler, n *ast.NullLiteral, tc TransformContext) (*java.Expr, error) {
		return renderExpr("NullValue.INSTANCE")
	})
	r := NewRegistryWith(map[ast.Kind]Transformer{ast.KindNull: custom})
	code := transpile(t, exprDoc("{ASTType: BoxNull}"), WithRegistry(r))
	assert.Equal(t, "NullValue.INSTANCE", result(t, code))
	assert.Equal(t, len(NewRegistry().Kinds()), len(r.Kinds()))
}

func TestBinaryPlus(t *testing.T) {
	code := transpile(t, exprDoc("{ASTType: BoxBinaryOperation, operator: Plus, left: {ASTType: BoxIdentifier, name: a}, right: {ASTType: BoxIdentifier, name: b}}"))
	want := "Plus.invoke(context.scopeFindNearby(Test.keys[0], null).value(), context.scopeFindNearby(Test.keys[1], null).value())"
	assert.Equal(t, want, result(t, code))
	assert.Equal(t, []string{"a", "b"}, code.Keys)
}

func TestCompoundAssignment(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    op: PlusEqual
    left: {ASTType: BoxIdentifier, name: x}
    right: {ASTType: BoxIntegerLiteral, value: 1}
`)
	body := invokeBody(t, code)
	require.Len(t, body, 2)
	assert.Equal(t, "Plus.invoke(context.scopeFindNearby(Test.keys[0], context.getDefaultAssignmentScope()).scope(), Test.keys[0], 1);", body[0])
	assert.Equal(t, "return null;", body[1])
}

func TestLeftAndRightDiffer(t *testing.T) {
	s := decodeScript(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    left: {ASTType: BoxIdentifier, name: x}
    right: {ASTType: BoxIdentifier, name: x}
`)
	target := s.Statements[0].(*ast.Assignment).Targets[0]
	tr := newTestTranspiler()

	right, err := tr.Expression(target, Right)
	require.NoError(t, err)
	left, err := tr.Expression(target, Left)
	require.NoError(t, err)

	assert.Equal(t, "context.scopeFindNearby(Test.keys[0], null).value()", right.String())
	assert.Equal(t, "Referencer.set(context, context.scopeFindNearby(Test.keys[0], context.getDefaultAssignmentScope()).scope(), Test.keys[0])", left.String())
	require.NotNil(t, left.Call())
	assert.Equal(t, "set", left.Call().Name)
}

func TestAssignmentStoresValue(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    modifiers: [var]
    left:
      ASTType: BoxDotAccess
      context: {ASTType: BoxScope, name: variables}
      access: {ASTType: BoxIdentifier, name: total}
    right: {ASTType: BoxIntegerLiteral, value: 10}
`)
	body := invokeBody(t, code)
	assert.Equal(t, "Referencer.set(context, context.getScopeNearby(Test.keys[1]), Test.keys[0], 10);", body[0])
	assert.Equal(t, []string{"total", "variables"}, code.Keys)
}

func TestVarAssignmentUsesLocalScope(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    modifiers: [var]
    left: {ASTType: BoxIdentifier, name: y}
    right: {ASTType: BoxStringLiteral, value: "v"}
`)
	assert.Equal(t, `Referencer.set(context, context.getScopeNearby(LocalScope.name), Test.keys[0], "v");`, invokeBody(t, code)[0])
}

func TestMultipleTargetsEvaluateOnce(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    left: [{ASTType: BoxIdentifier, name: a}, {ASTType: BoxIdentifier, name: b}]
    right: {ASTType: BoxFunctionInvocation, name: now}
`)
	body := invokeBody(t, code)
	require.Len(t, body, 4)
	assert.Equal(t, "Object assignment1 = context.invokeFunction(Test.keys[0], new Object[] {});", body[0])
	assert.True(t, strings.HasSuffix(body[1], ", Test.keys[1], assignment1);"), body[1])
	assert.True(t, strings.HasSuffix(body[2], ", Test.keys[2], assignment1);"), body[2])
}

func TestIllegalOperators(t *testing.T) {
	tests := []struct {
		name, doc string
	}{
		{"power assignment", `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    op: PowerEqual
    left: {ASTType: BoxIdentifier, name: x}
    right: {ASTType: BoxIntegerLiteral, value: 2}
`},
		{"backslash assignment", `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    op: BackslashEqual
    left: {ASTType: BoxIdentifier, name: x}
    right: {ASTType: BoxIntegerLiteral, value: 2}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transpileErr(t, tt.doc)
			if !diagnostics.HasCode(err, diagnostics.IllegalOperator) {
				t.Fatalf("want IllegalOperator, got %v", err)
			}
		})
	}
}

func TestAssigningToLiteralIsUnsupported(t *testing.T) {
	err := transpileErr(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    left: {ASTType: BoxIntegerLiteral, value: 1}
    right: {ASTType: BoxIntegerLiteral, value: 2}
`)
	assert.True(t, diagnostics.HasCode(err, diagnostics.UnsupportedNodeKind), err)
}

func TestForInWithVar(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxForIn
    hasVar: true
    variable: {ASTType: BoxIdentifier, name: item}
    expression: {ASTType: BoxIdentifier, name: list}
    body:
      - ASTType: BoxAssignment
        op: PlusEqual
        left: {ASTType: BoxIdentifier, name: total}
        right: {ASTType: BoxIdentifier, name: item}
`)
	body := invokeBody(t, code)
	require.Len(t, body, 3)
	assert.Equal(t, "Iterator forInIterator1 = CollectionCaster.cast(context.scopeFindNearby(Test.keys[0], null).value()).iterator();", body[0])
	assert.Contains(t, body[1], "while (forInIterator1.hasNext()) {")
	assert.Contains(t, body[1], "Referencer.set(context, context.getScopeNearby(LocalScope.name), Test.keys[1], forInIterator1.next());")
	assert.Contains(t, body[1], "Plus.invoke(context.scopeFindNearby(Test.keys[2], context.getDefaultAssignmentScope()).scope(), Test.keys[2], context.scopeFindNearby(Test.keys[1], null).value());")
}

func TestForInIteratorsAreUnique(t *testing.T) {
	loop := `
  - ASTType: BoxForIn
    variable: {ASTType: BoxIdentifier, name: i}
    expression: {ASTType: BoxIdentifier, name: xs}
    body:
      - ASTType: BoxForIn
        variable: {ASTType: BoxIdentifier, name: j}
        expression: {ASTType: BoxIdentifier, name: ys}
`
	code := transpile(t, "ASTType: BoxScript\nstatements:"+loop+loop)
	src := code.Source()
	for _, name := range []string{"forInIterator1", "forInIterator2", "forInIterator3", "forInIterator4"} {
		assert.Equal(t, 1, strings.Count(src, "Iterator "+name+" ="), name)
	}
}

func TestFunctionRegistrationIsHoisted(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxExpressionStatement
    expression: {ASTType: BoxFunctionInvocation, name: foo, arguments: [{ASTType: BoxArgument, value: {ASTType: BoxIntegerLiteral, value: 1}}]}
  - ASTType: BoxFunctionDeclaration
    name: foo
    args: [{ASTType: BoxArgumentDeclaration, name: a}]
    body:
      - ASTType: BoxReturn
        expression: {ASTType: BoxIdentifier, name: a}
`)
	body := invokeBody(t, code)
	require.Len(t, body, 2)
	assert.Equal(t, "context.registerUDF(Test.Func_foo.getInstance());", body[0])
	assert.Equal(t, "return context.invokeFunction(Test.keys[0], new Object[] { 1 });", body[1])
	assert.Equal(t, []string{"Func_foo"}, code.Callables)

	fn := code.Unit.Class.Nested("Func_foo")
	require.NotNil(t, fn)
	assert.Equal(t, "UDF", fn.Extends)
	invoke := fn.Method("_invoke")
	require.NotNil(t, invoke)
	require.Len(t, invoke.Body, 1)
	assert.Equal(t, "return context.scopeFindNearby(Test.keys[1], null).value();", invoke.Body[0].Text)
}

func TestRegistrationHoistedInsideFunctionBodies(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxFunctionDeclaration
    name: outer
    body:
      - ASTType: BoxExpressionStatement
        expression: {ASTType: BoxFunctionInvocation, name: inner}
      - ASTType: BoxFunctionDeclaration
        name: inner
`)
	outer := code.Unit.Class.Nested("Func_outer")
	require.NotNil(t, outer)
	body := outer.Method("_invoke").Body
	require.Len(t, body, 3)
	assert.Equal(t, "context.registerUDF(Test.Func_inner.getInstance());", body[0].Text)
	assert.Equal(t, "return null;", body[2].Text)
}

func TestDuplicateFunction(t *testing.T) {
	err := transpileErr(t, `
ASTType: BoxScript
statements:
  - {ASTType: BoxFunctionDeclaration, name: foo}
  - {ASTType: BoxFunctionDeclaration, name: FOO}
`)
	assert.True(t, diagnostics.HasCode(err, diagnostics.DuplicateFunction), err)
}

func TestBreakInsideComponentUsesSentinel(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxWhile
    condition: {ASTType: BoxBooleanLiteral, value: true}
    body:
      - ASTType: BoxComponent
        name: lock
        attributes:
          - {ASTType: BoxAnnotation, key: name, value: {ASTType: BoxStringLiteral, value: "mylock"}}
        body:
          - {ASTType: BoxBreak}
`)
	loop := invokeBody(t, code)[0]
	assert.Contains(t, loop, "Component.BodyResult componentResult1 = context.invokeComponent(Test.keys[0], Struct.linkedOf(Test.keys[1], \"mylock\"), (componentContext1) -> {")
	assert.Contains(t, loop, "return Component.BodyResult.ofBreak(null);")
	assert.NotContains(t, loop, "DEFAULT_RETURN")
	assert.Contains(t, loop, "if (componentResult1.isBreak()) {\n        break;\n    }")
}

func TestBreakInLoopIsNative(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxWhile
    condition: {ASTType: BoxBooleanLiteral, value: true}
    body: [{ASTType: BoxBreak}]
`)
	assert.Equal(t, "while (true) {\n    break;\n}", invokeBody(t, code)[0])
}

func TestNestedComponentsPropagateEarlyExit(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxWhile
    condition: {ASTType: BoxBooleanLiteral, value: true}
    body:
      - ASTType: BoxComponent
        name: outer
        body:
          - ASTType: BoxComponent
            name: inner
            body: [{ASTType: BoxContinue}]
`)
	src := invokeBody(t, code)[0]
	assert.Contains(t, src, "if (componentResult2.isEarlyExit()) {")
	assert.Contains(t, src, "return componentResult2;")
	assert.Contains(t, src, "if (componentResult1.isContinue()) {")
	assert.Contains(t, src, "continue;")
}

func TestReturnInsideComponent(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxComponent
    name: transaction
    body:
      - ASTType: BoxReturn
        expression: {ASTType: BoxIntegerLiteral, value: 5}
`)
	body := invokeBody(t, code)
	joined := strings.Join(body, "\n")
	assert.Contains(t, joined, "return Component.BodyResult.ofReturn(5);")
	assert.Contains(t, joined, "if (componentResult1.isReturn()) {\n    return componentResult1.returnValue();\n}")
}

func TestBodylessComponent(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - {ASTType: BoxComponent, name: flush}
`)
	assert.Equal(t, "context.invokeComponent(Test.keys[0], Struct.EMPTY, null);", invokeBody(t, code)[0])
}

func TestContinueAcrossSwitchUsesLabel(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxWhile
    condition: {ASTType: BoxBooleanLiteral, value: true}
    body:
      - ASTType: BoxSwitch
        condition: {ASTType: BoxIdentifier, name: x}
        cases:
          - ASTType: BoxSwitchCase
            condition: {ASTType: BoxIntegerLiteral, value: 1}
            body: [{ASTType: BoxContinue}]
          - ASTType: BoxSwitchCase
            body: [{ASTType: BoxBreak}]
`)
	body := invokeBody(t, code)
	require.Len(t, body, 1, "nothing may follow a loop that never completes")
	loop := body[0]
	assert.True(t, strings.HasPrefix(loop, "loop1: while (true) {"), loop)
	assert.Contains(t, loop, "continue loop1;")
	assert.Contains(t, loop, "Object switchValue1 = context.scopeFindNearby(Test.keys[0], null).value();")
	assert.Contains(t, loop, "if (switchMatched1 || EqualsEquals.invoke(switchValue1, 1)) {")
	assert.Contains(t, loop, "} while (false);")
}

func TestSwitchWithTwoDefaults(t *testing.T) {
	err := transpileErr(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxSwitch
    condition: {ASTType: BoxIdentifier, name: x}
    cases:
      - {ASTType: BoxSwitchCase}
      - {ASTType: BoxSwitchCase}
`)
	assert.True(t, diagnostics.HasCode(err, diagnostics.MalformedAST), err)
}

func TestMisplacedStatements(t *testing.T) {
	tests := []struct {
		name, stmt string
	}{
		{"break", "{ASTType: BoxBreak}"},
		{"continue", "{ASTType: BoxContinue}"},
		{"labelled break", "{ASTType: BoxBreak, label: outer}"},
		{"rethrow", "{ASTType: BoxRethrow}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transpileErr(t, "ASTType: BoxScript\nstatements:\n  - "+tt.stmt+"\n")
			if !diagnostics.HasCode(err, diagnostics.MisplacedStatement) {
				t.Fatalf("want MisplacedStatement, got %v", err)
			}
		})
	}
}

func TestBreakDoesNotCrossFunction(t *testing.T) {
	err := transpileErr(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxWhile
    condition: {ASTType: BoxBooleanLiteral, value: true}
    body:
      - ASTType: BoxFunctionDeclaration
        name: f
        body: [{ASTType: BoxBreak}]
`)
	assert.True(t, diagnostics.HasCode(err, diagnostics.MisplacedStatement), err)
}

const tryDoc = `
ASTType: BoxScript
statements:
  - ASTType: BoxTry
    tryBody:
      - {ASTType: BoxExpressionStatement, expression: {ASTType: BoxFunctionInvocation, name: risky}}
    catches:
      - ASTType: BoxTryCatch
        exception: {ASTType: BoxIdentifier, name: e}
        catchTypes: [{ASTType: BoxFQN, value: "java.lang.RuntimeException"}]
        catchBody:
          - {ASTType: BoxExpressionStatement, expression: {ASTType: BoxFunctionInvocation, name: handle}}
          - {ASTType: BoxRethrow}
    finallyBody:
      - {ASTType: BoxExpressionStatement, expression: {ASTType: BoxFunctionInvocation, name: cleanup}}
`

func TestTryCatchFinally(t *testing.T) {
	tr := newTestTranspiler()
	code, err := tr.Transpile(decodeScript(t, tryDoc))
	require.NoError(t, err)
	src := invokeBody(t, code)[0]
	for _, want := range []string{
		"try {\n    context.invokeFunction(Test.keys[0], new Object[] {});\n}",
		"catch (AbortException e) {\n    throw e;\n}",
		"catch (Throwable e1) {",
		`if (ExceptionUtil.exceptionIsOfType(context, e1, "java.lang.RuntimeException")) {`,
		"CatchBoxContext catchContext1_1 = new CatchBoxContext(context, Test.keys[1], e1);",
		"catchContext1_1.invokeFunction(Test.keys[2], new Object[] {});",
		"ExceptionUtil.throwException(e1);",
		"} else {",
		"} finally {\n    context.invokeFunction(Test.keys[3], new Object[] {});\n}",
	} {
		assert.Contains(t, src, want)
	}
	assert.Equal(t, 0, tr.State().ContextDepth(), "context stack must be balanced")
	assert.Empty(t, tr.State().catchVars)
}

func TestCatchMustBindIdentifier(t *testing.T) {
	err := transpileErr(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxTry
    catches:
      - ASTType: BoxTryCatch
        exception: {ASTType: BoxStringLiteral, value: "e"}
`)
	assert.True(t, diagnostics.HasCode(err, diagnostics.MalformedExceptionBinding), err)
}

func TestContextStackBalancedAfterError(t *testing.T) {
	tr := newTestTranspiler()
	_, err := tr.Transpile(decodeScript(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxTry
    catches:
      - ASTType: BoxTryCatch
        exception: {ASTType: BoxIdentifier, name: e}
        catchBody:
          - ASTType: BoxAssignment
            op: PowerEqual
            left: {ASTType: BoxIdentifier, name: x}
            right: {ASTType: BoxIntegerLiteral, value: 1}
`))
	require.Error(t, err)
	assert.Equal(t, 0, tr.State().ContextDepth())
}

func TestNamedArgumentsBindInDeclaredOrder(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxFunctionDeclaration
    name: greet
    args:
      - {ASTType: BoxArgumentDeclaration, name: name, required: true, type: string}
      - {ASTType: BoxArgumentDeclaration, name: greeting}
  - ASTType: BoxExpressionStatement
    expression:
      ASTType: BoxFunctionInvocation
      name: greet
      arguments:
        - {ASTType: BoxArgument, name: mood, value: {ASTType: BoxStringLiteral, value: "ok"}}
        - {ASTType: BoxArgument, name: GREETING, value: {ASTType: BoxStringLiteral, value: "hi"}}
        - {ASTType: BoxArgument, value: {ASTType: BoxStringLiteral, value: "Bob"}}
`)
	got := result(t, code)
	require.True(t, strings.HasPrefix(got, "context.invokeFunction("), got)
	bob, hi, ok := strings.Index(got, `"Bob"`), strings.Index(got, `"hi"`), strings.Index(got, `"ok"`)
	if !(bob < hi && hi < ok) {
		t.Errorf("arguments not in declared order: %s", got)
	}
	assert.Contains(t, got, "Struct.linkedOf(")
}

func TestNamedArgumentsForUnknownCallee(t *testing.T) {
	code := transpile(t, exprDoc(`
      ASTType: BoxFunctionInvocation
      name: other
      arguments:
        - {ASTType: BoxArgument, value: {ASTType: BoxIntegerLiteral, value: 7}}
        - {ASTType: BoxArgument, name: x, value: {ASTType: BoxIntegerLiteral, value: 8}}`))
	assert.Equal(t, "context.invokeFunction(Test.keys[0], Struct.linkedOf(Test.keys[1], 7, Test.keys[2], 8))", result(t, code))
	assert.Equal(t, []string{"other", "1", "x"}, code.Keys)
}

func TestNegatedBooleanQuoting(t *testing.T) {
	doc := exprDoc("{ASTType: BoxUnaryOperation, operator: Not, expr: {ASTType: BoxBooleanLiteral, value: true}}")
	assert.Equal(t, `Not.invoke("true")`, result(t, transpile(t, doc)))
	assert.Equal(t, "Not.invoke(true)", result(t, transpile(t, doc, WithQuotedNegatedBooleans(false))))
}

func TestDeterministicOutput(t *testing.T) {
	a := transpile(t, tryDoc)
	b := transpile(t, tryDoc)
	assert.Equal(t, a.Source(), b.Source())
	assert.NotEqual(t, a.CompileID, b.CompileID)
}

func TestKeysAreDeduplicated(t *testing.T) {
	code := transpile(t, exprDoc(`
      ASTType: BoxBinaryOperation
      operator: Concat
      left: {ASTType: BoxIdentifier, name: name}
      right:
        ASTType: BoxDotAccess
        context: {ASTType: BoxIdentifier, name: name}
        access: {ASTType: BoxIdentifier, name: Name}`))
	assert.Equal(t, []string{"name", "Name"}, code.Keys)
	assert.Contains(t, code.Source(), `public static final Key[] keys = new Key[] { Key.of("name"), Key.of("Name") };`)
}

func TestUnitShell(t *testing.T) {
	s := decodeScript(t, exprDoc("{ASTType: BoxNull}"))
	code, err := New(WithSourcePath("app/views/index.bxs"), WithCompiledOn(fixedTime)).Transpile(s)
	require.NoError(t, err)

	assert.Equal(t, "Index$bxs", code.ClassName)
	assert.Equal(t, "app.views", code.Package)
	u := code.Unit
	assert.Equal(t, "app.views", u.Package)
	assert.Equal(t, "Index$bxs", u.Class.Name)
	assert.Equal(t, "BoxTemplate", u.Class.Extends)
	assert.Contains(t, u.Imports, "ortus.boxlang.runtime.operators.*")
	for _, field := range []string{"instance", "imports", "path", "sourceType", "compileVersion", "compiledOn", "ast", "keys", "classLocator"} {
		assert.NotNil(t, u.Class.Field(field), field)
	}
	assert.Contains(t, u.Source, "private static final long compileVersion = 1004000L;")
	assert.Contains(t, u.Source, `LocalDateTime.parse("2024-03-01T12:30:00")`)
	assert.Contains(t, u.Source, `Paths.get("app/views/index.bxs")`)
	assert.Equal(t, []string{"return null;"}, invokeBody(t, code))
}

func TestVoidReturnType(t *testing.T) {
	code := transpile(t, exprDoc("{ASTType: BoxFunctionInvocation, name: run}"), WithReturnType("void"))
	assert.Equal(t, []string{"context.invokeFunction(Test.keys[0], new Object[] {});"}, invokeBody(t, code))
	assert.Contains(t, code.Source(), "public void _invoke(IBoxContext context) {")
}

func TestInvalidCompileVersion(t *testing.T) {
	err := transpileErr(t, exprDoc("{ASTType: BoxNull}"), WithCompileVersion("banana"))
	assert.True(t, diagnostics.HasCode(err, diagnostics.InvalidConfig), err)
}

func TestSourceMap(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    position: {start: {line: 3, column: 0}}
    left: {ASTType: BoxIdentifier, name: a}
    right: {ASTType: BoxIntegerLiteral, value: 1}
  - ASTType: BoxExpressionStatement
    position: {start: {line: 4, column: 0}}
    expression: {ASTType: BoxIdentifier, name: a}
`)
	m := code.Unit.SourceMap
	require.Len(t, m, 2)
	assert.Equal(t, 3, m[0].SourceLine)
	assert.Equal(t, 4, m[1].SourceLine)
	assert.Equal(t, m[0].JavaLine+1, m[1].JavaLine)
	lines := strings.Split(code.Source(), "\n")
	assert.Contains(t, lines[m[1].JavaLine-1], "return context.scopeFindNearby(")
}

func TestImportAlias(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - {ASTType: BoxImport, expression: "java:java.lang.System"}
  - ASTType: BoxExpressionStatement
    expression: {ASTType: BoxIdentifier, name: system}
`)
	assert.Equal(t, `classLocator.load(context, "java:java.lang.System", imports)`, result(t, code))
	assert.Contains(t, code.Source(), `List.of(new ImportDefinition("java.lang.System", "java", "System"))`)
}

func TestClosureAndLambda(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    left: {ASTType: BoxIdentifier, name: c}
    right:
      ASTType: BoxClosure
      args: [{ASTType: BoxArgumentDeclaration, name: n, value: {ASTType: BoxIntegerLiteral, value: 2}}]
      body:
        - ASTType: BoxReturn
          expression: {ASTType: BoxIdentifier, name: n}
  - ASTType: BoxExpressionStatement
    expression: {ASTType: BoxLambda}
`)
	assert.Equal(t, []string{"Closure_1", "Lambda_1"}, code.Callables)
	assert.Contains(t, invokeBody(t, code)[0], "new Test.Closure_1(context));")
	assert.Equal(t, "Test.Lambda_1.getInstance()", result(t, code))

	cl := code.Unit.Class.Nested("Closure_1")
	require.NotNil(t, cl)
	assert.Equal(t, "Closure", cl.Extends)
	args := cl.Field("arguments")
	require.NotNil(t, args)
	assert.Contains(t, args.Text, `new Argument(false, "any", Test.keys[`)
	assert.Contains(t, args.Text, ", 2, Struct.EMPTY)")
}

func TestNonLiteralDefaultIsDeferred(t *testing.T) {
	code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxFunctionDeclaration
    name: f
    accessModifier: private
    args:
      - ASTType: BoxArgumentDeclaration
        name: when
        value: {ASTType: BoxFunctionInvocation, name: now}
`)
	fn := code.Unit.Class.Nested("Func_f")
	require.NotNil(t, fn)
	assert.Contains(t, fn.Field("arguments").Text, "(DefaultExpression) (IBoxContext context) -> context.invokeFunction(")
	assert.Contains(t, fn.Field("access").Text, "Access.PRIVATE")
}

func TestUnknownAccessModifier(t *testing.T) {
	err := transpileErr(t, `
ASTType: BoxScript
statements:
  - {ASTType: BoxFunctionDeclaration, name: f, accessModifier: secret}
`)
	assert.True(t, diagnostics.HasCode(err, diagnostics.MalformedAST), err)
}

func TestTransformErrorsCarrySource(t *testing.T) {
	err := transpileErr(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxAssignment
    sourceText: "x ^= 2"
    position: {start: {line: 7, column: 2}}
    op: PowerEqual
    left: {ASTType: BoxIdentifier, name: x}
    right: {ASTType: BoxIntegerLiteral, value: 2}
`)
	var de *diagnostics.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 7, de.Span.Line)
	assert.Equal(t, "x ^= 2", de.SourceText)
}

func TestUnreachableReturnIsOmitted(t *testing.T) {
	t.Run("if and else both return", func(t *testing.T) {
		code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxFunctionDeclaration
    name: pick
    body:
      - ASTType: BoxIfElse
        condition: {ASTType: BoxIdentifier, name: x}
        thenBody: [{ASTType: BoxReturn, expression: {ASTType: BoxIntegerLiteral, value: 1}}]
        elseBody: [{ASTType: BoxReturn, expression: {ASTType: BoxIntegerLiteral, value: 2}}]
`)
		body := code.Unit.Class.Nested("Func_pick").Method("_invoke").Body
		require.Len(t, body, 1)
		assert.NotContains(t, body[0].Text, "return null;")
		assert.Contains(t, body[0].Text, "} else {\n    return 2;\n}")
	})

	t.Run("if without else still falls through", func(t *testing.T) {
		code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxFunctionDeclaration
    name: pick
    body:
      - ASTType: BoxIfElse
        condition: {ASTType: BoxIdentifier, name: x}
        thenBody: [{ASTType: BoxReturn, expression: {ASTType: BoxIntegerLiteral, value: 1}}]
`)
		body := code.Unit.Class.Nested("Func_pick").Method("_invoke").Body
		require.Len(t, body, 2)
		assert.Equal(t, "return null;", body[1].Text)
	})

	t.Run("endless loop", func(t *testing.T) {
		code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxWhile
    condition: {ASTType: BoxBooleanLiteral, value: true}
    body:
      - ASTType: BoxExpressionStatement
        expression: {ASTType: BoxFunctionInvocation, name: tick}
`)
		assert.Equal(t, []string{"while (true) {\n    context.invokeFunction(Test.keys[0], new Object[] {});\n}"}, invokeBody(t, code))
	})

	t.Run("endless loop inside a component", func(t *testing.T) {
		code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxComponent
    name: thread
    body:
      - ASTType: BoxWhile
        condition: {ASTType: BoxBooleanLiteral, value: true}
        body:
          - ASTType: BoxExpressionStatement
            expression: {ASTType: BoxFunctionInvocation, name: tick}
`)
		body := invokeBody(t, code)
		assert.NotContains(t, body[0], "DEFAULT_RETURN")
		assert.Equal(t, "return null;", body[len(body)-1])
	})

	t.Run("finally returns", func(t *testing.T) {
		code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxFunctionDeclaration
    name: settle
    body:
      - ASTType: BoxTry
        tryBody:
          - ASTType: BoxExpressionStatement
            expression: {ASTType: BoxFunctionInvocation, name: work}
        finallyBody: [{ASTType: BoxReturn, expression: {ASTType: BoxIntegerLiteral, value: 0}}]
`)
		body := code.Unit.Class.Nested("Func_settle").Method("_invoke").Body
		require.Len(t, body, 1)
		assert.Contains(t, body[0].Text, "} finally {\n    return 0;\n}")
	})

	t.Run("catch can complete", func(t *testing.T) {
		code := transpile(t, `
ASTType: BoxScript
statements:
  - ASTType: BoxFunctionDeclaration
    name: settle
    body:
      - ASTType: BoxTry
        tryBody: [{ASTType: BoxReturn, expression: {ASTType: BoxIntegerLiteral, value: 1}}]
        catches:
          - ASTType: BoxTryCatch
            exception: {ASTType: BoxIdentifier, name: e}
            catchBody: [{ASTType: BoxReturn, expression: {ASTType: BoxIntegerLiteral, value: 2}}]
`)
		// The unmatched branch rethrows through a helper call, which Java
		// treats as completing normally.
		body := code.Unit.Class.Nested("Func_settle").Method("_invoke").Body
		require.Len(t, body, 2)
		assert.Equal(t, "return null;", body[1].Text)
	})
}

func TestConditionsAreCoercedToBoolean(t *testing.T) {
	cond := "{ASTType: BoxIdentifier, name: more}"
	call := "{ASTType: BoxExpressionStatement, expression: {ASTType: BoxFunctionInvocation, name: tick}}"
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "if",
			doc:  "{ASTType: BoxIfElse, condition: " + cond + ", thenBody: [" + call + "]}",
			want: "if (BooleanCaster.cast(context.scopeFindNearby(Test.keys[0], null).value())) {\n    context.invokeFunction(Test.keys[1], new Object[] {});\n}",
		},
		{
			name: "while",
			doc:  "{ASTType: BoxWhile, condition: " + cond + ", body: [" + call + "]}",
			want: "while (BooleanCaster.cast(context.scopeFindNearby(Test.keys[0], null).value())) {\n    context.invokeFunction(Test.keys[1], new Object[] {});\n}",
		},
		{
			name: "do",
			doc:  "{ASTType: BoxDo, condition: " + cond + ", body: [" + call + "]}",
			want: "do {\n    context.invokeFunction(Test.keys[0], new Object[] {});\n} while (BooleanCaster.cast(context.scopeFindNearby(Test.keys[1], null).value()));",
		},
		{
			name: "do with a comparison",
			doc:  "{ASTType: BoxDo, condition: {ASTType: BoxComparisonOperation, operator: LessThan, left: " + cond + ", right: {ASTType: BoxIntegerLiteral, value: 3}}, body: [" + call + "]}",
			want: "do {\n    context.invokeFunction(Test.keys[0], new Object[] {});\n} while (LessThan.invoke(context.scopeFindNearby(Test.keys[1], null).value(), 3));",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := transpile(t, "ASTType: BoxScript\nstatements:\n  - "+tt.doc+"\n")
			assert.Equal(t, []string{tt.want, "return null;"}, invokeBody(t, code))
		})
	}
}

func TestRuntimeStatements(t *testing.T) {
	x := "{ASTType: BoxIdentifier, name: x}"
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "throw",
			doc:  "{ASTType: BoxThrow, expression: " + x + "}",
			want: "ExceptionUtil.throwException(context, context.scopeFindNearby(Test.keys[0], null).value());",
		},
		{
			name: "assert",
			doc:  "{ASTType: BoxAssert, expression: {ASTType: BoxComparisonOperation, operator: Equal, left: " + x + ", right: {ASTType: BoxIntegerLiteral, value: 1}}}",
			want: "Assert.invoke(context, EqualsEquals.invoke(context.scopeFindNearby(Test.keys[0], null).value(), 1));",
		},
		{
			name: "param with type and default",
			doc:  `{ASTType: BoxParam, variable: user, type: {ASTType: BoxStringLiteral, value: "string"}, defaultValue: {ASTType: BoxStringLiteral, value: "guest"}}`,
			want: `Param.invoke(context, "user", "string", "guest");`,
		},
		{
			name: "bare param",
			doc:  "{ASTType: BoxParam, variable: user}",
			want: `Param.invoke(context, "user", null, null);`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := transpile(t, "ASTType: BoxScript\nstatements:\n  - "+tt.doc+"\n")
			assert.Equal(t, []string{tt.want, "return null;"}, invokeBody(t, code))
		})
	}
}

const forIndexContinueDoc = `
ASTType: BoxScript
statements:
  - ASTType: BoxForIndex
    initializer:
      ASTType: BoxAssignment
      left: {ASTType: BoxIdentifier, name: i}
      right: {ASTType: BoxIntegerLiteral, value: 0}
    condition:
      ASTType: BoxComparisonOperation
      operator: LessThan
      left: {ASTType: BoxIdentifier, name: i}
      right: {ASTType: BoxIntegerLiteral, value: 5}
    step:
      ASTType: BoxUnaryOperation
      operator: PostPlusPlus
      expr: {ASTType: BoxIdentifier, name: i}
    body:
%s
`

// A continue in an indexed loop must stay inside the for header's reach so
// the step still runs before the next test.
func TestForIndexContinueRunsStep(t *testing.T) {
	const step = "Increment.invokePost(context.scopeFindNearby(Test.keys[0], context.getDefaultAssignmentScope()).scope(), Test.keys[0])"
	const header = "for (; LessThan.invoke(context.scopeFindNearby(Test.keys[0], null).value(), 5); " + step + ") {"

	t.Run("plain", func(t *testing.T) {
		code := transpile(t, fmt.Sprintf(forIndexContinueDoc, "      - {ASTType: BoxContinue}"))
		body := invokeBody(t, code)
		require.Len(t, body, 3)
		assert.Equal(t, "Referencer.set(context, context.scopeFindNearby(Test.keys[0], context.getDefaultAssignmentScope()).scope(), Test.keys[0], 0);", body[0])
		assert.Equal(t, header+"\n    continue;\n}", body[1])
		assert.Equal(t, 1, strings.Count(body[1], step), "the step runs only from the for header")
	})

	t.Run("across a switch", func(t *testing.T) {
		code := transpile(t, fmt.Sprintf(forIndexContinueDoc, `      - ASTType: BoxSwitch
        condition: {ASTType: BoxIdentifier, name: i}
        cases:
          - ASTType: BoxSwitchCase
            condition: {ASTType: BoxIntegerLiteral, value: 2}
            body: [{ASTType: BoxContinue}]`))
		loop := invokeBody(t, code)[1]
		assert.True(t, strings.HasPrefix(loop, "loop1: "+header), loop)
		assert.Contains(t, loop, "continue loop1;")
		assert.Equal(t, 1, strings.Count(loop, step))
	})
}
