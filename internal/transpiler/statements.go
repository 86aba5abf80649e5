package transpiler

import (
	"fmt"
	"strings"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
)

func script(tr *Transpiler, n *ast.Script, _ TransformContext) (*java.Stmt, error) {
	return tr.block(n.Statements)
}

func statementBlock(tr *Transpiler, n *ast.StatementBlock, _ TransformContext) (*java.Stmt, error) {
	return tr.block(n.Body)
}

// block renders a statement list as a Java block.
func (tr *Transpiler) block(stmts []ast.Stmt) (*java.Stmt, error) {
	b, err := tr.Body(stmts)
	if err != nil {
		return nil, err
	}
	return renderStmt("{${body}}", "body", b.Source())
}

func expressionStatement(tr *Transpiler, n *ast.ExpressionStatement, _ TransformContext) (*java.Stmt, error) {
	e, err := tr.Expression(n.Expression, Right)
	if err != nil {
		return nil, err
	}
	return tr.expressionStatement(e)
}

// expressionStatement makes e legal as a Java statement. Expressions Java
// refuses to stand alone, such as a + b, are evaluated for their side
// effects inside Optional.ofNullable.
func (tr *Transpiler) expressionStatement(e *java.Expr) (*java.Stmt, error) {
	if e.IsStatementExpression() {
		return renderStmt("${expr};", "expr", e.String())
	}
	return renderStmt("Optional.ofNullable(${expr});", "expr", e.String())
}

var compoundOps = map[ast.AssignmentOperator]string{
	ast.AssignPlusEqual:   "Plus",
	ast.AssignMinusEqual:  "Minus",
	ast.AssignStarEqual:   "Multiply",
	ast.AssignSlashEqual:  "Divide",
	ast.AssignModEqual:    "Modulus",
	ast.AssignConcatEqual: "Concat",
}

func assignment(tr *Transpiler, n *ast.Assignment, _ TransformContext) (*java.Stmt, error) {
	op, compound := compoundOps[n.Operator]
	if n.Operator != ast.AssignEqual && !compound {
		return nil, illegalOperator(n, n.Operator)
	}
	if len(n.Targets) == 0 {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(), "assignment without a target")
	}
	right, err := tr.Expression(n.Value, Right)
	if err != nil {
		return nil, err
	}
	value := right.String()

	var out []string
	if len(n.Targets) > 1 {
		tmp := fmt.Sprintf("assignment%d", tr.state.Next(CounterAssignment))
		decl, err := renderStmt("Object ${name} = ${value};", "name", tmp, "value", value)
		if err != nil {
			return nil, err
		}
		out = append(out, decl.String())
		value = tmp
	}
	for _, t := range n.Targets {
		call, err := tr.storeCall(t)
		if err != nil {
			return nil, err
		}
		var s *java.Stmt
		if compound {
			s, err = renderStmt(op+".invoke(${container}, ${key}, ${value});",
				"container", call.Args[1], "key", call.Args[2], "value", value)
		} else {
			s, err = renderStmt("${store};", "store", call.WithArgument(value).String())
		}
		if err != nil {
			return nil, err
		}
		if len(n.Targets) == 1 {
			return s, nil
		}
		out = append(out, s.String())
	}
	return renderStmt("{${body}}", "body", strings.Join(out, "\n"))
}

// Branches and loops

func ifElse(tr *Transpiler, n *ast.IfElse, _ TransformContext) (*java.Stmt, error) {
	cond, err := tr.condition(n.Condition)
	if err != nil {
		return nil, err
	}
	then, err := tr.Body(n.Then)
	if err != nil {
		return nil, err
	}
	if len(n.Else) == 0 {
		return renderStmt("if (${cond}) {${then}}", "cond", cond, "then", then.Source())
	}
	els, err := tr.Body(n.Else)
	if err != nil {
		return nil, err
	}
	return renderStmt("if (${cond}) {${then}} else {${else}}",
		"cond", cond, "then", then.Source(), "else", els.Source())
}

// condition renders a test as a Java boolean.
func (tr *Transpiler) condition(n ast.Expr) (string, error) {
	if n == nil {
		return "", diagnostics.NewError(diagnostics.MalformedAST, diagnostics.Span{}, "missing condition")
	}
	e, err := tr.Expression(n, Right)
	if err != nil {
		return "", err
	}
	return booleanText(n, e), nil
}

func labelPrefix(label string) string {
	if label == "" {
		return ""
	}
	return label + ": "
}

func whileLoop(tr *Transpiler, n *ast.While, _ TransformContext) (*java.Stmt, error) {
	cond, err := tr.condition(n.Condition)
	if err != nil {
		return nil, err
	}
	body, err := tr.Body(n.Body)
	if err != nil {
		return nil, err
	}
	return renderStmt("${label}while (${cond}) {${body}}",
		"label", labelPrefix(tr.state.loopLabel(n)), "cond", cond, "body", body.Source())
}

func doLoop(tr *Transpiler, n *ast.Do, _ TransformContext) (*java.Stmt, error) {
	body, err := tr.Body(n.Body)
	if err != nil {
		return nil, err
	}
	cond, err := tr.condition(n.Condition)
	if err != nil {
		return nil, err
	}
	return renderStmt("${label}do {${body}} while (${cond});",
		"label", labelPrefix(tr.state.loopLabel(n)), "cond", cond, "body", body.Source())
}

func forIn(tr *Transpiler, n *ast.ForIn, _ TransformContext) (*java.Stmt, error) {
	it := fmt.Sprintf("forInIterator%d", tr.state.Next(CounterForIn))
	coll, err := tr.Expression(n.Collection, Right)
	if err != nil {
		return nil, err
	}
	call, err := tr.storeCall(n.Variable)
	if err != nil {
		return nil, err
	}
	body, err := tr.Body(n.Body)
	if err != nil {
		return nil, err
	}
	return renderStmt(`{
Iterator ${it} = CollectionCaster.cast(${collection}).iterator();
${label}while (${it}.hasNext()) {
${assign};
${body}
}
}`,
		"it", it,
		"collection", coll.String(),
		"label", labelPrefix(tr.state.loopLabel(n)),
		"assign", call.WithArgument(it+".next()").String(),
		"body", body.Source())
}

func forIndex(tr *Transpiler, n *ast.ForIndex, _ TransformContext) (*java.Stmt, error) {
	var init, cond, step string
	if n.Initializer != nil {
		s, err := tr.Statement(n.Initializer, None)
		if err != nil {
			return nil, err
		}
		init = s.String()
	}
	if n.Condition != nil {
		c, err := tr.condition(n.Condition)
		if err != nil {
			return nil, err
		}
		cond = c
	}
	if n.Step != nil {
		e, err := tr.Expression(n.Step, Right)
		if err != nil {
			return nil, err
		}
		step = e.String()
		if !e.IsStatementExpression() {
			step = "Optional.ofNullable(" + step + ")"
		}
	}
	body, err := tr.Body(n.Body)
	if err != nil {
		return nil, err
	}
	return renderStmt("{\n${init}\n${label}for (; ${cond}; ${step}) {${body}}\n}",
		"init", init,
		"label", labelPrefix(tr.state.loopLabel(n)),
		"cond", cond,
		"step", step,
		"body", body.Source())
}

// switchStatement compiles to a run-once do/while so that break leaves
// the switch. Once a case matches, every later case falls through.
func switchStatement(tr *Transpiler, n *ast.Switch, _ TransformContext) (*java.Stmt, error) {
	num := tr.state.Next(CounterSwitch)
	value := fmt.Sprintf("switchValue%d", num)
	matched := fmt.Sprintf("switchMatched%d", num)
	subject, err := tr.Expression(n.Condition, Right)
	if err != nil {
		return nil, err
	}
	var cases []string
	var deflt *ast.SwitchCase
	for _, c := range n.Cases {
		if c.Condition == nil {
			if deflt != nil {
				return nil, diagnostics.NewError(diagnostics.MalformedAST, c.Span(), "switch has more than one default case")
			}
			deflt = c
			continue
		}
		test, err := tr.Expression(c.Condition, Right)
		if err != nil {
			return nil, err
		}
		body, err := tr.Body(c.Body)
		if err != nil {
			return nil, err
		}
		cases = append(cases, fmt.Sprintf("if (%s || EqualsEquals.invoke(%s, %s)) {\n%s = true;\n%s\n}",
			matched, value, test, matched, body.Source()))
	}
	if deflt != nil {
		body, err := tr.Body(deflt.Body)
		if err != nil {
			return nil, err
		}
		cases = append(cases, matched+" = true;\n"+body.Source())
	}
	return renderStmt(`{
Object ${value} = ${subject};
boolean ${matched} = false;
do {
${cases}
} while (false);
}`, "value", value, "subject", subject.String(), "matched", matched, "cases", strings.Join(cases, "\n"))
}

// Jumps

const (
	jumpBreak    = "break"
	jumpContinue = "continue"
	jumpReturn   = "return"
)

// jumpTarget is where a jump lands. A jump that leaves a component body
// returns a sentinel from the body instead of transferring control.
type jumpTarget struct {
	component *ast.Component
	native    string
}

// locateJump walks outwards from n to the construct a jump of kind binds
// to. Jumps that leave a component body are recorded on it so the
// component can re-raise them at its own position.
func (tr *Transpiler) locateJump(n ast.Node, kind, label string) (jumpTarget, error) {
	crossedSwitch := false
	child := n
	for p := n.Parent(); p != nil; child, p = p, p.Parent() {
		switch s := p.(type) {
		case *ast.Component:
			if containsStmt(s.Body, child) {
				tr.state.frame(s).record(jump{kind: kind, label: label})
				return jumpTarget{component: s}, nil
			}
			continue
		case *ast.Switch:
			if kind == jumpBreak && label == "" {
				return jumpTarget{native: "break;"}, nil
			}
			crossedSwitch = true
			continue
		}
		if ast.IsCallableBoundary(p) {
			if kind == jumpReturn {
				return jumpTarget{}, nil
			}
			break
		}
		if kind == jumpReturn || !ast.IsLoop(p) {
			continue
		}
		if label != "" {
			if strings.EqualFold(ast.LoopLabel(p), label) {
				return jumpTarget{native: kind + " " + ast.LoopLabel(p) + ";"}, nil
			}
			continue
		}
		if kind == jumpContinue && crossedSwitch {
			return jumpTarget{native: "continue " + tr.state.labelFor(p) + ";"}, nil
		}
		return jumpTarget{native: kind + ";"}, nil
	}
	if kind == jumpReturn {
		return jumpTarget{}, nil
	}
	what := kind
	if label != "" {
		what += " " + label
	}
	return jumpTarget{}, diagnostics.NewError(diagnostics.MisplacedStatement, n.Position().Span(),
		"%s is not inside a matching loop, switch or component", what).WithSource(n.SourceText())
}

func containsStmt(list []ast.Stmt, n ast.Node) bool {
	for _, s := range list {
		if ast.Node(s) == n {
			return true
		}
	}
	return false
}

func labelArg(label string) string {
	if label == "" {
		return "null"
	}
	return java.Quote(label)
}

func breakStatement(tr *Transpiler, n *ast.Break, _ TransformContext) (*java.Stmt, error) {
	return tr.loopJump(n, jumpBreak, n.Label, "ofBreak")
}

func continueStatement(tr *Transpiler, n *ast.Continue, _ TransformContext) (*java.Stmt, error) {
	return tr.loopJump(n, jumpContinue, n.Label, "ofContinue")
}

func (tr *Transpiler) loopJump(n ast.Node, kind, label, sentinel string) (*java.Stmt, error) {
	target, err := tr.locateJump(n, kind, label)
	if err != nil {
		return nil, err
	}
	if target.component != nil {
		return renderStmt("return Component.BodyResult."+sentinel+"(${label});", "label", labelArg(label))
	}
	return renderStmt(target.native)
}

func returnStatement(tr *Transpiler, n *ast.Return, _ TransformContext) (*java.Stmt, error) {
	value := "null"
	var expr *java.Expr
	if n.Expression != nil {
		e, err := tr.Expression(n.Expression, Right)
		if err != nil {
			return nil, err
		}
		expr, value = e, e.String()
	}
	target, err := tr.locateJump(n, jumpReturn, "")
	if err != nil {
		return nil, err
	}
	if target.component != nil {
		return renderStmt("return Component.BodyResult.ofReturn(${value});", "value", value)
	}
	if tr.voidReturn() {
		if expr == nil {
			return renderStmt("return;")
		}
		s, err := tr.expressionStatement(expr)
		if err != nil {
			return nil, err
		}
		return renderStmt("{\n${expr}\nreturn;\n}", "expr", s.String())
	}
	return renderStmt("return ${value};", "value", value)
}

// voidReturn reports whether a native return at this point leaves a void
// method.
func (tr *Transpiler) voidReturn() bool {
	return !tr.state.InFunctionBody() && tr.opts.ReturnType == "void"
}

// Exceptions

func tryStatement(tr *Transpiler, n *ast.Try, _ TransformContext) (*java.Stmt, error) {
	body, err := tr.Body(n.Body)
	if err != nil {
		return nil, err
	}
	if len(n.Catches) == 0 {
		finally, err := tr.finallyClause(n.Finally)
		if err != nil {
			return nil, err
		}
		if finally == "" {
			return renderStmt("{${body}}", "body", body.Source())
		}
		return renderStmt("try {${body}}${finally}", "body", body.Source(), "finally", finally)
	}

	num := tr.state.Next(CounterTryCatch)
	ev := fmt.Sprintf("e%d", num)
	outer := tr.ctx()
	branches := make([]string, 0, len(n.Catches)+1)
	for i, c := range n.Catches {
		id, ok := c.Exception.(*ast.Identifier)
		if !ok {
			kind := "nothing"
			if c.Exception != nil {
				kind = string(c.Exception.Kind())
			}
			return nil, diagnostics.NewError(diagnostics.MalformedExceptionBinding, c.Span(),
				"catch must bind an identifier, got %s", kind).WithSource(c.SourceText())
		}
		cctx := fmt.Sprintf("catchContext%d_%d", num, i+1)
		key := tr.state.Key(id.Name)
		test, err := tr.catchTest(c.Types, ev)
		if err != nil {
			return nil, err
		}
		var cbody *java.Block
		tr.state.catchVars = append(tr.state.catchVars, ev)
		err = tr.withContext(cctx, func() error {
			var err error
			cbody, err = tr.Body(c.Body)
			return err
		})
		tr.state.catchVars = tr.state.catchVars[:len(tr.state.catchVars)-1]
		if err != nil {
			return nil, err
		}
		branches = append(branches, fmt.Sprintf("if (%s) {\nCatchBoxContext %s = new CatchBoxContext(%s, %s, %s);\n%s\n}",
			test, cctx, outer, key, ev, cbody.Source()))
	}
	branches = append(branches, "{\nExceptionUtil.throwException("+ev+");\n}")
	finally, err := tr.finallyClause(n.Finally)
	if err != nil {
		return nil, err
	}
	return renderStmt(`try {${body}} catch (AbortException e) {
throw e;
} catch (Throwable ${ev}) {
${catches}
}${finally}`,
		"body", body.Source(), "ev", ev, "catches", strings.Join(branches, " else "), "finally", finally)
}

// finallyClause renders " finally {...}", or nothing for an empty finally.
func (tr *Transpiler) finallyClause(stmts []ast.Stmt) (string, error) {
	if len(stmts) == 0 {
		return "", nil
	}
	f, err := tr.Body(stmts)
	if err != nil {
		return "", err
	}
	return " finally {" + f.Source() + "}", nil
}

// catchTest matches the caught exception against the declared types.
func (tr *Transpiler) catchTest(types []ast.Expr, ev string) (string, error) {
	var tests []string
	for _, t := range types {
		name, err := tr.typeName(t)
		if err != nil {
			return "", err
		}
		if strings.EqualFold(name, "any") {
			return "true", nil
		}
		tests = append(tests, fmt.Sprintf("ExceptionUtil.exceptionIsOfType(%s, %s, %s)", tr.ctx(), ev, java.Quote(name)))
	}
	if len(tests) == 0 {
		return "true", nil
	}
	return strings.Join(tests, " || "), nil
}

// typeName reads a catch type written as a bare name, dotted path or
// string.
func (tr *Transpiler) typeName(t ast.Expr) (string, error) {
	switch v := t.(type) {
	case *ast.FQN:
		return v.Value, nil
	case *ast.StringLiteral:
		return v.Value, nil
	case *ast.Identifier:
		return v.Name, nil
	}
	if text := strings.TrimSpace(t.SourceText()); text != "" {
		return text, nil
	}
	return "", diagnostics.NewError(diagnostics.MalformedAST, t.Position().Span(),
		"unsupported catch type %s", t.Kind())
}

func throwStatement(tr *Transpiler, n *ast.Throw, _ TransformContext) (*java.Stmt, error) {
	if n.Expression == nil {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(), "throw without an expression")
	}
	e, err := tr.Expression(n.Expression, Right)
	if err != nil {
		return nil, err
	}
	return renderStmt("ExceptionUtil.throwException(${ctx}, ${expr});", "ctx", tr.ctx(), "expr", e.String())
}

func rethrowStatement(tr *Transpiler, n *ast.Rethrow, _ TransformContext) (*java.Stmt, error) {
	if ast.EnclosingCatch(n) == nil || len(tr.state.catchVars) == 0 {
		return nil, diagnostics.NewError(diagnostics.MisplacedStatement, n.Span(),
			"rethrow is only allowed inside a catch block").WithSource(n.SourceText())
	}
	ev := tr.state.catchVars[len(tr.state.catchVars)-1]
	return renderStmt("ExceptionUtil.throwException(${ev});", "ev", ev)
}

// Declarations

var accessModifiers = map[string]string{
	"":        "PUBLIC",
	"public":  "PUBLIC",
	"private": "PRIVATE",
	"package": "PACKAGE",
	"remote":  "REMOTE",
}

// functionDeclaration generates the function's class in None mode and
// its registration call in Register mode. The declaration itself leaves
// nothing in place.
func functionDeclaration(tr *Transpiler, n *ast.FunctionDeclaration, tc TransformContext) (*java.Stmt, error) {
	class := "Func_" + javaIdentifier(n.Name)
	if tc == Register {
		return renderStmt("${ctx}.registerUDF(${class}.getInstance());", "ctx", tr.ctx(), "class", tr.nested(class))
	}
	access, ok := accessModifiers[strings.ToLower(n.Access)]
	if !ok {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(), "unknown access modifier %q", n.Access)
	}
	if !tr.state.declareFunction(n.Name) {
		return nil, diagnostics.NewError(diagnostics.DuplicateFunction, n.Span(),
			"function %s is already declared", n.Name).WithSource(n.SourceText())
	}
	err := tr.declareCallable(n, callable{
		class:         class,
		base:          "UDF",
		name:          tr.state.Key(n.Name),
		access:        access,
		returnType:    n.ReturnType,
		args:          n.Args,
		annotations:   n.Annotations,
		documentation: n.Documentation,
		body:          n.Body,
	})
	if err != nil {
		return nil, err
	}
	return emptyBlock()
}

// importStatement records `resolver:fqn [as alias]`; the unit's imports
// list is built from these.
func importStatement(tr *Transpiler, n *ast.Import, _ TransformContext) (*java.Stmt, error) {
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(), "import without a name")
	}
	d := importDef{FQN: name, Alias: n.Alias}
	if resolver, fqn, ok := strings.Cut(name, ":"); ok {
		d.Resolver, d.FQN = resolver, fqn
	}
	if d.Alias == "" {
		d.Alias = d.FQN[strings.LastIndex(d.FQN, ".")+1:]
	}
	tr.state.addImport(d)
	return emptyBlock()
}

func assertStatement(tr *Transpiler, n *ast.Assert, _ TransformContext) (*java.Stmt, error) {
	e, err := tr.Expression(n.Expression, Right)
	if err != nil {
		return nil, err
	}
	return renderStmt("Assert.invoke(${ctx}, ${expr});", "ctx", tr.ctx(), "expr", e.String())
}

func paramStatement(tr *Transpiler, n *ast.Param, _ TransformContext) (*java.Stmt, error) {
	typ, def := "null", "null"
	if n.Type != nil {
		e, err := tr.Expression(n.Type, Right)
		if err != nil {
			return nil, err
		}
		typ = e.String()
	}
	if n.Default != nil {
		e, err := tr.Expression(n.Default, Right)
		if err != nil {
			return nil, err
		}
		def = e.String()
	}
	return renderStmt("Param.invoke(${ctx}, ${name}, ${type}, ${default});",
		"ctx", tr.ctx(), "name", java.Quote(n.Variable), "type", typ, "default", def)
}

func bufferOutput(tr *Transpiler, n *ast.BufferOutput, _ TransformContext) (*java.Stmt, error) {
	e, err := tr.Expression(n.Expression, Right)
	if err != nil {
		return nil, err
	}
	return renderStmt("${ctx}.writeToBuffer(${expr});", "ctx", tr.ctx(), "expr", e.String())
}
