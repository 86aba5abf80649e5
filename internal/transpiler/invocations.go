package transpiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
)

// builtin is a function call compiled to a direct Java expression instead
// of a runtime lookup. It applies only to positional calls of the given
// arity; any other shape goes through invokeFunction.
type builtin struct {
	arity int
	tmpl  string
}

var builtins = map[string]builtin{
	"createobject": {2, `classLocator.load(${ctx}, StringCaster.cast(${arg0}) + ":" + StringCaster.cast(${arg1}), imports)`},
	"isnull":       {1, "(${arg0} == null)"},
	"writeoutput":  {1, "${ctx}.writeToBuffer(${arg0})"},
}

func argument(tr *Transpiler, n *ast.Argument, _ TransformContext) (*java.Expr, error) {
	if n.Value == nil {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(), "argument has no value")
	}
	return tr.Expression(n.Value, Right)
}

func functionInvocation(tr *Transpiler, n *ast.FunctionInvocation, _ TransformContext) (*java.Expr, error) {
	if b, ok := builtins[strings.ToLower(n.Name)]; ok && positional(n.Arguments) && len(n.Arguments) == b.arity {
		pairs := []string{"ctx", tr.ctx()}
		for i, a := range n.Arguments {
			e, err := tr.Expression(a, Right)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, "arg"+strconv.Itoa(i), e.String())
		}
		return renderExpr(b.tmpl, pairs...)
	}
	name := tr.state.Key(n.Name)
	args, err := tr.arguments(n.Arguments, tr.state.signature(n.Name))
	if err != nil {
		return nil, err
	}
	return renderExpr("${ctx}.invokeFunction(${name}, ${args})",
		"ctx", tr.ctx(), "name", name, "args", args)
}

func methodInvocation(tr *Transpiler, n *ast.MethodInvocation, _ TransformContext) (*java.Expr, error) {
	obj, err := tr.Expression(n.Object, Right)
	if err != nil {
		return nil, err
	}
	args, err := tr.arguments(n.Arguments, nil)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(n.Name, "init") {
		return renderExpr("DynamicObject.of(${obj}).invokeConstructor(${ctx}, ${args})",
			"obj", obj.String(), "ctx", tr.ctx(), "args", args)
	}
	return renderExpr("Referencer.getAndInvoke(${ctx}, ${obj}, ${name}, ${args}, ${safe})",
		"ctx", tr.ctx(), "obj", obj.String(), "name", tr.state.Key(n.Name), "args", args,
		"safe", strconv.FormatBool(n.Safe))
}

func newObject(tr *Transpiler, n *ast.New, _ TransformContext) (*java.Expr, error) {
	var class string
	switch c := n.Class.(type) {
	case *ast.FQN:
		class = tr.classPath(c.Value)
	case *ast.StringLiteral:
		class = tr.classPath(c.Value)
	case nil:
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(), "new without a class")
	default:
		e, err := tr.Expression(c, Right)
		if err != nil {
			return nil, err
		}
		class = "StringCaster.cast(" + e.String() + ")"
	}
	args, err := tr.arguments(n.Arguments, nil)
	if err != nil {
		return nil, err
	}
	return renderExpr("classLocator.load(${ctx}, ${class}, imports).invokeConstructor(${ctx}, ${args})",
		"ctx", tr.ctx(), "class", class, "args", args)
}

func positional(args []*ast.Argument) bool {
	for _, a := range args {
		if a.Name != "" {
			return false
		}
	}
	return true
}

// arguments renders a call's argument list. Positional calls become an
// Object array. As soon as one argument is named the call passes a
// struct: for a function declared in this unit, parameters are bound in
// declaration order (a name overrides a position) followed by the
// undeclared arguments; otherwise positional values are keyed by their
// 1-based position in the call.
func (tr *Transpiler) arguments(args []*ast.Argument, sig *ast.FunctionDeclaration) (string, error) {
	values := make([]string, len(args))
	for i, a := range args {
		e, err := tr.Expression(a, Right)
		if err != nil {
			return "", err
		}
		values[i] = e.String()
	}
	if positional(args) {
		if len(values) == 0 {
			return "new Object[] {}", nil
		}
		return "new Object[] { " + strings.Join(values, ", ") + " }", nil
	}

	var pairs []string
	if sig == nil {
		for i, a := range args {
			key := tr.state.IntKey(strconv.Itoa(i + 1))
			if a.Name != "" {
				key = tr.state.Key(a.Name)
			}
			pairs = append(pairs, key, values[i])
		}
		return "Struct.linkedOf(" + strings.Join(pairs, ", ") + ")", nil
	}

	bound := map[string]string{}
	var extra []string
	next := 0
	for i, a := range args {
		if a.Name == "" {
			if next < len(sig.Args) {
				bound[strings.ToLower(sig.Args[next].Name)] = values[i]
			} else {
				extra = append(extra, tr.state.IntKey(strconv.Itoa(i+1)), values[i])
			}
			next++
			continue
		}
		if d := declaredArg(sig, a.Name); d != nil {
			bound[strings.ToLower(d.Name)] = values[i]
			continue
		}
		extra = append(extra, tr.state.Key(a.Name), values[i])
	}
	for _, d := range sig.Args {
		if v, ok := bound[strings.ToLower(d.Name)]; ok {
			pairs = append(pairs, tr.state.Key(d.Name), v)
		}
	}
	pairs = append(pairs, extra...)
	return "Struct.linkedOf(" + strings.Join(pairs, ", ") + ")", nil
}

func declaredArg(sig *ast.FunctionDeclaration, name string) *ast.ArgumentDeclaration {
	for _, d := range sig.Args {
		if strings.EqualFold(d.Name, name) {
			return d
		}
	}
	return nil
}

func closure(tr *Transpiler, n *ast.Closure, _ TransformContext) (*java.Expr, error) {
	name := fmt.Sprintf("Closure_%d", tr.state.Next(CounterClosure))
	err := tr.declareCallable(n, callable{
		class:       name,
		base:        "Closure",
		name:        "Closure.defaultName",
		args:        n.Args,
		annotations: n.Annotations,
		body:        n.Body,
		bound:       true,
	})
	if err != nil {
		return nil, err
	}
	return renderExpr("new ${class}(${ctx})", "class", tr.nested(name), "ctx", tr.ctx())
}

func lambda(tr *Transpiler, n *ast.Lambda, _ TransformContext) (*java.Expr, error) {
	name := fmt.Sprintf("Lambda_%d", tr.state.Next(CounterLambda))
	err := tr.declareCallable(n, callable{
		class:       name,
		base:        "Lambda",
		name:        "Lambda.defaultName",
		args:        n.Args,
		annotations: n.Annotations,
		body:        n.Body,
	})
	if err != nil {
		return nil, err
	}
	return renderExpr("${class}.getInstance()", "class", tr.nested(name))
}

// nested qualifies a callable class with the unit class.
func (tr *Transpiler) nested(class string) string {
	return tr.opts.ClassName + "." + class
}

// callable describes a nested class generated for a function, closure or
// lambda.
type callable struct {
	class         string
	base          string
	name          string
	access        string
	returnType    string
	args          []*ast.ArgumentDeclaration
	annotations   []*ast.Annotation
	documentation []*ast.Annotation
	body          []ast.Stmt
	// bound callables capture their declaring context per instance;
	// unbound ones are singletons.
	bound bool
}

const callableTemplate = `public static class ${class} extends ${base} {
private static final Key name = ${name};
private static final Argument[] arguments = new Argument[] {${arguments}};
private static final String returnType = ${returnType};
private static final Access access = Access.${access};
private static final IStruct annotations = ${annotations};
private static final IStruct documentation = ${documentation};
${construction}
public Key getName() {
return name;
}
public Argument[] getArguments() {
return arguments;
}
public String getReturnType() {
return returnType;
}
public Access getAccess() {
return access;
}
public IStruct getAnnotations() {
return annotations;
}
public IStruct getDocumentation() {
return documentation;
}
public Object _invoke(FunctionBoxContext context) {
${body}
}
}`

const singletonConstruction = `private static ${class} instance;
private ${class}() {
super();
}
public static synchronized ${class} getInstance() {
if (instance == null) {
instance = new ${class}();
}
return instance;
}`

const boundConstruction = `public ${class}(IBoxContext declaringContext) {
super(declaringContext);
}`

// declareCallable renders the nested class for c and adds it to the unit.
func (tr *Transpiler) declareCallable(n ast.Node, c callable) error {
	arguments, err := tr.argumentDeclarations(c.args)
	if err != nil {
		return err
	}
	annotations, err := tr.annotations(c.annotations)
	if err != nil {
		return err
	}
	documentation, err := tr.annotations(c.documentation)
	if err != nil {
		return err
	}
	body, err := tr.callableBody(c.body)
	if err != nil {
		return err
	}
	construction := singletonConstruction
	if c.bound {
		construction = boundConstruction
	}
	construction = strings.ReplaceAll(construction, "${class}", c.class)
	returnType := c.returnType
	if returnType == "" {
		returnType = "any"
	}
	access := c.access
	if access == "" {
		access = "PUBLIC"
	}
	decl, err := renderDecl(callableTemplate,
		"class", c.class,
		"base", c.base,
		"name", c.name,
		"arguments", arguments,
		"returnType", java.Quote(returnType),
		"access", access,
		"annotations", annotations,
		"documentation", documentation,
		"construction", construction,
		"body", body,
	)
	if err != nil {
		return err
	}
	if !tr.state.addCallable(decl) {
		return diagnostics.NewError(diagnostics.DuplicateFunction, n.Position().Span(),
			"class %s is generated twice", c.class)
	}
	return nil
}

// callableBody transforms the statements of a callable under its own
// context variable.
func (tr *Transpiler) callableBody(stmts []ast.Stmt) (string, error) {
	var body *java.Block
	err := tr.withContext("context", func() error {
		tr.state.functionBody++
		defer func() { tr.state.functionBody-- }()
		var err error
		body, err = tr.Body(stmts)
		return err
	})
	if err != nil {
		return "", err
	}
	if !body.Terminates() {
		ret, err := renderStmt("return null;")
		if err != nil {
			return "", err
		}
		body.Append(ret)
	}
	return body.Source(), nil
}

func (tr *Transpiler) argumentDeclarations(args []*ast.ArgumentDeclaration) (string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		def := "null"
		if a.Default != nil {
			var e *java.Expr
			var err error
			if ast.IsLiteral(a.Default) {
				e, err = tr.Expression(a.Default, Right)
			} else {
				err = tr.withContext("context", func() error {
					var err error
					e, err = tr.Expression(a.Default, Right)
					return err
				})
			}
			if err != nil {
				return "", err
			}
			def = e.String()
			if !ast.IsLiteral(a.Default) {
				def = "(DefaultExpression) (IBoxContext context) -> " + def
			}
		}
		typ := a.Type
		if typ == "" {
			typ = "any"
		}
		annotations, err := tr.annotations(a.Annotations)
		if err != nil {
			return "", err
		}
		arg, err := renderExpr("new Argument(${required}, ${type}, ${name}, ${default}, ${annotations})",
			"required", strconv.FormatBool(a.Required),
			"type", java.Quote(typ),
			"name", tr.state.Key(a.Name),
			"default", def,
			"annotations", annotations)
		if err != nil {
			return "", err
		}
		out = append(out, arg.String())
	}
	return strings.Join(out, ", "), nil
}

// annotations renders metadata as an ordered struct. Annotation values are
// static: literals are kept, anything else is recorded as its source text.
func (tr *Transpiler) annotations(list []*ast.Annotation) (string, error) {
	if len(list) == 0 {
		return "Struct.EMPTY", nil
	}
	pairs := make([]string, 0, 2*len(list))
	for _, a := range list {
		value := `""`
		switch {
		case a.Value == nil:
		case ast.IsLiteral(a.Value):
			e, err := tr.Expression(a.Value, Right)
			if err != nil {
				return "", err
			}
			value = e.String()
		default:
			value = java.Quote(a.Value.SourceText())
		}
		pairs = append(pairs, tr.state.Key(a.Key), value)
	}
	return "Struct.linkedOf(" + strings.Join(pairs, ", ") + ")", nil
}
