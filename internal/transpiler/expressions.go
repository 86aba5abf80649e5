package transpiler

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
)

// Literals

func integerLiteral(tr *Transpiler, n *ast.IntegerLiteral, _ TransformContext) (*java.Expr, error) {
	if _, ok := new(big.Int).SetString(n.Value, 10); !ok {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(), "invalid integer literal %q", n.Value)
	}
	return renderExpr("${value}", "value", javaInt(n.Value))
}

// javaInt renders decimal digits as the narrowest Java numeric literal:
// int, long with an L suffix, or a BigInteger beyond 64 bits.
func javaInt(digits string) string {
	if v, err := strconv.ParseInt(digits, 10, 64); err == nil {
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return strconv.FormatInt(v, 10)
		}
		return strconv.FormatInt(v, 10) + "L"
	}
	if b, ok := new(big.Int).SetString(digits, 10); ok {
		digits = b.String()
	}
	return "new BigInteger(" + java.Quote(digits) + ")"
}

// bigDecimalText is the string form new BigDecimal(String) accepts.
var bigDecimalText = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

func decimalLiteral(tr *Transpiler, n *ast.DecimalLiteral, _ TransformContext) (*java.Expr, error) {
	if !bigDecimalText.MatchString(n.Value) {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(), "invalid decimal literal %q", n.Value)
	}
	return renderExpr("new BigDecimal(${value})", "value", java.Quote(n.Value))
}

func stringLiteral(tr *Transpiler, n *ast.StringLiteral, _ TransformContext) (*java.Expr, error) {
	return renderExpr("${value}", "value", java.Quote(n.Value))
}

func booleanLiteral(tr *Transpiler, n *ast.BooleanLiteral, _ TransformContext) (*java.Expr, error) {
	return renderExpr("${value}", "value", strconv.FormatBool(n.Value))
}

func nullLiteral(tr *Transpiler, n *ast.NullLiteral, _ TransformContext) (*java.Expr, error) {
	return renderExpr("null")
}

func stringInterpolation(tr *Transpiler, n *ast.StringInterpolation, _ TransformContext) (*java.Expr, error) {
	if len(n.Parts) == 0 {
		return renderExpr(`""`)
	}
	parts := make([]string, 0, len(n.Parts))
	for _, p := range n.Parts {
		e, err := tr.Expression(p, Right)
		if err != nil {
			return nil, err
		}
		if _, literal := p.(*ast.StringLiteral); literal {
			parts = append(parts, e.String())
			continue
		}
		parts = append(parts, "StringCaster.cast("+e.String()+")")
	}
	return renderExpr(`String.join("", ${parts})`, "parts", strings.Join(parts, ", "))
}

func arrayLiteral(tr *Transpiler, n *ast.ArrayLiteral, _ TransformContext) (*java.Expr, error) {
	if len(n.Values) == 0 {
		return renderExpr("new Array()")
	}
	values, err := tr.expressionList(n.Values)
	if err != nil {
		return nil, err
	}
	return renderExpr("Array.of(${values})", "values", strings.Join(values, ", "))
}

func structLiteral(tr *Transpiler, n *ast.StructLiteral, _ TransformContext) (*java.Expr, error) {
	if len(n.Values)%2 != 0 {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Span(),
			"struct literal has %d entries, expected key/value pairs", len(n.Values))
	}
	if len(n.Values) == 0 {
		if n.Ordered {
			return renderExpr("new Struct(Struct.TYPES.LINKED)")
		}
		return renderExpr("new Struct()")
	}
	pairs := make([]string, 0, len(n.Values))
	for i := 0; i < len(n.Values); i += 2 {
		key, err := tr.structKey(n.Values[i])
		if err != nil {
			return nil, err
		}
		value, err := tr.Expression(n.Values[i+1], Right)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, key, value.String())
	}
	tmpl := "Struct.of(${pairs})"
	if n.Ordered {
		tmpl = "Struct.linkedOf(${pairs})"
	}
	return renderExpr(tmpl, "pairs", strings.Join(pairs, ", "))
}

// structKey interns bare-word and string keys; any other key expression
// is evaluated at run time.
func (tr *Transpiler) structKey(k ast.Expr) (string, error) {
	switch key := k.(type) {
	case *ast.Identifier:
		return tr.state.Key(key.Name), nil
	case *ast.StringLiteral:
		return tr.state.Key(key.Value), nil
	}
	e, err := tr.Expression(k, Right)
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

func (tr *Transpiler) expressionList(list []ast.Expr) ([]string, error) {
	out := make([]string, 0, len(list))
	for _, v := range list {
		e, err := tr.Expression(v, Right)
		if err != nil {
			return nil, err
		}
		out = append(out, e.String())
	}
	return out, nil
}

// Names and scopes

func identifier(tr *Transpiler, n *ast.Identifier, tc TransformContext) (*java.Expr, error) {
	key := tr.state.Key(n.Name)
	if tc == Left {
		return renderExpr("Referencer.set(${ctx}, ${scope}, ${key})",
			"ctx", tr.ctx(), "scope", tr.assignmentScope(n, key), "key", key)
	}
	if imp, ok := tr.state.importAlias(n.Name); ok {
		return renderExpr("classLocator.load(${ctx}, ${name}, imports)",
			"ctx", tr.ctx(), "name", java.Quote(imp.resolvedName()))
	}
	return renderExpr("${ctx}.scopeFindNearby(${key}, null).value()", "ctx", tr.ctx(), "key", key)
}

// assignmentScope is the scope an identifier is written into: the local
// scope for var declarations, otherwise wherever it already lives or the
// default assignment scope.
func (tr *Transpiler) assignmentScope(n *ast.Identifier, key string) string {
	ctx := tr.ctx()
	if declaresLocal(n) {
		return ctx + ".getScopeNearby(LocalScope.name)"
	}
	return ctx + ".scopeFindNearby(" + key + ", " + ctx + ".getDefaultAssignmentScope()).scope()"
}

// declaresLocal reports whether n is the root of a var-declared
// assignment target or for-in variable.
func declaresLocal(n ast.Node) bool {
	cur := n
	for {
		switch p := cur.Parent().(type) {
		case *ast.DotAccess:
			if p.Context != cur {
				return false
			}
			cur = p
		case *ast.ArrayAccess:
			if p.Context != cur {
				return false
			}
			cur = p
		case *ast.Assignment:
			if !p.Var {
				return false
			}
			for _, t := range p.Targets {
				if t == cur {
					return true
				}
			}
			return false
		case *ast.ForIn:
			return p.Var && p.Variable == cur
		default:
			return false
		}
	}
}

func scope(tr *Transpiler, n *ast.Scope, tc TransformContext) (*java.Expr, error) {
	if tc == Left {
		return nil, diagnostics.NewError(diagnostics.UnsupportedNodeKind, n.Span(),
			"the %s scope cannot be assigned", n.Name)
	}
	return renderExpr("${ctx}.getScopeNearby(${key})", "ctx", tr.ctx(), "key", tr.state.Key(n.Name))
}

func fqn(tr *Transpiler, n *ast.FQN, _ TransformContext) (*java.Expr, error) {
	return renderExpr("classLocator.load(${ctx}, ${name}, imports)", "ctx", tr.ctx(), "name", tr.classPath(n.Value))
}

// classPath quotes a class name, resolving it through an import alias.
func (tr *Transpiler) classPath(name string) string {
	if imp, ok := tr.state.importAlias(name); ok {
		return java.Quote(imp.resolvedName())
	}
	return java.Quote(name)
}

// Member access

func dotAccess(tr *Transpiler, n *ast.DotAccess, tc TransformContext) (*java.Expr, error) {
	key, err := tr.accessKey(n.Access, true)
	if err != nil {
		return nil, err
	}
	return tr.access(n.Context, key, n.Safe, tc)
}

func arrayAccess(tr *Transpiler, n *ast.ArrayAccess, tc TransformContext) (*java.Expr, error) {
	key, err := tr.accessKey(n.Access, false)
	if err != nil {
		return nil, err
	}
	return tr.access(n.Context, key, n.Safe, tc)
}

// accessKey renders the key of obj.key or obj[key]. Literal keys are
// interned; a computed key becomes Key.of(...) at run time.
func (tr *Transpiler) accessKey(access ast.Expr, dot bool) (string, error) {
	switch a := access.(type) {
	case *ast.Identifier:
		if dot {
			return tr.state.Key(a.Name), nil
		}
	case *ast.StringLiteral:
		return tr.state.Key(a.Value), nil
	case *ast.IntegerLiteral:
		v, ok := new(big.Int).SetString(a.Value, 10)
		if !ok {
			return "", diagnostics.NewError(diagnostics.MalformedAST, a.Span(), "invalid integer key %q", a.Value)
		}
		return tr.state.IntKey(v.String()), nil
	}
	if dot {
		return "", diagnostics.NewError(diagnostics.MalformedAST, access.Position().Span(),
			"dot access key must be a name, got %s", access.Kind())
	}
	e, err := tr.Expression(access, Right)
	if err != nil {
		return "", err
	}
	return "Key.of(" + e.String() + ")", nil
}

func (tr *Transpiler) access(obj ast.Expr, key string, safe bool, tc TransformContext) (*java.Expr, error) {
	if tc == Left {
		container, err := tr.container(obj)
		if err != nil {
			return nil, err
		}
		return renderExpr("Referencer.set(${ctx}, ${container}, ${key})",
			"ctx", tr.ctx(), "container", container, "key", key)
	}
	o, err := tr.Expression(obj, Right)
	if err != nil {
		return nil, err
	}
	return renderExpr("Referencer.get(${ctx}, ${obj}, ${key}, ${safe})",
		"ctx", tr.ctx(), "obj", o.String(), "key", key, "safe", strconv.FormatBool(safe))
}

// container renders the object an assignment writes into, creating the
// intermediate links of a path such as a.b.c on the way.
func (tr *Transpiler) container(e ast.Expr) (string, error) {
	switch n := e.(type) {
	case *ast.Scope:
		s, err := tr.Expression(n, Right)
		if err != nil {
			return "", err
		}
		return s.String(), nil
	case *ast.Identifier:
		key := tr.state.Key(n.Name)
		return "Referencer.getOrCreate(" + tr.ctx() + ", " + tr.assignmentScope(n, key) + ", " + key + ")", nil
	case *ast.DotAccess:
		return tr.link(n.Context, n.Access, true)
	case *ast.ArrayAccess:
		return tr.link(n.Context, n.Access, false)
	}
	v, err := tr.Expression(e, Right)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (tr *Transpiler) link(obj, access ast.Expr, dot bool) (string, error) {
	key, err := tr.accessKey(access, dot)
	if err != nil {
		return "", err
	}
	parent, err := tr.container(obj)
	if err != nil {
		return "", err
	}
	return "Referencer.getOrCreate(" + tr.ctx() + ", " + parent + ", " + key + ")", nil
}

// Operators

var binaryOps = map[ast.BinaryOperator]string{
	ast.OpPlus:                      "Plus",
	ast.OpMinus:                     "Minus",
	ast.OpStar:                      "Multiply",
	ast.OpSlash:                     "Divide",
	ast.OpBackslash:                 "IntegerDivide",
	ast.OpPower:                     "Power",
	ast.OpXor:                       "XOR",
	ast.OpMod:                       "Modulus",
	ast.OpEquivalence:               "Equivalence",
	ast.OpImplies:                   "Implies",
	ast.OpElvis:                     "Elvis",
	ast.OpContains:                  "Contains",
	ast.OpConcat:                    "Concat",
	ast.OpBitwiseAnd:                "BitwiseAnd",
	ast.OpBitwiseOr:                 "BitwiseOr",
	ast.OpBitwiseXor:                "BitwiseXor",
	ast.OpBitwiseSignedLeftShift:    "BitwiseSignedLeftShift",
	ast.OpBitwiseSignedRightShift:   "BitwiseSignedRightShift",
	ast.OpBitwiseUnsignedRightShift: "BitwiseUnsignedRightShift",
}

func illegalOperator(n ast.Node, op any) error {
	return diagnostics.NewError(diagnostics.IllegalOperator, n.Position().Span(),
		"operator %v has no template in %s", op, n.Kind()).WithSource(n.SourceText())
}

func binaryOperation(tr *Transpiler, n *ast.BinaryOperation, _ TransformContext) (*java.Expr, error) {
	name, table := binaryOps[n.Operator]
	switch n.Operator {
	case ast.OpAnd, ast.OpOr, ast.OpNotContains, ast.OpInstanceOf, ast.OpCastAs:
	default:
		if !table {
			return nil, illegalOperator(n, n.Operator)
		}
	}
	left, err := tr.Expression(n.Left, Right)
	if err != nil {
		return nil, err
	}
	right, err := tr.Expression(n.Right, Right)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case ast.OpAnd, ast.OpOr:
		op := "&&"
		if n.Operator == ast.OpOr {
			op = "||"
		}
		return renderExpr("${left} "+op+" ${right}",
			"left", logicalOperand(n.Left, left), "right", logicalOperand(n.Right, right))
	case ast.OpNotContains:
		return renderExpr("!Contains.invoke(${left}, ${right})", "left", left.String(), "right", right.String())
	case ast.OpInstanceOf:
		return renderExpr("InstanceOf.invoke(${ctx}, ${left}, ${right})",
			"ctx", tr.ctx(), "left", left.String(), "right", right.String())
	case ast.OpCastAs:
		return renderExpr("CastAs.invoke(${ctx}, ${left}, ${right})",
			"ctx", tr.ctx(), "left", left.String(), "right", right.String())
	}
	return renderExpr(name+".invoke(${left}, ${right})", "left", left.String(), "right", right.String())
}

var comparisonOps = map[ast.ComparisonOperator]string{
	ast.CmpEqual:             "EqualsEquals.invoke",
	ast.CmpNotEqual:          "!EqualsEquals.invoke",
	ast.CmpTEqual:            "EqualsEqualsEquals.invoke",
	ast.CmpTNotEqual:         "!EqualsEqualsEquals.invoke",
	ast.CmpGreaterThan:       "GreaterThan.invoke",
	ast.CmpGreaterThanEquals: "GreaterThanEqual.invoke",
	ast.CmpLessThan:          "LessThan.invoke",
	ast.CmpLessThanEquals:    "LessThanEqual.invoke",
}

func comparisonOperation(tr *Transpiler, n *ast.ComparisonOperation, _ TransformContext) (*java.Expr, error) {
	call, ok := comparisonOps[n.Operator]
	if !ok {
		return nil, illegalOperator(n, n.Operator)
	}
	left, err := tr.Expression(n.Left, Right)
	if err != nil {
		return nil, err
	}
	right, err := tr.Expression(n.Right, Right)
	if err != nil {
		return nil, err
	}
	return renderExpr(call+"(${left}, ${right})", "left", left.String(), "right", right.String())
}

func unaryOperation(tr *Transpiler, n *ast.UnaryOperation, _ TransformContext) (*java.Expr, error) {
	switch n.Operator {
	case ast.UnaryNot:
		if b, ok := n.Expr.(*ast.BooleanLiteral); ok && tr.opts.QuoteNegatedBooleans {
			return renderExpr("Not.invoke(${expr})", "expr", java.Quote(strconv.FormatBool(b.Value)))
		}
		return tr.unaryCall("Not.invoke", n.Expr)
	case ast.UnaryMinus:
		return tr.unaryCall("Negate.invoke", n.Expr)
	case ast.UnaryBitwiseComplement:
		return tr.unaryCall("BitwiseComplement.invoke", n.Expr)
	case ast.UnaryPlus:
		return tr.Expression(n.Expr, Right)
	case ast.UnaryPrePlusPlus:
		return tr.step("Increment", "invokePre", n.Expr)
	case ast.UnaryPostPlusPlus:
		return tr.step("Increment", "invokePost", n.Expr)
	case ast.UnaryPreMinusMinus:
		return tr.step("Decrement", "invokePre", n.Expr)
	case ast.UnaryPostMinusMinus:
		return tr.step("Decrement", "invokePost", n.Expr)
	}
	return nil, illegalOperator(n, n.Operator)
}

func (tr *Transpiler) unaryCall(fn string, operand ast.Expr) (*java.Expr, error) {
	e, err := tr.Expression(operand, Right)
	if err != nil {
		return nil, err
	}
	return renderExpr(fn+"(${expr})", "expr", e.String())
}

// step renders ++/--. A named operand is updated in place through its
// container and key; any other value is just incremented.
func (tr *Transpiler) step(op, form string, operand ast.Expr) (*java.Expr, error) {
	switch operand.(type) {
	case *ast.Identifier, *ast.DotAccess, *ast.ArrayAccess:
		container, key, err := tr.storeTarget(operand)
		if err != nil {
			return nil, err
		}
		return renderExpr(op+"."+form+"(${container}, ${key})", "container", container, "key", key)
	}
	return tr.unaryCall(op+".invoke", operand)
}

// storeTarget transforms a target in Left position and splits its store
// call into container and key.
func (tr *Transpiler) storeTarget(target ast.Expr) (container, key string, err error) {
	call, err := tr.storeCall(target)
	if err != nil {
		return "", "", err
	}
	return call.Args[1], call.Args[2], nil
}

func (tr *Transpiler) storeCall(target ast.Expr) (*java.Call, error) {
	switch target.(type) {
	case *ast.Identifier, *ast.DotAccess, *ast.ArrayAccess:
	case nil:
		return nil, diagnostics.NewError(diagnostics.MalformedAST, diagnostics.Span{}, "missing assignment target")
	default:
		return nil, diagnostics.NewError(diagnostics.UnsupportedNodeKind, target.Position().Span(),
			"%s cannot be assigned to", target.Kind()).WithSource(target.SourceText())
	}
	e, err := tr.Expression(target, Left)
	if err != nil {
		return nil, err
	}
	call := e.Call()
	if call == nil || len(call.Args) != 3 {
		return nil, diagnostics.NewError(diagnostics.TemplateRenderFailure, target.Position().Span(),
			"%s did not render a store call", target.Kind()).WithFragment(e.String())
	}
	return call, nil
}

func ternaryOperation(tr *Transpiler, n *ast.TernaryOperation, _ TransformContext) (*java.Expr, error) {
	cond, err := tr.Expression(n.Condition, Right)
	if err != nil {
		return nil, err
	}
	whenTrue, err := tr.Expression(n.WhenTrue, Right)
	if err != nil {
		return nil, err
	}
	whenFalse, err := tr.Expression(n.WhenFalse, Right)
	if err != nil {
		return nil, err
	}
	return renderExpr("${cond} ? ${whenTrue} : ${whenFalse}",
		"cond", booleanText(n.Condition, cond), "whenTrue", whenTrue.String(), "whenFalse", whenFalse.String())
}

func parenthesis(tr *Transpiler, n *ast.Parenthesis, _ TransformContext) (*java.Expr, error) {
	e, err := tr.Expression(n.Expression, Right)
	if err != nil {
		return nil, err
	}
	return renderExpr("(${expr})", "expr", e.String())
}

// staticallyBoolean reports whether the rendered expression already yields
// a boolean, so it needs no BooleanCaster.
func staticallyBoolean(n ast.Expr) bool {
	switch e := n.(type) {
	case *ast.ComparisonOperation, *ast.BooleanLiteral:
		return true
	case *ast.BinaryOperation:
		switch e.Operator {
		case ast.OpAnd, ast.OpOr, ast.OpXor, ast.OpContains, ast.OpNotContains, ast.OpInstanceOf:
			return true
		}
	case *ast.UnaryOperation:
		return e.Operator == ast.UnaryNot
	case *ast.Parenthesis:
		return staticallyBoolean(e.Expression)
	}
	return false
}

// booleanText coerces a rendered condition to boolean when needed.
func booleanText(n ast.Expr, e *java.Expr) string {
	if staticallyBoolean(n) {
		return e.String()
	}
	return "BooleanCaster.cast(" + e.String() + ")"
}

// logicalOperand parenthesises a nested && or || so the source grouping
// survives Java precedence.
func logicalOperand(n ast.Expr, e *java.Expr) string {
	if b, ok := n.(*ast.BinaryOperation); ok && (b.Operator == ast.OpAnd || b.Operator == ast.OpOr) {
		return "(" + e.String() + ")"
	}
	return booleanText(n, e)
}
