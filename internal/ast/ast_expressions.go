package ast

// Expression kinds.
const (
	KindIntegerLiteral      Kind = "BoxIntegerLiteral"
	KindDecimalLiteral      Kind = "BoxDecimalLiteral"
	KindStringLiteral       Kind = "BoxStringLiteral"
	KindBooleanLiteral      Kind = "BoxBooleanLiteral"
	KindNull                Kind = "BoxNull"
	KindStringInterpolation Kind = "BoxStringInterpolation"
	KindArrayLiteral        Kind = "BoxArrayLiteral"
	KindStructLiteral       Kind = "BoxStructLiteral"
	KindIdentifier          Kind = "BoxIdentifier"
	KindScope               Kind = "BoxScope"
	KindDotAccess           Kind = "BoxDotAccess"
	KindArrayAccess         Kind = "BoxArrayAccess"
	KindBinaryOperation     Kind = "BoxBinaryOperation"
	KindComparisonOperation Kind = "BoxComparisonOperation"
	KindUnaryOperation      Kind = "BoxUnaryOperation"
	KindTernaryOperation    Kind = "BoxTernaryOperation"
	KindParenthesis         Kind = "BoxParenthesis"
	KindFunctionInvocation  Kind = "BoxFunctionInvocation"
	KindMethodInvocation    Kind = "BoxMethodInvocation"
	KindArgument            Kind = "BoxArgument"
	KindNew                 Kind = "BoxNew"
	KindFQN                 Kind = "BoxFQN"
	KindClosure             Kind = "BoxClosure"
	KindLambda              Kind = "BoxLambda"
)

// IntegerLiteral keeps the literal digits; range handling is the
// transpiler's concern.
type IntegerLiteral struct {
	Base
	Value string
}

type DecimalLiteral struct {
	Base
	Value string
}

// StringLiteral holds the unescaped string value.
type StringLiteral struct {
	Base
	Value string
}

type BooleanLiteral struct {
	Base
	Value bool
}

type NullLiteral struct {
	Base
}

// StringInterpolation is a string with embedded expressions, "a#b#c".
type StringInterpolation struct {
	Base
	Parts []Expr
}

type ArrayLiteral struct {
	Base
	Values []Expr
}

// StructLiteral holds alternating key and value expressions.
type StructLiteral struct {
	Base
	Ordered bool
	Values  []Expr
}

type Identifier struct {
	Base
	Name string
}

// Scope is a named scope such as variables, local or arguments.
type Scope struct {
	Base
	Name string
}

// DotAccess is obj.key. Access is an Identifier or an IntegerLiteral.
type DotAccess struct {
	Base
	Context Expr
	Access  Expr
	Safe    bool
}

// ArrayAccess is obj[expr].
type ArrayAccess struct {
	Base
	Context Expr
	Access  Expr
	Safe    bool
}

type BinaryOperation struct {
	Base
	Left     Expr
	Operator BinaryOperator
	Right    Expr
}

type ComparisonOperation struct {
	Base
	Left     Expr
	Operator ComparisonOperator
	Right    Expr
}

type UnaryOperation struct {
	Base
	Expr     Expr
	Operator UnaryOperator
}

type TernaryOperation struct {
	Base
	Condition Expr
	WhenTrue  Expr
	WhenFalse Expr
}

type Parenthesis struct {
	Base
	Expression Expr
}

// Argument is one call argument. Name is empty for positional arguments.
type Argument struct {
	Base
	Name  string
	Value Expr
}

type FunctionInvocation struct {
	Base
	Name      string
	Arguments []*Argument
}

type MethodInvocation struct {
	Base
	Name      string
	Object    Expr
	Arguments []*Argument
	Safe      bool
}

// New is `new Foo(args)`. Class is an FQN or any expression yielding a
// class path.
type New struct {
	Base
	Class     Expr
	Arguments []*Argument
}

// FQN is a fully qualified name such as java:java.lang.String.
type FQN struct {
	Base
	Value string
}

type Closure struct {
	Base
	Args        []*ArgumentDeclaration
	Annotations []*Annotation
	Body        []Stmt
}

type Lambda struct {
	Base
	Args        []*ArgumentDeclaration
	Annotations []*Annotation
	Body        []Stmt
}

func (n *IntegerLiteral) Kind() Kind      { return KindIntegerLiteral }
func (n *DecimalLiteral) Kind() Kind      { return KindDecimalLiteral }
func (n *StringLiteral) Kind() Kind       { return KindStringLiteral }
func (n *BooleanLiteral) Kind() Kind      { return KindBooleanLiteral }
func (n *NullLiteral) Kind() Kind         { return KindNull }
func (n *StringInterpolation) Kind() Kind { return KindStringInterpolation }
func (n *ArrayLiteral) Kind() Kind        { return KindArrayLiteral }
func (n *StructLiteral) Kind() Kind       { return KindStructLiteral }
func (n *Identifier) Kind() Kind          { return KindIdentifier }
func (n *Scope) Kind() Kind               { return KindScope }
func (n *DotAccess) Kind() Kind           { return KindDotAccess }
func (n *ArrayAccess) Kind() Kind         { return KindArrayAccess }
func (n *BinaryOperation) Kind() Kind     { return KindBinaryOperation }
func (n *ComparisonOperation) Kind() Kind { return KindComparisonOperation }
func (n *UnaryOperation) Kind() Kind      { return KindUnaryOperation }
func (n *TernaryOperation) Kind() Kind    { return KindTernaryOperation }
func (n *Parenthesis) Kind() Kind         { return KindParenthesis }
func (n *Argument) Kind() Kind            { return KindArgument }
func (n *FunctionInvocation) Kind() Kind  { return KindFunctionInvocation }
func (n *MethodInvocation) Kind() Kind    { return KindMethodInvocation }
func (n *New) Kind() Kind                 { return KindNew }
func (n *FQN) Kind() Kind                 { return KindFQN }
func (n *Closure) Kind() Kind             { return KindClosure }
func (n *Lambda) Kind() Kind              { return KindLambda }

func (n *IntegerLiteral) Children() []Node      { return nil }
func (n *DecimalLiteral) Children() []Node      { return nil }
func (n *StringLiteral) Children() []Node       { return nil }
func (n *BooleanLiteral) Children() []Node      { return nil }
func (n *NullLiteral) Children() []Node         { return nil }
func (n *StringInterpolation) Children() []Node { return exprs(n.Parts) }
func (n *ArrayLiteral) Children() []Node        { return exprs(n.Values) }
func (n *StructLiteral) Children() []Node       { return exprs(n.Values) }
func (n *Identifier) Children() []Node          { return nil }
func (n *Scope) Children() []Node               { return nil }
func (n *DotAccess) Children() []Node           { return nodes(n.Context, n.Access) }
func (n *ArrayAccess) Children() []Node         { return nodes(n.Context, n.Access) }
func (n *BinaryOperation) Children() []Node     { return nodes(n.Left, n.Right) }
func (n *ComparisonOperation) Children() []Node { return nodes(n.Left, n.Right) }
func (n *UnaryOperation) Children() []Node      { return nodes(n.Expr) }
func (n *TernaryOperation) Children() []Node {
	return nodes(n.Condition, n.WhenTrue, n.WhenFalse)
}
func (n *Parenthesis) Children() []Node        { return nodes(n.Expression) }
func (n *Argument) Children() []Node           { return nodes(n.Value) }
func (n *FunctionInvocation) Children() []Node { return exprs(n.Arguments) }
func (n *MethodInvocation) Children() []Node {
	return append(nodes(n.Object), exprs(n.Arguments)...)
}
func (n *New) Children() []Node { return append(nodes(n.Class), exprs(n.Arguments)...) }
func (n *FQN) Children() []Node { return nil }
func (n *Closure) Children() []Node {
	return callableChildren(n.Args, n.Annotations, n.Body)
}
func (n *Lambda) Children() []Node {
	return callableChildren(n.Args, n.Annotations, n.Body)
}

func (n *IntegerLiteral) exprNode()      {}
func (n *DecimalLiteral) exprNode()      {}
func (n *StringLiteral) exprNode()       {}
func (n *BooleanLiteral) exprNode()      {}
func (n *NullLiteral) exprNode()         {}
func (n *StringInterpolation) exprNode() {}
func (n *ArrayLiteral) exprNode()        {}
func (n *StructLiteral) exprNode()       {}
func (n *Identifier) exprNode()          {}
func (n *Scope) exprNode()               {}
func (n *DotAccess) exprNode()           {}
func (n *ArrayAccess) exprNode()         {}
func (n *BinaryOperation) exprNode()     {}
func (n *ComparisonOperation) exprNode() {}
func (n *UnaryOperation) exprNode()      {}
func (n *TernaryOperation) exprNode()    {}
func (n *Parenthesis) exprNode()         {}
func (n *Argument) exprNode()            {}
func (n *FunctionInvocation) exprNode()  {}
func (n *MethodInvocation) exprNode()    {}
func (n *New) exprNode()                 {}
func (n *FQN) exprNode()                 {}
func (n *Closure) exprNode()             {}
func (n *Lambda) exprNode()              {}

func callableChildren(args []*ArgumentDeclaration, annotations []*Annotation, body []Stmt) []Node {
	out := make([]Node, 0, len(args)+len(annotations)+len(body))
	for _, a := range args {
		out = append(out, a)
	}
	for _, a := range annotations {
		out = append(out, a)
	}
	return append(out, stmts(body)...)
}

// IsLiteral reports whether e is a constant literal, including array and
// struct literals made only of constants.
func IsLiteral(e Expr) bool {
	switch n := e.(type) {
	case *IntegerLiteral, *DecimalLiteral, *StringLiteral, *BooleanLiteral, *NullLiteral:
		return true
	case *ArrayLiteral:
		for _, v := range n.Values {
			if !IsLiteral(v) {
				return false
			}
		}
		return true
	case *StructLiteral:
		for _, v := range n.Values {
			if _, ok := v.(*Identifier); ok {
				continue
			}
			if !IsLiteral(v) {
				return false
			}
		}
		return true
	}
	return false
}
