package ast

// Statement kinds.
const (
	KindScript              Kind = "BoxScript"
	KindExpressionStatement Kind = "BoxExpressionStatement"
	KindAssignment          Kind = "BoxAssignment"
	KindIfElse              Kind = "BoxIfElse"
	KindWhile               Kind = "BoxWhile"
	KindDo                  Kind = "BoxDo"
	KindForIn               Kind = "BoxForIn"
	KindForIndex            Kind = "BoxForIndex"
	KindSwitch              Kind = "BoxSwitch"
	KindBreak               Kind = "BoxBreak"
	KindContinue            Kind = "BoxContinue"
	KindReturn              Kind = "BoxReturn"
	KindTry                 Kind = "BoxTry"
	KindThrow               Kind = "BoxThrow"
	KindRethrow             Kind = "BoxRethrow"
	KindFunctionDeclaration Kind = "BoxFunctionDeclaration"
	KindImport              Kind = "BoxImport"
	KindAssert              Kind = "BoxAssert"
	KindParam               Kind = "BoxParam"
	KindComponent           Kind = "BoxComponent"
	KindStatementBlock      Kind = "BoxStatementBlock"
	KindBufferOutput        Kind = "BoxBufferOutput"
)

// Structural kinds only appear as parts of other nodes.
const (
	KindSwitchCase          Kind = "BoxSwitchCase"
	KindTryCatch            Kind = "BoxTryCatch"
	KindArgumentDeclaration Kind = "BoxArgumentDeclaration"
	KindAnnotation          Kind = "BoxAnnotation"
)

// Script is the root of a compilation unit.
type Script struct {
	Base
	Statements []Stmt
}

type ExpressionStatement struct {
	Base
	Expression Expr
}

// Assignment assigns Value to every target in order; `a = b = 1` has two
// targets. Var marks a `var` declaration that always writes the local scope.
type Assignment struct {
	Base
	Targets  []Expr
	Operator AssignmentOperator
	Value    Expr
	Var      bool
}

type IfElse struct {
	Base
	Condition Expr
	Then      []Stmt
	Else      []Stmt
}

type While struct {
	Base
	Label     string
	Condition Expr
	Body      []Stmt
}

type Do struct {
	Base
	Label     string
	Condition Expr
	Body      []Stmt
}

// ForIn is `for (var item in collection)`.
type ForIn struct {
	Base
	Label      string
	Variable   Expr
	Collection Expr
	Body       []Stmt
	Var        bool
}

// ForIndex is the C-style loop. Any of Initializer, Condition and Step
// may be nil.
type ForIndex struct {
	Base
	Label       string
	Initializer Stmt
	Condition   Expr
	Step        Expr
	Body        []Stmt
}

type Switch struct {
	Base
	Condition Expr
	Cases     []*SwitchCase
}

// SwitchCase with a nil Condition is the default case.
type SwitchCase struct {
	Base
	Condition Expr
	Body      []Stmt
}

type Break struct {
	Base
	Label string
}

type Continue struct {
	Base
	Label string
}

type Return struct {
	Base
	Expression Expr
}

type Try struct {
	Base
	Body    []Stmt
	Catches []*TryCatch
	Finally []Stmt
}

// TryCatch binds the caught exception to Exception, which must be an
// Identifier. Types lists the accepted exception types; empty means any.
type TryCatch struct {
	Base
	Exception Expr
	Types     []Expr
	Body      []Stmt
}

type Throw struct {
	Base
	Expression Expr
}

type Rethrow struct {
	Base
}

type FunctionDeclaration struct {
	Base
	Name          string
	Access        string
	ReturnType    string
	Args          []*ArgumentDeclaration
	Annotations   []*Annotation
	Documentation []*Annotation
	Body          []Stmt
}

type ArgumentDeclaration struct {
	Base
	Name        string
	Type        string
	Required    bool
	Default     Expr
	Annotations []*Annotation
}

type Annotation struct {
	Base
	Key   string
	Value Expr
}

// Import is `import java:java.lang.String as jstring;`.
type Import struct {
	Base
	Name  string
	Alias string
}

type Assert struct {
	Base
	Expression Expr
}

// Param declares a variable with an optional type and default.
type Param struct {
	Base
	Variable string
	Type     Expr
	Default  Expr
}

// Component is a structured-body statement (a tag or script component such
// as lock or transaction). Body is nil for body-less components. The body is
// compiled as a callable, so control flow leaving it uses sentinel results.
type Component struct {
	Base
	Name       string
	Attributes []*Annotation
	Body       []Stmt
}

type StatementBlock struct {
	Base
	Body []Stmt
}

// BufferOutput writes an expression to the output buffer.
type BufferOutput struct {
	Base
	Expression Expr
}

func (n *Script) Kind() Kind              { return KindScript }
func (n *ExpressionStatement) Kind() Kind { return KindExpressionStatement }
func (n *Assignment) Kind() Kind          { return KindAssignment }
func (n *IfElse) Kind() Kind              { return KindIfElse }
func (n *While) Kind() Kind               { return KindWhile }
func (n *Do) Kind() Kind                  { return KindDo }
func (n *ForIn) Kind() Kind               { return KindForIn }
func (n *ForIndex) Kind() Kind            { return KindForIndex }
func (n *Switch) Kind() Kind              { return KindSwitch }
func (n *SwitchCase) Kind() Kind          { return KindSwitchCase }
func (n *Break) Kind() Kind               { return KindBreak }
func (n *Continue) Kind() Kind            { return KindContinue }
func (n *Return) Kind() Kind              { return KindReturn }
func (n *Try) Kind() Kind                 { return KindTry }
func (n *TryCatch) Kind() Kind            { return KindTryCatch }
func (n *Throw) Kind() Kind               { return KindThrow }
func (n *Rethrow) Kind() Kind             { return KindRethrow }
func (n *FunctionDeclaration) Kind() Kind { return KindFunctionDeclaration }
func (n *ArgumentDeclaration) Kind() Kind { return KindArgumentDeclaration }
func (n *Annotation) Kind() Kind          { return KindAnnotation }
func (n *Import) Kind() Kind              { return KindImport }
func (n *Assert) Kind() Kind              { return KindAssert }
func (n *Param) Kind() Kind               { return KindParam }
func (n *Component) Kind() Kind           { return KindComponent }
func (n *StatementBlock) Kind() Kind      { return KindStatementBlock }
func (n *BufferOutput) Kind() Kind        { return KindBufferOutput }

func (n *Script) Children() []Node              { return stmts(n.Statements) }
func (n *ExpressionStatement) Children() []Node { return nodes(n.Expression) }
func (n *Assignment) Children() []Node          { return append(exprs(n.Targets), nodes(n.Value)...) }
func (n *IfElse) Children() []Node {
	return append(append(nodes(n.Condition), stmts(n.Then)...), stmts(n.Else)...)
}
func (n *While) Children() []Node { return append(nodes(n.Condition), stmts(n.Body)...) }
func (n *Do) Children() []Node    { return append(stmts(n.Body), nodes(n.Condition)...) }
func (n *ForIn) Children() []Node {
	return append(nodes(n.Variable, n.Collection), stmts(n.Body)...)
}
func (n *ForIndex) Children() []Node {
	var init Node
	if n.Initializer != nil {
		init = n.Initializer
	}
	return append(nodes(init, n.Condition, n.Step), stmts(n.Body)...)
}
func (n *Switch) Children() []Node     { return append(nodes(n.Condition), caseNodes(n.Cases)...) }
func (n *SwitchCase) Children() []Node { return append(nodes(n.Condition), stmts(n.Body)...) }
func (n *Break) Children() []Node      { return nil }
func (n *Continue) Children() []Node   { return nil }
func (n *Return) Children() []Node     { return nodes(n.Expression) }
func (n *Try) Children() []Node {
	out := stmts(n.Body)
	for _, c := range n.Catches {
		out = append(out, c)
	}
	return append(out, stmts(n.Finally)...)
}
func (n *TryCatch) Children() []Node {
	return append(append(nodes(n.Exception), exprs(n.Types)...), stmts(n.Body)...)
}
func (n *Throw) Children() []Node   { return nodes(n.Expression) }
func (n *Rethrow) Children() []Node { return nil }
func (n *FunctionDeclaration) Children() []Node {
	out := callableChildren(n.Args, n.Annotations, nil)
	for _, d := range n.Documentation {
		out = append(out, d)
	}
	return append(out, stmts(n.Body)...)
}
func (n *ArgumentDeclaration) Children() []Node {
	out := nodes(n.Default)
	for _, a := range n.Annotations {
		out = append(out, a)
	}
	return out
}
func (n *Annotation) Children() []Node { return nodes(n.Value) }
func (n *Import) Children() []Node     { return nil }
func (n *Assert) Children() []Node     { return nodes(n.Expression) }
func (n *Param) Children() []Node      { return nodes(n.Type, n.Default) }
func (n *Component) Children() []Node {
	out := make([]Node, 0, len(n.Attributes)+len(n.Body))
	for _, a := range n.Attributes {
		out = append(out, a)
	}
	return append(out, stmts(n.Body)...)
}
func (n *StatementBlock) Children() []Node { return stmts(n.Body) }
func (n *BufferOutput) Children() []Node   { return nodes(n.Expression) }

func (n *Script) stmtNode()              {}
func (n *ExpressionStatement) stmtNode() {}
func (n *Assignment) stmtNode()          {}
func (n *IfElse) stmtNode()              {}
func (n *While) stmtNode()               {}
func (n *Do) stmtNode()                  {}
func (n *ForIn) stmtNode()               {}
func (n *ForIndex) stmtNode()            {}
func (n *Switch) stmtNode()              {}
func (n *Break) stmtNode()               {}
func (n *Continue) stmtNode()            {}
func (n *Return) stmtNode()              {}
func (n *Try) stmtNode()                 {}
func (n *Throw) stmtNode()               {}
func (n *Rethrow) stmtNode()             {}
func (n *FunctionDeclaration) stmtNode() {}
func (n *Import) stmtNode()              {}
func (n *Assert) stmtNode()              {}
func (n *Param) stmtNode()               {}
func (n *Component) stmtNode()           {}
func (n *StatementBlock) stmtNode()      {}
func (n *BufferOutput) stmtNode()        {}

func caseNodes(cases []*SwitchCase) []Node {
	out := make([]Node, 0, len(cases))
	for _, c := range cases {
		out = append(out, c)
	}
	return out
}
