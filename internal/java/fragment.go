package java

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Fragment is a piece of generated Java. Fragments only come out of the
// parser, so their text is always syntactically valid and canonically
// printed.
type Fragment interface {
	Kind() string
	String() string
	fragment()
}

// Call is the shape of a method invocation: Object.Name(Args...).
type Call struct {
	Object string
	Name   string
	Args   []string
}

// String prints the invocation with the canonical argument separator.
func (c *Call) String() string {
	var sb strings.Builder
	if c.Object != "" {
		sb.WriteString(c.Object)
		sb.WriteByte('.')
	}
	sb.WriteString(c.Name)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(c.Args, ", "))
	sb.WriteByte(')')
	return sb.String()
}

// WithArgument returns a copy of c with one more trailing argument.
func (c *Call) WithArgument(arg string) *Call {
	args := make([]string, 0, len(c.Args)+1)
	args = append(args, c.Args...)
	return &Call{Object: c.Object, Name: c.Name, Args: append(args, arg)}
}

// Expr is a Java expression.
type Expr struct {
	kind string
	text string
	call *Call
}

func (e *Expr) Kind() string   { return e.kind }
func (e *Expr) String() string { return e.text }
func (e *Expr) fragment()      {}

// Call describes the expression when it is a method invocation, nil
// otherwise.
func (e *Expr) Call() *Call { return e.call }

// IsStatementExpression reports whether Java accepts the expression on
// its own as a statement.
func (e *Expr) IsStatementExpression() bool {
	switch e.kind {
	case "method_invocation", "object_creation_expression", "assignment_expression", "update_expression":
		return true
	}
	return false
}

func newExpr(n *tree_sitter.Node, src []byte) *Expr {
	e := &Expr{kind: n.Kind(), text: Print(n, src)}
	if e.kind == "method_invocation" {
		e.call = newCall(n, src)
	}
	return e
}

func newCall(n *tree_sitter.Node, src []byte) *Call {
	c := &Call{}
	if obj := n.ChildByFieldName("object"); obj != nil {
		c.Object = Print(obj, src)
	}
	if name := n.ChildByFieldName("name"); name != nil {
		c.Name = name.Utf8Text(src)
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		for _, a := range namedChildren(args) {
			c.Args = append(c.Args, Print(a, src))
		}
	}
	return c
}

// Stmt is a Java statement; a block statement keeps its children.
type Stmt struct {
	kind   string
	text   string
	stmts  []*Stmt
	expr   *Expr
	abrupt bool
}

func (s *Stmt) Kind() string   { return s.kind }
func (s *Stmt) String() string { return s.text }
func (s *Stmt) fragment()      {}

func (s *Stmt) IsBlock() bool { return s.kind == "block" }

// Statements unwraps a block into its members. Any other statement is
// returned alone.
func (s *Stmt) Statements() []*Stmt {
	if s.IsBlock() {
		return s.stmts
	}
	return []*Stmt{s}
}

// Expression is the expression of an expression statement, nil for other
// statements.
func (s *Stmt) Expression() *Expr { return s.expr }

// Terminates reports whether control never falls off the end of s, so
// nothing may follow it.
func (s *Stmt) Terminates() bool { return s.abrupt }

func newStmt(n *tree_sitter.Node, src []byte) *Stmt {
	s := &Stmt{kind: n.Kind(), text: Print(n, src), abrupt: abrupt(n, src, nil)}
	switch s.kind {
	case "block":
		for _, c := range namedChildren(n) {
			s.stmts = append(s.stmts, newStmt(c, src))
		}
	case "expression_statement":
		if inner := namedChildren(n); len(inner) == 1 {
			s.expr = newExpr(inner[0], src)
		}
	}
	return s
}

// Decl is a class member declaration such as a nested class.
type Decl struct {
	kind string
	name string
	text string
}

func (d *Decl) Kind() string   { return d.kind }
func (d *Decl) String() string { return d.text }
func (d *Decl) fragment()      {}

// Name is the declared identifier; for a field it is the first declarator.
func (d *Decl) Name() string { return d.name }

func newDecl(n *tree_sitter.Node, src []byte) *Decl {
	d := &Decl{kind: n.Kind(), text: Print(n, src)}
	name := n.ChildByFieldName("name")
	if n.Kind() == "field_declaration" {
		if decl := n.ChildByFieldName("declarator"); decl != nil {
			name = decl.ChildByFieldName("name")
		}
	}
	if name != nil {
		d.name = name.Utf8Text(src)
	}
	return d
}

// Block is an ordered statement list under construction. It is not itself
// a fragment; templates receive its Source.
type Block struct {
	stmts []*Stmt
}

func NewBlock(stmts ...*Stmt) *Block {
	b := &Block{}
	b.Append(stmts...)
	return b
}

// Append adds statements at the end, flattening nested blocks.
func (b *Block) Append(stmts ...*Stmt) {
	for _, s := range stmts {
		if s != nil {
			b.stmts = append(b.stmts, s.Statements()...)
		}
	}
}

// Prepend inserts statements at index 0, keeping their order.
func (b *Block) Prepend(stmts ...*Stmt) {
	var head []*Stmt
	for _, s := range stmts {
		if s != nil {
			head = append(head, s.Statements()...)
		}
	}
	b.stmts = append(head, b.stmts...)
}

func (b *Block) Statements() []*Stmt { return b.stmts }
func (b *Block) Len() int            { return len(b.stmts) }

func (b *Block) Last() *Stmt {
	if len(b.stmts) == 0 {
		return nil
	}
	return b.stmts[len(b.stmts)-1]
}

// ReplaceLast swaps the final statement; it is a no-op on an empty block.
func (b *Block) ReplaceLast(s *Stmt) {
	if len(b.stmts) > 0 {
		b.stmts[len(b.stmts)-1] = s
	}
}

// Terminates reports whether the block's last statement cannot complete
// normally.
func (b *Block) Terminates() bool {
	last := b.Last()
	return last != nil && last.Terminates()
}

// Source joins the statements one per line, ready for substitution into
// an enclosing template.
func (b *Block) Source() string {
	parts := make([]string, len(b.stmts))
	for i, s := range b.stmts {
		parts[i] = s.text
	}
	return strings.Join(parts, "\n")
}
