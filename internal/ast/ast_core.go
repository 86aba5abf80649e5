package ast

import (
	"github.com/funvibe/boxpiler/internal/diagnostics"
)

// Kind is the node type tag. Its values are the ASTType names used by the
// BoxLang AST interchange format.
type Kind string

// Point is a 1-based line/column pair.
type Point struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Position locates a node in its source file.
type Position struct {
	Start  Point
	End    Point
	Source string
}

// Span converts the position to a diagnostics span.
func (p Position) Span() diagnostics.Span {
	return diagnostics.Span{
		File:      p.Source,
		Line:      p.Start.Line,
		Column:    p.Start.Column,
		EndLine:   p.End.Line,
		EndColumn: p.End.Column,
	}
}

// Node is the base interface for all source AST nodes. Nodes are read-only
// once Link has run; the transpiler never mutates them.
type Node interface {
	Kind() Kind
	Position() Position
	SourceText() string
	// Parent is a non-owning back reference set by Link. It is only used
	// for contextual queries such as finding the enclosing loop.
	Parent() Node
	Children() []Node
	setParent(Node)
}

// Expr is a Node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a Node executed for its effect.
type Stmt interface {
	Node
	stmtNode()
}

// Base carries the data every node has. It is embedded by value in each
// concrete node type.
type Base struct {
	Pos  Position
	Text string

	parent Node
}

func (b *Base) Position() Position     { return b.Pos }
func (b *Base) SourceText() string     { return b.Text }
func (b *Base) Parent() Node           { return b.parent }
func (b *Base) setParent(p Node)       { b.parent = p }
func (b *Base) Span() diagnostics.Span { return b.Pos.Span() }

// nodes collects the non-nil entries of a mixed list of children.
func nodes(items ...Node) []Node {
	out := make([]Node, 0, len(items))
	for _, n := range items {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func exprs[E Expr](list []E) []Node {
	out := make([]Node, 0, len(list))
	for _, e := range list {
		out = append(out, e)
	}
	return out
}

func stmts(list []Stmt) []Node {
	out := make([]Node, 0, len(list))
	for _, s := range list {
		out = append(out, s)
	}
	return out
}
