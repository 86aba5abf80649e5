package java

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

var (
	errPoolType = errors.New("java parser: pool returned unexpected type")

	language = tree_sitter.NewLanguage(tree_sitter_java.Language())

	// Parsers are not safe for concurrent use; units transpiled on
	// different goroutines each take their own from the pool.
	parserPool = sync.Pool{
		New: func() any {
			p := tree_sitter.NewParser()
			if err := p.SetLanguage(language); err != nil {
				return err
			}
			return p
		},
	}
)

// Fragments are parsed inside a synthetic class so the grammar sees them in
// a legal position: an expression as a field initializer, a statement as a
// method body, a declaration as a class member.
const (
	exprPrefix = "class __Fragment {\nObject __value =\n"
	exprSuffix = "\n;\n}\n"
	stmtPrefix = "class __Fragment {\nvoid __body() {\n"
	stmtSuffix = "\n}\n}\n"
	declPrefix = "class __Fragment {\n"
	declSuffix = "\n}\n"
)

// SyntaxError reports text that does not parse as the requested Java
// construct. Line and Column are 1-based and relative to Text.
type SyntaxError struct {
	Text   string
	Line   int
	Column int
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return "java syntax error: " + e.Reason
	}
	return fmt.Sprintf("java syntax error at %d:%d: %s", e.Line, e.Column, e.Reason)
}

func withTree(src []byte, fn func(root *tree_sitter.Node) error) error {
	v := parserPool.Get()
	p, ok := v.(*tree_sitter.Parser)
	if !ok {
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("java parser: %w", err)
		}
		return errPoolType
	}
	defer parserPool.Put(p)

	tree := p.Parse(src, nil)
	if tree == nil {
		return errors.New("java parser: no tree produced")
	}
	defer tree.Close()
	return fn(tree.RootNode())
}

// ParseExpression parses text as exactly one Java expression and returns
// its canonical fragment.
func ParseExpression(text string) (*Expr, error) {
	src := []byte(exprPrefix + text + exprSuffix)
	var out *Expr
	err := withTree(src, func(root *tree_sitter.Node) error {
		if err := syntaxCheck(root, src, text, 2); err != nil {
			return err
		}
		member, err := soleMember(root, text)
		if err != nil {
			return err
		}
		if member.Kind() != "field_declaration" {
			return &SyntaxError{Text: text, Reason: "not an expression"}
		}
		var declarators []*tree_sitter.Node
		for _, c := range namedChildren(member) {
			if c.Kind() == "variable_declarator" {
				declarators = append(declarators, c)
			}
		}
		if len(declarators) != 1 {
			return &SyntaxError{Text: text, Reason: "expected a single expression"}
		}
		value := declarators[0].ChildByFieldName("value")
		if value == nil {
			return &SyntaxError{Text: text, Reason: "empty expression"}
		}
		out = newExpr(value, src)
		return nil
	})
	return out, err
}

// ParseStatement parses text as exactly one Java statement (which may be a
// block) and returns its canonical fragment.
func ParseStatement(text string) (*Stmt, error) {
	src := []byte(stmtPrefix + text + stmtSuffix)
	var out *Stmt
	err := withTree(src, func(root *tree_sitter.Node) error {
		if err := syntaxCheck(root, src, text, 2); err != nil {
			return err
		}
		member, err := soleMember(root, text)
		if err != nil {
			return err
		}
		body := member.ChildByFieldName("body")
		if member.Kind() != "method_declaration" || body == nil {
			return &SyntaxError{Text: text, Reason: "not a statement"}
		}
		stmts := namedChildren(body)
		if len(stmts) != 1 {
			return &SyntaxError{Text: text, Reason: fmt.Sprintf("expected one statement, found %d", len(stmts))}
		}
		out = newStmt(stmts[0], src)
		return nil
	})
	return out, err
}

// ParseDeclaration parses text as exactly one class member, typically a
// nested class.
func ParseDeclaration(text string) (*Decl, error) {
	src := []byte(declPrefix + text + declSuffix)
	var out *Decl
	err := withTree(src, func(root *tree_sitter.Node) error {
		if err := syntaxCheck(root, src, text, 1); err != nil {
			return err
		}
		member, err := soleMember(root, text)
		if err != nil {
			return err
		}
		out = newDecl(member, src)
		return nil
	})
	return out, err
}

// ParseCompilationUnit parses and canonicalises a complete source file.
func ParseCompilationUnit(text string) (*CompilationUnit, error) {
	src := []byte(text)
	var out *CompilationUnit
	err := withTree(src, func(root *tree_sitter.Node) error {
		if err := syntaxCheck(root, src, text, 0); err != nil {
			return err
		}
		out = newCompilationUnit(root, src)
		return nil
	})
	return out, err
}

// syntaxCheck finds the first ERROR or MISSING node and reports it
// relative to the unwrapped text, which starts after skip wrapper lines.
func syntaxCheck(root *tree_sitter.Node, src []byte, text string, skip int) error {
	if !root.HasError() {
		return nil
	}
	bad := firstError(root)
	if bad == nil {
		return &SyntaxError{Text: text, Reason: "unparseable input"}
	}
	pos := bad.StartPosition()
	reason := "unexpected " + quote(bad.Utf8Text(src))
	if bad.IsMissing() {
		reason = "missing " + bad.Kind()
	}
	return &SyntaxError{
		Text:   text,
		Line:   int(pos.Row) + 1 - skip,
		Column: int(pos.Column) + 1,
		Reason: reason,
	}
}

func firstError(n *tree_sitter.Node) *tree_sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

// soleMember returns the only member of the synthetic wrapper class.
func soleMember(root *tree_sitter.Node, text string) (*tree_sitter.Node, error) {
	decls := namedChildren(root)
	if len(decls) != 1 || decls[0].Kind() != "class_declaration" {
		return nil, &SyntaxError{Text: text, Reason: "fragment escapes its wrapper"}
	}
	body := decls[0].ChildByFieldName("body")
	if body == nil {
		return nil, &SyntaxError{Text: text, Reason: "fragment escapes its wrapper"}
	}
	members := namedChildren(body)
	if len(members) != 1 {
		return nil, &SyntaxError{Text: text, Reason: "fragment escapes its wrapper"}
	}
	return members[0], nil
}

// namedChildren lists the named children of n, skipping comments.
func namedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || isComment(c.Kind()) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isComment(kind string) bool {
	return kind == "line_comment" || kind == "block_comment"
}

func quote(s string) string {
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return "'" + strings.ReplaceAll(s, "\n", " ") + "'"
}
