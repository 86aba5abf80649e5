package java

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// CodePrinter renders a tree-sitter Java node in one canonical layout:
// every block member on its own line, four-space indentation and fixed
// token spacing. Two inputs that differ only in whitespace print the same.
type CodePrinter struct {
	buf    bytes.Buffer
	src    []byte
	indent int
	prev   *token
}

// token is a leaf as the spacing rules see it.
type token struct {
	text   string
	named  bool
	parent string
}

func NewCodePrinter(src []byte) *CodePrinter {
	return &CodePrinter{src: src}
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

// Print renders n and returns the printed text.
func Print(n *tree_sitter.Node, src []byte) string {
	p := NewCodePrinter(src)
	p.Print(n)
	return p.String()
}

var blockKinds = map[string]bool{
	"block":            true,
	"class_body":       true,
	"constructor_body": true,
	"interface_body":   true,
	"switch_block":     true,
}

var atomicKinds = map[string]bool{
	"string_literal":    true,
	"character_literal": true,
	"text_block":        true,
}

// Kinds whose anonymous children are binary operators.
var infixParents = map[string]bool{
	"binary_expression":     true,
	"assignment_expression": true,
	"ternary_expression":    true,
	"lambda_expression":     true,
}

var memberKinds = map[string]bool{
	"method_declaration":      true,
	"constructor_declaration": true,
	"class_declaration":       true,
	"interface_declaration":   true,
	"enum_declaration":        true,
}

func (p *CodePrinter) Print(n *tree_sitter.Node) {
	p.print(n, "")
}

func (p *CodePrinter) print(n *tree_sitter.Node, parent string) {
	kind := n.Kind()
	switch {
	case isComment(kind):
		return
	case kind == "program":
		p.printProgram(n)
	case blockKinds[kind]:
		p.printBlock(n)
	case atomicKinds[kind] || n.ChildCount() == 0:
		p.emit(token{text: n.Utf8Text(p.src), named: n.IsNamed(), parent: parent})
	default:
		for i := uint(0); i < n.ChildCount(); i++ {
			p.print(n.Child(i), kind)
		}
	}
}

func (p *CodePrinter) printProgram(n *tree_sitter.Node) {
	last := ""
	for i, c := range namedChildren(n) {
		if i > 0 {
			p.newline()
			if c.Kind() != last || memberKinds[c.Kind()] {
				p.newline()
			}
		}
		last = c.Kind()
		p.print(c, "program")
	}
}

func (p *CodePrinter) printBlock(n *tree_sitter.Node) {
	kind := n.Kind()
	p.emit(token{text: "{", parent: kind})
	members := namedChildren(n)
	if len(members) == 0 {
		p.write("}")
		p.prev = &token{text: "}", parent: kind}
		return
	}
	p.indent++
	for i, m := range members {
		p.newline()
		if kind == "class_body" && i > 0 && (memberKinds[m.Kind()] || memberKinds[members[i-1].Kind()]) {
			p.newline()
		}
		p.print(m, kind)
	}
	p.indent--
	p.newline()
	p.emit(token{text: "}", parent: kind})
}

func (p *CodePrinter) emit(t token) {
	if p.prev == nil {
		p.writeIndent()
	} else if spaced(p.prev, &t) {
		p.write(" ")
	}
	p.write(t.text)
	p.prev = &t
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

// newline ends the current line; the next token starts a fresh, indented
// one.
func (p *CodePrinter) newline() {
	p.buf.WriteByte('\n')
	p.prev = nil
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

func isInfix(t *token) bool {
	if t.named {
		return false
	}
	switch {
	case infixParents[t.parent]:
		return true
	case t.parent == "variable_declarator" && t.text == "=":
		return true
	case t.parent == "enhanced_for_statement" && t.text == ":":
		return true
	}
	return false
}

func isKeyword(t *token) bool {
	return !t.named && wordStart(t.text) && wordEnd(t.text)
}

// spaced decides whether a space separates two adjacent tokens.
func spaced(prev, cur *token) bool {
	if isInfix(prev) || isInfix(cur) {
		return true
	}
	switch cur.text {
	case ")", "]", ",", ";", ".", "::", "[", "++", "--":
		return false
	case ":":
		if cur.parent == "labeled_statement" || cur.parent == "switch_label" {
			return false
		}
	}
	if cur.parent == "array_initializer" && cur.text == "}" {
		return prev.text != "{"
	}
	if cur.parent == "type_arguments" && (cur.text == "<" || cur.text == ">") {
		return false
	}
	if prev.parent == "type_arguments" && prev.text == "<" {
		return false
	}
	switch prev.text {
	case "(", "[", ".", "::", "@":
		return false
	case ",", ";", ":", "?", "}":
		return true
	case "++", "--":
		return prev.parent != "update_expression"
	}
	if prev.parent == "unary_expression" && !prev.named {
		return false
	}
	if isKeyword(prev) {
		return true
	}
	if prev.parent == "array_initializer" && prev.text == "{" {
		return true
	}
	switch cur.text {
	case "(":
		return prev.parent == "cast_expression" && prev.text == ")"
	case "{":
		return true
	}
	if prev.parent == "type_arguments" && prev.text == ">" {
		return wordStart(cur.text)
	}
	if prev.text == ")" || prev.text == "]" {
		return wordStart(cur.text)
	}
	return wordEnd(prev.text) && wordStart(cur.text)
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || r == '"' || r == '\'' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && isWordRune(r)
}

func wordEnd(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && isWordRune(r)
}
