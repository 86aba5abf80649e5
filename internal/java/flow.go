package java

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Reachability follows the "can complete normally" rules of JLS 14.22,
// restricted to the statement forms generated code uses. Anything it does
// not model is assumed to complete normally.

var loopKinds = map[string]bool{
	"while_statement":        true,
	"do_statement":           true,
	"for_statement":          true,
	"enhanced_for_statement": true,
}

// breakTargets are the statements an unlabeled break exits.
var breakTargets = map[string]bool{
	"while_statement":        true,
	"do_statement":           true,
	"for_statement":          true,
	"enhanced_for_statement": true,
	"switch_expression":      true,
	"switch_statement":       true,
}

// Bodies of nested classes and lambdas are separate flow scopes.
var flowBoundaries = map[string]bool{
	"lambda_expression":       true,
	"class_body":              true,
	"method_declaration":      true,
	"constructor_declaration": true,
}

// abrupt reports whether n cannot complete normally. labels are the
// labels attached directly to n.
func abrupt(n *tree_sitter.Node, src []byte, labels []string) bool {
	switch n.Kind() {
	case "return_statement", "throw_statement":
		return true

	case "block":
		stmts := namedChildren(n)
		return len(stmts) > 0 && abrupt(stmts[len(stmts)-1], src, nil)

	case "if_statement":
		then, alt := n.ChildByFieldName("consequence"), n.ChildByFieldName("alternative")
		return then != nil && alt != nil && abrupt(then, src, nil) && abrupt(alt, src, nil)

	case "labeled_statement":
		parts := namedChildren(n)
		if len(parts) != 2 {
			return false
		}
		label := parts[0].Utf8Text(src)
		inner := parts[1]
		return abrupt(inner, src, append(labels, label)) && !exits(inner, src, "break_statement", label, false)

	case "while_statement":
		return constantTrue(n.ChildByFieldName("condition"), src) && !exitsLoop(n, src, "break_statement", labels)

	case "for_statement":
		cond := n.ChildByFieldName("condition")
		return (cond == nil || constantTrue(cond, src)) && !exitsLoop(n, src, "break_statement", labels)

	case "do_statement":
		if exitsLoop(n, src, "break_statement", labels) {
			return false
		}
		if constantTrue(n.ChildByFieldName("condition"), src) {
			return true
		}
		body := n.ChildByFieldName("body")
		return body != nil && abrupt(body, src, nil) && !exitsLoop(n, src, "continue_statement", labels)

	case "synchronized_statement":
		body := n.ChildByFieldName("body")
		return body != nil && abrupt(body, src, nil)

	case "try_statement", "try_with_resources_statement":
		return abruptTry(n, src)
	}
	return false
}

func abruptTry(n *tree_sitter.Node, src []byte) bool {
	body := n.ChildByFieldName("body")
	handled := body != nil && abrupt(body, src, nil)
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "catch_clause":
			cb := c.ChildByFieldName("body")
			handled = handled && cb != nil && abrupt(cb, src, nil)
		case "finally_clause":
			for _, b := range namedChildren(c) {
				if b.Kind() == "block" && abrupt(b, src, nil) {
					return true
				}
			}
		}
	}
	return handled
}

// constantTrue recognises the literal true, possibly parenthesized.
func constantTrue(n *tree_sitter.Node, src []byte) bool {
	for n != nil && n.Kind() == "parenthesized_expression" {
		inner := namedChildren(n)
		if len(inner) != 1 {
			return false
		}
		n = inner[0]
	}
	return n != nil && n.Kind() == "true"
}

// exitsLoop reports whether the body of loop holds a break (or continue)
// aimed at it: unlabeled and not inside a nested target, or naming one of
// its labels.
func exitsLoop(loop *tree_sitter.Node, src []byte, kind string, labels []string) bool {
	body := loop.ChildByFieldName("body")
	if body == nil {
		return false
	}
	if exits(body, src, kind, "", true) {
		return true
	}
	for _, l := range labels {
		if exits(body, src, kind, l, false) {
			return true
		}
	}
	return false
}

// exits searches n for a jump of the given kind. With label set it looks
// for that label anywhere; otherwise it looks for an unlabeled jump that
// is not captured by a nested loop (or, for break, a nested switch).
func exits(n *tree_sitter.Node, src []byte, kind, label string, unlabeled bool) bool {
	if n.Kind() == kind {
		parts := namedChildren(n)
		if unlabeled {
			return len(parts) == 0
		}
		return len(parts) == 1 && parts[0].Utf8Text(src) == label
	}
	if flowBoundaries[n.Kind()] {
		return false
	}
	for _, c := range namedChildren(n) {
		if unlabeled && captures(c.Kind(), kind) {
			continue
		}
		if exits(c, src, kind, label, unlabeled) {
			return true
		}
	}
	return false
}

func captures(nodeKind, jump string) bool {
	if jump == "continue_statement" {
		return loopKinds[nodeKind]
	}
	return breakTargets[nodeKind]
}
