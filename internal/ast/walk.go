package ast

// Link sets the parent reference of every node below root. Decode calls it;
// trees built by hand must call it before they are transpiled.
func Link(root Node) {
	for _, c := range root.Children() {
		c.setParent(root)
		Link(c)
	}
}

// Walk visits n and its descendants depth-first in source order. Returning
// false from fn skips the children of the current node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Ancestors returns the parents of n from the nearest outwards.
func Ancestors(n Node) []Node {
	var out []Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// IsLoop reports whether n is a looping statement.
func IsLoop(n Node) bool {
	switch n.(type) {
	case *While, *Do, *ForIn, *ForIndex:
		return true
	}
	return false
}

// LoopLabel returns the source label of a loop, or "".
func LoopLabel(n Node) string {
	switch l := n.(type) {
	case *While:
		return l.Label
	case *Do:
		return l.Label
	case *ForIn:
		return l.Label
	case *ForIndex:
		return l.Label
	}
	return ""
}

// IsCallableBoundary reports whether n starts a new callable body, which
// no control-flow statement may cross.
func IsCallableBoundary(n Node) bool {
	switch n.(type) {
	case *FunctionDeclaration, *Closure, *Lambda, *Script:
		return true
	}
	return false
}

// EnclosingCatch returns the nearest catch clause around n within the same
// callable, or nil.
func EnclosingCatch(n Node) *TryCatch {
	for p := n.Parent(); p != nil && !IsCallableBoundary(p); p = p.Parent() {
		if c, ok := p.(*TryCatch); ok && inBody(c.Body, n) {
			return c
		}
	}
	return nil
}

// inBody reports whether n is, or sits below, one of the statements.
func inBody(body []Stmt, n Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		for _, s := range body {
			if Node(s) == cur {
				return true
			}
		}
	}
	return false
}
