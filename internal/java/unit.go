package java

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// CompilationUnit is a parsed, canonically printed Java source file.
type CompilationUnit struct {
	Package string
	Imports []string
	Class   *ClassDecl
	Source  string

	// SourceMap pairs generated lines with source lines. It is filled by
	// whoever built the unit; the parser leaves it empty.
	SourceMap []LineMapping
}

// LineMapping ties a 1-based line of Source to a 1-based source line.
type LineMapping struct {
	JavaLine   int
	SourceLine int
}

// ClassDecl is a class and its members, nested classes included.
type ClassDecl struct {
	Name    string
	Extends string
	Line    int
	Members []*Member
}

// Member is one class body declaration.
type Member struct {
	Kind string
	Name string
	Line int
	Text string

	// Body holds the statements of a method or constructor.
	Body []*Located
	// Class is set for nested class members.
	Class *ClassDecl
}

// Located is a statement with its 1-based line in the printed source.
type Located struct {
	Line int
	Text string
}

// Method finds a method member by name.
func (c *ClassDecl) Method(name string) *Member {
	for _, m := range c.Members {
		if m.Kind == "method_declaration" && m.Name == name {
			return m
		}
	}
	return nil
}

// Nested finds a nested class member by name.
func (c *ClassDecl) Nested(name string) *ClassDecl {
	for _, m := range c.Members {
		if m.Class != nil && m.Class.Name == name {
			return m.Class
		}
	}
	return nil
}

// Field finds a field member by its first declarator name.
func (c *ClassDecl) Field(name string) *Member {
	for _, m := range c.Members {
		if m.Kind == "field_declaration" && m.Name == name {
			return m
		}
	}
	return nil
}

// The unit's structure is read from the canonical print, not from the
// input, so member lines match Source.
func newCompilationUnit(root *tree_sitter.Node, src []byte) *CompilationUnit {
	printed := []byte(Print(root, src))
	u := &CompilationUnit{Source: string(printed)}
	_ = withTree(printed, func(root *tree_sitter.Node) error {
		for _, n := range namedChildren(root) {
			switch n.Kind() {
			case "package_declaration":
				if names := namedChildren(n); len(names) > 0 {
					u.Package = names[len(names)-1].Utf8Text(printed)
				}
			case "import_declaration":
				u.Imports = append(u.Imports, importPath(n, printed))
			case "class_declaration":
				if u.Class == nil {
					u.Class = newClassDecl(n, printed)
				}
			}
		}
		return nil
	})
	return u
}

func importPath(n *tree_sitter.Node, src []byte) string {
	text := Print(n, src)
	text = text[len("import "):]
	return text[:len(text)-1]
}

func newClassDecl(n *tree_sitter.Node, src []byte) *ClassDecl {
	c := &ClassDecl{Line: line(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		c.Name = name.Utf8Text(src)
	}
	if sc := n.ChildByFieldName("superclass"); sc != nil {
		if types := namedChildren(sc); len(types) > 0 {
			c.Extends = types[0].Utf8Text(src)
		}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return c
	}
	for _, m := range namedChildren(body) {
		member := &Member{Kind: m.Kind(), Line: line(m), Text: Print(m, src)}
		switch m.Kind() {
		case "field_declaration":
			if d := m.ChildByFieldName("declarator"); d != nil {
				if name := d.ChildByFieldName("name"); name != nil {
					member.Name = name.Utf8Text(src)
				}
			}
		case "method_declaration", "constructor_declaration":
			if name := m.ChildByFieldName("name"); name != nil {
				member.Name = name.Utf8Text(src)
			}
			if b := m.ChildByFieldName("body"); b != nil {
				for _, s := range namedChildren(b) {
					member.Body = append(member.Body, &Located{Line: line(s), Text: Print(s, src)})
				}
			}
		case "class_declaration":
			member.Class = newClassDecl(m, src)
			member.Name = member.Class.Name
		}
		c.Members = append(c.Members, member)
	}
	return c
}

func line(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}
