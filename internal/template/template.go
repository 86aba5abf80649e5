// Package template renders Java source templates into parsed fragments.
//
// A template is Java text with ${name} placeholders. Rendering substitutes
// every placeholder in one left-to-right pass (substituted text is never
// scanned again) and parses the result back, so a fragment that comes out
// of here is always well formed.
package template

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
)

// Values is an ordered substitution map, built for a single render.
type Values struct {
	names []string
	texts map[string]string
}

// NewValues builds Values from name/text pairs. A trailing name without a
// text is ignored.
func NewValues(pairs ...string) *Values {
	v := &Values{texts: make(map[string]string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

// Set binds name, replacing an earlier binding in place.
func (v *Values) Set(name, text string) *Values {
	if _, ok := v.texts[name]; !ok {
		v.names = append(v.names, name)
	}
	v.texts[name] = text
	return v
}

func (v *Values) Lookup(name string) (string, bool) {
	if v == nil {
		return "", false
	}
	t, ok := v.texts[name]
	return t, ok
}

// Names lists bound names in binding order.
func (v *Values) Names() []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v.names...)
}

// Substitute resolves every ${name} in tmpl.
func Substitute(tmpl string, values *Values) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tmpl))
	rest := tmpl
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		sb.WriteString(rest[:i])
		end := strings.IndexByte(rest[i+2:], '}')
		if end < 0 {
			return "", diagnostics.NewError(diagnostics.TemplateRenderFailure, diagnostics.Span{},
				"unterminated placeholder").WithFragment(tmpl)
		}
		name := rest[i+2 : i+2+end]
		text, ok := values.Lookup(name)
		if !ok {
			return "", diagnostics.NewError(diagnostics.TemplateRenderFailure, diagnostics.Span{},
				"no value for placeholder ${%s}", name).WithFragment(tmpl)
		}
		sb.WriteString(text)
		rest = rest[i+2+end+1:]
	}
}

// RenderExpression substitutes values into tmpl and parses the result as a
// single Java expression.
func RenderExpression(tmpl string, values *Values) (*java.Expr, error) {
	text, err := Substitute(tmpl, values)
	if err != nil {
		return nil, err
	}
	e, err := java.ParseExpression(text)
	if err != nil {
		return nil, renderFailure(err, "expression", text)
	}
	return e, nil
}

// RenderStatement substitutes values into tmpl and parses the result as a
// single Java statement. Several statements must be wrapped in a block.
func RenderStatement(tmpl string, values *Values) (*java.Stmt, error) {
	text, err := Substitute(tmpl, values)
	if err != nil {
		return nil, err
	}
	s, err := java.ParseStatement(text)
	if err != nil {
		return nil, renderFailure(err, "statement", text)
	}
	return s, nil
}

// RenderDeclaration substitutes values into tmpl and parses the result as a
// single class member.
func RenderDeclaration(tmpl string, values *Values) (*java.Decl, error) {
	text, err := Substitute(tmpl, values)
	if err != nil {
		return nil, err
	}
	d, err := java.ParseDeclaration(text)
	if err != nil {
		return nil, renderFailure(err, "declaration", text)
	}
	return d, nil
}

func renderFailure(err error, what, text string) error {
	e := diagnostics.Wrap(diagnostics.TemplateRenderFailure, diagnostics.Span{}, err,
		"rendered template is not a valid Java %s", what).WithFragment(text)
	var se *java.SyntaxError
	if errors.As(err, &se) && se.Line > 0 {
		e = e.WithHint(fmt.Sprintf("see line %d of the generated text", se.Line))
	}
	return e
}

// RenderCompilationUnit substitutes values into a whole-file template and
// parses the result as a Java compilation unit.
func RenderCompilationUnit(tmpl string, values *Values) (*java.CompilationUnit, error) {
	text, err := Substitute(tmpl, values)
	if err != nil {
		return nil, err
	}
	u, err := java.ParseCompilationUnit(text)
	if err != nil {
		return nil, renderFailure(err, "compilation unit", text)
	}
	return u, nil
}
