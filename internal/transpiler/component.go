package transpiler

import (
	"fmt"
	"strings"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/java"
)

// component invokes a structured-body component. The body becomes a lambda
// run by the runtime, so break, continue and return inside it come back as
// a BodyResult which is re-raised here against the surrounding code.
func component(tr *Transpiler, n *ast.Component, _ TransformContext) (*java.Stmt, error) {
	num := tr.state.Next(CounterComponent)
	outer := tr.ctx()
	name := tr.state.Key(n.Name)
	attrs, err := tr.attributes(n.Attributes)
	if err != nil {
		return nil, err
	}
	if n.Body == nil {
		return renderStmt("${ctx}.invokeComponent(${name}, ${attrs}, null);",
			"ctx", outer, "name", name, "attrs", attrs)
	}

	cctx := fmt.Sprintf("componentContext%d", num)
	result := fmt.Sprintf("componentResult%d", num)
	frame := tr.state.frame(n)
	var body *java.Block
	err = tr.withContext(cctx, func() error {
		var err error
		body, err = tr.Body(n.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	bodyText := body.Source()
	if !body.Terminates() {
		bodyText += "\nreturn Component.DEFAULT_RETURN;"
	}
	propagation, err := tr.propagate(n, frame, result)
	if err != nil {
		return nil, err
	}
	return renderStmt(`{
Component.BodyResult ${result} = ${ctx}.invokeComponent(${name}, ${attrs}, (${cctx}) -> {
${body}
});
${propagation}
}`,
		"result", result, "ctx", outer, "name", name, "attrs", attrs,
		"cctx", cctx, "body", bodyText, "propagation", propagation)
}

// propagate re-raises the jumps recorded for a component body from the
// component's own position.
func (tr *Transpiler) propagate(n *ast.Component, frame *componentFrame, result string) (string, error) {
	type check struct {
		test, action string
		sentinel     bool
	}
	var checks []check
	for _, j := range frame.jumps {
		target, err := tr.locateJump(n, j.kind, j.label)
		if err != nil {
			return "", err
		}
		c := check{sentinel: target.component != nil}
		switch j.kind {
		case jumpBreak:
			c.test = result + ".isBreak(" + labelTest(j.label) + ")"
		case jumpContinue:
			c.test = result + ".isContinue(" + labelTest(j.label) + ")"
		case jumpReturn:
			c.test = result + ".isReturn()"
		}
		switch {
		case c.sentinel:
			c.action = "return " + result + ";"
		case j.kind == jumpReturn && tr.voidReturn():
			c.action = "return;"
		case j.kind == jumpReturn:
			c.action = "return " + result + ".returnValue();"
		default:
			c.action = target.native
		}
		checks = append(checks, c)
	}
	if len(checks) == 0 {
		return "", nil
	}
	nested := true
	for _, c := range checks {
		nested = nested && c.sentinel
	}
	if nested {
		return fmt.Sprintf("if (%s.isEarlyExit()) {\nreturn %s;\n}", result, result), nil
	}
	out := make([]string, len(checks))
	for i, c := range checks {
		out[i] = fmt.Sprintf("if (%s) {\n%s\n}", c.test, c.action)
	}
	return strings.Join(out, "\n"), nil
}

func labelTest(label string) string {
	if label == "" {
		return ""
	}
	return java.Quote(label)
}

// attributes renders component attributes. Unlike annotations they are
// evaluated at run time.
func (tr *Transpiler) attributes(list []*ast.Annotation) (string, error) {
	if len(list) == 0 {
		return "Struct.EMPTY", nil
	}
	pairs := make([]string, 0, 2*len(list))
	for _, a := range list {
		value := `""`
		if a.Value != nil {
			e, err := tr.Expression(a.Value, Right)
			if err != nil {
				return "", err
			}
			value = e.String()
		}
		pairs = append(pairs, tr.state.Key(a.Key), value)
	}
	return "Struct.linkedOf(" + strings.Join(pairs, ", ") + ")", nil
}
