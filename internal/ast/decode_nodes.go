package ast

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/boxpiler/internal/diagnostics"
)

type object = map[string]any

type builder func(d *decoder, m object, b Base, path string) (Node, error)

// builders is filled in init to break the initialization cycle through
// decoder.node.
var builders map[Kind]builder

type decoder struct {
	file string
}

func (d *decoder) fail(path string, b Base, format string, args ...any) error {
	span := b.Pos.Span()
	if span.File == "" {
		span.File = d.file
	}
	return diagnostics.NewError(diagnostics.MalformedAST, span, "%s: %s", path, fmt.Sprintf(format, args...)).WithSource(b.Text)
}

func (d *decoder) node(v any, path string) (Node, error) {
	m, ok := v.(object)
	if !ok {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, diagnostics.Span{File: d.file}, "%s: expected a node object, got %T", path, v)
	}
	b := Base{Pos: d.position(m["position"]), Text: stringOf(m["sourceText"])}
	kind := Kind(stringOf(m["ASTType"]))
	build, ok := builders[kind]
	if !ok {
		err := diagnostics.NewError(diagnostics.UnknownNodeType, b.Pos.Span(), "%s: unknown ASTType %q", path, kind).WithSource(b.Text)
		if s := suggestKind(string(kind)); s != "" {
			err.WithHint("did you mean " + s + "?")
		}
		return nil, err
	}
	return build(d, m, b, path)
}

func (d *decoder) position(v any) Position {
	m, ok := v.(object)
	if !ok {
		return Position{Source: d.file}
	}
	p := Position{Start: point(m["start"]), End: point(m["end"]), Source: d.file}
	if src := stringOf(m["source"]); src != "" {
		p.Source = src
	}
	return p
}

func point(v any) Point {
	m, ok := v.(object)
	if !ok {
		return Point{}
	}
	return Point{Line: intOf(m["line"]), Column: intOf(m["column"])}
}

func (d *decoder) expr(m object, key string, b Base, path string) (Expr, error) {
	e, err := d.optExpr(m, key, path)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, d.fail(path, b, "missing %q", key)
	}
	return e, nil
}

func (d *decoder) optExpr(m object, key, path string) (Expr, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, err := d.node(v, path+"."+key)
	if err != nil {
		return nil, err
	}
	e, ok := n.(Expr)
	if !ok {
		return nil, d.fail(path+"."+key, Base{Pos: n.Position(), Text: n.SourceText()}, "%s is not an expression", n.Kind())
	}
	return e, nil
}

func (d *decoder) exprList(m object, key, path string) ([]Expr, error) {
	items, _ := m[key].([]any)
	out := make([]Expr, 0, len(items))
	for i, v := range items {
		p := fmt.Sprintf("%s.%s[%d]", path, key, i)
		n, err := d.node(v, p)
		if err != nil {
			return nil, err
		}
		e, ok := n.(Expr)
		if !ok {
			return nil, d.fail(p, Base{Pos: n.Position(), Text: n.SourceText()}, "%s is not an expression", n.Kind())
		}
		out = append(out, e)
	}
	return out, nil
}

// stmt accepts an expression where a statement is expected and wraps it,
// since BoxLang models some statement positions (loop initializers) as
// expressions.
func (d *decoder) stmt(v any, path string) (Stmt, error) {
	n, err := d.node(v, path)
	if err != nil {
		return nil, err
	}
	switch s := n.(type) {
	case Stmt:
		return s, nil
	case Expr:
		return &ExpressionStatement{Base: Base{Pos: s.Position(), Text: s.SourceText()}, Expression: s}, nil
	}
	return nil, d.fail(path, Base{Pos: n.Position(), Text: n.SourceText()}, "%s is not a statement", n.Kind())
}

func (d *decoder) stmtList(m object, key, path string) ([]Stmt, error) {
	items, _ := m[key].([]any)
	out := make([]Stmt, 0, len(items))
	for i, v := range items {
		s, err := d.stmt(v, fmt.Sprintf("%s.%s[%d]", path, key, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// typed decodes a list of structural nodes of one concrete type.
func typed[T Node](d *decoder, m object, key, path string) ([]T, error) {
	items, _ := m[key].([]any)
	out := make([]T, 0, len(items))
	for i, v := range items {
		p := fmt.Sprintf("%s.%s[%d]", path, key, i)
		n, err := d.node(v, p)
		if err != nil {
			return nil, err
		}
		t, ok := n.(T)
		if !ok {
			var zero T
			return nil, d.fail(p, Base{Pos: n.Position(), Text: n.SourceText()}, "expected %T, got %s", zero, n.Kind())
		}
		out = append(out, t)
	}
	return out, nil
}

// nameOf reads a name given either as a string or as a node carrying a
// value/name (BoxFQN, BoxIdentifier, BoxStringLiteral).
func nameOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case object:
		if s := stringOf(t["value"]); s != "" {
			return s
		}
		return stringOf(t["name"])
	}
	return ""
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return ""
}

func boolOf(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true") || strings.EqualFold(t, "yes")
	}
	return false
}

func intOf(v any) int {
	if n, ok := v.(json.Number); ok {
		i, err := n.Int64()
		if err == nil {
			return int(i)
		}
	}
	return 0
}

func opError[O ~int](d *decoder, names map[O]string, path string, b Base, got string) error {
	known := make([]string, 0, len(names))
	for _, n := range names {
		known = append(known, n)
	}
	sort.Strings(known)
	return d.fail(path, b, "unknown operator %q (known: %s)", got, strings.Join(known, ", "))
}

func init() {
	builders = map[Kind]builder{
		KindIntegerLiteral: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &IntegerLiteral{Base: b, Value: stringOf(m["value"])}, nil
		},
		KindDecimalLiteral: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &DecimalLiteral{Base: b, Value: stringOf(m["value"])}, nil
		},
		KindStringLiteral: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &StringLiteral{Base: b, Value: stringOf(m["value"])}, nil
		},
		KindBooleanLiteral: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &BooleanLiteral{Base: b, Value: boolOf(m["value"])}, nil
		},
		KindNull: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &NullLiteral{Base: b}, nil
		},
		KindStringInterpolation: func(d *decoder, m object, b Base, path string) (Node, error) {
			parts, err := d.exprList(m, "values", path)
			return &StringInterpolation{Base: b, Parts: parts}, err
		},
		KindArrayLiteral: func(d *decoder, m object, b Base, path string) (Node, error) {
			values, err := d.exprList(m, "values", path)
			return &ArrayLiteral{Base: b, Values: values}, err
		},
		KindStructLiteral: func(d *decoder, m object, b Base, path string) (Node, error) {
			values, err := d.exprList(m, "values", path)
			if err != nil {
				return nil, err
			}
			if len(values)%2 != 0 {
				return nil, d.fail(path, b, "struct literal needs key/value pairs, got %d values", len(values))
			}
			return &StructLiteral{Base: b, Ordered: strings.EqualFold(stringOf(m["type"]), "ordered"), Values: values}, nil
		},
		KindIdentifier: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &Identifier{Base: b, Name: stringOf(m["name"])}, nil
		},
		KindScope: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &Scope{Base: b, Name: stringOf(m["name"])}, nil
		},
		KindDotAccess: func(d *decoder, m object, b Base, path string) (Node, error) {
			ctx, err := d.expr(m, "context", b, path)
			if err != nil {
				return nil, err
			}
			access, err := d.expr(m, "access", b, path)
			if err != nil {
				return nil, err
			}
			return &DotAccess{Base: b, Context: ctx, Access: access, Safe: boolOf(m["safe"])}, nil
		},
		KindArrayAccess: func(d *decoder, m object, b Base, path string) (Node, error) {
			ctx, err := d.expr(m, "context", b, path)
			if err != nil {
				return nil, err
			}
			access, err := d.expr(m, "access", b, path)
			if err != nil {
				return nil, err
			}
			return &ArrayAccess{Base: b, Context: ctx, Access: access, Safe: boolOf(m["safe"])}, nil
		},
		KindBinaryOperation: func(d *decoder, m object, b Base, path string) (Node, error) {
			left, right, err := d.operands(m, b, path)
			if err != nil {
				return nil, err
			}
			op, ok := ParseBinaryOperator(stringOf(m["operator"]))
			if !ok {
				return nil, opError(d, binaryNames, path, b, stringOf(m["operator"]))
			}
			return &BinaryOperation{Base: b, Left: left, Operator: op, Right: right}, nil
		},
		KindComparisonOperation: func(d *decoder, m object, b Base, path string) (Node, error) {
			left, right, err := d.operands(m, b, path)
			if err != nil {
				return nil, err
			}
			op, ok := ParseComparisonOperator(stringOf(m["operator"]))
			if !ok {
				return nil, opError(d, comparisonNames, path, b, stringOf(m["operator"]))
			}
			return &ComparisonOperation{Base: b, Left: left, Operator: op, Right: right}, nil
		},
		KindUnaryOperation: func(d *decoder, m object, b Base, path string) (Node, error) {
			e, err := d.expr(m, "expr", b, path)
			if err != nil {
				return nil, err
			}
			op, ok := ParseUnaryOperator(stringOf(m["operator"]))
			if !ok {
				return nil, opError(d, unaryNames, path, b, stringOf(m["operator"]))
			}
			return &UnaryOperation{Base: b, Expr: e, Operator: op}, nil
		},
		KindTernaryOperation: func(d *decoder, m object, b Base, path string) (Node, error) {
			cond, err := d.expr(m, "condition", b, path)
			if err != nil {
				return nil, err
			}
			whenTrue, err := d.expr(m, "whenTrue", b, path)
			if err != nil {
				return nil, err
			}
			whenFalse, err := d.expr(m, "whenFalse", b, path)
			if err != nil {
				return nil, err
			}
			return &TernaryOperation{Base: b, Condition: cond, WhenTrue: whenTrue, WhenFalse: whenFalse}, nil
		},
		KindParenthesis: func(d *decoder, m object, b Base, path string) (Node, error) {
			e, err := d.expr(m, "expression", b, path)
			return &Parenthesis{Base: b, Expression: e}, err
		},
		KindArgument: func(d *decoder, m object, b Base, path string) (Node, error) {
			v, err := d.expr(m, "value", b, path)
			return &Argument{Base: b, Name: nameOf(m["name"]), Value: v}, err
		},
		KindFunctionInvocation: func(d *decoder, m object, b Base, path string) (Node, error) {
			args, err := typed[*Argument](d, m, "arguments", path)
			return &FunctionInvocation{Base: b, Name: nameOf(m["name"]), Arguments: args}, err
		},
		KindMethodInvocation: func(d *decoder, m object, b Base, path string) (Node, error) {
			obj, err := d.expr(m, "obj", b, path)
			if err != nil {
				return nil, err
			}
			args, err := typed[*Argument](d, m, "arguments", path)
			return &MethodInvocation{Base: b, Name: nameOf(m["name"]), Object: obj, Arguments: args, Safe: boolOf(m["safe"])}, err
		},
		KindNew: func(d *decoder, m object, b Base, path string) (Node, error) {
			class, err := d.expr(m, "expression", b, path)
			if err != nil {
				return nil, err
			}
			args, err := typed[*Argument](d, m, "arguments", path)
			return &New{Base: b, Class: class, Arguments: args}, err
		},
		KindFQN: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &FQN{Base: b, Value: stringOf(m["value"])}, nil
		},
		KindClosure: func(d *decoder, m object, b Base, path string) (Node, error) {
			args, annotations, body, err := d.callable(m, path)
			return &Closure{Base: b, Args: args, Annotations: annotations, Body: body}, err
		},
		KindLambda: func(d *decoder, m object, b Base, path string) (Node, error) {
			args, annotations, body, err := d.callable(m, path)
			return &Lambda{Base: b, Args: args, Annotations: annotations, Body: body}, err
		},

		KindScript: func(d *decoder, m object, b Base, path string) (Node, error) {
			body, err := d.stmtList(m, "statements", path)
			return &Script{Base: b, Statements: body}, err
		},
		KindExpressionStatement: func(d *decoder, m object, b Base, path string) (Node, error) {
			e, err := d.expr(m, "expression", b, path)
			return &ExpressionStatement{Base: b, Expression: e}, err
		},
		KindAssignment: func(d *decoder, m object, b Base, path string) (Node, error) {
			var targets []Expr
			if _, many := m["left"].([]any); many {
				list, err := d.exprList(m, "left", path)
				if err != nil {
					return nil, err
				}
				targets = list
			} else {
				t, err := d.expr(m, "left", b, path)
				if err != nil {
					return nil, err
				}
				targets = []Expr{t}
			}
			if len(targets) == 0 {
				return nil, d.fail(path, b, "assignment without a target")
			}
			value, err := d.expr(m, "right", b, path)
			if err != nil {
				return nil, err
			}
			op := AssignEqual
			if name := stringOf(m["op"]); name != "" {
				var ok bool
				if op, ok = ParseAssignmentOperator(name); !ok {
					return nil, opError(d, assignmentNames, path, b, name)
				}
			}
			isVar := false
			mods, _ := m["modifiers"].([]any)
			for _, mod := range mods {
				if strings.EqualFold(stringOf(mod), "var") {
					isVar = true
				}
			}
			return &Assignment{Base: b, Targets: targets, Operator: op, Value: value, Var: isVar}, nil
		},
		KindIfElse: func(d *decoder, m object, b Base, path string) (Node, error) {
			cond, err := d.expr(m, "condition", b, path)
			if err != nil {
				return nil, err
			}
			then, err := d.stmtList(m, "thenBody", path)
			if err != nil {
				return nil, err
			}
			els, err := d.stmtList(m, "elseBody", path)
			return &IfElse{Base: b, Condition: cond, Then: then, Else: els}, err
		},
		KindWhile: func(d *decoder, m object, b Base, path string) (Node, error) {
			cond, err := d.expr(m, "condition", b, path)
			if err != nil {
				return nil, err
			}
			body, err := d.stmtList(m, "body", path)
			return &While{Base: b, Label: stringOf(m["label"]), Condition: cond, Body: body}, err
		},
		KindDo: func(d *decoder, m object, b Base, path string) (Node, error) {
			cond, err := d.expr(m, "condition", b, path)
			if err != nil {
				return nil, err
			}
			body, err := d.stmtList(m, "body", path)
			return &Do{Base: b, Label: stringOf(m["label"]), Condition: cond, Body: body}, err
		},
		KindForIn: func(d *decoder, m object, b Base, path string) (Node, error) {
			variable, err := d.expr(m, "variable", b, path)
			if err != nil {
				return nil, err
			}
			coll, err := d.expr(m, "expression", b, path)
			if err != nil {
				return nil, err
			}
			body, err := d.stmtList(m, "body", path)
			return &ForIn{Base: b, Label: stringOf(m["label"]), Variable: variable, Collection: coll, Body: body, Var: boolOf(m["hasVar"])}, err
		},
		KindForIndex: func(d *decoder, m object, b Base, path string) (Node, error) {
			n := &ForIndex{Base: b, Label: stringOf(m["label"])}
			if v, ok := m["initializer"]; ok && v != nil {
				init, err := d.stmt(v, path+".initializer")
				if err != nil {
					return nil, err
				}
				n.Initializer = init
			}
			var err error
			if n.Condition, err = d.optExpr(m, "condition", path); err != nil {
				return nil, err
			}
			if n.Step, err = d.optExpr(m, "step", path); err != nil {
				return nil, err
			}
			n.Body, err = d.stmtList(m, "body", path)
			return n, err
		},
		KindSwitch: func(d *decoder, m object, b Base, path string) (Node, error) {
			cond, err := d.expr(m, "condition", b, path)
			if err != nil {
				return nil, err
			}
			cases, err := typed[*SwitchCase](d, m, "cases", path)
			return &Switch{Base: b, Condition: cond, Cases: cases}, err
		},
		KindSwitchCase: func(d *decoder, m object, b Base, path string) (Node, error) {
			cond, err := d.optExpr(m, "condition", path)
			if err != nil {
				return nil, err
			}
			body, err := d.stmtList(m, "body", path)
			return &SwitchCase{Base: b, Condition: cond, Body: body}, err
		},
		KindBreak: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &Break{Base: b, Label: stringOf(m["label"])}, nil
		},
		KindContinue: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &Continue{Base: b, Label: stringOf(m["label"])}, nil
		},
		KindReturn: func(d *decoder, m object, b Base, path string) (Node, error) {
			e, err := d.optExpr(m, "expression", path)
			return &Return{Base: b, Expression: e}, err
		},
		KindTry: func(d *decoder, m object, b Base, path string) (Node, error) {
			body, err := d.stmtList(m, "tryBody", path)
			if err != nil {
				return nil, err
			}
			catches, err := typed[*TryCatch](d, m, "catches", path)
			if err != nil {
				return nil, err
			}
			finally, err := d.stmtList(m, "finallyBody", path)
			return &Try{Base: b, Body: body, Catches: catches, Finally: finally}, err
		},
		KindTryCatch: func(d *decoder, m object, b Base, path string) (Node, error) {
			exc, err := d.expr(m, "exception", b, path)
			if err != nil {
				return nil, err
			}
			types, err := d.exprList(m, "catchTypes", path)
			if err != nil {
				return nil, err
			}
			body, err := d.stmtList(m, "catchBody", path)
			return &TryCatch{Base: b, Exception: exc, Types: types, Body: body}, err
		},
		KindThrow: func(d *decoder, m object, b Base, path string) (Node, error) {
			e, err := d.expr(m, "expression", b, path)
			return &Throw{Base: b, Expression: e}, err
		},
		KindRethrow: func(d *decoder, m object, b Base, path string) (Node, error) {
			return &Rethrow{Base: b}, nil
		},
		KindFunctionDeclaration: func(d *decoder, m object, b Base, path string) (Node, error) {
			args, annotations, body, err := d.callable(m, path)
			if err != nil {
				return nil, err
			}
			docs, err := typed[*Annotation](d, m, "documentation", path)
			if err != nil {
				return nil, err
			}
			name := nameOf(m["name"])
			if name == "" {
				return nil, d.fail(path, b, "function declaration without a name")
			}
			return &FunctionDeclaration{
				Base:          b,
				Name:          name,
				Access:        stringOf(m["accessModifier"]),
				ReturnType:    nameOf(m["returnType"]),
				Args:          args,
				Annotations:   annotations,
				Documentation: docs,
				Body:          body,
			}, nil
		},
		KindArgumentDeclaration: func(d *decoder, m object, b Base, path string) (Node, error) {
			def, err := d.optExpr(m, "value", path)
			if err != nil {
				return nil, err
			}
			annotations, err := typed[*Annotation](d, m, "annotations", path)
			return &ArgumentDeclaration{
				Base:        b,
				Name:        nameOf(m["name"]),
				Type:        nameOf(m["type"]),
				Required:    boolOf(m["required"]),
				Default:     def,
				Annotations: annotations,
			}, err
		},
		KindAnnotation: func(d *decoder, m object, b Base, path string) (Node, error) {
			v, err := d.optExpr(m, "value", path)
			return &Annotation{Base: b, Key: nameOf(m["key"]), Value: v}, err
		},
		KindImport: func(d *decoder, m object, b Base, path string) (Node, error) {
			name := nameOf(m["expression"])
			if name == "" {
				return nil, d.fail(path, b, "import without a name")
			}
			return &Import{Base: b, Name: name, Alias: nameOf(m["alias"])}, nil
		},
		KindAssert: func(d *decoder, m object, b Base, path string) (Node, error) {
			e, err := d.expr(m, "expression", b, path)
			return &Assert{Base: b, Expression: e}, err
		},
		KindParam: func(d *decoder, m object, b Base, path string) (Node, error) {
			typ, err := d.optExpr(m, "type", path)
			if err != nil {
				return nil, err
			}
			def, err := d.optExpr(m, "defaultValue", path)
			if err != nil {
				return nil, err
			}
			variable := nameOf(m["variable"])
			if variable == "" {
				return nil, d.fail(path, b, "param without a variable name")
			}
			return &Param{Base: b, Variable: variable, Type: typ, Default: def}, nil
		},
		KindComponent: func(d *decoder, m object, b Base, path string) (Node, error) {
			attrs, err := typed[*Annotation](d, m, "attributes", path)
			if err != nil {
				return nil, err
			}
			n := &Component{Base: b, Name: nameOf(m["name"]), Attributes: attrs}
			if _, ok := m["body"].([]any); ok {
				if n.Body, err = d.stmtList(m, "body", path); err != nil {
					return nil, err
				}
			}
			return n, nil
		},
		KindStatementBlock: func(d *decoder, m object, b Base, path string) (Node, error) {
			body, err := d.stmtList(m, "body", path)
			return &StatementBlock{Base: b, Body: body}, err
		},
		KindBufferOutput: func(d *decoder, m object, b Base, path string) (Node, error) {
			e, err := d.expr(m, "expression", b, path)
			return &BufferOutput{Base: b, Expression: e}, err
		},
	}
}

func (d *decoder) operands(m object, b Base, path string) (Expr, Expr, error) {
	left, err := d.expr(m, "left", b, path)
	if err != nil {
		return nil, nil, err
	}
	right, err := d.expr(m, "right", b, path)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (d *decoder) callable(m object, path string) ([]*ArgumentDeclaration, []*Annotation, []Stmt, error) {
	args, err := typed[*ArgumentDeclaration](d, m, "args", path)
	if err != nil {
		return nil, nil, nil, err
	}
	annotations, err := typed[*Annotation](d, m, "annotations", path)
	if err != nil {
		return nil, nil, nil, err
	}
	body, err := d.stmtList(m, "body", path)
	if err != nil {
		return nil, nil, nil, err
	}
	return args, annotations, body, nil
}
