package transpiler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
)

// Transformer converts one kind of source node into a Java fragment.
type Transformer interface {
	Transform(tr *Transpiler, node ast.Node, tc TransformContext) (java.Fragment, error)
}

// exprFunc adapts a typed expression handler to Transformer.
type exprFunc[N ast.Node] func(tr *Transpiler, n N, tc TransformContext) (*java.Expr, error)

func (f exprFunc[N]) Transform(tr *Transpiler, node ast.Node, tc TransformContext) (java.Fragment, error) {
	n, ok := node.(N)
	if !ok {
		return nil, mismatch(node)
	}
	e, err := f(tr, n, tc)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// stmtFunc adapts a typed statement handler to Transformer.
type stmtFunc[N ast.Node] func(tr *Transpiler, n N, tc TransformContext) (*java.Stmt, error)

func (f stmtFunc[N]) Transform(tr *Transpiler, node ast.Node, tc TransformContext) (java.Fragment, error) {
	n, ok := node.(N)
	if !ok {
		return nil, mismatch(node)
	}
	s, err := f(tr, n, tc)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func mismatch(node ast.Node) error {
	return diagnostics.NewError(diagnostics.UnsupportedNodeKind, node.Position().Span(),
		"handler registered for %s cannot transform %T", node.Kind(), node)
}

// Registry maps node kinds to their transformers. It is immutable after
// construction and safe to share between goroutines.
type Registry struct {
	handlers map[ast.Kind]Transformer
}

// Structural kinds are transformed by their parent node, never on their
// own, so they have no registry entry.
var structuralKinds = map[ast.Kind]bool{
	ast.KindSwitchCase:          true,
	ast.KindTryCatch:            true,
	ast.KindArgumentDeclaration: true,
	ast.KindAnnotation:          true,
}

// IsStructural reports whether kind is only ever transformed by its parent.
func IsStructural(kind ast.Kind) bool {
	return structuralKinds[kind]
}

// NewRegistry builds the registry from the fixed handler table.
func NewRegistry() *Registry {
	return NewRegistryWith(nil)
}

// NewRegistryWith builds the default table with extra entries layered on
// top; an extra entry replaces the default for its kind.
func NewRegistryWith(extra map[ast.Kind]Transformer) *Registry {
	h := map[ast.Kind]Transformer{
		ast.KindIntegerLiteral:      exprFunc[*ast.IntegerLiteral](integerLiteral),
		ast.KindDecimalLiteral:      exprFunc[*ast.DecimalLiteral](decimalLiteral),
		ast.KindStringLiteral:       exprFunc[*ast.StringLiteral](stringLiteral),
		ast.KindBooleanLiteral:      exprFunc[*ast.BooleanLiteral](booleanLiteral),
		ast.KindNull:                exprFunc[*ast.NullLiteral](nullLiteral),
		ast.KindStringInterpolation: exprFunc[*ast.StringInterpolation](stringInterpolation),
		ast.KindArrayLiteral:        exprFunc[*ast.ArrayLiteral](arrayLiteral),
		ast.KindStructLiteral:       exprFunc[*ast.StructLiteral](structLiteral),
		ast.KindIdentifier:          exprFunc[*ast.Identifier](identifier),
		ast.KindScope:               exprFunc[*ast.Scope](scope),
		ast.KindDotAccess:           exprFunc[*ast.DotAccess](dotAccess),
		ast.KindArrayAccess:         exprFunc[*ast.ArrayAccess](arrayAccess),
		ast.KindBinaryOperation:     exprFunc[*ast.BinaryOperation](binaryOperation),
		ast.KindComparisonOperation: exprFunc[*ast.ComparisonOperation](comparisonOperation),
		ast.KindUnaryOperation:      exprFunc[*ast.UnaryOperation](unaryOperation),
		ast.KindTernaryOperation:    exprFunc[*ast.TernaryOperation](ternaryOperation),
		ast.KindParenthesis:         exprFunc[*ast.Parenthesis](parenthesis),
		ast.KindArgument:            exprFunc[*ast.Argument](argument),
		ast.KindFunctionInvocation:  exprFunc[*ast.FunctionInvocation](functionInvocation),
		ast.KindMethodInvocation:    exprFunc[*ast.MethodInvocation](methodInvocation),
		ast.KindNew:                 exprFunc[*ast.New](newObject),
		ast.KindFQN:                 exprFunc[*ast.FQN](fqn),
		ast.KindClosure:             exprFunc[*ast.Closure](closure),
		ast.KindLambda:              exprFunc[*ast.Lambda](lambda),

		ast.KindScript:              stmtFunc[*ast.Script](script),
		ast.KindExpressionStatement: stmtFunc[*ast.ExpressionStatement](expressionStatement),
		ast.KindAssignment:          stmtFunc[*ast.Assignment](assignment),
		ast.KindIfElse:              stmtFunc[*ast.IfElse](ifElse),
		ast.KindWhile:               stmtFunc[*ast.While](whileLoop),
		ast.KindDo:                  stmtFunc[*ast.Do](doLoop),
		ast.KindForIn:               stmtFunc[*ast.ForIn](forIn),
		ast.KindForIndex:            stmtFunc[*ast.ForIndex](forIndex),
		ast.KindSwitch:              stmtFunc[*ast.Switch](switchStatement),
		ast.KindBreak:               stmtFunc[*ast.Break](breakStatement),
		ast.KindContinue:            stmtFunc[*ast.Continue](continueStatement),
		ast.KindReturn:              stmtFunc[*ast.Return](returnStatement),
		ast.KindTry:                 stmtFunc[*ast.Try](tryStatement),
		ast.KindThrow:               stmtFunc[*ast.Throw](throwStatement),
		ast.KindRethrow:             stmtFunc[*ast.Rethrow](rethrowStatement),
		ast.KindFunctionDeclaration: stmtFunc[*ast.FunctionDeclaration](functionDeclaration),
		ast.KindImport:              stmtFunc[*ast.Import](importStatement),
		ast.KindAssert:              stmtFunc[*ast.Assert](assertStatement),
		ast.KindParam:               stmtFunc[*ast.Param](paramStatement),
		ast.KindComponent:           stmtFunc[*ast.Component](component),
		ast.KindStatementBlock:      stmtFunc[*ast.StatementBlock](statementBlock),
		ast.KindBufferOutput:        stmtFunc[*ast.BufferOutput](bufferOutput),
	}
	for k, t := range extra {
		h[k] = t
	}
	return &Registry{handlers: h}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the shared registry built from the fixed table.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Resolve returns the transformer for kind, or an UnsupportedNodeKind
// error.
func (r *Registry) Resolve(kind ast.Kind) (Transformer, error) {
	if t, ok := r.handlers[kind]; ok {
		return t, nil
	}
	msg := fmt.Sprintf("no transformer registered for %s", kind)
	if structuralKinds[kind] {
		msg = fmt.Sprintf("%s is only valid inside its parent construct", kind)
	}
	return nil, diagnostics.NewError(diagnostics.UnsupportedNodeKind, diagnostics.Span{}, "%s", msg)
}

// Kinds lists the registered kinds, sorted.
func (r *Registry) Kinds() []ast.Kind {
	out := make([]ast.Kind, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
