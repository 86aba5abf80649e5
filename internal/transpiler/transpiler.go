// Package transpiler turns a BoxLang source AST into a Java compilation
// unit. Every node kind has one transformer in the Registry; transformers
// call back into the Transpiler for their children, render Java templates
// and return parsed fragments that are composed bottom-up.
package transpiler

import (
	"context"
	"log/slog"
	"time"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
	"github.com/funvibe/boxpiler/internal/logging"
	"github.com/funvibe/boxpiler/internal/template"
)

// Version is stamped into generated units as their compile version.
const Version = "1.4.0"

// Options are the per-unit naming hints and compatibility switches.
type Options struct {
	Package              string
	ClassName            string
	BaseClass            string
	ReturnType           string
	SourcePath           string
	SourceType           string
	CompiledOn           time.Time
	CompileVersion       string
	QuoteNegatedBooleans bool
}

// Option configures a Transpiler.
type Option func(*Transpiler)

func WithPackage(pkg string) Option { return func(t *Transpiler) { t.opts.Package = pkg } }

func WithClassName(name string) Option { return func(t *Transpiler) { t.opts.ClassName = name } }

// WithBaseClass sets the class the unit extends, BoxTemplate by default.
func WithBaseClass(name string) Option { return func(t *Transpiler) { t.opts.BaseClass = name } }

// WithReturnType sets the return type of the unit's entry point. "void"
// disables the last-expression result.
func WithReturnType(typ string) Option { return func(t *Transpiler) { t.opts.ReturnType = typ } }

// WithSourcePath records the source file; class and package names derive
// from it unless given explicitly.
func WithSourcePath(path string) Option { return func(t *Transpiler) { t.opts.SourcePath = path } }

func WithSourceType(typ string) Option { return func(t *Transpiler) { t.opts.SourceType = typ } }

func WithCompiledOn(ts time.Time) Option { return func(t *Transpiler) { t.opts.CompiledOn = ts } }

func WithCompileVersion(v string) Option { return func(t *Transpiler) { t.opts.CompileVersion = v } }

// WithQuotedNegatedBooleans controls whether `!true` renders the literal
// as the string "true" (the legacy behaviour) or as a Java boolean.
func WithQuotedNegatedBooleans(quote bool) Option {
	return func(t *Transpiler) { t.opts.QuoteNegatedBooleans = quote }
}

func WithLogger(l *slog.Logger) Option { return func(t *Transpiler) { t.logger = l } }

// WithRegistry replaces the shared default registry.
func WithRegistry(r *Registry) Option { return func(t *Transpiler) { t.registry = r } }

// Transpiler transforms one compilation unit. It is not safe for
// concurrent use; create one per unit.
type Transpiler struct {
	registry *Registry
	logger   *slog.Logger
	opts     Options
	state    *State
}

func New(opts ...Option) *Transpiler {
	t := &Transpiler{
		registry: DefaultRegistry(),
		logger:   logging.Discard(),
		opts: Options{
			BaseClass:            "BoxTemplate",
			ReturnType:           "Object",
			SourceType:           "BOXSCRIPT",
			CompileVersion:       Version,
			QuoteNegatedBooleans: true,
		},
	}
	for _, o := range opts {
		o(t)
	}
	t.opts.ClassName, t.opts.Package = unitNames(t.opts.SourcePath, t.opts.ClassName, t.opts.Package)
	t.logger = t.logger.With("component", "transpiler")
	t.state = NewState(t.opts.ClassName)
	return t
}

// Options returns the resolved options.
func (tr *Transpiler) Options() Options { return tr.opts }

// State exposes the unit state, mainly for inspection in tests.
func (tr *Transpiler) State() *State { return tr.state }

// Expression transforms an expression node.
func (tr *Transpiler) Expression(n ast.Expr, tc TransformContext) (*java.Expr, error) {
	frag, err := tr.transform(n, tc)
	if err != nil {
		return nil, err
	}
	e, ok := frag.(*java.Expr)
	if !ok {
		return nil, diagnostics.NewError(diagnostics.UnsupportedNodeKind, n.Position().Span(),
			"%s did not produce an expression", n.Kind()).WithSource(n.SourceText())
	}
	return e, nil
}

// Statement transforms a statement node.
func (tr *Transpiler) Statement(n ast.Stmt, tc TransformContext) (*java.Stmt, error) {
	frag, err := tr.transform(n, tc)
	if err != nil {
		return nil, err
	}
	s, ok := frag.(*java.Stmt)
	if !ok {
		return nil, diagnostics.NewError(diagnostics.UnsupportedNodeKind, n.Position().Span(),
			"%s did not produce a statement", n.Kind()).WithSource(n.SourceText())
	}
	return s, nil
}

func (tr *Transpiler) transform(n ast.Node, tc TransformContext) (java.Fragment, error) {
	t, err := tr.registry.Resolve(n.Kind())
	if err != nil {
		return nil, diagnostics.Attach(err, n.Position().Span(), n.SourceText())
	}
	frag, err := t.Transform(tr, n, tc)
	if err != nil {
		return nil, diagnostics.Attach(err, n.Position().Span(), n.SourceText())
	}
	tr.trace(n, tc, frag)
	return frag, nil
}

func (tr *Transpiler) trace(n ast.Node, tc TransformContext, frag java.Fragment) {
	ctx := context.Background()
	if !tr.logger.Enabled(ctx, logging.LevelTrace) {
		return
	}
	tr.logger.Log(ctx, logging.LevelTrace, "transform",
		slog.String("kind", string(n.Kind())),
		slog.String("span", n.Position().Span().String()),
		slog.String("context", tc.String()),
		slog.String("source", n.SourceText()),
		slog.String("fragment", frag.String()),
	)
}

// ctx is the current context variable name.
func (tr *Transpiler) ctx() string { return tr.state.Context() }

// withContext runs fn with name pushed on the context stack.
func (tr *Transpiler) withContext(name string, fn func() error) error {
	tr.state.PushContext(name)
	defer tr.state.PopContext()
	return fn()
}

func renderExpr(tmpl string, pairs ...string) (*java.Expr, error) {
	return template.RenderExpression(tmpl, template.NewValues(pairs...))
}

func renderStmt(tmpl string, pairs ...string) (*java.Stmt, error) {
	return template.RenderStatement(tmpl, template.NewValues(pairs...))
}

func renderDecl(tmpl string, pairs ...string) (*java.Decl, error) {
	return template.RenderDeclaration(tmpl, template.NewValues(pairs...))
}

// emptyBlock is the statement produced by nodes that emit nothing in place.
func emptyBlock() (*java.Stmt, error) {
	return java.ParseStatement("{}")
}

// Body transforms a statement list. Function registrations are hoisted to
// the front in source order and block results are unwrapped one level.
func (tr *Transpiler) Body(stmts []ast.Stmt) (*java.Block, error) {
	b, err := tr.body(stmts)
	if err != nil {
		return nil, err
	}
	return b.block, nil
}

type bodyResult struct {
	block *java.Block
	// lines holds the source line of every statement in block.
	lines []int
	// last is the expression of a trailing expression statement.
	last *java.Expr
}

func (tr *Transpiler) body(stmts []ast.Stmt) (*bodyResult, error) {
	out := &bodyResult{block: java.NewBlock()}
	var regs []*java.Stmt
	var regLines []int
	for _, s := range stmts {
		line := s.Position().Start.Line
		switch n := s.(type) {
		case *ast.FunctionDeclaration:
			if _, err := tr.Statement(n, None); err != nil {
				return nil, err
			}
			reg, err := tr.Statement(n, Register)
			if err != nil {
				return nil, err
			}
			regs = append(regs, reg)
			regLines = append(regLines, line)
			continue
		case *ast.Import:
			if _, err := tr.Statement(n, None); err != nil {
				return nil, err
			}
			continue
		case *ast.ExpressionStatement:
			e, err := tr.Expression(n.Expression, Right)
			if err != nil {
				return nil, err
			}
			st, err := tr.expressionStatement(e)
			if err != nil {
				return nil, diagnostics.Attach(err, n.Position().Span(), n.SourceText())
			}
			tr.trace(n, None, st)
			out.append(st, line)
			out.last = e
			continue
		}
		st, err := tr.Statement(s, None)
		if err != nil {
			return nil, err
		}
		out.append(st, line)
		out.last = nil
	}
	if len(regs) > 0 {
		out.block.Prepend(regs...)
		out.lines = append(regLines, out.lines...)
	}
	return out, nil
}

func (b *bodyResult) append(s *java.Stmt, line int) {
	before := b.block.Len()
	b.block.Append(s)
	for i := before; i < b.block.Len(); i++ {
		b.lines = append(b.lines, line)
	}
}
