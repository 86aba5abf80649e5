package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/cache"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
	"github.com/funvibe/boxpiler/internal/logging"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

// CacheLookupProcessor serves a unit from the cache when its document and
// settings were transpiled before.
type CacheLookupProcessor struct {
	Cache   *cache.Cache
	Options []transpiler.Option
	Logger  *slog.Logger
}

func (p *CacheLookupProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if p.Cache == nil {
		return ctx
	}
	resolved := newTranspiler(ctx, p.Options).Options()
	ctx.CacheKey = cache.Key(ctx.Document, settings(resolved)...)
	e, ok, err := p.Cache.Lookup(ctx.Context, ctx.CacheKey)
	if err != nil {
		// A broken cache degrades to a miss.
		logger(p.Logger).Warn("cache lookup failed", "path", ctx.DocumentPath, "error", err)
		return ctx
	}
	if ok {
		ctx.Cached = true
		ctx.Result = &Result{
			CompileID: e.CompileID,
			ClassName: e.ClassName,
			Package:   e.Package,
			Source:    e.Source,
			Callables: e.Callables,
			Keys:      e.Keys,
		}
	}
	return ctx
}

// settings lists the resolved options that change the generated code.
func settings(o transpiler.Options) []string {
	return []string{
		o.Package, o.ClassName, o.BaseClass, o.ReturnType,
		o.SourcePath, o.SourceType, o.CompileVersion,
		strconv.FormatBool(o.QuoteNegatedBooleans),
	}
}

// DecodeProcessor reads the AST document.
type DecodeProcessor struct{}

func (DecodeProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Result != nil {
		return ctx
	}
	s, err := ast.DecodeScript(ctx.Document, ctx.SourcePath, ast.FormatFromPath(ctx.DocumentPath))
	if err != nil {
		return ctx.fail(err)
	}
	ctx.Script = s
	return ctx
}

// TranspileProcessor turns the decoded script into a Java unit.
type TranspileProcessor struct {
	Options []transpiler.Option
}

func (p *TranspileProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Result != nil {
		return ctx
	}
	if ctx.Script == nil {
		return ctx.fail(fmt.Errorf("%s: nothing to transpile", ctx.DocumentPath))
	}
	code, err := newTranspiler(ctx, p.Options).Transpile(ctx.Script)
	if err != nil {
		return ctx.fail(err)
	}
	ctx.Result = &Result{
		CompileID: code.CompileID.String(),
		ClassName: code.ClassName,
		Package:   code.Package,
		Source:    code.Source(),
		Callables: code.Callables,
		Keys:      code.Keys,
	}
	return ctx
}

func newTranspiler(ctx *PipelineContext, opts []transpiler.Option) *transpiler.Transpiler {
	all := make([]transpiler.Option, 0, len(opts)+1)
	all = append(all, transpiler.WithSourcePath(ctx.SourcePath))
	return transpiler.New(append(all, opts...)...)
}

// ValidateProcessor parses the generated source back and checks that it
// declares the class the result names. Cached entries go through the same
// check, so a corrupted entry is never emitted.
type ValidateProcessor struct{}

func (ValidateProcessor) Process(ctx *PipelineContext) *PipelineContext {
	r := ctx.Result
	if r == nil {
		return ctx.fail(fmt.Errorf("%s: no generated unit to validate", ctx.DocumentPath))
	}
	span := diagnostics.Span{File: ctx.SourcePath}
	unit, err := java.ParseCompilationUnit(r.Source)
	if err != nil {
		return ctx.fail(diagnostics.Wrap(diagnostics.TemplateRenderFailure, span, err,
			"generated unit %s is not valid Java", r.ClassName))
	}
	if unit.Class == nil || unit.Class.Name != r.ClassName || unit.Package != r.Package {
		return ctx.fail(diagnostics.NewError(diagnostics.TemplateRenderFailure, span,
			"generated unit does not declare %s.%s", r.Package, r.ClassName))
	}
	return ctx
}

// CacheStoreProcessor saves freshly generated units.
type CacheStoreProcessor struct {
	Cache  *cache.Cache
	Logger *slog.Logger
}

func (p *CacheStoreProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if p.Cache == nil || ctx.Cached || ctx.CacheKey == "" || ctx.Result == nil {
		return ctx
	}
	r := ctx.Result
	err := p.Cache.Store(ctx.Context, ctx.CacheKey, &cache.Entry{
		CompileID: r.CompileID,
		ClassName: r.ClassName,
		Package:   r.Package,
		Source:    r.Source,
		Callables: r.Callables,
		Keys:      r.Keys,
	})
	if err != nil {
		logger(p.Logger).Warn("cache store failed", "path", ctx.DocumentPath, "error", err)
	}
	return ctx
}

// EmitProcessor writes <ClassName>.java into Dir. An empty Dir leaves the
// source in the result only.
type EmitProcessor struct {
	Dir string
}

func (p *EmitProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if p.Dir == "" || ctx.Result == nil {
		return ctx
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return ctx.fail(fmt.Errorf("creating output dir: %w", err))
	}
	out := filepath.Join(p.Dir, ctx.Result.ClassName+".java")
	if err := os.WriteFile(out, []byte(ctx.Result.Source+"\n"), 0o644); err != nil {
		return ctx.fail(fmt.Errorf("writing %s: %w", out, err))
	}
	ctx.OutputPath = out
	return ctx
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return logging.Discard()
	}
	return l
}
