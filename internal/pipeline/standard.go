package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/funvibe/boxpiler/internal/cache"
	"github.com/funvibe/boxpiler/internal/config"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

// Settings wire the standard stages.
type Settings struct {
	Options []transpiler.Option
	// Cache is optional.
	Cache *cache.Cache
	// OutDir is optional; without it nothing is written to disk.
	OutDir string
	Logger *slog.Logger
}

// Standard builds the full pipeline: cache lookup, decode, transpile,
// validate, cache store, emit.
func Standard(s Settings) *Pipeline {
	return New(
		&CacheLookupProcessor{Cache: s.Cache, Options: s.Options, Logger: s.Logger},
		DecodeProcessor{},
		&TranspileProcessor{Options: s.Options},
		ValidateProcessor{},
		&CacheStoreProcessor{Cache: s.Cache, Logger: s.Logger},
		&EmitProcessor{Dir: s.OutDir},
	)
}

// TranspilerOptions maps the output and compat sections of a
// configuration onto transpiler options.
func TranspilerOptions(cfg *config.Config, logger *slog.Logger) []transpiler.Option {
	opts := []transpiler.Option{
		transpiler.WithBaseClass(cfg.Output.BaseClass),
		transpiler.WithReturnType(cfg.Output.ReturnType),
		transpiler.WithSourceType(cfg.Output.SourceType),
		transpiler.WithQuotedNegatedBooleans(cfg.QuoteNegatedBooleans()),
	}
	if cfg.Output.Package != "" {
		opts = append(opts, transpiler.WithPackage(cfg.Output.Package))
	}
	if cfg.Output.CompileVersion != "" {
		opts = append(opts, transpiler.WithCompileVersion(cfg.Output.CompileVersion))
	}
	if logger != nil {
		opts = append(opts, transpiler.WithLogger(logger))
	}
	return opts
}

// RunFile reads one AST document and runs it through p.
func RunFile(ctx context.Context, p *Pipeline, path string, logger *slog.Logger) (*PipelineContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	start := time.Now()
	pc := p.Run(NewContext(ctx, path, data))
	if err := pc.Err(); err != nil {
		return pc, err
	}
	l := logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("unit done",
		"path", path,
		"class", pc.Result.ClassName,
		"cached", pc.Cached,
		"output", pc.OutputPath,
		"elapsed", time.Since(start))
	return pc, nil
}
