package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/funvibe/boxpiler/internal/ast"
)

// Processor is one stage of the pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries one unit through the stages.
type PipelineContext struct {
	Context context.Context

	// DocumentPath names the AST document; SourcePath is the BoxLang file
	// it was produced from.
	DocumentPath string
	SourcePath   string
	Document     []byte

	Script *ast.Script
	Result *Result

	// CacheKey is set once the cache stage has looked the unit up.
	CacheKey string
	Cached   bool
	// OutputPath is where the emit stage wrote the Java file.
	OutputPath string

	Errors []error
}

// NewContext prepares a unit read from documentPath.
func NewContext(ctx context.Context, documentPath string, document []byte) *PipelineContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &PipelineContext{
		Context:      ctx,
		DocumentPath: documentPath,
		SourcePath:   SourcePath(documentPath),
		Document:     document,
	}
}

// Err joins the errors the stages reported.
func (c *PipelineContext) Err() error {
	return errors.Join(c.Errors...)
}

func (c *PipelineContext) fail(err error) *PipelineContext {
	c.Errors = append(c.Errors, err)
	return c
}

// Result is a generated unit, whether fresh or served from the cache.
type Result struct {
	CompileID string
	ClassName string
	Package   string
	Source    string
	Callables []string
	Keys      []string
}

// SourcePath maps an AST document name to the source file it describes:
// index.bxs.json describes index.bxs, and a bare index.json is taken to
// describe index.bxs.
func SourcePath(documentPath string) string {
	if documentPath == "" {
		return ""
	}
	p := documentPath
	if ast.FormatFromPath(p) != ast.FormatAuto {
		p = strings.TrimSuffix(p, filepath.Ext(p))
	}
	if filepath.Ext(p) == "" {
		p += ".bxs"
	}
	return p
}
