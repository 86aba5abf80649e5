package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/boxpiler/internal/cache"
	"github.com/funvibe/boxpiler/internal/config"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

const helloDoc = `ASTType: BoxScript
statements:
  - ASTType: BoxBufferOutput
    expression: {ASTType: BoxStringLiteral, value: hello}
`

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestSourcePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"app/index.bxs.json", "app/index.bxs"},
		{"app/index.bxs.yaml", "app/index.bxs"},
		{"index.yml", "index.bxs"},
		{"index.json", "index.bxs"},
		{"Shape.bx.json", "Shape.bx"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SourcePath(tt.in), tt.in)
	}
}

func TestStandardEmitsJavaFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	doc := writeDoc(t, dir, "index.bxs.yaml", helloDoc)

	p := Standard(Settings{
		Options: []transpiler.Option{transpiler.WithPackage("app")},
		OutDir:  out,
	})
	pc, err := RunFile(context.Background(), p, doc, nil)
	require.NoError(t, err)
	require.NotNil(t, pc.Result)

	assert.Equal(t, "Index$bxs", pc.Result.ClassName)
	assert.Equal(t, "app", pc.Result.Package)
	assert.False(t, pc.Cached)
	assert.Equal(t, filepath.Join(out, "Index$bxs.java"), pc.OutputPath)

	data, err := os.ReadFile(pc.OutputPath)
	require.NoError(t, err)
	src := string(data)
	assert.True(t, strings.HasPrefix(src, "package app;"))
	assert.Contains(t, src, `context.writeToBuffer("hello");`)
}

func TestWithoutOutDirNothingIsWritten(t *testing.T) {
	p := Standard(Settings{})
	pc := p.Run(NewContext(context.Background(), "index.bxs.yaml", []byte(helloDoc)))
	require.NoError(t, pc.Err())
	assert.Empty(t, pc.OutputPath)
	assert.NotEmpty(t, pc.Result.Source)
}

func TestDecodeFailureStopsPipeline(t *testing.T) {
	p := Standard(Settings{})
	pc := p.Run(NewContext(context.Background(), "bad.yaml", []byte("ASTType: BoxScript\nstatements:\n  - ASTType: BoxSpaceship\n")))
	err := pc.Err()
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.UnknownNodeType), "got %v", err)
	assert.Nil(t, pc.Result)
	assert.Len(t, pc.Errors, 1, "later stages must not run")
}

func TestTranspileErrorIsReported(t *testing.T) {
	doc := `ASTType: BoxScript
statements:
  - ASTType: BoxBreak
`
	pc := Standard(Settings{}).Run(NewContext(context.Background(), "loop.yaml", []byte(doc)))
	assert.True(t, diagnostics.HasCode(pc.Err(), diagnostics.MisplacedStatement), "got %v", pc.Err())
}

func TestCacheServesUnchangedInput(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	doc := writeDoc(t, dir, "index.bxs.yaml", helloDoc)
	p := Standard(Settings{Cache: c, Options: []transpiler.Option{transpiler.WithPackage("app")}})

	first, err := RunFile(context.Background(), p, doc, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := RunFile(context.Background(), p, doc, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Nil(t, second.Script, "a cache hit skips decoding")
	assert.Equal(t, first.Result.CompileID, second.Result.CompileID)
	assert.Equal(t, first.Result.ClassName, second.Result.ClassName)
	assert.Equal(t, first.Result.Source, second.Result.Source)

	// A different package is a different unit.
	other := Standard(Settings{Cache: c, Options: []transpiler.Option{transpiler.WithPackage("web")}})
	third, err := RunFile(context.Background(), other, doc, nil)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, "web", third.Result.Package)

	n, err := c.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestValidateRejectsMismatchedClass(t *testing.T) {
	pc := NewContext(context.Background(), "x.yaml", nil)
	pc.Result = &Result{ClassName: "Y", Package: "a", Source: "package a;\n\npublic class X {}"}
	pc = ValidateProcessor{}.Process(pc)
	assert.True(t, diagnostics.HasCode(pc.Err(), diagnostics.TemplateRenderFailure))

	pc = NewContext(context.Background(), "x.yaml", nil)
	pc.Result = &Result{ClassName: "X", Package: "a", Source: "package a;\n\npublic class X { void f( }"}
	pc = ValidateProcessor{}.Process(pc)
	assert.True(t, diagnostics.HasCode(pc.Err(), diagnostics.TemplateRenderFailure))
}

func TestTranspilerOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Package = "site.pages"
	cfg.Output.ReturnType = "void"
	off := false
	cfg.Compat.QuoteNegatedBooleans = &off

	got := transpiler.New(TranspilerOptions(cfg, nil)...).Options()
	assert.Equal(t, "site.pages", got.Package)
	assert.Equal(t, "void", got.ReturnType)
	assert.Equal(t, cfg.Output.BaseClass, got.BaseClass)
	assert.Equal(t, transpiler.Version, got.CompileVersion)
	assert.False(t, got.QuoteNegatedBooleans)
}

func TestRunFileMissingDocument(t *testing.T) {
	_, err := RunFile(context.Background(), Standard(Settings{}), filepath.Join(t.TempDir(), "nope.json"), nil)
	require.Error(t, err)
}
