package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/boxpiler/internal/cache"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/pipeline"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

func outputDoc(s string) string {
	return fmt.Sprintf("ASTType: BoxScript\nstatements:\n  - ASTType: BoxBufferOutput\n    expression: {ASTType: BoxStringLiteral, value: %q}\n", s)
}

func isDoc(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".json")
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "b.yaml"), "")
	write(t, filepath.Join(root, "a", "c.json"), "")
	write(t, filepath.Join(root, "a", "notes.txt"), "")
	write(t, filepath.Join(root, ".boxpiler", "skip.yaml"), "")

	files, err := Collect(root, isDoc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "c.json"),
		filepath.Join(root, "b.yaml"),
	}, files)

	single, err := Collect(filepath.Join(root, "b.yaml"), isDoc)
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = Collect(filepath.Join(root, "missing"), isDoc)
	assert.Error(t, err)
}

func TestRunKeepsGoingAfterFailure(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	for i := 0; i < 8; i++ {
		write(t, filepath.Join(root, "src", fmt.Sprintf("page%d.bxs.yaml", i)), outputDoc(fmt.Sprintf("page %d", i)))
	}
	write(t, filepath.Join(root, "src", "broken.bxs.yaml"), "ASTType: BoxScript\nstatements:\n  - ASTType: BoxContinue\n")

	files, err := Collect(filepath.Join(root, "src"), isDoc)
	require.NoError(t, err)
	require.Len(t, files, 9)

	p := pipeline.Standard(pipeline.Settings{
		Options: []transpiler.Option{transpiler.WithPackage("pages")},
		OutDir:  out,
	})
	s, err := Run(context.Background(), p, files, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Generated)
	assert.Equal(t, 1, s.Failed)
	assert.True(t, diagnostics.HasCode(s.Err(), diagnostics.MisplacedStatement))
	assert.Equal(t, files[0], s.Outcomes[0].Path, "outcomes keep input order")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestRunServesRepeatsFromCache(t *testing.T) {
	root := t.TempDir()
	c, err := cache.Open(filepath.Join(root, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	var files []string
	for i := 0; i < 4; i++ {
		p := filepath.Join(root, fmt.Sprintf("u%d.yaml", i))
		write(t, p, outputDoc("x"))
		files = append(files, p)
	}
	p := pipeline.Standard(pipeline.Settings{Cache: c, Options: []transpiler.Option{transpiler.WithPackage("u")}})

	s, err := Run(context.Background(), p, files, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Generated)

	s, err = Run(context.Background(), p, files, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Cached)
	assert.NoError(t, s.Err())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, pipeline.Standard(pipeline.Settings{}), []string{"a.yaml"}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
