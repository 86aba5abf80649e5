package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isYAML(name string) bool { return strings.HasSuffix(name, ".yaml") }

func startWatcher(t *testing.T, root string) <-chan []string {
	t.Helper()
	w, err := New(isYAML, 20*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Add(root))

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan []string, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(paths []string) { got <- paths })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return got
}

func waitFor(t *testing.T, got <-chan []string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case paths := <-got:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("no change reported for %s", want)
		}
	}
}

func TestReportsChangedDocuments(t *testing.T) {
	root := t.TempDir()
	got := startWatcher(t, root)

	doc := filepath.Join(root, "index.yaml")
	require.NoError(t, os.WriteFile(doc, []byte("ASTType: BoxScript\n"), 0o644))
	waitFor(t, got, doc)
}

func TestIgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	got := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	doc := filepath.Join(root, "a.yaml")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0o644))

	select {
	case paths := <-got:
		assert.NotContains(t, paths, filepath.Join(root, "notes.txt"))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	got := startWatcher(t, root)

	sub := filepath.Join(root, "views")
	require.NoError(t, os.Mkdir(sub, 0o755))
	doc := filepath.Join(sub, "page.yaml")
	// The new directory's watch is installed asynchronously; keep touching
	// the file until the change comes through.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, os.WriteFile(doc, []byte("x"), 0o644))
		select {
		case paths := <-got:
			if assert.ObjectsAreEqual([]string{doc}, paths) {
				return
			}
		case <-time.After(100 * time.Millisecond):
		}
	}
	t.Fatal("no change reported inside the new directory")
}
