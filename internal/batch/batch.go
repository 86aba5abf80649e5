// Package batch transpiles many AST documents concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/funvibe/boxpiler/internal/logging"
	"github.com/funvibe/boxpiler/internal/pipeline"
)

// Outcome is what happened to one document.
type Outcome struct {
	Path       string
	Result     *pipeline.Result
	Cached     bool
	OutputPath string
	Err        error
}

// Summary lists outcomes in input order.
type Summary struct {
	Outcomes  []Outcome
	Generated int
	Cached    int
	Failed    int
	Elapsed   time.Duration
}

// Err joins the failures, prefixed by document path.
func (s *Summary) Err() error {
	var errs []error
	for _, o := range s.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Path, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Collect walks root and returns the documents match accepts, sorted.
// Hidden directories are skipped. A root that is a file is returned as
// is.
func Collect(root string, match func(name string) bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Run sends every file through p with at most workers units in flight.
// A failing unit does not stop the others; Run itself only fails when ctx
// is cancelled.
func Run(ctx context.Context, p *pipeline.Pipeline, files []string, workers int, logger *slog.Logger) (*Summary, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if workers <= 0 {
		workers = 1
	}
	start := time.Now()
	outcomes := make([]Outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := Outcome{Path: path}
			pc, err := pipeline.RunFile(gctx, p, path, logger)
			o.Err = err
			if err == nil {
				o.Result = pc.Result
				o.Cached = pc.Cached
				o.OutputPath = pc.OutputPath
			} else {
				logger.Error("unit failed", "path", path, "error", err)
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Summary{Outcomes: outcomes, Elapsed: time.Since(start)}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			s.Failed++
		case o.Cached:
			s.Cached++
		default:
			s.Generated++
		}
	}
	logger.Info("batch done",
		"units", len(files),
		"generated", s.Generated,
		"cached", s.Cached,
		"failed", s.Failed,
		"elapsed", s.Elapsed)
	return s, nil
}
