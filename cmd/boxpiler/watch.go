package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/funvibe/boxpiler/internal/batch"
	"github.com/funvibe/boxpiler/internal/pipeline"
	"github.com/funvibe/boxpiler/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Transpile a directory, then again whenever its documents change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = a.cfg.Output.Dir
			}
			if outDir == "" {
				return errors.New("watch needs an output directory: pass --out or set output.dir")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.openCache()
			if err != nil {
				return err
			}
			defer closeCache(c)
			p := pipeline.Standard(a.settings(c, outDir))

			files, err := batch.Collect(args[0], a.cfg.HasExtension)
			if err != nil {
				return err
			}
			if _, err := batch.Run(ctx, p, files, a.cfg.Batch.Workers, a.logger); err != nil {
				return err
			}

			w, err := watch.New(a.cfg.HasExtension, watch.DefaultDebounce, a.logger)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Add(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", args[0])

			err = w.Run(ctx, func(paths []string) {
				s, err := batch.Run(ctx, p, paths, a.cfg.Batch.Workers, a.logger)
				if err != nil {
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d changed: %d generated, %d cached, %d failed\n",
					len(paths), s.Generated, s.Cached, s.Failed)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (defaults to output.dir)")
	return cmd
}
