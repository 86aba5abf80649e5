package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/funvibe/boxpiler/internal/batch"
	"github.com/funvibe/boxpiler/internal/pipeline"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		outDir  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "batch <dir|document>...",
		Short: "Transpile every AST document under the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = a.cfg.Output.Dir
			}
			if workers <= 0 {
				workers = a.cfg.Batch.Workers
			}
			var files []string
			for _, root := range args {
				found, err := batch.Collect(root, a.cfg.HasExtension)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}

			c, err := a.openCache()
			if err != nil {
				return err
			}
			defer closeCache(c)

			p := pipeline.Standard(a.settings(c, outDir))
			s, err := batch.Run(cmd.Context(), p, files, workers, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d units: %d generated, %d cached, %d failed\n",
				len(s.Outcomes), s.Generated, s.Cached, s.Failed)
			if s.Failed > 0 {
				return s.Err()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (defaults to output.dir)")
	cmd.Flags().IntVarP(&workers, "jobs", "j", 0, "Concurrent units (defaults to batch.workers)")
	return cmd
}
