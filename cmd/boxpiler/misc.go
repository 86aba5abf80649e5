package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/cache"
	"github.com/funvibe/boxpiler/internal/service"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

func newKindsCmd(a *app) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the AST node types the transpiler understands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var kinds []string
			if remote != "" {
				c, err := service.Dial(remote)
				if err != nil {
					return err
				}
				defer c.Close()
				if kinds, err = c.Kinds(cmd.Context()); err != nil {
					return err
				}
			} else {
				for _, k := range ast.KnownKinds() {
					kinds = append(kinds, string(k))
				}
			}
			for _, k := range kinds {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "Ask a boxpiler service at this address")
	return cmd
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the transpile cache",
	}
	open := func() (*cache.Cache, error) {
		return cache.Open(a.cfg.Cache.Path, cache.WithLogger(a.logger))
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the number of cached units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			n, err := c.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d units\n", c.Path(), n)
			return nil
		},
	}, &cobra.Command{
		Use:   "clean",
		Short: "Remove every cached unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Clean(cmd.Context())
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the transpiler version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "boxpiler %s\n", transpiler.Version)
		},
	}
}
