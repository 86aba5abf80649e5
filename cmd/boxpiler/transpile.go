package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/funvibe/boxpiler/internal/pipeline"
	"github.com/funvibe/boxpiler/internal/service"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

func newTranspileCmd(a *app) *cobra.Command {
	var (
		outDir    string
		pkg       string
		className string
		remote    string
	)
	cmd := &cobra.Command{
		Use:   "transpile <document>",
		Short: "Transpile one AST document",
		Long: "Transpile one AST document (.json, .yaml or .yml). The Java source is\n" +
			"printed to stdout unless --out names a directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote != "" {
				return a.transpileRemote(cmd, remote, args[0], pkg, className)
			}
			var extra []transpiler.Option
			if pkg != "" {
				extra = append(extra, transpiler.WithPackage(pkg))
			}
			if className != "" {
				extra = append(extra, transpiler.WithClassName(className))
			}
			c, err := a.openCache()
			if err != nil {
				return err
			}
			defer closeCache(c)

			p := pipeline.Standard(a.settings(c, outDir, extra...))
			pc, err := pipeline.RunFile(cmd.Context(), p, args[0], a.logger)
			if err != nil {
				return err
			}
			if outDir == "" {
				fmt.Fprintln(cmd.OutOrStdout(), pc.Result.Source)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write <Class>.java into this directory")
	cmd.Flags().StringVar(&pkg, "package", "", "Java package, overriding the configured or derived one")
	cmd.Flags().StringVar(&className, "class", "", "Class name, overriding the one derived from the file name")
	cmd.Flags().StringVar(&remote, "remote", "", "Transpile on a boxpiler service at this address")
	return cmd
}

func (a *app) transpileRemote(cmd *cobra.Command, addr, path, pkg, className string) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c, err := service.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	reply, err := c.Transpile(cmd.Context(), service.Request{
		DocumentName: path,
		Document:     doc,
		Package:      pkg,
		ClassName:    className,
	})
	if err != nil {
		return err
	}
	if err := reply.Err(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply.Source)
	return nil
}
