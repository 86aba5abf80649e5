package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/funvibe/boxpiler/internal/cache"
	"github.com/funvibe/boxpiler/internal/config"
	"github.com/funvibe/boxpiler/internal/logging"
	"github.com/funvibe/boxpiler/internal/pipeline"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

// app is the state shared by every command: flags, the loaded
// configuration and the logger built from it.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	noCache    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "boxpiler",
		Short:         "Transpile BoxLang ASTs into Java source",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to boxpiler.yaml (searched upwards from the working directory by default)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: auto, text, json")
	root.PersistentFlags().BoolVar(&a.noCache, "no-cache", false, "Bypass the transpile cache")

	root.AddCommand(
		newTranspileCmd(a),
		newBatchCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newKindsCmd(a),
		newCacheCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadConfig(a.configPath)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			a.cfg, a.configPath, err = config.Discover(wd)
		}
	}
	if err != nil {
		return err
	}

	level := a.cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	format := logging.Format(a.cfg.Log.Format)
	if a.logFormat != "" {
		format = logging.Format(a.logFormat)
	}
	switch format {
	case "", logging.FormatAuto, logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	a.logger = logging.New(stderr, lvl, format)
	if a.configPath != "" {
		a.logger.Debug("loaded config", "path", a.configPath)
	}
	return nil
}

// openCache returns nil when caching is off.
func (a *app) openCache() (*cache.Cache, error) {
	if a.noCache || !a.cfg.Cache.Enabled {
		return nil, nil
	}
	c, err := cache.Open(a.cfg.Cache.Path, cache.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

// settings builds the pipeline for outDir; extra options are applied last.
func (a *app) settings(c *cache.Cache, outDir string, extra ...transpiler.Option) pipeline.Settings {
	opts := pipeline.TranspilerOptions(a.cfg, a.logger)
	return pipeline.Settings{
		Options: append(opts, extra...),
		Cache:   c,
		OutDir:  outDir,
		Logger:  a.logger,
	}
}

func closeCache(c *cache.Cache) {
	if c != nil {
		_ = c.Close()
	}
}
