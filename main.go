// Package main provides the entry point for the Flow Mask editor.
package main

import (
	"fmt"
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"flow-mask/internal/app"
	"flow-mask/internal/config"
	"flow-mask/internal/version"
	"flow-mask/ui/mainwindow"
	"flow-mask/ui/prefs"
)

const appID = "io.flowmask.editor"

type options struct {
	configPath string
	watchDir   string
	outputDir  string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "flow-mask [image]",
		Short:        "Paint masks over a rendered image and export them",
		Args:         cobra.MaximumNArgs(1),
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args)
		},
	}
	cmd.SetVersionTemplate(version.String() + "\n")

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "settings file")
	f.StringVarP(&opts.watchDir, "watch", "w", "", "load every image that appears in this folder")
	f.StringVarP(&opts.outputDir, "output", "o", "", "folder saves are written to")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	return cmd
}

func run(opts options, args []string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if opts.outputDir != "" {
		cfg.Paths.OutputDir = opts.outputDir
	}
	if opts.watchDir != "" {
		cfg.Paths.RenderDir = opts.watchDir
	}

	level := cfg.LogLevel()
	if opts.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
	logger.Info("starting", "version", version.Version, "config", opts.configPath)

	session, err := app.NewSession(cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(&app.Theme{})

	win := mainwindow.New(a, session, prefs.Load(), logger)
	if len(args) == 1 {
		if err := win.OpenImage(args[0]); err != nil {
			logger.Error("cannot open image", "path", args[0], "err", err)
		}
	} else {
		win.RestoreLastImage()
	}

	if dir := cfg.Paths.RenderDir; dir != "" {
		if err := session.WatchRenders(dir); err != nil {
			logger.Warn("cannot watch render folder", "dir", dir, "err", err)
		}
	}

	win.ShowAndRun()
	return nil
}
