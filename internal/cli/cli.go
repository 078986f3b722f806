// Package cli implements the maskexport command-line interface: the export
// pipeline run headless over mask PNGs painted elsewhere.
//
// All commands support --verbose (-v) for debug-level logging. The logger
// travels to each command through its context.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"flow-mask/internal/version"
)

// Execute runs the CLI with ctx as the root context.
func Execute(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	root := NewRootCmd(stderr)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd builds the command tree. Log output goes to logw.
func NewRootCmd(logw io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "maskexport",
		Short:         "Export cropped, resized and blurred assets from mask images",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(logw, level)))
		},
	}
	root.SetVersionTemplate(version.String() + "\n")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newOptionsCmd())
	return root
}
