package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rp-preproc",
		Short: "Pre-process xUnit XML results and import them into Report Portal",
		Long: "rp-preproc turns xUnit XML result files and their attachments into\n" +
			"Report Portal launches, optionally merging them and building a dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	root.AddCommand(newImportCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newMCPCmd())
	return root
}
