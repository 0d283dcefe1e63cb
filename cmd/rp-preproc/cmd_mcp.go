package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"rppreproc/internal/logging"
	mcpserver "rppreproc/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server over stdio",
		Long: `Starts an MCP server over stdin/stdout exposing the process_payload and
check_config tools. Logs go to stderr. The server exits when its parent
process goes away.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logging.Init(level, "text", os.Stderr)
			logger := logging.New("mcp")
			srv := mcpserver.NewServer(version, mcpserver.WithLogger(logger))
			logger.Info("starting rp-preproc MCP server over stdio (parent watchdog active)")
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "log debug detail")
	return cmd
}
