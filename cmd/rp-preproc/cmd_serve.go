package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rppreproc/internal/config"
	"rppreproc/internal/logging"
	"rppreproc/internal/service"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rp-preproc REST service",
		Long: `Serves the payload and xUnit import API. Settings come from the
environment: RP_PREPROC_LISTEN, RP_PREPROC_WORKERS, RP_PREPROC_DEBUG and
RP_PREPROC_TMP_DIR. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := config.LoadServerEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				env.Listen = listen
			}
			level := slog.LevelInfo
			if env.Debug {
				level = slog.LevelDebug
			}
			logging.Init(level, "text", os.Stderr)

			srv := service.New(
				service.WithWorkers(env.Workers),
				service.WithTempBase(env.TmpDir),
				service.WithDebug(env.Debug),
				service.WithLogger(logging.New("service")),
			)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, env.Listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from RP_PREPROC_LISTEN or :8080)")
	return cmd
}
