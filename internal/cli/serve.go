package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"todo/internal/app"
	"todo/pkg/logger"
	"todo/pkg/shutdown"
)

const shutdownTimeout = 10 * time.Second

func (rt *rootState) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a local server to use from the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer logger.Sync()

			a, err := app.New(rt.eff, rt.build.Version, rt.build.Commit, rt.build.BuildDate)
			if err != nil {
				shutdown.Abort("failed to initialize app", err)
				return err
			}
			a.Out = cmd.OutOrStdout()

			ctx, cancel := shutdown.SetupSignalHandler(cmd.Context())
			defer cancel()

			runErr := a.Run(ctx)

			// bounded so teardown cannot hang forever
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().Int("port", 8080, "task page port")
	cmd.Flags().String("address", "0.0.0.0", "task page bind address")
	cmd.Flags().Bool("metrics", false, "serve /metrics on metrics.address")
	return cmd
}
