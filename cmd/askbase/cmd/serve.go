package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/askbase/askbase/internal/engine"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with background index rebuilds",
		Long: `Starts the engine, indexes all existing projects, and keeps
indexes up to date as content changes until interrupted.

When paths.content_dir is configured, JSON item files dropped under
<content_dir>/<project>/<item>.json are synced into the content store
and indexed automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			eng, err := engine.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Start(ctx); err != nil {
				return err
			}

			slog.Info("engine_started", "data_dir", cfg.Paths.DataDir)
			<-ctx.Done()
			slog.Info("engine_stopping")
			return nil
		},
	}
}
