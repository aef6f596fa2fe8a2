package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askbase/askbase/internal/engine"
	akerrors "github.com/askbase/askbase/internal/errors"
)

func newRebuildCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild a project's index from its content",
		Long: `Builds a fresh index version from the project's current content
and publishes it. A no-op when the published index already matches
the content.`,
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

			if err := eng.Rebuild(ctx, project); err != nil {
				if errors.Is(err, akerrors.ErrConcurrentBuildRejected) {
					return fmt.Errorf("a build for project %s is already running", project)
				}
				return err
			}

			st, err := eng.Status(ctx, project)
			if err != nil {
				return err
			}
			if st.Current != nil {
				fmt.Printf("Project %s: version %d ready (%d items, %d embeddings skipped).\n",
					project, st.Current.VersionID, st.Current.ItemCount,
					st.Current.SkippedEmbeddings)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID (required)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
