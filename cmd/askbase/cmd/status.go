package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askbase/askbase/internal/engine"
)

func newStatusCmd() *cobra.Command {
	var (
		project string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index versions and build state per project",
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

			var statuses []engine.ProjectStatus
			if project != "" {
				st, err := eng.Status(ctx, project)
				if err != nil {
					return err
				}
				statuses = []engine.ProjectStatus{*st}
			} else {
				statuses, err = eng.StatusAll(ctx)
				if err != nil {
					return err
				}
			}

			if format == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			}

			if len(statuses) == 0 {
				fmt.Println("No projects.")
				return nil
			}
			for _, st := range statuses {
				printStatus(st)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Limit to one project")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func printStatus(st engine.ProjectStatus) {
	fmt.Printf("project %s: %d items\n", st.ProjectID, st.ItemCount)
	if st.Current == nil {
		fmt.Println("  no published index")
	} else {
		fmt.Printf("  current: version %d (%d items, %d skipped, built %s)\n",
			st.Current.VersionID, st.Current.ItemCount,
			st.Current.SkippedEmbeddings, st.Current.BuiltAt)
	}
	if st.Build.Building {
		fmt.Println("  build in progress")
	}
	if st.Build.LastError != "" {
		fmt.Printf("  last build error: %s\n", st.Build.LastError)
	}
	for _, v := range st.Versions {
		fmt.Printf("  version %d: %s\n", v.VersionID, v.Status)
	}
}
