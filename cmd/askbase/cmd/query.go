package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askbase/askbase/internal/engine"
	"github.com/askbase/askbase/internal/search"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	project string
	topK    int
	format  string // "text", "json"
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Run a hybrid search against a project's index",
		Long: `Runs a hybrid BM25 + semantic query against the project's current
index version.

Examples:
  askbase query --project acme "what is the refund window"
  askbase query --project acme --top-k 5 --format json "reset password"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runQuery(cmd, question, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project ID (required)")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runQuery(cmd *cobra.Command, question string, opts queryOptions) error {
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

	resp, err := eng.Query(ctx, opts.project, question, search.Options{TopK: opts.topK})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	if resp.Degraded {
		fmt.Println("(semantic scoring unavailable, keyword ranking only)")
	}
	for i, r := range resp.Results {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", i+1, r.Score, r.Title, r.ItemID)
		if r.Snippet != "" {
			fmt.Printf("    %s\n", r.Snippet)
		}
		if r.SourceRef != "" {
			fmt.Printf("    source: %s\n", r.SourceRef)
		}
	}
	return nil
}
