package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askbase/askbase/internal/content"
	"github.com/askbase/askbase/internal/engine"
)

// addOptions holds CLI flags for add.
type addOptions struct {
	project   string
	id        string
	kind      string
	title     string
	tags      []string
	sourceRef string
}

func newAddCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add <body>",
		Short: "Add or update a content item",
		Long: `Inserts or replaces a knowledge item in the project's content
store and rebuilds the index.

Examples:
  askbase add --project acme --kind faq --title "Refund window?" \
      "Refunds are accepted within 30 days."
  askbase add --project acme --id faq-17 --title "Updated title" "New body."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringVar(&opts.id, "id", "", "Item ID (generated when empty)")
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "article", "Item kind: faq, article")
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Item title or FAQ question")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&opts.sourceRef, "source-ref", "", "Reference to the item's origin")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runAdd(cmd *cobra.Command, body string, opts addOptions) error {
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

	item := content.Item{
		ID:        opts.id,
		ProjectID: opts.project,
		Kind:      content.Kind(opts.kind),
		Title:     opts.title,
		Body:      body,
		Tags:      opts.tags,
		SourceRef: opts.sourceRef,
	}
	if err := eng.Content().Put(ctx, item); err != nil {
		return err
	}
	if err := eng.Rebuild(ctx, opts.project); err != nil {
		return err
	}

	fmt.Printf("Indexed item in project %s.\n", opts.project)
	return nil
}
