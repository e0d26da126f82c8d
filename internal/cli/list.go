package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bankcompare/internal/app"
	"bankcompare/internal/catalog"
)

var listOpts app.ListOptions

var listCmd = &cobra.Command{
	Use:       "list <page>",
	Short:     "Filter, sort and paginate a comparison table",
	Long:      "Pages: " + strings.Join(catalog.Pages(), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: catalog.Pages(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if listOpts.PageNumber < 1 {
			return fmt.Errorf("--page must be at least 1")
		}
		opts := listOpts
		opts.Page = args[0]
		return getApp().List(cmd.Context(), opts)
	},
}

func init() {
	listCmd.Flags().StringVar(&listOpts.Search, "search", "", "Case-insensitive text search")
	listCmd.Flags().StringVar(&listOpts.Kind, "type", "", "Type or category filter")
	listCmd.Flags().StringVar(&listOpts.Bucket, "range", "", "Amount range (e.g. low, medium, high, free)")
	listCmd.Flags().StringVar(&listOpts.SortKey, "sort", "", "Sort key (defaults to the page's default sort)")
	listCmd.Flags().StringVar(&listOpts.SortDir, "dir", "", "Sort direction: asc, desc or none")
	listCmd.Flags().IntVar(&listOpts.PageNumber, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listOpts.PerPage, "per-page", 0, "Items per page (defaults to config)")
}
