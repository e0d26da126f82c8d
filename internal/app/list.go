package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"bankcompare/internal/catalog"
	"bankcompare/internal/table"
)

// List prints one page of a comparison table.
func (a *App) List(ctx context.Context, opts ListOptions) error {
	dir, ok := table.ParseDirection(strings.ToLower(opts.SortDir))
	if !ok {
		return fmt.Errorf("invalid sort direction %q (want asc, desc or none)", opts.SortDir)
	}
	if opts.SortKey != "" && opts.SortDir == "" {
		dir = table.Ascending
	}

	if opts.Bucket != "" {
		names, err := catalog.Buckets(opts.Page)
		if err != nil {
			return err
		}
		if !containsString(names, opts.Bucket) {
			return fmt.Errorf("unknown bucket %q for %s (want one of %s)", opts.Bucket, opts.Page, strings.Join(names, ", "))
		}
	}

	cat, err := catalog.Load()
	if err != nil {
		return err
	}

	listing, err := cat.List(opts.Page, catalog.Query{
		Search: opts.Search,
		Kind:   opts.Kind,
		Bucket: opts.Bucket,
		Sort:   table.SortBy(opts.SortKey, dir),
		Page:   opts.PageNumber,
	}, a.Config.ResolveItemsPerPage(opts.PerPage))
	if err != nil {
		return err
	}

	result := listing.Result
	if result.TotalItems == 0 {
		fmt.Fprintln(a.Out, "no records match the current filters")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, strings.Join(listing.Headers, "\t"))
	for _, row := range result.Records {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	sortDesc := "none"
	if listing.Sort.Active() {
		sortDesc = listing.Sort.Key + " " + string(listing.Sort.Direction)
	}
	fmt.Fprintf(a.Out, "\n%d-%d of %d | page %d/%d | sort: %s\n",
		result.FirstIndex(), result.LastIndex(), result.TotalItems,
		result.CurrentPage, result.TotalPages, sortDesc,
	)
	return nil
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
