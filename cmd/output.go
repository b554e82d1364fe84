package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/articlesync/internal/model"
)

const maxTitleWidth = 60

// render prints a successful envelope, either as JSON or through table, and
// turns a failed envelope into an error.
func render[T any](cmd *cobra.Command, resp model.Response[T], table func(w io.Writer)) error {
	if !resp.Status {
		return errors.New(resp.Message)
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	if resp.FromLocal() {
		fmt.Fprintf(cmd.ErrOrStderr(), "[demo] %s\n", resp.Message)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func articleTable(w io.Writer, page model.Page[model.Article], cats []model.Category) {
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tUPDATED")
	for _, a := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, truncate(a.Title, maxTitleWidth), model.CategoryName(a, cats), a.UpdatedAt)
	}
	pageFooter(w, page.Page, page.TotalPages, page.Total)
}

func articleDetail(w io.Writer, a model.Article, cats []model.Category) {
	fmt.Fprintf(w, "ID:\t%s\n", a.ID)
	fmt.Fprintf(w, "Title:\t%s\n", a.Title)
	fmt.Fprintf(w, "Category:\t%s (%s)\n", model.CategoryName(a, cats), a.CategoryID)
	fmt.Fprintf(w, "Created:\t%s\n", a.CreatedAt)
	fmt.Fprintf(w, "Updated:\t%s\n", a.UpdatedAt)
	fmt.Fprintf(w, "\n%s\n", a.Content)
}

// categoriesFor returns the category list needed to name the categories of
// items, or nil when every item carries its own category.
func categoriesFor(ctx context.Context, a *app, items ...model.Article) []model.Category {
	missing := false
	for _, it := range items {
		if model.CategoryName(it, nil) == model.UnknownCategory {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}
	if resp := a.categories.All(ctx); resp.Status {
		return resp.Data.Items
	}
	return a.store.Categories()
}

func categoryTable(w io.Writer, page model.Page[model.Category]) {
	fmt.Fprintln(w, "ID\tNAME\tUPDATED")
	for _, c := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.UpdatedAt)
	}
	pageFooter(w, page.Page, page.TotalPages, page.Total)
}

func categoryDetail(w io.Writer, c model.Category) {
	fmt.Fprintf(w, "ID:\t%s\n", c.ID)
	fmt.Fprintf(w, "Name:\t%s\n", c.Name)
	fmt.Fprintf(w, "Created:\t%s\n", c.CreatedAt)
	fmt.Fprintf(w, "Updated:\t%s\n", c.UpdatedAt)
}

func pageFooter(w io.Writer, page, totalPages, total int) {
	if total == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", page, totalPages, total)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
