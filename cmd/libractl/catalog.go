package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"libranexus/internal/catalog"
)

var (
	bookFilter  catalog.Filter
	reviewLimit int
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Browse the catalogue",
}

var booksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List books, optionally filtered",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		books, err := app.lib.Books.List(app.ctx(cmd.Context()), bookFilter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tYEAR\tAVAILABLE\t")
		for _, b := range books {
			mark := ""
			if app.cart.IsInCart(b.ID) {
				mark = " (in cart)"
			}
			fmt.Fprintf(w, "%s\t%s%s\t%s\t%d\t%d/%d\t\n", b.ID, b.Title, mark, b.Author, b.Year, b.AvailableCopies, b.Quota)
		}
		return w.Flush()
	},
}

var booksShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a book with its latest reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		b, err := app.lib.Books.Get(app.ctx(cmd.Context()), args[0], reviewLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n%s, %d\n\n", b.Title, b.Author, b.Year)
		fmt.Fprintf(out, "category:  %s\n", b.Category)
		fmt.Fprintf(out, "isbn:      %s\n", b.ISBN)
		fmt.Fprintf(out, "rack:      %s\n", b.RackNumber)
		fmt.Fprintf(out, "available: %d of %d\n", b.AvailableCopies, b.Quota)
		fmt.Fprintf(out, "rating:    %.1f\n", b.Rating)
		if b.Description != "" {
			fmt.Fprintf(out, "\n%s\n", b.Description)
		}
		if len(b.Reviews) > 0 {
			fmt.Fprintln(out, "\nReviews:")
			for _, r := range b.Reviews {
				fmt.Fprintf(out, "  %d/5  %s (%s): %s\n", r.Rating, r.AuthorName, r.Date, r.Content)
			}
		}
		return nil
	},
}

func init() {
	booksListCmd.Flags().StringVar(&bookFilter.Search, "search", "", "match title or author")
	booksListCmd.Flags().StringVar(&bookFilter.Category, "category", "", "only this category")
	booksListCmd.Flags().IntVar(&bookFilter.Years, "years", 0, "only books published in the last N years")
	booksShowCmd.Flags().IntVar(&reviewLimit, "reviews", 10, "number of reviews to show")

	booksCmd.AddCommand(booksListCmd, booksShowCmd)
}
