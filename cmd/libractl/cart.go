package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"libranexus/internal/cart"
)

var checkout cart.Checkout

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the borrowing cart",
}

var cartAddCmd = &cobra.Command{
	Use:   "add <book-id>...",
	Short: "Add books to the cart",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		ctx := app.ctx(cmd.Context())
		for _, id := range args {
			b, err := app.lib.Books.Get(ctx, id, 0)
			if err != nil {
				return err
			}
			if !b.Available() {
				return fmt.Errorf("%q is not available for borrowing", b.Title)
			}
			if err := app.cart.Add(cmd.Context(), *b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", b.Title)
		}
		return nil
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:     "rm <book-id>...",
	Aliases: []string{"remove"},
	Short:   "Remove books from the cart",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := app.cart.Remove(cmd.Context(), id); err != nil {
				return err
			}
		}
		return printCart(cmd)
	},
}

var cartListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "Show the cart",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printCart(cmd)
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.cart.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
		return nil
	},
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Send the cart as one borrow request",
	Long: `Submits every book in the cart as a single borrow request. The cart is
emptied only when the backend accepts it.

Dates use the YYYY-MM-DD form; --from defaults to today and --to to a week
later.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		c := checkout
		c.UserID = app.auth.Snapshot().Identity.ID
		if c.DateFrom == "" {
			c.DateFrom = time.Now().Format(time.DateOnly)
		}
		if c.DateTo == "" {
			from, err := time.Parse(time.DateOnly, c.DateFrom)
			if err != nil {
				return fmt.Errorf("--from: expected YYYY-MM-DD")
			}
			c.DateTo = from.AddDate(0, 0, 7).Format(time.DateOnly)
		}

		resp, err := app.cart.Submit(app.ctx(cmd.Context()), c)
		if errors.Is(err, cart.ErrEmpty) {
			return fmt.Errorf("the cart is empty; add books with 'libractl cart add'")
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Borrow request %s submitted (%s to %s)\n", resp.Data, c.DateFrom, c.DateTo)
		return nil
	},
}

func printCart(cmd *cobra.Command) error {
	items := app.cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "The cart is empty")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\t")
	for _, e := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", e.ID, e.Title, e.Author)
	}
	return w.Flush()
}

func init() {
	cartCheckoutCmd.Flags().StringVar(&checkout.PaymentMethod, "payment", "cash", "payment method")
	cartCheckoutCmd.Flags().StringVar(&checkout.PaymentEvidence, "evidence", "", "payment evidence reference")
	cartCheckoutCmd.Flags().StringVar(&checkout.DateFrom, "from", "", "first day of the loan")
	cartCheckoutCmd.Flags().StringVar(&checkout.DateTo, "to", "", "last day of the loan")

	cartCmd.AddCommand(cartAddCmd, cartRemoveCmd, cartListCmd, cartClearCmd, cartCheckoutCmd)
}
