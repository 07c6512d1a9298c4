package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"libranexus/internal/circulation"
)

var txFilter struct {
	status string
	kind   string
}

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "Your borrow and return requests",
}

var transactionsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List your transactions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		txs, err := app.lib.Transactions.List(app.ctx(cmd.Context()), circulation.Filter{
			UserID: app.auth.Snapshot().Identity.ID,
			Status: circulation.Status(txFilter.status),
			Type:   circulation.Type(txFilter.kind),
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INVOICE\tTYPE\tSTATUS\tFROM\tTO\tBOOKS\t")
		for _, tx := range txs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t\n",
				tx.InvoiceCode, tx.Type, tx.Status, tx.DateRange.From, tx.DateRange.To, len(tx.Items))
		}
		return w.Flush()
	},
}

var transactionsShowCmd = &cobra.Command{
	Use:   "show <invoice-code>",
	Short: "Show one transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		tx, err := app.lib.Transactions.ByInvoice(app.ctx(cmd.Context()), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s  %s\n", tx.InvoiceCode, tx.Type, tx.Status)
		fmt.Fprintf(out, "period:  %s to %s\n", tx.DateRange.From, tx.DateRange.To)
		fmt.Fprintf(out, "payment: %s\n", tx.PaymentMethod)
		fmt.Fprintf(out, "fee:     %.0f\n", tx.TotalFee)
		for _, it := range tx.Items {
			fmt.Fprintf(out, "  - %s (%s)\n", it.Title, it.Author)
		}
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Messages from the library",
}

var notificationsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List your notifications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		list, err := app.lib.Notifications.List(app.ctx(cmd.Context()), app.auth.Snapshot().Identity.ID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\t\tDATE\tTYPE\tTITLE\t")
		for _, n := range list {
			unread := "*"
			if n.Read {
				unread = ""
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", n.ID, unread, n.Date, n.Type, n.Title)
		}
		return w.Flush()
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		n, err := app.lib.Notifications.MarkRead(app.ctx(cmd.Context()), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", n.Title, n.Message)
		return nil
	},
}

func init() {
	transactionsListCmd.Flags().StringVar(&txFilter.status, "status", "", "PENDING, APPROVED, DECLINED or OVERDUE")
	transactionsListCmd.Flags().StringVar(&txFilter.kind, "type", "", "BORROW or RETURN")

	transactionsCmd.AddCommand(transactionsListCmd, transactionsShowCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd)
}
