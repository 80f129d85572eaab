// Package transfers implements the transfers command group.
package transfers

import (
	"fmt"
	"text/tabwriter"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/models"

	"github.com/spf13/cobra"
)

var (
	targetAccount string
	windowDays    int
	partnerID     string

	// Cmd represents the transfers command
	Cmd = &cobra.Command{
		Use:   "transfers",
		Short: "Find, link and unlink transfers between your accounts",
	}

	matchCmd = &cobra.Command{
		Use:   "match <transaction-id>",
		Short: "List candidate counterparts of a transaction",
		Long: `List opposite-signed transactions of the same amount near the transaction's date,
in one account (--account) or in every other registered account.`,
		Args: cobra.ExactArgs(1),
		RunE: matchFunc,
	}

	linkCmd = &cobra.Command{
		Use:   "link <transaction-id>",
		Short: "Mark a transaction as a transfer to one of your accounts",
		Long: `Mark a transaction as an internal transfer to --account. With --with the counterpart
transaction is marked too and both share one transfer group.`,
		Args: cobra.ExactArgs(1),
		RunE: linkFunc,
	}

	unlinkCmd = &cobra.Command{
		Use:   "unlink <transaction-id>",
		Short: "Clear the transfer link of a transaction and its counterpart",
		Args:  cobra.ExactArgs(1),
		RunE:  unlinkFunc,
	}
)

func init() {
	matchCmd.Flags().StringVarP(&targetAccount, "account", "a", "", "Only search this account")
	matchCmd.Flags().IntVarP(&windowDays, "window", "w", 0, "Days either side to search (default from config)")

	linkCmd.Flags().StringVarP(&targetAccount, "account", "a", "", "Account the money went to or came from")
	linkCmd.Flags().StringVar(&partnerID, "with", "", "Counterpart transaction id")

	Cmd.AddCommand(matchCmd, linkCmd, unlinkCmd)
}

func matchFunc(cmd *cobra.Command, args []string) error {
	c := root.GetContainer()
	ctx := cmd.Context()
	tx, err := c.GetStore().GetTransaction(ctx, args[0])
	if err != nil {
		return fmt.Errorf("transaction %s: %w", args[0], err)
	}

	targets := []string{targetAccount}
	if targetAccount == "" {
		accounts, err := c.GetStore().ListAccounts(ctx)
		if err != nil {
			return err
		}
		targets = targets[:0]
		for _, a := range accounts {
			if a.ID != tx.AccountID {
				targets = append(targets, a.ID)
			}
		}
	}

	var matches []models.TransferMatch
	for _, target := range targets {
		found, err := c.GetTransfers().FindPotentialMatches(ctx, *tx, target, windowDays)
		if err != nil {
			return err
		}
		matches = append(matches, found...)
	}

	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		root.Info(out, "No candidate transfers for %s", tx.ID)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACCOUNT\tDATE\tAMOUNT\tCONFIDENCE\tDESCRIPTION")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", m.Transaction.ID, m.Transaction.AccountID,
			dateutils.ToISODate(m.Transaction.Date), m.Transaction.Amount.StringFixed(2), m.Confidence, m.Transaction.Description)
	}
	return tw.Flush()
}

func linkFunc(cmd *cobra.Command, args []string) error {
	c := root.GetContainer()
	account := targetAccount
	if partnerID != "" && account == "" {
		partner, err := c.GetStore().GetTransaction(cmd.Context(), partnerID)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", partnerID, err)
		}
		account = partner.AccountID
	}
	if account == "" {
		return fmt.Errorf("--account or --with is required")
	}

	if err := c.GetTransfers().LinkTransfer(cmd.Context(), args[0], account, partnerID); err != nil {
		return err
	}
	root.Success(cmd.OutOrStdout(), "Transaction %s linked to account %s", args[0], account)
	return nil
}

func unlinkFunc(cmd *cobra.Command, args []string) error {
	if err := root.GetContainer().GetTransfers().UnlinkTransfer(cmd.Context(), args[0]); err != nil {
		return err
	}
	root.Success(cmd.OutOrStdout(), "Transaction %s unlinked", args[0])
	return nil
}
