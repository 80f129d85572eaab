// Package accounts implements the accounts command group.
package accounts

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	accountID string
	name      string
	bankID    string
	last4     string

	// Cmd represents the accounts command
	Cmd = &cobra.Command{
		Use:   "accounts",
		Short: "Manage the accounts statements are imported into",
	}

	addCmd = &cobra.Command{
		Use:   "add",
		Short: "Register an account",
		Long: `Register a bank account. The last four digits let transfers from your other
accounts be matched to this one.

Example:
  bankfeed accounts add --id icici-savings --name Savings --bank icici --last4 4321`,
		Args: cobra.NoArgs,
		RunE: addFunc,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered accounts",
		Args:  cobra.NoArgs,
		RunE:  listFunc,
	}
)

func init() {
	addCmd.Flags().StringVar(&accountID, "id", "", "Account id (default: a generated UUID)")
	addCmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	addCmd.Flags().StringVarP(&bankID, "bank", "b", "", "Bank adapter id (hdfc, icici, sbi, axis)")
	addCmd.Flags().StringVar(&last4, "last4", "", "Last four digits of the account number")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("bank")

	Cmd.AddCommand(addCmd, listCmd)
}

func addFunc(cmd *cobra.Command, args []string) error {
	c := root.GetContainer()
	adapter, err := c.GetRegistry().Get(strings.ToLower(bankID))
	if err != nil {
		return err
	}
	if last4 != "" && !isLast4(last4) {
		return fmt.Errorf("--last4 must be four digits, got %q", last4)
	}

	id := accountID
	if id == "" {
		id = uuid.NewString()
	}
	account := models.Account{
		ID:           id,
		Name:         name,
		BankID:       adapter.ID(),
		BankName:     adapter.BankName(),
		AccountLast4: last4,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.GetStore().SaveAccount(cmd.Context(), account); err != nil {
		return err
	}
	root.Success(cmd.OutOrStdout(), "Account %s (%s, %s) saved", account.ID, account.Name, account.BankName)
	return nil
}

func isLast4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func listFunc(cmd *cobra.Command, args []string) error {
	accounts, err := root.GetContainer().GetStore().ListAccounts(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(accounts) == 0 {
		root.Info(out, "No accounts yet. Add one with: bankfeed accounts add")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBANK\tLAST4")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.BankName, a.AccountLast4)
	}
	return tw.Flush()
}
