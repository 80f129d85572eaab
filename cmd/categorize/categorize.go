// Package categorize handles transaction categorization commands
package categorize

import (
	"fmt"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/models"

	"github.com/spf13/cobra"
)

var (
	accountID string
	all       bool
	explainID string

	// Cmd represents the categorize command
	Cmd = &cobra.Command{
		Use:   "categorize",
		Short: "Categorize stored transactions",
		Long: `Categorize the uncategorized transactions of an account using learned merchant rules,
transfer detection, special patterns, recurrence and the keyword map.

With --all every transaction is categorized again, and a category that no longer
matches anything is cleared. Internal transfers and transactions without an
identifiable merchant keep theirs. With --explain the strategy trace for one
transaction is printed and nothing is saved.`,
		Args: cobra.NoArgs,
		RunE: categorizeFunc,
	}
)

func init() {
	Cmd.Flags().StringVarP(&accountID, "account", "a", "", "Account whose transactions are categorized")
	Cmd.Flags().BoolVar(&all, "all", false, "Recategorize every transaction, clearing categories that no longer match")
	Cmd.Flags().StringVar(&explainID, "explain", "", "Print the strategy trace for one transaction id")
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	if explainID != "" {
		return explain(cmd, explainID)
	}
	if accountID == "" {
		return fmt.Errorf("--account is required unless --explain is given")
	}

	c := root.GetContainer()
	txns, err := c.GetStore().ListTransactionsByAccount(cmd.Context(), accountID)
	if err != nil {
		return err
	}
	var pending []models.StoredTransaction
	for _, tx := range txns {
		if all || tx.Category == models.CategoryNone {
			pending = append(pending, tx)
		}
	}

	categorizeFn := c.GetCategorizer().CategorizeTransactions
	if all {
		categorizeFn = c.GetCategorizer().RecategorizeTransactions
	}
	n, err := categorizeFn(cmd.Context(), pending)
	if err != nil {
		return err
	}
	root.Success(cmd.OutOrStdout(), "Categorized %d of %d transactions", n, len(pending))
	return nil
}

func explain(cmd *cobra.Command, id string) error {
	c := root.GetContainer()
	tx, err := c.GetStore().GetTransaction(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", id, err)
	}
	results, err := c.GetCategorizer().Explain(cmd.Context(), *tx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	root.Header(out, tx.Description)
	root.Info(out, "merchant key: %s", tx.MerchantKey)
	for _, r := range results.Results {
		switch {
		case r.Error != nil:
			root.Failure(out, "%s: %v", r.Strategy, r.Error)
		case r.Found:
			root.Success(out, "%s: %s (confidence %.2f)", r.Strategy, r.Category, r.Confidence)
		case r.Stop:
			root.Warning(out, "%s: stopped without a category", r.Strategy)
		default:
			root.Info(out, "%s: no match", r.Strategy)
		}
	}
	return nil
}
