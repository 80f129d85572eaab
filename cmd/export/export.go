// Package export implements the export command.
package export

import (
	"fmt"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/common"

	"github.com/spf13/cobra"
)

var (
	accountID string
	output    string

	// Cmd represents the export command
	Cmd = &cobra.Command{
		Use:   "export",
		Short: "Export an account's transactions to CSV",
		Long: `Export every stored transaction of an account, with its merchant key, category and
transfer link, to CSV. Without --output the CSV is written to standard output.`,
		Args: cobra.NoArgs,
		RunE: exportFunc,
	}
)

func init() {
	Cmd.Flags().StringVarP(&accountID, "account", "a", "", "Account to export")
	Cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV file")
	_ = Cmd.MarkFlagRequired("account")
}

func exportFunc(cmd *cobra.Command, args []string) error {
	c := root.GetContainer()
	txns, err := c.GetStore().ListTransactionsByAccount(cmd.Context(), accountID)
	if err != nil {
		return err
	}
	delimiter := c.GetConfig().Delimiter()

	if output == "" {
		rows := make([]common.TransactionRow, 0, len(txns))
		for _, tx := range txns {
			rows = append(rows, common.NewTransactionRow(tx))
		}
		return common.WriteCSV(cmd.OutOrStdout(), rows, delimiter)
	}
	if err := common.WriteTransactionsToCSV(output, txns, delimiter); err != nil {
		return fmt.Errorf("failed to export %s: %w", accountID, err)
	}
	root.Success(cmd.OutOrStdout(), "Exported %d transactions to %s", len(txns), output)
	return nil
}
