// Package imports implements the imports command group.
package imports

import (
	"fmt"
	"text/tabwriter"

	"fjacquet/bankfeed/cmd/root"

	"github.com/spf13/cobra"
)

var (
	accountID string

	// Cmd represents the imports command
	Cmd = &cobra.Command{
		Use:   "imports",
		Short: "List and undo statement imports",
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the imports of an account",
		Args:  cobra.NoArgs,
		RunE:  listFunc,
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <import-id>",
		Short: "Delete an import and every transaction it inserted",
		Long: `Delete an import record together with its transactions. Transfer links from other
accounts to the deleted transactions are cleared. The file can be imported again afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: deleteFunc,
	}
)

func init() {
	listCmd.Flags().StringVarP(&accountID, "account", "a", "", "Account whose imports are listed")
	_ = listCmd.MarkFlagRequired("account")

	Cmd.AddCommand(listCmd, deleteCmd)
}

func listFunc(cmd *cobra.Command, args []string) error {
	records, err := root.GetContainer().GetStore().ListImports(cmd.Context(), accountID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		root.Info(out, "No imports for account %s", accountID)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tBANK\tIMPORTED\tPARSED\tINSERTED\tDUPLICATES\tERRORS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n", r.ID, r.FileName, r.BankID,
			r.ImportedAt.Format("2006-01-02 15:04"), r.ParsedCount, r.InsertedCount, r.DuplicateCount, r.ErrorCount)
	}
	return tw.Flush()
}

func deleteFunc(cmd *cobra.Command, args []string) error {
	n, err := root.GetContainer().GetImporter().DeleteImport(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	root.Success(cmd.OutOrStdout(), "Import %s deleted with %d transactions", args[0], n)
	return nil
}
