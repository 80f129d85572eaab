// Package rules implements the rules command group.
package rules

import (
	"fmt"
	"text/tabwriter"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/models"

	"github.com/spf13/cobra"
)

var (
	// Cmd represents the rules command
	Cmd = &cobra.Command{
		Use:   "rules",
		Short: "Inspect and correct merchant category rules",
	}

	setCmd = &cobra.Command{
		Use:   "set <transaction-id> <category>",
		Short: "Set a transaction's category and remember it for its merchant",
		Long: `Set the category of one transaction. The choice is saved as a user rule for the
transaction's merchant key, so later transactions from the same merchant follow it.`,
		Args: cobra.ExactArgs(2),
		RunE: setFunc,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List learned rules",
		Args:  cobra.NoArgs,
		RunE:  listFunc,
	}

	categoriesCmd = &cobra.Command{
		Use:   "categories",
		Short: "List the category catalog",
		Args:  cobra.NoArgs,
		RunE:  categoriesFunc,
	}
)

func init() {
	Cmd.AddCommand(setCmd, listCmd, categoriesCmd)
}

func setFunc(cmd *cobra.Command, args []string) error {
	txID, category := args[0], models.CategoryID(args[1])
	if err := root.GetContainer().GetCategorizer().SetUserCategory(cmd.Context(), txID, category); err != nil {
		return err
	}
	root.Success(cmd.OutOrStdout(), "Transaction %s set to %s", txID, category)
	return nil
}

func listFunc(cmd *cobra.Command, args []string) error {
	rules, err := root.GetContainer().GetStore().ListRules(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(rules) == 0 {
		root.Info(out, "No rules learned yet")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MERCHANT\tCATEGORY\tBY\tCONFIDENCE\tUSES\tLAST USED")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%s\n",
			r.MerchantKey, r.RootCategory, r.CreatedBy, r.Confidence, r.UsageCount, dateutils.ToISODate(r.LastUsed))
	}
	return tw.Flush()
}

func categoriesFunc(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL")
	for _, c := range models.RootCategories() {
		fmt.Fprintf(tw, "%s\t%s %s\n", c.ID, c.Icon, c.Label)
	}
	return tw.Flush()
}
