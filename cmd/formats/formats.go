// Package formats implements the formats command.
package formats

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"fjacquet/bankfeed/cmd/root"

	"github.com/spf13/cobra"
)

// Cmd represents the formats command
var Cmd = &cobra.Command{
	Use:   "formats",
	Short: "List the supported bank statement formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "BANK\tNAME\tFILES\tDATES\tDESCRIPTION")
		for _, f := range root.GetContainer().GetRegistry().SupportedFormats() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.BankID, f.BankName,
				strings.Join(f.FileTypes, ","), strings.Join(f.DateFormats, ","), f.Description)
		}
		return tw.Flush()
	},
}
