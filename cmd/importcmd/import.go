// Package importcmd implements the import command.
package importcmd

import (
	"fmt"
	"io"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/common"
	"fjacquet/bankfeed/internal/importer"
	"fjacquet/bankfeed/internal/models"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// Flags holds the import command flags.
type Flags struct {
	Account            string
	Bank               string
	DryRun             bool
	PossibleDuplicates string
	Review             string
	NoProgress         bool
}

var (
	// ImportFlags is bound to the command's flags.
	ImportFlags = Flags{}

	// Cmd represents the import command
	Cmd = &cobra.Command{
		Use:   "import <statement>...",
		Short: "Import bank statement files into an account",
		Long: `Import one or more HDFC, ICICI, SBI or Axis statement exports (CSV, TXT, XLS, XLSX).

Each file is parsed, deduplicated against the account's history, stored, categorized and
checked for transfers to your other accounts. Files are imported in file name order and a
file that fails does not stop the others.

Example:
  bankfeed import --account hdfc-salary Acct_Statement_XX5678.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: importFunc,
	}
)

func init() {
	Cmd.Flags().StringVarP(&ImportFlags.Account, "account", "a", "", "Account id to import into")
	Cmd.Flags().StringVarP(&ImportFlags.Bank, "bank", "b", "", "Force a bank adapter (hdfc, icici, sbi, axis)")
	Cmd.Flags().BoolVar(&ImportFlags.DryRun, "dry-run", false, "Parse and check duplicates without saving")
	Cmd.Flags().StringVar(&ImportFlags.PossibleDuplicates, "possible-duplicates", "", "What to do with possible duplicates: import or skip (default from config)")
	Cmd.Flags().StringVar(&ImportFlags.Review, "review", "", "Write the duplicate check of every parsed row to this CSV file")
	Cmd.Flags().BoolVar(&ImportFlags.NoProgress, "no-progress", false, "Disable the progress bar")
	_ = Cmd.MarkFlagRequired("account")
}

func importFunc(cmd *cobra.Command, args []string) error {
	c := root.GetContainer()
	out := cmd.OutOrStdout()

	opts := c.ImportOptions(ImportFlags.Account)
	opts.BankID = ImportFlags.Bank
	opts.DryRun = ImportFlags.DryRun
	if ImportFlags.PossibleDuplicates != "" {
		policy, err := importer.ParsePolicy(ImportFlags.PossibleDuplicates)
		if err != nil {
			return err
		}
		opts.PossibleDuplicates = policy
	}
	if !ImportFlags.NoProgress {
		bars := &phaseBars{w: cmd.ErrOrStderr()}
		opts.OnProgress = bars.update
		defer bars.finish()
	}

	outcomes, err := c.GetImporter().ImportAll(cmd.Context(), args, opts)
	if err != nil {
		return err
	}

	var checks []models.DuplicateCheckResult
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			root.Failure(out, "%s: %v", o.Path, o.Err)
			continue
		}
		printRecord(out, o.Path, o.Result.Record, opts.DryRun)
		checks = append(checks, o.Result.Checks...)
	}

	if ImportFlags.Review != "" {
		if err := common.WriteReviewToCSV(ImportFlags.Review, checks, c.GetConfig().Delimiter()); err != nil {
			return err
		}
		root.Info(out, "Duplicate review written to %s", ImportFlags.Review)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(outcomes))
	}
	return nil
}

func printRecord(w io.Writer, path string, rec models.ImportRecord, dryRun bool) {
	if dryRun {
		root.Warning(w, "%s: dry run, nothing saved", path)
	} else {
		root.Success(w, "%s imported as %s (%s)", path, rec.ID, rec.BankID)
	}
	root.Info(w, "parsed %d, inserted %d, duplicates %d, possible duplicates %d",
		rec.ParsedCount, rec.InsertedCount, rec.DuplicateCount, rec.PossibleDuplicates)
	root.Info(w, "row errors %d, skipped %d, categorized %d, transfers linked %d",
		rec.ErrorCount, rec.SkippedCount, rec.CategorizedCount, rec.LinkedTransfers)
}

// phaseBars shows one progress bar per import phase.
type phaseBars struct {
	w     io.Writer
	phase string
	bar   *progressbar.ProgressBar
}

func (p *phaseBars) update(pr models.ImportProgress) {
	if pr.Total <= 0 {
		return
	}
	if pr.Phase != p.phase || p.bar == nil {
		p.finish()
		p.phase = pr.Phase
		p.bar = progressbar.NewOptions(pr.Total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%-10s[reset]", pr.Phase)),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.w)
			}),
		)
	}
	_ = p.bar.Set(pr.Current)
}

func (p *phaseBars) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
