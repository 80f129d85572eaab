package importer

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/bankfeed/internal/logging"
)

// FileOutcome is the result of one file in ImportAll.
type FileOutcome struct {
	Path   string
	Result *Result
	Err    error
}

// ImportAll imports every file into opts.AccountID in case-insensitive file name
// order. A file that fails is logged and skipped; cancellation stops the run.
func (im *Importer) ImportAll(ctx context.Context, paths []string, opts Options) ([]FileOutcome, error) {
	sorted := append([]string(nil), paths...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(filepath.Base(sorted[i])) < strings.ToLower(filepath.Base(sorted[j]))
	})

	outcomes := make([]FileOutcome, 0, len(sorted))
	failed := 0
	for _, path := range sorted {
		res, err := im.Import(ctx, path, opts)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return outcomes, err
		}
		if err != nil {
			failed++
			im.logger.WithError(err).Error("Failed to import file",
				logging.Field{Key: logging.FieldFile, Value: path})
		}
		outcomes = append(outcomes, FileOutcome{Path: path, Result: res, Err: err})
	}

	im.logger.Info("Imported files",
		logging.Field{Key: logging.FieldAccountID, Value: opts.AccountID},
		logging.Field{Key: "total_files", Value: len(sorted)},
		logging.Field{Key: "failed_files", Value: failed})
	return outcomes, nil
}
