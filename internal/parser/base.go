// Package parser holds the bank adapter contract and the table engine the adapters share.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/bankfeed/internal/common"
	"fjacquet/bankfeed/internal/currencyutils"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parsererror"
)

// progressEvery is how many data rows pass between parsing progress reports.
const progressEvery = 50

// trailerMarkers open the summary block; every row after one is skipped.
var trailerMarkers = []string{"statement summary", "end of statement", "computer generated"}

var footerKeywords = []string{
	"total", "closing balance", "opening balance", "disclaimer", "statement summary",
	"generated on", "end of statement", "computer generated", "****", "dr count", "cr count",
}

// BaseParser is embedded by every bank adapter. It locates the header row, resolves
// columns, streams rows into transactions and fingerprints them, all driven by a Layout.
//
//	type Adapter struct {
//		parser.BaseParser
//	}
type BaseParser struct {
	logger logging.Logger
	layout Layout
	opts   Options
}

// NewBaseParser returns a BaseParser for layout. A nil logger gets the default logger.
func NewBaseParser(logger logging.Logger, layout Layout) BaseParser {
	return BaseParser{
		logger: logging.OrDefault(logger),
		layout: layout,
		opts:   DefaultOptions(),
	}
}

// SetLogger swaps the logger; nil is ignored.
func (b *BaseParser) SetLogger(logger logging.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// GetLogger returns the current logger.
func (b *BaseParser) GetLogger() logging.Logger {
	return b.logger
}

// Configure applies header-detection options; zero values keep the defaults.
func (b *BaseParser) Configure(opts Options) {
	if opts.HeaderScanRows > 0 {
		b.opts.HeaderScanRows = opts.HeaderScanRows
	}
	if opts.HeaderMatchThreshold > 0 && opts.HeaderMatchThreshold <= 1 {
		b.opts.HeaderMatchThreshold = opts.HeaderMatchThreshold
	}
}

func (b *BaseParser) ID() string       { return b.layout.BankID }
func (b *BaseParser) BankName() string { return b.layout.BankName }
func (b *BaseParser) Layout() Layout   { return b.layout }

// Format returns the layout's user-facing metadata.
func (b *BaseParser) Format() FormatInfo {
	return FormatInfo{
		BankID:      b.layout.BankID,
		BankName:    b.layout.BankName,
		FileTypes:   b.layout.FileTypes,
		DateFormats: b.layout.DateFormats,
		Description: b.layout.Description,
	}
}

// CanParseFile reports whether the bank's header row appears within the scan window.
// Unreadable legacy workbooks are reported as "not mine" rather than as errors.
func (b *BaseParser) CanParseFile(path string) (bool, error) {
	rows, err := common.ReadHeadRows(path, b.opts.HeaderScanRows)
	if errors.Is(err, common.ErrLegacyExcel) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, ok := b.findHeader(rows)
	return ok, nil
}

func (b *BaseParser) findHeader(rows [][]string) (int, bool) {
	for i, row := range rows {
		if b.layout.HeaderScore(row) >= b.opts.HeaderMatchThreshold {
			return i, true
		}
	}
	return -1, false
}

// Parse streams path through the layout. It fails only when the header is missing or
// when no usable transaction was found.
func (b *BaseParser) Parse(ctx context.Context, path string, onProgress ProgressFunc) (*models.ParseResult, error) {
	report := func(p models.ParseProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	log := b.logger.WithFields(
		logging.Field{Key: logging.FieldBank, Value: b.layout.BankID},
		logging.Field{Key: logging.FieldFile, Value: path},
	)

	report(models.ParseProgress{Stage: models.StageDetecting, Message: "locating header row"})

	reader, err := common.OpenRows(path)
	if err != nil {
		if errors.Is(err, common.ErrLegacyExcel) {
			return nil, b.formatError(path, err.Error())
		}
		return nil, err
	}
	defer reader.Close()

	header, headerIdx, err := b.scanForHeader(reader)
	if err != nil {
		return nil, err
	}
	if header == nil {
		log.Warn("Header row not found", logging.Field{Key: logging.FieldCount, Value: b.opts.HeaderScanRows})
		return nil, b.formatError(path, fmt.Sprintf("header row not found in the first %d rows", b.opts.HeaderScanRows))
	}

	cols, missing := b.layout.ResolveColumns(header)
	if len(missing) > 0 {
		return nil, b.formatError(path, fmt.Sprintf("required columns missing: %v", missing))
	}

	report(models.ParseProgress{Stage: models.StageReading, RowsRead: headerIdx + 1, Message: "header found"})

	result := &models.ParseResult{
		Metadata: models.ParseMetadata{
			BankID:    b.layout.BankID,
			BankName:  b.layout.BankName,
			FileName:  filepath.Base(path),
			HeaderRow: headerIdx,
			Columns:   columnNames(cols),
		},
	}

	rowNum := headerIdx
	inTrailer := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		var rowErr *common.RowError
		if errors.As(err, &rowErr) {
			result.ErrorCount++
			log.Debug("Malformed row", logging.Field{Key: logging.FieldRow, Value: rowNum}, logging.Field{Key: logging.FieldReason, Value: rowErr.Error()})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}

		if inTrailer {
			result.SkippedRowCount++
			continue
		}

		tx, skip, err := b.buildTransaction(header, cols, row, rowNum)
		switch {
		case skip:
			result.SkippedRowCount++
			inTrailer = containsAny(row, trailerMarkers)
		case err != nil:
			result.ErrorCount++
			log.Debug("Skipping unparseable row", logging.Field{Key: logging.FieldRow, Value: rowNum}, logging.Field{Key: logging.FieldReason, Value: err.Error()})
		default:
			result.Transactions = append(result.Transactions, tx)
		}

		if (rowNum-headerIdx)%progressEvery == 0 {
			report(models.ParseProgress{Stage: models.StageParsing, RowsRead: rowNum + 1, Transactions: len(result.Transactions)})
		}
	}
	result.Metadata.RowsRead = rowNum + 1

	report(models.ParseProgress{Stage: models.StageValidating, RowsRead: rowNum + 1, Transactions: len(result.Transactions)})
	if len(result.Transactions) == 0 {
		return nil, &parsererror.ValidationError{FilePath: path, Reason: "no valid transactions found"}
	}
	result.Metadata.PeriodStart, result.Metadata.PeriodEnd = period(result.Transactions)

	log.Info("Parsed statement",
		logging.Field{Key: logging.FieldCount, Value: len(result.Transactions)},
		logging.Field{Key: "errors", Value: result.ErrorCount},
		logging.Field{Key: "skipped", Value: result.SkippedRowCount})
	report(models.ParseProgress{Stage: models.StageComplete, RowsRead: rowNum + 1, Transactions: len(result.Transactions)})
	return result, nil
}

// scanForHeader reads at most HeaderScanRows rows and stops at the first header match.
// A nil header means the scan window was exhausted.
func (b *BaseParser) scanForHeader(reader common.RowReader) ([]string, int, error) {
	for i := 0; i < b.opts.HeaderScanRows; i++ {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil, -1, nil
		}
		var rowErr *common.RowError
		if errors.As(err, &rowErr) {
			continue
		}
		if err != nil {
			return nil, -1, err
		}
		if b.layout.HeaderScore(row) >= b.opts.HeaderMatchThreshold {
			return row, i, nil
		}
	}
	return nil, -1, nil
}

// buildTransaction maps one data row. skip is true for rows that are not transactions
// (blank, footer, continuation); err is set for rows that should have been but are broken.
func (b *BaseParser) buildTransaction(header []string, cols ColumnMap, row []string, rowNum int) (models.UnifiedTransaction, bool, error) {
	if isBlank(row) {
		return models.UnifiedTransaction{}, true, nil
	}
	cell := func(f Field) string {
		idx, ok := cols[f]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	dateCell := cell(FieldDate)
	date, dateErr := dateutils.ParseStatementDate(dateCell)
	if dateErr != nil {
		if isFooter(row) || (dateCell == "" && cell(FieldDebit) == "" && cell(FieldCredit) == "") {
			return models.UnifiedTransaction{}, true, nil
		}
		return models.UnifiedTransaction{}, false, b.rowError(rowNum, "date", dateCell, dateErr)
	}

	debit, err := currencyutils.ParseAmount(cell(FieldDebit))
	if err != nil {
		return models.UnifiedTransaction{}, false, b.rowError(rowNum, "debit", cell(FieldDebit), err)
	}
	credit, err := currencyutils.ParseAmount(cell(FieldCredit))
	if err != nil {
		return models.UnifiedTransaction{}, false, b.rowError(rowNum, "credit", cell(FieldCredit), err)
	}

	builder := models.NewTransactionBuilder().
		WithDate(date).
		WithDescription(cell(FieldNarration)).
		WithDebitCredit(debit.Abs(), credit.Abs()).
		WithReference(cell(FieldReference)).
		WithSource(b.layout.BankID, b.layout.BankName).
		WithOriginalData(originalData(header, row))

	if vd, err := dateutils.ParseStatementDate(cell(FieldValueDate)); err == nil {
		builder.WithValueDate(vd)
	}
	if raw := cell(FieldBalance); raw != "" {
		if bal, err := currencyutils.ParseAmount(raw); err == nil {
			builder.WithBalance(&bal)
		}
	}

	tx, err := builder.Build()
	if err != nil {
		return models.UnifiedTransaction{}, false, b.rowError(rowNum, "amount", cell(FieldDebit)+"/"+cell(FieldCredit), err)
	}
	return tx, false, nil
}

func (b *BaseParser) rowError(row int, field, value string, err error) error {
	return &parsererror.ParseError{Bank: b.layout.BankID, Row: row, Field: field, Value: value, Err: err}
}

func (b *BaseParser) formatError(path, msg string) error {
	return &parsererror.InvalidFormatError{
		FilePath:       path,
		ExpectedFormat: b.layout.BankName + " statement export",
		Msg:            msg,
	}
}

func originalData(header, row []string) map[string]string {
	raw := make(map[string]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if i < len(row) {
			raw[h] = strings.TrimSpace(row[i])
		} else {
			raw[h] = ""
		}
	}
	return raw
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isFooter(row []string) bool {
	return containsAny(row, footerKeywords)
}

func containsAny(row []string, keywords []string) bool {
	joined := strings.ToLower(strings.Join(row, " "))
	for _, kw := range keywords {
		if strings.Contains(joined, kw) {
			return true
		}
	}
	return false
}

func columnNames(cols ColumnMap) map[string]int {
	out := make(map[string]int, len(cols))
	for f, idx := range cols {
		out[string(f)] = idx
	}
	return out
}

func period(txns []models.UnifiedTransaction) (time.Time, time.Time) {
	start, end := txns[0].Date, txns[0].Date
	for _, tx := range txns[1:] {
		if tx.Date.Before(start) {
			start = tx.Date
		}
		if tx.Date.After(end) {
			end = tx.Date
		}
	}
	return start, end
}
