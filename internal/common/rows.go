// Package common provides the row sources and CSV writers shared by every bank adapter.
package common

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// RowReader streams the rows of a tabular statement. Next returns io.EOF after the last row.
type RowReader interface {
	Next() ([]string, error)
	Close() error
}

// RowError is a malformed row. Readers keep going after returning one.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("malformed row at line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ErrLegacyExcel is returned for binary .xls workbooks, which must be re-saved as .xlsx or CSV.
var ErrLegacyExcel = errors.New("legacy binary .xls workbooks are not supported")

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

const sniffSize = 8192

// OpenRows picks a reader from the file extension. Anything that is not a workbook is read
// as delimited text; some banks ship delimited text under an .xls name.
func OpenRows(path string) (RowReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return openWorkbook(path)
	default:
		return openDelimited(path)
	}
}

// ReadHeadRows returns at most n rows from the top of the file.
func ReadHeadRows(path string, n int) ([][]string, error) {
	r, err := OpenRows(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var rows [][]string
	for len(rows) < n {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type delimitedReader struct {
	file   *os.File
	reader *csv.Reader
}

func openDelimited(path string) (RowReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening statement file: %w", err)
	}

	magic := make([]byte, len(oleMagic))
	if n, _ := io.ReadFull(f, magic); n == len(oleMagic) && bytes.Equal(magic, oleMagic) {
		f.Close()
		return nil, ErrLegacyExcel
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("error rewinding statement file: %w", err)
	}

	// Strips a UTF-8 BOM and decodes UTF-16 exports that carry one.
	decoded := transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	br := bufio.NewReaderSize(decoded, sniffSize)
	sample, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		f.Close()
		return nil, fmt.Errorf("error reading statement file: %w", err)
	}

	r := csv.NewReader(br)
	r.Comma = SniffDelimiter(sample)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	// A tab counts as leading space to encoding/csv, so trimming would swallow
	// empty tab-separated cells.
	r.TrimLeadingSpace = r.Comma != '\t'

	return &delimitedReader{file: f, reader: r}, nil
}

func (d *delimitedReader) Next() ([]string, error) {
	row, err := d.reader.Read()
	if err == nil || errors.Is(err, io.EOF) {
		return row, err
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return nil, &RowError{Line: pe.Line, Err: pe.Err}
	}
	return nil, err
}

func (d *delimitedReader) Close() error {
	return d.file.Close()
}

// SniffDelimiter picks the separator that occurs most consistently in the sample.
func SniffDelimiter(sample []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	lines := strings.Split(string(sample), "\n")
	if len(lines) > 40 {
		lines = lines[:40]
	}

	best, bestScore := ',', 0
	for _, c := range candidates {
		score := 0
		for _, line := range lines {
			score += countOutsideQuotes(line, c)
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func countOutsideQuotes(line string, c rune) int {
	n, quoted := 0, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == c && !quoted:
			n++
		}
	}
	return n
}

type workbookReader struct {
	file *excelize.File
	rows *excelize.Rows
}

func openWorkbook(path string) (RowReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error reading sheet %q: %w", sheet, err)
	}
	return &workbookReader{file: f, rows: rows}, nil
}

// Next returns raw cell values, so date cells arrive as serial numbers.
func (w *workbookReader) Next() ([]string, error) {
	if !w.rows.Next() {
		if err := w.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return w.rows.Columns(excelize.Options{RawCellValue: true})
}

func (w *workbookReader) Close() error {
	if err := w.rows.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
