// Package validation checks statement files before they reach a bank adapter.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/bankfeed/internal/parsererror"
)

// MaxStatementSize bounds the files the importer accepts.
const MaxStatementSize = 64 << 20

// StatementExtensions are the file types bank exports come in.
var StatementExtensions = []string{".csv", ".txt", ".xls", ".xlsx", ".xlsm"}

// StatementFile checks that path is a regular, non-empty file of a statement type.
func StatementFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return &parsererror.InvalidFormatError{FilePath: path, ExpectedFormat: "bank statement", Msg: "file is empty"}
	}
	if info.Size() > MaxStatementSize {
		return &parsererror.InvalidFormatError{
			FilePath:       path,
			ExpectedFormat: "bank statement",
			Msg:            fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), MaxStatementSize),
		}
	}
	if !IsStatementExtension(path) {
		return &parsererror.InvalidFormatError{
			FilePath:       path,
			ExpectedFormat: strings.Join(StatementExtensions, ", "),
			Msg:            fmt.Sprintf("unsupported extension %q", filepath.Ext(path)),
		}
	}
	return nil
}

// IsStatementExtension reports whether path ends in one of StatementExtensions, ignoring case.
func IsStatementExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range StatementExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
