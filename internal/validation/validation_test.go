package validation_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/bankfeed/internal/parsererror"
	"fjacquet/bankfeed/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementFile(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	tests := []struct {
		name          string
		path          string
		errContains   string
		invalidFormat bool
	}{
		{name: "csv statement", path: write("hdfc.csv", "Date,Narration\n")},
		{name: "upper-case extension", path: write("ICICI.XLS", "data")},
		{name: "text export", path: write("Acct_Statement_XX5678.txt", "data")},
		{name: "missing file", path: filepath.Join(tmpDir, "nope.csv"), errContains: "file does not exist"},
		{name: "directory", path: tmpDir, errContains: "not a regular file"},
		{name: "empty file", path: write("empty.csv", ""), errContains: "file is empty", invalidFormat: true},
		{name: "pdf statement", path: write("statement.pdf", "%PDF-1.4"), errContains: "unsupported extension", invalidFormat: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.StatementFile(tt.path)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
			var formatErr *parsererror.InvalidFormatError
			assert.Equal(t, tt.invalidFormat, errors.As(err, &formatErr))
		})
	}
}

func TestIsStatementExtension(t *testing.T) {
	assert.True(t, validation.IsStatementExtension("a.xlsx"))
	assert.True(t, validation.IsStatementExtension("/tmp/B.CSV"))
	assert.False(t, validation.IsStatementExtension("notes"))
	assert.False(t, validation.IsStatementExtension("scan.pdf"))
}
