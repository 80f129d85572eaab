package parser

import (
	"regexp"
	"strings"
)

// Field is a logical statement column.
type Field string

const (
	FieldDate      Field = "date"
	FieldValueDate Field = "value_date"
	FieldNarration Field = "narration"
	FieldReference Field = "reference"
	FieldDebit     Field = "debit"
	FieldCredit    Field = "credit"
	FieldBalance   Field = "balance"
)

// resolveOrder fixes the order columns are claimed in, so a specific alias
// ("value date") is taken before a generic one ("date") can grab it.
var resolveOrder = []Field{
	FieldValueDate, FieldDate, FieldNarration, FieldReference, FieldDebit, FieldCredit, FieldBalance,
}

// Layout describes one bank's export.
type Layout struct {
	BankID   string
	BankName string

	// HeaderKeywords are the normalized header cells expected on the header row.
	HeaderKeywords []string
	// Columns lists header aliases per field, most specific first.
	Columns map[Field][]string
	// Required fields must resolve or the file is rejected.
	Required []Field
	// FingerprintFields are raw columns hashed in addition to date and narration.
	FingerprintFields []Field

	FileTypes   []string
	DateFormats []string
	Description string
}

// ColumnMap maps resolved fields to cell indexes.
type ColumnMap map[Field]int

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lowercases, drops punctuation and collapses whitespace.
func NormalizeHeader(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// HeaderScore is the fraction of the layout's keywords present in row.
func (l Layout) HeaderScore(row []string) float64 {
	if len(l.HeaderKeywords) == 0 {
		return 0
	}
	cells := normalizeRow(row)
	matched := 0
	for _, kw := range l.HeaderKeywords {
		kw = NormalizeHeader(kw)
		for _, c := range cells {
			if c != "" && (c == kw || strings.Contains(c, kw)) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(l.HeaderKeywords))
}

// ResolveColumns assigns header cells to fields. Exact alias matches win over
// containment, and a cell is never assigned twice.
func (l Layout) ResolveColumns(header []string) (ColumnMap, []Field) {
	cells := normalizeRow(header)
	cols := ColumnMap{}
	used := map[int]bool{}

	for _, exact := range []bool{true, false} {
		for _, f := range resolveOrder {
			if _, done := cols[f]; done {
				continue
			}
			for _, alias := range l.Columns[f] {
				if idx := findCell(cells, NormalizeHeader(alias), exact, used); idx >= 0 {
					cols[f] = idx
					used[idx] = true
					break
				}
			}
		}
	}

	var missing []Field
	for _, f := range l.Required {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	return cols, missing
}

func findCell(cells []string, alias string, exact bool, used map[int]bool) int {
	for i, c := range cells {
		if used[i] || c == "" {
			continue
		}
		if c == alias || (!exact && strings.Contains(c, alias)) {
			return i
		}
	}
	return -1
}

func normalizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = NormalizeHeader(c)
	}
	return out
}
