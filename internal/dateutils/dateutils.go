// Package dateutils parses the date cells found in bank statement exports.
package dateutils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayoutISO is the canonical calendar-date layout.
const DateLayoutISO = "2006-01-02"

// TwoDigitYearPivot splits two-digit years: 00-49 are 20xx, 50-99 are 19xx.
// Every adapter goes through ParseStatementDate so the split is uniform.
const TwoDigitYearPivot = 50

// maxSerial is 9999-12-31 in spreadsheet serial days.
const maxSerial = 2958465

var (
	numericDMY = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2}|\d{4})$`)
	namedDMY   = regexp.MustCompile(`^(\d{1,2})[\s\-/]+([A-Za-z]{3,9})[\s\-/,]+(\d{2}|\d{4})$`)
	isoYMD     = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	serialNum  = regexp.MustCompile(`^\d{1,7}(\.\d+)?$`)
	timeSuffix = regexp.MustCompile(`(?i)[\sT]+\d{1,2}:\d{2}(:\d{2})?(\.\d+)?\s*(AM|PM|Z)?$`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseStatementDate parses DD/MM/YY, DD/MM/YYYY, DD-MM-YYYY, DD.MM.YYYY, DD-MMM-YY,
// DD MMM YYYY and ISO YYYY-MM-DD, ignoring a trailing time of day. A purely numeric
// cell is read as a spreadsheet serial date.
func ParseStatementDate(raw string) (time.Time, error) {
	s := CleanDateString(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serialNum.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("unable to parse date: %s", raw)
		}
		return FromSerial(f)
	}

	s = timeSuffix.ReplaceAllString(s, "")

	if m := isoYMD.FindStringSubmatch(s); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), raw)
	}
	if m := numericDMY.FindStringSubmatch(s); m != nil {
		return buildDate(ExpandYear(m[3]), atoi(m[2]), atoi(m[1]), raw)
	}
	if m := namedDMY.FindStringSubmatch(s); m != nil {
		month, ok := monthNames[strings.ToLower(m[2][:3])]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown month in date: %s", raw)
		}
		return buildDate(ExpandYear(m[3]), int(month), atoi(m[1]), raw)
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", raw)
}

// FromSerial converts a spreadsheet serial day number to a date.
// The 1900 date system counts a non-existent 29 February 1900 as serial 60, so serials
// from 61 onward are one day ahead of a true count from 31 December 1899. Serial 60
// folds onto 1 March 1900.
func FromSerial(serial float64) (time.Time, error) {
	days := int(math.Floor(serial))
	if days < 1 || days > maxSerial {
		return time.Time{}, fmt.Errorf("serial date %v out of range", serial)
	}
	epoch := time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	if days >= 61 {
		epoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	}
	return epoch.AddDate(0, 0, days), nil
}

// ExpandYear turns a two- or four-digit year string into a full year.
func ExpandYear(y string) int {
	n := atoi(y)
	if len(y) > 2 {
		return n
	}
	if n < TwoDigitYearPivot {
		return 2000 + n
	}
	return 1900 + n
}

// ToISODate formats a date as YYYY-MM-DD.
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// CleanDateString trims and collapses whitespace, including non-breaking spaces.
func CleanDateString(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

func buildDate(year, month, day int, raw string) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid calendar date: %s", raw)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, fmt.Errorf("invalid calendar date: %s", raw)
	}
	return d, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
