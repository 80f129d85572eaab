package root

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan)
	red    = color.New(color.FgRed)
)

// Header prints a title underlined to its width.
func Header(w io.Writer, text string) {
	cyan.Fprintf(w, "%s\n%s\n", text, strings.Repeat("=", len(text)))
}

// Success prints a success line.
func Success(w io.Writer, format string, args ...interface{}) {
	green.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Info prints a plain indented line.
func Info(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a highlighted warning line.
func Warning(w io.Writer, format string, args ...interface{}) {
	yellow.Fprintf(w, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Failure prints an error line.
func Failure(w io.Writer, format string, args ...interface{}) {
	red.Fprintf(w, "✗ %s\n", fmt.Sprintf(format, args...))
}
