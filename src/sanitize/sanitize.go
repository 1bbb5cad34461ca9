// Package sanitize cleans journal text for terminal and MCP output.
//
// Journal messages are whatever a unit wrote to stdout, so they routinely
// carry color codes, carriage returns from progress bars and other control
// characters.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Clean strips escape sequences, turns CRLF into LF, drops every other control
// character except tab and newline, and trims surrounding whitespace.
func Clean(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// OneLine cleans s and collapses every whitespace run into one space.
func OneLine(s string) string {
	return strings.Join(strings.Fields(Clean(s)), " ")
}
