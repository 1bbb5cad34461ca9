package sanitize

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of s in terminal cells.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts s to maxLen cells, ending in "..." when ellipsis is set and
// there is room for it.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen-3, "") + "..."
	}
	return runewidth.Truncate(s, maxLen, "")
}

// TruncateAndPad truncates s and pads it with spaces to exactly width cells.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	s = Truncate(s, width, ellipsis)
	if w := VisualWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Wrap breaks text into lines of at most width cells, on word boundaries when
// possible. Words wider than a line are split.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0
	newline := func() {
		b.WriteString("\n")
		lineLen = 0
	}

	for _, word := range words {
		wordLen := VisualWidth(word)

		if wordLen > width {
			if lineLen > 0 {
				newline()
			}
			for _, chunk := range splitWidth(word, width) {
				if lineLen > 0 {
					newline()
				}
				b.WriteString(chunk)
				lineLen = VisualWidth(chunk)
			}
			continue
		}

		switch {
		case lineLen == 0:
		case lineLen+1+wordLen <= width:
			b.WriteString(" ")
			lineLen++
		default:
			newline()
		}
		b.WriteString(word)
		lineLen += wordLen
	}
	return b.String()
}

// splitWidth cuts word into pieces no wider than width.
func splitWidth(word string, width int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if curLen+rw > width && curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		cur.WriteRune(r)
		curLen += rw
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
