package natsgath

import (
	"strings"
	"unicode/utf8"
)

const trimMark = "[...]"

// trimStrToRect keeps at most maxHeight lines of at most maxWidth bytes each.
// Lines are cut on a rune boundary.
func trimStrToRect(s string, maxHeight int, maxWidth int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
		lines = append(lines, trimMark)
	}
	var res strings.Builder
	for i, line := range lines {
		if i > 0 {
			res.WriteByte('\n')
		}
		if len(line) > maxWidth {
			res.WriteString(line[:runeCut(line, maxWidth)])
			res.WriteString(trimMark)
		} else {
			res.WriteString(line)
		}
	}
	return res.String()
}

// runeCut returns the largest n <= limit such that line[:n] does not split a rune.
func runeCut(line string, limit int) int {
	n := limit
	for n > 0 && !utf8.RuneStart(line[n]) {
		n--
	}
	return n
}
