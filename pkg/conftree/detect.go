package conftree

import "strings"

const (
	detectMaxLines = 50 // non-comment lines inspected
	detectMinimum  = 3  // each of '{', '}', ';' must be seen more often than this
)

// DetectMode guesses whether lines form a braced (Junos style) or an
// indented document. Mixed or ambiguous input is treated as indented.
func DetectMode(lines []string) Mode {
	var open, closed, semi, scanned int
	for _, line := range lines {
		if isComment(line) {
			continue
		}
		scanned++

		t := strings.TrimRight(line, " \t\r\n")
		if t != "" {
			switch t[len(t)-1] {
			case '{':
				open++
			case '}':
				closed++
			case ';':
				semi++
			}
		}
		if open > detectMinimum && closed > detectMinimum && semi > detectMinimum {
			return ModeBraced
		}
		if scanned == detectMaxLines {
			break
		}
	}
	return ModeIndent
}
