package util

import "strings"

// TruncateForLog trims the input and cuts it to limit runes, appending an
// ellipsis when content was dropped. A non-positive limit yields "".
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
