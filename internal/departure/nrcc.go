package departure

import (
	"regexp"
	"strings"
)

// Matches every opening or closing tag except <a ...> and </a>.
var nonAnchorTag = regexp.MustCompile(`(?i)</?((([^/a>]|a[^> ])[^>]*)|)>`)

// SanitizeNrccMessage strips HTML other than links from a National Rail
// advisory and points its links at https.
func SanitizeNrccMessage(message string) string {
	if message == "" {
		return ""
	}
	stripped := nonAnchorTag.ReplaceAllString(message, "")
	return strings.ReplaceAll(stripped, `"http://nationalrail.`, `"https://www.nationalrail.`)
}
