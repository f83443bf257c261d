package render

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)

// inlinePolicy admits the only element inline markup can produce.
var inlinePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("strong")
	return p
}()

// escapeMarkup escapes characters significant in HTML and XML.
func escapeMarkup(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}

// inlineHTML escapes text, turns **bold** spans into <strong> and passes the
// result through inlinePolicy.
func inlineHTML(text string) string {
	text = escapeMarkup(text)
	text = boldPattern.ReplaceAllStringFunc(text, func(match string) string {
		return "<strong>" + strings.Trim(match, "*_") + "</strong>"
	})
	return inlinePolicy.Sanitize(text)
}

// stripInlineMarkup drops **bold** markers for backends without inline styling.
func stripInlineMarkup(text string) string {
	return boldPattern.ReplaceAllStringFunc(text, func(match string) string {
		return strings.Trim(match, "*_")
	})
}
