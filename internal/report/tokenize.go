package report

import "strings"

// ItemList is the ordered items of one list-like field. It always has at
// least one element.
type ItemList []string

// Delimiters are tried in this order; the first one present in the content is
// the only one used.
var Delimiters = []string{"\n", ",", ";", "•", "-"}

// Tokenize splits content into items on the highest-priority delimiter it
// contains. Content with no delimiter comes back as a single trimmed item,
// and empty content as [""].
func Tokenize(content string) ItemList {
	trimmed := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	for _, d := range Delimiters {
		if !strings.Contains(trimmed, d) {
			continue
		}
		items := make(ItemList, 0, strings.Count(trimmed, d)+1)
		for _, part := range strings.Split(trimmed, d) {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		if len(items) > 0 {
			return items
		}
		break
	}
	return ItemList{trimmed}
}
