// Package report turns the annotated text produced by a vision model into
// labeled fields, item lists and severity tags.
//
// Nothing in this package returns an error. Text without any field markers is
// a valid input and yields an empty Fields value (see Fields.Degraded).
package report

import "strings"

// Field is one labeled section of a raw report.
type Field struct {
	Label   string `json:"label"`
	Content string `json:"content"`
	// Order is the zero-based position of the field among all extracted fields.
	Order int `json:"order"`
	// Offset is the byte offset of the field's marker in the raw text.
	Offset int `json:"offset"`
	// Known is false for labels passed through verbatim from outside the vocabulary.
	Known bool `json:"known"`
}

// Fields is the ordered result of an extraction.
type Fields []Field

// Degraded reports whether no markers were found, meaning the raw text
// should be treated as one opaque blob.
func (fs Fields) Degraded() bool {
	return len(fs) == 0
}

// Get returns the first field whose label matches, case-insensitively.
func (fs Fields) Get(label string) (Field, bool) {
	key := normalizeLabel(label)
	for _, f := range fs {
		if normalizeLabel(f.Label) == key {
			return f, true
		}
	}
	return Field{}, false
}

// Content returns the content of the first matching field, or "".
func (fs Fields) Content(label string) string {
	f, _ := fs.Get(label)
	return f.Content
}

// Labels returns field labels in extraction order.
func (fs Fields) Labels() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Label
	}
	return out
}

// Lines splits content into its non-blank lines.
func (f Field) Lines() []string {
	raw := strings.Split(strings.ReplaceAll(f.Content, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
