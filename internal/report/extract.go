package report

import (
	"regexp"
	"strings"
)

// UnknownLabelPolicy controls markers whose label is not in the vocabulary.
type UnknownLabelPolicy int

const (
	// KeepUnknown emits the field under its label as written.
	KeepUnknown UnknownLabelPolicy = iota
	// DropUnknown discards the field. The marker still ends the previous field.
	DropUnknown
)

// ParseUnknownLabelPolicy accepts "keep" or "drop". Anything else is KeepUnknown.
func ParseUnknownLabelPolicy(s string) UnknownLabelPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "drop") {
		return DropUnknown
	}
	return KeepUnknown
}

func (p UnknownLabelPolicy) String() string {
	if p == DropUnknown {
		return "drop"
	}
	return "keep"
}

// ExtractOptions configures Extract. The zero value uses DefaultVocabulary,
// keeps unknown labels, and accepts markers anywhere in the text.
type ExtractOptions struct {
	Vocabulary    *Vocabulary
	UnknownLabels UnknownLabelPolicy
	// LineStartMarkers only recognizes markers that begin a line (after optional
	// indentation). Markers elsewhere are left in the surrounding content.
	LineStartMarkers bool
}

// markerPattern matches *Label:* and **Label:** with the label kept on one line.
// The label must follow the opening asterisks directly and the closing
// asterisks must follow the colon, so emphasis in content is not a marker.
var markerPattern = regexp.MustCompile(`\*{1,2}([\p{L}\p{N}][\p{L}\p{N}_ \t/&'()-]*?)[ \t]*:\*{1,2}`)

type marker struct {
	start, end int
	label      string
	known      bool
}

// Extract splits raw into labeled fields in order of appearance.
//
// All markers are located in one pass; each field's content runs from the end
// of its marker to the start of the next marker (recognized or not) or the end
// of the text, trimmed of surrounding whitespace.
func Extract(raw string, opts ExtractOptions) Fields {
	vocab := opts.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	markers := findMarkers(raw, vocab, opts.LineStartMarkers)
	if len(markers) == 0 {
		return Fields{}
	}

	fields := make(Fields, 0, len(markers))
	for i, m := range markers {
		if !m.known && opts.UnknownLabels == DropUnknown {
			continue
		}
		end := len(raw)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		fields = append(fields, Field{
			Label:   m.label,
			Content: strings.TrimSpace(raw[m.end:end]),
			Order:   len(fields),
			Offset:  m.start,
			Known:   m.known,
		})
	}
	return fields
}

func findMarkers(raw string, vocab *Vocabulary, lineStart bool) []marker {
	locs := markerPattern.FindAllStringSubmatchIndex(raw, -1)
	markers := make([]marker, 0, len(locs))
	for _, loc := range locs {
		if lineStart && !atLineStart(raw, loc[0]) {
			continue
		}
		written := collapseSpace(raw[loc[2]:loc[3]])
		m := marker{start: loc[0], end: loc[1], label: written}
		if canonical, ok := vocab.Lookup(written); ok {
			m.label, m.known = canonical, true
		}
		markers = append(markers, m)
	}
	return markers
}

func atLineStart(s string, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		switch s[i] {
		case ' ', '\t':
			continue
		case '\n', '\r':
			return true
		default:
			return false
		}
	}
	return true
}
