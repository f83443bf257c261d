package render

import (
	"fmt"
	"strings"
	"time"
)

// Format is an output document format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Formats lists supported formats, default first.
var Formats = []Format{FormatPDF, FormatHTML, FormatMarkdown}

// ParseFormat resolves a format name or file extension. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "pdf":
		return FormatPDF, nil
	case "html", "htm", "xhtml":
		return FormatHTML, nil
	case "markdown", "md", "text", "txt":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want pdf, html or markdown)", s)
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatMarkdown:
		return "md"
	default:
		return "pdf"
	}
}

// ContentType returns the MIME type for HTTP responses.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/pdf"
	}
}

// DefaultFilenamePrefix is used by Filename when prefix is empty.
const DefaultFilenamePrefix = "mediscan_analysis"

// Filename builds <prefix>_<YYYYMMDD_HHMMSS>.<ext>.
func Filename(prefix string, t time.Time, f Format) string {
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = DefaultFilenamePrefix
	}
	return fmt.Sprintf("%s_%s.%s", prefix, t.Format("20060102_150405"), f.Extension())
}
