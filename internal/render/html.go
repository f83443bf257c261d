package render

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// HTMLRenderer writes a standalone HTML5 page with inline styles and the
// image embedded as a data URL. All content is escaped before embedding.
type HTMLRenderer struct{}

func (HTMLRenderer) Format() Format { return FormatHTML }

func (HTMLRenderer) Render(w io.Writer, layout Layout, style Style) error {
	style = style.withDefaults()
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\"/>\n<title>")
	sb.WriteString(escapeMarkup(style.Title))
	sb.WriteString("</title>\n<style>\n")
	writeCSS(&sb, style)
	sb.WriteString("</style>\n</head>\n<body>\n<main class=\"report\">\n")

	for _, b := range layout.Blocks {
		writeHTMLBlock(&sb, b)
	}

	sb.WriteString("</main>\n</body>\n</html>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeCSS(sb *strings.Builder, style Style) {
	fmt.Fprintf(sb, "body{font-family:Helvetica,Arial,sans-serif;margin:1in;color:%s}\n", style.HeadingColor.Hex())
	fmt.Fprintf(sb, "h1{font-size:18pt;text-align:center;color:%s}\n", style.TitleColor.Hex())
	fmt.Fprintf(sb, "h2{font-size:14pt;color:%s}\n", style.TitleColor.Hex())
	fmt.Fprintf(sb, ".disclaimer{font-size:10pt;text-align:center;color:%s;background:%s;border:1px solid %s;padding:8px}\n",
		style.DisclaimerColor.Hex(), style.DisclaimerFill.Hex(), style.DisclaimerBorder.Hex())
	sb.WriteString(".badge{display:inline-block;color:#fff;font-weight:bold;font-size:9pt;padding:2px 6px}\n")
	sb.WriteString(".image{text-align:center}\n")
	fmt.Fprintf(sb, "footer{font-size:8pt;text-align:center;color:%s;margin-top:24px}\n", style.FooterColor.Hex())
}

func writeHTMLBlock(sb *strings.Builder, b Block) {
	switch b.Kind {
	case BlockTitle:
		sb.WriteString("<h1>" + escapeMarkup(b.Text) + "</h1>\n")
	case BlockDisclaimer:
		sb.WriteString("<p class=\"disclaimer\">" + escapeMarkup(b.Text) + "</p>\n")
	case BlockTimestamp:
		sb.WriteString("<p class=\"timestamp\">" + escapeMarkup(b.Text) + "</p>\n")
	case BlockHeading:
		sb.WriteString("<h2>" + escapeMarkup(b.Text) + "</h2>\n")
	case BlockImage:
		if b.Image == nil {
			return
		}
		fmt.Fprintf(sb, "<div class=\"image\"><img alt=\"Analyzed tablet\" width=\"%.0f\" height=\"%.0f\" src=\"data:image/png;base64,%s\"/></div>\n",
			b.Image.DisplayWidth, b.Image.DisplayHeight, base64.StdEncoding.EncodeToString(b.Image.PNG))
	case BlockField:
		sb.WriteString("<section class=\"field\">\n<h3>" + escapeMarkup(b.Label) + ":</h3>\n")
		writeHTMLBadge(sb, b.Badge)
		writeHTMLBody(sb, b.Lines, b.Items)
		sb.WriteString("</section>\n")
	case BlockInteraction:
		sb.WriteString("<section class=\"interaction\">\n<h2>" + escapeMarkup(b.Text) + "</h2>\n")
		if b.Note != "" {
			sb.WriteString("<p><strong>" + escapeMarkup(b.Note) + "</strong></p>\n")
		}
		writeHTMLBadge(sb, b.Badge)
		writeHTMLBody(sb, b.Lines, nil)
		sb.WriteString("</section>\n")
	case BlockFooter:
		sb.WriteString("<footer>" + escapeMarkup(b.Text) + "</footer>\n")
	}
}

func writeHTMLBadge(sb *strings.Builder, b *Badge) {
	if b == nil {
		return
	}
	fmt.Fprintf(sb, "<p><span class=\"badge badge-%s\" style=\"background:%s\">%s</span></p>\n",
		escapeMarkup(b.Tag), b.Color.Hex(), escapeMarkup(b.Text))
}

func writeHTMLBody(sb *strings.Builder, lines, items []string) {
	for _, l := range lines {
		sb.WriteString("<p>" + inlineHTML(l) + "</p>\n")
	}
	if len(items) == 0 {
		return
	}
	sb.WriteString("<ul>\n")
	for _, it := range items {
		sb.WriteString("<li>" + inlineHTML(it) + "</li>\n")
	}
	sb.WriteString("</ul>\n")
}
