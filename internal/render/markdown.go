package render

import (
	"bytes"
	"io"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// MarkdownRenderer produces the plain-text form of a report by converting the
// HTML rendering, so both stay structurally identical. The image is omitted.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Format() Format { return FormatMarkdown }

func (MarkdownRenderer) Render(w io.Writer, layout Layout, style Style) error {
	textOnly := Layout{GeneratedAt: layout.GeneratedAt}
	for i, b := range layout.Blocks {
		if b.Kind == BlockImage {
			continue
		}
		if b.Kind == BlockHeading && i+1 < len(layout.Blocks) && layout.Blocks[i+1].Kind == BlockImage {
			continue
		}
		textOnly.Blocks = append(textOnly.Blocks, b)
	}

	var html bytes.Buffer
	if err := (HTMLRenderer{}).Render(&html, textOnly, style); err != nil {
		return err
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	md, err := conv.ConvertString(html.String())
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, strings.TrimSpace(md)+"\n")
	return err
}
