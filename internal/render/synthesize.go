package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
)

// Renderer serializes a planned layout.
type Renderer interface {
	Format() Format
	Render(w io.Writer, layout Layout, style Style) error
}

// RendererFor returns the backend for f.
func RendererFor(f Format) (Renderer, error) {
	switch f {
	case FormatPDF, "":
		return PDFRenderer{}, nil
	case FormatHTML:
		return HTMLRenderer{}, nil
	case FormatMarkdown:
		return MarkdownRenderer{}, nil
	}
	return nil, &RenderError{Format: f, Op: "select backend", Err: errors.New("unsupported format")}
}

// Output is a successfully rendered document.
type Output struct {
	Bytes    []byte
	Format   Format
	Fields   int
	Warnings []error
}

// Synthesizer renders documents with a fixed style.
type Synthesizer struct {
	Style  Style
	Logger *slog.Logger
}

// NewSynthesizer returns a Synthesizer for style.
func NewSynthesizer(style Style, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{Style: style.withDefaults(), Logger: logger}
}

// Synthesize renders doc in format f. Image problems are recovered by leaving
// the image out and are reported in Output.Warnings. The only error is a
// *RenderError, in which case no bytes are returned.
func (s *Synthesizer) Synthesize(ctx context.Context, doc *Document, f Format) (*Output, error) {
	if f == "" {
		f = FormatPDF
	}
	r, err := RendererFor(f)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Format: f, Op: "start", Err: err}
	}

	logger := s.logger()
	style := s.Style.withDefaults()
	var warnings []error
	var img *PreparedImage
	if doc.HasImage() {
		img, err = PrepareImage(doc.image, style.ImageMaxWidth, style.ImageMaxHeight)
		if err != nil {
			logger.Warn("omitting image from report", "error", err, "bytes", len(doc.image))
			warnings = append(warnings, err)
			img = nil
		}
	}

	layout := Plan(doc, style, img)

	var buf bytes.Buffer
	if err := r.Render(&buf, layout, style); err != nil {
		return nil, &RenderError{Format: f, Op: "serialize", Err: err}
	}

	logger.Debug("report rendered",
		"format", f,
		"fields", layout.FieldCount(),
		"image", img != nil,
		"bytes", buf.Len())

	return &Output{
		Bytes:    buf.Bytes(),
		Format:   f,
		Fields:   layout.FieldCount(),
		Warnings: warnings,
	}, nil
}

// WriteTo renders doc and copies it to w. A failed write is a *RenderError.
func (s *Synthesizer) WriteTo(ctx context.Context, w io.Writer, doc *Document, f Format) (*Output, error) {
	out, err := s.Synthesize(ctx, doc, f)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(out.Bytes); err != nil {
		return nil, &RenderError{Format: out.Format, Op: "write", Err: err}
	}
	return out, nil
}

func (s *Synthesizer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Synthesize renders doc with the default style.
func Synthesize(ctx context.Context, doc *Document, f Format) (*Output, error) {
	return NewSynthesizer(DefaultStyle(), nil).Synthesize(ctx, doc, f)
}
