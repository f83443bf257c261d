package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/mediscan/internal/report"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 200})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSynthesize_PDF(t *testing.T) {
	out, err := Synthesize(context.Background(), sampleDocument(t), FormatPDF)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.HasPrefix(out.Bytes, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", out.Bytes[:min(16, len(out.Bytes))])
	}
	if out.Fields != 3 || len(out.Warnings) != 0 {
		t.Errorf("unexpected output summary: fields=%d warnings=%v", out.Fields, out.Warnings)
	}

	info, err := VerifyPDF(out.Bytes)
	if err != nil {
		t.Fatalf("VerifyPDF: %v", err)
	}
	if info.Pages != 1 {
		t.Errorf("expected 1 page, got %d", info.Pages)
	}

	content, err := PageContent(out.Bytes, 1)
	if err != nil {
		t.Fatalf("PageContent: %v", err)
	}
	for _, want := range []string{"Paracetamol 500mg", "Side Effects:", "Generated on: 2025-03-14 09:26:53"} {
		if !strings.Contains(content, want) {
			t.Errorf("page content missing %q", want)
		}
	}
}

func TestSynthesize_PDFPaginates(t *testing.T) {
	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, "Take with food and plenty of water.")
	}
	raw := "*How to Use:* " + strings.Join(lines, "\n")
	doc := NewDocument(DocumentInput{Fields: report.Extract(raw, report.ExtractOptions{}), GeneratedAt: fixedTime})

	out, err := Synthesize(context.Background(), doc, FormatPDF)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	info, err := VerifyPDF(out.Bytes)
	if err != nil {
		t.Fatalf("VerifyPDF: %v", err)
	}
	if info.Pages < 2 {
		t.Errorf("expected multiple pages, got %d", info.Pages)
	}
}

func TestSynthesize_Idempotent(t *testing.T) {
	img := testPNG(t, 40, 30)
	build := func() *Document {
		return NewDocument(DocumentInput{
			Fields:      report.Extract(sampleReport, report.ExtractOptions{}),
			Image:       img,
			Interaction: &Interaction{Medications: "Aspirin", Text: "Minor interaction"},
			GeneratedAt: fixedTime,
		})
	}
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			a, err := Synthesize(context.Background(), build(), f)
			if err != nil {
				t.Fatalf("first render: %v", err)
			}
			b, err := Synthesize(context.Background(), build(), f)
			if err != nil {
				t.Fatalf("second render: %v", err)
			}
			if !bytes.Equal(a.Bytes, b.Bytes) {
				t.Error("identical input produced different output")
			}
		})
	}
}

func TestSynthesize_BadImageIsOmitted(t *testing.T) {
	doc := NewDocument(DocumentInput{
		Fields:      report.Extract(sampleReport, report.ExtractOptions{}),
		Image:       []byte("definitely not an image"),
		GeneratedAt: fixedTime,
	})

	for _, f := range Formats {
		out, err := Synthesize(context.Background(), doc, f)
		if err != nil {
			t.Fatalf("%s: bad image should not fail render: %v", f, err)
		}
		if len(out.Warnings) != 1 {
			t.Fatalf("%s: expected one warning, got %v", f, out.Warnings)
		}
		var decodeErr *ImageDecodeError
		if !errors.As(out.Warnings[0], &decodeErr) {
			t.Errorf("%s: warning is %T, want *ImageDecodeError", f, out.Warnings[0])
		}
		if f == FormatHTML && bytes.Contains(out.Bytes, []byte("Analyzed Image")) {
			t.Error("image heading rendered without an image")
		}
	}
}

func TestSynthesize_ZeroStyleUsesDefaultImageBox(t *testing.T) {
	doc := NewDocument(DocumentInput{
		Fields:      report.Extract(sampleReport, report.ExtractOptions{}),
		Image:       testPNG(t, 600, 300),
		GeneratedAt: fixedTime,
	})

	out, err := (&Synthesizer{}).Synthesize(context.Background(), doc, FormatHTML)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}
	if !bytes.Contains(out.Bytes, []byte(`width="288" height="144"`)) {
		t.Error("image not sized to the default 288pt box")
	}

	pdf, err := (&Synthesizer{}).Synthesize(context.Background(), doc, FormatPDF)
	if err != nil {
		t.Fatalf("Synthesize pdf: %v", err)
	}
	if !bytes.HasPrefix(pdf.Bytes, []byte("%PDF")) {
		t.Error("pdf output missing header")
	}
}

func TestSynthesize_HTML(t *testing.T) {
	raw := "*Composition:* <script>alert('x')</script> & \"quoted\"\n*Uses:* **Pain** relief"
	doc := NewDocument(DocumentInput{
		Fields:      report.Extract(raw, report.ExtractOptions{}),
		Image:       testPNG(t, 20, 10),
		Interaction: &Interaction{Text: "Severe bleeding risk"},
		GeneratedAt: fixedTime,
	})
	out, err := Synthesize(context.Background(), doc, FormatHTML)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	html := string(out.Bytes)

	if strings.Contains(html, "<script>") || strings.Contains(html, `"quoted"`) {
		t.Error("content was not escaped")
	}
	for _, want := range []string{
		"&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt; &amp; ",
		"<strong>Pain</strong> relief",
		"data:image/png;base64,",
		"SEVERE/MAJOR INTERACTION DETECTED",
		"MEDICAL DISCLAIMER",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Index(html, "Composition") > strings.Index(html, "Uses") {
		t.Error("fields out of order")
	}
}

func TestSynthesize_Markdown(t *testing.T) {
	out, err := Synthesize(context.Background(), sampleDocument(t), FormatMarkdown)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	md := string(out.Bytes)
	for _, want := range []string{"Drug Analysis Results", "Composition", "Paracetamol 500mg", "Nausea, Headache"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "<h1>") || strings.Contains(md, "<style>") {
		t.Errorf("markdown still contains html:\n%s", md)
	}
}

func TestSynthesize_RenderErrors(t *testing.T) {
	s := NewSynthesizer(DefaultStyle(), nil)

	t.Run("write failure", func(t *testing.T) {
		out, err := s.WriteTo(context.Background(), failingWriter{}, sampleDocument(t), FormatHTML)
		var renderErr *RenderError
		if !errors.As(err, &renderErr) {
			t.Fatalf("expected RenderError, got %v", err)
		}
		if renderErr.Op != "write" || out != nil {
			t.Errorf("unexpected result: op=%q out=%v", renderErr.Op, out)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := s.Synthesize(context.Background(), sampleDocument(t), Format("docx"))
		var renderErr *RenderError
		if !errors.As(err, &renderErr) {
			t.Fatalf("expected RenderError, got %v", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out, err := s.Synthesize(ctx, sampleDocument(t), FormatPDF)
		if !errors.Is(err, context.Canceled) || out != nil {
			t.Errorf("expected canceled error, got %v", err)
		}
	})
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := Filename("", ts, FormatPDF); got != "mediscan_analysis_20250102_030405.pdf" {
		t.Errorf("unexpected filename: %s", got)
	}
	if got := Filename("report", ts, FormatMarkdown); got != "report_20250102_030405.md" {
		t.Errorf("unexpected filename: %s", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatPDF, "PDF": FormatPDF, ".html": FormatHTML, "md": FormatMarkdown}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Error("expected error for docx")
	}
}

func TestInlineHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"**Pain** relief", "<strong>Pain</strong> relief"},
		{"__Do not__ exceed", "<strong>Do not</strong> exceed"},
		{"<b>raw</b>", "&lt;b&gt;raw&lt;/b&gt;"},
		{"a & b", "a &amp; b"},
	}
	for _, tt := range tests {
		if got := inlineHTML(tt.in); got != tt.want {
			t.Errorf("inlineHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
