package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	pdfMargin   = 72.0
	pdfFont     = "Helvetica"
	pdfBodySize = 11.0
	pdfLeading  = 14.0
)

// PDFRenderer lays blocks out on US Letter pages with 1in margins using the
// PDF core fonts.
type PDFRenderer struct{}

func (PDFRenderer) Format() Format { return FormatPDF }

func (PDFRenderer) Render(w io.Writer, layout Layout, style Style) error {
	style = style.withDefaults()

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(style.Title, true)
	pdf.SetCreator("mediscan", true)
	pdf.SetCreationDate(layout.GeneratedAt)
	pdf.SetModificationDate(layout.GeneratedAt)
	if style.PageNumbers {
		pdf.AliasNbPages("{nb}")
		pdf.SetFooterFunc(func() {
			pdf.SetY(-pdfMargin / 2)
			pdf.SetFont(pdfFont, "I", 8)
			setText(pdf, style.FooterColor)
			pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		})
	}
	pdf.AddPage()

	p := &pdfWriter{pdf: pdf, style: style}
	for _, b := range layout.Blocks {
		p.block(b)
		if pdf.Err() {
			return pdf.Error()
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	style  Style
	images int
}

func (p *pdfWriter) block(b Block) {
	pdf := p.pdf
	switch b.Kind {
	case BlockTitle:
		pdf.SetFont(pdfFont, "B", 18)
		setText(pdf, p.style.TitleColor)
		pdf.MultiCell(0, 22, pdfText(b.Text), "", "C", false)
		pdf.Ln(12)

	case BlockDisclaimer:
		pdf.SetFont(pdfFont, "", 10)
		setText(pdf, p.style.DisclaimerColor)
		setFill(pdf, p.style.DisclaimerFill)
		setDraw(pdf, p.style.DisclaimerBorder)
		pdf.SetLineWidth(1)
		pdf.MultiCell(0, 13, pdfText(b.Text), "1", "C", true)
		pdf.Ln(12)

	case BlockTimestamp:
		p.body()
		pdf.MultiCell(0, pdfLeading, pdfText(b.Text), "", "L", false)
		pdf.Ln(12)

	case BlockHeading:
		pdf.SetFont(pdfFont, "B", 14)
		setText(pdf, p.style.TitleColor)
		pdf.MultiCell(0, 18, pdfText(b.Text), "", "L", false)
		pdf.Ln(6)

	case BlockImage:
		p.image(b.Image)

	case BlockField:
		pdf.SetFont(pdfFont, "B", pdfBodySize+1)
		setText(pdf, p.style.HeadingColor)
		pdf.MultiCell(0, pdfLeading+2, pdfText(b.Label+":"), "", "L", false)
		p.badge(b.Badge)
		p.paragraphs(b.Lines, b.Items)
		pdf.Ln(6)

	case BlockInteraction:
		pdf.SetFont(pdfFont, "B", 14)
		setText(pdf, p.style.TitleColor)
		pdf.MultiCell(0, 18, pdfText(b.Text), "", "L", false)
		pdf.Ln(4)
		if b.Note != "" {
			p.body()
			pdf.SetFont(pdfFont, "B", pdfBodySize)
			pdf.MultiCell(0, pdfLeading, pdfText(b.Note), "", "L", false)
			pdf.Ln(4)
		}
		p.badge(b.Badge)
		p.paragraphs(b.Lines, nil)
		pdf.Ln(6)

	case BlockFooter:
		pdf.Ln(18)
		pdf.SetFont(pdfFont, "", 8)
		setText(pdf, p.style.FooterColor)
		pdf.MultiCell(0, 10, pdfText(b.Text), "", "C", false)
	}
}

func (p *pdfWriter) body() {
	p.pdf.SetFont(pdfFont, "", pdfBodySize)
	setText(p.pdf, black)
}

func (p *pdfWriter) paragraphs(lines, items []string) {
	p.body()
	for _, l := range lines {
		p.pdf.MultiCell(0, pdfLeading, pdfText(stripInlineMarkup(l)), "", "L", false)
		p.pdf.Ln(3)
	}
	for _, it := range items {
		p.pdf.MultiCell(0, pdfLeading, pdfText("•  "+stripInlineMarkup(it)), "", "L", false)
	}
}

func (p *pdfWriter) badge(b *Badge) {
	if b == nil {
		return
	}
	pdf := p.pdf
	pdf.SetFont(pdfFont, "B", 9)
	pdf.SetTextColor(255, 255, 255)
	setFill(pdf, b.Color)
	width := pdf.GetStringWidth(pdfText(b.Text)) + 12
	pdf.CellFormat(width, 14, pdfText(b.Text), "", 1, "C", true, 0, "")
	pdf.Ln(4)
}

func (p *pdfWriter) image(img *PreparedImage) {
	if img == nil {
		return
	}
	pdf := p.pdf
	p.images++
	name := fmt.Sprintf("image%d", p.images)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.PNG))

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+img.DisplayHeight > pageH-bottom {
		pdf.AddPage()
	}
	pageW, _ := pdf.GetPageSize()
	x := (pageW - img.DisplayWidth) / 2
	pdf.ImageOptions(name, x, pdf.GetY(), img.DisplayWidth, img.DisplayHeight, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + img.DisplayHeight)
	pdf.Ln(12)
}

func setText(pdf *fpdf.Fpdf, c Color) { pdf.SetTextColor(int(c.R), int(c.G), int(c.B)) }
func setFill(pdf *fpdf.Fpdf, c Color) { pdf.SetFillColor(int(c.R), int(c.G), int(c.B)) }
func setDraw(pdf *fpdf.Fpdf, c Color) { pdf.SetDrawColor(int(c.R), int(c.G), int(c.B)) }

// pdfText converts UTF-8 to the Windows-1252 bytes the core fonts expect.
// Runes outside that code page become '?'.
func pdfText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 {
			b.WriteByte(byte(r))
			continue
		}
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}
