package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo summarizes a PDF read back with pdfcpu.
type PDFInfo struct {
	Pages int `json:"pages"`
	Bytes int `json:"bytes"`
}

// VerifyPDF validates data as a PDF and reports its page count.
func VerifyPDF(data []byte) (*PDFInfo, error) {
	ctx, err := readPDF(data)
	if err != nil {
		return nil, err
	}
	return &PDFInfo{Pages: ctx.PageCount, Bytes: len(data)}, nil
}

// PageContent returns the decoded content stream of a 1-based page.
func PageContent(data []byte, pageNr int) (string, error) {
	ctx, err := readPDF(data)
	if err != nil {
		return "", err
	}
	if pageNr < 1 || pageNr > ctx.PageCount {
		return "", fmt.Errorf("page %d out of range (1-%d)", pageNr, ctx.PageCount)
	}
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return "", fmt.Errorf("extract page %d: %w", pageNr, err)
	}
	if r == nil {
		return "", nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read page %d: %w", pageNr, err)
	}
	return string(b), nil
}

func readPDF(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}
	return ctx, nil
}
