// Package analysis runs a tablet photo through the full MediScan pipeline:
// vision analysis, section extraction, severity classification and document
// synthesis.
package analysis

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/report"
)

// Request carries everything one pipeline run needs. Nothing about a run is
// kept outside its Request and Result.
type Request struct {
	ID          string
	Image       []byte
	ImageMIME   string
	Medications string
	Format      render.Format

	// RawReport, when set, skips the vision call and renders this text instead.
	RawReport string
	// InteractionText, when set, skips the interaction call.
	InteractionText string

	CreatedAt time.Time
}

// NewRequest creates a request with a fresh ID.
func NewRequest(image []byte, mime, medications string) *Request {
	return &Request{
		ID:          uuid.NewString(),
		Image:       image,
		ImageMIME:   mime,
		Medications: medications,
		CreatedAt:   time.Now(),
	}
}

// HasMedications reports whether an interaction check was asked for.
func (r *Request) HasMedications() bool {
	return strings.TrimSpace(r.Medications) != ""
}

func (r *Request) normalize() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Format == "" {
		r.Format = render.FormatPDF
	}
}

// Call summarizes one provider call.
type Call struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model,omitempty"`
	Attempts     int           `json:"attempts"`
	PromptTokens int           `json:"prompt_tokens"`
	OutputTokens int           `json:"completion_tokens"`
	CostUSD      float64       `json:"cost_usd,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Result is the outcome of a pipeline run. When rendering fails, Fields and
// Interaction are still populated and RenderError says why.
type Result struct {
	RequestID   string                      `json:"request_id"`
	RawReport   string                      `json:"raw_report"`
	Fields      report.Fields               `json:"fields"`
	Degraded    bool                        `json:"degraded"`
	Safety      map[string]report.SafetyTag `json:"safety,omitempty"`
	Interaction *render.Interaction         `json:"interaction,omitempty"`

	Format      render.Format  `json:"format"`
	Filename    string         `json:"filename,omitempty"`
	Output      *render.Output `json:"-"`
	RenderError string         `json:"render_error,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`

	Calls     []Call        `json:"calls,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
}

// Rendered reports whether document bytes are available.
func (r *Result) Rendered() bool {
	return r.Output != nil && len(r.Output.Bytes) > 0
}
