package endpoints

import (
	"time"

	"github.com/jackzampolin/mediscan/internal/analysis"
	"github.com/jackzampolin/mediscan/internal/report"
)

// FieldResponse is one extracted section.
type FieldResponse struct {
	Label   string   `json:"label" yaml:"label"`
	Content string   `json:"content" yaml:"content"`
	Known   bool     `json:"known" yaml:"known"`
	Items   []string `json:"items,omitempty" yaml:"items,omitempty"`
	Safety  string   `json:"safety,omitempty" yaml:"safety,omitempty"`
}

// InteractionResponse is the interaction analysis of a report.
type InteractionResponse struct {
	Medications string `json:"medications,omitempty" yaml:"medications,omitempty"`
	Text        string `json:"text" yaml:"text"`
	Tier        string `json:"tier" yaml:"tier"`
	Badge       string `json:"badge" yaml:"badge"`
}

// AnalysisResponse describes a stored analysis.
type AnalysisResponse struct {
	ID          string               `json:"id" yaml:"id"`
	Fields      []FieldResponse      `json:"fields" yaml:"fields"`
	Degraded    bool                 `json:"degraded" yaml:"degraded"`
	Interaction *InteractionResponse `json:"interaction,omitempty" yaml:"interaction,omitempty"`
	Format      string               `json:"format" yaml:"format"`
	Filename    string               `json:"filename,omitempty" yaml:"filename,omitempty"`
	ReportURL   string               `json:"report_url,omitempty" yaml:"report_url,omitempty"`
	RenderError string               `json:"render_error,omitempty" yaml:"render_error,omitempty"`
	Warnings    []string             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	RawReport   string               `json:"raw_report,omitempty" yaml:"raw_report,omitempty"`
	Calls       []analysis.Call      `json:"calls,omitempty" yaml:"calls,omitempty"`
	CreatedAt   time.Time            `json:"created_at" yaml:"created_at"`
	ExpiresAt   time.Time            `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// NewFieldResponses describes fields with their list items and safety tags.
func NewFieldResponses(fields report.Fields) []FieldResponse {
	out := make([]FieldResponse, len(fields))
	for i, f := range fields {
		out[i] = FieldResponse{Label: f.Label, Content: f.Content, Known: f.Known}
		if report.IsListLabel(f.Label) {
			out[i].Items = report.Tokenize(f.Content)
		}
		if report.IsSafetyLabel(f.Label) {
			out[i].Safety = string(report.ClassifySafety(f.Content))
		}
	}
	return out
}

// NewAnalysisResponse describes res. A positive ttl sets ExpiresAt.
func NewAnalysisResponse(res *analysis.Result, ttl time.Duration) AnalysisResponse {
	resp := AnalysisResponse{
		ID:          res.RequestID,
		Fields:      NewFieldResponses(res.Fields),
		Degraded:    res.Degraded,
		Format:      string(res.Format),
		Filename:    res.Filename,
		RenderError: res.RenderError,
		Warnings:    res.Warnings,
		RawReport:   res.RawReport,
		Calls:       res.Calls,
		CreatedAt:   res.CreatedAt,
	}
	if ttl > 0 {
		resp.ExpiresAt = res.CreatedAt.Add(ttl)
	}
	if res.Rendered() {
		resp.ReportURL = "/api/analyses/" + res.RequestID + "/report"
	}
	if ia := res.Interaction; ia != nil {
		resp.Interaction = &InteractionResponse{
			Medications: ia.Medications,
			Text:        ia.Text,
			Tier:        string(ia.Tier),
			Badge:       ia.Tier.Badge(),
		}
	}
	return resp
}
