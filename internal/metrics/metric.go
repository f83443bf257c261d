// Package metrics records cost, token and latency figures for provider calls
// and aggregates them for the status API. Records are kept in memory; the
// oldest are dropped once the recorder is full.
package metrics

import "time"

// Stages a provider call can belong to.
const (
	StageAnalysis    = "analysis"
	StageInteraction = "interaction"
)

// Metric is one provider call.
type Metric struct {
	RequestID string `json:"request_id,omitempty"`
	Stage     string `json:"stage,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	CostUSD          float64 `json:"cost_usd,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`

	Attempts         int     `json:"attempts,omitempty"`
	ExecutionSeconds float64 `json:"execution_seconds,omitempty"`

	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter selects metrics. Zero fields match everything.
type Filter struct {
	RequestID string
	Stage     string
	Provider  string
	Model     string
	After     time.Time
	Success   *bool // nil = any, true = success only, false = errors only
}

func (f Filter) match(m *Metric) bool {
	switch {
	case f.RequestID != "" && m.RequestID != f.RequestID:
		return false
	case f.Stage != "" && m.Stage != f.Stage:
		return false
	case f.Provider != "" && m.Provider != f.Provider:
		return false
	case f.Model != "" && m.Model != f.Model:
		return false
	case !f.After.IsZero() && !m.CreatedAt.After(f.After):
		return false
	case f.Success != nil && m.Success != *f.Success:
		return false
	}
	return true
}
