package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/jackzampolin/mediscan/internal/providers"
)

// DefaultCapacity is the number of metrics a Recorder keeps.
const DefaultCapacity = 1000

// Recorder keeps the most recent metrics in a ring buffer.
type Recorder struct {
	mu    sync.RWMutex
	buf   []Metric
	next  int
	full  bool
	total int
}

// NewRecorder creates a recorder holding up to capacity metrics.
// Non-positive capacity uses DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{buf: make([]Metric, capacity)}
}

// RecordOpts attributes a recorded call.
type RecordOpts struct {
	RequestID string
	Stage     string
	Provider  string // used when the call never produced a result
}

// Record stores m, evicting the oldest metric when full.
func (r *Recorder) Record(m Metric) {
	if r == nil {
		return
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = m
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.total++
}

// RecordLLMCall records the outcome of a provider call. result may be nil
// when the call failed before reaching the provider.
func (r *Recorder) RecordLLMCall(opts RecordOpts, result *providers.ChatResult, err error) {
	if r == nil {
		return
	}
	m := Metric{
		RequestID: opts.RequestID,
		Stage:     opts.Stage,
		Provider:  opts.Provider,
		Success:   err == nil,
	}
	if result != nil {
		if result.Provider != "" {
			m.Provider = result.Provider
		}
		m.Model = result.ModelUsed
		m.CostUSD = result.CostUSD
		m.PromptTokens = result.PromptTokens
		m.CompletionTokens = result.CompletionTokens
		m.TotalTokens = result.TotalTokens
		m.Attempts = result.Attempts
		m.ExecutionSeconds = result.ExecutionTime.Seconds()
		m.ErrorType = result.ErrorType
	}
	if err != nil && m.ErrorType == "" {
		m.ErrorType = errorType(err)
	}
	r.Record(m)
}

func errorType(err error) string {
	var statusErr *providers.StatusError
	switch {
	case errors.Is(err, providers.ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &statusErr):
		return "http_error"
	case errors.Is(err, providers.ErrNotConfigured):
		return "not_configured"
	}
	return "error"
}

// List returns metrics matching f, newest first. limit <= 0 returns all.
func (r *Recorder) List(f Filter, limit int) []Metric {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.buf)
	}
	var out []Metric
	for i := 0; i < n; i++ {
		idx := (r.next - 1 - i + len(r.buf)) % len(r.buf)
		m := r.buf[idx]
		if !f.match(&m) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Total returns the number of metrics ever recorded, evicted ones included.
func (r *Recorder) Total() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
