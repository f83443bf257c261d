package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/metrics"
	"github.com/jackzampolin/mediscan/internal/svcctx"
)

// ListMetricsResponse is the response for listing metrics.
type ListMetricsResponse struct {
	Metrics []metrics.Metric `json:"metrics"`
	Count   int              `json:"count"`
	// Total counts every recorded call, including ones already evicted.
	Total int `json:"total"`
}

// MetricsSummaryResponse aggregates recorded provider calls.
type MetricsSummaryResponse struct {
	Summary  *metrics.Summary                  `json:"summary"`
	Detailed *metrics.DetailedStats            `json:"detailed"`
	ByStage  map[string]*metrics.DetailedStats `json:"by_stage,omitempty"`
}

func metricsFilter(q url.Values) metrics.Filter {
	f := metrics.Filter{
		RequestID: q.Get("request_id"),
		Stage:     q.Get("stage"),
		Provider:  q.Get("provider"),
		Model:     q.Get("model"),
	}
	if s := q.Get("success"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			f.Success = &b
		}
	}
	return f
}

type metricsFlags struct {
	requestID, stage, provider, model string
}

func (m *metricsFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.requestID, "request", "", "Filter by request ID")
	cmd.Flags().StringVar(&m.stage, "stage", "", "Filter by stage (analysis, interaction)")
	cmd.Flags().StringVar(&m.provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&m.model, "model", "", "Filter by model")
}

func (m *metricsFlags) query() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{
		"request_id": m.requestID,
		"stage":      m.stage,
		"provider":   m.provider,
		"model":      m.model,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// ListMetricsEndpoint handles GET /api/metrics.
type ListMetricsEndpoint struct{}

func (e *ListMetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics", e.handler
}

func (e *ListMetricsEndpoint) RequiresInit() bool { return false }

func (e *ListMetricsEndpoint) CommandGroup() (string, string) {
	return "metrics", "Provider call metrics"
}

func (e *ListMetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rec := svcctx.MetricsFrom(r.Context())
	if rec == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not enabled")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	result := rec.List(metricsFilter(r.URL.Query()), limit)
	if result == nil {
		result = []metrics.Metric{}
	}
	writeJSON(w, http.StatusOK, ListMetricsResponse{
		Metrics: result,
		Count:   len(result),
		Total:   rec.Total(),
	})
}

func (e *ListMetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags metricsFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent provider calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := flags.query()
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var resp ListMetricsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), withQuery("/api/metrics", q), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum results")
	return cmd
}

// MetricsSummaryEndpoint handles GET /api/metrics/summary.
type MetricsSummaryEndpoint struct{}

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return false }

func (e *MetricsSummaryEndpoint) CommandGroup() (string, string) {
	return "metrics", "Provider call metrics"
}

func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rec := svcctx.MetricsFrom(r.Context())
	if rec == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not enabled")
		return
	}

	f := metricsFilter(r.URL.Query())
	resp := MetricsSummaryResponse{
		Summary:  rec.Summary(f),
		Detailed: rec.DetailedStats(f),
	}
	if r.URL.Query().Get("by") == "stage" {
		resp.ByStage = rec.StageStats(f)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags metricsFlags
	var byStage bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize cost, tokens and latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := flags.query()
			if byStage {
				q.Set("by", "stage")
			}
			var resp MetricsSummaryResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), withQuery("/api/metrics/summary", q), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&byStage, "by-stage", false, "Break statistics down by stage")
	return cmd
}
