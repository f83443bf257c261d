package endpoints

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/mediscan/internal/analysis"
	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/metrics"
	"github.com/jackzampolin/mediscan/internal/prompts"
	promptset "github.com/jackzampolin/mediscan/internal/prompts/analysis"
	"github.com/jackzampolin/mediscan/internal/providers"
	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/svcctx"
)

const interactionText = "MODERATE INTERACTION: monitor INR when combining paracetamol with warfarin."

func newTestServer(t *testing.T, provider string) (*httptest.Server, *svcctx.Services) {
	t.Helper()

	mock := providers.NewMockClient()
	mock.Latency = 0
	mock.Respond = func(req *providers.ChatRequest) string {
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "Primary Drug") {
			return interactionText
		}
		return providers.MockReport
	}

	registry := providers.NewRegistry()
	registry.Register(providers.MockClientName, mock, 600)

	resolver := prompts.NewResolver(prompts.NewStore(t.TempDir()), nil)
	promptset.RegisterPrompts(resolver)

	recorder := metrics.NewRecorder(0)
	analyzer, err := analysis.NewAnalyzer(analysis.AnalyzerConfig{
		Registry:         registry,
		AnalysisProvider: providers.MockClientName,
		Resolver:         resolver,
		Metrics:          recorder,
		Attempts:         1,
		RetryDelay:       time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	services := &svcctx.Services{
		Registry:       registry,
		Pipeline:       analysis.NewPipeline(analysis.PipelineConfig{Analyzer: analyzer}),
		Sessions:       analysis.NewSessionStore(time.Minute),
		PromptResolver: resolver,
		Metrics:        recorder,
		DefaultFormat:  render.FormatPDF,
		MaxUploadBytes: 64 << 10,
	}

	reg := api.NewRegistry()
	for _, ep := range All(Config{AnalysisProvider: provider}) {
		reg.Register(ep)
	}
	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	}))
	t.Cleanup(srv.Close)
	return srv, services
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, url, filename string, data []byte, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()

	resp, err := http.Post(url+"/api/analyses", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/analyses: %v", err)
	}
	return resp
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, providers.MockClientName)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	var status StatusResponse
	decode(t, resp, &status)
	if len(status.Providers) != 1 || status.Providers[0] != providers.MockClientName {
		t.Errorf("status providers = %v", status.Providers)
	}

	t.Run("not ready without analysis provider", func(t *testing.T) {
		srv, _ := newTestServer(t, providers.OpenRouterName)
		resp, err := http.Get(srv.URL + "/ready")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})
}

func TestAnalysisLifecycle(t *testing.T) {
	srv, services := newTestServer(t, providers.MockClientName)

	resp := upload(t, srv.URL, "strip.png", pngBytes(t), map[string]string{
		"medications": "Warfarin",
		"format":      "html",
	})
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var created AnalysisResponse
	decode(t, resp, &created)

	if resp.Header.Get("Location") != "/api/analyses/"+created.ID {
		t.Errorf("Location = %q", resp.Header.Get("Location"))
	}
	if len(created.Fields) != 11 || created.Degraded {
		t.Errorf("fields = %d, degraded = %v", len(created.Fields), created.Degraded)
	}
	if created.Interaction == nil || created.Interaction.Tier != "moderate" {
		t.Fatalf("interaction = %+v", created.Interaction)
	}
	if created.Format != "html" || created.ReportURL == "" {
		t.Errorf("format = %q, report_url = %q", created.Format, created.ReportURL)
	}
	for _, f := range created.Fields {
		if f.Label == "Safety with Alcohol" && f.Safety != "avoid" {
			t.Errorf("alcohol safety = %q, want avoid", f.Safety)
		}
	}
	if services.Sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", services.Sessions.Len())
	}

	t.Run("get", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/analyses/" + created.ID)
		if err != nil {
			t.Fatal(err)
		}
		var got AnalysisResponse
		decode(t, resp, &got)
		if got.ID != created.ID {
			t.Errorf("ID = %q, want %q", got.ID, created.ID)
		}
	})

	t.Run("report download", func(t *testing.T) {
		resp, err := http.Get(srv.URL + created.ReportURL)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("Content-Type = %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, ".html") {
			t.Errorf("Content-Disposition = %q", cd)
		}
		if !bytes.Contains(body, []byte("MODERATE INTERACTION")) {
			t.Error("report missing interaction badge")
		}
	})

	t.Run("delete", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/analyses/"+created.ID, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, want 204", resp.StatusCode)
		}
		resp, err = http.Get(srv.URL + "/api/analyses/" + created.ID)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status after delete = %d, want 404", resp.StatusCode)
		}
	})
}

func TestCreateAnalysis_Rejections(t *testing.T) {
	srv, _ := newTestServer(t, providers.MockClientName)

	tests := []struct {
		name     string
		filename string
		data     []byte
		fields   map[string]string
		want     int
	}{
		{"missing image", "", nil, nil, http.StatusBadRequest},
		{"unsupported type", "strip.gif", []byte("GIF89a"), nil, http.StatusUnsupportedMediaType},
		{"empty file", "strip.jpg", nil, nil, http.StatusBadRequest},
		{"too large", "strip.png", bytes.Repeat([]byte{0x1}, 80<<10), nil, http.StatusRequestEntityTooLarge},
		{"bad format", "strip.png", pngBytes(t), map[string]string{"format": "docx"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, srv.URL, tt.filename, tt.data, tt.fields)
			var e ErrorResponse
			decode(t, resp, &e)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, e.Error)
			}
			if e.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestRenderReport(t *testing.T) {
	srv, _ := newTestServer(t, providers.MockClientName)

	t.Run("markdown", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/reports", RenderReportRequest{
			RawReport:   providers.MockReport,
			Format:      "markdown",
			Interaction: &InteractionPayload{Medications: "Warfarin", Text: "Severe bleeding risk."},
		})
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
		}
		if !bytes.Contains(body, []byte("Composition")) || !bytes.Contains(body, []byte("SEVERE/MAJOR INTERACTION DETECTED")) {
			t.Errorf("unexpected markdown:\n%s", body)
		}
	})

	t.Run("pdf by default", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/reports", RenderReportRequest{RawReport: providers.MockReport})
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("%PDF")) {
			t.Errorf("status = %d, prefix = %q", resp.StatusCode, body[:min(8, len(body))])
		}
	})

	t.Run("blank raw_report", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/reports", RenderReportRequest{RawReport: "  \n\t "})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		var got ErrorResponse
		decode(t, resp, &got)
		if got.Error != "raw_report is blank" {
			t.Errorf("error = %q", got.Error)
		}
	})

	invalid := []struct {
		name string
		body map[string]any
	}{
		{"missing raw_report", map[string]any{"format": "pdf"}},
		{"empty raw_report", map[string]any{"raw_report": ""}},
		{"unknown format", map[string]any{"raw_report": "x", "format": "docx"}},
		{"unknown field", map[string]any{"raw_report": "x", "colour": "red"}},
		{"interaction without text", map[string]any{"raw_report": "x", "interaction": map[string]any{"medications": "Warfarin"}}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/reports", tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", resp.StatusCode)
			}
		})
	}
}

func TestCoreEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, providers.MockClientName)

	t.Run("extract", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/extract", ExtractRequest{
			Text:          "*Uses:* Pain relief *Storage:* Cool, dry place",
			UnknownLabels: "drop",
		})
		var got ExtractResponse
		decode(t, resp, &got)
		if len(got.Fields) != 1 || got.Fields[0].Label != "Uses" || got.Fields[0].Content != "Pain relief" {
			t.Errorf("fields = %+v", got.Fields)
		}
	})

	t.Run("extract degraded", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/extract", ExtractRequest{Text: "no markers here"})
		var got ExtractResponse
		decode(t, resp, &got)
		if !got.Degraded || len(got.Fields) != 0 {
			t.Errorf("got %+v, want degraded with no fields", got)
		}
	})

	t.Run("tokenize", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/tokenize", TokenizeRequest{Content: "Nausea, Headache, Rash"})
		var got TokenizeResponse
		decode(t, resp, &got)
		if strings.Join(got.Items, "|") != "Nausea|Headache|Rash" {
			t.Errorf("items = %q", got.Items)
		}
	})

	classify := []struct {
		req  ClassifyRequest
		mode string
		tag  string
	}{
		{ClassifyRequest{Content: "Avoid alcohol; it is not safe."}, "safety", "avoid"},
		{ClassifyRequest{Content: "Use with caution."}, "safety", "caution"},
		{ClassifyRequest{Content: "Major interaction.", Mode: "interaction"}, "interaction", "severe"},
		{ClassifyRequest{Content: "Minor effect.", Label: "interaction summary"}, "interaction", "minor"},
		{ClassifyRequest{Content: "Nothing notable."}, "safety", "unclassified"},
	}
	for _, tt := range classify {
		t.Run("classify "+tt.req.Content, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/classify", tt.req)
			var got ClassifyResponse
			decode(t, resp, &got)
			if got.Mode != tt.mode || got.Tag != tt.tag || got.Badge == "" {
				t.Errorf("got %+v, want mode %s tag %s", got, tt.mode, tt.tag)
			}
		})
	}

	t.Run("classify invalid mode", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/classify", map[string]string{"content": "x", "mode": "other"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", resp.StatusCode)
		}
	})
}

func TestPromptEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, providers.MockClientName)
	client := api.NewClient(srv.URL)
	ctx := t.Context()
	path := "/api/prompts/" + promptset.InteractionQueryKey

	var list PromptsListResponse
	if err := client.Get(ctx, "/api/prompts", &list); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Prompts) != 5 {
		t.Errorf("prompts = %d, want 5", len(list.Prompts))
	}

	var p PromptResponse
	if err := client.Put(ctx, path, SetPromptRequest{Text: "Check {{.Composition}} with {{.Medications}}."}, &p); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !p.IsOverride || p.Text != "Check {{.Composition}} with {{.Medications}}." {
		t.Errorf("after set = %+v", p)
	}

	if err := client.Put(ctx, path, SetPromptRequest{Text: "{{.Composition"}, &p); !api.IsStatus(err, http.StatusBadRequest) {
		t.Errorf("broken template error = %v, want 400", err)
	}
	if err := client.Put(ctx, "/api/prompts/unknown.key", SetPromptRequest{Text: "x"}, &p); !api.IsStatus(err, http.StatusNotFound) {
		t.Errorf("unknown key error = %v, want 404", err)
	}

	if err := client.Delete(ctx, path); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := client.Get(ctx, path, &p); err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.IsOverride {
		t.Error("override still applied after reset")
	}
}

func TestStaticEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, providers.MockClientName)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("MediScan")) {
		t.Errorf("GET / status = %d", resp.StatusCode)
	}

	for path, want := range map[string]int{
		"/app.js":      http.StatusOK,
		"/missing.css": http.StatusNotFound,
		"/api/unknown": http.StatusNotFound,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s status = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestMetricsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, providers.MockClientName)
	client := api.NewClient(srv.URL)
	ctx := t.Context()

	resp := upload(t, srv.URL, "strip.png", pngBytes(t), map[string]string{"medications": "Warfarin"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	var list ListMetricsResponse
	if err := client.Get(ctx, "/api/metrics", &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 2 || list.Total != 2 {
		t.Fatalf("metrics count = %d, total = %d, want 2", list.Count, list.Total)
	}
	if list.Metrics[0].Stage != metrics.StageInteraction || list.Metrics[1].Stage != metrics.StageAnalysis {
		t.Errorf("stages = %s, %s", list.Metrics[0].Stage, list.Metrics[1].Stage)
	}
	if !list.Metrics[0].Success || list.Metrics[0].Provider != providers.MockClientName {
		t.Errorf("metric = %+v", list.Metrics[0])
	}

	if err := client.Get(ctx, "/api/metrics?stage=analysis&limit=5", &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 {
		t.Errorf("analysis metrics = %d, want 1", list.Count)
	}

	var summary MetricsSummaryResponse
	if err := client.Get(ctx, "/api/metrics/summary?by=stage", &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Summary.Count != 2 || summary.Summary.SuccessCount != 2 {
		t.Errorf("summary = %+v", summary.Summary)
	}
	if len(summary.ByStage) != 2 || summary.ByStage[metrics.StageAnalysis].Count != 1 {
		t.Errorf("by stage = %+v", summary.ByStage)
	}
}

func TestSwaggerEndpoint(t *testing.T) {
	spec := filepath.Join(t.TempDir(), "swagger.json")
	if err := os.WriteFile(spec, []byte(`{"swagger":"2.0","info":{"title":"MediScan API"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ep := &SwaggerEndpoint{SpecPath: spec}
	_, _, h := ep.Route()

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/swagger.json", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "MediScan API") {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}

	missing := &SwaggerEndpoint{SpecPath: filepath.Join(t.TempDir(), "none.json")}
	_, _, h = missing.Route()
	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/swagger.json", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing spec status = %d, want 404", rec.Code)
	}
}
