package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/config"
	"github.com/jackzampolin/mediscan/internal/home"
	"github.com/jackzampolin/mediscan/internal/providers"
	"github.com/jackzampolin/mediscan/internal/server/endpoints"
)

const mockConfig = `
providers:
  mock:
    type: mock
    enabled: true
defaults:
  analysis_provider: mock
report:
  format: markdown
server:
  host: 127.0.0.1
  port: "0"
`

func newManager(t *testing.T, content string) *config.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr
}

func TestNew_DefaultConfig(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	srv, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", srv.Addr())
	}
	if srv.Registry().Has(providers.OpenRouterName) {
		t.Error("openrouter registered without an API key")
	}
	if !srv.Registry().Has(providers.MockClientName) {
		t.Error("mock provider not registered")
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503 without the analysis provider", resp.StatusCode)
	}
}

func TestNew_InvalidReportFormat(t *testing.T) {
	mgr := newManager(t, "report:\n  format: docx\n")
	if _, err := New(Config{ConfigManager: mgr}); err == nil {
		t.Error("expected error for unknown report format")
	}
}

func TestServer_Handler(t *testing.T) {
	dir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(Config{ConfigManager: newManager(t, mockConfig), Home: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	client := api.NewClient(ts.URL)
	ctx := t.Context()

	var status endpoints.StatusResponse
	if err := client.Get(ctx, "/api/status", &status); err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Version == "" || len(status.Providers) != 1 {
		t.Errorf("status = %+v", status)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	var created endpoints.AnalysisResponse
	err = client.PostMultipart(ctx, "/api/analyses", nil,
		[]api.FilePart{{Field: "image", Filename: "strip.png", Data: buf.Bytes()}}, &created)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if created.Format != "markdown" || len(created.Fields) != 11 {
		t.Errorf("format = %q, fields = %d", created.Format, len(created.Fields))
	}
	if srv.Sessions().Len() != 1 {
		t.Errorf("sessions = %d, want 1", srv.Sessions().Len())
	}

	d, err := client.GetFile(ctx, created.ReportURL)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.HasSuffix(d.Filename, ".md") || !bytes.Contains(d.Data, []byte("Paracetamol")) {
		t.Errorf("download %q:\n%s", d.Filename, d.Data)
	}

	// Prompt overrides land in the home prompts directory.
	err = client.Put(ctx, "/api/prompts/analysis.user", endpoints.SetPromptRequest{Text: "Describe this tablet."}, nil)
	if err != nil {
		t.Fatalf("set prompt: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir.PromptsPath(), "analysis.user.tmpl")); err != nil {
		t.Errorf("override file missing: %v", err)
	}
}

func TestServer_ConfigReload(t *testing.T) {
	mgr := newManager(t, mockConfig)
	srv, err := New(Config{ConfigManager: mgr})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := mgr.Set("providers.mock.enabled", false); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if srv.Registry().Has(providers.MockClientName) {
		t.Error("disabled provider still registered after reload")
	}
}

func TestServer_Lifecycle(t *testing.T) {
	srv, err := New(Config{ConfigManager: newManager(t, mockConfig)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !srv.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !srv.IsRunning() {
		cancel()
		t.Fatal("server did not start")
	}

	client := api.NewClient("http://" + srv.Addr())
	if err := client.WaitReady(ctx, 20, 50*time.Millisecond); err != nil {
		cancel()
		t.Fatalf("WaitReady() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	var health endpoints.HealthResponse
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health.Status != "ok" {
		t.Errorf("health = %+v", health)
	}

	if err := srv.Start(ctx); err == nil {
		t.Error("second Start() should fail while running")
	}

	cancel()
	select {
	case err := <-serverErr:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(35 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}
