package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/report"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Providers["openrouter"].APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if cfg.Defaults.AnalysisProvider != "openrouter" {
		t.Errorf("AnalysisProvider = %q", cfg.Defaults.AnalysisProvider)
	}
	if f, err := cfg.ReportFormat(); err != nil || f != render.FormatPDF {
		t.Errorf("ReportFormat() = %q, %v", f, err)
	}
	if cfg.MaxUploadBytes() != 10<<20 {
		t.Errorf("MaxUploadBytes() = %d", cfg.MaxUploadBytes())
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")
		if got := ResolveEnvVars("${TEST_API_KEY}"); got != "secret123" {
			t.Errorf("expected secret123, got %s", got)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		if got := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}"); got != "" {
			t.Errorf("expected empty string, got %s", got)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		if got := ResolveEnvVars("literal-value"); got != "literal-value" {
			t.Errorf("expected literal-value, got %s", got)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
providers:
  vision:
    type: openrouter
    model: openai/gpt-4o
    api_key: direct-key
    rate_limit: 20
    timeout_seconds: 30
    enabled: true
defaults:
  analysis_provider: vision
report:
  format: html
  unknown_labels: drop
  label_order: ["Composition", "Side Effects"]
`)
		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()

		if _, ok := cfg.Providers["openrouter"]; ok {
			t.Error("configured providers should replace the defaults")
		}
		reg := cfg.ToProviderRegistryConfig().LLMProviders["vision"]
		if reg.APIKey != "direct-key" || reg.RateLimit != 20 || reg.Timeout != 30*time.Second {
			t.Errorf("unexpected registry config: %+v", reg)
		}
		if f, _ := cfg.ReportFormat(); f != render.FormatHTML {
			t.Errorf("ReportFormat() = %q", f)
		}
		if cfg.ExtractOptions().UnknownLabels != report.DropUnknown {
			t.Error("expected DropUnknown")
		}
		style := cfg.ReportStyle()
		if len(style.LabelOrder) != 2 || style.Title != render.DefaultStyle().Title {
			t.Errorf("unexpected style: %+v", style)
		}
		// Unset sections keep their defaults.
		if cfg.Server.Port != "8080" || cfg.Report.FilenamePrefix != "mediscan_analysis" {
			t.Errorf("defaults lost: %+v %+v", cfg.Server, cfg.Report)
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("MEDISCAN_SERVER_PORT", "9191")
		t.Setenv("MEDISCAN_REPORT_FORMAT", "markdown")
		mgr, err := NewManager(writeConfig(t, "server:\n  host: 0.0.0.0\n"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Server.Port != "9191" || cfg.Server.Host != "0.0.0.0" {
			t.Errorf("Server = %+v", cfg.Server)
		}
		if cfg.Report.Format != "markdown" {
			t.Errorf("Report.Format = %q", cfg.Report.Format)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		if _, err := NewManager(writeConfig(t, "providers: [unclosed")); err == nil {
			t.Error("expected error for malformed yaml")
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# MediScan configuration") {
		t.Error("missing header")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("default config does not load: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Providers["openrouter"].Model != "google/gemini-2.5-flash" {
		t.Errorf("openrouter model = %q", cfg.Providers["openrouter"].Model)
	}
	if !cfg.Providers["mock"].Enabled || cfg.Providers["openai"].Enabled {
		t.Errorf("unexpected enabled flags: %+v", cfg.Providers)
	}
}

func TestConfig_Masked(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.Providers["openai"]
	p.APIKey = "sk-1234567890abcdef"
	cfg.Providers["openai"] = p

	masked := cfg.Masked()
	if got := masked.Providers["openai"].APIKey; got != "sk-1****cdef" {
		t.Errorf("masked key = %q", got)
	}
	if got := masked.Providers["openrouter"].APIKey; got != "${OPENROUTER_API_KEY}" {
		t.Errorf("env reference should be kept, got %q", got)
	}
	if cfg.Providers["openai"].APIKey != "sk-1234567890abcdef" {
		t.Error("Masked modified the original")
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"report.format", "providers.open-router.api_key"} {
		if err := ValidateKey(key); err != nil {
			t.Errorf("ValidateKey(%q) = %v", key, err)
		}
	}
	for _, key := range []string{"", ".report", "report.", "report format", "report/format"} {
		if err := ValidateKey(key); err == nil {
			t.Errorf("ValidateKey(%q) should fail", key)
		}
	}
}

func TestManager_Set(t *testing.T) {
	path := writeConfig(t, "report:\n  format: pdf\n")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var calls atomic.Int32
	mgr.OnChange(func(*Config) { calls.Add(1) })

	if err := mgr.Set("report.format", "html"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if mgr.Get().Report.Format != "html" || calls.Load() != 1 {
		t.Errorf("Set not applied: format=%q calls=%d", mgr.Get().Report.Format, calls.Load())
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Get().Report.Format != "html" {
		t.Error("Set was not persisted")
	}

	if err := mgr.Set("bad key", 1); err == nil {
		t.Error("expected invalid key error")
	}
}

func TestManager_WatchConfig(t *testing.T) {
	path := writeConfig(t, "report:\n  title: Initial\n")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if mgr.Get().Report.Title != "Initial" {
		t.Fatalf("initial title = %q", mgr.Get().Report.Title)
	}

	var callbackCount atomic.Int32
	var lastTitle atomic.Value
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastTitle.Store(cfg.Report.Title)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("report:\n  title: Updated\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastTitle.Load().(string); v == "Updated" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Report.Title; got != "Updated" {
		t.Errorf("config not updated: got %q", got)
	}
}
