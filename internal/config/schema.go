package config

import "github.com/jackzampolin/mediscan/internal/render"

// Config holds MediScan configuration.
// Stored at: ~/.mediscan/config.yaml
type Config struct {
	Providers  map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults   DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Report     ReportCfg              `mapstructure:"report" yaml:"report"`
	Server     ServerCfg              `mapstructure:"server" yaml:"server"`
	PromptsDir string                 `mapstructure:"prompts_dir" yaml:"prompts_dir,omitempty"` // Prompt override directory
}

// ProviderCfg configures an LLM provider.
type ProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type"`                     // "openrouter", "openai", "mock"
	Model          string `mapstructure:"model" yaml:"model"`                   // Model name
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`               // API key (supports ${ENV_VAR} syntax)
	BaseURL        string `mapstructure:"base_url" yaml:"base_url,omitempty"`   // Override API endpoint
	RateLimit      int    `mapstructure:"rate_limit" yaml:"rate_limit"`         // Requests per minute
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	AnalysisProvider    string `mapstructure:"analysis_provider" yaml:"analysis_provider"`
	InteractionProvider string `mapstructure:"interaction_provider" yaml:"interaction_provider"`
}

// ReportCfg configures report extraction and rendering.
type ReportCfg struct {
	Title            string   `mapstructure:"title" yaml:"title"`
	Disclaimer       string   `mapstructure:"disclaimer" yaml:"disclaimer"`
	Footer           string   `mapstructure:"footer" yaml:"footer"`
	Format           string   `mapstructure:"format" yaml:"format"`                 // pdf, html, markdown
	UnknownLabels    string   `mapstructure:"unknown_labels" yaml:"unknown_labels"` // keep, drop
	LineStartMarkers bool     `mapstructure:"line_start_markers" yaml:"line_start_markers"`
	SafetyBadges     bool     `mapstructure:"safety_badges" yaml:"safety_badges"`
	ItemizeLists     bool     `mapstructure:"itemize_lists" yaml:"itemize_lists"`
	LabelOrder       []string `mapstructure:"label_order" yaml:"label_order,omitempty"`
	ImageMaxWidthPt  float64  `mapstructure:"image_max_width_pt" yaml:"image_max_width_pt"`
	ImageMaxHeightPt float64  `mapstructure:"image_max_height_pt" yaml:"image_max_height_pt"`
	FilenamePrefix   string   `mapstructure:"filename_prefix" yaml:"filename_prefix"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host              string `mapstructure:"host" yaml:"host"`
	Port              string `mapstructure:"port" yaml:"port"`
	MaxUploadMB       int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes" yaml:"session_ttl_minutes"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	style := render.DefaultStyle()
	return &Config{
		Providers: map[string]ProviderCfg{
			"openrouter": {
				Type:           "openrouter",
				Model:          "google/gemini-2.5-flash",
				APIKey:         "${OPENROUTER_API_KEY}",
				RateLimit:      60,
				TimeoutSeconds: 120,
				MaxRetries:     3,
				Enabled:        true,
			},
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      60,
				TimeoutSeconds: 120,
				MaxRetries:     3,
				Enabled:        false,
			},
			"mock": {
				Type:    "mock",
				Enabled: true,
			},
		},
		Defaults: DefaultsCfg{
			AnalysisProvider:    "openrouter",
			InteractionProvider: "openrouter",
		},
		Report: ReportCfg{
			Title:            style.Title,
			Disclaimer:       style.Disclaimer,
			Footer:           style.Footer,
			Format:           "pdf",
			UnknownLabels:    "keep",
			SafetyBadges:     true,
			ImageMaxWidthPt:  style.ImageMaxWidth,
			ImageMaxHeightPt: style.ImageMaxHeight,
			FilenamePrefix:   "mediscan_analysis",
		},
		Server: ServerCfg{
			Host:              "127.0.0.1",
			Port:              "8080",
			MaxUploadMB:       10,
			SessionTTLMinutes: 30,
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
