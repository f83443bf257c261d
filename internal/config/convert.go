package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jackzampolin/mediscan/internal/providers"
	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/report"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ToProviderRegistryConfig converts the config for providers.Registry,
// resolving ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}
	for name, p := range c.Providers {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:       p.Type,
			Model:      p.Model,
			APIKey:     ResolveEnvVars(p.APIKey),
			BaseURL:    p.BaseURL,
			RateLimit:  p.RateLimit,
			Timeout:    time.Duration(p.TimeoutSeconds) * time.Second,
			MaxRetries: p.MaxRetries,
			Enabled:    p.Enabled,
		}
	}
	return cfg
}

// ReportStyle returns the render style described by the report section.
func (c *Config) ReportStyle() render.Style {
	style := render.DefaultStyle()
	r := c.Report
	if r.Title != "" {
		style.Title = r.Title
	}
	if r.Disclaimer != "" {
		style.Disclaimer = r.Disclaimer
	}
	if r.Footer != "" {
		style.Footer = r.Footer
	}
	if r.ImageMaxWidthPt > 0 {
		style.ImageMaxWidth = r.ImageMaxWidthPt
	}
	if r.ImageMaxHeightPt > 0 {
		style.ImageMaxHeight = r.ImageMaxHeightPt
	}
	style.SafetyBadges = r.SafetyBadges
	style.ItemizeLists = r.ItemizeLists
	style.LabelOrder = append([]string(nil), r.LabelOrder...)
	return style
}

// ExtractOptions returns the section extractor options.
func (c *Config) ExtractOptions() report.ExtractOptions {
	return report.ExtractOptions{
		Vocabulary:       report.DefaultVocabulary(),
		UnknownLabels:    report.ParseUnknownLabelPolicy(c.Report.UnknownLabels),
		LineStartMarkers: c.Report.LineStartMarkers,
	}
}

// ReportFormat returns the configured output format, defaulting to PDF.
func (c *Config) ReportFormat() (render.Format, error) {
	if strings.TrimSpace(c.Report.Format) == "" {
		return render.FormatPDF, nil
	}
	f, err := render.ParseFormat(c.Report.Format)
	if err != nil {
		return "", fmt.Errorf("report.format: %w", err)
	}
	return f, nil
}

// SessionTTL returns the server session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionTTLMinutes) * time.Minute
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.Server.MaxUploadMB
	if mb <= 0 {
		mb = DefaultConfig().Server.MaxUploadMB
	}
	return int64(mb) << 20
}

// Masked returns a copy with provider API keys hidden. ${VAR} references are
// left as written since they hold no secret.
func (c *Config) Masked() *Config {
	out := *c
	out.Providers = make(map[string]ProviderCfg, len(c.Providers))
	for name, p := range c.Providers {
		if p.APIKey != "" && !envVarPattern.MatchString(p.APIKey) {
			p.APIKey = maskSecret(p.APIKey)
		}
		out.Providers[name] = p
	}
	return &out
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
