// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/mediscan/internal/analysis"
	"github.com/jackzampolin/mediscan/internal/home"
	"github.com/jackzampolin/mediscan/internal/metrics"
	"github.com/jackzampolin/mediscan/internal/prompts"
	"github.com/jackzampolin/mediscan/internal/providers"
	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/report"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Registry       *providers.Registry
	Pipeline       *analysis.Pipeline
	Sessions       *analysis.SessionStore
	PromptResolver *prompts.Resolver
	Metrics        *metrics.Recorder
	Extract        report.ExtractOptions
	DefaultFormat  render.Format
	MaxUploadBytes int64
	Logger         *slog.Logger
	Home           *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// PipelineFrom extracts the analysis pipeline from context.
func PipelineFrom(ctx context.Context) *analysis.Pipeline {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pipeline
	}
	return nil
}

// SessionsFrom extracts the session store from context.
func SessionsFrom(ctx context.Context) *analysis.SessionStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.Sessions
	}
	return nil
}

// PromptResolverFrom extracts the prompt resolver from context.
func PromptResolverFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.PromptResolver
	}
	return nil
}

// MetricsFrom extracts the metrics recorder from context.
func MetricsFrom(ctx context.Context) *metrics.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Metrics
	}
	return nil
}

// ExtractOptionsFrom returns the extractor options, or the zero value
// (default vocabulary, keep unknown labels).
func ExtractOptionsFrom(ctx context.Context) report.ExtractOptions {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extract
	}
	return report.ExtractOptions{}
}

// DefaultFormatFrom returns the configured report format, or PDF.
func DefaultFormatFrom(ctx context.Context) render.Format {
	if s := ServicesFrom(ctx); s != nil && s.DefaultFormat != "" {
		return s.DefaultFormat
	}
	return render.FormatPDF
}

// MaxUploadBytesFrom returns the upload cap, or 10 MiB.
func MaxUploadBytesFrom(ctx context.Context) int64 {
	if s := ServicesFrom(ctx); s != nil && s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return 10 << 20
}

// LoggerFrom extracts the logger from context, falling back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
