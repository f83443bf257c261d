package endpoints

import (
	"github.com/jackzampolin/mediscan/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// AnalysisProvider is the provider /ready requires.
	AnalysisProvider string
	// SwaggerSpec overrides the swagger.json path.
	SwaggerSpec string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{AnalysisProvider: cfg.AnalysisProvider},
		&StatusEndpoint{},

		// Analysis endpoints
		&CreateAnalysisEndpoint{},
		&GetAnalysisEndpoint{},
		&DeleteAnalysisEndpoint{},
		&AnalysisReportEndpoint{},
		&RenderReportEndpoint{},

		// Core operations
		&ExtractEndpoint{},
		&TokenizeEndpoint{},
		&ClassifyEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&SetPromptEndpoint{},
		&ResetPromptEndpoint{},

		// Metrics endpoints
		&ListMetricsEndpoint{},
		&MetricsSummaryEndpoint{},

		// Docs
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpec},

		// Static files (must be last, catches all unmatched routes)
		&StaticEndpoint{},
	}
}
