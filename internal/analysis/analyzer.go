package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/mediscan/internal/metrics"
	"github.com/jackzampolin/mediscan/internal/prompts"
	promptset "github.com/jackzampolin/mediscan/internal/prompts/analysis"
	"github.com/jackzampolin/mediscan/internal/providers"
	"github.com/jackzampolin/mediscan/internal/report"
)

const (
	defaultAttempts   = 2
	defaultRetryDelay = 500 * time.Millisecond
	defaultMaxTokens  = 4096
)

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	Registry            *providers.Registry
	AnalysisProvider    string
	InteractionProvider string // defaults to AnalysisProvider

	// Resolver supplies prompt texts. A nil Resolver uses the embedded prompts.
	Resolver *prompts.Resolver

	Temperature float64
	MaxTokens   int
	Attempts    uint
	RetryDelay  time.Duration

	// Metrics records every provider call. May be nil.
	Metrics *metrics.Recorder

	Extract report.ExtractOptions
	Logger  *slog.Logger
}

// Analyzer asks the configured providers to analyze a tablet image and,
// optionally, its interactions with other medications.
type Analyzer struct {
	cfg      AnalyzerConfig
	resolver *prompts.Resolver
	logger   *slog.Logger
}

// Analysis is the text returned by the providers for one request.
type Analysis struct {
	RawReport       string
	Fields          report.Fields
	InteractionText string
	// InteractionErr is set when the interaction call failed. The analysis
	// itself is still usable.
	InteractionErr error
	Calls          []Call
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if cfg.AnalysisProvider == "" {
		return nil, fmt.Errorf("analysis provider is required")
	}
	if cfg.InteractionProvider == "" {
		cfg.InteractionProvider = cfg.AnalysisProvider
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = prompts.NewResolver(nil, cfg.Logger)
		promptset.RegisterPrompts(resolver)
	}

	return &Analyzer{cfg: cfg, resolver: resolver, logger: cfg.Logger}, nil
}

// Analyze runs the vision call and, when req has medications, the
// interaction call. Only a failed vision call is an error.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) (*Analysis, error) {
	out := &Analysis{}

	raw := req.RawReport
	if strings.TrimSpace(raw) == "" {
		result, err := a.AnalyzeImage(ctx, req.ID, providers.Image{Data: req.Image, MIME: req.ImageMIME})
		if result != nil {
			out.Calls = append(out.Calls, callSummary(result))
		}
		if err != nil {
			return nil, err
		}
		raw = result.Content
	}
	out.RawReport = strings.TrimSpace(raw)
	out.Fields = report.Extract(out.RawReport, a.cfg.Extract)

	out.InteractionText = strings.TrimSpace(req.InteractionText)
	if out.InteractionText != "" || !req.HasMedications() {
		return out, nil
	}

	composition := out.Fields.Content(report.LabelComposition)
	result, err := a.CheckInteractions(ctx, req.ID, composition, req.Medications)
	if result != nil {
		out.Calls = append(out.Calls, callSummary(result))
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("interaction analysis failed", "request_id", req.ID, "error", err)
		out.InteractionErr = err
		return out, nil
	}
	out.InteractionText = strings.TrimSpace(result.Content)
	return out, nil
}

// AnalyzeImage sends the tablet image to the analysis provider.
func (a *Analyzer) AnalyzeImage(ctx context.Context, requestID string, img providers.Image) (*providers.ChatResult, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("no image supplied")
	}
	system, err := a.prompt(promptset.SystemPromptKey, nil)
	if err != nil {
		return nil, err
	}
	instructions, err := a.prompt(promptset.InstructionsKey, nil)
	if err != nil {
		return nil, err
	}
	user, err := a.prompt(promptset.UserPromptKey, nil)
	if err != nil {
		return nil, err
	}

	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: strings.TrimSpace(system) + "\n\n" + strings.TrimSpace(instructions)},
			{Role: "user", Content: strings.TrimSpace(user), Images: []providers.Image{img}},
		},
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		RequestID:   requestID,
	}
	return a.call(ctx, metrics.StageAnalysis, a.cfg.AnalysisProvider, req)
}

// CheckInteractions asks the interaction provider about composition and
// medications. Blank medications skip the call and return nil, nil.
func (a *Analyzer) CheckInteractions(ctx context.Context, requestID, composition, medications string) (*providers.ChatResult, error) {
	if strings.TrimSpace(medications) == "" {
		return nil, nil
	}
	system, err := a.prompt(promptset.InteractionSystemPromptKey, nil)
	if err != nil {
		return nil, err
	}
	query, err := a.prompt(promptset.InteractionQueryKey, promptset.NewInteractionData(composition, medications))
	if err != nil {
		return nil, err
	}

	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: strings.TrimSpace(system)},
			{Role: "user", Content: strings.TrimSpace(query)},
		},
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		RequestID:   requestID,
	}
	return a.call(ctx, metrics.StageInteraction, a.cfg.InteractionProvider, req)
}

func (a *Analyzer) prompt(key string, data any) (string, error) {
	text, err := a.resolver.Execute(key, data)
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", key, err)
	}
	return text, nil
}

// call sends req to the named provider, waiting on its rate limiter and
// retrying transient failures.
func (a *Analyzer) call(ctx context.Context, stage, name string, req *providers.ChatRequest) (*providers.ChatResult, error) {
	opts := metrics.RecordOpts{RequestID: req.RequestID, Stage: stage, Provider: name}
	client, err := a.cfg.Registry.Get(name)
	if err != nil {
		a.cfg.Metrics.RecordLLMCall(opts, nil, err)
		return nil, err
	}
	limiter := a.cfg.Registry.Limiter(name)

	var last *providers.ChatResult
	result, err := retry.DoWithData(
		func() (*providers.ChatResult, error) {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return nil, retry.Unrecoverable(err)
				}
			}
			res, err := client.Chat(ctx, req)
			if res != nil {
				last = res
			}
			var statusErr *providers.StatusError
			if limiter != nil && errors.As(err, &statusErr) && errors.Is(err, providers.ErrRateLimited) {
				limiter.Record429(statusErr.RetryAfter)
			}
			return res, err
		},
		retry.Context(ctx),
		retry.Attempts(a.cfg.Attempts),
		retry.Delay(a.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(providers.IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("provider call failed, retrying",
				"request_id", req.RequestID,
				"provider", name,
				"attempt", n+1,
				"error", err)
		}),
	)
	if err != nil {
		a.cfg.Metrics.RecordLLMCall(opts, last, err)
		return last, fmt.Errorf("%s: %w", name, err)
	}
	a.cfg.Metrics.RecordLLMCall(opts, result, nil)

	a.logger.Debug("provider call complete",
		"request_id", req.RequestID,
		"provider", name,
		"model", result.ModelUsed,
		"tokens", result.TotalTokens,
		"duration", result.ExecutionTime)
	return result, nil
}

func callSummary(r *providers.ChatResult) Call {
	return Call{
		Provider:     r.Provider,
		Model:        r.ModelUsed,
		Attempts:     r.Attempts,
		PromptTokens: r.PromptTokens,
		OutputTokens: r.CompletionTokens,
		CostUSD:      r.CostUSD,
		Duration:     r.ExecutionTime,
	}
}
