package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/report"
)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// Analyzer may be nil for pipelines that only render supplied reports.
	Analyzer       *Analyzer
	Synthesizer    *render.Synthesizer
	Extract        report.ExtractOptions
	FilenamePrefix string
	Logger         *slog.Logger
}

// Pipeline runs Analyze, Extract, Classify and Synthesize in order.
type Pipeline struct {
	analyzer *Analyzer
	synth    *render.Synthesizer
	extract  report.ExtractOptions
	prefix   string
	logger   *slog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	synth := cfg.Synthesizer
	if synth == nil {
		synth = render.NewSynthesizer(render.DefaultStyle(), logger)
	}
	prefix := cfg.FilenamePrefix
	if prefix == "" {
		prefix = render.DefaultFilenamePrefix
	}
	return &Pipeline{
		analyzer: cfg.Analyzer,
		synth:    synth,
		extract:  cfg.Extract,
		prefix:   prefix,
		logger:   logger,
	}
}

// ErrNoAnalyzer is returned when a request needs a provider call but the
// pipeline was built without an Analyzer.
var ErrNoAnalyzer = errors.New("no analyzer configured")

// Run executes req. The returned error covers invalid requests and failed
// vision calls only. A rendering failure is recorded in Result.RenderError
// with everything before it intact.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	req.normalize()
	logger := p.logger.With("request_id", req.ID)

	analysis, err := p.analyze(ctx, req)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		return nil, fmt.Errorf("analyze: %w", err)
	}

	res := &Result{
		RequestID: req.ID,
		RawReport: analysis.RawReport,
		Fields:    analysis.Fields,
		Degraded:  analysis.Fields.Degraded(),
		Safety:    classifySafety(analysis.Fields),
		Format:    req.Format,
		Calls:     analysis.Calls,
		CreatedAt: req.CreatedAt,
	}
	if analysis.InteractionErr != nil {
		res.Warnings = append(res.Warnings, "interaction analysis unavailable: "+analysis.InteractionErr.Error())
	}
	if analysis.InteractionText != "" {
		res.Interaction = &render.Interaction{
			Medications: req.Medications,
			Text:        analysis.InteractionText,
			Tier:        report.ClassifyInteraction(analysis.InteractionText),
		}
	}
	if res.Degraded {
		logger.Warn("no labelled sections found, rendering raw report", "bytes", len(res.RawReport))
	}

	doc := render.NewDocument(render.DocumentInput{
		Fields:      res.Fields,
		Image:       req.Image,
		RawText:     res.RawReport,
		Interaction: res.Interaction,
		GeneratedAt: req.CreatedAt,
	})
	out, err := p.synth.Synthesize(ctx, doc, req.Format)
	if err != nil {
		logger.Warn("report rendering failed", "format", req.Format, "error", err)
		res.RenderError = err.Error()
	} else {
		res.Output = out
		res.Filename = render.Filename(p.prefix, req.CreatedAt, out.Format)
		for _, w := range out.Warnings {
			res.Warnings = append(res.Warnings, w.Error())
		}
	}

	res.Duration = time.Since(start)
	logger.Info("analysis complete",
		"fields", len(res.Fields),
		"degraded", res.Degraded,
		"interaction", res.Interaction != nil,
		"rendered", res.Rendered(),
		"duration", res.Duration)
	return res, nil
}

func (p *Pipeline) analyze(ctx context.Context, req *Request) (*Analysis, error) {
	needsVision := req.RawReport == ""
	needsInteraction := req.HasMedications() && req.InteractionText == ""
	if p.analyzer != nil {
		return p.analyzer.Analyze(ctx, req)
	}
	if needsVision {
		return nil, ErrNoAnalyzer
	}
	a := &Analysis{
		RawReport:       req.RawReport,
		Fields:          report.Extract(req.RawReport, p.extract),
		InteractionText: req.InteractionText,
	}
	if needsInteraction {
		a.InteractionErr = ErrNoAnalyzer
	}
	return a, nil
}

// classifySafety tags every safety section in fields.
func classifySafety(fields report.Fields) map[string]report.SafetyTag {
	tags := make(map[string]report.SafetyTag)
	for _, f := range fields {
		if !report.IsSafetyLabel(f.Label) {
			continue
		}
		if _, seen := tags[f.Label]; !seen {
			tags[f.Label] = report.ClassifySafety(f.Content)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
