package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/analysis"
	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/config"
	"github.com/jackzampolin/mediscan/internal/providers"
	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/server"
	"github.com/jackzampolin/mediscan/internal/server/endpoints"
)

// localResult is what analyze and render print.
type localResult struct {
	endpoints.AnalysisResponse `yaml:",inline"`
	Path                       string `json:"path,omitempty" yaml:"path,omitempty"`
}

// localPipeline builds the pipeline described by the config file.
func localPipeline() (*server.Components, *config.Config, error) {
	mgr, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	conf := mgr.Get()
	h, err := getHome()
	if err != nil {
		return nil, nil, err
	}

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.Reload(conf.ToProviderRegistryConfig())

	comps, err := server.Assemble(conf, registry, h, logger)
	if err != nil {
		return nil, nil, err
	}
	return comps, conf, nil
}

// runLocal runs req, writes the document to out (or the home reports
// directory when out is empty) and prints the result.
func runLocal(cmd *cobra.Command, comps *server.Components, req *analysis.Request, out string) error {
	if req.Format == "" {
		req.Format = comps.Format
	}
	res, err := comps.Pipeline.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	result := localResult{AnalysisResponse: endpoints.NewAnalysisResponse(res, 0)}
	result.ReportURL = ""
	if res.Rendered() {
		path, err := saveReport(res, out)
		if err != nil {
			return err
		}
		result.Path = path
		logger.Info("report written", "path", path, "bytes", len(res.Output.Bytes))
	}
	if err := api.Output(result); err != nil {
		return err
	}
	if res.RenderError != "" {
		return fmt.Errorf("render failed: %s", res.RenderError)
	}
	return nil
}

func saveReport(res *analysis.Result, out string) (string, error) {
	if out == "-" {
		_, err := os.Stdout.Write(res.Output.Bytes)
		return "", err
	}
	if out == "" {
		h, err := getHome()
		if err != nil {
			return "", err
		}
		out = filepath.Join(h.ReportsPath(), res.Filename)
		if err := h.SaveReport(out, res.Output.Bytes); err != nil {
			return "", err
		}
		return out, nil
	}
	if err := os.WriteFile(out, res.Output.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}

func parseFormatFlag(v string) (render.Format, error) {
	if v == "" {
		return "", nil
	}
	return render.ParseFormat(v)
}

var (
	analyzeMeds   string
	analyzeOut    string
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze a tablet image and write a report",
	Long: `Analyze a tablet image with the configured vision provider, then
extract, classify and render the report locally.

The report is written to --out, or to the reports directory under the
MediScan home when --out is not given. Use --out - to write it to stdout.

Examples:
  mediscan analyze strip.jpg
  mediscan analyze strip.jpg --meds "Warfarin, Aspirin" --format html
  mediscan analyze strip.png --out report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		mime, ok := endpoints.ImageMIME(path)
		if !ok {
			return fmt.Errorf("unsupported image type %q (use jpg, jpeg, png or webp)", filepath.Ext(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		format, err := parseFormatFlag(analyzeFormat)
		if err != nil {
			return err
		}

		comps, conf, err := localPipeline()
		if err != nil {
			return err
		}
		if int64(len(data)) > conf.MaxUploadBytes() {
			return fmt.Errorf("image exceeds %d MB", conf.Server.MaxUploadMB)
		}

		req := analysis.NewRequest(data, mime, analyzeMeds)
		req.Format = format
		return runLocal(cmd, comps, req, analyzeOut)
	},
}

var (
	renderImage       string
	renderInteraction string
	renderMeds        string
	renderOut         string
	renderFormat      string
)

var renderCmd = &cobra.Command{
	Use:   "render <report.txt|->",
	Short: "Render existing report text without calling a provider",
	Long: `Render labelled report text (as produced by the vision model) to a
document. Pass --interaction with a file holding an interaction analysis to
include the interaction section.

Examples:
  mediscan render report.txt --image strip.jpg --out report.pdf
  mediscan render report.txt --interaction ix.txt --meds Warfarin --format markdown --out -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(args[0])
		if err != nil {
			return err
		}
		format, err := parseFormatFlag(renderFormat)
		if err != nil {
			return err
		}
		req := &analysis.Request{RawReport: raw, Medications: renderMeds, Format: format}

		if renderImage != "" {
			mime, ok := endpoints.ImageMIME(renderImage)
			if !ok {
				return fmt.Errorf("unsupported image type %q", filepath.Ext(renderImage))
			}
			if req.Image, err = os.ReadFile(renderImage); err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			req.ImageMIME = mime
		}
		if renderInteraction != "" {
			text, err := os.ReadFile(renderInteraction)
			if err != nil {
				return fmt.Errorf("failed to read interaction: %w", err)
			}
			req.InteractionText = string(text)
		}

		comps, _, err := localPipeline()
		if err != nil {
			return err
		}
		return runLocal(cmd, comps, req, renderOut)
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <report.pdf>",
	Short: "Validate a rendered PDF and print its page count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		info, err := render.VerifyPDF(data)
		if err != nil {
			return err
		}
		return api.Output(info)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMeds, "meds", "", "Additional medications to check for interactions")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Output path, or - for stdout (default: home reports directory)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "Report format: pdf, html or markdown (default: report.format)")

	renderCmd.Flags().StringVar(&renderImage, "image", "", "Tablet image to embed")
	renderCmd.Flags().StringVar(&renderInteraction, "interaction", "", "File holding interaction analysis text")
	renderCmd.Flags().StringVar(&renderMeds, "meds", "", "Medications the interaction analysis covers")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "Output path, or - for stdout (default: home reports directory)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "", "Report format: pdf, html or markdown (default: report.format)")

	rootCmd.AddCommand(analyzeCmd, renderCmd, inspectCmd)
}
