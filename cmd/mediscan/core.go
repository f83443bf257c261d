package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/report"
	"github.com/jackzampolin/mediscan/internal/server/endpoints"
)

// readInput returns the contents of path, or stdin for "-".
func readInput(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

var (
	extractUnknown   string
	extractLineStart bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <report.txt|->",
	Short: "Split report text into labelled sections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(args[0])
		if err != nil {
			return err
		}
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		opts := mgr.Get().ExtractOptions()
		if cmd.Flags().Changed("unknown-labels") {
			opts.UnknownLabels = report.ParseUnknownLabelPolicy(extractUnknown)
		}
		if cmd.Flags().Changed("line-start") {
			opts.LineStartMarkers = extractLineStart
		}

		fields := report.Extract(raw, opts)
		if fields.Degraded() {
			logger.Warn("no section markers found", "bytes", len(raw))
		}
		return api.Output(endpoints.ExtractResponse{
			Fields:   endpoints.NewFieldResponses(fields),
			Degraded: fields.Degraded(),
		})
	},
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <content>",
	Short: "Split section content into list items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items := report.Tokenize(strings.Join(args, " "))
		return api.Output(endpoints.TokenizeResponse{Items: items})
	},
}

var classifyMode string

var classifyCmd = &cobra.Command{
	Use:   "classify <content>",
	Short: "Classify section content by severity",
	Long: `Classify section content.

Safety mode tags content avoid, caution, safe or unclassified. Interaction
mode tags an interaction narrative severe, moderate, minor or none_low.

Examples:
  mediscan classify "Avoid alcohol while taking this medication."
  mediscan classify --mode interaction "Major interaction: bleeding risk."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := report.ParseMode(classifyMode); !ok {
			return fmt.Errorf("invalid --mode %q (want safety or interaction)", classifyMode)
		}
		return api.Output(endpoints.Classify(endpoints.ClassifyRequest{
			Content: strings.Join(args, " "),
			Mode:    classifyMode,
		}))
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractUnknown, "unknown-labels", "keep", "Unknown label policy: keep or drop (default: report.unknown_labels)")
	extractCmd.Flags().BoolVar(&extractLineStart, "line-start", false, "Only recognize markers at the start of a line (default: report.line_start_markers)")
	classifyCmd.Flags().StringVar(&classifyMode, "mode", "safety", "Classification mode: safety or interaction")

	rootCmd.AddCommand(extractCmd, tokenizeCmd, classifyCmd)
}
