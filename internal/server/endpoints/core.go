package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/report"
	"github.com/jackzampolin/mediscan/internal/svcctx"
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

// ExtractRequest is the body of POST /api/extract.
type ExtractRequest struct {
	Text             string `json:"text"`
	UnknownLabels    string `json:"unknown_labels,omitempty"`
	LineStartMarkers *bool  `json:"line_start_markers,omitempty"`
}

// ExtractResponse lists the extracted sections.
type ExtractResponse struct {
	Fields   []FieldResponse `json:"fields" yaml:"fields"`
	Degraded bool            `json:"degraded" yaml:"degraded"`
}

// ExtractEndpoint handles POST /api/extract.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Split report text into labelled sections
//	@Tags		core
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ExtractRequest	true	"Report text"
//	@Success	200		{object}	ExtractResponse
//	@Router		/api/extract [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var body ExtractRequest
	if !decodeValidated(w, r, nil, &body) {
		return
	}
	opts := svcctx.ExtractOptionsFrom(r.Context())
	if body.UnknownLabels != "" {
		opts.UnknownLabels = report.ParseUnknownLabelPolicy(body.UnknownLabels)
	}
	if body.LineStartMarkers != nil {
		opts.LineStartMarkers = *body.LineStartMarkers
	}

	fields := report.Extract(body.Text, opts)
	writeJSON(w, http.StatusOK, ExtractResponse{Fields: NewFieldResponses(fields), Degraded: fields.Degraded()})
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <report.txt|->",
		Short: "Extract labelled sections on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0])
			if err != nil {
				return err
			}
			var resp ExtractResponse
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/extract", ExtractRequest{Text: text}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// TokenizeRequest is the body of POST /api/tokenize.
type TokenizeRequest struct {
	Content string `json:"content"`
}

// TokenizeResponse is the item list.
type TokenizeResponse struct {
	Items []string `json:"items" yaml:"items"`
}

// TokenizeEndpoint handles POST /api/tokenize.
type TokenizeEndpoint struct{}

func (e *TokenizeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/tokenize", e.handler
}

func (e *TokenizeEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Split section content into list items
//	@Tags		core
//	@Accept		json
//	@Produce	json
//	@Param		request	body		TokenizeRequest	true	"Section content"
//	@Success	200		{object}	TokenizeResponse
//	@Router		/api/tokenize [post]
func (e *TokenizeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var body TokenizeRequest
	if !decodeValidated(w, r, nil, &body) {
		return
	}
	writeJSON(w, http.StatusOK, TokenizeResponse{Items: report.Tokenize(body.Content)})
}

func (e *TokenizeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize <content>",
		Short: "Split content into list items on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp TokenizeResponse
			body := TokenizeRequest{Content: strings.Join(args, " ")}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/tokenize", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ClassifyRequest is the body of POST /api/classify. Mode defaults to
// safety, or is inferred from Label when one is given.
type ClassifyRequest struct {
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
	Label   string `json:"label,omitempty"`
}

// ClassifyResponse is the assigned tag and its badge text.
type ClassifyResponse struct {
	Mode  string `json:"mode" yaml:"mode"`
	Tag   string `json:"tag" yaml:"tag"`
	Badge string `json:"badge" yaml:"badge"`
}

// ClassifyEndpoint handles POST /api/classify.
type ClassifyEndpoint struct{}

func (e *ClassifyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/classify", e.handler
}

func (e *ClassifyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Classify section content by severity
//	@Tags		core
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ClassifyRequest	true	"Content and mode"
//	@Success	200		{object}	ClassifyResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/api/classify [post]
func (e *ClassifyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var body ClassifyRequest
	if !decodeValidated(w, r, classifyRequestSchema, &body) {
		return
	}
	writeJSON(w, http.StatusOK, Classify(body))
}

// Classify runs the severity classifier for req.
func Classify(req ClassifyRequest) ClassifyResponse {
	mode := report.ModeSafety
	if m, ok := report.ParseMode(req.Mode); ok {
		mode = m
	} else if req.Label != "" {
		if label, _ := report.DefaultVocabulary().Lookup(req.Label); label == report.LabelInteractionSummary {
			mode = report.ModeInteraction
		}
	}

	sev := report.Classify(req.Content, mode)
	resp := ClassifyResponse{Mode: string(mode)}
	if mode == report.ModeInteraction {
		resp.Tag, resp.Badge = string(sev.Interaction), sev.Interaction.Badge()
	} else {
		resp.Tag, resp.Badge = string(sev.Safety), sev.Safety.Badge()
	}
	return resp
}

func (e *ClassifyEndpoint) Command(getServerURL func() string) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "classify <content>",
		Short: "Classify content on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ClassifyResponse
			body := ClassifyRequest{Content: strings.Join(args, " "), Mode: mode}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/classify", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "safety", "Classification mode (safety, interaction)")
	return cmd
}
