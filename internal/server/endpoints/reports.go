package endpoints

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/analysis"
	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/svcctx"
)

// RenderReportRequest is the body of POST /api/reports.
type RenderReportRequest struct {
	RawReport   string              `json:"raw_report"`
	Format      string              `json:"format,omitempty"`
	ImageBase64 string              `json:"image_base64,omitempty"`
	Interaction *InteractionPayload `json:"interaction,omitempty"`
}

// InteractionPayload is a caller-supplied interaction analysis.
type InteractionPayload struct {
	Medications string `json:"medications,omitempty"`
	Text        string `json:"text"`
}

// RenderReportEndpoint handles POST /api/reports. It renders a report the
// caller already has, without calling any provider.
type RenderReportEndpoint struct{}

func (e *RenderReportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/reports", e.handler
}

func (e *RenderReportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Render a report
//	@Description	Render labelled report text (and optional interaction analysis) to a document
//	@Tags			reports
//	@Accept			json
//	@Produce		application/pdf,text/html,text/markdown
//	@Param			request	body		RenderReportRequest	true	"Report to render"
//	@Success		200		{file}		binary
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/reports [post]
func (e *RenderReportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var body RenderReportRequest
	if !decodeValidated(w, r, reportRequestSchema, &body) {
		return
	}
	if strings.TrimSpace(body.RawReport) == "" {
		writeError(w, http.StatusBadRequest, "raw_report is blank")
		return
	}
	ctx := r.Context()

	format := svcctx.DefaultFormatFrom(ctx)
	if body.Format != "" {
		var err error
		if format, err = render.ParseFormat(body.Format); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	req := &analysis.Request{RawReport: body.RawReport, Format: format}
	if body.ImageBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(body.ImageBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image_base64 is not valid base64")
			return
		}
		req.Image = img
	}
	if body.Interaction != nil {
		req.Medications = body.Interaction.Medications
		req.InteractionText = body.Interaction.Text
	}

	res, err := svcctx.PipelineFrom(ctx).Run(ctx, req)
	if err != nil {
		writeError(w, pipelineErrorStatus(err), err.Error())
		return
	}
	if !res.Rendered() {
		writeError(w, http.StatusInternalServerError, res.RenderError)
		return
	}
	for _, warning := range res.Warnings {
		w.Header().Add("X-MediScan-Warning", warning)
	}
	writeDocument(w, res.Output.Format, res.Filename, res.Output.Bytes)
}

func (e *RenderReportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var format, out, interaction, meds, image string
	cmd := &cobra.Command{
		Use:   "render <report.txt>",
		Short: "Render report text on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}
			body := RenderReportRequest{RawReport: string(raw), Format: format}
			if interaction != "" {
				text, err := os.ReadFile(interaction)
				if err != nil {
					return fmt.Errorf("failed to read interaction: %w", err)
				}
				body.Interaction = &InteractionPayload{Medications: meds, Text: string(text)}
			}
			if image != "" {
				img, err := os.ReadFile(image)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				body.ImageBase64 = base64.StdEncoding.EncodeToString(img)
			}

			client := api.NewClient(getServerURL())
			d, err := client.PostFile(cmd.Context(), "/api/reports", body)
			if err != nil {
				return err
			}
			return saveDownload(d, out)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Report format (pdf, html, markdown)")
	cmd.Flags().StringVarP(&out, "file", "f", "", "Output path (default: server-suggested filename)")
	cmd.Flags().StringVar(&interaction, "interaction", "", "File holding interaction analysis text")
	cmd.Flags().StringVar(&meds, "meds", "", "Medications the interaction analysis covers")
	cmd.Flags().StringVar(&image, "image", "", "Tablet image to embed")
	return cmd
}
