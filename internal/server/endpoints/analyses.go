package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/analysis"
	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/providers"
	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/svcctx"
)

// imageTypes maps accepted upload extensions to MIME types.
var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ImageMIME returns the MIME type for an accepted image filename.
func ImageMIME(filename string) (string, bool) {
	mime, ok := imageTypes[strings.ToLower(filepath.Ext(filename))]
	return mime, ok
}

// CreateAnalysisEndpoint handles POST /api/analyses with a multipart image upload.
type CreateAnalysisEndpoint struct{}

var _ api.Endpoint = (*CreateAnalysisEndpoint)(nil)

func (e *CreateAnalysisEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyses", e.handler
}

func (e *CreateAnalysisEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Analyze a tablet image
//	@Description	Upload a tablet photo; the report is extracted, classified and rendered
//	@Tags			analyses
//	@Accept			mpfd
//	@Produce		json
//	@Param			image		formData	file	true	"Tablet image (jpg, jpeg, png, webp)"
//	@Param			medications	formData	string	false	"Additional medications for interaction analysis"
//	@Param			format		formData	string	false	"Report format (pdf, html, markdown)"
//	@Success		201	{object}	AnalysisResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		413	{object}	ErrorResponse
//	@Failure		415	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/analyses [post]
func (e *CreateAnalysisEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	maxBytes := svcctx.MaxUploadBytesFrom(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20) // form overhead

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+sizeLabel(maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image uploaded")
		return
	}
	defer file.Close()

	mime, ok := ImageMIME(fh.Filename)
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported image type %q (use jpg, jpeg, png or webp)", filepath.Ext(fh.Filename)))
		return
	}
	if fh.Size > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+sizeLabel(maxBytes))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read image: %v", err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded image is empty")
		return
	}

	format := svcctx.DefaultFormatFrom(ctx)
	if v := r.FormValue("format"); v != "" {
		if format, err = render.ParseFormat(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	req := analysis.NewRequest(data, mime, r.FormValue("medications"))
	req.Format = format

	res, err := svcctx.PipelineFrom(ctx).Run(ctx, req)
	if err != nil {
		svcctx.LoggerFrom(ctx).Error("analysis request failed", "request_id", req.ID, "error", err)
		writeError(w, pipelineErrorStatus(err), err.Error())
		return
	}

	sessions := svcctx.SessionsFrom(ctx)
	sessions.Put(res)
	w.Header().Set("Location", "/api/analyses/"+res.RequestID)
	writeJSON(w, http.StatusCreated, NewAnalysisResponse(res, sessions.TTL()))
}

func sizeLabel(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d KB", n>>10)
}

// pipelineErrorStatus maps a failed pipeline run to an HTTP status.
func pipelineErrorStatus(err error) int {
	switch {
	case errors.Is(err, providers.ErrNotConfigured), errors.Is(err, analysis.ErrNoAnalyzer):
		return http.StatusServiceUnavailable
	case errors.Is(err, providers.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func (e *CreateAnalysisEndpoint) Command(getServerURL func() string) *cobra.Command {
	var meds, format string
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Upload a tablet image for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, ok := ImageMIME(path); !ok {
				return fmt.Errorf("unsupported image type %q", filepath.Ext(path))
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			fields := map[string]string{"medications": meds}
			if format != "" {
				fields["format"] = format
			}

			client := api.NewClient(getServerURL())
			var resp AnalysisResponse
			err = client.PostMultipart(cmd.Context(), "/api/analyses", fields,
				[]api.FilePart{{Field: "image", Filename: filepath.Base(path), Data: data}}, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&meds, "meds", "", "Additional medications to check for interactions")
	cmd.Flags().StringVar(&format, "format", "", "Report format (pdf, html, markdown)")
	return cmd
}

// GetAnalysisEndpoint handles GET /api/analyses/{id}.
type GetAnalysisEndpoint struct{}

func (e *GetAnalysisEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/analyses/{id}", e.handler
}

func (e *GetAnalysisEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get an analysis
//	@Tags		analyses
//	@Produce	json
//	@Param		id	path		string	true	"Analysis ID"
//	@Success	200	{object}	AnalysisResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/analyses/{id} [get]
func (e *GetAnalysisEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	res, ok := sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, NewAnalysisResponse(res, sessions.TTL()))
}

func (e *GetAnalysisEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp AnalysisResponse
			if err := client.Get(cmd.Context(), "/api/analyses/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteAnalysisEndpoint handles DELETE /api/analyses/{id}.
type DeleteAnalysisEndpoint struct{}

func (e *DeleteAnalysisEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/analyses/{id}", e.handler
}

func (e *DeleteAnalysisEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Discard an analysis
//	@Tags		analyses
//	@Param		id	path	string	true	"Analysis ID"
//	@Success	204
//	@Router		/api/analyses/{id} [delete]
func (e *DeleteAnalysisEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svcctx.SessionsFrom(r.Context()).Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteAnalysisEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Discard a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/analyses/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

// AnalysisReportEndpoint handles GET /api/analyses/{id}/report.
type AnalysisReportEndpoint struct{}

func (e *AnalysisReportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/analyses/{id}/report", e.handler
}

func (e *AnalysisReportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Download the rendered report
//	@Tags		analyses
//	@Produce	application/pdf,text/html,text/markdown
//	@Param		id	path		string	true	"Analysis ID"
//	@Success	200	{file}		binary
//	@Failure	404	{object}	ErrorResponse
//	@Failure	409	{object}	ErrorResponse
//	@Router		/api/analyses/{id}/report [get]
func (e *AnalysisReportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	res, ok := svcctx.SessionsFrom(r.Context()).Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if !res.Rendered() {
		writeError(w, http.StatusConflict, "report was not rendered: "+res.RenderError)
		return
	}
	writeDocument(w, res.Output.Format, res.Filename, res.Output.Bytes)
}

func (e *AnalysisReportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Download the rendered report of an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			d, err := client.GetFile(cmd.Context(), "/api/analyses/"+args[0]+"/report")
			if err != nil {
				return err
			}
			return saveDownload(d, out)
		},
	}
	cmd.Flags().StringVarP(&out, "file", "f", "", "Output path (default: server-suggested filename)")
	return cmd
}

// writeDocument sends rendered bytes as an attachment.
func writeDocument(w http.ResponseWriter, f render.Format, filename string, data []byte) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func saveDownload(d *api.Download, out string) error {
	if out == "" {
		out = d.Filename
	}
	if out == "" {
		return fmt.Errorf("no output path given and server sent no filename")
	}
	if out == "-" {
		_, err := os.Stdout.Write(d.Data)
		return err
	}
	if err := os.WriteFile(out, d.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "Saved %s (%d bytes)\n", out, len(d.Data))
	return nil
}
