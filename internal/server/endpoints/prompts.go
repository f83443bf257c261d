package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/prompts"
	"github.com/jackzampolin/mediscan/internal/svcctx"
)

// PromptResponse represents a single prompt.
type PromptResponse struct {
	Key         string   `json:"key" yaml:"key"`
	Text        string   `json:"text" yaml:"text"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Variables   []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Hash        string   `json:"hash,omitempty" yaml:"hash,omitempty"`
	IsOverride  bool     `json:"is_override" yaml:"is_override"`
}

// PromptsListResponse contains all prompts.
type PromptsListResponse struct {
	Prompts []PromptResponse `json:"prompts" yaml:"prompts"`
}

// SetPromptRequest is the request body for setting a prompt override.
type SetPromptRequest struct {
	Text string `json:"text"`
}

func promptKey(w http.ResponseWriter, r *http.Request) (string, *prompts.Resolver, bool) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid prompt key")
		return "", nil, false
	}
	resolver := svcctx.PromptResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusInternalServerError, "prompt resolver not available")
		return "", nil, false
	}
	return key, resolver, true
}

func resolvedResponse(resolver *prompts.Resolver, key string) (PromptResponse, error) {
	p, err := resolver.Resolve(key)
	if err != nil {
		return PromptResponse{}, err
	}
	resp := PromptResponse{
		Key:        p.Key,
		Text:       p.Text,
		Variables:  p.Variables,
		Hash:       p.Hash,
		IsOverride: p.IsOverride,
	}
	if e, ok := resolver.GetEmbedded(key); ok {
		resp.Description = e.Description
	}
	return resp, nil
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List all prompts
//	@Description	Get all registered prompts with overrides applied
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	PromptsListResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.PromptResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusInternalServerError, "prompt resolver not available")
		return
	}

	embedded := resolver.AllEmbedded()
	resp := PromptsListResponse{Prompts: make([]PromptResponse, 0, len(embedded))}
	for _, p := range embedded {
		pr, err := resolvedResponse(resolver, p.Key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Prompts = append(resp.Prompts, pr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp PromptsListResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{key...}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{key...}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Get a prompt
//	@Tags		prompts
//	@Produce	json
//	@Param		key	path		string	true	"Prompt key (e.g., interaction.query)"
//	@Success	200	{object}	PromptResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/prompts/{key} [get]
func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, resolver, ok := promptKey(w, r)
	if !ok {
		return
	}
	resp, err := resolvedResponse(resolver, key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a prompt by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp PromptResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SetPromptEndpoint handles PUT /api/prompts/{key...}.
type SetPromptEndpoint struct{}

func (e *SetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/prompts/{key...}", e.handler
}

func (e *SetPromptEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Override a prompt
//	@Tags		prompts
//	@Accept		json
//	@Produce	json
//	@Param		key		path		string				true	"Prompt key"
//	@Param		request	body		SetPromptRequest	true	"Override text"
//	@Success	200		{object}	PromptResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/prompts/{key} [put]
func (e *SetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, resolver, ok := promptKey(w, r)
	if !ok {
		return
	}
	var body SetPromptRequest
	if !decodeValidated(w, r, nil, &body) {
		return
	}
	if body.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if err := resolver.SetOverride(key, body.Text); err != nil {
		writeError(w, promptErrorStatus(err), err.Error())
		return
	}
	svcctx.LoggerFrom(r.Context()).Info("prompt override set", "key", key)

	resp, err := resolvedResponse(resolver, key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *SetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <file>",
		Short: "Override a prompt with the contents of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read prompt: %w", err)
			}
			client := api.NewClient(getServerURL())
			var resp PromptResponse
			if err := client.Put(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]), SetPromptRequest{Text: string(text)}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ResetPromptEndpoint handles DELETE /api/prompts/{key...}.
type ResetPromptEndpoint struct{}

func (e *ResetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/prompts/{key...}", e.handler
}

func (e *ResetPromptEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Remove a prompt override
//	@Tags		prompts
//	@Param		key	path	string	true	"Prompt key"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Router		/api/prompts/{key} [delete]
func (e *ResetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, resolver, ok := promptKey(w, r)
	if !ok {
		return
	}
	if err := resolver.ClearOverride(key); err != nil {
		writeError(w, promptErrorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *ResetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <key>",
		Short: "Restore a prompt to its embedded default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return api.NewClient(getServerURL()).Delete(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]))
		},
	}
}

func promptErrorStatus(err error) int {
	switch {
	case errors.Is(err, prompts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, prompts.ErrNoStore):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

const promptsGroup = "prompts"

func (e *ListPromptsEndpoint) CommandGroup() (string, string) { return promptsGroup, "Prompt commands" }
func (e *GetPromptEndpoint) CommandGroup() (string, string)   { return promptsGroup, "Prompt commands" }
func (e *SetPromptEndpoint) CommandGroup() (string, string)   { return promptsGroup, "Prompt commands" }
func (e *ResetPromptEndpoint) CommandGroup() (string, string) { return promptsGroup, "Prompt commands" }
