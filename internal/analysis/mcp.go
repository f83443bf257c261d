package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/report"
)

// RegisterMCP registers the pipeline's tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	addTool(srv, &mcp.Tool{
		Name:        "mediscan_extract",
		Description: "Split an annotated tablet report into labelled sections (*Label:* content).",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Raw report text"},
		}, []string{"text"}),
	}, p.extractTool)

	addTool(srv, &mcp.Tool{
		Name:        "mediscan_tokenize",
		Description: "Split section content into list items.",
		InputSchema: inputSchema(map[string]any{
			"content": map[string]any{"type": "string", "description": "Section content"},
		}, []string{"content"}),
	}, tokenizeTool)

	addTool(srv, &mcp.Tool{
		Name:        "mediscan_classify",
		Description: "Tag content with a safety or interaction severity and its badge text.",
		InputSchema: inputSchema(map[string]any{
			"content": map[string]any{"type": "string", "description": "Text to classify"},
			"mode":    map[string]any{"type": "string", "enum": []string{"safety", "interaction"}},
		}, []string{"content"}),
	}, classifyTool)

	addTool(srv, &mcp.Tool{
		Name:        "mediscan_render",
		Description: "Render a raw report into a PDF, HTML or Markdown document. PDF output is base64 encoded.",
		InputSchema: inputSchema(map[string]any{
			"raw_report":       map[string]any{"type": "string", "description": "Annotated report text"},
			"format":           map[string]any{"type": "string", "enum": []string{"pdf", "html", "markdown"}},
			"medications":      map[string]any{"type": "string", "description": "Other medications, comma separated"},
			"interaction_text": map[string]any{"type": "string", "description": "Interaction analysis to include"},
		}, []string{"raw_report"}),
	}, p.renderTool)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// addTool decodes arguments into Req, calls fn and returns its result as JSON
// text. Failures are reported as tool errors, not protocol errors.
func addTool[Req any](srv *mcp.Server, tool *mcp.Tool, fn func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}
		out, err := fn(ctx, &in)
		if err != nil {
			return toolError(err), nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

type extractArgs struct {
	Text string `json:"text"`
}

type toolField struct {
	Label   string   `json:"label"`
	Content string   `json:"content"`
	Items   []string `json:"items,omitempty"`
	Safety  string   `json:"safety,omitempty"`
}

func (p *Pipeline) extractTool(_ context.Context, args *extractArgs) (any, error) {
	fields := report.Extract(args.Text, p.extract)
	out := make([]toolField, 0, len(fields))
	for _, f := range fields {
		tf := toolField{Label: f.Label, Content: f.Content}
		if report.IsListLabel(f.Label) {
			tf.Items = report.Tokenize(f.Content)
		}
		if report.IsSafetyLabel(f.Label) {
			tf.Safety = string(report.ClassifySafety(f.Content))
		}
		out = append(out, tf)
	}
	return map[string]any{"fields": out, "degraded": fields.Degraded()}, nil
}

type tokenizeArgs struct {
	Content string `json:"content"`
}

func tokenizeTool(_ context.Context, args *tokenizeArgs) (any, error) {
	return map[string]any{"items": report.Tokenize(args.Content)}, nil
}

type classifyArgs struct {
	Content string `json:"content"`
	Mode    string `json:"mode"`
}

func classifyTool(_ context.Context, args *classifyArgs) (any, error) {
	mode := report.ModeSafety
	if args.Mode != "" {
		m, ok := report.ParseMode(args.Mode)
		if !ok {
			return nil, fmt.Errorf("unknown mode %q", args.Mode)
		}
		mode = m
	}
	sev := report.Classify(args.Content, mode)
	tag, badge := string(sev.Safety), sev.Safety.Badge()
	if mode == report.ModeInteraction {
		tag, badge = string(sev.Interaction), sev.Interaction.Badge()
	}
	return map[string]string{"mode": string(mode), "tag": tag, "badge": badge}, nil
}

type renderArgs struct {
	RawReport       string `json:"raw_report"`
	Format          string `json:"format"`
	Medications     string `json:"medications"`
	InteractionText string `json:"interaction_text"`
}

type renderOutput struct {
	RequestID       string   `json:"request_id"`
	Format          string   `json:"format"`
	Filename        string   `json:"filename"`
	Fields          int      `json:"fields"`
	Degraded        bool     `json:"degraded"`
	InteractionTier string   `json:"interaction_tier,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	Document        string   `json:"document,omitempty"`
	DocumentBase64  string   `json:"document_base64,omitempty"`
}

func (p *Pipeline) renderTool(ctx context.Context, args *renderArgs) (any, error) {
	if strings.TrimSpace(args.RawReport) == "" {
		return nil, errors.New("raw_report is required")
	}
	format, err := render.ParseFormat(args.Format)
	if err != nil {
		return nil, err
	}

	req := NewRequest(nil, "", args.Medications)
	req.RawReport = args.RawReport
	req.InteractionText = args.InteractionText
	req.Format = format

	res, err := p.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if !res.Rendered() {
		return nil, fmt.Errorf("render %s: %s", format, res.RenderError)
	}

	out := renderOutput{
		RequestID: res.RequestID,
		Format:    string(res.Format),
		Filename:  res.Filename,
		Fields:    len(res.Fields),
		Degraded:  res.Degraded,
		Warnings:  res.Warnings,
	}
	if res.Interaction != nil {
		out.InteractionTier = string(res.Interaction.Tier)
	}
	if format == render.FormatPDF {
		out.DocumentBase64 = base64.StdEncoding.EncodeToString(res.Output.Bytes)
	} else {
		out.Document = string(res.Output.Bytes)
	}
	return out, nil
}
