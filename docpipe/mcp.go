package docpipe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the pipeline tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerExtractTool(srv)
	p.registerSectionsTool(srv)
	p.registerChunkTool(srv)
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

// addTool wires a handler with JSON-marshaled output and MCP-level error
// reporting (tool errors go back in the result, not the transport).
func addTool[Req any](srv *mcp.Server, tool *mcp.Tool, handle func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}
		resp, err := handle(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- extract ---

type extractTextReq struct {
	Filename string `json:"filename"`
	Data     string `json:"data"` // base64
}

func (p *Pipeline) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "iep_extract_text",
		Description: "Run the full pipeline over a document (pdf, docx, doc, txt): extract, normalize, tag sections, chunk.",
		InputSchema: inputSchema(map[string]any{
			"filename": map[string]any{"type": "string", "description": "Original filename, used for format detection"},
			"data":     map[string]any{"type": "string", "description": "Base64-encoded file content"},
		}, []string{"filename", "data"}),
	}
	addTool(srv, tool, func(ctx context.Context, r *extractTextReq) (any, error) {
		data, err := base64.StdEncoding.DecodeString(r.Data)
		if err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
		return p.Process(ctx, r.Filename, data)
	})
}

// --- sections ---

type detectSectionsReq struct {
	Text string `json:"text"`
}

func (p *Pipeline) registerSectionsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "iep_detect_sections",
		Description: "Detect tagged IEP sections (Present_Levels, Goals, Services, ...) in normalized text.",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Document text"},
		}, []string{"text"}),
	}
	addTool(srv, tool, func(_ context.Context, r *detectSectionsReq) (any, error) {
		sections := DetectSections(Normalize(r.Text), p.cfg.Detector)
		return map[string]any{"sections": sections}, nil
	})
}

// --- chunk ---

type chunkTextReq struct {
	Text        string `json:"text"`
	TokenBudget int    `json:"token_budget,omitempty"`
}

func (p *Pipeline) registerChunkTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "iep_chunk_text",
		Description: "Split text into sentence-bounded chunks under a token budget, with section tags and quality scores.",
		InputSchema: inputSchema(map[string]any{
			"text":         map[string]any{"type": "string", "description": "Document text"},
			"token_budget": map[string]any{"type": "integer", "description": "Soft per-chunk token ceiling (default 1500)"},
		}, []string{"text"}),
	}
	addTool(srv, tool, func(_ context.Context, r *chunkTextReq) (any, error) {
		budget := r.TokenBudget
		if budget <= 0 {
			budget = p.cfg.TokenBudget
		}
		normalized := Normalize(r.Text)
		sections := DetectSections(normalized, p.cfg.Detector)
		chunks := BuildChunks(sections, budget, p.cfg.Estimator)
		return map[string]any{"chunks": chunks}, nil
	})
}
