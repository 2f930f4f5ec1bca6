// Package mcptool exposes classification and taxonomy lookup as MCP tools.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joelkehle/ssfinder/internal/classify"
	"github.com/joelkehle/ssfinder/internal/store"
	"github.com/joelkehle/ssfinder/internal/taxonomy"
)

const (
	ServerName     = "ssfinder"
	defaultResults = 5
)

type Recorder interface {
	Save(ctx context.Context, rec store.Record) (store.Record, error)
}

type Tools struct {
	Engine *classify.Engine
	// Recorder is optional.
	Recorder Recorder
	// Credential resolves the AI credential; nil uses only the argument.
	Credential func(requested string) string
}

// NewServer registers every tool on a fresh MCP server.
func (t *Tools) NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version)
	t.Register(s)
	return s
}

func (t *Tools) Register(s *server.MCPServer) {
	classifyTool := mcp.NewTool("classify_job",
		mcp.WithDescription("Classify a Singapore job posting into an SSIC 2025 industry code and an SSOC 2024 occupation code"),
	)
	classifyTool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"company":         map[string]interface{}{"type": "string", "description": "Hiring company name (2-100 characters)"},
			"job_title":       map[string]interface{}{"type": "string", "description": "Job title (2-150 characters)"},
			"job_description": map[string]interface{}{"type": "string", "description": "Job description text (optional)"},
			"api_key":         map[string]interface{}{"type": "string", "description": "Anthropic API key enabling AI-assisted classification (optional)"},
		},
		Required: []string{"company", "job_title"},
	}
	s.AddTool(classifyTool, t.handleClassify)

	lookupTool := mcp.NewTool("lookup_code",
		mcp.WithDescription("Look up an SSIC or SSOC code, or search a taxonomy by title"),
	)
	lookupTool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"taxonomy": map[string]interface{}{"type": "string", "description": "ssic or ssoc"},
			"code":     map[string]interface{}{"type": "string", "description": "Numeric code to look up, 1 to 5 digits"},
			"query":    map[string]interface{}{"type": "string", "description": "Title text to search for when no code is given"},
			"limit":    map[string]interface{}{"type": "integer", "description": "Max search results (default 5)"},
		},
		Required: []string{"taxonomy"},
	}
	s.AddTool(lookupTool, t.handleLookup)
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func (t *Tools) handleClassify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	credential := stringArg(args, "api_key")
	if t.Credential != nil {
		credential = t.Credential(credential)
	}
	q := classify.Query{
		Company:        stringArg(args, "company"),
		JobTitle:       stringArg(args, "job_title"),
		JobDescription: stringArg(args, "job_description"),
		AICredential:   credential,
	}.Sanitize()
	if err := q.Validate(); err != nil {
		return mcp.NewToolResultError(strings.ReplaceAll(err.Error(), "\n", "; ")), nil
	}

	res, tr := t.Engine.ClassifyWithTrace(ctx, q)
	var b strings.Builder
	b.WriteString(classify.Summary(res))
	if t.Recorder != nil {
		rec, err := t.Recorder.Save(ctx, store.Record{Source: store.SourceMCP, Query: q, Result: res, Trace: tr})
		if err != nil {
			log.Printf("ssfinder mcp record failed: %v", err)
		} else {
			fmt.Fprintf(&b, "\n\nRecord: %s", rec.ID)
		}
	}
	blob, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	b.WriteString("\n\n```json\n")
	b.Write(blob)
	b.WriteString("\n```")
	return mcp.NewToolResultText(b.String()), nil
}

func (t *Tools) handleLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	name := strings.ToLower(stringArg(args, "taxonomy"))
	tbl, err := t.Engine.Table(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if raw := stringArg(args, "code"); raw != "" {
		code, ok := taxonomy.NormalizeCode(raw)
		if !ok || len(code) > 5 {
			return mcp.NewToolResultError(fmt.Sprintf("code %q must be 1 to 5 digits", raw)), nil
		}
		row, found := tbl.Lookup(code)
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("%s code %s not found", strings.ToUpper(name), code)), nil
		}
		return mcp.NewToolResultText(describeRow(tbl, row)), nil
	}

	query := stringArg(args, "query")
	if query == "" {
		return mcp.NewToolResultError("either code or query is required"), nil
	}
	limit := defaultResults
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	results, err := t.Engine.SearchTitles(name, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No %s titles match %q.", strings.ToUpper(name), query)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s matches for %q:\n", strings.ToUpper(name), query)
	for i, c := range results {
		fmt.Fprintf(&b, "%d. %s %s (%.1f%%)\n", i+1, c.Code, c.Title, classify.ConfidencePercent(c.Score))
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func describeRow(tbl *taxonomy.Table, row taxonomy.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", strings.ToUpper(tbl.Name()), row.Code, row.Title)
	if anc := tbl.Ancestors(row.Code); len(anc) > 0 {
		b.WriteString("\nHierarchy:")
		for _, a := range anc {
			fmt.Fprintf(&b, "\n  %s %s", a.Code, a.Title)
		}
	}
	if kids := tbl.Children(row.Code); len(kids) > 0 {
		b.WriteString("\nSub-codes:")
		for _, k := range kids {
			fmt.Fprintf(&b, "\n  %s %s", k.Code, k.Title)
		}
	}
	return b.String()
}
