package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// newServer creates and configures the MCP server with all tools registered.
func newServer(a *app) *mcp.Server {
	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "linkattrs",
			Version: version,
		},
		nil,
	)

	links := a.links

	// --- Link tools ---
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "link_attributes",
		Description: "Resolve a link as written in a note and return the data-link-* attributes it would receive: configured frontmatter fields, inline key:: value fields (these win over frontmatter) and the target's tags.",
	}, links.LinkAttributes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "annotate_html",
		Description: "Annotate a rendered HTML fragment. surface=reading handles a.internal-link anchors, div handles div/td internal links and file explorer titles, editor handles live-preview link spans of the source note. Returns the fragment with data-link-* attributes applied.",
	}, links.AnnotateHTML)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "render_note",
		Description: "Render a note as the reading view or live-preview editor (or the vault's file explorer) and annotate its links. Set open=true to keep the view as a pane that refresh_panes updates.",
	}, links.RenderNote)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "refresh_panes",
		Description: "Re-annotate every link in every open pane. Optionally change the synchronized attributes, tag sync, inline-field sync or file explorer annotation first. Returns the settings in effect and each pane's HTML.",
	}, links.RefreshPanes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "close_pane",
		Description: "Close a pane opened by render_note.",
	}, links.ClosePane)

	// --- Health tool ---
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "health",
		Description: "Check server status: version, vault path, file count, open panes and the settings in effect.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
		status := "ok"
		if err := a.vault.Ping(ctx); err != nil {
			status = fmt.Sprintf("error: %v", err)
		}

		data, _ := json.MarshalIndent(map[string]any{
			"status":    status,
			"version":   version,
			"vault":     a.vault.Path(),
			"fileCount": len(a.vault.Files()),
			"panes":     a.panes.Len(),
			"settings":  a.annotator.Settings(),
		}, "", "  ")

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil, nil
	})

	// --- Vault management ---
	srv.AddTool(&mcp.Tool{
		Name:        "reload",
		Description: "Force a full vault re-index, then re-annotate every open pane. Use when notes changed on disk.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{},"required":[],"additionalProperties":false}`),
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := a.vault.Reload(); err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Reload failed: %v", err)}},
				IsError: true,
			}, nil
		}
		a.links.Reannotate(ctx)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Vault reloaded: %d files", len(a.vault.Files()))}},
		}, nil
	})

	return srv
}
