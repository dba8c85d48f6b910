package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/net/html"

	"github.com/skridlevsky/linkattrs/backend"
	"github.com/skridlevsky/linkattrs/config"
	"github.com/skridlevsky/linkattrs/dom"
	"github.com/skridlevsky/linkattrs/linkattrs"
	"github.com/skridlevsky/linkattrs/render"
	"github.com/skridlevsky/linkattrs/types"
	"github.com/skridlevsky/linkattrs/vault"
	"github.com/skridlevsky/linkattrs/workspace"
)

// Surfaces a note can be rendered to or a fragment annotated as.
const (
	SurfaceReading  = "reading"
	SurfaceEditor   = "editor"
	SurfaceExplorer = "explorer"
	SurfaceDiv      = "div"
)

var (
	// ErrUnknownSurface is returned for a surface name that is not supported.
	ErrUnknownSurface = errors.New("unknown surface")
	ErrPaneNotOpen    = errors.New("pane is not open")
)

// Notes is the vault as the link tools see it.
type Notes interface {
	backend.Vault
	File(path string) (types.File, bool)
	Files() []types.File
}

// Links implements the link annotation MCP tools.
type Links struct {
	notes     Notes
	panes     *workspace.Workspace
	annotator *linkattrs.Annotator
	renderer  *render.Renderer
}

// NewLinks creates a new Links tool handler.
func NewLinks(notes Notes, panes *workspace.Workspace, a *linkattrs.Annotator, r *render.Renderer) *Links {
	return &Links{notes: notes, panes: panes, annotator: a, renderer: r}
}

// Attributes computes the mapping a link written in source would receive.
func (l *Links) Attributes(ctx context.Context, link, source string, dataHref bool) (*types.LinkAttributes, error) {
	dest := linkattrs.Resolve(l.notes, link, source)
	if dest == nil {
		return nil, fmt.Errorf("unresolved link %q: %w", link, vault.ErrNotFound)
	}
	props, err := linkattrs.FetchTargetAttributes(ctx, l.notes, l.annotator.Settings(), *dest, dataHref)
	if err != nil {
		return nil, err
	}
	// Apply to a scratch element so the names match what sweeps write.
	el := dom.NewContainer("")
	linkattrs.SetLinkNewProps(el, props)
	attrs := dom.AttrsWithPrefix(el, linkattrs.AttrPrefix)
	return &types.LinkAttributes{Link: link, Target: dest.Path, Props: props, Attributes: attrs}, nil
}

// Annotate parses an HTML fragment, runs the sweep for surface over it and
// returns the annotated HTML.
func (l *Links) Annotate(ctx context.Context, fragment, surface, source string) (string, error) {
	root, err := dom.ParseFragmentString(fragment)
	if err != nil {
		return "", err
	}
	switch surfaceOrDefault(surface) {
	case SurfaceReading:
		l.annotator.UpdateElLinks(ctx, root, source)
	case SurfaceDiv, SurfaceExplorer:
		l.annotator.UpdateDivLinks(ctx, root)
	case SurfaceEditor:
		f, ok := l.notes.File(source)
		if !ok {
			return "", fmt.Errorf("source %q: %w", source, vault.ErrNotFound)
		}
		l.annotator.UpdateEditorLinks(ctx, root, f)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSurface, surface)
	}
	return dom.RenderChildren(root)
}

// Render renders a note (or the file explorer) to surface and annotates
// it. When open is set the view stays in the workspace as a pane. A
// non-zero pane is re-rendered in place instead.
func (l *Links) Render(ctx context.Context, notePath, surface string, open bool, pane int) (*types.RenderedView, error) {
	if pane != 0 {
		if _, ok := l.panes.Leaf(workspace.Pane(pane)); !ok {
			return nil, fmt.Errorf("%w: %d", ErrPaneNotOpen, pane)
		}
	}
	surface = surfaceOrDefault(surface)
	view := &types.RenderedView{Surface: surface}

	var root *html.Node
	var file *types.File
	switch surface {
	case SurfaceExplorer:
		root = l.renderer.FileExplorer(l.notes.Files())
		l.annotator.UpdateDivLinks(ctx, root)
	case SurfaceReading, SurfaceEditor:
		f, ok := l.notes.File(notePath)
		if !ok {
			return nil, fmt.Errorf("note %q: %w", notePath, vault.ErrNotFound)
		}
		content, err := l.notes.CachedRead(ctx, f)
		if err != nil {
			return nil, err
		}
		bodyStart := vault.BodyOffset(content)
		if surface == SurfaceReading {
			root, err = l.renderer.ReadingView(content[bodyStart:])
			if err != nil {
				return nil, err
			}
			l.annotator.UpdateElLinks(ctx, root, f.Path)
		} else {
			root = l.renderer.EditorView(content, bodyStart)
			l.annotator.UpdateEditorLinks(ctx, root, f)
		}
		file = &f
		view.Path = f.Path
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSurface, surface)
	}

	out, err := dom.RenderChildren(root)
	if err != nil {
		return nil, err
	}
	view.HTML = out
	switch {
	case pane != 0:
		if !l.panes.Replace(workspace.Pane(pane), file, root) {
			return nil, fmt.Errorf("%w: %d", ErrPaneNotOpen, pane)
		}
		view.Pane = pane
	case open:
		view.Pane = int(l.panes.Open(file, root))
	}
	return view, nil
}

// Refresh applies any settings changes, then re-annotates every open pane.
func (l *Links) Refresh(ctx context.Context, input types.RefreshPanesInput) ([]types.RenderedView, error) {
	s := l.annotator.Settings()
	if input.TargetAttributes != nil {
		s.TargetAttributes = input.TargetAttributes
	}
	if input.TargetTags != nil {
		s.TargetTags = *input.TargetTags
	}
	if input.GetFromInlineField != nil {
		s.GetFromInlineField = *input.GetFromInlineField
	}
	if input.EnableFileList != nil {
		s.EnableFileList = *input.EnableFileList
	}
	if err := config.Validate(s); err != nil {
		return nil, err
	}
	l.annotator.SetSettings(s)
	l.Reannotate(ctx)

	var views []types.RenderedView
	var renderErr error
	l.annotator.ViewDOM(func() {
		l.panes.IterateRootLeaves(func(leaf backend.Leaf) {
			out, err := dom.RenderChildren(leaf.Container)
			if err != nil {
				renderErr = err
				return
			}
			v := types.RenderedView{Surface: paneSurface(leaf), HTML: out}
			if leaf.File != nil {
				v.Path = leaf.File.Path
			}
			views = append(views, v)
		})
	})
	return views, renderErr
}

// Reannotate runs every sweep over the open panes: the global refresh for
// anchors, then the editor sweep for editor panes and the div sweep for
// the others.
func (l *Links) Reannotate(ctx context.Context) {
	l.annotator.UpdateVisibleLinks(ctx)

	type pane struct {
		leaf    backend.Leaf
		surface string
	}
	var panes []pane
	l.annotator.ViewDOM(func() {
		l.panes.IterateRootLeaves(func(leaf backend.Leaf) {
			panes = append(panes, pane{leaf: leaf, surface: paneSurface(leaf)})
		})
	})
	for _, p := range panes {
		if p.surface == SurfaceEditor {
			l.annotator.UpdateEditorLinks(ctx, p.leaf.Container, *p.leaf.File)
			continue
		}
		l.annotator.UpdateDivLinks(ctx, p.leaf.Container)
	}
}

// paneSurface tells which surface an open pane shows.
func paneSurface(leaf backend.Leaf) string {
	switch {
	case leaf.File == nil:
		return SurfaceExplorer
	case dom.HasClass(leaf.Container, render.EditorClass):
		return SurfaceEditor
	default:
		return SurfaceReading
	}
}

func surfaceOrDefault(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SurfaceReading
	}
	return s
}

// --- MCP handlers ---

// LinkAttributes returns the data-link-* attributes a link would receive.
func (l *Links) LinkAttributes(ctx context.Context, req *mcp.CallToolRequest, input types.LinkAttributesInput) (*mcp.CallToolResult, any, error) {
	attrs, err := l.Attributes(ctx, input.Link, input.Source, input.DataHref)
	if err != nil {
		return errorResult(fmt.Sprintf("link attributes: %v", err)), nil, nil
	}
	res, err := jsonTextResult(attrs)
	return res, nil, err
}

// AnnotateHTML annotates a posted HTML fragment.
func (l *Links) AnnotateHTML(ctx context.Context, req *mcp.CallToolRequest, input types.AnnotateHTMLInput) (*mcp.CallToolResult, any, error) {
	out, err := l.Annotate(ctx, input.HTML, input.Surface, input.Source)
	if err != nil {
		return errorResult(fmt.Sprintf("annotate: %v", err)), nil, nil
	}
	return textResult(out), nil, nil
}

// RenderNote renders and annotates a note.
func (l *Links) RenderNote(ctx context.Context, req *mcp.CallToolRequest, input types.RenderNoteInput) (*mcp.CallToolResult, any, error) {
	view, err := l.Render(ctx, input.Path, input.Surface, input.Open, input.Pane)
	if err != nil {
		return errorResult(fmt.Sprintf("render %s: %v", input.Path, err)), nil, nil
	}
	res, err := jsonTextResult(view)
	return res, nil, err
}

// RefreshPanes re-annotates every open pane, optionally with new settings.
func (l *Links) RefreshPanes(ctx context.Context, req *mcp.CallToolRequest, input types.RefreshPanesInput) (*mcp.CallToolResult, any, error) {
	views, err := l.Refresh(ctx, input)
	if err != nil {
		return errorResult(fmt.Sprintf("refresh: %v", err)), nil, nil
	}
	res, err := jsonTextResult(map[string]any{
		"settings": l.annotator.Settings(),
		"panes":    views,
	})
	return res, nil, err
}

// ClosePane removes a pane opened by render_note.
func (l *Links) ClosePane(ctx context.Context, req *mcp.CallToolRequest, input types.ClosePaneInput) (*mcp.CallToolResult, any, error) {
	if _, ok := l.panes.Leaf(workspace.Pane(input.Pane)); !ok {
		return errorResult(fmt.Sprintf("close: %v: %d", ErrPaneNotOpen, input.Pane)), nil, nil
	}
	l.panes.Close(workspace.Pane(input.Pane))
	return textResult(fmt.Sprintf("Closed pane %d", input.Pane)), nil, nil
}
