// Package render turns vault notes into the DOM shapes the link annotator
// scans: the reading view, the live-preview editor and the file explorer.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/skridlevsky/linkattrs/dom"
	"github.com/skridlevsky/linkattrs/parser"
	"github.com/skridlevsky/linkattrs/types"
)

// Class names of the rendered surfaces.
const (
	ReadingViewClass  = "markdown-preview-view markdown-rendered"
	EditorClass       = "cm-content"
	FileExplorerClass = "nav-files-container"
)

// Renderer renders notes. It is safe for concurrent use.
type Renderer struct {
	md            goldmark.Markdown
	sourceOffsets bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSourceOffsets controls whether editor alias spans carry the link's
// source offset (default: true). Without it, spans can only be matched to
// links by position.
func WithSourceOffsets(on bool) Option {
	return func(r *Renderer) { r.sourceOffsets = on }
}

// New creates a Renderer with GFM and wiki-link support.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		md:            goldmark.New(goldmark.WithExtensions(extension.GFM, WikiLinks)),
		sourceOffsets: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadingView renders a note body (frontmatter already stripped) into a
// detached reading-view container.
func (r *Renderer) ReadingView(body string) (*html.Node, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	container, err := dom.ParseFragment(&buf)
	if err != nil {
		return nil, err
	}
	dom.SetAttr(container, "class", ReadingViewClass)
	return container, nil
}

// EditorView renders the raw note the way live preview shows it: one
// div.cm-line per source line, unaliased wiki links as
// span.cm-hmd-internal-link and aliased ones as span.cm-link-alias holding
// only the alias. bodyStart is the offset of the body after frontmatter.
func (r *Renderer) EditorView(content string, bodyStart int) *html.Node {
	container := dom.NewContainer(EditorClass)

	var wiki []types.LinkCache
	for _, l := range parser.ParseLinks(content, bodyStart) {
		if strings.HasPrefix(l.Original, "[[") {
			wiki = append(wiki, l)
		}
	}

	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		text := strings.TrimSuffix(line, "\n")
		div := element("div", "cm-line")
		if offset < bodyStart {
			dom.SetAttr(div, "class", "cm-line cm-hmd-frontmatter")
			appendText(div, text)
		} else {
			r.fillLine(div, text, offset, &wiki)
		}
		container.AppendChild(div)
		offset += len(line)
	}
	return container
}

// fillLine writes one source line, consuming links that start on it.
func (r *Renderer) fillLine(div *html.Node, text string, lineStart int, links *[]types.LinkCache) {
	pos := 0
	for len(*links) > 0 {
		l := (*links)[0]
		start := l.Position.Start.Offset - lineStart
		end := l.Position.End.Offset - lineStart
		if start >= len(text) || end > len(text) {
			break
		}
		*links = (*links)[1:]

		appendText(div, text[pos:start])
		if l.Aliased() {
			span := element("span", "cm-link-alias")
			if r.sourceOffsets {
				dom.SetAttr(span, types.SourceOffsetAttr, strconv.Itoa(l.Position.Start.Offset))
			}
			appendText(span, l.DisplayText)
			div.AppendChild(span)
		} else {
			span := element("span", "cm-hmd-internal-link")
			appendText(span, l.Link)
			div.AppendChild(span)
		}
		pos = end
	}
	appendText(div, text[pos:])
}

// FileExplorer renders the navigation list of the given files.
func (r *Renderer) FileExplorer(files []types.File) *html.Node {
	container := dom.NewContainer(FileExplorerClass)
	for _, f := range files {
		item := element("div", "nav-file")
		title := element("div", "nav-file-title")
		dom.SetAttr(title, "data-path", f.Path)
		content := element("div", "nav-file-title-content")
		appendText(content, f.Basename)
		title.AppendChild(content)
		item.AppendChild(title)
		container.AppendChild(item)
	}
	return container
}

func element(tag, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	if class != "" {
		dom.SetAttr(n, "class", class)
	}
	return n
}

func appendText(n *html.Node, s string) {
	if s == "" {
		return
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}
