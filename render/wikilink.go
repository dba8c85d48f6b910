package render

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/wikilink"
)

type wikiLinkRenderer struct{}

func (r *wikiLinkRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(wikilink.Kind, r.render)
}

// render writes links the way the reading view shows them:
// <a data-href="t" href="t" class="internal-link">text</a>.
func (r *wikiLinkRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*wikilink.Node)
	target := bytes.TrimSpace(n.Target)
	if len(n.Fragment) > 0 {
		target = append(append(append([]byte(nil), target...), '#'), n.Fragment...)
	}
	escaped := util.EscapeHTML(target)
	if n.Embed {
		_, _ = w.WriteString(`<span class="internal-embed" src="`)
		_, _ = w.Write(escaped)
		_, _ = w.WriteString(`"></span>`)
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(`<a data-href="`)
	_, _ = w.Write(escaped)
	_, _ = w.WriteString(`" href="`)
	_, _ = w.Write(escaped)
	_, _ = w.WriteString(`" class="internal-link" target="_blank" rel="noopener">`)
	_, _ = w.Write(util.EscapeHTML(label(n, source)))
	_, _ = w.WriteString(`</a>`)
	return ast.WalkSkipChildren, nil
}

// label is the alias of a link, or its target when it has none.
func label(n *wikilink.Node, source []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return bytes.TrimSpace(buf.Bytes())
}

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// internalLinkTransformer marks [text](note.md) links as internal links.
type internalLinkTransformer struct{}

func (t *internalLinkTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := link.Destination
		if len(dest) == 0 || dest[0] == '#' || schemePattern.Match(dest) {
			return ast.WalkContinue, nil
		}
		link.SetAttributeString("class", []byte("internal-link"))
		return ast.WalkContinue, nil
	})
}

// WikiLinks is a goldmark extension for Obsidian-style links. Parsing is
// wikilink's; rendering produces the reading view's internal-link anchors.
var WikiLinks goldmark.Extender = &wikiLinks{}

type wikiLinks struct{}

func (e *wikiLinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(util.Prioritized(&wikilink.Parser{}, 199)),
		parser.WithASTTransformers(util.Prioritized(&internalLinkTransformer{}, 100)),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(&wikiLinkRenderer{}, 199)),
	)
}
