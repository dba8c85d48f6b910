package linkattrs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/skridlevsky/linkattrs/backend"
	"github.com/skridlevsky/linkattrs/dom"
	"github.com/skridlevsky/linkattrs/parser"
	"github.com/skridlevsky/linkattrs/types"
)

var errDisk = errors.New("disk on fire")

type resolveCall struct {
	linkpath string
	source   string
}

// fakeHost is an in-memory backend.Host. Links resolve by case-insensitive
// basename or path without extension.
type fakeHost struct {
	mu       sync.Mutex
	caches   map[string]*types.FileCache
	contents map[string]string
	readErr  map[string]error
	onRead   func(ctx context.Context, f types.File)
	leaves   []backend.Leaf
	calls    []resolveCall
	reads    int
}

var _ backend.Host = (*fakeHost)(nil)

func newFakeHost() *fakeHost {
	return &fakeHost{
		caches:   make(map[string]*types.FileCache),
		contents: make(map[string]string),
		readErr:  make(map[string]error),
	}
}

// add registers a note. body is scanned for links and tags.
func (h *fakeHost) add(p string, fm map[string]any, body string) types.File {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.caches[p] = &types.FileCache{
		Frontmatter: fm,
		Links:       parser.ParseLinks(body, 0),
		Tags:        parser.ParseTags(body, 0),
	}
	h.contents[p] = body
	return types.NewFile(p)
}

func (h *fakeHost) setContent(p, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contents[p] = body
}

func (h *fakeHost) GetFileCache(f types.File) *types.FileCache {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.caches[f.Path]
}

func (h *fakeHost) GetFirstLinkpathDest(linkpath, source string) *types.File {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, resolveCall{linkpath: linkpath, source: source})
	for p := range h.caches {
		f := types.NewFile(p)
		if strings.EqualFold(f.Basename, linkpath) || strings.EqualFold(f.PathWithoutExt(), linkpath) || strings.EqualFold(f.Path, linkpath) {
			return &f
		}
	}
	return nil
}

func (h *fakeHost) CachedRead(ctx context.Context, f types.File) (string, error) {
	h.mu.Lock()
	h.reads++
	text, err, hook := h.contents[f.Path], h.readErr[f.Path], h.onRead
	h.mu.Unlock()

	if hook != nil {
		hook(ctx, f)
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

func (h *fakeHost) IterateRootLeaves(fn func(backend.Leaf)) {
	h.mu.Lock()
	leaves := append([]backend.Leaf(nil), h.leaves...)
	h.mu.Unlock()
	for _, l := range leaves {
		fn(l)
	}
}

func (h *fakeHost) resolveCalls(linkpath string) []resolveCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []resolveCall
	for _, c := range h.calls {
		if c.linkpath == linkpath {
			out = append(out, c)
		}
	}
	return out
}

func (h *fakeHost) readCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reads
}

// vaultHost is the shared fixture: a project note with frontmatter, inline
// fields and tags, a second target and an index note linking to both.
func vaultHost() *fakeHost {
	h := newFakeHost()
	h.add("projects/alpha.md", map[string]any{
		"status":  "draft",
		"type":    "project",
		"tags":    []any{"a", "b"},
		"img_url": "http://x/y.png",
	}, "# Alpha\nstatus:: done\nworks with [[beta]] #c\n")
	h.add("beta.md", map[string]any{"status": "active"}, "# Beta\n")
	h.add("notes/index.md", nil, "See [[alpha]], [[alpha|the project]], [[beta#Plan|Beta plan]] and [[missing]].\n")
	return h
}

func settings(attrs ...string) types.Settings {
	s := types.DefaultSettings()
	s.TargetAttributes = attrs
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAnnotator(h *fakeHost, s types.Settings) *Annotator {
	return New(h, s, WithLogger(quietLogger()), WithConcurrency(4))
}

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	root, err := dom.ParseFragmentString(s)
	require.NoError(t, err)
	return root
}

// byID finds the element with the given id under root.
func byID(t *testing.T, root *html.Node, id string) *html.Node {
	t.Helper()
	nodes := dom.QueryAll(root, dom.MustCompile("#"+id))
	require.Len(t, nodes, 1, "element #%s", id)
	return nodes[0]
}

func linkAttrs(n *html.Node) map[string]string {
	return dom.AttrsWithPrefix(n, AttrPrefix)
}
