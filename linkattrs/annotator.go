package linkattrs

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/net/html"

	"github.com/skridlevsky/linkattrs/backend"
	"github.com/skridlevsky/linkattrs/dom"
	"github.com/skridlevsky/linkattrs/parser"
	"github.com/skridlevsky/linkattrs/types"
)

// DefaultConcurrency bounds the extractions a single sweep runs at once.
const DefaultConcurrency = 8

// zeroWidthSpace is the text of the placeholder alias spans live preview
// inserts next to real ones.
const zeroWidthSpace = "\u200b"

var (
	divLinkSelector     = dom.MustCompile("div.internal-link, td.internal-link")
	fileTitleSelector   = dom.MustCompile("div.nav-file-title-content")
	editorLinkSelector  = dom.MustCompile("span.cm-hmd-internal-link")
	editorAliasSelector = dom.MustCompile("span.cm-link-alias")
	anchorLinkSelector  = dom.MustCompile("a.internal-link")
)

// Annotator runs the link sweeps over a host. It is safe for concurrent
// use: sweeps may overlap, and a result computed for an element that has
// since been cleared again is dropped instead of overwriting the newer one.
type Annotator struct {
	host     backend.Host
	settings atomic.Pointer[types.Settings]
	logger   *slog.Logger
	workers  int

	mu   sync.Mutex // guards every DOM read and write, and gens
	seq  uint64
	gens map[*html.Node]uint64 // element → generation of its pending extraction
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(a *Annotator) { a.logger = l }
}

// WithConcurrency bounds concurrent extractions per sweep
// (default: DefaultConcurrency).
func WithConcurrency(n int) Option {
	return func(a *Annotator) {
		if n < 1 {
			n = 1
		}
		a.workers = n
	}
}

// New creates an Annotator over host using settings.
func New(host backend.Host, settings types.Settings, opts ...Option) *Annotator {
	a := &Annotator{
		host:    host,
		logger:  slog.Default(),
		workers: DefaultConcurrency,
		gens:    make(map[*html.Node]uint64),
	}
	a.SetSettings(settings)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetSettings replaces the settings used by sweeps started afterwards.
// Sweeps already running keep the settings they started with.
func (a *Annotator) SetSettings(s types.Settings) {
	c := s.Clone()
	a.settings.Store(&c)
}

// Settings returns a copy of the current settings.
func (a *Annotator) Settings() types.Settings {
	return a.settings.Load().Clone()
}

// ViewDOM runs fn while no sweep is reading or writing the DOM. Use it to
// render nodes that sweeps may be updating.
func (a *Annotator) ViewDOM(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn()
}

// target is an element waiting for an extraction result.
type target struct {
	node *html.Node
	gen  uint64
}

// job is one extraction whose result goes to one or more elements.
type job struct {
	dest        types.File
	addDataHref bool
	targets     []target
}

// pendingLink is an element cleared under the lock, waiting to be resolved.
type pendingLink struct {
	target
	linktext    string
	source      string
	addDataHref bool
}

// clearLocked clears n and starts a new generation for it, invalidating
// any extraction still in flight. Caller holds mu.
func (a *Annotator) clearLocked(n *html.Node) target {
	ClearExtraAttributes(n)
	a.seq++
	a.gens[n] = a.seq
	return target{node: n, gen: a.seq}
}

// settleLocked ends the generation of t. It reports false when t is stale.
// Caller holds mu.
func (a *Annotator) settleLocked(t target) bool {
	if a.gens[t.node] != t.gen {
		return false
	}
	delete(a.gens, t.node)
	return true
}

// UpdateDivLinks annotates div.internal-link and td.internal-link elements
// under root, resolving their text content. File explorer titles
// (div.nav-file-title-content) are always cleared and only annotated when
// EnableFileList is set.
func (a *Annotator) UpdateDivLinks(ctx context.Context, root *html.Node) {
	s := a.Settings()

	a.mu.Lock()
	var pending []pendingLink
	seen := make(map[*html.Node]bool)
	for _, n := range dom.QueryAll(root, divLinkSelector) {
		seen[n] = true
		pending = append(pending, pendingLink{
			target:      a.clearLocked(n),
			linktext:    dom.TextContent(n),
			addDataHref: true,
		})
	}
	for _, n := range dom.QueryAll(root, fileTitleSelector) {
		if seen[n] {
			continue
		}
		t := a.clearLocked(n)
		if !s.EnableFileList {
			a.settleLocked(t)
			continue
		}
		pending = append(pending, pendingLink{target: t, linktext: dom.TextContent(n), addDataHref: true})
	}
	a.mu.Unlock()

	a.run(ctx, "div", s, a.resolveAll(pending))
}

// UpdateEditorLinks annotates the live-preview link spans under el, which
// shows file. Plain link spans are resolved from their text. Aliased spans
// only show the alias, so they are matched to file's aliased links: by the
// source offset each span carries when all of them do, otherwise by
// position, skipping a span whose text differs from the link's alias.
func (a *Annotator) UpdateEditorLinks(ctx context.Context, el *html.Node, file types.File) {
	s := a.Settings()
	cache := a.host.GetFileCache(file)

	a.mu.Lock()
	var pending []pendingLink
	for _, n := range dom.QueryAll(el, editorLinkSelector) {
		pending = append(pending, pendingLink{
			target:      a.clearLocked(n),
			linktext:    parser.EditorLinkText(dom.TextContent(n)),
			source:      file.Path,
			addDataHref: true,
		})
	}

	var spans []*html.Node
	for _, n := range dom.QueryAll(el, editorAliasSelector) {
		if dom.TextContent(n) != zeroWidthSpace {
			spans = append(spans, n)
		}
	}
	var aliased []types.LinkCache
	if cache != nil {
		for _, l := range cache.Links {
			if l.Aliased() {
				aliased = append(aliased, l)
			}
		}
	}
	for i, link := range correlateAliases(spans, aliased) {
		t := a.clearLocked(spans[i])
		if link == nil {
			a.settleLocked(t)
			continue
		}
		pending = append(pending, pendingLink{
			target:      t,
			linktext:    link.Link,
			source:      file.Path,
			addDataHref: true,
		})
	}
	a.mu.Unlock()

	a.run(ctx, "editor", s, a.resolveAll(pending))
}

// correlateAliases pairs each alias span with the link it shows, or nil.
func correlateAliases(spans []*html.Node, aliased []types.LinkCache) []*types.LinkCache {
	out := make([]*types.LinkCache, len(spans))
	if len(spans) == 0 {
		return out
	}

	offsets := make([]int, len(spans))
	identified := true
	for i, n := range spans {
		v, ok := dom.Attr(n, types.SourceOffsetAttr)
		off, err := strconv.Atoi(v)
		if !ok || err != nil {
			identified = false
			break
		}
		offsets[i] = off
	}

	if identified {
		byOffset := make(map[int]*types.LinkCache, len(aliased))
		for i := range aliased {
			byOffset[aliased[i].Position.Start.Offset] = &aliased[i]
		}
		for i, off := range offsets {
			out[i] = byOffset[off]
		}
		return out
	}

	for i := range aliased {
		if i >= len(spans) {
			break
		}
		if dom.TextContent(spans[i]) == aliased[i].DisplayText {
			out[i] = &aliased[i]
		}
	}
	return out
}

// UpdateElLinks annotates the a.internal-link anchors of a reading-view
// fragment rendered from sourcePath. Targets come from each href, without
// its #subpath.
func (a *Annotator) UpdateElLinks(ctx context.Context, el *html.Node, sourcePath string) {
	s := a.Settings()
	source := sourceContext(sourcePath)

	a.mu.Lock()
	var pending []pendingLink
	for _, n := range dom.QueryAll(el, anchorLinkSelector) {
		t := a.clearLocked(n)
		href, ok := dom.Attr(n, "href")
		if !ok {
			a.settleLocked(t)
			continue
		}
		pending = append(pending, pendingLink{target: t, linktext: hrefTarget(href), source: source})
	}
	a.mu.Unlock()

	a.run(ctx, "anchor", s, a.resolveAll(pending))
}

// UpdateVisibleLinks clears every a.internal-link anchor of every open
// pane, then re-annotates the anchors of panes showing a note. Each link
// recorded in the note is resolved once and applied to every anchor whose
// href is that link.
func (a *Annotator) UpdateVisibleLinks(ctx context.Context) {
	s := a.Settings()

	type paneLinks struct {
		file    types.File
		anchors map[string][]target // decoded href → anchors
	}
	var panes []paneLinks

	a.mu.Lock()
	a.host.IterateRootLeaves(func(leaf backend.Leaf) {
		anchors := make(map[string][]target)
		for _, n := range dom.QueryAll(leaf.Container, anchorLinkSelector) {
			t := a.clearLocked(n)
			href, ok := dom.Attr(n, "href")
			if !ok || leaf.File == nil {
				a.settleLocked(t)
				continue
			}
			key := hrefTarget(href)
			anchors[key] = append(anchors[key], t)
		}
		if leaf.File != nil {
			panes = append(panes, paneLinks{file: *leaf.File, anchors: anchors})
		}
	})
	a.mu.Unlock()

	var jobs []job
	var unmatched []target
	for _, p := range panes {
		cache := a.host.GetFileCache(p.file)
		claimed := make(map[string]bool)
		if cache != nil {
			source := p.file.PathWithoutExt()
			for _, l := range cache.Links {
				if claimed[l.Link] {
					continue
				}
				claimed[l.Link] = true
				targets := p.anchors[l.Link]
				if len(targets) == 0 {
					continue
				}
				dest := Resolve(a.host, l.Link, source)
				if dest == nil {
					a.logger.Debug("unresolved link", slog.String("link", l.Link), slog.String("source", p.file.Path))
					unmatched = append(unmatched, targets...)
					continue
				}
				jobs = append(jobs, job{dest: *dest, targets: targets})
			}
		}
		for href, targets := range p.anchors {
			if !claimed[href] {
				unmatched = append(unmatched, targets...)
			}
		}
	}
	a.settle(unmatched)

	a.run(ctx, "visible", s, jobs)
}

// resolveAll resolves pending elements into extraction jobs, one per
// element. Unresolved elements stay cleared.
func (a *Annotator) resolveAll(pending []pendingLink) []job {
	jobs := make([]job, 0, len(pending))
	var unresolved []target
	for _, p := range pending {
		dest := Resolve(a.host, p.linktext, p.source)
		if dest == nil {
			a.logger.Debug("unresolved link", slog.String("link", p.linktext), slog.String("source", p.source))
			unresolved = append(unresolved, p.target)
			continue
		}
		jobs = append(jobs, job{dest: *dest, addDataHref: p.addDataHref, targets: []target{p.target}})
	}
	a.settle(unresolved)
	return jobs
}

// settle ends the generations of targets that will get no result.
func (a *Annotator) settle(targets []target) {
	if len(targets) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range targets {
		a.settleLocked(t)
	}
}

// run executes jobs on a bounded pool and waits for all of them.
func (a *Annotator) run(ctx context.Context, sweep string, s types.Settings, jobs []job) {
	var applied, stale atomic.Int64
	if len(jobs) > 0 {
		p := pool.New().WithMaxGoroutines(a.workers).WithContext(ctx)
		for _, j := range jobs {
			p.Go(func(ctx context.Context) error {
				ok, dropped := a.extract(ctx, s, j)
				applied.Add(int64(ok))
				stale.Add(int64(dropped))
				return nil
			})
		}
		_ = p.Wait()
	}
	a.logger.Debug("sweep done",
		slog.String("sweep", sweep),
		slog.Int("jobs", len(jobs)),
		slog.Int64("applied", applied.Load()),
		slog.Int64("stale", stale.Load()),
	)
}

// extract fetches the mapping for one job and applies it to every target
// whose generation is still current. It returns how many targets were
// updated and how many were stale.
func (a *Annotator) extract(ctx context.Context, s types.Settings, j job) (applied, stale int) {
	var props Props
	if err := ctx.Err(); err == nil {
		props, err = FetchTargetAttributes(ctx, a.host, s, j.dest, j.addDataHref)
		if err != nil {
			a.logger.Warn("fetch target attributes failed",
				slog.String("target", j.dest.Path),
				slog.Any("error", err),
			)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range j.targets {
		if !a.settleLocked(t) {
			stale++
			continue
		}
		if props != nil {
			SetLinkNewProps(t.node, props)
			applied++
		}
	}
	return applied, stale
}
