package linkattrs

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skridlevsky/linkattrs/backend"
	"github.com/skridlevsky/linkattrs/dom"
	"github.com/skridlevsky/linkattrs/types"
)

const readingFragment = `
<p>
  <a id="a1" class="internal-link" href="alpha" data-link-stale="x">alpha</a>
  <a id="a2" class="internal-link" href="alpha#Plan">the plan</a>
  <a id="b" class="internal-link" href="beta">beta</a>
  <a id="m" class="internal-link" href="missing" data-link-status="old">missing</a>
  <a id="ext" href="https://example.com" data-link-keep="1">site</a>
</p>`

func TestUpdateElLinks(t *testing.T) {
	h := vaultHost()
	a := newAnnotator(h, settings("status", "img_url"))
	root := parse(t, readingFragment)

	a.UpdateElLinks(context.Background(), root, "notes/index.md")

	want := map[string]string{
		"data-link-status":  "done",
		"data-link-img_url": "http://x/y.png",
		"data-link-tags":    "a b c",
	}
	assert.Equal(t, want, linkAttrs(byID(t, root, "a1")), "stale attributes are replaced")
	assert.Equal(t, want, linkAttrs(byID(t, root, "a2")), "subpath is ignored")
	v, ok := dom.StyleProperty(byID(t, root, "a1"), ImageProperty)
	require.True(t, ok)
	assert.Equal(t, "url('http://x/y.png')", v)

	assert.Equal(t, map[string]string{"data-link-status": "active", "data-link-tags": ""}, linkAttrs(byID(t, root, "b")))
	assert.Empty(t, linkAttrs(byID(t, root, "m")), "unresolved link is left cleared")
	assert.Equal(t, map[string]string{"data-link-keep": "1"}, linkAttrs(byID(t, root, "ext")), "only internal links are touched")

	for _, c := range h.resolveCalls("alpha") {
		assert.Equal(t, "notes/index", c.source, "anchors resolve against the source path without .md")
	}
	_, ok = dom.Attr(byID(t, root, "a1"), "data-link-data-href")
	assert.False(t, ok, "anchors carry no data-href")
}

func TestUpdateElLinksIdempotent(t *testing.T) {
	h := vaultHost()
	a := newAnnotator(h, settings("status", "type"))
	root := parse(t, readingFragment)

	a.UpdateElLinks(context.Background(), root, "notes/index.md")
	first, err := dom.RenderChildren(root)
	require.NoError(t, err)

	a.UpdateElLinks(context.Background(), root, "notes/index.md")
	second, err := dom.RenderChildren(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUpdateElLinksEncodedHref(t *testing.T) {
	h := newFakeHost()
	h.add("my note.md", map[string]any{"status": "ok"}, "")
	a := newAnnotator(h, settings("status"))
	root := parse(t, `<a id="l" class="internal-link" href="my%20note.md">My note</a>`)

	a.UpdateElLinks(context.Background(), root, "index.md")
	assert.Equal(t, "ok", linkAttrs(byID(t, root, "l"))["data-link-status"])
}

func TestUpdateElLinksMissingHref(t *testing.T) {
	h := vaultHost()
	a := newAnnotator(h, settings("status"))
	root := parse(t, `<a id="l" class="internal-link" data-link-status="old">x</a>`)

	a.UpdateElLinks(context.Background(), root, "notes/index.md")
	assert.Empty(t, linkAttrs(byID(t, root, "l")))
}

func TestUpdateDivLinks(t *testing.T) {
	fragment := `
<div id="d" class="internal-link">alpha</div>
<table><tbody><tr><td id="td" class="internal-link">beta</td></tr></tbody></table>
<div id="u" class="internal-link" data-link-status="old">nowhere</div>
<div class="nav-file-title"><div id="nav" class="nav-file-title-content" data-link-status="old">alpha</div></div>`

	t.Run("file list disabled", func(t *testing.T) {
		h := vaultHost()
		a := newAnnotator(h, settings("status"))
		root := parse(t, fragment)
		a.UpdateDivLinks(context.Background(), root)

		assert.Equal(t, map[string]string{
			"data-link-status":    "done",
			"data-link-tags":      "a b c",
			"data-link-data-href": "alpha",
		}, linkAttrs(byID(t, root, "d")))
		assert.Equal(t, map[string]string{
			"data-link-status":    "active",
			"data-link-tags":      "",
			"data-link-data-href": "beta",
		}, linkAttrs(byID(t, root, "td")))
		assert.Empty(t, linkAttrs(byID(t, root, "u")))
		assert.Empty(t, linkAttrs(byID(t, root, "nav")), "explorer entries are cleared even when disabled")
	})

	t.Run("file list enabled", func(t *testing.T) {
		h := vaultHost()
		s := settings("status")
		s.EnableFileList = true
		a := newAnnotator(h, s)
		root := parse(t, fragment)
		a.UpdateDivLinks(context.Background(), root)

		assert.Equal(t, map[string]string{
			"data-link-status":    "done",
			"data-link-tags":      "a b c",
			"data-link-data-href": "alpha",
		}, linkAttrs(byID(t, root, "nav")))
	})
}

func TestUpdateEditorLinks(t *testing.T) {
	content := "See [[alpha]], [[alpha|the project]], [[beta#Plan|Beta plan]] and [[missing]].\n"
	offset := func(s string) string { return strconv.Itoa(strings.Index(content, s)) }

	t.Run("identity", func(t *testing.T) {
		h := vaultHost()
		index := types.NewFile("notes/index.md")
		a := newAnnotator(h, settings("status"))
		// Spans out of document order: identity must not care.
		root := parse(t, `<div class="cm-line">
			<span id="plain" class="cm-hmd-internal-link">alpha#Heading|x</span>
			<span id="s2" class="cm-link-alias" data-source-offset="`+offset("[[beta#Plan")+`">Beta plan</span>
			<span class="cm-link-alias" data-source-offset="0">`+"\u200b"+`</span>
			<span id="s1" class="cm-link-alias" data-source-offset="`+offset("[[alpha|")+`">the project</span>
			<span id="s3" class="cm-link-alias" data-source-offset="1" data-link-status="old">stray</span>
		</div>`)

		a.UpdateEditorLinks(context.Background(), root, index)

		assert.Equal(t, "done", linkAttrs(byID(t, root, "plain"))["data-link-status"])
		assert.Equal(t, "alpha", linkAttrs(byID(t, root, "plain"))["data-link-data-href"])
		assert.Equal(t, "done", linkAttrs(byID(t, root, "s1"))["data-link-status"])
		assert.Equal(t, "active", linkAttrs(byID(t, root, "s2"))["data-link-status"])
		assert.Equal(t, "beta", linkAttrs(byID(t, root, "s2"))["data-link-data-href"])
		assert.Empty(t, linkAttrs(byID(t, root, "s3")), "span with unknown offset is cleared")
	})

	t.Run("position", func(t *testing.T) {
		h := vaultHost()
		index := types.NewFile("notes/index.md")
		a := newAnnotator(h, settings("status"))
		root := parse(t, `<div class="cm-line">
			<span id="s1" class="cm-link-alias">the project</span>
			<span class="cm-link-alias">`+"\u200b"+`</span>
			<span id="s2" class="cm-link-alias">Beta plan</span>
		</div>`)

		a.UpdateEditorLinks(context.Background(), root, index)
		assert.Equal(t, "done", linkAttrs(byID(t, root, "s1"))["data-link-status"])
		assert.Equal(t, "active", linkAttrs(byID(t, root, "s2"))["data-link-status"])
	})

	t.Run("position mismatch is skipped", func(t *testing.T) {
		h := vaultHost()
		index := types.NewFile("notes/index.md")
		a := newAnnotator(h, settings("status"))
		root := parse(t, `<div class="cm-line">
			<span id="s1" class="cm-link-alias" data-link-status="old">edited alias</span>
			<span id="s2" class="cm-link-alias">Beta plan</span>
		</div>`)

		a.UpdateEditorLinks(context.Background(), root, index)
		assert.Empty(t, linkAttrs(byID(t, root, "s1")))
		assert.Equal(t, "active", linkAttrs(byID(t, root, "s2"))["data-link-status"])
	})

	t.Run("mixed offsets fall back to position", func(t *testing.T) {
		h := vaultHost()
		index := types.NewFile("notes/index.md")
		a := newAnnotator(h, settings("status"))
		root := parse(t, `<div class="cm-line">
			<span id="s1" class="cm-link-alias" data-source-offset="999">the project</span>
			<span id="s2" class="cm-link-alias">Beta plan</span>
		</div>`)

		a.UpdateEditorLinks(context.Background(), root, index)
		assert.Equal(t, "done", linkAttrs(byID(t, root, "s1"))["data-link-status"])
		assert.Equal(t, "active", linkAttrs(byID(t, root, "s2"))["data-link-status"])
	})

	t.Run("file without cache", func(t *testing.T) {
		h := vaultHost()
		a := newAnnotator(h, settings("status"))
		root := parse(t, `<span id="s1" class="cm-link-alias" data-link-status="old">the project</span>`)

		a.UpdateEditorLinks(context.Background(), root, types.NewFile("unknown.md"))
		assert.Empty(t, linkAttrs(byID(t, root, "s1")))
	})
}

func TestUpdateVisibleLinks(t *testing.T) {
	h := vaultHost()
	index := types.NewFile("notes/index.md")
	pane := parse(t, `
		<a id="a1" class="internal-link" href="alpha" data-link-status="old">alpha</a>
		<a id="a2" class="internal-link" href="alpha">alpha again</a>
		<a id="b" class="internal-link" href="beta#Plan">Beta plan</a>
		<a id="gone" class="internal-link" href="deleted" data-link-status="old">deleted</a>
		<a id="m" class="internal-link" href="missing">missing</a>`)
	explorer := parse(t, `<a id="x" class="internal-link" href="alpha" data-link-status="old">alpha</a>`)
	h.leaves = []backend.Leaf{
		{File: &index, Container: pane},
		{Container: explorer},
	}

	a := newAnnotator(h, settings("status"))
	a.UpdateVisibleLinks(context.Background())

	assert.Equal(t, "done", linkAttrs(byID(t, pane, "a1"))["data-link-status"])
	assert.Equal(t, "done", linkAttrs(byID(t, pane, "a2"))["data-link-status"])
	assert.Equal(t, "active", linkAttrs(byID(t, pane, "b"))["data-link-status"])
	assert.Empty(t, linkAttrs(byID(t, pane, "gone")), "anchor not in the note's links is cleared")
	assert.Empty(t, linkAttrs(byID(t, pane, "m")))
	assert.Empty(t, linkAttrs(byID(t, explorer, "x")), "panes without a note are only cleared")

	// [[alpha]] and [[alpha|the project]] share the link text "alpha".
	assert.Len(t, h.resolveCalls("alpha"), 1, "each link text is resolved once")
	assert.Equal(t, "notes/index", h.resolveCalls("alpha")[0].source)
}

func TestSetSettings(t *testing.T) {
	h := vaultHost()
	a := newAnnotator(h, settings("status"))
	root := parse(t, `<a id="l" class="internal-link" href="alpha">alpha</a>`)

	a.UpdateElLinks(context.Background(), root, "index.md")
	assert.Equal(t, "done", linkAttrs(byID(t, root, "l"))["data-link-status"])

	s := settings("type")
	s.TargetTags = false
	a.SetSettings(s)
	s.TargetAttributes[0] = "mutated"

	a.UpdateElLinks(context.Background(), root, "index.md")
	assert.Equal(t, map[string]string{"data-link-type": "project"}, linkAttrs(byID(t, root, "l")))
	assert.Equal(t, []string{"type"}, a.Settings().TargetAttributes, "settings are copied on set")
}

func TestReadFailureLeavesElementCleared(t *testing.T) {
	h := vaultHost()
	h.readErr["projects/alpha.md"] = errDisk
	a := newAnnotator(h, settings("status"))
	root := parse(t, `<a id="l" class="internal-link" href="alpha" data-link-status="old">alpha</a>`)

	a.UpdateElLinks(context.Background(), root, "index.md")
	assert.Empty(t, linkAttrs(byID(t, root, "l")))
	assert.Empty(t, a.gens, "no generation is left behind")
}

func TestCancelledSweepLeavesElementsCleared(t *testing.T) {
	h := vaultHost()
	a := newAnnotator(h, settings("status"))
	root := parse(t, readingFragment)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.UpdateElLinks(ctx, root, "notes/index.md")

	for _, id := range []string{"a1", "a2", "b", "m"} {
		assert.Empty(t, linkAttrs(byID(t, root, id)), id)
	}
	assert.Zero(t, h.readCount())
	assert.Empty(t, a.gens)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	h := vaultHost()
	root := parse(t, `<a id="l" class="internal-link" href="alpha">alpha</a>`)
	a := newAnnotator(h, settings("status"))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.onRead = func(ctx context.Context, f types.File) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.UpdateElLinks(context.Background(), root, "index.md")
	}()

	// The first sweep has read "done" and is stuck before applying it.
	<-entered
	h.setContent("projects/alpha.md", "status:: shipped\n")
	a.UpdateElLinks(context.Background(), root, "index.md")

	a.mu.Lock()
	got := linkAttrs(byID(t, root, "l"))["data-link-status"]
	a.mu.Unlock()
	assert.Equal(t, "shipped", got)

	close(release)
	<-done

	assert.Equal(t, "shipped", linkAttrs(byID(t, root, "l"))["data-link-status"], "older result must not overwrite newer")
	assert.Empty(t, a.gens)
}

func TestConcurrentSweeps(t *testing.T) {
	h := vaultHost()
	a := newAnnotator(h, settings("status"))
	root := parse(t, readingFragment)
	index := types.NewFile("notes/index.md")
	h.leaves = []backend.Leaf{{File: &index, Container: root}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.UpdateElLinks(context.Background(), root, "notes/index.md")
		}()
		go func() {
			defer wg.Done()
			a.UpdateVisibleLinks(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, "done", linkAttrs(byID(t, root, "a1"))["data-link-status"])
	assert.Equal(t, "active", linkAttrs(byID(t, root, "b"))["data-link-status"])
	assert.Empty(t, a.gens)
}
