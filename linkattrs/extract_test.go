package linkattrs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skridlevsky/linkattrs/dom"
	"github.com/skridlevsky/linkattrs/types"
)

func TestResolve(t *testing.T) {
	h := vaultHost()

	got := Resolve(h, "alpha#Plan", "notes/index")
	require.NotNil(t, got)
	assert.Equal(t, "projects/alpha.md", got.Path)
	assert.Equal(t, []resolveCall{{linkpath: "alpha", source: "notes/index"}}, h.resolveCalls("alpha"))

	assert.Nil(t, Resolve(h, "missing", ""))
}

func TestFetchTargetAttributes(t *testing.T) {
	ctx := context.Background()
	alpha := types.NewFile("projects/alpha.md")

	t.Run("frontmatter inline fields and tags", func(t *testing.T) {
		h := vaultHost()
		props, err := FetchTargetAttributes(ctx, h, settings("status", "type", "owner"), alpha, false)
		require.NoError(t, err)
		assert.Equal(t, Props{
			"status": "done",
			"type":   "project",
			"tags":   "a b c",
		}, props)
	})

	t.Run("frontmatter only", func(t *testing.T) {
		h := vaultHost()
		s := settings("status")
		s.GetFromInlineField = false
		s.TargetTags = false
		props, err := FetchTargetAttributes(ctx, h, s, alpha, false)
		require.NoError(t, err)
		assert.Equal(t, Props{"status": "draft"}, props)
		assert.Zero(t, h.readCount(), "raw text is only read for inline fields")
	})

	t.Run("data href", func(t *testing.T) {
		h := vaultHost()
		s := settings()
		s.TargetTags = false
		props, err := FetchTargetAttributes(ctx, h, s, alpha, true)
		require.NoError(t, err)
		assert.Equal(t, Props{"data-href": "alpha"}, props)
		assert.Zero(t, h.readCount(), "no attribute names means nothing to scan for")
	})

	t.Run("inline field without frontmatter", func(t *testing.T) {
		h := newFakeHost()
		f := h.add("n.md", nil, "owner:: [[Hanna]]\nowner::\nowner:: [Sam] \n")
		props, err := FetchTargetAttributes(ctx, h, settings("owner"), f, false)
		require.NoError(t, err)
		assert.Equal(t, "Sam", props["owner"])
		assert.Equal(t, "", props["tags"])
	})

	t.Run("attribute names are literal", func(t *testing.T) {
		h := newFakeHost()
		f := h.add("n.md", nil, "axb:: wrong\na.b:: right\n")
		s := settings("a.b")
		s.TargetTags = false
		props, err := FetchTargetAttributes(ctx, h, s, f, false)
		require.NoError(t, err)
		assert.Equal(t, Props{"a.b": "right"}, props)
	})

	t.Run("no cache", func(t *testing.T) {
		h := newFakeHost()
		props, err := FetchTargetAttributes(ctx, h, settings("status"), types.NewFile("cover.png"), true)
		require.NoError(t, err)
		assert.Empty(t, props)
	})

	t.Run("read error", func(t *testing.T) {
		h := vaultHost()
		h.readErr["projects/alpha.md"] = errDisk
		_, err := FetchTargetAttributes(ctx, h, settings("status"), alpha, false)
		assert.ErrorIs(t, err, errDisk)
	})
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "draft", "draft"},
		{"int", 3, "3"},
		{"float", 2.5, "2.5"},
		{"whole float", 4.0, "4"},
		{"bool", true, "true"},
		{"null", nil, "null"},
		{"list", []any{"a", 1, nil, "b"}, "a,1,,b"},
		{"nested list", []any{"a", []any{"b", "c"}}, "a,b,c"},
		{"date", time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), "2026-01-31"},
		{"timestamp", time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC), "2026-01-31T09:30:00Z"},
		{"object", map[string]any{"b": 2, "a": "x"}, `{"a":"x","b":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stringify(tt.in))
		})
	}
}

func TestReconcile(t *testing.T) {
	root := parse(t, `<a id="l" class="internal-link" href="alpha" data-href="alpha" data-link-old="1" style="color: red">x</a>`)
	a := byID(t, root, "l")

	ClearExtraAttributes(a)
	assert.Empty(t, linkAttrs(a))
	SetLinkNewProps(a, Props{"status": "done", "img_url": "http://x/y.png"})

	assert.Equal(t, map[string]string{
		"data-link-status":  "done",
		"data-link-img_url": "http://x/y.png",
	}, linkAttrs(a))
	v, ok := dom.StyleProperty(a, ImageProperty)
	require.True(t, ok)
	assert.Equal(t, "url('http://x/y.png')", v)

	ClearExtraAttributes(a)
	assert.Empty(t, linkAttrs(a))
	_, ok = dom.StyleProperty(a, ImageProperty)
	assert.False(t, ok, "clearing drops the background image")
	href, _ := dom.Attr(a, "data-href")
	assert.Equal(t, "alpha", href, "data-href is not ours")
	color, _ := dom.Attr(a, "style")
	assert.Equal(t, "color: red;", color)
}

func TestSetLinkNewPropsOrder(t *testing.T) {
	root := parse(t, `<a id="l">x</a>`)
	a := byID(t, root, "l")
	SetLinkNewProps(a, Props{"type": "t", "status": "s", "data-href": "h"})

	var keys []string
	for _, at := range a.Attr {
		keys = append(keys, at.Key)
	}
	assert.Equal(t, []string{"id", "data-link-data-href", "data-link-status", "data-link-type"}, keys)
}
