// Package backend defines the host contracts the link annotator is built
// against, so the core can run over a real vault or over test fakes.
package backend

import (
	"context"

	"golang.org/x/net/html"

	"github.com/skridlevsky/linkattrs/types"
)

// MetadataCache answers metadata and link-resolution queries for notes.
// The vault client (vault.Client) satisfies this interface.
type MetadataCache interface {
	// GetFileCache returns the note's parsed metadata, or nil if it has none.
	GetFileCache(f types.File) *types.FileCache
	// GetFirstLinkpathDest resolves a link path (no #subpath) written in
	// sourcePath, returning nil when nothing matches.
	GetFirstLinkpathDest(linkpath, sourcePath string) *types.File
}

// ContentReader returns the raw text of a note.
type ContentReader interface {
	CachedRead(ctx context.Context, f types.File) (string, error)
}

// Vault is the read side of the host's note store: what metadata
// extraction needs.
type Vault interface {
	MetadataCache
	ContentReader
}

// Leaf is one open pane: the note it shows and the root of its rendered DOM.
type Leaf struct {
	File      *types.File // nil for panes that do not show a note
	Container *html.Node
}

// Workspace enumerates the open panes.
type Workspace interface {
	// IterateRootLeaves calls fn for every top-level pane in display order.
	IterateRootLeaves(fn func(Leaf))
}

// Host bundles the collaborators the link annotator needs.
type Host interface {
	Vault
	Workspace
}

// host adapts separate implementations into a Host.
type host struct {
	MetadataCache
	ContentReader
	Workspace
}

// Compose builds a Host from a vault and a workspace.
func Compose(v Vault, ws Workspace) Host {
	return host{MetadataCache: v, ContentReader: v, Workspace: ws}
}
