// Package workspace tracks the panes currently open on rendered notes.
package workspace

import (
	"sync"

	"golang.org/x/net/html"

	"github.com/skridlevsky/linkattrs/backend"
	"github.com/skridlevsky/linkattrs/types"
)

// Pane identifies an open pane.
type Pane int

// Workspace is an ordered set of open panes. It is safe for concurrent use.
type Workspace struct {
	mu     sync.RWMutex
	next   Pane
	order  []Pane
	leaves map[Pane]backend.Leaf
}

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{leaves: make(map[Pane]backend.Leaf)}
}

// Open adds a pane showing container. file may be nil for panes that do
// not show a note (e.g. the file explorer).
func (w *Workspace) Open(file *types.File, container *html.Node) Pane {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	id := w.next
	w.order = append(w.order, id)
	w.leaves[id] = backend.Leaf{File: file, Container: container}
	return id
}

// Replace swaps the contents of an open pane, e.g. after re-rendering.
// It reports false when the pane is not open.
func (w *Workspace) Replace(id Pane, file *types.File, container *html.Node) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.leaves[id]; !ok {
		return false
	}
	w.leaves[id] = backend.Leaf{File: file, Container: container}
	return true
}

// Close removes a pane. Closing an unknown pane is a no-op.
func (w *Workspace) Close(id Pane) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.leaves[id]; !ok {
		return
	}
	delete(w.leaves, id)
	for i, p := range w.order {
		if p == id {
			w.order = append(w.order[:i:i], w.order[i+1:]...)
			break
		}
	}
}

// Leaf returns the contents of an open pane.
func (w *Workspace) Leaf(id Pane) (backend.Leaf, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	l, ok := w.leaves[id]
	return l, ok
}

// Len returns the number of open panes.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.order)
}

// IterateRootLeaves calls fn for every open pane in the order they were
// opened. fn runs on a snapshot, so it may open or close panes.
func (w *Workspace) IterateRootLeaves(fn func(backend.Leaf)) {
	w.mu.RLock()
	leaves := make([]backend.Leaf, 0, len(w.order))
	for _, id := range w.order {
		leaves = append(leaves, w.leaves[id])
	}
	w.mu.RUnlock()

	for _, l := range leaves {
		fn(l)
	}
}
