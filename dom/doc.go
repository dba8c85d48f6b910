// Package dom provides the small set of DOM primitives the link annotator
// needs on top of golang.org/x/net/html: CSS selection, attribute and
// inline-style editing, text content, and fragment parsing/rendering.
//
// Nodes are not safe for concurrent use; callers serialize mutation.
package dom
