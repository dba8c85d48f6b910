package types

import (
	"path"
	"strings"
)

// File is a handle to a note in the vault.
type File struct {
	Path      string `json:"path"`      // vault-relative, "/"-separated
	Basename  string `json:"basename"`  // file name without extension
	Extension string `json:"extension"` // without the leading dot
}

// NewFile builds a File from a vault-relative path.
func NewFile(p string) File {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
	name := path.Base(p)
	ext := path.Ext(name)
	return File{
		Path:      p,
		Basename:  strings.TrimSuffix(name, ext),
		Extension: strings.TrimPrefix(ext, "."),
	}
}

// Dir returns the folder containing the file ("" for the vault root).
func (f File) Dir() string {
	d := path.Dir(f.Path)
	if d == "." {
		return ""
	}
	return d
}

// PathWithoutExt returns the vault path with the ".md" suffix removed.
func (f File) PathWithoutExt() string {
	return strings.TrimSuffix(f.Path, ".md")
}

// Loc is a position in a note's raw text.
type Loc struct {
	Line   int `json:"line"` // zero-based
	Col    int `json:"col"`
	Offset int `json:"offset"` // byte offset from start of file
}

// Position spans a range of raw text.
type Position struct {
	Start Loc `json:"start"`
	End   Loc `json:"end"`
}

// LinkCache is one link occurrence recorded in a note.
type LinkCache struct {
	Link        string   `json:"link"`        // link path including any #subpath
	Original    string   `json:"original"`    // raw source text, e.g. "[[a|b]]"
	DisplayText string   `json:"displayText"` // alias, or Link when unaliased
	Position    Position `json:"position"`
}

// Aliased reports whether the link's visible text differs from its target.
func (l LinkCache) Aliased() bool {
	return l.DisplayText != l.Link
}

// TagCache is one inline #tag occurrence.
type TagCache struct {
	Tag      string   `json:"tag"` // includes the leading '#'
	Position Position `json:"position"`
}

// FileCache is the parsed metadata of a note.
type FileCache struct {
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Links       []LinkCache    `json:"links,omitempty"`
	Tags        []TagCache     `json:"tags,omitempty"`
}

// SourceOffsetAttr carries, on a rendered link element, the byte offset of
// the link in the note source. It lets rendered spans be matched to
// LinkCache entries by identity instead of by position.
const SourceOffsetAttr = "data-source-offset"
