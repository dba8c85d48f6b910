package linkattrs

import (
	"net/url"
	"strings"

	"github.com/skridlevsky/linkattrs/backend"
	"github.com/skridlevsky/linkattrs/parser"
	"github.com/skridlevsky/linkattrs/types"
)

// Resolve finds the note a link points to. Any #heading or #^block
// subpath is ignored. It returns nil when the link is unresolved.
func Resolve(cache backend.MetadataCache, linktext, sourcePath string) *types.File {
	return cache.GetFirstLinkpathDest(parser.LinkPath(linktext), sourcePath)
}

// sourceContext turns a note path into the context path the reading view
// resolves anchors against: the path without its ".md" extension.
func sourceContext(sourcePath string) string {
	return strings.TrimSuffix(sourcePath, ".md")
}

// hrefTarget decodes the link target of an anchor href. Rendered markdown
// links are percent-encoded; wiki links are not.
func hrefTarget(href string) string {
	if dec, err := url.PathUnescape(href); err == nil {
		return dec
	}
	return href
}
