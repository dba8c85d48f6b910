package linkattrs

import (
	"sort"

	"golang.org/x/net/html"

	"github.com/skridlevsky/linkattrs/dom"
)

// AttrPrefix marks the attributes owned by this package. Nothing else may
// write attributes under it.
const AttrPrefix = "data-link"

const (
	// ImageKey is the attribute whose value also becomes the element's
	// background image.
	ImageKey = "img_url"
	// ImageProperty is the inline style custom property set from ImageKey.
	ImageProperty = "--bg-img"
)

// ClearExtraAttributes removes every data-link* attribute from n, and the
// background image property derived from ImageKey.
func ClearExtraAttributes(n *html.Node) {
	dom.RemoveAttrsWithPrefix(n, AttrPrefix)
	dom.RemoveStyleProperty(n, ImageProperty)
}

// SetLinkNewProps writes data-link-<key> for every entry of props, in key
// order. ImageKey additionally sets --bg-img: url('<value>').
func SetLinkNewProps(n *html.Node, props Props) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		dom.SetAttr(n, AttrPrefix+"-"+k, props[k])
		if k == ImageKey {
			dom.SetStyleProperty(n, ImageProperty, "url('"+props[k]+"')")
		}
	}
}
