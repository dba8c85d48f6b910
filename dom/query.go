package dom

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Matcher selects elements.
type Matcher = cascadia.Matcher

// MustCompile compiles a CSS selector group ("div.a, td.a") or panics.
func MustCompile(selector string) Matcher {
	return cascadia.MustCompile(selector)
}

// QueryAll returns the descendants of root matching m, in document order.
// root itself is never included.
func QueryAll(root *html.Node, m Matcher) []*html.Node {
	if root == nil {
		return nil
	}
	return cascadia.QueryAll(root, m)
}
