package dom

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
)

// declaration is one "name: value" pair of an inline style.
type declaration struct {
	name  string
	value string
}

// parseStyle reads the declarations of an inline style attribute.
// Malformed declarations are dropped.
func parseStyle(style string) []declaration {
	var decls []declaration
	p := css.NewParser(parse.NewInputString(style), true)
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if !p.HasParseError() {
				return decls
			}
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			var value strings.Builder
			for _, tok := range p.Values() {
				value.Write(tok.Data)
			}
			decls = append(decls, declaration{
				name:  string(data),
				value: strings.TrimSpace(value.String()),
			})
		}
	}
}

func formatStyle(decls []declaration) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.name + ": " + d.value + ";"
	}
	return strings.Join(parts, " ")
}

// StyleProperty returns the value of an inline style property.
func StyleProperty(n *html.Node, name string) (string, bool) {
	style, _ := Attr(n, "style")
	for _, d := range parseStyle(style) {
		if d.name == name {
			return d.value, true
		}
	}
	return "", false
}

// SetStyleProperty sets one inline style property, keeping the others.
func SetStyleProperty(n *html.Node, name, value string) {
	style, _ := Attr(n, "style")
	decls := parseStyle(style)
	found := false
	for i := range decls {
		if decls[i].name == name {
			decls[i].value = value
			found = true
		}
	}
	if !found {
		decls = append(decls, declaration{name: name, value: value})
	}
	SetAttr(n, "style", formatStyle(decls))
}

// RemoveStyleProperty deletes one inline style property. The style
// attribute is dropped when nothing is left.
func RemoveStyleProperty(n *html.Node, name string) {
	style, ok := Attr(n, "style")
	if !ok {
		return
	}
	decls := parseStyle(style)
	out := decls[:0]
	for _, d := range decls {
		if d.name != name {
			out = append(out, d)
		}
	}
	if len(out) == len(decls) {
		return
	}
	if len(out) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", formatStyle(out))
}
