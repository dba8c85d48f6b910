package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewContainer returns a detached <div> with the given class.
func NewContainer(class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	if class != "" {
		SetAttr(n, "class", class)
	}
	return n
}

// ParseFragment parses an HTML fragment into a detached <div> container.
// Table parts (<td>, <tr>, ...) are parsed in the table context they need
// instead of being dropped.
func ParseFragment(r io.Reader) (*html.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html fragment: %w", err)
	}
	nodes, err := html.ParseFragment(bytes.NewReader(src), fragmentContext(src))
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	container := NewContainer("")
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// tableContexts maps a table part to the element it must be parsed in.
var tableContexts = map[atom.Atom]atom.Atom{
	atom.Td:       atom.Tr,
	atom.Th:       atom.Tr,
	atom.Tr:       atom.Tbody,
	atom.Tbody:    atom.Table,
	atom.Thead:    atom.Table,
	atom.Tfoot:    atom.Table,
	atom.Caption:  atom.Table,
	atom.Colgroup: atom.Table,
	atom.Col:      atom.Colgroup,
}

// fragmentContext picks the parsing context from the first start tag.
func fragmentContext(src []byte) *html.Node {
	ctx := atom.Div
	z := html.NewTokenizer(bytes.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, _ := z.TagName()
		if c, ok := tableContexts[atom.Lookup(name)]; ok {
			ctx = c
		}
		break
	}
	return &html.Node{Type: html.ElementNode, Data: ctx.String(), DataAtom: ctx}
}

// ParseFragmentString is ParseFragment over a string.
func ParseFragmentString(s string) (*html.Node, error) {
	return ParseFragment(strings.NewReader(s))
}

// RenderChildren serializes the children of n (its inner HTML).
func RenderChildren(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}
