// Package htmltree mirrors an HTML document parsed by golang.org/x/net/html as
// a worktime.Node tree and writes rewritten text back into the document.
package htmltree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DocumentTag is the tag given to the mirror of the document node.
const DocumentTag = "#document"

var (
	// ErrParse wraps failures of the HTML parser.
	ErrParse = errors.New("html parse failed")
	// ErrUnknownNode is returned when a worktime node does not belong to the
	// document it is used with.
	ErrUnknownNode = errors.New("node is not part of this document")
)

// Document pairs a parsed HTML tree with its worktime mirror. Element and
// document nodes become containers, text nodes become text nodes; comments and
// doctypes are not mirrored.
type Document struct {
	HTML *html.Node
	Root *worktime.Node

	toHTML   map[*worktime.Node]*html.Node
	toMirror map[*html.Node]*worktime.Node
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	hn, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return FromNode(hn), nil
}

// ParseString is Parse for an in-memory document.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// FromNode mirrors an already parsed tree rooted at hn.
func FromNode(hn *html.Node) *Document {
	d := &Document{
		HTML:     hn,
		toHTML:   make(map[*worktime.Node]*html.Node),
		toMirror: make(map[*html.Node]*worktime.Node),
	}
	d.Root = d.mirror(hn)
	return d
}

func (d *Document) mirror(hn *html.Node) *worktime.Node {
	var n *worktime.Node
	switch hn.Type {
	case html.TextNode:
		n = worktime.NewText(hn.Data)
	case html.DocumentNode:
		n = worktime.NewContainer(DocumentTag)
	case html.ElementNode:
		n = worktime.NewContainer(hn.Data)
	default:
		return nil
	}
	d.toHTML[n] = hn
	d.toMirror[hn] = n
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if m := d.mirror(c); m != nil {
			n.AppendChild(m)
		}
	}
	return n
}

// MirrorOf returns the worktime node standing for hn, or nil when hn is not
// mirrored.
func (d *Document) MirrorOf(hn *html.Node) *worktime.Node {
	return d.toMirror[hn]
}

// HTMLOf returns the HTML node a worktime node stands for.
func (d *Document) HTMLOf(n *worktime.Node) *html.Node {
	return d.toHTML[n]
}

// Body returns the mirror of the <body> element, or Root when the document has
// none.
func (d *Document) Body() *worktime.Node {
	if b := findAtom(d.HTML, atom.Body); b != nil {
		if m := d.toMirror[b]; m != nil {
			return m
		}
	}
	return d.Root
}

func findAtom(hn *html.Node, a atom.Atom) *html.Node {
	if hn.Type == html.ElementNode && hn.DataAtom == a {
		return hn
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}

// Sync copies the content of every mirrored text node back into the HTML
// tree.
func (d *Document) Sync() {
	for n, hn := range d.toHTML {
		if n.IsText() {
			hn.Data = n.Content
		}
	}
}

// Render syncs the document and writes it to w.
func (d *Document) Render(w io.Writer) error {
	d.Sync()
	return html.Render(w, d.HTML)
}

// RenderString renders the document into a string.
func (d *Document) RenderString() (string, error) {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// AppendHTML parses fragment in the context of parent, appends the resulting
// nodes to both trees and returns the mirrors of the inserted subtree roots.
// This is how a host reports newly inserted content.
func (d *Document) AppendHTML(parent *worktime.Node, fragment string) ([]*worktime.Node, error) {
	hp, ok := d.toHTML[parent]
	if !ok || parent.Kind != worktime.KindContainer {
		return nil, ErrUnknownNode
	}

	ctxNode := hp
	if hp.Type != html.ElementNode {
		ctxNode = &html.Node{Type: html.ElementNode, Data: atom.Body.String(), DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctxNode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	inserted := make([]*worktime.Node, 0, len(nodes))
	for _, hn := range nodes {
		hp.AppendChild(hn)
		if m := d.mirror(hn); m != nil {
			parent.AppendChild(m)
			inserted = append(inserted, m)
		}
	}
	return inserted, nil
}
