package htmlconv

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/livefir/livelayout/internal/dom"
)

// ToNode converts the reachable part of doc into an x/net/html tree rooted at
// a document node.
func ToNode(doc *dom.Document) *html.Node {
	root := &html.Node{Type: html.DocumentNode}
	if dt := doc.Doctype(); dt != nil {
		n := &html.Node{Type: html.DoctypeNode, Data: dt.Name}
		if dt.PublicID != "" {
			n.Attr = append(n.Attr, html.Attribute{Key: "public", Val: dt.PublicID})
		}
		if dt.SystemID != "" {
			n.Attr = append(n.Attr, html.Attribute{Key: "system", Val: dt.SystemID})
		}
		root.AppendChild(n)
	}
	for _, c := range doc.Children(dom.Root) {
		root.AppendChild(toNode(doc, c))
	}
	return root
}

func toNode(doc *dom.Document, id dom.NodeID) *html.Node {
	var n *html.Node
	switch doc.Kind(id) {
	case dom.ElementNode:
		tag := doc.Tag(id)
		n = &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
		for _, a := range doc.Attrs(id) {
			n.Attr = append(n.Attr, html.Attribute{Key: a.Key, Val: a.Val})
		}
	case dom.TextNode:
		n = &html.Node{Type: html.TextNode, Data: doc.Data(id)}
	case dom.CommentNode:
		n = &html.Node{Type: html.CommentNode, Data: doc.Data(id)}
	case dom.ProcessingInstructionNode:
		n = &html.Node{Type: html.RawNode, Data: "<?" + doc.Data(id) + "?>"}
	default:
		panic(fmt.Sprintf("htmlconv: unexpected %s node %d", doc.Kind(id), id))
	}
	for _, c := range doc.Children(id) {
		n.AppendChild(toNode(doc, c))
	}
	return n
}

// Render writes doc as HTML to w
func Render(w io.Writer, doc *dom.Document) error {
	if err := html.Render(w, ToNode(doc)); err != nil {
		return fmt.Errorf("failed to render %s: %w", doc.Name, err)
	}
	return nil
}

// RenderString renders doc to a string
func RenderString(doc *dom.Document) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
