// Package domtest builds dom documents declaratively and dumps them to a
// compact markup string for assertions.
package domtest

import (
	"strings"

	"github.com/livefir/livelayout/internal/dom"
)

// Item contributes to the node being built
type Item interface {
	build(d *dom.Document, parent dom.NodeID)
}

type attrItem dom.Attr

func (a attrItem) build(d *dom.Document, parent dom.NodeID) {
	d.SetAttr(parent, a.Key, a.Val)
}

type elemItem struct {
	tag   string
	items []Item
}

func (e elemItem) build(d *dom.Document, parent dom.NodeID) {
	id := d.CreateElement(e.tag)
	d.AppendChild(parent, id)
	for _, it := range e.items {
		it.build(d, id)
	}
}

type textItem string

func (t textItem) build(d *dom.Document, parent dom.NodeID) {
	d.AppendChild(parent, d.CreateText(string(t)))
}

type commentItem string

func (c commentItem) build(d *dom.Document, parent dom.NodeID) {
	d.AppendChild(parent, d.CreateComment(string(c)))
}

type piItem string

func (p piItem) build(d *dom.Document, parent dom.NodeID) {
	d.AppendChild(parent, d.CreateProcessingInstruction(string(p)))
}

type doctypeItem string

func (dt doctypeItem) build(d *dom.Document, _ dom.NodeID) {
	d.SetDoctype(&dom.Doctype{Name: string(dt)})
}

// A sets an attribute on the enclosing element
func A(key, val string) Item { return attrItem{Key: key, Val: val} }

// E appends an element with the given attributes and children
func E(tag string, items ...Item) Item { return elemItem{tag: tag, items: items} }

// T appends a text node
func T(text string) Item { return textItem(text) }

// C appends a comment
func C(text string) Item { return commentItem(text) }

// PI appends a processing instruction
func PI(data string) Item { return piItem(data) }

// Doctype records a doctype on the document; only valid at document level.
func Doctype(name string) Item { return doctypeItem(name) }

// Doc builds a document named name from top-level items
func Doc(name string, items ...Item) *dom.Document {
	d := dom.NewDocument(name)
	for _, it := range items {
		it.build(d, dom.Root)
	}
	return d
}

// Dump renders the subtree at id. Attributes keep their order and values are
// not escaped.
func Dump(d *dom.Document, id dom.NodeID) string {
	var sb strings.Builder
	dump(&sb, d, id)
	return sb.String()
}

// DumpDocument renders the whole document including its doctype
func DumpDocument(d *dom.Document) string {
	return Dump(d, dom.Root)
}

func dump(sb *strings.Builder, d *dom.Document, id dom.NodeID) {
	switch d.Kind(id) {
	case dom.DocumentNode:
		if dt := d.Doctype(); dt != nil {
			sb.WriteString("<!DOCTYPE " + dt.Name + ">")
		}
		for _, c := range d.Children(id) {
			dump(sb, d, c)
		}
	case dom.ElementNode:
		sb.WriteString("<" + d.Tag(id))
		for _, a := range d.Attrs(id) {
			sb.WriteString(" " + a.Key + `="` + a.Val + `"`)
		}
		sb.WriteString(">")
		for _, c := range d.Children(id) {
			dump(sb, d, c)
		}
		sb.WriteString("</" + d.Tag(id) + ">")
	case dom.TextNode:
		sb.WriteString(d.Data(id))
	case dom.CommentNode:
		sb.WriteString("<!--" + d.Data(id) + "-->")
	case dom.ProcessingInstructionNode:
		sb.WriteString("<?" + d.Data(id) + "?>")
	}
}

// Find returns the first element tagged tag under the document node,
// panicking when there is none. Intended for test setup only.
func Find(d *dom.Document, tag string) dom.NodeID {
	var walk func(id dom.NodeID) dom.NodeID
	walk = func(id dom.NodeID) dom.NodeID {
		if d.Tag(id) == tag {
			return id
		}
		for _, c := range d.Children(id) {
			if r := walk(c); r != dom.InvalidNode {
				return r
			}
		}
		return dom.InvalidNode
	}
	if id := walk(dom.Root); id != dom.InvalidNode {
		return id
	}
	panic("domtest: no <" + tag + "> in " + d.Name)
}
