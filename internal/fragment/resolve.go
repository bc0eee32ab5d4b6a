package fragment

import (
	"github.com/livefir/livelayout/internal/dom"
)

// Resolve substitutes fragment placeholders below the document node of doc.
// An element declaring attr is replaced by the definition of the same name
// found in the nearest enclosing scope. Placeholders without a definition
// keep their own content. The attribute is removed from every element that
// ends up in the tree. Returns the number of substitutions made.
func Resolve(doc *dom.Document, scopes *Scopes, attr string) int {
	r := &resolver{
		doc:       doc,
		scopes:    scopes,
		attr:      attr,
		expanding: make(map[string]bool),
	}
	r.walk(dom.Root)
	return r.count
}

type resolver struct {
	doc       *dom.Document
	scopes    *Scopes
	attr      string
	expanding map[string]bool
	count     int
}

func (r *resolver) walk(id dom.NodeID) {
	if r.doc.IsElement(id) {
		if name, ok := r.doc.Attr(id, r.attr); ok {
			r.doc.RemoveAttr(id, r.attr)
			if replaced, ok := r.substitute(id, name); ok {
				r.expanding[name] = true
				r.walkChildren(replaced)
				delete(r.expanding, name)
				return
			}
		}
	}
	r.walkChildren(id)
}

func (r *resolver) walkChildren(id dom.NodeID) {
	for _, c := range r.doc.Children(id) {
		r.walk(c)
	}
}

func (r *resolver) substitute(placeholder dom.NodeID, name string) (dom.NodeID, bool) {
	if name == "" || r.expanding[name] {
		return placeholder, false
	}
	def, ok := r.scopes.Nearest(r.doc, placeholder).Lookup(name)
	if !ok || (def.Doc == r.doc && def.Node == placeholder) {
		return placeholder, false
	}

	var node dom.NodeID
	switch {
	case def.Doc != r.doc:
		node = r.doc.Adopt(def.Doc, def.Node)
	case r.doc.Attached(def.Node):
		// already placed once; later placeholders get a copy
		node = r.doc.Adopt(r.doc, def.Node)
	default:
		node = def.Node
	}
	r.doc.RemoveAttr(node, r.attr)
	r.doc.Replace(placeholder, node)
	r.count++
	return node, true
}
