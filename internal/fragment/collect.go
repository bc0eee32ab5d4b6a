package fragment

import (
	"github.com/livefir/livelayout/internal/dom"
)

// Collect gathers every element under roots (the roots included) that
// declares a fragment through attr. Search is depth first in document order;
// when a name is declared twice the first declaration wins.
func Collect(doc *dom.Document, roots []dom.NodeID, attr string) Map {
	found := make(Map)
	for _, r := range roots {
		collect(doc, r, attr, found)
	}
	return found
}

func collect(doc *dom.Document, id dom.NodeID, attr string, found Map) {
	if !doc.IsElement(id) {
		return
	}
	if name, ok := doc.Attr(id, attr); ok && name != "" {
		if _, dup := found[name]; !dup {
			found[name] = Definition{Doc: doc, Node: id}
		}
	}
	for _, c := range doc.ElementChildren(id) {
		collect(doc, c, attr, found)
	}
}
