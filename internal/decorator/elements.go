package decorator

import (
	"github.com/livefir/livelayout/internal/dom"
)

// FindElement searches the subtree rooted at from, from itself first, for the
// first element tagged tag in document order.
func FindElement(doc *dom.Document, from dom.NodeID, tag string) (dom.NodeID, bool) {
	if doc.Tag(from) == tag {
		return from, true
	}
	for _, c := range doc.ElementChildren(from) {
		if found, ok := FindElement(doc, c, tag); ok {
			return found, true
		}
	}
	return dom.InvalidNode, false
}

// MergeAttributes copies every attribute of srcEl onto dstEl. Values from the
// source replace values already on the target; target-only attributes stay.
func MergeAttributes(src *dom.Document, srcEl dom.NodeID, dst *dom.Document, dstEl dom.NodeID) {
	for _, a := range src.Attrs(srcEl) {
		dst.SetAttr(dstEl, a.Key, a.Val)
	}
}
