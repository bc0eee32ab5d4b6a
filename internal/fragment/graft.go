package fragment

import (
	"github.com/livefir/livelayout/internal/dom"
)

// Graft replaces target in doc with the subtree src/from, moving it into doc.
// The scope attached to from follows the moved subtree; a scope that was on
// target becomes its Inner scope so fragments of earlier pages stay visible.
// Returns the ID of the grafted root in doc.
func Graft(doc *dom.Document, target dom.NodeID, src *dom.Document, from dom.NodeID, scopes *Scopes) dom.NodeID {
	scope := scopes.Take(src, from)
	prev := scopes.Take(doc, target)

	moved := dom.Move(doc, src, from)
	doc.Replace(target, moved)

	switch {
	case scope == nil:
		scope = prev
	case prev != nil:
		scope.Inner = prev
	}
	scopes.Attach(doc, moved, scope)
	return moved
}
