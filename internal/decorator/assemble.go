package decorator

import (
	"go.uber.org/zap"

	"github.com/livefir/livelayout/internal/dom"
	"github.com/livefir/livelayout/internal/fragment"
)

// assemble finishes a decoration once HEAD and BODY are composed: it consumes
// the decoration attribute, scopes the page fragments to the decorator root,
// carries root attributes, doctype and leading document nodes over, and
// grafts the decorator root in place of the page root. The steps run in this
// order; the attribute must be gone before root attributes are merged.
func (d *Decorator) assemble(page *dom.Document, root dom.NodeID, dec *dom.Document, decHTML dom.NodeID, scopes *fragment.Scopes) dom.NodeID {
	page.RemoveAttr(root, d.config.DecoratorAttribute)

	frags := fragment.Collect(page, page.ElementChildren(dom.Root), d.config.FragmentAttribute)
	if len(frags) > 0 {
		scopes.Attach(dec, decHTML, &fragment.Scope{Fragments: frags})
	}
	d.metrics.AddFragmentsCollected(len(frags))

	if page.Tag(root) == tagHTML {
		MergeAttributes(page, root, dec, decHTML)
	}

	if dec.HasDoctype() && !page.HasDoctype() {
		page.SetDoctype(dec.Doctype())
	}

	// Leading comments and processing instructions keep the decorator's order:
	// each one goes in front of the first page element, after the ones moved
	// before it.
	first, _ := page.FirstElementChild(dom.Root)
	spliced := 0
	for _, n := range dec.Children(dom.Root) {
		if n == decHTML {
			break
		}
		page.InsertBefore(dom.Root, first, dom.Move(page, dec, n))
		spliced++
	}

	d.logger.Debug("assembled decorated page",
		zap.String("page", page.Name),
		zap.Int("fragments", len(frags)),
		zap.Int("leading_nodes", spliced))

	return fragment.Graft(page, root, dec, decHTML, scopes)
}
