package decorator

import (
	"github.com/livefir/livelayout/internal/dom"
)

const (
	tagHTML  = "html"
	tagHead  = "head"
	tagTitle = "title"
	tagBody  = "body"

	lineBreak = "\n"
)

// decorateHead layers the page HEAD over the decorator HEAD. The page TITLE
// takes the place of the decorator TITLE, every other page HEAD child is
// appended after the decorator's own, and HEAD attributes are merged.
func decorateHead(dec *dom.Document, decHTML dom.NodeID, page *dom.Document, pageHead dom.NodeID, found bool) {
	if !found {
		return
	}

	decHead, ok := FindElement(dec, decHTML, tagHead)
	if !ok {
		dec.InsertChild(decHTML, 0, dec.CreateText(lineBreak))
		dec.InsertChild(decHTML, 1, dom.Move(dec, page, pageHead))
		return
	}

	if pageTitle, ok := FindElement(page, pageHead, tagTitle); ok {
		title := dom.Move(dec, page, pageTitle)
		if decTitle, ok := FindElement(dec, decHead, tagTitle); ok {
			dec.Replace(decTitle, title)
		} else {
			dec.InsertChild(decHead, 0, dec.CreateText(lineBreak))
			dec.InsertChild(decHead, 1, title)
		}
	}

	for _, c := range page.Children(pageHead) {
		dec.AppendChild(decHead, dom.Move(dec, page, c))
	}

	MergeAttributes(page, pageHead, dec, decHead)
}

// decorateBody makes sure the decorator has a BODY and merges BODY
// attributes. Body content arrives later through fragment substitution.
func decorateBody(dec *dom.Document, decHTML dom.NodeID, page *dom.Document, pageBody dom.NodeID, found bool) {
	if !found {
		return
	}

	decBody, ok := FindElement(dec, decHTML, tagBody)
	if !ok {
		dec.AppendChild(decHTML, dom.Move(dec, page, pageBody))
		dec.AppendChild(decHTML, dec.CreateText(lineBreak))
		return
	}

	MergeAttributes(page, pageBody, dec, decBody)
}
