package dom

// Clone returns a deep copy of the document. Node IDs are preserved, so an ID
// valid in d addresses the same node in the clone.
func (d *Document) Clone() *Document {
	c := &Document{
		Name:  d.Name,
		nodes: make([]node, len(d.nodes)),
	}
	c.SetDoctype(d.doctype)
	for i, n := range d.nodes {
		cp := n
		if len(n.attrs) > 0 {
			cp.attrs = append([]Attr(nil), n.attrs...)
		}
		if len(n.children) > 0 {
			cp.children = append([]NodeID(nil), n.children...)
		}
		c.nodes[i] = cp
	}
	return c
}

// Adopt deep-copies the subtree rooted at id in src into d and returns the
// detached copy. src is not modified.
func (d *Document) Adopt(src *Document, id NodeID) NodeID {
	n := *src.node(id)
	if n.kind == DocumentNode {
		panic("dom: the document node cannot be adopted")
	}
	cp := node{kind: n.kind, data: n.data}
	if len(n.attrs) > 0 {
		cp.attrs = append([]Attr(nil), n.attrs...)
	}
	nid := d.add(cp)
	children := append([]NodeID(nil), n.children...)
	for _, c := range children {
		d.AppendChild(nid, d.Adopt(src, c))
	}
	return nid
}

// Move transfers the subtree rooted at id from src into dst and returns its
// ID in dst, detached. Within one document the node keeps its ID; across
// documents it is copied and the original is detached from src.
func Move(dst, src *Document, id NodeID) NodeID {
	if dst == src {
		src.Detach(id)
		return id
	}
	nid := dst.Adopt(src, id)
	src.Detach(id)
	return nid
}
