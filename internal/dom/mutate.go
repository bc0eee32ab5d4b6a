package dom

import "fmt"

func (d *Document) checkInsert(parent, child NodeID) {
	if child == Root {
		panic("dom: the document node cannot be inserted")
	}
	if d.IsAncestor(child, parent) {
		panic(fmt.Sprintf("dom: inserting node %d under %d would create a cycle", child, parent))
	}
}

// Detach removes id from its parent. The node and its subtree stay in the
// arena. Detaching a detached node is a no-op.
func (d *Document) Detach(id NodeID) {
	n := d.node(id)
	if n.parent == InvalidNode {
		return
	}
	p := d.node(n.parent)
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = InvalidNode
}

// AppendChild makes child the last child of parent, detaching it first.
func (d *Document) AppendChild(parent, child NodeID) {
	d.InsertChild(parent, d.ChildCount(parent), child)
}

// InsertChild inserts child at position index under parent. Out of range
// indexes are clamped.
func (d *Document) InsertChild(parent NodeID, index int, child NodeID) {
	d.checkInsert(parent, child)
	d.Detach(child)

	p := d.node(parent)
	if index < 0 {
		index = 0
	}
	if index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, InvalidNode)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = child
	d.node(child).parent = parent
}

// InsertBefore inserts child before ref under parent. When ref is not a child
// of parent the node is appended.
func (d *Document) InsertBefore(parent, ref, child NodeID) {
	if child == ref {
		return
	}
	d.checkInsert(parent, child)
	d.Detach(child)
	i := d.IndexOf(parent, ref)
	if i < 0 {
		i = d.ChildCount(parent)
	}
	d.InsertChild(parent, i, child)
}

// Replace puts replacement in old's position and detaches old.
func (d *Document) Replace(old, replacement NodeID) {
	parent := d.Parent(old)
	if parent == InvalidNode {
		panic(fmt.Sprintf("dom: cannot replace detached node %d", old))
	}
	d.InsertBefore(parent, old, replacement)
	d.Detach(old)
}

// Attr returns the value of the named attribute
func (d *Document) Attr(id NodeID, key string) (string, bool) {
	for _, a := range d.node(id).attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the element carries key
func (d *Document) HasAttr(id NodeID, key string) bool {
	_, ok := d.Attr(id, key)
	return ok
}

// Attrs returns a copy of the element's attributes in order
func (d *Document) Attrs(id NodeID) []Attr {
	a := d.node(id).attrs
	if len(a) == 0 {
		return nil
	}
	out := make([]Attr, len(a))
	copy(out, a)
	return out
}

// SetAttr sets key to val, overwriting in place or appending a new attribute.
func (d *Document) SetAttr(id NodeID, key, val string) {
	n := d.node(id)
	if n.kind != ElementNode {
		panic(fmt.Sprintf("dom: SetAttr on %s node %d", n.kind, id))
	}
	for i := range n.attrs {
		if n.attrs[i].Key == key {
			n.attrs[i].Val = val
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Key: key, Val: val})
}

// RemoveAttr deletes key and reports whether it was present
func (d *Document) RemoveAttr(id NodeID, key string) bool {
	n := d.node(id)
	for i, a := range n.attrs {
		if a.Key == key {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			return true
		}
	}
	return false
}
