// Package dom provides the mutable document tree that layout decoration
// operates on.
//
// Nodes live in an arena owned by their Document and are addressed by NodeID.
// Nodes never point at each other; parent and child relations are indices into
// the arena. A node removed from the tree stays in the arena, so an ID stays
// valid for the lifetime of its Document even after the node is detached.
package dom

import "fmt"

// NodeID addresses a node inside a single Document.
type NodeID int32

const (
	// InvalidNode is returned where no node exists (no parent, not found).
	InvalidNode NodeID = -1

	// Root is the document node of every Document.
	Root NodeID = 0
)

// Kind identifies the variant of a node
type Kind uint8

const (
	DocumentNode Kind = iota
	ElementNode
	TextNode
	CommentNode
	ProcessingInstructionNode
)

func (k Kind) String() string {
	switch k {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case ProcessingInstructionNode:
		return "processing-instruction"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Attr is a single element attribute
type Attr struct {
	Key string
	Val string
}

// Doctype is the document type declaration recorded on a Document
type Doctype struct {
	Name     string
	PublicID string
	SystemID string
}

type node struct {
	kind     Kind
	data     string
	attrs    []Attr
	parent   NodeID
	children []NodeID
}

// Document is an ordered, mutable tree of nodes rooted at the document node.
type Document struct {
	// Name is the template name the document was loaded as, used in errors.
	Name string

	nodes   []node
	doctype *Doctype
}

// NewDocument creates an empty document holding only its document node
func NewDocument(name string) *Document {
	return &Document{
		Name:  name,
		nodes: []node{{kind: DocumentNode, parent: InvalidNode}},
	}
}

func (d *Document) node(id NodeID) *node {
	if id < 0 || int(id) >= len(d.nodes) {
		panic(fmt.Sprintf("dom: node %d out of range in document %q", id, d.Name))
	}
	return &d.nodes[id]
}

func (d *Document) add(n node) NodeID {
	n.parent = InvalidNode
	d.nodes = append(d.nodes, n)
	return NodeID(len(d.nodes) - 1)
}

// Len returns the number of nodes in the arena, attached or not
func (d *Document) Len() int {
	return len(d.nodes)
}

// Doctype returns the recorded doctype, or nil
func (d *Document) Doctype() *Doctype {
	if d.doctype == nil {
		return nil
	}
	dt := *d.doctype
	return &dt
}

// SetDoctype records a doctype; nil clears it.
func (d *Document) SetDoctype(dt *Doctype) {
	if dt == nil {
		d.doctype = nil
		return
	}
	cp := *dt
	d.doctype = &cp
}

// HasDoctype reports whether a doctype is recorded
func (d *Document) HasDoctype() bool {
	return d.doctype != nil
}

// CreateElement adds a detached element node
func (d *Document) CreateElement(tag string, attrs ...Attr) NodeID {
	var a []Attr
	if len(attrs) > 0 {
		a = append(a, attrs...)
	}
	return d.add(node{kind: ElementNode, data: tag, attrs: a})
}

// CreateText adds a detached text node
func (d *Document) CreateText(text string) NodeID {
	return d.add(node{kind: TextNode, data: text})
}

// CreateComment adds a detached comment node
func (d *Document) CreateComment(text string) NodeID {
	return d.add(node{kind: CommentNode, data: text})
}

// CreateProcessingInstruction adds a detached processing instruction; data is
// everything between "<?" and "?>".
func (d *Document) CreateProcessingInstruction(data string) NodeID {
	return d.add(node{kind: ProcessingInstructionNode, data: data})
}

// Kind returns the node's kind
func (d *Document) Kind(id NodeID) Kind {
	return d.node(id).kind
}

// IsElement reports whether id is an element
func (d *Document) IsElement(id NodeID) bool {
	return d.node(id).kind == ElementNode
}

// Tag returns the tag name of an element, or "" for other kinds
func (d *Document) Tag(id NodeID) string {
	n := d.node(id)
	if n.kind != ElementNode {
		return ""
	}
	return n.data
}

// Data returns the raw node data: tag, text, comment or PI body.
func (d *Document) Data(id NodeID) string {
	return d.node(id).data
}

// Parent returns the parent of id, or InvalidNode when detached
func (d *Document) Parent(id NodeID) NodeID {
	return d.node(id).parent
}

// Children returns a copy of the ordered children of id
func (d *Document) Children(id NodeID) []NodeID {
	c := d.node(id).children
	if len(c) == 0 {
		return nil
	}
	out := make([]NodeID, len(c))
	copy(out, c)
	return out
}

// ChildCount returns the number of children of id
func (d *Document) ChildCount(id NodeID) int {
	return len(d.node(id).children)
}

// ElementChildren returns the element children of id in order
func (d *Document) ElementChildren(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range d.node(id).children {
		if d.nodes[c].kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FirstElementChild returns the first element child of id
func (d *Document) FirstElementChild(id NodeID) (NodeID, bool) {
	for _, c := range d.node(id).children {
		if d.nodes[c].kind == ElementNode {
			return c, true
		}
	}
	return InvalidNode, false
}

// IndexOf returns the position of child under parent, or -1
func (d *Document) IndexOf(parent, child NodeID) int {
	for i, c := range d.node(parent).children {
		if c == child {
			return i
		}
	}
	return -1
}

// Attached reports whether id is reachable from the document node
func (d *Document) Attached(id NodeID) bool {
	for cur := id; cur != InvalidNode; cur = d.node(cur).parent {
		if cur == Root {
			return true
		}
	}
	return false
}

// IsAncestor reports whether anc is id or one of its ancestors.
func (d *Document) IsAncestor(anc, id NodeID) bool {
	for cur := id; cur != InvalidNode; cur = d.node(cur).parent {
		if cur == anc {
			return true
		}
	}
	return false
}
