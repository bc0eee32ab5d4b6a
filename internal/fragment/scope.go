// Package fragment collects named fragments from content pages, scopes them
// to decorator subtrees and substitutes them into fragment placeholders.
package fragment

import (
	"github.com/livefir/livelayout/internal/dom"
)

// Definition is a fragment declared in a page: the declaring element and the
// document it lives in.
type Definition struct {
	Doc  *dom.Document
	Node dom.NodeID
}

// Map holds fragment definitions by name
type Map map[string]Definition

// Scope is the set of fragments visible below a decorator root. Inner is the
// scope of the page that was decorated before this one when decorators nest;
// its definitions take precedence.
type Scope struct {
	Fragments Map
	Inner     *Scope
}

// Lookup finds name, preferring the innermost definition
func (s *Scope) Lookup(name string) (Definition, bool) {
	if s == nil {
		return Definition{}, false
	}
	if def, ok := s.Inner.Lookup(name); ok {
		return def, true
	}
	def, ok := s.Fragments[name]
	return def, ok
}

// Len returns the number of distinct names visible through the scope
func (s *Scope) Len() int {
	names := make(map[string]struct{})
	for cur := s; cur != nil; cur = cur.Inner {
		for name := range cur.Fragments {
			names[name] = struct{}{}
		}
	}
	return len(names)
}

type scopeKey struct {
	doc *dom.Document
	id  dom.NodeID
}

// Scopes is the side-table attaching fragment scopes to nodes. A Scopes value
// belongs to a single render and is not safe for concurrent use.
type Scopes struct {
	byNode map[scopeKey]*Scope
}

// NewScopes creates an empty side-table
func NewScopes() *Scopes {
	return &Scopes{byNode: make(map[scopeKey]*Scope)}
}

// Attach scopes s to the subtree rooted at id. A nil scope removes any
// existing attachment.
func (t *Scopes) Attach(doc *dom.Document, id dom.NodeID, s *Scope) {
	k := scopeKey{doc, id}
	if s == nil {
		delete(t.byNode, k)
		return
	}
	t.byNode[k] = s
}

// Get returns the scope attached directly to id
func (t *Scopes) Get(doc *dom.Document, id dom.NodeID) *Scope {
	return t.byNode[scopeKey{doc, id}]
}

// Take returns and removes the scope attached to id
func (t *Scopes) Take(doc *dom.Document, id dom.NodeID) *Scope {
	k := scopeKey{doc, id}
	s := t.byNode[k]
	delete(t.byNode, k)
	return s
}

// Nearest returns the scope attached to id or its closest ancestor
func (t *Scopes) Nearest(doc *dom.Document, id dom.NodeID) *Scope {
	for cur := id; cur != dom.InvalidNode; cur = doc.Parent(cur) {
		if s := t.Get(doc, cur); s != nil {
			return s
		}
	}
	return nil
}

// Len returns the number of attached scopes
func (t *Scopes) Len() int {
	return len(t.byNode)
}
