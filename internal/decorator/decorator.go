// Package decorator merges a content page into the decorator (layout) page it
// names through its decoration attribute.
//
// The content page contributes its HEAD elements, its TITLE, its BODY and
// root attributes and its named fragments; the decorator contributes the
// surrounding document. The content document is mutated in place and ends up
// carrying the composed tree.
package decorator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/livefir/livelayout/internal/dom"
	"github.com/livefir/livelayout/internal/fragment"
	"github.com/livefir/livelayout/internal/metrics"
)

// Resolver turns a decoration attribute value into a decorator document.
//
// Every call must return a document that no other caller holds: decoration
// mutates the returned tree, so returning a shared or cached instance would
// let concurrent renders race on the same nodes.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*dom.Document, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(ctx context.Context, name string) (*dom.Document, error)

// Resolve calls f
func (f ResolverFunc) Resolve(ctx context.Context, name string) (*dom.Document, error) {
	return f(ctx, name)
}

// Config names the attributes the decorator looks for
type Config struct {
	DecoratorAttribute string // e.g. layout:decorator
	FragmentAttribute  string // e.g. layout:fragment
	MaxDepth           int    // maximum decorator nesting handled by Process
}

// DefaultConfig returns the layout-prefixed attribute names
func DefaultConfig() *Config {
	return &Config{
		DecoratorAttribute: "layout:decorator",
		FragmentAttribute:  "layout:fragment",
		MaxDepth:           8,
	}
}

// Option configures a Decorator
type Option func(*Decorator)

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decorator) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records decoration counters on collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(d *Decorator) {
		d.metrics = collector
	}
}

// Decorator applies decorator pages to content pages. It holds no per-render
// state and may be shared between goroutines as long as the Resolver can.
type Decorator struct {
	resolver Resolver
	config   Config
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// New creates a Decorator resolving decorator pages through resolver
func New(resolver Resolver, config *Config, opts ...Option) *Decorator {
	if config == nil {
		config = DefaultConfig()
	}
	d := &Decorator{
		resolver: resolver,
		config:   *config,
		logger:   zap.NewNop(),
	}
	if d.config.MaxDepth <= 0 {
		d.config.MaxDepth = DefaultConfig().MaxDepth
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process decorates doc if any element carries the decoration attribute. When
// the applied decorator is itself decorated, decoration repeats on the result
// up to the configured depth. It reports whether doc was decorated.
func (d *Decorator) Process(ctx context.Context, doc *dom.Document, scopes *fragment.Scopes) (bool, error) {
	el, ok := d.findDecorated(doc, dom.Root)
	if !ok {
		return false, nil
	}

	for depth := 1; ; depth++ {
		if depth > d.config.MaxDepth {
			d.metrics.IncrementDecorationError()
			return true, fmt.Errorf("%w: more than %d decorators applied to %s", ErrDecorationDepth, d.config.MaxDepth, doc.Name)
		}

		root, err := d.decorate(ctx, doc, el, scopes, depth)
		if err != nil {
			return true, err
		}
		if !doc.HasAttr(root, d.config.DecoratorAttribute) {
			return true, d.CheckPlacement(doc)
		}
		el = root
	}
}

// CheckPlacement reports a decoration attribute anywhere in doc's tree. Once
// doc is decorated none may remain: one carried in by a decorator's markup or
// a fragment definition sits below the root and is a placement error.
func (d *Decorator) CheckPlacement(doc *dom.Document) error {
	el, ok := d.findDecorated(doc, dom.Root)
	if !ok {
		return nil
	}
	d.metrics.IncrementDecorationError()
	return &PlacementError{Attribute: d.config.DecoratorAttribute, Element: doc.Tag(el), Page: doc.Name}
}

// Decorate applies the decorator named by root's decoration attribute. root
// must be the root element of doc. On success root has been replaced in doc by
// the composed decorator <html> element, whose ID is returned, and the page's
// fragments are scoped to it in scopes.
func (d *Decorator) Decorate(ctx context.Context, doc *dom.Document, root dom.NodeID, scopes *fragment.Scopes) (dom.NodeID, error) {
	return d.decorate(ctx, doc, root, scopes, 1)
}

func (d *Decorator) decorate(ctx context.Context, doc *dom.Document, root dom.NodeID, scopes *fragment.Scopes, depth int) (dom.NodeID, error) {
	id, err := d.apply(ctx, doc, root, scopes)
	if err != nil {
		d.metrics.IncrementDecorationError()
		return dom.InvalidNode, err
	}
	d.metrics.IncrementDecoration(depth)
	return id, nil
}

func (d *Decorator) apply(ctx context.Context, page *dom.Document, root dom.NodeID, scopes *fragment.Scopes) (dom.NodeID, error) {
	attr := d.config.DecoratorAttribute
	name, ok := page.Attr(root, attr)
	if !ok {
		return dom.InvalidNode, fmt.Errorf("%w: <%s> in %s", ErrNotDecorated, page.Tag(root), page.Name)
	}
	if page.Parent(root) != dom.Root {
		return dom.InvalidNode, &PlacementError{Attribute: attr, Element: page.Tag(root), Page: page.Name}
	}

	dec, err := d.resolver.Resolve(ctx, name)
	if err != nil {
		return dom.InvalidNode, fmt.Errorf("failed to resolve decorator %q: %w", name, err)
	}
	if dec == nil {
		return dom.InvalidNode, &ShapeError{Template: name}
	}
	decHTML, err := htmlRoot(dec, name)
	if err != nil {
		return dom.InvalidNode, err
	}

	d.logger.Debug("decorating page",
		zap.String("page", page.Name),
		zap.String("decorator", templateName(dec, name)))

	pageHead, headFound := FindElement(page, root, tagHead)
	pageBody, bodyFound := FindElement(page, root, tagBody)
	decorateHead(dec, decHTML, page, pageHead, headFound)
	decorateBody(dec, decHTML, page, pageBody, bodyFound)

	return d.assemble(page, root, dec, decHTML, scopes), nil
}

// htmlRoot validates that dec has exactly one root element and that it is
// an <html> element.
func htmlRoot(dec *dom.Document, name string) (dom.NodeID, error) {
	roots := dec.ElementChildren(dom.Root)
	tmpl := templateName(dec, name)
	switch {
	case len(roots) == 0:
		return dom.InvalidNode, &ShapeError{Template: tmpl}
	case dec.Tag(roots[0]) != tagHTML:
		return dom.InvalidNode, &ShapeError{Template: tmpl, Root: dec.Tag(roots[0]), Roots: len(roots)}
	case len(roots) > 1:
		return dom.InvalidNode, &ShapeError{Template: tmpl, Root: tagHTML, Roots: len(roots)}
	}
	return roots[0], nil
}

func templateName(doc *dom.Document, fallback string) string {
	if doc.Name != "" {
		return doc.Name
	}
	return fallback
}

// findDecorated returns the first element in document order carrying the
// decoration attribute.
func (d *Decorator) findDecorated(doc *dom.Document, from dom.NodeID) (dom.NodeID, bool) {
	if doc.IsElement(from) && doc.HasAttr(from, d.config.DecoratorAttribute) {
		return from, true
	}
	for _, c := range doc.ElementChildren(from) {
		if found, ok := d.findDecorated(doc, c); ok {
			return found, true
		}
	}
	return dom.InvalidNode, false
}
