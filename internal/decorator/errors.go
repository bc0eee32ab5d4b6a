package decorator

import (
	"errors"
	"fmt"
)

var (
	// ErrPlacement is matched by every PlacementError
	ErrPlacement = errors.New("decoration attribute must appear in the root element of the content page")

	// ErrShape is matched by every ShapeError
	ErrShape = errors.New("decorator page must have an <html> root element")

	// ErrDecorationDepth is returned when decorators nest deeper than allowed,
	// which usually means two decorators decorate each other.
	ErrDecorationDepth = errors.New("decoration nesting too deep")

	// ErrNotDecorated is returned by Decorate for an element without the
	// decoration attribute.
	ErrNotDecorated = errors.New("element has no decoration attribute")
)

// PlacementError reports a decoration attribute on a non-root element
type PlacementError struct {
	Attribute string // attribute name, e.g. layout:decorator
	Element   string // tag of the element carrying it
	Page      string // name of the content page, may be empty
}

func (e *PlacementError) Error() string {
	msg := fmt.Sprintf("%s attribute must appear in the root element of your content page, found on <%s>", e.Attribute, e.Element)
	if e.Page != "" {
		msg += " in " + e.Page
	}
	return msg
}

func (e *PlacementError) Unwrap() error { return ErrPlacement }

// ShapeError reports a resolved decorator without an <html> root element
type ShapeError struct {
	Template string // decorator template name
	Root     string // tag of the root element found, empty when there is none
	Roots    int    // number of root elements found
}

func (e *ShapeError) Error() string {
	switch {
	case e.Roots == 0:
		return fmt.Sprintf("decorator page %s must have an <html> root element, found none", e.Template)
	case e.Root != "html":
		return fmt.Sprintf("decorator page %s must have an <html> root element, found <%s>", e.Template, e.Root)
	default:
		return fmt.Sprintf("decorator page %s must have a single <html> root element, found %d root elements", e.Template, e.Roots)
	}
}

func (e *ShapeError) Unwrap() error { return ErrShape }
