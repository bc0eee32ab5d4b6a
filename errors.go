package livelayout

import (
	"github.com/livefir/livelayout/internal/decorator"
	"github.com/livefir/livelayout/internal/source"
)

var (
	// ErrPlacement reports a decoration attribute on a non-root element
	ErrPlacement = decorator.ErrPlacement

	// ErrShape reports a decorator without a single <html> root element
	ErrShape = decorator.ErrShape

	// ErrDecorationDepth reports decorators nested deeper than MaxDepth,
	// usually a cycle
	ErrDecorationDepth = decorator.ErrDecorationDepth

	// ErrNotFound reports a template name with no file behind it
	ErrNotFound = source.ErrNotFound

	// ErrInvalidName reports a template name outside the template directory
	ErrInvalidName = source.ErrInvalidName
)

// PlacementError carries the details of an ErrPlacement failure
type PlacementError = decorator.PlacementError

// ShapeError carries the details of an ErrShape failure
type ShapeError = decorator.ShapeError
