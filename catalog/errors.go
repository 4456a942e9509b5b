package catalog

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStoreNotFound is returned by GetStore when the ID is unknown.
	ErrStoreNotFound = errors.New("store not found")

	// ErrProductNotFound is returned by GetProduct when the ID is unknown.
	ErrProductNotFound = errors.New("product not found")
)

// IsNotFound returns true if the error indicates a missing catalog record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStoreNotFound) ||
		errors.Is(err, ErrProductNotFound)
}
