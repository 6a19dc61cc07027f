package ledger

import "errors"

var (
	// ErrDuplicateProduct is returned when adding a name that already exists
	ErrDuplicateProduct = errors.New("product already exists")

	// ErrProductNotFound is returned when a product name is not in the catalog
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is returned when a sale asks for more than is in stock
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidProduct is returned for an empty name or a negative price or stock
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidQuantity is returned for a non-positive sale quantity
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidSort is returned for an unknown sort field or order
	ErrInvalidSort = errors.New("invalid sort")

	// ErrNonSequentialID is returned when an appended record breaks the dense id sequence
	ErrNonSequentialID = errors.New("record id is not the next in sequence")
)
