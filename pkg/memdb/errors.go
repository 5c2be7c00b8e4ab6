package memdb

import "fmt"

// DimensionMismatchError indicates an embedding whose length differs
// from the store's configured dimensionality. The operation that
// produced it leaves store state unchanged.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// CapacityExceededError indicates an HNSW-backed index has reached its
// configured max_elements and cannot accept further insertions without
// a rebuild (e.g. via a prune operation).
type CapacityExceededError struct {
	MaxElements int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("hnsw index at capacity: max_elements=%d", e.MaxElements)
}

// NotFoundError is reserved for future id-indexed lookups; no operation
// specified today returns it.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("episode not found: %s", e.ID)
}
