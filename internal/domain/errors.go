package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidSnapshot is returned when a snapshot cannot be persisted as given
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrStoreUnavailable is returned when the history backend cannot be reached
	ErrStoreUnavailable = errors.New("history store unavailable")

	// ErrCatalogFetch is returned when a vendor catalog could not be fetched
	ErrCatalogFetch = errors.New("catalog fetch failed")

	// ErrUnknownVendor is returned when a vendor is not configured
	ErrUnknownVendor = errors.New("unknown vendor")
)

// StoreError reports a failed history operation. It must reach the caller:
// totals and deltas computed against an unreachable history would be wrong.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
