package pos

import (
	"errors"
	"fmt"
)

// User-input errors. These are surfaced to the cashier immediately, are
// never retried, and mutate no state.
var (
	// ErrNoTableSelected means a cart operation was attempted with no
	// table selected. The caller should prompt table selection.
	ErrNoTableSelected = errors.New("no table selected")

	// ErrEmptyCart means settlement was attempted on an empty cart.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrNoEmployee means no employee identity was present at settlement.
	ErrNoEmployee = errors.New("no employee identity")

	// ErrInvalidDiscount means the discount was negative.
	ErrInvalidDiscount = errors.New("invalid discount")

	// ErrInvalidPayment means the paid amount was zero or negative.
	ErrInvalidPayment = errors.New("invalid payment amount")

	// ErrInsufficientPayment means the paid amount does not cover the
	// final amount due.
	ErrInsufficientPayment = errors.New("insufficient payment")
)

// ErrCacheMiss means no cached reference data exists and the fetch
// failed. This is the one network-related condition surfaced to the user
// as a blocking error: the terminal cannot operate without product and
// table data.
var ErrCacheMiss = errors.New("no cached data and fetch failed")

// ErrUnknownTable means the referenced table does not exist in the
// reference data.
var ErrUnknownTable = errors.New("unknown table")

// ErrUnknownProduct means the referenced product does not exist in the
// reference data.
var ErrUnknownProduct = errors.New("unknown product")

// ErrTransferNotAllowed means a table transfer violated its
// preconditions: the source is the takeaway table, or the destination
// already has an active order.
var ErrTransferNotAllowed = errors.New("table transfer not allowed")

// NetworkError is a transport-level failure talking to the remote store.
//
// During settlement it is recovered locally by falling back to the
// offline queue. During queue flush it leaves the transaction
// unprocessed for the next reconnect. It is never surfaced as a failed
// sale.
type NetworkError struct {
	Entity string // remote entity name
	Op     string // Find, Add, Edit, Delete
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is (or wraps) a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
