package cart

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Code is the stable failure category of an engine operation. Codes cross the
// public boundary as part of the operation result, never as panics.
type Code string

const (
	CodeInvalidProduct         Code = "InvalidProduct"
	CodeQuantityOutOfRange     Code = "QuantityOutOfRange"
	CodeCartFull               Code = "CartFull"
	CodeItemNotFound           Code = "ItemNotFound"
	CodeInvalidCoupon          Code = "InvalidCoupon"
	CodePersistenceError       Code = "PersistenceError"
	CodeMalformedPersistedData Code = "MalformedPersistedData"
)

// ErrInvalidCoupon is returned when a coupon fails structural validation
// (empty code, unknown type, value out of range).
var ErrInvalidCoupon = errors.New("invalid coupon")

// ErrMalformedPersistedData is reported (never returned to mutating callers)
// when the persisted record could not be decoded into a snapshot. The engine
// recovers by starting from an empty cart.
var ErrMalformedPersistedData = errors.New("malformed persisted cart data")

// InvalidProductError indicates the supplied product record is unusable:
// missing id or name, or a negative price.
type InvalidProductError struct {
	Reason string
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product: %s", e.Reason)
}

// QuantityOutOfRangeError indicates a requested or resulting quantity outside
// [1, max].
type QuantityOutOfRangeError struct {
	Quantity int
	Max      int
}

func (e *QuantityOutOfRangeError) Error() string {
	return fmt.Sprintf("quantity %d out of range [1, %d]", e.Quantity, e.Max)
}

// CartFullError indicates the cart already holds the maximum number of
// distinct line items.
type CartFullError struct {
	Limit int
}

func (e *CartFullError) Error() string {
	return fmt.Sprintf("cart is full (%d line items)", e.Limit)
}

// ItemNotFoundError indicates no line item matches the given (id, variant).
type ItemNotFoundError struct {
	ID      string
	Variant string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s (%s) not in cart", e.ID, e.Variant)
}

// PersistenceError wraps a storage write failure. The in-memory mutation that
// triggered the write still succeeded; the cart may simply not survive a
// restart.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist cart snapshot: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrorCode maps an engine error to its stable Code. It returns "" for errors
// the engine does not classify.
func ErrorCode(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.As(err, new(*InvalidProductError)):
		return CodeInvalidProduct
	case errors.As(err, new(*QuantityOutOfRangeError)):
		return CodeQuantityOutOfRange
	case errors.As(err, new(*CartFullError)):
		return CodeCartFull
	case errors.As(err, new(*ItemNotFoundError)):
		return CodeItemNotFound
	case errors.Is(err, ErrInvalidCoupon):
		return CodeInvalidCoupon
	case errors.As(err, new(*PersistenceError)):
		return CodePersistenceError
	case errors.Is(err, ErrMalformedPersistedData):
		return CodeMalformedPersistedData
	}
	return ""
}
