// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrCustomerRequired = errors.New("customer name is required")
	ErrEmptySale        = errors.New("sale has no items")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrNegativeAmount   = errors.New("amounts must not be negative")
	ErrProductNotFound  = errors.New("product not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrOutOfStock       = errors.New("product is out of stock")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserSuspended      = errors.New("user account is suspended")
	ErrNoSession          = errors.New("no active session")
)

// InsufficientStockError rejects a sale line asking for more units than are
// available. It is returned before anything is written.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// PartialFailureError reports a multi-step mutation that failed after some
// remote writes succeeded and could not be fully undone. The remote store may
// disagree with what the caller expects until someone repairs it.
type PartialFailureError struct {
	Operation       string
	Step            string
	SaleID          uuid.UUID
	Err             error
	CompensationErr error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s failed at %s for sale %s and could not be undone: %v (compensation: %v)",
		e.Operation, e.Step, e.SaleID, e.Err, e.CompensationErr)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
