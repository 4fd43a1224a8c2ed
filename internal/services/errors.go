package services

import (
	"errors"
	"fmt"

	"oakmart/internal/domain"
)

var (
	ErrEmptyCart     = errors.New("no order items")
	ErrOrderNotFound = errors.New("order not found")
	ErrBadCreds      = errors.New("invalid email or password")
	ErrEmailTaken    = errors.New("email already registered")
)

// ProductNotFoundError carries the client-facing item name, matching
// the message shape callers see when a cart references a dead product.
type ProductNotFoundError struct {
	Name string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.Name)
}

// VariantNotFoundError indicates no combination matched the requested
// variant selection exactly.
type VariantNotFoundError struct {
	Product string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant not found for product %s", e.Product)
}

// InsufficientStockError reports a failed stock deduction. Variants is
// set for combination-level failures so the message names the selected
// options, not just the product.
type InsufficientStockError struct {
	Product   string
	Variants  domain.VariantValues
	Available int
}

func (e *InsufficientStockError) Error() string {
	if len(e.Variants) > 0 {
		return fmt.Sprintf("not enough stock for %s (%s), available: %d", e.Product, e.Variants, e.Available)
	}
	return fmt.Sprintf("not enough stock for %s, available: %d", e.Product, e.Available)
}
