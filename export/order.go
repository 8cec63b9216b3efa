package export

import (
	"apparel-studio/core"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultUnitPrice is the price of one custom garment in minor currency units.
	DefaultUnitPrice = 2000
	// MaxQuantity bounds a single order.
	MaxQuantity = 1000
)

var ErrValidation = errors.New("order validation failed")

// Order is the checkout input that accompanies an export.
type Order struct {
	Quantity        int                  `json:"quantity"`
	ShippingAddress core.ShippingAddress `json:"shippingAddress"`
}

// ValidationError lists the order fields that are missing or out of range.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: invalid %s", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validate checks the order before any rendering work starts.
func (o Order) Validate() error {
	missing := o.ShippingAddress.Missing()
	if !o.validQuantity() {
		missing = append(missing, "quantity")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func (o Order) validQuantity() bool {
	return o.Quantity >= 1 && o.Quantity <= MaxQuantity
}
