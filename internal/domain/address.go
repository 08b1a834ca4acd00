package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// ErrDefaultAddress is wrapped by the error returned when a caller tries to
// delete the address that is currently the default.
var ErrDefaultAddress = errors.New("default address cannot be deleted")

// NewDefaultAddressError returns the 409 reported for deleting the default.
func NewDefaultAddressError(addressID int64) *apperrors.AppError {
	return apperrors.Conflict(
		"DEFAULT_ADDRESS",
		fmt.Sprintf("address %d is the default address; set another address as default before deleting it", addressID),
		ErrDefaultAddress,
	)
}

// Address is a shipping address owned by exactly one user.
type Address struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	AddressLine1 string    `json:"addressLine1"`
	AddressLine2 string    `json:"addressLine2,omitempty"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postalCode"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AddressFields are the user-editable columns of an address.
type AddressFields struct {
	AddressLine1 string `json:"addressLine1" validate:"notblank,max=200"`
	AddressLine2 string `json:"addressLine2" validate:"max=200"`
	City         string `json:"city" validate:"notblank,max=100"`
	PostalCode   string `json:"postalCode" validate:"notblank,max=20"`
}

// Normalize returns a copy with surrounding whitespace removed.
func (f AddressFields) Normalize() AddressFields {
	return AddressFields{
		AddressLine1: strings.TrimSpace(f.AddressLine1),
		AddressLine2: strings.TrimSpace(f.AddressLine2),
		City:         strings.TrimSpace(f.City),
		PostalCode:   strings.TrimSpace(f.PostalCode),
	}
}

// Validate reports every missing or oversized field as a
// *validator.ValidationError keyed by the form field name.
func (f AddressFields) Validate() error {
	return validator.Validate(f)
}

// Apply copies the fields onto a.
func (f AddressFields) Apply(a *Address) {
	a.AddressLine1 = f.AddressLine1
	a.AddressLine2 = f.AddressLine2
	a.City = f.City
	a.PostalCode = f.PostalCode
}
