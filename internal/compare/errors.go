package compare

import (
	"fmt"

	"github.com/noah-isme/backend-grocer/internal/pricing"
)

// EmptyCatalogError is returned when Compare receives no items.
type EmptyCatalogError struct{}

func (EmptyCatalogError) Error() string { return "compare: catalog is empty" }

// NoQuoteError is returned when an item has no vendor with a defined price.
type NoQuoteError struct {
	ItemID string
	Name   string
}

func (e NoQuoteError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("compare: no vendor quotes %q (%s)", e.Name, e.ItemID)
	}
	return fmt.Sprintf("compare: no vendor quotes item %s", e.ItemID)
}

// UnknownVendorError is returned when the priority list omits a vendor that
// quotes an item in the catalog.
type UnknownVendorError struct {
	ItemID string
	Vendor VendorID
}

func (e UnknownVendorError) Error() string {
	return fmt.Sprintf("compare: vendor %q quoting item %s is missing from the priority list", e.Vendor, e.ItemID)
}

// InvalidPriceError is returned for negative quotes.
type InvalidPriceError struct {
	ItemID string
	Vendor VendorID
	Price  pricing.Money
}

func (e InvalidPriceError) Error() string {
	return fmt.Sprintf("compare: vendor %q quotes negative price %d for item %s", e.Vendor, e.Price, e.ItemID)
}

// DuplicateItemError is returned when two catalog lines share an item identifier.
type DuplicateItemError struct {
	ItemID string
}

func (e DuplicateItemError) Error() string {
	return fmt.Sprintf("compare: item %s appears more than once", e.ItemID)
}
