package compare

import (
	"sort"

	"github.com/noah-isme/backend-grocer/internal/pricing"
)

// VendorID identifies a vendor, normally by its slug.
type VendorID string

// ItemQuote is one catalog line with the price every vendor asks for it. A
// vendor absent from Prices does not sell the item.
type ItemQuote struct {
	ItemID string                     `json:"itemId" validate:"required"`
	Name   string                     `json:"name"`
	Prices map[VendorID]pricing.Money `json:"prices"`
}

// Result is the outcome of a comparison. It is derived from the catalog and
// never updated after Compare returns it.
type Result struct {
	PerItemBestVendor  map[string]VendorID        `json:"perItemBestVendor"`
	OptimalSplitTotal  pricing.Money              `json:"optimalSplitTotal"`
	SingleVendorTotals map[VendorID]pricing.Money `json:"singleVendorTotals"`
	Savings            pricing.Money              `json:"savings"`
}

// Compare computes the optimal per-item split of the catalog across vendors,
// the total of buying everything from each vendor able to supply the whole
// list, and the savings of the split against the most expensive of those.
//
// Ties on the lowest price go to the vendor listed first in priority. Input is
// validated before anything is summed; see the error types in this package.
func Compare(catalog []ItemQuote, priority []VendorID) (Result, error) {
	rank := rankOf(priority)
	if err := validate(catalog, rank); err != nil {
		return Result{}, err
	}

	res := Result{
		PerItemBestVendor:  make(map[string]VendorID, len(catalog)),
		SingleVendorTotals: make(map[VendorID]pricing.Money),
	}
	for _, item := range catalog {
		best, price := cheapest(item, rank)
		res.PerItemBestVendor[item.ItemID] = best
		res.OptimalSplitTotal += price
	}

	for _, vendor := range uniqueVendors(priority) {
		total, ok := singleVendorTotal(catalog, vendor)
		if !ok {
			continue
		}
		res.SingleVendorTotals[vendor] = total
	}

	if len(res.SingleVendorTotals) > 0 {
		var highest pricing.Money
		for _, total := range res.SingleVendorTotals {
			if total > highest {
				highest = total
			}
		}
		res.Savings = highest - res.OptimalSplitTotal
	}
	return res, nil
}

// CheapestSingleVendor returns the vendor with the lowest complete-list total,
// breaking ties by priority. ok is false when no vendor can supply the list.
func CheapestSingleVendor(res Result, priority []VendorID) (vendor VendorID, total pricing.Money, ok bool) {
	for _, v := range uniqueVendors(priority) {
		t, found := res.SingleVendorTotals[v]
		if !found {
			continue
		}
		if !ok || t < total {
			vendor, total, ok = v, t, true
		}
	}
	return vendor, total, ok
}

func validate(catalog []ItemQuote, rank map[VendorID]int) error {
	if len(catalog) == 0 {
		return EmptyCatalogError{}
	}
	seen := make(map[string]struct{}, len(catalog))
	for _, item := range catalog {
		if _, dup := seen[item.ItemID]; dup {
			return DuplicateItemError{ItemID: item.ItemID}
		}
		seen[item.ItemID] = struct{}{}

		if len(item.Prices) == 0 {
			return NoQuoteError{ItemID: item.ItemID, Name: item.Name}
		}
		for _, vendor := range sortedVendors(item.Prices) {
			if _, known := rank[vendor]; !known {
				return UnknownVendorError{ItemID: item.ItemID, Vendor: vendor}
			}
			if price := item.Prices[vendor]; price < 0 {
				return InvalidPriceError{ItemID: item.ItemID, Vendor: vendor, Price: price}
			}
		}
	}
	return nil
}

func cheapest(item ItemQuote, rank map[VendorID]int) (VendorID, pricing.Money) {
	var (
		best  VendorID
		price pricing.Money
		found bool
	)
	for vendor, p := range item.Prices {
		switch {
		case !found, p < price:
		case p == price && rank[vendor] < rank[best]:
		default:
			continue
		}
		best, price, found = vendor, p, true
	}
	return best, price
}

func singleVendorTotal(catalog []ItemQuote, vendor VendorID) (pricing.Money, bool) {
	var total pricing.Money
	for _, item := range catalog {
		price, ok := item.Prices[vendor]
		if !ok {
			return 0, false
		}
		total += price
	}
	return total, true
}

func rankOf(priority []VendorID) map[VendorID]int {
	rank := make(map[VendorID]int, len(priority))
	for i, vendor := range priority {
		if _, exists := rank[vendor]; !exists {
			rank[vendor] = i
		}
	}
	return rank
}

func uniqueVendors(priority []VendorID) []VendorID {
	out := make([]VendorID, 0, len(priority))
	seen := make(map[VendorID]struct{}, len(priority))
	for _, vendor := range priority {
		if _, ok := seen[vendor]; ok {
			continue
		}
		seen[vendor] = struct{}{}
		out = append(out, vendor)
	}
	return out
}

// sortedVendors keeps validation errors deterministic across map iteration order.
func sortedVendors(prices map[VendorID]pricing.Money) []VendorID {
	out := make([]VendorID, 0, len(prices))
	for vendor := range prices {
		out = append(out, vendor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
