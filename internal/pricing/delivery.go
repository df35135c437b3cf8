package pricing

import "sort"

// DeliveryTerms are the per-vendor delivery charges.
type DeliveryTerms struct {
	Fee           Money
	FreeThreshold Money
}

// VendorDelivery returns the delivery fee for a vendor sub-order. The fee is
// waived once the subtotal reaches a positive free-delivery threshold.
func VendorDelivery(terms DeliveryTerms, subtotal Money) Money {
	if subtotal <= 0 || terms.Fee <= 0 {
		return 0
	}
	if terms.FreeThreshold > 0 && subtotal >= terms.FreeThreshold {
		return 0
	}
	return terms.Fee
}

// SplitLine is a basket line assigned to a vendor.
type SplitLine struct {
	Vendor string
	Item
}

// SplitResult carries the per-vendor summaries and their sum.
type SplitResult struct {
	Vendors map[string]Summary `json:"vendors"`
	Total   Summary            `json:"total"`
}

// SplitSummary totals an order divided across vendors. Each vendor used is
// charged its own delivery fee; vendors without terms deliver for free.
func SplitSummary(lines []SplitLine, terms map[string]DeliveryTerms, taxBps int) SplitResult {
	grouped := make(map[string][]Item)
	for _, line := range lines {
		grouped[line.Vendor] = append(grouped[line.Vendor], line.Item)
	}
	vendors := make([]string, 0, len(grouped))
	for v := range grouped {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)

	out := SplitResult{Vendors: make(map[string]Summary, len(grouped))}
	for _, v := range vendors {
		items := grouped[v]
		base := Compute(items, 0, taxBps, 0)
		summary := Compute(items, 0, taxBps, VendorDelivery(terms[v], base.Subtotal))
		out.Vendors[v] = summary
		out.Total = out.Total.Add(summary)
	}
	return out
}
