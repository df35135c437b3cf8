package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Tax      Money `json:"tax"`
	Delivery Money `json:"delivery"`
	Total    Money `json:"total"`
}

// Compute calculates basket totals given the provided inputs.
func Compute(items []Item, discount Money, taxBps int, delivery Money) Summary {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	if discount > subtotal {
		discount = subtotal
	}
	taxable := subtotal - discount
	if taxable < 0 {
		taxable = 0
	}
	tax := (taxable * Money(taxBps)) / 10000
	total := taxable + tax + delivery
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Delivery: delivery,
		Total:    total,
	}
}

// Add sums two summaries component by component.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Subtotal: s.Subtotal + o.Subtotal,
		Discount: s.Discount + o.Discount,
		Tax:      s.Tax + o.Tax,
		Delivery: s.Delivery + o.Delivery,
		Total:    s.Total + o.Total,
	}
}
