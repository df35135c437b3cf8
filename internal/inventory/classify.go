package inventory

import "time"

// Status describes the state of a pantry item.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusLow      Status = "low"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

// Stock is the part of a pantry item classification looks at.
type Stock struct {
	Quantity     float64
	PackQuantity float64
	ExpiryDate   *time.Time
}

// Classify reports the status of an item at now and, when it has an expiry
// date, the calendar days left until it. Expiry takes precedence over low
// stock. An item is low when quantity/pack is at or below lowRatio.
func Classify(s Stock, now time.Time, warnDays int, lowRatio float64) (Status, *int) {
	var daysLeft *int
	if s.ExpiryDate != nil {
		d := DaysBetween(now, *s.ExpiryDate)
		daysLeft = &d
		switch {
		case d < 0:
			return StatusExpired, daysLeft
		case d <= warnDays:
			return StatusExpiring, daysLeft
		}
	}
	if s.Quantity <= 0 {
		return StatusLow, daysLeft
	}
	if s.PackQuantity > 0 && s.Quantity/s.PackQuantity <= lowRatio {
		return StatusLow, daysLeft
	}
	return StatusNormal, daysLeft
}

// DaysBetween counts whole calendar days from the date of now to the date of
// expiry, in now's location.
func DaysBetween(now, expiry time.Time) int {
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = expiry.In(now.Location()).Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
