package order

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return statusRank(s) != -2
}

// Cancellable reports whether an order in s may still be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransition reports whether an order may move from one status to another.
// Fulfilment only moves forward; cancellation is allowed before processing and
// refunds only after delivery.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusCancelled:
		return from.Cancellable()
	case StatusRefunded:
		return from == StatusDelivered
	}
	fromRank, toRank := statusRank(from), statusRank(to)
	if fromRank < 0 || toRank < 0 {
		return false
	}
	return toRank == fromRank+1
}

func statusRank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusConfirmed:
		return 1
	case StatusProcessing:
		return 2
	case StatusShipped:
		return 3
	case StatusDelivered:
		return 4
	case StatusCancelled, StatusRefunded:
		return -1
	default:
		return -2
	}
}
