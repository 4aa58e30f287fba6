package auction

import "time"

// OpenOrder is an order the ledger already holds for the account.
type OpenOrder struct {
	BuyToken  uint16
	SellToken uint16
	// ValidFrom and ValidUntil are unix seconds.
	ValidFrom  int64
	ValidUntil int64
}

// unixSecondsToTime is the only place where ledger seconds meet wall-clock time.
func unixSecondsToTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}

// StillOpen reports whether the order's validity end is at or after now.
// Both sides are compared in milliseconds, so an end equal to now is open.
func (o OpenOrder) StillOpen(now time.Time) bool {
	return unixSecondsToTime(o.ValidUntil).UnixMilli() >= now.UnixMilli()
}

// OpenOrFutureOrdersPresent reports whether any order is still open or starts later.
func OpenOrFutureOrdersPresent(orders []OpenOrder, now time.Time) bool {
	return len(BlockingOrders(orders, now)) > 0
}

// BlockingOrders returns the orders that are still open or scheduled, in ledger order.
func BlockingOrders(orders []OpenOrder, now time.Time) []OpenOrder {
	var out []OpenOrder
	for _, o := range orders {
		if o.StillOpen(now) {
			out = append(out, o)
		}
	}
	return out
}
