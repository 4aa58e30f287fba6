package auction

import (
	"testing"
	"time"
)

func TestOpenOrFutureOrdersPresent(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	cases := []struct {
		name   string
		orders []OpenOrder
		want   bool
	}{
		{name: "none", orders: nil, want: false},
		{name: "expired", orders: []OpenOrder{{ValidUntil: now.Unix() - 1}}, want: false},
		{name: "ends_exactly_now", orders: []OpenOrder{{ValidUntil: now.Unix()}}, want: true},
		{name: "future", orders: []OpenOrder{{ValidFrom: now.Unix() + 3600, ValidUntil: now.Unix() + 7200}}, want: true},
		{name: "mixed", orders: []OpenOrder{{ValidUntil: 1}, {ValidUntil: now.Unix() + 1}}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := OpenOrFutureOrdersPresent(tc.orders, now); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOpenOrder_StillOpen_SubSecondNow(t *testing.T) {
	t.Parallel()

	// Wall clock carries milliseconds; the ledger only has whole seconds.
	now := time.UnixMilli(1_700_000_000_500)
	if (OpenOrder{ValidUntil: 1_700_000_000}).StillOpen(now) {
		t.Fatalf("order ending 500ms ago reported open")
	}
	if !(OpenOrder{ValidUntil: 1_700_000_001}).StillOpen(now) {
		t.Fatalf("order ending in 500ms reported closed")
	}
}

func TestBlockingOrders_SkipsExpired(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	orders := []OpenOrder{
		{BuyToken: 1, SellToken: 2, ValidUntil: now.Unix() - 600},
		{BuyToken: 3, SellToken: 4, ValidUntil: now.Unix() + 300},
		{BuyToken: 5, SellToken: 6, ValidUntil: now.Unix() - 1},
	}
	got := BlockingOrders(orders, now)
	if len(got) != 1 || got[0].BuyToken != 3 {
		t.Fatalf("got %+v, want only the 3/4 order", got)
	}
	if BlockingOrders(orders[:1], now) != nil {
		t.Fatalf("expired orders must not block")
	}
}
