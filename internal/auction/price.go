package auction

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxOrderAmount is the largest amount the exchange accepts (uint128).
var MaxOrderAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// AdjustPrice discounts the oracle price (sell token per buy token) in favour
// of whoever fills the order.
func AdjustPrice(price decimal.Decimal, allowancePercent int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(100 - allowancePercent))).Shift(-2)
}

// UnlimitedOrderAmounts sizes an order near the uint128 ceiling at the given
// price, expressed in whole tokens of sell per buy. The larger side is pinned
// to MaxOrderAmount; the other side is rounded so the posted rate is never
// worse for the counterparty than price.
func UnlimitedOrderAmounts(price decimal.Decimal, sellDecimals, buyDecimals uint8) (buyAmount, sellAmount *big.Int, err error) {
	if price.Sign() <= 0 {
		return nil, nil, priceError("posted price must be positive, got %s", price.String())
	}

	// Raw rate: sell base units per buy base unit.
	raw := price.Rat()
	raw.Mul(raw, new(big.Rat).SetInt(pow10(sellDecimals)))
	raw.Quo(raw, new(big.Rat).SetInt(pow10(buyDecimals)))

	limit := new(big.Rat).SetInt(MaxOrderAmount)
	if raw.Cmp(big.NewRat(1, 1)) >= 0 {
		sellAmount = new(big.Int).Set(MaxOrderAmount)
		q := new(big.Rat).Quo(limit, raw)
		buyAmount = new(big.Int).Quo(q.Num(), q.Denom())
	} else {
		buyAmount = new(big.Int).Set(MaxOrderAmount)
		q := new(big.Rat).Mul(limit, raw)
		sellAmount = ceilRat(q)
	}

	if buyAmount.Sign() <= 0 || sellAmount.Sign() <= 0 {
		return nil, nil, priceError("price %s cannot be represented with %d/%d decimals (buy=%s sell=%s)",
			price.String(), sellDecimals, buyDecimals, buyAmount.String(), sellAmount.String())
	}
	return buyAmount, sellAmount, nil
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func ceilRat(r *big.Rat) *big.Int {
	q, m := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
