package auction

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// GasPriceQuote maps a tier to a gas price in wei.
type GasPriceQuote map[GasTier]*big.Int

func (q GasPriceQuote) String() string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := q[GasTier(k)]
		s := "<nil>"
		if v != nil {
			s = v.String()
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, s))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// WeiToGwei renders a wei amount in Gwei.
func WeiToGwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -9).String()
}

// ResolveGasPrice picks the requested tier, enforces the ceiling and applies
// the scale, truncating to whole wei.
func ResolveGasPrice(quote GasPriceQuote, tier GasTier, scale float64, ceiling *big.Int) (*big.Int, error) {
	price, ok := quote[tier]
	if !ok || price == nil || price.Sign() <= 0 {
		return nil, priceError("unable to retrieve gas price in wei: desired tier %q, gas prices %s", tier, quote)
	}
	if price.Cmp(ceiling) > 0 {
		return nil, priceError("gas price of %s Gwei is too high, refusing to continue", WeiToGwei(price))
	}

	scaled := decimal.NewFromBigInt(price, 0).Mul(decimal.NewFromFloat(scale)).Truncate(0).BigInt()
	if scaled.Cmp(ceiling) > 0 {
		return nil, priceError("scaled gas price of %s Gwei (scale %v) is too high, refusing to continue", WeiToGwei(scaled), scale)
	}
	if scaled.Sign() <= 0 {
		return nil, priceError("scaled gas price of %s wei (scale %v) is not positive", scaled.String(), scale)
	}
	return scaled, nil
}
