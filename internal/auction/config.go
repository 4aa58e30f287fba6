package auction

import (
	"fmt"
	"math"
	"math/big"
	"time"
)

// Params holds the constants that shape every run. Tests override them.
type Params struct {
	// Period is how long each strategy order stays due.
	Period time.Duration
	// MaxGasPriceWei is the hard ceiling on the gas price handed to the submitter.
	MaxGasPriceWei *big.Int
	// MinStart rejects start timestamps that were almost certainly given in seconds.
	MinStart time.Time
}

func DefaultParams() Params {
	return Params{
		Period:         24 * time.Hour,
		MaxGasPriceWei: new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000)),
		MinStart:       time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// GasTier names an urgency level of the gas station quote.
type GasTier string

const (
	GasLowest   GasTier = "lowest"
	GasSafeLow  GasTier = "safeLow"
	GasStandard GasTier = "standard"
	GasFast     GasTier = "fast"
	GasFastest  GasTier = "fastest"
)

var GasTiers = []GasTier{GasLowest, GasSafeLow, GasStandard, GasFast, GasFastest}

func ParseGasTier(s string) (GasTier, error) {
	for _, t := range GasTiers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", validationError(nil, "gas price %q must be one of %v", s, GasTiers)
}

// Args is the raw run configuration as it arrives from flags.
type Args struct {
	GasPrice              string
	GasPriceScale         float64
	StartTimestampMs      int64
	PriceAllowancePercent float64
}

// RunContext is the validated per-run configuration.
type RunContext struct {
	PriceAllowancePercent int
	Start                 time.Time
	GasTier               GasTier
	GasPriceScale         float64
}

// ValidateArgs checks every argument and reports all problems at once.
func ValidateArgs(a Args, p Params) (RunContext, error) {
	var violations []string

	tier, err := ParseGasTier(a.GasPrice)
	if err != nil {
		violations = append(violations, err.(*Error).Msg)
	}
	if math.IsNaN(a.GasPriceScale) || math.IsInf(a.GasPriceScale, 0) || a.GasPriceScale <= 0 {
		violations = append(violations, fmt.Sprintf("gas price scale must be > 0, got %v", a.GasPriceScale))
	}

	pct := a.PriceAllowancePercent
	switch {
	case math.IsNaN(pct) || math.IsInf(pct, 0) || pct != math.Trunc(pct):
		violations = append(violations, fmt.Sprintf("price allowance must be a number (with no percent symbol), got %v", pct))
	case pct < 0 || pct > 100:
		violations = append(violations, fmt.Sprintf("price allowance must lie between 0 and 100, got %v", pct))
	}

	start := time.UnixMilli(a.StartTimestampMs)
	if start.Before(p.MinStart) {
		violations = append(violations, fmt.Sprintf(
			"start timestamp %d describes a date before %d. Is the start timestamp in milliseconds?",
			a.StartTimestampMs, p.MinStart.Year()))
	}

	if len(violations) > 0 {
		return RunContext{}, validationError(violations, "malformed run arguments")
	}
	return RunContext{
		PriceAllowancePercent: int(pct),
		Start:                 start,
		GasTier:               tier,
		GasPriceScale:         a.GasPriceScale,
	}, nil
}
