package auction

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Ledger is the exchange view the runner reads from.
type Ledger interface {
	OpenOrders(ctx context.Context, account common.Address) ([]OpenOrder, error)
	TokenInfo(ctx context.Context, id uint16) (TokenInfo, error)
}

// BalanceReader is optionally implemented by a Ledger; the runner only logs it.
type BalanceReader interface {
	Balance(ctx context.Context, account, token common.Address) (*big.Int, error)
}

// Oracle returns the exchange rate in whole sell tokens per whole buy token.
type Oracle interface {
	Price(ctx context.Context, buy, sell TokenInfo) (decimal.Decimal, error)
}

type GasStation interface {
	GasPrices(ctx context.Context, network string) (GasPriceQuote, error)
}

// Submitter places the resolved order on the exchange.
type Submitter interface {
	Submit(ctx context.Context, order ResolvedOrder, gasPrice *big.Int) (common.Hash, error)
}

// ResolvedOrder is the single order a run hands to the submitter.
type ResolvedOrder struct {
	BuyToken   uint16
	SellToken  uint16
	BuyAmount  *big.Int
	SellAmount *big.Int
}

// Result describes a completed run.
type Result struct {
	Order         ResolvedOrder
	GasPrice      *big.Int
	TxHash        common.Hash
	Selected      StrategyOrder
	RotationIndex int
	BuyToken      TokenInfo
	SellToken     TokenInfo
	OraclePrice   decimal.Decimal
	PostedPrice   decimal.Decimal
}

type Runner struct {
	Ledger     Ledger
	Oracle     Oracle
	GasStation GasStation
	Submitter  Submitter

	Account common.Address
	Network string
	Params  Params
	Now     func() time.Time
	Log     zerolog.Logger
}

func (r *Runner) params() Params {
	p := r.Params
	d := DefaultParams()
	if p.Period <= 0 {
		p.Period = d.Period
	}
	if p.MaxGasPriceWei == nil {
		p.MaxGasPriceWei = d.MaxGasPriceWei
	}
	return p
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes one auction round. Either exactly one order is submitted and a
// Result returned, or nothing is submitted and the error says why.
func (r *Runner) Run(ctx context.Context, rc RunContext, strategyPath string) (*Result, error) {
	params := r.params()
	r.Log.Info().Str("account", r.Account.Hex()).Str("network", r.Network).Msg("using account")

	orders, err := r.Ledger.OpenOrders(ctx, r.Account)
	if err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	if blocking := BlockingOrders(orders, r.now()); len(blocking) > 0 {
		first := blocking[0]
		return nil, idempotencyError("no order is created because other auction orders have already been created "+
			"(%d open or scheduled of %d on record, first: buy %d sell %d valid until %s). Maybe this run has already been executed today?",
			len(blocking), len(orders), first.BuyToken, first.SellToken, unixSecondsToTime(first.ValidUntil).UTC().Format(time.RFC3339))
	}

	strategy, err := LoadStrategy(strategyPath)
	if err != nil {
		return nil, err
	}

	ids := strategy.TokenIDs()
	r.Log.Debug().Interface("token_ids", ids).Msg("resolving tokens")
	tokens, err := resolveTokens(ctx, r.Ledger, ids)
	if err != nil {
		return nil, err
	}
	if err := CheckTokenConsistency(strategy, tokens); err != nil {
		return nil, err
	}

	selected, idx := SelectOrder(strategy, rc.Start, r.now(), params.Period)
	buy, sell := tokens[selected.BuyTokenID], tokens[selected.SellTokenID]
	r.Log.Info().
		Int("rotation_index", idx).
		Uint16("buy_token", selected.BuyTokenID).
		Str("buy_symbol", selected.BuyTokenSymbol).
		Uint16("sell_token", selected.SellTokenID).
		Str("sell_symbol", selected.SellTokenSymbol).
		Msg("executing order")

	oraclePrice, err := r.Oracle.Price(ctx, buy, sell)
	if err != nil {
		return nil, fmt.Errorf("oracle price %s/%s: %w", sell.Symbol, buy.Symbol, err)
	}
	posted := AdjustPrice(oraclePrice, rc.PriceAllowancePercent)
	r.Log.Info().
		Str("oracle_price", oraclePrice.String()).
		Str("posted_price", posted.String()).
		Str("unit", sell.Symbol+" per "+buy.Symbol).
		Msg("price")

	if br, ok := r.Ledger.(BalanceReader); ok {
		if bal, err := br.Balance(ctx, r.Account, sell.Address); err != nil {
			r.Log.Warn().Err(err).Str("token", sell.Symbol).Msg("sell token balance unavailable")
		} else {
			r.Log.Info().Str("balance", decimal.NewFromBigInt(bal, -int32(sell.Decimals)).String()).Str("token", sell.Symbol).Msg("sell token balance")
		}
	}

	buyAmount, sellAmount, err := UnlimitedOrderAmounts(posted, sell.Decimals, buy.Decimals)
	if err != nil {
		return nil, err
	}
	order := ResolvedOrder{
		BuyToken:   selected.BuyTokenID,
		SellToken:  selected.SellTokenID,
		BuyAmount:  buyAmount,
		SellAmount: sellAmount,
	}

	quote, err := r.GasStation.GasPrices(ctx, r.Network)
	if err != nil {
		return nil, fmt.Errorf("fetch gas prices: %w", err)
	}
	gasPrice, err := ResolveGasPrice(quote, rc.GasTier, rc.GasPriceScale, params.MaxGasPriceWei)
	if err != nil {
		return nil, err
	}
	r.Log.Info().Str("tier", string(rc.GasTier)).Float64("scale", rc.GasPriceScale).Str("gas_price_wei", gasPrice.String()).Msg("gas price")

	txHash, err := r.Submitter.Submit(ctx, order, gasPrice)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	return &Result{
		Order:         order,
		GasPrice:      gasPrice,
		TxHash:        txHash,
		Selected:      selected,
		RotationIndex: idx,
		BuyToken:      buy,
		SellToken:     sell,
		OraclePrice:   oraclePrice,
		PostedPrice:   posted,
	}, nil
}

// resolveTokens looks every id up concurrently; one failure fails the lot.
func resolveTokens(ctx context.Context, ledger Ledger, ids []uint16) (map[uint16]TokenInfo, error) {
	infos := make([]TokenInfo, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			info, err := ledger.TokenInfo(gctx, id)
			if err != nil {
				return fmt.Errorf("token info %d: %w", id, err)
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[uint16]TokenInfo, len(ids))
	for i, id := range ids {
		out[id] = infos[i]
	}
	return out, nil
}
