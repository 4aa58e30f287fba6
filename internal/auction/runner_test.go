package auction

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu       sync.Mutex
	orders   []OpenOrder
	tokens   map[uint16]TokenInfo
	tokenErr map[uint16]error
	lookups  []uint16
}

func (l *fakeLedger) OpenOrders(context.Context, common.Address) ([]OpenOrder, error) {
	return l.orders, nil
}

func (l *fakeLedger) TokenInfo(_ context.Context, id uint16) (TokenInfo, error) {
	l.mu.Lock()
	l.lookups = append(l.lookups, id)
	l.mu.Unlock()
	if err := l.tokenErr[id]; err != nil {
		return TokenInfo{}, err
	}
	return l.tokens[id], nil
}

type fakeOracle struct {
	price   decimal.Decimal
	gotBuy  TokenInfo
	gotSell TokenInfo
	called  bool
}

func (o *fakeOracle) Price(_ context.Context, buy, sell TokenInfo) (decimal.Decimal, error) {
	o.called = true
	o.gotBuy, o.gotSell = buy, sell
	return o.price, nil
}

type fakeGas struct {
	quote   GasPriceQuote
	network string
}

func (g *fakeGas) GasPrices(_ context.Context, network string) (GasPriceQuote, error) {
	g.network = network
	return g.quote, nil
}

type fakeSubmitter struct {
	orders    []ResolvedOrder
	gasPrices []*big.Int
}

func (s *fakeSubmitter) Submit(_ context.Context, order ResolvedOrder, gasPrice *big.Int) (common.Hash, error) {
	s.orders = append(s.orders, order)
	s.gasPrices = append(s.gasPrices, gasPrice)
	return common.HexToHash("0xabc"), nil
}

type runnerFixture struct {
	ledger    *fakeLedger
	oracle    *fakeOracle
	gas       *fakeGas
	submitter *fakeSubmitter
	runner    *Runner
	rc        RunContext
	path      string
	now       time.Time
}

func newRunnerFixture(t *testing.T, strategyJSON string) *runnerFixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "strategy.json")
	require.NoError(t, os.WriteFile(path, []byte(strategyJSON), 0o644))

	start := time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)
	f := &runnerFixture{
		ledger: &fakeLedger{tokens: map[uint16]TokenInfo{
			1: {ID: 1, Symbol: "WETH", Address: common.HexToAddress("0x1"), Decimals: 18},
			2: {ID: 2, Symbol: "USDC", Address: common.HexToAddress("0x2"), Decimals: 6},
		}},
		oracle:    &fakeOracle{price: decimal.NewFromInt(300)},
		gas:       &fakeGas{quote: GasPriceQuote{GasStandard: big.NewInt(5_000_000_000)}},
		submitter: &fakeSubmitter{},
		rc: RunContext{
			PriceAllowancePercent: 10,
			Start:                 start,
			GasTier:               GasStandard,
			GasPriceScale:         2,
		},
		path: path,
		now:  start.Add(90_000_000 * time.Millisecond),
	}
	f.runner = &Runner{
		Ledger:     f.ledger,
		Oracle:     f.oracle,
		GasStation: f.gas,
		Submitter:  f.submitter,
		Account:    common.HexToAddress("0xfeed"),
		Network:    "rinkeby",
		Params:     DefaultParams(),
		Now:        func() time.Time { return f.now },
		Log:        zerolog.Nop(),
	}
	return f
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, twoOrderStrategy)
	res, err := f.runner.Run(context.Background(), f.rc, f.path)
	require.NoError(t, err)

	// 90,000,000ms after start with two orders selects index 0 (WETH for USDC).
	require.Equal(t, 0, res.RotationIndex)
	require.Equal(t, uint16(1), res.Order.BuyToken)
	require.Equal(t, uint16(2), res.Order.SellToken)
	require.True(t, res.PostedPrice.Equal(decimal.NewFromInt(270)))
	require.Equal(t, "WETH", f.oracle.gotBuy.Symbol)
	require.Equal(t, "USDC", f.oracle.gotSell.Symbol)

	require.Equal(t, "rinkeby", f.gas.network)
	require.Equal(t, "10000000000", res.GasPrice.String())
	require.Len(t, f.submitter.orders, 1)
	require.Equal(t, res.Order, f.submitter.orders[0])
	require.Equal(t, common.HexToHash("0xabc"), res.TxHash)
	require.ElementsMatch(t, []uint16{1, 2}, f.ledger.lookups)
}

func TestRunner_AbortsOnOpenOrdersBeforeLoadingStrategy(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, `not even json`)
	f.ledger.orders = []OpenOrder{{ValidUntil: f.now.Unix()}}

	_, err := f.runner.Run(context.Background(), f.rc, f.path)
	require.True(t, errors.Is(err, ErrIdempotency), "got %v", err)
	require.Empty(t, f.ledger.lookups)
	require.Empty(t, f.submitter.orders)
	require.False(t, f.oracle.called)
}

func TestRunner_IdempotencyMessageCountsOnlyBlockingOrders(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, twoOrderStrategy)
	f.ledger.orders = []OpenOrder{
		{BuyToken: 1, SellToken: 2, ValidUntil: f.now.Unix() - 86_400},
		{BuyToken: 2, SellToken: 1, ValidUntil: f.now.Unix() - 3_600},
		{BuyToken: 1, SellToken: 2, ValidUntil: f.now.Unix() + 300},
	}

	_, err := f.runner.Run(context.Background(), f.rc, f.path)
	require.ErrorIs(t, err, ErrIdempotency)
	require.ErrorContains(t, err, "1 open or scheduled of 3 on record")
	require.ErrorContains(t, err, "buy 1 sell 2")
}

func TestRunner_InconsistentSymbolAborts(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, `[
  {"buyTokenId": 1, "buyTokenSymbol": "WETH", "sellTokenId": 2, "sellTokenSymbol": "USDC"},
  {"buyTokenId": 2, "buyTokenSymbol": "USDT", "sellTokenId": 1, "sellTokenSymbol": "WETH"}
]`)
	_, err := f.runner.Run(context.Background(), f.rc, f.path)
	require.True(t, errors.Is(err, ErrConsistency), "got %v", err)
	require.Empty(t, f.submitter.orders)
	require.False(t, f.oracle.called)
}

func TestRunner_TokenLookupFailurePropagates(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, twoOrderStrategy)
	rpcErr := errors.New("rpc unavailable")
	f.ledger.tokenErr = map[uint16]error{2: rpcErr}

	_, err := f.runner.Run(context.Background(), f.rc, f.path)
	require.ErrorIs(t, err, rpcErr)
	var aErr *Error
	require.False(t, errors.As(err, &aErr))
	require.Empty(t, f.submitter.orders)
}

func TestRunner_MissingGasTier(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, twoOrderStrategy)
	f.rc.GasTier = GasFastest

	_, err := f.runner.Run(context.Background(), f.rc, f.path)
	require.True(t, errors.Is(err, ErrPrice))
	require.Empty(t, f.submitter.orders)
}

func TestRunner_MalformedStrategy(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, `[{"buyTokenId": "1"}]`)
	_, err := f.runner.Run(context.Background(), f.rc, f.path)
	require.True(t, errors.Is(err, ErrValidation))
	require.Empty(t, f.ledger.lookups)
}
