package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
	"github.com/livethelifetv/dex-liquidity-provision/internal/journal"
	"github.com/livethelifetv/dex-liquidity-provision/internal/metrics"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("auction", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ENABLE_SUBMISSION", "")
	t.Setenv("AUCTION_JOURNAL", "/tmp/runs.jsonl")
	t.Setenv("AUCTION_STATE", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := loadConfig(newFlagSet(), []string{
		"-strategyFile", "strategy.json",
		"-startTimestamp", "1591000000000",
		"-priceAllowancePercent", "5",
		"-gasPrice", "fast",
		"-gasPriceScale", "1.5",
		"-network", "rinkeby",
	})
	require.NoError(t, err)
	assert.Equal(t, "strategy.json", cfg.strategyFile)
	assert.Equal(t, int64(1591000000000), cfg.args.StartTimestampMs)
	assert.Equal(t, 5.0, cfg.args.PriceAllowancePercent)
	assert.Equal(t, "fast", cfg.args.GasPrice)
	assert.Equal(t, 1.5, cfg.args.GasPriceScale)
	assert.Equal(t, "rinkeby", cfg.network)
	assert.False(t, cfg.enableSubmission)
	assert.Equal(t, "/tmp/runs.jsonl", cfg.journalPath)
	assert.Equal(t, "info", cfg.logLevel)
}

func TestLoadConfig_SubmissionFromEnv(t *testing.T) {
	t.Setenv("ENABLE_SUBMISSION", "true")

	cfg, err := loadConfig(newFlagSet(), []string{
		"-strategyFile", "s.json", "-startTimestamp", "1591000000000", "-priceAllowancePercent", "0",
	})
	require.NoError(t, err)
	assert.True(t, cfg.enableSubmission)
	assert.Equal(t, string(auction.GasStandard), cfg.args.GasPrice)
	assert.Equal(t, 1.0, cfg.args.GasPriceScale)
}

func TestLoadConfig_Required(t *testing.T) {
	t.Setenv("ENABLE_SUBMISSION", "")

	_, err := loadConfig(newFlagSet(), []string{"-startTimestamp", "1591000000000", "-priceAllowancePercent", "5"})
	require.ErrorContains(t, err, "-strategyFile")

	_, err = loadConfig(newFlagSet(), []string{"-strategyFile", "s.json", "-priceAllowancePercent", "5"})
	require.ErrorContains(t, err, "-startTimestamp")

	_, err = loadConfig(newFlagSet(), []string{"-strategyFile", "s.json", "-startTimestamp", "1591000000000"})
	require.ErrorContains(t, err, "-priceAllowancePercent")
}

func TestLoadConfig_PercentSymbolFailsValidation(t *testing.T) {
	t.Setenv("ENABLE_SUBMISSION", "")

	cfg, err := loadConfig(newFlagSet(), []string{
		"-strategyFile", "s.json", "-startTimestamp", "1591000000000", "-priceAllowancePercent", "10%",
	})
	require.NoError(t, err)
	require.True(t, math.IsNaN(cfg.args.PriceAllowancePercent))

	_, err = auction.ValidateArgs(cfg.args, auction.DefaultParams())
	require.ErrorIs(t, err, auction.ErrValidation)
	require.ErrorContains(t, err, "no percent symbol")
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	_, validationErr := auction.ValidateArgs(auction.Args{GasPrice: "nope"}, auction.DefaultParams())
	require.Error(t, validationErr)

	assert.Equal(t, metrics.OutcomeSubmitted, outcomeOf(nil, true))
	assert.Equal(t, metrics.OutcomeDryRun, outcomeOf(nil, false))
	assert.Equal(t, metrics.OutcomeFailed, outcomeOf(validationErr, true))
	assert.Equal(t, metrics.OutcomeFailed, outcomeOf(errors.New("rpc down"), true))
	assert.Equal(t, metrics.OutcomeAborted, outcomeOf(&auction.Error{Kind: auction.KindIdempotency, Msg: "already ran"}, true))
}

func testResult() *auction.Result {
	return &auction.Result{
		Order: auction.ResolvedOrder{
			BuyToken:   1,
			SellToken:  2,
			BuyAmount:  big.NewInt(1000),
			SellAmount: big.NewInt(2000),
		},
		GasPrice:      big.NewInt(20_000_000_000),
		TxHash:        common.HexToHash("0x01"),
		RotationIndex: 1,
		BuyToken:      auction.TokenInfo{ID: 1, Symbol: "WETH", Decimals: 18},
		SellToken:     auction.TokenInfo{ID: 2, Symbol: "USDC", Decimals: 6},
		OraclePrice:   decimal.RequireFromString("200"),
		PostedPrice:   decimal.RequireFromString("190"),
	}
}

func TestRunEvent(t *testing.T) {
	t.Parallel()

	base := journal.Event{Network: "mainnet", Account: "0xaa"}

	e := runEvent(base, metrics.OutcomeSubmitted, testResult(), nil)
	assert.Equal(t, journal.KindSubmitted, e.Kind)
	assert.Equal(t, "mainnet", e.Network)
	require.NotNil(t, e.RotationIndex)
	assert.Equal(t, 1, *e.RotationIndex)
	assert.Equal(t, "WETH", e.BuyToken)
	assert.Equal(t, "190", e.PostedPrice)
	assert.Equal(t, "2000", e.SellAmount)
	assert.Equal(t, "20000000000", e.GasPriceWei)
	assert.Equal(t, common.HexToHash("0x01").Hex(), e.TxHash)

	failure := &auction.Error{Kind: auction.KindPrice, Msg: "gas price too high"}
	e = runEvent(base, metrics.OutcomeFailed, nil, failure)
	assert.Equal(t, journal.KindFailed, e.Kind)
	assert.Equal(t, string(auction.KindPrice), e.ErrorKind)
	assert.Contains(t, e.Error, "gas price too high")
	assert.Nil(t, e.RotationIndex)

	dry := testResult()
	dry.TxHash = common.Hash{}
	e = runEvent(base, metrics.OutcomeDryRun, dry, nil)
	assert.Equal(t, journal.KindDryRun, e.Kind)
	assert.Empty(t, e.TxHash)
}

func TestSubmissionRecord(t *testing.T) {
	t.Parallel()

	at := time.Date(2020, 6, 2, 0, 0, 1, 0, time.FixedZone("CEST", 2*3600))
	exchange := common.HexToAddress("0x6F400810b62df8E13fded51bE75fF5393eaa841F")
	account := common.HexToAddress("0xaa")

	sub := submissionRecord("run-1", "mainnet", 1, exchange, account, testResult(), at)
	assert.Equal(t, "run-1", sub.RunID)
	assert.Equal(t, uint16(1), sub.BuyToken)
	assert.Equal(t, uint16(2), sub.SellToken)
	assert.Equal(t, "20000000000", sub.GasPriceWei)
	assert.Equal(t, time.UTC, sub.SubmittedAt.Location())
	assert.True(t, sub.Matches(1, exchange.Hex(), account.Hex()))
}

func TestDryRunSubmitter(t *testing.T) {
	t.Parallel()

	hash, err := dryRunSubmitter{log: zerolog.Nop()}.Submit(context.Background(), testResult().Order, big.NewInt(1_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, hash)
}
