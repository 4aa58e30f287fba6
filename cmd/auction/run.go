package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
	"github.com/livethelifetv/dex-liquidity-provision/internal/batchexchange"
	"github.com/livethelifetv/dex-liquidity-provision/internal/config"
	"github.com/livethelifetv/dex-liquidity-provision/internal/ethutil"
	"github.com/livethelifetv/dex-liquidity-provision/internal/gasstation"
	"github.com/livethelifetv/dex-liquidity-provision/internal/journal"
	"github.com/livethelifetv/dex-liquidity-provision/internal/metrics"
	"github.com/livethelifetv/dex-liquidity-provision/internal/oneinch"
	"github.com/livethelifetv/dex-liquidity-provision/internal/runstate"
	"github.com/livethelifetv/dex-liquidity-provision/internal/safe"
)

const (
	runTimeout             = 5 * time.Minute
	pushTimeout            = 10 * time.Second
	defaultSafeWaitTimeout = 3 * time.Minute
)

func run(ctx context.Context, cfg cliConfig, logger zerolog.Logger) error {
	params := auction.DefaultParams()
	rc, err := auction.ValidateArgs(cfg.args, params)
	if err != nil {
		return err
	}

	nets, err := config.LoadNetworks(cfg.networksPath)
	if err != nil {
		return err
	}
	network, err := nets.Lookup(cfg.network)
	if err != nil {
		return err
	}
	exchangeAddr, err := network.ExchangeAddress()
	if err != nil {
		return err
	}

	rpcURL, err := config.RPCURLFromEnv()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	client, err := ethclient.DialContext(runCtx, rpcURL)
	if err != nil {
		return fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(runCtx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	if network.ChainID != 0 && chainID.Int64() != network.ChainID {
		return fmt.Errorf("RPC chain id %s does not match network %s (chain id %d)", chainID, cfg.network, network.ChainID)
	}

	exchange, err := batchexchange.NewClient(client, exchangeAddr)
	if err != nil {
		return err
	}

	gasURLs := nets.GasStationURLs()
	if override := strings.TrimSpace(os.Getenv("GAS_STATION_URL")); override != "" {
		gasURLs[cfg.network] = override
	}
	gas, err := gasstation.NewClient(gasURLs)
	if err != nil {
		return err
	}
	oracle, err := oneinch.NewClient(config.FirstNonEmpty(os.Getenv("ONEINCH_URL"), network.OneInch))
	if err != nil {
		return err
	}

	submitter, account, err := buildSubmitter(cfg.enableSubmission, client, exchange, chainID, logger)
	if err != nil {
		return err
	}

	jr := journal.Open(cfg.journalPath)
	defer func() {
		if err := jr.Close(); err != nil {
			logger.Warn().Err(err).Msg("close journal")
		}
	}()
	logger = logger.With().Str("run_id", jr.RunID()).Logger()

	if prev, ok, err := runstate.Load(cfg.statePath); err != nil {
		logger.Warn().Err(err).Msg("run state unreadable")
	} else if ok && prev.Matches(chainID.Int64(), exchangeAddr.Hex(), account.Hex()) {
		logger.Info().Time("submitted_at", prev.SubmittedAt).Str("tx", prev.TxHash).Int("rotation_index", prev.RotationIndex).Msg("last recorded submission")
	}

	base := journal.Event{Network: cfg.network, Account: account.Hex()}
	started := base
	started.Kind = journal.KindStarted
	if err := jr.Record(started); err != nil {
		logger.Warn().Err(err).Msg("journal write failed")
	}

	runner := &auction.Runner{
		Ledger:     exchange,
		Oracle:     oracle,
		GasStation: gas,
		Submitter:  submitter,
		Account:    account,
		Network:    cfg.network,
		Params:     params,
		Log:        logger,
	}

	began := time.Now()
	res, runErr := runner.Run(runCtx, rc, cfg.strategyFile)
	outcome := outcomeOf(runErr, cfg.enableSubmission)

	rec := metrics.New()
	rec.ObserveRun(outcome, time.Since(began), time.Now())
	if res != nil {
		rec.ObserveSelection(res.RotationIndex, res.GasPrice)
	}

	if err := jr.Record(runEvent(base, outcome, res, runErr)); err != nil {
		logger.Warn().Err(err).Msg("journal write failed")
	}

	if runErr == nil && cfg.enableSubmission {
		sub := submissionRecord(jr.RunID(), cfg.network, chainID.Int64(), exchangeAddr, account, res, time.Now())
		if err := runstate.Save(cfg.statePath, sub); err != nil {
			logger.Warn().Err(err).Msg("save run state")
		}
	}

	if gw := strings.TrimSpace(os.Getenv("PUSHGATEWAY_URL")); gw != "" {
		pushCtx, cancelPush := context.WithTimeout(context.Background(), pushTimeout)
		if err := rec.Push(pushCtx, gw, cfg.network, account.Hex()); err != nil {
			logger.Warn().Err(err).Msg("metrics push failed")
		}
		cancelPush()
	}

	if runErr != nil {
		return runErr
	}
	if cfg.enableSubmission {
		logger.Info().Str("tx", res.TxHash.Hex()).Msg("order submitted")
	} else {
		logger.Info().Msg("dry run complete (set -enable-submission or ENABLE_SUBMISSION=true to send)")
	}
	return nil
}

// buildSubmitter returns the order owner together with the submitter for it.
// With SAFE_ADDRESS set the Safe owns the orders and PRIVATE_KEY must be one of its owners.
func buildSubmitter(enable bool, client *ethclient.Client, exchange *batchexchange.Client, chainID *big.Int, logger zerolog.Logger) (auction.Submitter, common.Address, error) {
	if !enable {
		account, src, err := ethutil.ResolveAccount("")
		if err != nil {
			return nil, common.Address{}, err
		}
		logger.Info().Str("account", account.Hex()).Str("source", src).Msg("dry run: orders will not be sent")
		return dryRunSubmitter{log: logger}, account, nil
	}

	pkHex := strings.TrimSpace(os.Getenv("PRIVATE_KEY"))
	if pkHex == "" {
		return nil, common.Address{}, fmt.Errorf("PRIVATE_KEY required to submit orders")
	}
	key, err := ethutil.ParsePrivateKey(pkHex)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("PRIVATE_KEY: %w", err)
	}

	if raw := strings.TrimSpace(os.Getenv("SAFE_ADDRESS")); raw != "" {
		safeAddr, err := ethutil.ParseAddress(raw, "SAFE_ADDRESS")
		if err != nil {
			return nil, common.Address{}, err
		}
		sub, err := safe.NewSubmitter(client, exchange, safeAddr, key, chainID, safe.Options{
			WaitTimeout: defaultSafeWaitTimeout,
			Log:         logger,
		})
		if err != nil {
			return nil, common.Address{}, err
		}
		return sub, safeAddr, nil
	}

	sub, err := batchexchange.NewSubmitter(exchange, key, chainID)
	if err != nil {
		return nil, common.Address{}, err
	}
	return sub, crypto.PubkeyToAddress(key.PublicKey), nil
}

// dryRunSubmitter logs the order it would have placed.
type dryRunSubmitter struct {
	log zerolog.Logger
}

func (d dryRunSubmitter) Submit(_ context.Context, order auction.ResolvedOrder, gasPrice *big.Int) (common.Hash, error) {
	d.log.Info().
		Uint16("buy_token", order.BuyToken).
		Uint16("sell_token", order.SellToken).
		Str("buy_amount", order.BuyAmount.String()).
		Str("sell_amount", order.SellAmount.String()).
		Str("gas_price_gwei", auction.WeiToGwei(gasPrice)).
		Msg("dry run: would place order")
	return common.Hash{}, nil
}

func outcomeOf(err error, submitted bool) string {
	switch {
	case err == nil && submitted:
		return metrics.OutcomeSubmitted
	case err == nil:
		return metrics.OutcomeDryRun
	case errors.Is(err, auction.ErrIdempotency):
		return metrics.OutcomeAborted
	default:
		return metrics.OutcomeFailed
	}
}

func runEvent(base journal.Event, outcome string, res *auction.Result, runErr error) journal.Event {
	e := base
	switch outcome {
	case metrics.OutcomeSubmitted:
		e.Kind = journal.KindSubmitted
	case metrics.OutcomeDryRun:
		e.Kind = journal.KindDryRun
	default:
		e.Kind = journal.KindFailed
	}

	if runErr != nil {
		e.Error = runErr.Error()
		var aerr *auction.Error
		if errors.As(runErr, &aerr) {
			e.ErrorKind = string(aerr.Kind)
		}
		return e
	}
	if res == nil {
		return e
	}

	idx := res.RotationIndex
	e.RotationIndex = &idx
	e.BuyToken = res.BuyToken.Symbol
	e.SellToken = res.SellToken.Symbol
	e.OraclePrice = res.OraclePrice.String()
	e.PostedPrice = res.PostedPrice.String()
	if res.Order.BuyAmount != nil {
		e.BuyAmount = res.Order.BuyAmount.String()
	}
	if res.Order.SellAmount != nil {
		e.SellAmount = res.Order.SellAmount.String()
	}
	if res.GasPrice != nil {
		e.GasPriceWei = res.GasPrice.String()
	}
	if (res.TxHash != common.Hash{}) {
		e.TxHash = res.TxHash.Hex()
	}
	return e
}

func submissionRecord(runID, network string, chainID int64, exchange, account common.Address, res *auction.Result, at time.Time) runstate.Submission {
	sub := runstate.Submission{
		RunID:         runID,
		Network:       network,
		ChainID:       chainID,
		Exchange:      exchange.Hex(),
		Account:       account.Hex(),
		RotationIndex: res.RotationIndex,
		BuyToken:      res.Order.BuyToken,
		SellToken:     res.Order.SellToken,
		TxHash:        res.TxHash.Hex(),
		SubmittedAt:   at.UTC(),
	}
	if res.GasPrice != nil {
		sub.GasPriceWei = res.GasPrice.String()
	}
	return sub
}
