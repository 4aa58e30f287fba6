package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/livethelifetv/dex-liquidity-provision/internal/batchexchange"
	"github.com/livethelifetv/dex-liquidity-provision/internal/config"
	"github.com/livethelifetv/dex-liquidity-provision/internal/dotenv"
	"github.com/livethelifetv/dex-liquidity-provision/internal/ethutil"
	"github.com/livethelifetv/dex-liquidity-provision/internal/logging"
	"github.com/livethelifetv/dex-liquidity-provision/internal/safe"
)

type cliConfig struct {
	depositFile  string
	network      string
	networksPath string

	// nil lets the node price each transaction.
	gasPrice *big.Int

	enableSubmission bool
	waitTimeout      time.Duration
	logLevel         string
}

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	logger := logging.NewLogger(cfg.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("deposit failed")
		stop()
		os.Exit(1)
	}
}

func loadConfig(fs *flag.FlagSet, argv []string) (cliConfig, error) {
	var cfg cliConfig

	var gasFlag string
	var enableFlag bool
	fs.StringVar(&cfg.depositFile, "depositFile", "", "JSON list of {tokenAddress, amount} deposits, amounts in base units (required).")
	fs.StringVar(&cfg.network, "network", "mainnet", "Network profile name.")
	fs.StringVar(&cfg.networksPath, "networks", "", "Optional YAML file overriding network profiles.")
	fs.StringVar(&gasFlag, "gasPriceGwei", "", "Gas price in gwei (default: node suggestion).")
	fs.BoolVar(&enableFlag, "enable-submission", false, "Send the transactions (default false; set ENABLE_SUBMISSION).")
	fs.DurationVar(&cfg.waitTimeout, "wait", 5*time.Minute, "How long to wait for each transaction to be mined.")
	fs.StringVar(&cfg.logLevel, "log-level", "", "zerolog level (default LOG_LEVEL or info).")
	if err := fs.Parse(argv); err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cfg.depositFile) == "" {
		return cfg, fmt.Errorf("-depositFile is required")
	}
	if cfg.waitTimeout <= 0 {
		return cfg, fmt.Errorf("-wait must be positive")
	}
	gasPrice, err := parseGwei(gasFlag)
	if err != nil {
		return cfg, err
	}
	cfg.gasPrice = gasPrice

	cfg.enableSubmission = enableFlag
	if !cfg.enableSubmission {
		v, err := config.EnvBool("ENABLE_SUBMISSION", false)
		if err != nil {
			return cfg, fmt.Errorf("invalid %w", err)
		}
		cfg.enableSubmission = v
	}
	cfg.logLevel = config.FirstNonEmpty(cfg.logLevel, os.Getenv("LOG_LEVEL"), "info")
	cfg.network = strings.TrimSpace(cfg.network)
	return cfg, nil
}

// parseGwei converts a decimal gwei amount to wei. Blank input yields nil.
func parseGwei(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid -gasPriceGwei %q: %w", raw, err)
	}
	wei := d.Shift(9)
	if !wei.IsInteger() || wei.Sign() <= 0 {
		return nil, fmt.Errorf("-gasPriceGwei must be positive with at most 9 decimals, got %q", raw)
	}
	return wei.BigInt(), nil
}

func run(ctx context.Context, cfg cliConfig, logger zerolog.Logger) error {
	deposits, err := batchexchange.LoadDeposits(cfg.depositFile)
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

	calls, err := batchexchange.DepositCalls(exchangeAddr, deposits)
	if err != nil {
		return err
	}
	logCalls(logger, calls)
	if !cfg.enableSubmission {
		logger.Info().Int("transactions", len(calls)).Msg("dry run complete (set -enable-submission or ENABLE_SUBMISSION=true to send)")
		return nil
	}

	rpcURL, err := config.RPCURLFromEnv()
	if err != nil {
		return err
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
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
	exec, account, err := buildExecutor(client, exchange, chainID, logger)
	if err != nil {
		return err
	}
	logger = logger.With().Str("account", account.Hex()).Logger()

	depositor, err := batchexchange.NewDepositor(exec, client, cfg.waitTimeout, logger)
	if err != nil {
		return err
	}
	hashes, err := depositor.Run(ctx, calls, cfg.gasPrice)
	if err != nil {
		return fmt.Errorf("after %d of %d transactions: %w", len(hashes), len(calls), err)
	}
	logger.Info().Int("transactions", len(hashes)).Msg("deposits mined")
	return nil
}

// buildExecutor sends from SAFE_ADDRESS when set, otherwise from the PRIVATE_KEY account.
func buildExecutor(client *ethclient.Client, exchange *batchexchange.Client, chainID *big.Int, logger zerolog.Logger) (batchexchange.Executor, common.Address, error) {
	pkHex := strings.TrimSpace(os.Getenv("PRIVATE_KEY"))
	if pkHex == "" {
		return nil, common.Address{}, fmt.Errorf("PRIVATE_KEY required to send deposits")
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
		// The depositor waits for every step itself.
		sub, err := safe.NewSubmitter(client, exchange, safeAddr, key, chainID, safe.Options{Log: logger})
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

func logCalls(logger zerolog.Logger, calls []batchexchange.Call) {
	for i, c := range calls {
		logger.Info().
			Int("step", i+1).
			Str("method", c.Method).
			Str("to", c.To.Hex()).
			Str("data", common.Bytes2Hex(c.Data)).
			Msg("planned transaction")
	}
}
