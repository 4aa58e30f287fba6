package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
	"github.com/livethelifetv/dex-liquidity-provision/internal/config"
	"github.com/livethelifetv/dex-liquidity-provision/internal/dotenv"
	"github.com/livethelifetv/dex-liquidity-provision/internal/logging"
)

type cliConfig struct {
	args         auction.Args
	strategyFile string

	network      string
	networksPath string

	enableSubmission bool
	journalPath      string
	statePath        string
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
		logger.Error().Err(err).Msg("auction run failed")
		stop()
		os.Exit(1)
	}
}

func loadConfig(fs *flag.FlagSet, argv []string) (cliConfig, error) {
	var cfg cliConfig

	var allowanceFlag string
	var startFlag int64
	var enableFlag bool

	fs.StringVar(&cfg.args.GasPrice, "gasPrice", string(auction.GasStandard), fmt.Sprintf("Gas station tier, one of %v.", auction.GasTiers))
	fs.Float64Var(&cfg.args.GasPriceScale, "gasPriceScale", 1.0, "Multiplier applied to the gas station price.")
	fs.StringVar(&cfg.strategyFile, "strategyFile", "", "JSON file with the ordered list of strategy orders (required).")
	fs.Int64Var(&startFlag, "startTimestamp", 0, "Rotation start as unix time in milliseconds (required).")
	fs.StringVar(&allowanceFlag, "priceAllowancePercent", "", "Integer 0-100: percent below the oracle price the order is posted at (required).")
	fs.StringVar(&cfg.network, "network", "mainnet", "Network profile name.")
	fs.StringVar(&cfg.networksPath, "networks", "", "Optional YAML file overriding network profiles.")
	fs.BoolVar(&enableFlag, "enable-submission", false, "Send the order transaction (default false; set ENABLE_SUBMISSION).")
	fs.StringVar(&cfg.journalPath, "journal", "", "Append run events as JSONL to this file (default AUCTION_JOURNAL).")
	fs.StringVar(&cfg.statePath, "state", "", "Record the last submission in this file (default AUCTION_STATE).")
	fs.StringVar(&cfg.logLevel, "log-level", "", "zerolog level (default LOG_LEVEL or info).")
	if err := fs.Parse(argv); err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cfg.strategyFile) == "" {
		return cfg, fmt.Errorf("-strategyFile is required")
	}
	if strings.TrimSpace(allowanceFlag) == "" {
		return cfg, fmt.Errorf("-priceAllowancePercent is required")
	}
	if !isFlagSet(fs, "startTimestamp") {
		return cfg, fmt.Errorf("-startTimestamp is required")
	}
	cfg.args.StartTimestampMs = startFlag

	// Non-numeric input such as "10%" is reported by argument validation.
	allowance, err := strconv.ParseFloat(strings.TrimSpace(allowanceFlag), 64)
	if err != nil {
		allowance = math.NaN()
	}
	cfg.args.PriceAllowancePercent = allowance

	cfg.enableSubmission = enableFlag
	if !cfg.enableSubmission {
		v, err := config.EnvBool("ENABLE_SUBMISSION", false)
		if err != nil {
			return cfg, fmt.Errorf("invalid %w", err)
		}
		cfg.enableSubmission = v
	}

	cfg.journalPath = config.FirstNonEmpty(cfg.journalPath, os.Getenv("AUCTION_JOURNAL"))
	cfg.statePath = config.FirstNonEmpty(cfg.statePath, os.Getenv("AUCTION_STATE"))
	cfg.logLevel = config.FirstNonEmpty(cfg.logLevel, os.Getenv("LOG_LEVEL"), "info")
	cfg.network = strings.TrimSpace(cfg.network)
	return cfg, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
