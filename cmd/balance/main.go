package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
	"github.com/livethelifetv/dex-liquidity-provision/internal/batchexchange"
	"github.com/livethelifetv/dex-liquidity-provision/internal/config"
	"github.com/livethelifetv/dex-liquidity-provision/internal/dotenv"
	"github.com/livethelifetv/dex-liquidity-provision/internal/ethutil"
)

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var accountFlag string
	var strategyFlag string
	var tokensFlag string
	var networkFlag string
	var networksFlag string
	var showOrders bool
	flag.StringVar(&accountFlag, "account", "", "Exchange account to inspect (default: SAFE_ADDRESS or signer from PRIVATE_KEY)")
	flag.StringVar(&strategyFlag, "strategyFile", "", "Strategy file whose tokens are listed")
	flag.StringVar(&tokensFlag, "tokens", "", "Comma separated exchange token ids (alternative to -strategyFile)")
	flag.StringVar(&networkFlag, "network", "mainnet", "Network profile name")
	flag.StringVar(&networksFlag, "networks", "", "Optional YAML file overriding network profiles")
	flag.BoolVar(&showOrders, "orders", true, "Also list the account's orders that are open or scheduled")
	flag.Parse()

	ids, err := tokenIDs(strategyFlag, tokensFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	nets, err := config.LoadNetworks(networksFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	network, err := nets.Lookup(networkFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	exchangeAddr, err := network.ExchangeAddress()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	rpcURL, err := config.RPCURLFromEnv()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	account, accountSrc, err := ethutil.ResolveAccount(accountFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		log.Fatalf("[fatal] dial RPC: %v", err)
	}
	defer client.Close()

	exchange, err := batchexchange.NewClient(client, exchangeAddr)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	fmt.Printf("account: %s (%s)\n", account.Hex(), accountSrc)
	fmt.Printf("exchange: %s (%s)\n", exchangeAddr.Hex(), networkFlag)

	for _, id := range ids {
		info, err := exchange.TokenInfo(ctx, id)
		if err != nil {
			log.Printf("[warn] token %d: %v", id, err)
			continue
		}
		bal, err := exchange.Balance(ctx, account, info.Address)
		if err != nil {
			log.Printf("[warn] balance %s: %v", info.Symbol, err)
			continue
		}
		fmt.Printf("token %d %-8s %s (raw=%s)\n", id, info.Symbol, ethutil.FormatUnits(bal, info.Decimals), bal.String())
	}

	if !showOrders {
		return
	}
	orders, err := exchange.Orders(ctx, account)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	now := time.Now()
	open := 0
	for _, o := range orders {
		if !o.OpenOrder().StillOpen(now) {
			continue
		}
		open++
		fmt.Printf("order buy=%d sell=%d valid_batches=%d..%d remaining=%s\n",
			o.BuyToken, o.SellToken, o.ValidFrom, o.ValidUntil, o.RemainingAmount.String())
	}
	fmt.Printf("open_or_future_orders: %d (of %d on record)\n", open, len(orders))
}

func tokenIDs(strategyPath, tokens string) ([]uint16, error) {
	if strings.TrimSpace(strategyPath) != "" {
		s, err := auction.LoadStrategy(strategyPath)
		if err != nil {
			return nil, err
		}
		return s.TokenIDs(), nil
	}
	ids, err := ethutil.ParseTokenIDs(tokens)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("pass -strategyFile or -tokens")
	}
	return ids, nil
}
