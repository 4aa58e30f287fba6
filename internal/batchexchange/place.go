package batchexchange

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
)

func placeArgs(order auction.ResolvedOrder, batchID uint32) []interface{} {
	// Validity is inclusive on both sides: the order lives for exactly one batch.
	return []interface{}{
		[]uint16{order.BuyToken},
		[]uint16{order.SellToken},
		[]uint32{batchID},
		[]uint32{batchID},
		[]*big.Int{order.BuyAmount},
		[]*big.Int{order.SellAmount},
	}
}

// PackPlaceOrder returns calldata for placeValidFromOrders with a single order.
func PackPlaceOrder(order auction.ResolvedOrder, batchID uint32) ([]byte, error) {
	if order.BuyAmount == nil || order.SellAmount == nil {
		return nil, fmt.Errorf("placeValidFromOrders: amounts required")
	}
	return exchangeABI.Pack("placeValidFromOrders", placeArgs(order, batchID)...)
}

// Submitter places orders from an externally owned account.
type Submitter struct {
	client  *Client
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

func NewSubmitter(client *Client, key *ecdsa.PrivateKey, chainID *big.Int) (*Submitter, error) {
	if client == nil || client.backend == nil {
		return nil, fmt.Errorf("batchexchange: submitter needs a transacting client")
	}
	if key == nil {
		return nil, fmt.Errorf("batchexchange: private key required to submit orders")
	}
	if chainID == nil {
		return nil, fmt.Errorf("batchexchange: chain id required")
	}
	return &Submitter{client: client, key: key, chainID: chainID}, nil
}

// Submit implements auction.Submitter.
func (s *Submitter) Submit(ctx context.Context, order auction.ResolvedOrder, gasPrice *big.Int) (common.Hash, error) {
	batchID, err := s.client.CurrentBatchID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	data, err := PackPlaceOrder(order, batchID)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := s.Exec(ctx, s.client.exchange, data, gasPrice)
	if err != nil {
		return common.Hash{}, fmt.Errorf("placeValidFromOrders batch=%d: %w", batchID, err)
	}
	return tx.Hash(), nil
}

// Exec sends calldata to any contract from the key's account.
// A nil gasPrice lets the node price the transaction.
func (s *Submitter) Exec(ctx context.Context, to common.Address, data []byte, gasPrice *big.Int) (*types.Transaction, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.GasPrice = gasPrice

	contract := bind.NewBoundContract(to, abi.ABI{}, s.client.backend, s.client.backend, s.client.backend)
	return contract.RawTransact(opts, data)
}
