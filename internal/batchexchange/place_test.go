package batchexchange

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
	"github.com/livethelifetv/dex-liquidity-provision/internal/chaintest"
)

func newTestSubmitter(t *testing.T, backend *chaintest.Backend) (*Submitter, *big.Int) {
	t.Helper()
	client, err := NewClient(backend, testExchange)
	require.NoError(t, err)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	chainID := big.NewInt(1)
	sub, err := NewSubmitter(client, key, chainID)
	require.NoError(t, err)
	return sub, chainID
}

func TestSubmitter_Submit(t *testing.T) {
	t.Parallel()

	backend := &chaintest.Backend{}
	backend.On(t, testExchange, exchangeABI, "getCurrentBatchId", uint32(5_300_000))
	sub, chainID := newTestSubmitter(t, backend)

	order := auction.ResolvedOrder{BuyToken: 1, SellToken: 7, BuyAmount: big.NewInt(1_000), SellAmount: big.NewInt(2_000)}
	gasPrice := big.NewInt(42_000_000_000)
	hash, err := sub.Submit(context.Background(), order, gasPrice)
	require.NoError(t, err)

	sent := backend.Sent()
	require.Len(t, sent, 1)
	tx := sent[0]
	require.Equal(t, hash, tx.Hash())
	require.Equal(t, testExchange, *tx.To())
	require.Equal(t, uint8(types.LegacyTxType), tx.Type())
	require.Zero(t, gasPrice.Cmp(tx.GasPrice()))
	require.Equal(t, uint64(200_000), tx.Gas())

	from, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(sub.key.PublicKey), from)

	want, err := PackPlaceOrder(order, 5_300_000)
	require.NoError(t, err)
	require.Equal(t, want, tx.Data())

	args, err := exchangeABI.Methods["placeValidFromOrders"].Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	require.Equal(t, []uint16{1}, args[0])
	require.Equal(t, []uint16{7}, args[1])
	require.Equal(t, []uint32{5_300_000}, args[2])
	require.Equal(t, []uint32{5_300_000}, args[3])
}

func TestSubmitter_SubmitWithoutBatchID(t *testing.T) {
	t.Parallel()

	backend := &chaintest.Backend{}
	sub, _ := newTestSubmitter(t, backend)

	order := auction.ResolvedOrder{BuyToken: 1, SellToken: 7, BuyAmount: big.NewInt(1), SellAmount: big.NewInt(1)}
	_, err := sub.Submit(context.Background(), order, big.NewInt(1))
	require.ErrorContains(t, err, "getCurrentBatchId")
	require.Empty(t, backend.Sent())
}

func TestSubmitter_SubmitSendError(t *testing.T) {
	t.Parallel()

	backend := &chaintest.Backend{SendErr: errors.New("nonce too low")}
	backend.On(t, testExchange, exchangeABI, "getCurrentBatchId", uint32(9))
	sub, _ := newTestSubmitter(t, backend)

	order := auction.ResolvedOrder{BuyToken: 1, SellToken: 7, BuyAmount: big.NewInt(1), SellAmount: big.NewInt(1)}
	_, err := sub.Submit(context.Background(), order, big.NewInt(1))
	require.ErrorContains(t, err, "placeValidFromOrders batch=9")
	require.ErrorContains(t, err, "nonce too low")
}

func TestSubmitter_ExecNodePricedWhenNoGasPrice(t *testing.T) {
	t.Parallel()

	backend := &chaintest.Backend{}
	sub, _ := newTestSubmitter(t, backend)

	tx, err := sub.Exec(context.Background(), testWETH, []byte{0x01, 0x02, 0x03, 0x04}, nil)
	require.NoError(t, err)
	require.Equal(t, testWETH, *tx.To())
	require.Equal(t, "1000000000", tx.GasPrice().String())
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, tx.Data())
}
