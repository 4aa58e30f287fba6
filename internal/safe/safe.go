// Package safe sends exchange transactions through a 1-of-1 Gnosis Safe.
package safe

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
	"github.com/livethelifetv/dex-liquidity-provision/internal/batchexchange"
)

const safeABIJSON = `[
  {"inputs":[],"name":"nonce","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"to","type":"address"},
    {"internalType":"uint256","name":"value","type":"uint256"},
    {"internalType":"bytes","name":"data","type":"bytes"},
    {"internalType":"uint8","name":"operation","type":"uint8"},
    {"internalType":"uint256","name":"safeTxGas","type":"uint256"},
    {"internalType":"uint256","name":"baseGas","type":"uint256"},
    {"internalType":"uint256","name":"gasPrice","type":"uint256"},
    {"internalType":"address","name":"gasToken","type":"address"},
    {"internalType":"address","name":"refundReceiver","type":"address"},
    {"internalType":"uint256","name":"nonce","type":"uint256"}
  ],"name":"getTransactionHash","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"to","type":"address"},
    {"internalType":"uint256","name":"value","type":"uint256"},
    {"internalType":"bytes","name":"data","type":"bytes"},
    {"internalType":"uint8","name":"operation","type":"uint8"},
    {"internalType":"uint256","name":"safeTxGas","type":"uint256"},
    {"internalType":"uint256","name":"baseGas","type":"uint256"},
    {"internalType":"uint256","name":"gasPrice","type":"uint256"},
    {"internalType":"address","name":"gasToken","type":"address"},
    {"internalType":"address","name":"refundReceiver","type":"address"},
    {"internalType":"bytes","name":"signatures","type":"bytes"}
  ],"name":"execTransaction","outputs":[{"internalType":"bool","name":"success","type":"bool"}],"stateMutability":"payable","type":"function"},
  {"inputs":[],"name":"getOwners","outputs":[{"internalType":"address[]","name":"","type":"address[]"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"getThreshold","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var safeABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(safeABIJSON))
	if err != nil {
		panic(fmt.Sprintf("safe abi parse: %v", err))
	}
	return parsed
}()

const callTimeout = 8 * time.Second

// operationCall is a plain CALL (as opposed to DELEGATECALL) from the Safe.
const operationCall uint8 = 0

// Reader performs the view calls the exec flow needs.
type Reader struct {
	caller ethereum.ContractCaller
	safe   common.Address
}

func NewReader(caller ethereum.ContractCaller, safe common.Address) *Reader {
	return &Reader{caller: caller, safe: safe}
}

func (r *Reader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	data, err := safeABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := r.caller.CallContract(callCtx, ethereum.CallMsg{To: &r.safe, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return safeABI.Unpack(method, out)
}

// Meta returns the signing threshold and the owners of the Safe.
func (r *Reader) Meta(ctx context.Context) (int64, []common.Address, error) {
	vals, err := r.call(ctx, "getThreshold")
	if err != nil {
		return 0, nil, fmt.Errorf("safe getThreshold: %w", err)
	}
	if len(vals) != 1 {
		return 0, nil, fmt.Errorf("safe getThreshold: unexpected result len %d", len(vals))
	}
	t, ok := vals[0].(*big.Int)
	if !ok || t.Sign() <= 0 {
		return 0, nil, fmt.Errorf("safe threshold invalid: %v", vals[0])
	}

	vals, err = r.call(ctx, "getOwners")
	if err != nil {
		return t.Int64(), nil, fmt.Errorf("safe getOwners: %w", err)
	}
	if len(vals) != 1 {
		return t.Int64(), nil, fmt.Errorf("safe getOwners: unexpected result len %d", len(vals))
	}
	owners, ok := vals[0].([]common.Address)
	if !ok || len(owners) == 0 {
		return t.Int64(), nil, fmt.Errorf("safe owners empty")
	}
	return t.Int64(), owners, nil
}

func (r *Reader) Nonce(ctx context.Context) (*big.Int, error) {
	vals, err := r.call(ctx, "nonce")
	if err != nil {
		return nil, fmt.Errorf("safe nonce: %w", err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("safe nonce: unexpected result len %d", len(vals))
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("safe nonce: unexpected type %T", vals[0])
	}
	return n, nil
}

// TransactionHash asks the Safe for the EIP-712 hash its owners must sign.
func (r *Reader) TransactionHash(ctx context.Context, to common.Address, data []byte, nonce *big.Int) ([32]byte, error) {
	vals, err := r.call(ctx, "getTransactionHash",
		to,
		big.NewInt(0),
		data,
		operationCall,
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		common.Address{},
		common.Address{},
		nonce,
	)
	if err != nil {
		return [32]byte{}, err
	}
	if len(vals) != 1 {
		return [32]byte{}, fmt.Errorf("safe tx hash: unexpected result len %d", len(vals))
	}
	switch v := vals[0].(type) {
	case [32]byte:
		return v, nil
	case common.Hash:
		return v, nil
	default:
		return [32]byte{}, fmt.Errorf("safe tx hash: unexpected type %T", vals[0])
	}
}

// SignHash produces an owner signature in the Safe's r||s||v format (v in {27,28}).
func SignHash(hash [32]byte, pk *ecdsa.PrivateKey) ([]byte, error) {
	if pk == nil {
		return nil, errors.New("missing private key")
	}
	sig, err := crypto.Sign(hash[:], pk)
	if err != nil {
		return nil, err
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("unexpected signature length %d", len(sig))
	}
	sig[64] += 27
	return sig, nil
}

// Backend transacts and waits for receipts; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Submitter implements auction.Submitter by wrapping placeValidFromOrders in execTransaction.
type Submitter struct {
	backend     Backend
	reader      *Reader
	exchange    *batchexchange.Client
	safe        common.Address
	key         *ecdsa.PrivateKey
	chainID     *big.Int
	waitTimeout time.Duration
	log         zerolog.Logger
}

type Options struct {
	// WaitTimeout > 0 blocks until the exec transaction is mined.
	WaitTimeout time.Duration
	Log         zerolog.Logger
}

func NewSubmitter(backend Backend, exchange *batchexchange.Client, safe common.Address, key *ecdsa.PrivateKey, chainID *big.Int, opts Options) (*Submitter, error) {
	if backend == nil || exchange == nil {
		return nil, fmt.Errorf("safe: backend and exchange required")
	}
	if (safe == common.Address{}) {
		return nil, fmt.Errorf("safe: address required")
	}
	if key == nil {
		return nil, fmt.Errorf("safe: owner private key required")
	}
	return &Submitter{
		backend:     backend,
		reader:      NewReader(backend, safe),
		exchange:    exchange,
		safe:        safe,
		key:         key,
		chainID:     chainID,
		waitTimeout: opts.WaitTimeout,
		log:         opts.Log,
	}, nil
}

// Submit implements auction.Submitter.
func (s *Submitter) Submit(ctx context.Context, order auction.ResolvedOrder, gasPrice *big.Int) (common.Hash, error) {
	batchID, err := s.exchange.CurrentBatchID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	data, err := batchexchange.PackPlaceOrder(order, batchID)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := s.Exec(ctx, s.exchange.Exchange(), data, gasPrice)
	if err != nil {
		return common.Hash{}, err
	}
	s.log.Info().Str("tx", tx.Hash().Hex()).Str("safe", s.safe.Hex()).Uint32("batch", batchID).Msg("safe exec sent")

	if s.waitTimeout > 0 {
		receipt, err := waitForReceipt(ctx, s.backend, tx, s.waitTimeout)
		if err != nil {
			return tx.Hash(), fmt.Errorf("wait receipt %s: %w", tx.Hash().Hex(), err)
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return tx.Hash(), fmt.Errorf("safe tx reverted tx=%s", tx.Hash().Hex())
		}
	}
	return tx.Hash(), nil
}

// Exec has the Safe CALL to with data, signed by its single owner. It does not wait for mining.
func (s *Submitter) Exec(ctx context.Context, to common.Address, data []byte, gasPrice *big.Int) (*types.Transaction, error) {
	signer := crypto.PubkeyToAddress(s.key.PublicKey)

	threshold, owners, err := s.reader.Meta(ctx)
	if err != nil {
		return nil, err
	}
	if threshold > 1 {
		return nil, fmt.Errorf("safe threshold=%d not supported (needs 1-of-1)", threshold)
	}
	if !containsAddress(owners, signer) {
		return nil, fmt.Errorf("signer %s not owner of safe %s", signer.Hex(), s.safe.Hex())
	}

	nonce, err := s.reader.Nonce(ctx)
	if err != nil {
		return nil, err
	}
	hash, err := s.reader.TransactionHash(ctx, to, data, nonce)
	if err != nil {
		return nil, fmt.Errorf("safe tx hash: %w", err)
	}
	signature, err := SignHash(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("safe signature: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.GasPrice = gasPrice

	contract := bind.NewBoundContract(s.safe, safeABI, s.backend, s.backend, s.backend)
	tx, err := contract.Transact(opts, "execTransaction",
		to,
		big.NewInt(0),
		data,
		operationCall,
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		common.Address{},
		common.Address{},
		signature,
	)
	if err != nil {
		return nil, fmt.Errorf("safe execTransaction nonce=%s: %w", nonce, err)
	}
	return tx, nil
}

func waitForReceipt(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return bind.WaitMined(waitCtx, backend, tx)
}

func containsAddress(addrs []common.Address, target common.Address) bool {
	for _, addr := range addrs {
		if addr == target {
			return true
		}
	}
	return false
}
