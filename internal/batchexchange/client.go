package batchexchange

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
)

var (
	exchangeABI     = mustParseABI(exchangeABIJSON)
	erc20ABI        = mustParseABI(erc20ABIJSON)
	erc20Bytes32ABI = mustParseABI(erc20Bytes32SymbolABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("batchexchange: parse abi: %v", err))
	}
	return parsed
}

// Client reads from and writes to a BatchExchange deployment.
type Client struct {
	caller   ethereum.ContractCaller
	backend  bind.ContractBackend
	exchange common.Address
}

// NewClient binds the exchange at address using backend (usually *ethclient.Client).
func NewClient(backend bind.ContractBackend, exchange common.Address) (*Client, error) {
	if backend == nil {
		return nil, fmt.Errorf("batchexchange: backend required")
	}
	if (exchange == common.Address{}) {
		return nil, fmt.Errorf("batchexchange: exchange address required")
	}
	return &Client{caller: backend, backend: backend, exchange: exchange}, nil
}

// newReadOnlyClient is enough for every view call.
func newReadOnlyClient(caller ethereum.ContractCaller, exchange common.Address) *Client {
	return &Client{caller: caller, exchange: exchange}
}

func (c *Client) Exchange() common.Address {
	return c.exchange
}

func (c *Client) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result from %s", method, to.Hex())
	}
	return contractABI.Unpack(method, out)
}

func single[T any](vals []interface{}, method string) (T, error) {
	var zero T
	if len(vals) != 1 {
		return zero, fmt.Errorf("%s: unexpected result len %d", method, len(vals))
	}
	v, ok := vals[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected type %T", method, vals[0])
	}
	return v, nil
}

// Orders returns every order the exchange holds for user.
func (c *Client) Orders(ctx context.Context, user common.Address) ([]Order, error) {
	vals, err := c.call(ctx, exchangeABI, c.exchange, "getEncodedUserOrders", user)
	if err != nil {
		return nil, fmt.Errorf("getEncodedUserOrders(%s): %w", user.Hex(), err)
	}
	raw, err := single[[]byte](vals, "getEncodedUserOrders")
	if err != nil {
		return nil, err
	}
	return DecodeOrders(raw)
}

// OpenOrders implements auction.Ledger.
func (c *Client) OpenOrders(ctx context.Context, user common.Address) ([]auction.OpenOrder, error) {
	orders, err := c.Orders(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]auction.OpenOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.OpenOrder())
	}
	return out, nil
}

func (c *Client) TokenAddress(ctx context.Context, id uint16) (common.Address, error) {
	vals, err := c.call(ctx, exchangeABI, c.exchange, "tokenIdToAddressMap", id)
	if err != nil {
		return common.Address{}, fmt.Errorf("tokenIdToAddressMap(%d): %w", id, err)
	}
	addr, err := single[common.Address](vals, "tokenIdToAddressMap")
	if err != nil {
		return common.Address{}, err
	}
	if (addr == common.Address{}) {
		return common.Address{}, fmt.Errorf("token id %d is not listed on the exchange", id)
	}
	return addr, nil
}

// TokenInfo implements auction.Ledger: exchange id -> ERC20 address, symbol and decimals.
func (c *Client) TokenInfo(ctx context.Context, id uint16) (auction.TokenInfo, error) {
	addr, err := c.TokenAddress(ctx, id)
	if err != nil {
		return auction.TokenInfo{}, err
	}

	symbol, err := c.tokenSymbol(ctx, addr)
	if err != nil {
		return auction.TokenInfo{}, fmt.Errorf("token %d symbol: %w", id, err)
	}

	vals, err := c.call(ctx, erc20ABI, addr, "decimals")
	if err != nil {
		return auction.TokenInfo{}, fmt.Errorf("token %d decimals: %w", id, err)
	}
	decimals, err := single[uint8](vals, "decimals")
	if err != nil {
		return auction.TokenInfo{}, err
	}

	return auction.TokenInfo{ID: id, Symbol: symbol, Address: addr, Decimals: decimals}, nil
}

func (c *Client) tokenSymbol(ctx context.Context, token common.Address) (string, error) {
	vals, err := c.call(ctx, erc20ABI, token, "symbol")
	if err == nil {
		return single[string](vals, "symbol")
	}
	vals, err32 := c.call(ctx, erc20Bytes32ABI, token, "symbol")
	if err32 != nil {
		return "", err
	}
	b, err := single[[32]byte](vals, "symbol")
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(b[:], "\x00")), nil
}

func (c *Client) CurrentBatchID(ctx context.Context) (uint32, error) {
	vals, err := c.call(ctx, exchangeABI, c.exchange, "getCurrentBatchId")
	if err != nil {
		return 0, fmt.Errorf("getCurrentBatchId: %w", err)
	}
	return single[uint32](vals, "getCurrentBatchId")
}

// Balance implements auction.BalanceReader.
func (c *Client) Balance(ctx context.Context, user, token common.Address) (*big.Int, error) {
	vals, err := c.call(ctx, exchangeABI, c.exchange, "getBalance", user, token)
	if err != nil {
		return nil, fmt.Errorf("getBalance(%s,%s): %w", user.Hex(), token.Hex(), err)
	}
	return single[*big.Int](vals, "getBalance")
}
