package batchexchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

// Deposit moves Amount base units of Token into the sender's exchange balance.
type Deposit struct {
	Token  common.Address
	Amount *big.Int
}

type depositEntry struct {
	TokenAddress string `json:"tokenAddress"`
	Amount       string `json:"amount"`
}

// ParseDeposits reads a JSON array of {"tokenAddress", "amount"} entries.
// Amounts are decimal integers in the token's base units.
func ParseDeposits(b []byte) ([]Deposit, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var entries []depositEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("deposit file: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("deposit file has trailing data after the array")
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("deposit file lists no deposits")
	}

	out := make([]Deposit, 0, len(entries))
	for i, e := range entries {
		raw := strings.TrimSpace(e.TokenAddress)
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("deposit %d: invalid tokenAddress %q", i, e.TokenAddress)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(e.Amount), 10)
		if !ok || amount.Sign() <= 0 {
			return nil, fmt.Errorf("deposit %d: amount must be a positive integer, got %q", i, e.Amount)
		}
		out = append(out, Deposit{Token: common.HexToAddress(raw), Amount: amount})
	}
	return out, nil
}

func LoadDeposits(path string) ([]Deposit, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deposit file: %w", err)
	}
	return ParseDeposits(b)
}

func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}

func PackDeposit(token common.Address, amount *big.Int) ([]byte, error) {
	return exchangeABI.Pack("deposit", token, amount)
}

// Call is one transaction sent from the exchange account.
type Call struct {
	Method string
	To     common.Address
	Data   []byte
}

// DepositCalls returns, for every deposit in order, the token approval followed by the exchange deposit.
func DepositCalls(exchange common.Address, deposits []Deposit) ([]Call, error) {
	calls := make([]Call, 0, 2*len(deposits))
	for _, d := range deposits {
		approve, err := PackApprove(exchange, d.Amount)
		if err != nil {
			return nil, fmt.Errorf("approve %s: %w", d.Token.Hex(), err)
		}
		deposit, err := PackDeposit(d.Token, d.Amount)
		if err != nil {
			return nil, fmt.Errorf("deposit %s: %w", d.Token.Hex(), err)
		}
		calls = append(calls,
			Call{Method: "approve", To: d.Token, Data: approve},
			Call{Method: "deposit", To: exchange, Data: deposit},
		)
	}
	return calls, nil
}

// Executor sends calldata from the exchange account. *Submitter and *safe.Submitter implement it.
type Executor interface {
	Exec(ctx context.Context, to common.Address, data []byte, gasPrice *big.Int) (*types.Transaction, error)
}

// Depositor sends calls one at a time. The exchange pulls tokens with transferFrom,
// so each deposit is only sent once its approval is mined.
type Depositor struct {
	exec        Executor
	receipts    bind.DeployBackend
	waitTimeout time.Duration
	log         zerolog.Logger
}

func NewDepositor(exec Executor, receipts bind.DeployBackend, waitTimeout time.Duration, log zerolog.Logger) (*Depositor, error) {
	if exec == nil || receipts == nil {
		return nil, fmt.Errorf("batchexchange: depositor needs an executor and a receipt backend")
	}
	if waitTimeout <= 0 {
		return nil, fmt.Errorf("batchexchange: deposit wait timeout must be positive")
	}
	return &Depositor{exec: exec, receipts: receipts, waitTimeout: waitTimeout, log: log}, nil
}

// Run stops at the first failed or reverted call and returns the hashes sent so far.
func (d *Depositor) Run(ctx context.Context, calls []Call, gasPrice *big.Int) ([]common.Hash, error) {
	hashes := make([]common.Hash, 0, len(calls))
	for i, c := range calls {
		tx, err := d.exec.Exec(ctx, c.To, c.Data, gasPrice)
		if err != nil {
			return hashes, fmt.Errorf("%s %s: %w", c.Method, c.To.Hex(), err)
		}
		hashes = append(hashes, tx.Hash())
		d.log.Info().Int("step", i+1).Int("of", len(calls)).Str("method", c.Method).Str("to", c.To.Hex()).Str("tx", tx.Hash().Hex()).Msg("deposit step sent")

		waitCtx, cancel := context.WithTimeout(ctx, d.waitTimeout)
		receipt, err := bind.WaitMined(waitCtx, d.receipts, tx)
		cancel()
		if err != nil {
			return hashes, fmt.Errorf("wait %s %s: %w", c.Method, tx.Hash().Hex(), err)
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return hashes, fmt.Errorf("%s reverted tx=%s", c.Method, tx.Hash().Hex())
		}
	}
	return hashes, nil
}
