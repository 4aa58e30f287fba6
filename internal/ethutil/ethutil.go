// Package ethutil holds account, key and unit helpers shared by the command-line tools.
package ethutil

import (
	"crypto/ecdsa"
	"fmt"
	"math"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// ParsePrivateKey accepts a hex key with or without 0x prefix.
func ParsePrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	pkHex := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if pkHex == "" {
		return nil, fmt.Errorf("private key empty")
	}
	pk, err := crypto.HexToECDSA(pkHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return pk, nil
}

func ParseAddress(raw, what string) (common.Address, error) {
	s := strings.TrimSpace(raw)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s %q", what, raw)
	}
	return common.HexToAddress(s), nil
}

// ResolveAccount picks the order-owning account: explicit flag, then SAFE_ADDRESS, then the PRIVATE_KEY signer.
// The second return names where the address came from.
func ResolveAccount(addrFlag string) (common.Address, string, error) {
	if strings.TrimSpace(addrFlag) != "" {
		addr, err := ParseAddress(addrFlag, "-account")
		return addr, "-account", err
	}
	if safe := strings.TrimSpace(os.Getenv("SAFE_ADDRESS")); safe != "" {
		addr, err := ParseAddress(safe, "SAFE_ADDRESS env")
		return addr, "SAFE_ADDRESS", err
	}
	if pkHex := strings.TrimSpace(os.Getenv("PRIVATE_KEY")); pkHex != "" {
		pk, err := ParsePrivateKey(pkHex)
		if err != nil {
			return common.Address{}, "", fmt.Errorf("PRIVATE_KEY: %w", err)
		}
		return crypto.PubkeyToAddress(pk.PublicKey), "PRIVATE_KEY", nil
	}
	return common.Address{}, "", fmt.Errorf("account required: set SAFE_ADDRESS, PRIVATE_KEY, or pass -account")
}

// FormatUnits renders a base-unit amount in whole tokens, trimming trailing zeros.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// ParseTokenIDs parses exchange token ids separated by commas, semicolons or whitespace.
// Duplicates are dropped (first occurrence wins). Returns (nil, nil) for blank input.
func ParseTokenIDs(raw string) ([]uint16, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	parts := strings.FieldsFunc(trimmed, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\n', '\r', '\t':
			return true
		default:
			return false
		}
	})

	out := make([]uint16, 0, len(parts))
	seen := make(map[uint16]struct{}, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil || n > math.MaxUint16 {
			return nil, fmt.Errorf("invalid token id %q in %q", part, raw)
		}
		id := uint16(n)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
