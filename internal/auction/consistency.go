package auction

import "github.com/ethereum/go-ethereum/common"

// TokenInfo is the ledger's authoritative view of a listed token.
type TokenInfo struct {
	ID       uint16
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// CheckTokenConsistency fails on the first (id, symbol) pair of the strategy
// that disagrees with the resolved token metadata.
func CheckTokenConsistency(s Strategy, tokens map[uint16]TokenInfo) error {
	for _, o := range s {
		for _, pair := range [2]struct {
			id     uint16
			symbol string
		}{
			{o.BuyTokenID, o.BuyTokenSymbol},
			{o.SellTokenID, o.SellTokenSymbol},
		} {
			info, ok := tokens[pair.id]
			if !ok {
				return consistencyError("token at given id (%d) was not resolved, declared symbol (%s)", pair.id, pair.symbol)
			}
			if info.Symbol != pair.symbol {
				return consistencyError("token at given id (%d, %s) and token symbol (%s) don't match", pair.id, info.Symbol, pair.symbol)
			}
		}
	}
	return nil
}
