package batchexchange

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
)

// BatchTimeSeconds is the length of one exchange batch.
const BatchTimeSeconds = 300

// encodedOrderLen is the size of one record returned by getEncodedUserOrders.
const encodedOrderLen = 20 + 32 + 2 + 2 + 4 + 4 + 16 + 16 + 16

// Order is one decoded record of getEncodedUserOrders.
type Order struct {
	Owner            common.Address
	SellTokenBalance *big.Int
	BuyToken         uint16
	SellToken        uint16
	// ValidFrom and ValidUntil are batch ids; ValidUntil is inclusive.
	ValidFrom        uint32
	ValidUntil       uint32
	PriceNumerator   *big.Int
	PriceDenominator *big.Int
	RemainingAmount  *big.Int
}

// BatchStart returns the unix second at which a batch opens.
func BatchStart(batchID uint32) int64 {
	return int64(batchID) * BatchTimeSeconds
}

// BatchEnd returns the unix second at which a batch closes.
func BatchEnd(batchID uint32) int64 {
	return (int64(batchID) + 1) * BatchTimeSeconds
}

// OpenOrder converts batch ids into the unix-second view used by the runner.
func (o Order) OpenOrder() auction.OpenOrder {
	return auction.OpenOrder{
		BuyToken:   o.BuyToken,
		SellToken:  o.SellToken,
		ValidFrom:  BatchStart(o.ValidFrom),
		ValidUntil: BatchEnd(o.ValidUntil),
	}
}

// DecodeOrders splits the packed byte string returned by getEncodedUserOrders.
func DecodeOrders(b []byte) ([]Order, error) {
	if len(b)%encodedOrderLen != 0 {
		return nil, fmt.Errorf("encoded orders: unexpected length %d (not a multiple of %d)", len(b), encodedOrderLen)
	}

	out := make([]Order, 0, len(b)/encodedOrderLen)
	for off := 0; off < len(b); off += encodedOrderLen {
		rec := b[off : off+encodedOrderLen]
		pos := 0
		next := func(n int) []byte {
			s := rec[pos : pos+n]
			pos += n
			return s
		}

		out = append(out, Order{
			Owner:            common.BytesToAddress(next(20)),
			SellTokenBalance: new(big.Int).SetBytes(next(32)),
			BuyToken:         binary.BigEndian.Uint16(next(2)),
			SellToken:        binary.BigEndian.Uint16(next(2)),
			ValidFrom:        binary.BigEndian.Uint32(next(4)),
			ValidUntil:       binary.BigEndian.Uint32(next(4)),
			PriceNumerator:   new(big.Int).SetBytes(next(16)),
			PriceDenominator: new(big.Int).SetBytes(next(16)),
			RemainingAmount:  new(big.Int).SetBytes(next(16)),
		})
	}
	return out, nil
}
