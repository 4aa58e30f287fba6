package auction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckTokenConsistency(t *testing.T) {
	t.Parallel()

	strategy := Strategy{
		{BuyTokenID: 1, BuyTokenSymbol: "WETH", SellTokenID: 2, SellTokenSymbol: "USDC"},
		{BuyTokenID: 2, BuyTokenSymbol: "USDC", SellTokenID: 3, SellTokenSymbol: "DAI"},
	}
	tokens := map[uint16]TokenInfo{
		1: {ID: 1, Symbol: "WETH", Decimals: 18},
		2: {ID: 2, Symbol: "USDC", Decimals: 6},
		3: {ID: 3, Symbol: "DAI", Decimals: 18},
	}

	require.NoError(t, CheckTokenConsistency(strategy, tokens))

	t.Run("single_mismatch", func(t *testing.T) {
		t.Parallel()
		bad := map[uint16]TokenInfo{1: tokens[1], 2: tokens[2], 3: {ID: 3, Symbol: "sDAI", Decimals: 18}}
		err := CheckTokenConsistency(strategy, bad)
		require.True(t, errors.Is(err, ErrConsistency))
		require.ErrorContains(t, err, "(3, sDAI)")
		require.ErrorContains(t, err, "(DAI)")
	})

	t.Run("unresolved", func(t *testing.T) {
		t.Parallel()
		err := CheckTokenConsistency(strategy, map[uint16]TokenInfo{1: tokens[1], 2: tokens[2]})
		require.True(t, errors.Is(err, ErrConsistency))
	})
}
