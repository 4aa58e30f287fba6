package gasstation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
)

func TestGasPrices_ParsesQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/gas-station/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "lastUpdate": "2020-06-01T10:00:00.000000Z",
  "lowest": "1000000000",
  "safeLow": "5000000000",
  "standard": 12000000000,
  "fast": "2e10",
  "fastest": "150000000000"
}`))
	}))
	defer srv.Close()

	c, err := NewClient(map[string]string{"rinkeby": srv.URL + "/api/v1/gas-station/"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q, err := c.GasPrices(ctx, "rinkeby")
	require.NoError(t, err)
	require.Len(t, q, 5)
	require.Equal(t, "1000000000", q[auction.GasLowest].String())
	require.Equal(t, "12000000000", q[auction.GasStandard].String())
	require.Equal(t, "20000000000", q[auction.GasFast].String())
	require.Equal(t, "150000000000", q[auction.GasFastest].String())
}

func TestGasPrices_MissingTierIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"standard": "5000000000"}`))
	}))
	defer srv.Close()

	c, err := NewClient(map[string]string{"mainnet": srv.URL})
	require.NoError(t, err)

	q, err := c.GasPrices(context.Background(), "mainnet")
	require.NoError(t, err)
	_, ok := q[auction.GasFastest]
	require.False(t, ok)
}

func TestGasPrices_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(map[string]string{"mainnet": srv.URL})
	require.NoError(t, err)

	_, err = c.GasPrices(context.Background(), "mainnet")
	require.ErrorContains(t, err, "status=502")

	_, err = c.GasPrices(context.Background(), "kovan")
	require.ErrorContains(t, err, "no gas station configured")
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(map[string]string{"mainnet": "ftp://example.com"})
	require.Error(t, err)

	c, err := NewClient(nil)
	require.NoError(t, err)
	require.Len(t, c.urls, len(DefaultURLs))
}
