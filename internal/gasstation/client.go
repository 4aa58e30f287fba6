package gasstation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
)

// DefaultURLs are the Gnosis safe-relay gas stations per network.
var DefaultURLs = map[string]string{
	"mainnet": "https://safe-relay.gnosis.io/api/v1/gas-station/",
	"rinkeby": "https://safe-relay.rinkeby.gnosis.io/api/v1/gas-station/",
}

type Client struct {
	urls       map[string]string
	httpClient *http.Client
}

// NewClient validates every configured URL. A nil or empty map uses DefaultURLs.
func NewClient(urls map[string]string) (*Client, error) {
	if len(urls) == 0 {
		urls = DefaultURLs
	}
	clean := make(map[string]string, len(urls))
	for network, raw := range urls {
		raw = strings.TrimSpace(raw)
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("gas station url parse %q: %w", raw, err)
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return nil, fmt.Errorf("gas station url must be http(s), got %q", raw)
		}
		clean[network] = raw
	}
	return &Client{
		urls: clean,
		httpClient: &http.Client{
			Timeout: 12 * time.Second,
		},
	}, nil
}

// weiValue accepts the station's decimal strings as well as bare JSON numbers.
type weiValue struct {
	v *big.Int
}

func (w *weiValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	s = strings.TrimSpace(s)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		// Some responses carry exponent notation, e.g. 2e10.
		f, _, err := big.ParseFloat(s, 10, 256, big.ToZero)
		if err != nil {
			return fmt.Errorf("gas price %q: %w", s, err)
		}
		v, _ = f.Int(nil)
	}
	w.v = v
	return nil
}

// GasPrices implements auction.GasStation.
func (c *Client) GasPrices(ctx context.Context, network string) (auction.GasPriceQuote, error) {
	if c == nil {
		return nil, fmt.Errorf("gas station client nil")
	}
	endpoint, ok := c.urls[network]
	if !ok {
		return nil, fmt.Errorf("no gas station configured for network %q", network)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyLimit(resp.Body, 8<<10)
		return nil, fmt.Errorf("gas station %s: status=%d body=%q", endpoint, resp.StatusCode, body)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("gas station decode: %w", err)
	}

	quote := make(auction.GasPriceQuote, len(auction.GasTiers))
	for _, tier := range auction.GasTiers {
		field, ok := raw[string(tier)]
		if !ok {
			continue
		}
		var w weiValue
		if err := json.Unmarshal(field, &w); err != nil {
			return nil, fmt.Errorf("gas station decode %s: %w", tier, err)
		}
		if w.v != nil {
			quote[tier] = w.v
		}
	}
	return quote, nil
}

func readBodyLimit(r io.Reader, max int64) string {
	if r == nil || max <= 0 {
		return ""
	}
	lr := &io.LimitedReader{R: r, N: max}
	b, _ := io.ReadAll(lr)
	return strings.TrimSpace(string(b))
}
