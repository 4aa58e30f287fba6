package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/livethelifetv/dex-liquidity-provision/internal/auction"
)

const DefaultURL = "https://api.1inch.exchange/v3.0/1"

type Client struct {
	host       string
	httpClient *http.Client
}

func NewClient(host string) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultURL
	}
	host = strings.TrimRight(host, "/")

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("1inch url parse %q: %w", host, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("1inch url must be http(s), got %q", host)
	}

	return &Client{
		host: host,
		httpClient: &http.Client{
			Timeout: 12 * time.Second,
		},
	}, nil
}

type quoteResponse struct {
	FromTokenAmount string `json:"fromTokenAmount"`
	ToTokenAmount   string `json:"toTokenAmount"`
}

// Price implements auction.Oracle: how many whole sell tokens one whole buy token fetches.
func (c *Client) Price(ctx context.Context, buy, sell auction.TokenInfo) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, fmt.Errorf("1inch client nil")
	}

	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(buy.Decimals)), nil)
	q := url.Values{}
	q.Set("fromTokenAddress", buy.Address.Hex())
	q.Set("toTokenAddress", sell.Address.Hex())
	q.Set("amount", one.String())
	endpoint := c.host + "/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyLimit(resp.Body, 8<<10)
		return decimal.Zero, fmt.Errorf("1inch %s: status=%d body=%q", endpoint, resp.StatusCode, body)
	}

	var out quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("1inch decode: %w", err)
	}
	to, ok := new(big.Int).SetString(strings.TrimSpace(out.ToTokenAmount), 10)
	if !ok || to.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("1inch: malformed toTokenAmount %q for %s->%s", out.ToTokenAmount, buy.Symbol, sell.Symbol)
	}
	return decimal.NewFromBigInt(to, -int32(sell.Decimals)), nil
}

func readBodyLimit(r io.Reader, max int64) string {
	if r == nil || max <= 0 {
		return ""
	}
	lr := &io.LimitedReader{R: r, N: max}
	b, _ := io.ReadAll(lr)
	return strings.TrimSpace(string(b))
}
