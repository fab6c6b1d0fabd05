package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const Domain = "market"

// Client talks to the Binance public REST and websocket endpoints. No API
// key is needed for market data.
type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: "https://api.binance.com",
		wsURL:   "wss://stream.binance.com:9443/ws",
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

var quoteSuffixes = []string{"USDT", "USDC", "FDUSD", "BUSD", "BTC", "ETH", "BNB"}

// NormalizeSymbol maps loose user symbols onto Binance pair names: "btc"
// and "BTC/USDT" both become "BTCUSDT". Symbols already carrying a quote
// suffix pass through unchanged.
func NormalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("/", "", "-", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return s
	}
	for _, q := range quoteSuffixes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return s
		}
	}
	return s + "USDT"
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("binance returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type Quote struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (c *Client) TickerPrice(ctx context.Context, symbol string) (Quote, error) {
	var q Quote
	v := url.Values{}
	v.Set("symbol", symbol)
	err := c.getJSON(ctx, "/api/v3/ticker/price", v, &q)
	return q, err
}

type Kline struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}

// Klines fetches OHLC candles. Binance encodes each candle as a mixed
// array, numbers for timestamps and quoted decimals for prices.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	v := url.Values{}
	v.Set("symbol", symbol)
	v.Set("interval", interval)
	v.Set("limit", strconv.Itoa(limit))
	var raw [][]any
	if err := c.getJSON(ctx, "/api/v3/klines", v, &raw); err != nil {
		return nil, err
	}
	out := make([]Kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			continue
		}
		out = append(out, Kline{
			OpenTime:  int64(asFloat(row[0])),
			Open:      asFloat(row[1]),
			High:      asFloat(row[2]),
			Low:       asFloat(row[3]),
			Close:     asFloat(row[4]),
			Volume:    asFloat(row[5]),
			CloseTime: int64(asFloat(row[6])),
		})
	}
	return out, nil
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}
