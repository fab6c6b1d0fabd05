package market

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aaaa47080/stock-agent-sub003/internal/tools"
	"github.com/aaaa47080/stock-agent-sub003/internal/utils"
)

const (
	maxBatchSymbols  = 10
	batchConcurrency = 5
)

// Tools returns every market tool bound to the given client, in the order
// they should be registered.
func Tools(c *Client) []tools.Tool {
	return []tools.Tool{
		priceTool(c),
		pricesTool(c),
		klinesTool(c),
		indicatorsTool(c),
		watchTickerTool(c),
	}
}

func priceTool(c *Client) tools.Tool {
	return tools.Tool{
		Name:        "get_price",
		Description: "Fetch the current spot price for one trading pair.",
		Domain:      Domain,
		Params: []tools.ParamSpec{
			{Name: "symbol", Type: "string", Description: "coin or trading pair, e.g. BTC or BTCUSDT", Required: true},
		},
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			symbol, err := utils.GetStringPayload(args, "symbol")
			if err != nil {
				return nil, err
			}
			q, err := c.TickerPrice(ctx, NormalizeSymbol(symbol))
			if err != nil {
				return nil, err
			}
			return map[string]any{"symbol": q.Symbol, "price": q.Price}, nil
		},
	}
}

func pricesTool(c *Client) tools.Tool {
	return tools.Tool{
		Name:        "get_prices",
		Description: "Fetch current spot prices for several trading pairs at once.",
		Domain:      Domain,
		Params: []tools.ParamSpec{
			{Name: "symbols", Type: "list", Description: "up to 10 coins or trading pairs", Required: true},
		},
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			symbols, err := utils.GetStringListPayload(args, "symbols")
			if err != nil {
				return nil, err
			}
			if len(symbols) == 0 {
				return nil, fmt.Errorf("symbols cannot be empty")
			}
			if len(symbols) > maxBatchSymbols {
				symbols = symbols[:maxBatchSymbols]
			}

			quotes := make([]map[string]any, len(symbols))
			var failed []string
			var mu sync.Mutex

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(batchConcurrency)
			for i := range symbols {
				idx := i
				g.Go(func() error {
					q, err := c.TickerPrice(gctx, NormalizeSymbol(symbols[idx]))
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failed = append(failed, fmt.Sprintf("%s: %v", symbols[idx], err))
						return nil
					}
					quotes[idx] = map[string]any{"symbol": q.Symbol, "price": q.Price}
					return nil
				})
			}
			_ = g.Wait()

			compact := make([]map[string]any, 0, len(quotes))
			for _, q := range quotes {
				if q != nil {
					compact = append(compact, q)
				}
			}
			if len(compact) == 0 {
				return nil, fmt.Errorf("all price lookups failed: %s", strings.Join(failed, "; "))
			}
			out := map[string]any{"prices": compact}
			if len(failed) > 0 {
				out["errors"] = failed
			}
			return out, nil
		},
	}
}

func klinesTool(c *Client) tools.Tool {
	return tools.Tool{
		Name:        "get_klines",
		Description: "Fetch recent OHLC candles for a trading pair.",
		Domain:      Domain,
		Params: []tools.ParamSpec{
			{Name: "symbol", Type: "string", Description: "coin or trading pair", Required: true},
			{Name: "interval", Type: "string", Description: "candle interval such as 15m, 1h, 4h, 1d (default 1h)", Required: false},
			{Name: "limit", Type: "int", Description: "number of candles, 1-500 (default 100)", Required: false},
		},
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			symbol, err := utils.GetStringPayload(args, "symbol")
			if err != nil {
				return nil, err
			}
			interval := utils.OptionalString(args, "interval", "1h")
			limit := utils.OptionalInt(args, "limit", 100)
			if limit < 1 {
				limit = 1
			}
			if limit > 500 {
				limit = 500
			}

			pair := NormalizeSymbol(symbol)
			klines, err := c.Klines(ctx, pair, interval, limit)
			if err != nil {
				return nil, err
			}
			if len(klines) == 0 {
				return nil, fmt.Errorf("no candles returned for %s", pair)
			}

			candles := make([]map[string]any, 0, len(klines))
			for _, k := range klines {
				candles = append(candles, map[string]any{
					"t": k.OpenTime,
					"o": k.Open,
					"h": k.High,
					"l": k.Low,
					"c": k.Close,
					"v": k.Volume,
				})
			}
			return map[string]any{
				"symbol":   pair,
				"interval": interval,
				"count":    len(candles),
				"candles":  candles,
			}, nil
		},
	}
}
