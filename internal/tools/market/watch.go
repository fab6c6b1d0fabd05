package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aaaa47080/stock-agent-sub003/internal/tools"
	"github.com/aaaa47080/stock-agent-sub003/internal/utils"
)

type miniTicker struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Close  string `json:"c"`
	Open   string `json:"o"`
	High   string `json:"h"`
	Low    string `json:"l"`
	Volume string `json:"v"`
}

func watchTickerTool(c *Client) tools.Tool {
	return tools.Tool{
		Name:        "watch_ticker",
		Description: "Watch the live ticker stream for a trading pair and report the last tick seen.",
		Domain:      Domain,
		Params: []tools.ParamSpec{
			{Name: "symbol", Type: "string", Description: "coin or trading pair", Required: true},
			{Name: "seconds", Type: "int", Description: "how long to watch, 1-30 (default 5)", Required: false},
		},
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			symbol, err := utils.GetStringPayload(args, "symbol")
			if err != nil {
				return nil, err
			}
			seconds := utils.OptionalInt(args, "seconds", 5)
			if seconds < 1 {
				seconds = 1
			}
			if seconds > 30 {
				seconds = 30
			}

			pair := NormalizeSymbol(symbol)
			stream := fmt.Sprintf("%s/%s@miniTicker", c.wsURL, strings.ToLower(pair))
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, stream, nil)
			if err != nil {
				return nil, fmt.Errorf("dial ticker stream: %w", err)
			}
			defer conn.Close()

			deadline := time.Now().Add(time.Duration(seconds) * time.Second)
			_ = conn.SetReadDeadline(deadline)

			var lastTick miniTicker
			ticks := 0
			for time.Now().Before(deadline) && ctx.Err() == nil {
				var tick miniTicker
				if err := conn.ReadJSON(&tick); err != nil {
					break
				}
				ticks++
				lastTick = tick
			}
			if ticks == 0 {
				return nil, fmt.Errorf("no ticks received for %s within %ds", pair, seconds)
			}
			return map[string]any{
				"symbol":     pair,
				"ticks":      ticks,
				"last_price": lastTick.Close,
				"open":       lastTick.Open,
				"high":       lastTick.High,
				"low":        lastTick.Low,
				"volume":     lastTick.Volume,
				"watched_s":  seconds,
			}, nil
		},
	}
}
