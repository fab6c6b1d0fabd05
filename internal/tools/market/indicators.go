package market

import (
	"context"
	"fmt"

	"github.com/aaaa47080/stock-agent-sub003/internal/tools"
	"github.com/aaaa47080/stock-agent-sub003/internal/utils"
)

// SMA returns the simple moving average for every full window, one value
// per window, oldest first. Returns nil when the series is too short.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA seeds with the SMA of the first window, then applies the usual
// 2/(period+1) smoothing. Output is aligned with SMA: one value per full
// window.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	k := 2.0 / float64(period+1)
	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	prev := seed
	for _, v := range values[period:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// RSI uses Wilder's smoothing. One value per close after the seed window,
// so len(out) == len(values) - period.
func RSI(values []float64, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return nil
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss += -d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	toRSI := func(gain, loss float64) float64 {
		if loss == 0 {
			if gain == 0 {
				return 50
			}
			return 100
		}
		rs := gain / loss
		return 100 - 100/(1+rs)
	}

	out := make([]float64, 0, len(values)-period)
	out = append(out, toRSI(avgGain, avgLoss))
	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		var gain, loss float64
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, toRSI(avgGain, avgLoss))
	}
	return out
}

// MACD returns the MACD line, its signal line and the histogram, all three
// end-aligned with each other.
func MACD(values []float64, fast, slow, signalPeriod int) (macd, signal, histogram []float64) {
	f := EMA(values, fast)
	s := EMA(values, slow)
	if f == nil || s == nil || fast >= slow {
		return nil, nil, nil
	}
	f = f[len(f)-len(s):]
	macd = make([]float64, len(s))
	for i := range s {
		macd[i] = f[i] - s[i]
	}
	signal = EMA(macd, signalPeriod)
	if signal == nil {
		return macd, nil, nil
	}
	tail := macd[len(macd)-len(signal):]
	histogram = make([]float64, len(signal))
	for i := range signal {
		histogram[i] = tail[i] - signal[i]
	}
	return macd, signal, histogram
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func indicatorsTool(c *Client) tools.Tool {
	return tools.Tool{
		Name:        "analyze_indicators",
		Description: "Compute SMA, EMA, RSI and MACD for a trading pair from recent candles.",
		Domain:      Domain,
		Params: []tools.ParamSpec{
			{Name: "symbol", Type: "string", Description: "coin or trading pair", Required: true},
			{Name: "interval", Type: "string", Description: "candle interval (default 1h)", Required: false},
		},
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			symbol, err := utils.GetStringPayload(args, "symbol")
			if err != nil {
				return nil, err
			}
			interval := utils.OptionalString(args, "interval", "1h")
			pair := NormalizeSymbol(symbol)

			klines, err := c.Klines(ctx, pair, interval, 200)
			if err != nil {
				return nil, err
			}
			closes := make([]float64, 0, len(klines))
			for _, k := range klines {
				closes = append(closes, k.Close)
			}
			if len(closes) < 35 {
				return nil, fmt.Errorf("not enough candles for %s (%d), need at least 35", pair, len(closes))
			}

			sma20 := last(SMA(closes, 20))
			ema12 := last(EMA(closes, 12))
			ema26 := last(EMA(closes, 26))
			rsi14 := last(RSI(closes, 14))
			macdLine, signalLine, hist := MACD(closes, 12, 26, 9)

			trend := "neutral"
			switch {
			case last(hist) > 0 && rsi14 > 55:
				trend = "bullish"
			case last(hist) < 0 && rsi14 < 45:
				trend = "bearish"
			}

			return map[string]any{
				"symbol":         pair,
				"interval":       interval,
				"samples":        len(closes),
				"last_close":     closes[len(closes)-1],
				"sma_20":         sma20,
				"ema_12":         ema12,
				"ema_26":         ema26,
				"rsi_14":         rsi14,
				"macd":           last(macdLine),
				"macd_signal":    last(signalLine),
				"macd_histogram": last(hist),
				"trend":          trend,
			}, nil
		},
	}
}
