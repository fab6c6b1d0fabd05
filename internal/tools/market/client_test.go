package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTC", "BTCUSDT"},
		{"btc", "BTCUSDT"},
		{" eth ", "ETHUSDT"},
		{"BTC/USDT", "BTCUSDT"},
		{"btc-usdt", "BTCUSDT"},
		{"BTCUSDT", "BTCUSDT"},
		{"ETHBTC", "ETHBTC"},
		{"SOL_USDC", "SOLUSDC"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSymbol(tt.in); got != tt.want {
			t.Errorf("Expected NormalizeSymbol(%q)=%q, but got %q", tt.in, tt.want, got)
		}
	}
}

func TestTickerPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("Expected path /api/v3/ticker/price, but got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("Expected symbol query BTCUSDT, but got %s", got)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"65000.10"}`))
	}))
	defer srv.Close()

	c := &Client{baseURL: srv.URL, http: srv.Client()}
	q, err := c.TickerPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if q.Symbol != "BTCUSDT" || q.Price != "65000.10" {
		t.Errorf("Expected BTCUSDT at 65000.10, but got %+v", q)
	}
}

func TestTickerPriceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &Client{baseURL: srv.URL, http: srv.Client()}
	if _, err := c.TickerPrice(context.Background(), "NOPE"); err == nil {
		t.Errorf("Expected error on HTTP 400, but got nil")
	}
}

func TestKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("Expected path /api/v3/klines, but got %s", r.URL.Path)
		}
		w.Write([]byte(`[
			[1700000000000,"100.0","110.0","90.0","105.0","1234.5",1700003599999,"0",0,"0","0","0"],
			[1700003600000,"105.0","120.0","100.0","115.0","2345.6",1700007199999,"0",0,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	c := &Client{baseURL: srv.URL, http: srv.Client()}
	klines, err := c.Klines(context.Background(), "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if len(klines) != 2 {
		t.Fatalf("Expected 2 klines, but got %d", len(klines))
	}
	first := klines[0]
	if first.OpenTime != 1700000000000 || first.Open != 100 || first.High != 110 || first.Low != 90 || first.Close != 105 {
		t.Errorf("Expected parsed OHLC 100/110/90/105, but got %+v", first)
	}
	if klines[1].Close != 115 {
		t.Errorf("Expected second close 115, but got %v", klines[1].Close)
	}
}
