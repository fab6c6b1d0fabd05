package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func noopTool(name, domain string) Tool {
	return Tool{
		Name:        name,
		Description: "test tool " + name,
		Domain:      domain,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry(time.Second, 10)
	if err := r.Register(noopTool("get_time", "general")); err != nil {
		t.Fatalf("Expected first registration to succeed, but got error: %v", err)
	}
	if err := r.Register(noopTool("get_time", "general")); err == nil {
		t.Errorf("Expected duplicate registration to fail, but got nil error")
	}
}

func TestForDomainUnionsGeneral(t *testing.T) {
	r := NewRegistry(time.Second, 10)
	r.MustRegister(noopTool("get_price", "market"))
	r.MustRegister(noopTool("latest_headlines", "news"))
	r.MustRegister(noopTool("get_time", "general"))

	got := r.ForDomain("market")
	var names []string
	for _, tool := range got {
		names = append(names, tool.Name)
	}
	want := []string{"get_price", "get_time"}
	if len(names) != len(want) {
		t.Fatalf("Expected tools %v, but got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected tool[%d]=%s, but got %s", i, want[i], names[i])
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(time.Second, 10)
	res := r.Execute(context.Background(), "no_such_tool", "tester", nil)
	if res.Success {
		t.Errorf("Expected failure for unknown tool, but got success")
	}
	if !strings.Contains(res.Error, "unknown tool") {
		t.Errorf("Expected error to mention unknown tool, but got %q", res.Error)
	}
	if len(r.Usage()) != 1 {
		t.Errorf("Expected the failed call to be recorded, but got %d records", len(r.Usage()))
	}
}

func TestExecuteMissingRequiredParam(t *testing.T) {
	r := NewRegistry(time.Second, 10)
	tool := noopTool("get_price", "market")
	tool.Params = []ParamSpec{{Name: "symbol", Type: "string", Required: true}}
	r.MustRegister(tool)

	res := r.Execute(context.Background(), "get_price", "tester", map[string]any{})
	if res.Success {
		t.Errorf("Expected failure when required parameter is missing, but got success")
	}
	if !strings.Contains(res.Error, "symbol") {
		t.Errorf("Expected error to name the missing parameter, but got %q", res.Error)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry(time.Second, 10)
	r.MustRegister(Tool{
		Name:   "explode",
		Domain: "general",
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			panic("boom")
		},
	})
	res := r.Execute(context.Background(), "explode", "tester", nil)
	if res.Success {
		t.Errorf("Expected panicking tool to report failure, but got success")
	}
	if !strings.Contains(res.Error, "boom") {
		t.Errorf("Expected error to carry the panic value, but got %q", res.Error)
	}
}

func TestExecuteHonorsTimeout(t *testing.T) {
	r := NewRegistry(20*time.Millisecond, 10)
	r.MustRegister(Tool{
		Name:   "slow",
		Domain: "general",
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return map[string]any{"ok": true}, nil
			}
		},
	})
	res := r.Execute(context.Background(), "slow", "tester", nil)
	if res.Success {
		t.Errorf("Expected slow tool to fail on timeout, but got success")
	}
}

func TestUsageRingDropsOldest(t *testing.T) {
	r := NewRegistry(time.Second, 3)
	r.MustRegister(noopTool("get_time", "general"))
	for i := 0; i < 5; i++ {
		r.Execute(context.Background(), "get_time", fmt.Sprintf("agent-%d", i), nil)
	}
	records := r.Usage()
	if len(records) != 3 {
		t.Fatalf("Expected ring to retain 3 records, but got %d", len(records))
	}
	if records[0].Agent != "agent-2" {
		t.Errorf("Expected oldest retained record from agent-2, but got %s", records[0].Agent)
	}
	if records[2].Agent != "agent-4" {
		t.Errorf("Expected newest record from agent-4, but got %s", records[2].Agent)
	}
}

func TestUsageSummaryAggregates(t *testing.T) {
	r := NewRegistry(time.Second, 100)
	r.MustRegister(noopTool("get_time", "general"))
	r.MustRegister(Tool{
		Name:   "flaky",
		Domain: "general",
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("nope")
		},
	})
	r.Execute(context.Background(), "get_time", "a", nil)
	r.Execute(context.Background(), "get_time", "a", nil)
	r.Execute(context.Background(), "flaky", "a", nil)

	stats := r.UsageSummary()
	if len(stats) != 2 {
		t.Fatalf("Expected 2 aggregated tools, but got %d", len(stats))
	}
	if stats[0].Tool != "get_time" || stats[0].Calls != 2 {
		t.Errorf("Expected get_time with 2 calls first, but got %+v", stats[0])
	}
	if stats[1].Tool != "flaky" || stats[1].Failures != 1 {
		t.Errorf("Expected flaky with 1 failure, but got %+v", stats[1])
	}
}

func TestCatalogueForDomain(t *testing.T) {
	r := NewRegistry(time.Second, 10)
	tool := noopTool("get_klines", "market")
	tool.Params = []ParamSpec{
		{Name: "symbol", Type: "string", Description: "trading pair", Required: true},
		{Name: "interval", Type: "string", Description: "candle interval", Required: false},
	}
	r.MustRegister(tool)

	got := r.CatalogueForDomain("market")
	for _, want := range []string{"get_klines", "symbol (string, required)", "interval (string, optional)"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected catalogue to contain %q, but got:\n%s", want, got)
		}
	}
	if empty := r.CatalogueForDomain("nowhere"); empty != "(no tools available)" {
		t.Errorf("Expected placeholder for empty domain, but got %q", empty)
	}
}
