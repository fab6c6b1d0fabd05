package general

import (
	"context"
	"time"

	"github.com/aaaa47080/stock-agent-sub003/internal/tools"
)

// Tools returns the tools every agent can use regardless of domain.
func Tools(reg *tools.Registry) []tools.Tool {
	return []tools.Tool{
		timeTool(),
		usageTool(reg),
	}
}

func timeTool() tools.Tool {
	return tools.Tool{
		Name:        "get_time",
		Description: "Report the current date and time.",
		Domain:      tools.DomainGeneral,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			now := time.Now()
			return map[string]any{
				"utc":      now.UTC().Format(time.RFC3339),
				"local":    now.Format(time.RFC3339),
				"weekday":  now.UTC().Weekday().String(),
				"unix_sec": now.Unix(),
			}, nil
		},
	}
}

func usageTool(reg *tools.Registry) tools.Tool {
	return tools.Tool{
		Name:        "tool_usage",
		Description: "Summarize how often each tool has been called this process and how it performed.",
		Domain:      tools.DomainGeneral,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			stats := reg.UsageSummary()
			rows := make([]map[string]any, 0, len(stats))
			for _, st := range stats {
				rows = append(rows, map[string]any{
					"tool":           st.Tool,
					"calls":          st.Calls,
					"failures":       st.Failures,
					"avg_latency_ms": st.AvgLatencyMs,
				})
			}
			return map[string]any{"tools": rows, "records": len(reg.Usage())}, nil
		},
	}
}
