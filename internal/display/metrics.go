package display

import (
	"fmt"
	"strings"

	"github.com/aaaa47080/stock-agent-sub003/internal/metrics"
	"github.com/aaaa47080/stock-agent-sub003/internal/tools"
)

func FormatSessionMetrics(sm *metrics.SessionMetrics) string {
	if sm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Session metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (success=%v, oracle calls=%d)\n",
		sm.DurationMs, sm.Succeeded, sm.OracleCalls))
	for _, s := range sm.Steps {
		status := "ok"
		if !s.Success {
			status = "err"
		}
		sb.WriteString(fmt.Sprintf("  Step %d %-12s %5d ms  [%s]\n",
			s.Step, "("+s.Agent+")", s.DurationMs, status))
	}
	return sb.String()
}

func FormatUsageSummary(stats []tools.UsageStat) string {
	if len(stats) == 0 {
		return "No tool calls recorded yet."
	}
	var sb strings.Builder
	sb.WriteString("Tool usage:\n")
	for _, st := range stats {
		sb.WriteString(fmt.Sprintf("  %-20s calls=%-4d failures=%-4d avg=%d ms\n",
			st.Tool, st.Calls, st.Failures, st.AvgLatencyMs))
	}
	return strings.TrimRight(sb.String(), "\n")
}
