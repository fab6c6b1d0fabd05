package display

import (
	"fmt"
	"strings"

	"github.com/aaaa47080/stock-agent-sub003/internal/codebook"
)

func FormatCodebook(entries []codebook.Entry) string {
	if len(entries) == 0 {
		return "The codebook is empty."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Learned plans (%d):\n", len(entries)))
	for i, e := range entries {
		intent := e.Intent
		if intent == "" {
			intent = "-"
		}
		sb.WriteString(fmt.Sprintf("  %2d. %s  (intent=%s, steps=%d, used=%d)\n",
			i+1, clip(e.Query), intent, len(e.Plan.Steps), e.UsageCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}
