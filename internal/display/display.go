package display

import (
	"fmt"
	"strings"

	"github.com/aaaa47080/stock-agent-sub003/internal/parser"
)

const maxValueLength = 100

// FormatPlan renders a plan for the confirmation prompt.
func FormatPlan(plan parser.Plan) string {
	var sb strings.Builder
	sb.WriteString("Proposed plan:\n")
	sb.WriteString("--------------------------------------------------\n")
	for _, step := range plan.Steps {
		sb.WriteString(fmt.Sprintf("Step %d [%s]: %s\n", step.Step, step.Agent, clip(step.Description)))
		if step.ToolHint != "" {
			sb.WriteString(fmt.Sprintf("         tool: %s\n", step.ToolHint))
		}
	}
	if plan.Reasoning != "" {
		sb.WriteString(fmt.Sprintf("Why: %s\n", clip(plan.Reasoning)))
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

// FormatReport pads the final reply so it stands apart from the prompt
// line above it.
func FormatReport(report string) string {
	report = strings.TrimSpace(report)
	if report == "" {
		return ""
	}
	return "\n" + report + "\n"
}

func clip(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > maxValueLength {
		return s[:maxValueLength] + "..."
	}
	return s
}
