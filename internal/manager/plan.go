package manager

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aaaa47080/stock-agent-sub003/internal/codebook"
	"github.com/aaaa47080/stock-agent-sub003/internal/display"
	"github.com/aaaa47080/stock-agent-sub003/internal/hitl"
	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
	"github.com/aaaa47080/stock-agent-sub003/internal/parser"
)

// Plan confirmation options, offered in this order.
var confirmOptions = []string{"execute", "do-not-execute", "modify"}

var approveWords = map[string]bool{
	"execute": true, "yes": true, "y": true, "ok": true, "go": true,
	"執行": true, "好": true, "可以": true,
}

var rejectWords = map[string]bool{
	"do-not-execute": true, "no": true, "n": true, "cancel": true, "stop": true,
	"取消": true, "不要": true, "不用": true,
}

// buildPlan resolves a plan for the query: a codebook hit is adapted to
// the new wording, a miss generates a fresh plan. Both paths guarantee a
// non-empty plan.
func (m *Manager) buildPlan(ctx context.Context, cc *ConversationContext, query string, cls parser.Classification) (parser.Plan, string) {
	intentFilter := cls.Intent
	if intentFilter == "unknown" {
		intentFilter = ""
	}

	if m.codebook != nil {
		if hit := m.codebook.FindSimilar(query, intentFilter); hit != nil {
			logger.Log.Infow("Reusing a learned plan",
				"session", cc.SessionID,
				"stored_query", hit.Query,
				"uses", hit.UsageCount)
			return m.adaptPlan(ctx, cc, query, hit), hit.Reasoning
		}
	}
	return m.generatePlan(ctx, cc, query, cls, "")
}

// adaptPlan rewrites a stored plan for the new query. If the rewrite
// fails, the stored plan is used as is; a cache hit never escalates into
// an error.
func (m *Manager) adaptPlan(ctx context.Context, cc *ConversationContext, query string, hit *codebook.Entry) parser.Plan {
	if m.oracle == nil {
		return hit.Plan
	}

	prompt := buildAdaptPrompt(query, hit)
	callCtx, cancel := context.WithTimeout(ctx, m.oracleTimeout)
	defer cancel()

	cc.Metrics.OracleCalls++
	raw, err := m.oracle.GenerateJSON(callCtx, prompt, m.model, nil)
	if err != nil {
		logger.Log.Warnw("Plan adaptation call failed, using the stored plan", "session", cc.SessionID, "error", err)
		return hit.Plan
	}
	adapted, ok := parser.DecodePlan(raw)
	if !ok {
		logger.Log.Warnw("Plan adaptation reply was not usable, using the stored plan", "session", cc.SessionID)
		return hit.Plan
	}
	return adapted
}

// generatePlan asks the oracle for a fresh plan. Fallback is a single
// chat step carrying the whole query, so a plan always exists.
func (m *Manager) generatePlan(ctx context.Context, cc *ConversationContext, query string, cls parser.Classification, amendment string) (parser.Plan, string) {
	fallback := parser.Plan{
		Steps: []parser.PlanStep{{Step: 1, Description: query, Agent: "chat"}},
	}
	if m.oracle == nil {
		return fallback, ""
	}

	prompt := m.buildPlanPrompt(query, cls, amendment)
	callCtx, cancel := context.WithTimeout(ctx, m.oracleTimeout)
	defer cancel()

	cc.Metrics.OracleCalls++
	raw, err := m.oracle.GenerateJSON(callCtx, prompt, m.model, nil)
	if err != nil {
		logger.Log.Warnw("Plan call failed, falling back to a chat step", "session", cc.SessionID, "error", err)
		return fallback, ""
	}
	plan, ok := parser.DecodePlan(raw)
	if !ok {
		logger.Log.Warnw("Plan reply was not usable, falling back to a chat step", "session", cc.SessionID)
		return fallback, ""
	}
	return plan, plan.Reasoning
}

// confirmPlan applies the execution gate. Single-step news or technical
// plans run without asking. Everything else goes to the user, who can
// execute, cancel, or modify the plan once; a second modification request
// cancels the run. An empty answer approves.
func (m *Manager) confirmPlan(ctx context.Context, cc *ConversationContext, query string, cls parser.Classification, plan parser.Plan, reasoning string) (parser.Plan, string, bool) {
	modified := false
	for {
		if autoConfirmable(plan) {
			logger.Log.Debugw("Plan auto-confirmed", "session", cc.SessionID, "agent", plan.Steps[0].Agent)
			return plan, reasoning, true
		}
		if !m.hitl.Enabled() {
			logger.Log.Debugw("No human attached, executing the plan directly", "session", cc.SessionID)
			return plan, reasoning, true
		}

		summary := display.FormatPlan(plan)
		answer, err := m.hitl.Ask(ctx, cc.SessionID, summary+"\nRun this plan?", hitl.QuestionConfirmation, confirmOptions)
		if err != nil {
			logger.Log.Warnw("Plan confirmation was refused, executing the plan directly", "session", cc.SessionID, "error", err)
			return plan, reasoning, true
		}

		folded := strings.ToLower(strings.TrimSpace(answer))
		switch {
		case folded == "" || approveWords[folded]:
			return plan, reasoning, true
		case rejectWords[folded]:
			return parser.Plan{}, "", false
		}

		// Anything else is a modification request: "modify ..." or free
		// text describing the change.
		if modified {
			logger.Log.Infow("Second modification request, cancelling", "session", cc.SessionID)
			return parser.Plan{}, "", false
		}
		modified = true

		amendment := strings.TrimSpace(strings.TrimPrefix(folded, "modify"))
		if amendment == "" {
			amendment, err = m.hitl.Ask(ctx, cc.SessionID, "How should the plan change?", hitl.QuestionClarification, nil)
			if err != nil || strings.TrimSpace(amendment) == "" {
				return parser.Plan{}, "", false
			}
		}
		cc.UserInputs = append(cc.UserInputs, amendment)
		plan, reasoning = m.generatePlan(ctx, cc, query, cls, amendment)
	}
}

func autoConfirmable(plan parser.Plan) bool {
	if len(plan.Steps) != 1 {
		return false
	}
	switch plan.Steps[0].Agent {
	case "news", "technical":
		return true
	default:
		return false
	}
}

func (m *Manager) buildPlanPrompt(query string, cls parser.Classification, amendment string) string {
	var sb strings.Builder
	sb.WriteString("You plan work for a crypto trading assistant.\n")
	sb.WriteString("Request: ")
	sb.WriteString(query)
	sb.WriteString("\n")
	if cls.Intent != "" && cls.Intent != "unknown" {
		sb.WriteString("Intent: ")
		sb.WriteString(cls.Intent)
		sb.WriteString("\n")
	}
	if len(cls.Symbols) > 0 {
		sb.WriteString("Symbols: ")
		sb.WriteString(strings.Join(cls.Symbols, ", "))
		sb.WriteString("\n")
	}
	if amendment != "" {
		sb.WriteString("The user asked to change the previous plan: ")
		sb.WriteString(amendment)
		sb.WriteString("\n")
	}

	sb.WriteString("\nAvailable agents:\n")
	sb.WriteString("- news: headlines, articles, market sentiment\n")
	sb.WriteString("- technical: prices, candles, indicator analysis\n")
	sb.WriteString("- chat: everything else, plain conversation\n")

	sb.WriteString("\nWrite the fewest steps that answer the request, usually 1 to 3.\n")
	sb.WriteString("Each step names the agent that runs it and may hint at a tool.\n")
	sb.WriteString("Respond with JSON only:\n")
	sb.WriteString(`{"steps": [{"step": 1, "description": "...", "agent": "news|technical|chat", "tool_hint": ""}], "reasoning": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildAdaptPrompt(query string, hit *codebook.Entry) string {
	stored, err := json.Marshal(hit.Plan)
	if err != nil {
		stored = []byte("{}")
	}
	var sb strings.Builder
	sb.WriteString("A very similar request was planned before. Rewrite that plan for the new request.\n")
	sb.WriteString("Previous request: ")
	sb.WriteString(hit.Query)
	sb.WriteString("\nPrevious plan: ")
	sb.Write(stored)
	sb.WriteString("\nNew request: ")
	sb.WriteString(query)
	sb.WriteString("\n\nKeep the structure, change only what the new request needs (symbols, timeframes, topics).\n")
	sb.WriteString("Respond with JSON only, same shape as the previous plan plus a reasoning field:\n")
	sb.WriteString(`{"steps": [{"step": 1, "description": "...", "agent": "...", "tool_hint": ""}], "reasoning": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}
