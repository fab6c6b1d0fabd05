package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aaaa47080/stock-agent-sub003/internal/hitl"
	"github.com/aaaa47080/stock-agent-sub003/internal/llm_client"
	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
	"github.com/aaaa47080/stock-agent-sub003/internal/parser"
	"github.com/aaaa47080/stock-agent-sub003/internal/tools"
)

const (
	defaultMaxIterations = 5
	promptObservations   = 5
	observationMaxChars  = 2000
)

// Deps is everything a concrete agent needs wired in.
type Deps struct {
	Registry      *tools.Registry
	HITL          *hitl.Coordinator
	Oracle        llm_client.Provider
	Model         string
	MaxIterations int
	OracleTimeout time.Duration
}

// Engine runs the think/act loop shared by every agent: ask the oracle
// for the next move, run a tool or a user question, feed the observation
// back, and stop on finish or after the iteration budget.
type Engine struct {
	name          string
	domain        string
	registry      *tools.Registry
	hitl          *hitl.Coordinator
	oracle        llm_client.Provider
	model         string
	maxIterations int
	oracleTimeout time.Duration
}

func newEngine(name, domain string, d Deps) *Engine {
	maxIter := d.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	timeout := d.OracleTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		name:          name,
		domain:        domain,
		registry:      d.Registry,
		hitl:          d.HITL,
		oracle:        d.Oracle,
		model:         d.Model,
		maxIterations: maxIter,
		oracleTimeout: timeout,
	}
}

func (e *Engine) Name() string { return e.name }

// Execute runs the loop to completion. It never returns an error and never
// loops forever: a crash becomes a failed Result and an exhausted budget
// becomes a best-effort summary.
func (e *Engine) Execute(ctx context.Context, t Task) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Errorw("Agent crashed", "agent", e.name, "task", t.ID, "panic", rec)
			res = Result{
				Success:   false,
				Message:   fmt.Sprintf("The %s agent hit an internal error and could not finish.", e.name),
				AgentName: e.name,
				State:     StateFailed,
				Timestamp: time.Now(),
			}
		}
	}()

	var observations []string
	data := map[string]any{}
	pendingQuestion := ""

	for i := 1; i <= e.maxIterations; i++ {
		d := e.think(ctx, t, observations, i)
		if strings.TrimSpace(d.Thought) != "" {
			observations = append(observations, "Thought: "+d.Thought)
		}

		switch d.Action {
		case parser.ActionUseTool:
			obs := e.runTool(ctx, t, d, data)
			observations = append(observations, obs)

		case parser.ActionAskUser:
			obs, answered := e.askUser(ctx, t, d, data)
			observations = append(observations, obs)
			if !answered && strings.TrimSpace(d.Question) != "" {
				pendingQuestion = strings.TrimSpace(d.Question)
			}

		case parser.ActionFinish:
			msg := strings.TrimSpace(d.Result)
			if msg == "" {
				msg = e.summarize(observations)
			}
			if d.TaskComplete {
				data["task_complete"] = true
			}
			logger.Log.Infow("Agent finished", "agent", e.name, "task", t.ID, "iterations", i)
			return e.completed(msg, data, observations, pendingQuestion)

		default:
			observations = append(observations, fmt.Sprintf("Observation: unsupported action %q, stopping.", d.Action))
			return e.completed(e.summarize(observations), data, observations, pendingQuestion)
		}
	}

	logger.Log.Infow("Agent exhausted its iteration budget", "agent", e.name, "task", t.ID, "iterations", e.maxIterations)
	return e.completed(e.summarize(observations), data, observations, pendingQuestion)
}

func (e *Engine) completed(msg string, data map[string]any, observations []string, pendingQuestion string) Result {
	if len(data) == 0 {
		data = nil
	}
	res := Result{
		Success:      true,
		Data:         data,
		Message:      msg,
		AgentName:    e.name,
		Observations: observations,
		State:        StateCompleted,
		Timestamp:    time.Now(),
	}
	if pendingQuestion != "" {
		res.NeedsMoreInfo = true
		res.FollowUpQuestion = pendingQuestion
	}
	return res
}

// think asks the oracle for the next move. Anything unusable folds to a
// finish decision so one bad reply can never wedge the loop.
func (e *Engine) think(ctx context.Context, t Task, observations []string, iteration int) parser.Decision {
	fallback := parser.Decision{
		Action: parser.ActionFinish,
		Result: "",
	}
	if e.oracle == nil {
		return fallback
	}

	prompt := e.buildThinkPrompt(t, observations, iteration)
	callCtx, cancel := context.WithTimeout(ctx, e.oracleTimeout)
	defer cancel()

	raw, err := e.oracle.GenerateJSON(callCtx, prompt, e.model, nil)
	if err != nil {
		logger.Log.Warnw("Think call failed", "agent", e.name, "iteration", iteration, "error", err)
		return fallback
	}
	d, ok := parser.DecodeDecision(raw, fallback)
	if !ok {
		logger.Log.Warnw("Think reply was not usable JSON", "agent", e.name, "iteration", iteration)
		return fallback
	}
	return d
}

func (e *Engine) runTool(ctx context.Context, t Task, d parser.Decision, data map[string]any) string {
	name := strings.TrimSpace(d.ToolName)
	if name == "" {
		return "Observation: the plan called for a tool but named none."
	}
	res := e.registry.Execute(ctx, name, e.name, d.ToolArgs)
	if !res.Success {
		return truncate(fmt.Sprintf("Observation: tool %s failed: %s", name, res.Error), observationMaxChars)
	}
	data[name] = res.Data
	encoded, err := json.Marshal(res.Data)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", res.Data))
	}
	return truncate(fmt.Sprintf("Observation: tool %s returned %s", name, encoded), observationMaxChars)
}

// askUser relays a question through HITL. Returns the observation and
// whether an actual answer came back.
func (e *Engine) askUser(ctx context.Context, t Task, d parser.Decision, data map[string]any) (string, bool) {
	question := strings.TrimSpace(d.Question)
	if question == "" {
		return "Observation: wanted to ask the user but had no question.", false
	}
	if e.hitl == nil || !e.hitl.Enabled() {
		return "Observation: cannot ask the user in this session, continue with what is known.", false
	}

	answer, err := e.hitl.Ask(ctx, t.SessionID(), question, hitl.QuestionInfoNeeded, nil)
	if err != nil {
		logger.Log.Warnw("Agent question was refused", "agent", e.name, "error", err)
		return "Observation: the question budget is spent, continue with what is known.", false
	}
	if answer == "" {
		return "Observation: the user gave no answer.", true
	}
	appendUserInput(data, answer)
	return truncate("Observation: the user answered: "+answer, observationMaxChars), true
}

func appendUserInput(data map[string]any, answer string) {
	switch prev := data["userInput"].(type) {
	case nil:
		data["userInput"] = answer
	case string:
		data["userInput"] = []string{prev, answer}
	case []string:
		data["userInput"] = append(prev, answer)
	}
}

// summarize builds the best-effort message used when the oracle never
// produced a final answer.
func (e *Engine) summarize(observations []string) string {
	kept := make([]string, 0, 3)
	for i := len(observations) - 1; i >= 0 && len(kept) < 3; i-- {
		if strings.HasPrefix(observations[i], "Observation: ") {
			kept = append([]string{strings.TrimPrefix(observations[i], "Observation: ")}, kept...)
		}
	}
	if len(kept) == 0 {
		return fmt.Sprintf("The %s agent could not complete the task.", e.name)
	}
	return "Here is what was found so far: " + strings.Join(kept, " | ")
}

func (e *Engine) buildThinkPrompt(t Task, observations []string, iteration int) string {
	var sb strings.Builder
	sb.WriteString("You are the ")
	sb.WriteString(e.name)
	sb.WriteString(" agent of a crypto trading assistant.\n")
	sb.WriteString("Task: ")
	sb.WriteString(t.Query)
	sb.WriteString("\n")
	if len(t.Symbols) > 0 {
		sb.WriteString("Symbols: ")
		sb.WriteString(strings.Join(t.Symbols, ", "))
		sb.WriteString("\n")
	}
	if orig, ok := t.Context["original_query"].(string); ok && orig != "" && orig != t.Query {
		sb.WriteString("The user originally asked: ")
		sb.WriteString(orig)
		sb.WriteString("\n")
	}
	if hint, ok := t.Context["tool_hint"].(string); ok && hint != "" {
		sb.WriteString("Suggested tool: ")
		sb.WriteString(hint)
		sb.WriteString("\n")
	}
	if prior, ok := t.Context["prior_results"].(map[string]string); ok && len(prior) > 0 {
		sb.WriteString("Findings from earlier steps:\n")
		names := make([]string, 0, len(prior))
		for name := range prior {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString("- ")
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(truncate(prior[name], observationMaxChars))
			sb.WriteString("\n")
		}
	}
	if inputs, ok := t.Context["user_inputs"].([]string); ok && len(inputs) > 0 {
		sb.WriteString("The user already told us: ")
		sb.WriteString(strings.Join(inputs, "; "))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Step %d of at most %d.\n", iteration, e.maxIterations))

	sb.WriteString("\nAvailable tools:\n")
	sb.WriteString(e.registry.CatalogueForDomain(e.domain))

	if len(observations) > 0 {
		sb.WriteString("\nWhat has happened so far:\n")
		start := 0
		if len(observations) > promptObservations {
			start = len(observations) - promptObservations
		}
		for _, obs := range observations[start:] {
			sb.WriteString("- ")
			sb.WriteString(truncate(obs, observationMaxChars))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nDecide the next move. Use a tool when you still need data, ask the user only when stuck, finish when you can answer.\n")
	sb.WriteString("Respond with JSON only:\n")
	sb.WriteString(`{"thought": "...", "action": "useTool|askUser|finish", "tool_name": "...", "tool_args": {}, "question": "...", "result": "...", "task_complete": false}`)
	sb.WriteString("\n")
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
