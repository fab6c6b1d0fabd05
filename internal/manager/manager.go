package manager

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aaaa47080/stock-agent-sub003/internal/agent"
	"github.com/aaaa47080/stock-agent-sub003/internal/codebook"
	"github.com/aaaa47080/stock-agent-sub003/internal/hitl"
	"github.com/aaaa47080/stock-agent-sub003/internal/llm_client"
	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
	"github.com/aaaa47080/stock-agent-sub003/internal/memory"
	"github.com/aaaa47080/stock-agent-sub003/internal/metrics"
	"github.com/aaaa47080/stock-agent-sub003/internal/parser"
)

const (
	defaultMaxIterations = 15
	memoryTurnsForPrompt = 3
)

type Options struct {
	Oracle        llm_client.Provider
	Model         string
	Codebook      *codebook.Store
	Memory        *memory.Store
	HITL          *hitl.Coordinator
	Agents        []agent.Agent
	MaxIterations int
	OracleTimeout time.Duration
}

// Manager turns one user query into a final report: classify, plan (or
// reuse a learned plan), confirm, dispatch to agents, synthesize, learn.
type Manager struct {
	oracle        llm_client.Provider
	model         string
	codebook      *codebook.Store
	memory        *memory.Store
	hitl          *hitl.Coordinator
	agents        map[string]agent.Agent
	agentOrder    []string
	maxIterations int
	oracleTimeout time.Duration

	lastMu      sync.Mutex
	lastMetrics *metrics.SessionMetrics
}

// LastMetrics returns a copy of the most recent session's metrics, or nil
// before the first session.
func (m *Manager) LastMetrics() *metrics.SessionMetrics {
	m.lastMu.Lock()
	defer m.lastMu.Unlock()
	if m.lastMetrics == nil {
		return nil
	}
	cp := *m.lastMetrics
	cp.Steps = append([]metrics.StepMetrics(nil), m.lastMetrics.Steps...)
	return &cp
}

func New(opts Options) *Manager {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	timeout := opts.OracleTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	h := opts.HITL
	if h == nil {
		h = hitl.NewCoordinator(hitl.Options{})
	}
	mem := opts.Memory
	if mem == nil {
		mem = memory.NewStore()
	}

	m := &Manager{
		oracle:        opts.Oracle,
		model:         opts.Model,
		codebook:      opts.Codebook,
		memory:        mem,
		hitl:          h,
		agents:        make(map[string]agent.Agent),
		maxIterations: maxIter,
		oracleTimeout: timeout,
	}
	for _, a := range opts.Agents {
		if a == nil {
			continue
		}
		if _, dup := m.agents[a.Name()]; dup {
			continue
		}
		m.agents[a.Name()] = a
		m.agentOrder = append(m.agentOrder, a.Name())
	}
	return m
}

// Process handles one query end to end. The returned error is non-nil
// only when ctx is cancelled; every orchestration-level failure degrades
// to a structural fallback along the way, and anything genuinely
// unexpected is caught here and turned into a generic apology.
func (m *Manager) Process(ctx context.Context, query, sessionID string) (report string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Errorw("Session crashed", "session", sessionID, "panic", rec)
			report, err = ApologyMessage, nil
		}
	}()

	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return EmptyQueryReply, nil
	}

	cc := &ConversationContext{
		SessionID:     sessionID,
		OriginalQuery: query,
		MaxIterations: m.maxIterations,
		Metrics:       metrics.SessionMetrics{SessionID: sessionID, Query: query, Start: time.Now()},
	}
	defer func() {
		cc.Metrics.End = time.Now()
		cc.Metrics.Finalize()
		m.lastMu.Lock()
		snap := cc.Metrics
		snap.Steps = append([]metrics.StepMetrics(nil), cc.Metrics.Steps...)
		m.lastMetrics = &snap
		m.lastMu.Unlock()
		logger.Log.Infow("Session finished",
			"session", sessionID,
			"duration_ms", cc.Metrics.DurationMs,
			"oracle_calls", cc.Metrics.OracleCalls,
			"steps", len(cc.Metrics.Steps),
			"succeeded", cc.Metrics.Succeeded)
	}()

	conv := m.memory.Session(sessionID)
	conv.AddTurn(memory.RoleUser, query)
	logger.Log.Infow("Session started", "session", sessionID, "query", query)

	cls := m.classify(ctx, cc, conv, query)
	if cls.NeedMoreInfo {
		if extra := m.clarify(ctx, cc, query, cls); extra != "" {
			cc.UserInputs = append(cc.UserInputs, extra)
			query = query + "\n(the user added: " + extra + ")"
			cls = m.classify(ctx, cc, conv, query)
		}
	}
	cc.TaskType = agent.ParseTaskType(cls.Intent)
	cc.Symbols = dedupeSymbols(cls.Symbols)
	conv.RememberEntities(cc.Symbols)
	if cc.TaskType != agent.TaskUnknown {
		conv.SetTopic(string(cc.TaskType))
	}

	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}

	if cls.OutOfScope {
		logger.Log.Infow("Query flagged out of scope, handing to chat", "session", sessionID)
		res := m.runStep(ctx, cc, parser.PlanStep{Step: 1, Description: query, Agent: "chat"})
		cc.Metrics.Succeeded = res.Success
		report = strings.TrimSpace(res.Message)
		if report == "" {
			report = NoResultsMessage
		}
		conv.AddTurn(memory.RoleAssistant, report)
		return report, nil
	}

	plan, reasoning := m.buildPlan(ctx, cc, query, cls)

	plan, reasoning, approved := m.confirmPlan(ctx, cc, query, cls, plan, reasoning)
	if !approved {
		conv.AddTurn(memory.RoleAssistant, CancelledMessage)
		return CancelledMessage, nil
	}

	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}

	cc.Plan = plan
	cc.StepStatus = make([]StepStatus, len(plan.Steps))
	for i := range cc.StepStatus {
		cc.StepStatus[i] = StepPending
	}

	m.dispatch(ctx, cc)

	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}

	report = m.synthesizeReport(cc)

	if cc.succeededCount() > 0 {
		cc.Metrics.Succeeded = true
		m.learn(cc, cls.Intent, reasoning)
	}

	conv.AddTurn(memory.RoleAssistant, report)
	return report, nil
}

// classify maps the query onto an intent, symbols and routing flags. Bad
// oracle output degrades to an unknown intent so the session can proceed.
func (m *Manager) classify(ctx context.Context, cc *ConversationContext, conv *memory.Conversation, query string) parser.Classification {
	def := parser.Classification{Intent: "unknown", Symbols: []string{}}
	if m.oracle == nil {
		return def
	}

	prompt := buildClassifyPrompt(query, conv.RecentTurns(memoryTurnsForPrompt), conv.Topic(), conv.Entities())
	callCtx, cancel := context.WithTimeout(ctx, m.oracleTimeout)
	defer cancel()

	cc.Metrics.OracleCalls++
	raw, err := m.oracle.GenerateJSON(callCtx, prompt, m.model, nil)
	if err != nil {
		logger.Log.Warnw("Classification call failed", "session", cc.SessionID, "error", err)
		return def
	}
	cls, ok := parser.DecodeClassification(raw, def)
	if !ok {
		logger.Log.Warnw("Classification reply was not usable JSON", "session", cc.SessionID)
		return def
	}
	logger.Log.Debugw("Classified query", "session", cc.SessionID, "intent", cls.Intent, "symbols", cls.Symbols, "out_of_scope", cls.OutOfScope)
	return cls
}

// clarify asks the user one question when classification says more input
// is needed. Returns the answer, or "" when no question could be asked.
func (m *Manager) clarify(ctx context.Context, cc *ConversationContext, query string, cls parser.Classification) string {
	if !m.hitl.Enabled() {
		return ""
	}
	question := strings.TrimSpace(cls.ClarificationQuestion)
	qType := hitl.QuestionClarification
	if question == "" {
		ask, q, t := m.hitl.ShouldAskUser(ctx, cc.SessionID, query, "")
		if !ask {
			return ""
		}
		question, qType = q, t
	}
	answer, err := m.hitl.Ask(ctx, cc.SessionID, question, qType, nil)
	if err != nil {
		logger.Log.Warnw("Clarification was refused", "session", cc.SessionID, "error", err)
		return ""
	}
	return answer
}

// dedupeSymbols uppercases, trims and deduplicates while keeping the
// oracle's order.
func dedupeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func buildClassifyPrompt(query string, turns []memory.Turn, topic string, entities []string) string {
	var sb strings.Builder
	sb.WriteString("You route requests for a crypto trading assistant.\n")
	if topic != "" {
		sb.WriteString("Current topic: ")
		sb.WriteString(topic)
		sb.WriteString("\n")
	}
	if len(entities) > 0 {
		sb.WriteString("Symbols mentioned so far: ")
		sb.WriteString(strings.Join(entities, ", "))
		sb.WriteString("\n")
	}
	if len(turns) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, turn := range turns {
			sb.WriteString(turn.Role)
			sb.WriteString(": ")
			sb.WriteString(turn.Text)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nRequest: ")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	sb.WriteString("Classify it. intent is one of news|technical|sentiment|generalChat|deepAnalysis|unknown.\n")
	sb.WriteString("List symbols as plain coin tickers such as BTC or ETH.\n")
	sb.WriteString("Set out_of_scope for requests no crypto assistant should handle.\n")
	sb.WriteString("Set need_more_info only when the request cannot be acted on as written.\n")
	sb.WriteString("Respond with JSON only:\n")
	sb.WriteString(`{"intent": "...", "symbols": [], "agents_to_dispatch": [], "out_of_scope": false, "need_more_info": false, "clarification_question": "", "reasoning": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}
