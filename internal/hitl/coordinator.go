package hitl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aaaa47080/stock-agent-sub003/internal/llm_client"
	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
	"github.com/aaaa47080/stock-agent-sub003/internal/parser"
)

// Coordinator owns all human-in-the-loop traffic. Every question spends
// one unit of the per-session budget, and only one question per session
// can be pending at a time.
type Coordinator struct {
	mu           sync.Mutex
	transport    Transport
	maxQuestions int
	oracle       llm_client.Provider
	model        string
	timeout      time.Duration
	sessions     map[string]*sessionState
}

type sessionState struct {
	askMu    sync.Mutex
	asked    int
	answered int
	byType   map[QuestionType]int
	history  []Exchange
}

type Options struct {
	Transport     Transport
	MaxQuestions  int
	Oracle        llm_client.Provider
	Model         string
	OracleTimeout time.Duration
}

func NewCoordinator(opts Options) *Coordinator {
	if opts.Transport == nil {
		opts.Transport = NonInteractive{}
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = 5
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = 60 * time.Second
	}
	return &Coordinator{
		transport:    opts.Transport,
		maxQuestions: opts.MaxQuestions,
		oracle:       opts.Oracle,
		model:        opts.Model,
		timeout:      opts.OracleTimeout,
		sessions:     make(map[string]*sessionState),
	}
}

// Enabled reports whether questions can actually reach a human.
func (c *Coordinator) Enabled() bool {
	return c.transport.Interactive()
}

func (c *Coordinator) session(sessionID string) *sessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[sessionID]
	if !ok {
		st = &sessionState{byType: make(map[QuestionType]int)}
		c.sessions[sessionID] = st
	}
	return st
}

// Ask poses one question and blocks until the user answers. The question
// is charged against the session budget before the transport runs, so an
// abandoned prompt still counts. An empty answer means the user gave no
// information; it is returned as "" without error.
func (c *Coordinator) Ask(ctx context.Context, sessionID, text string, qType QuestionType, options []string) (string, error) {
	st := c.session(sessionID)

	// Serializes questions within a session: the lock is held across the
	// transport call on purpose.
	st.askMu.Lock()
	defer st.askMu.Unlock()

	c.mu.Lock()
	if st.asked >= c.maxQuestions {
		c.mu.Unlock()
		return "", fmt.Errorf("%w (asked %d of %d)", ErrQuotaExceeded, st.asked, c.maxQuestions)
	}
	st.asked++
	st.byType[qType]++
	c.mu.Unlock()

	q := Question{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      text,
		Type:      qType,
		Options:   options,
		CreatedAt: time.Now(),
	}
	logger.Log.Infow("Asking user", "session", sessionID, "type", qType, "question", text)

	answer, err := c.transport.Prompt(ctx, q)
	if err != nil {
		return "", fmt.Errorf("prompt user: %w", err)
	}
	answer = strings.TrimSpace(answer)

	c.mu.Lock()
	st.answered++
	st.history = append(st.history, Exchange{
		Question: q,
		Response: Response{Question: text, UserResponse: answer, RespondedAt: time.Now()},
	})
	c.mu.Unlock()

	return answer, nil
}

// ShouldAskUser decides whether clarification is worth a question. The
// budget is checked before the oracle is consulted, so an exhausted
// session never spends an oracle call here. Malformed oracle output means
// "don't ask".
func (c *Coordinator) ShouldAskUser(ctx context.Context, sessionID, query, contextSummary string) (bool, string, QuestionType) {
	st := c.session(sessionID)

	c.mu.Lock()
	exhausted := st.asked >= c.maxQuestions
	c.mu.Unlock()
	if exhausted {
		return false, "", QuestionInfoNeeded
	}
	if c.oracle == nil || !c.Enabled() {
		return false, "", QuestionInfoNeeded
	}

	prompt := buildAskAdvicePrompt(query, contextSummary)
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.oracle.GenerateJSON(callCtx, prompt, c.model, nil)
	if err != nil {
		logger.Log.Warnw("Ask-advice oracle call failed", "session", sessionID, "error", err)
		return false, "", QuestionInfoNeeded
	}
	advice, ok := parser.DecodeAskAdvice(raw)
	if !ok || !advice.ShouldAsk || strings.TrimSpace(advice.Question) == "" {
		return false, "", QuestionInfoNeeded
	}
	return true, strings.TrimSpace(advice.Question), ParseQuestionType(advice.QuestionType)
}

func buildAskAdvicePrompt(query, contextSummary string) string {
	var sb strings.Builder
	sb.WriteString("You are deciding whether an assistant should interrupt the user with a question.\n")
	sb.WriteString("User request: ")
	sb.WriteString(query)
	sb.WriteString("\n")
	if contextSummary != "" {
		sb.WriteString("What is already known:\n")
		sb.WriteString(contextSummary)
		sb.WriteString("\n")
	}
	sb.WriteString("\nOnly ask when the request cannot be served without more input.\n")
	sb.WriteString("Respond with JSON only:\n")
	sb.WriteString(`{"should_ask": true|false, "question": "...", "question_type": "infoNeeded|preference|confirmation|satisfaction|clarification"}`)
	sb.WriteString("\n")
	return sb.String()
}

// Remaining reports how many questions the session may still ask.
func (c *Coordinator) Remaining(sessionID string) int {
	st := c.session(sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()
	left := c.maxQuestions - st.asked
	if left < 0 {
		left = 0
	}
	return left
}

func (c *Coordinator) SessionStats(sessionID string) Stats {
	st := c.session(sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()
	byType := make(map[QuestionType]int, len(st.byType))
	for k, v := range st.byType {
		byType[k] = v
	}
	return Stats{
		TotalQuestions: st.asked,
		TotalResponses: st.answered,
		ByType:         byType,
	}
}

func (c *Coordinator) History(sessionID string) []Exchange {
	st := c.session(sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Exchange, len(st.history))
	copy(out, st.history)
	return out
}

// ResetSession clears counters and history, typically when the user
// starts a fresh conversation.
func (c *Coordinator) ResetSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
}
