package hitl

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aaaa47080/stock-agent-sub003/internal/llm_client"
)

type fakeTransport struct {
	mu      sync.Mutex
	answers []string
	asked   []Question
}

func (f *fakeTransport) Interactive() bool { return true }

func (f *fakeTransport) Prompt(ctx context.Context, q Question) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, q)
	if len(f.answers) == 0 {
		return "", nil
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

func (f *fakeTransport) prompted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.asked)
}

type fakeOracle struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (f *fakeOracle) Init(llm_client.Config) error        { return nil }
func (f *fakeOracle) DefaultModel() string                { return "fake-model" }
func (f *fakeOracle) AllowedModelOrDefault(string) string { return "fake-model" }

func (f *fakeOracle) next() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.responses) == 0 {
		return ""
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx]
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeOracle) Generate(ctx context.Context, prompt, model string) (string, error) {
	return f.next(), nil
}

func (f *fakeOracle) GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	return f.next(), nil
}

func TestAskQuota(t *testing.T) {
	tr := &fakeTransport{answers: []string{"yes", "no", "maybe"}}
	c := NewCoordinator(Options{Transport: tr, MaxQuestions: 2})

	if _, err := c.Ask(context.Background(), "s1", "first?", QuestionInfoNeeded, nil); err != nil {
		t.Fatalf("Expected first ask to succeed, but got %v", err)
	}
	if _, err := c.Ask(context.Background(), "s1", "second?", QuestionInfoNeeded, nil); err != nil {
		t.Fatalf("Expected second ask to succeed, but got %v", err)
	}
	_, err := c.Ask(context.Background(), "s1", "third?", QuestionInfoNeeded, nil)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded on third ask, but got %v", err)
	}
	if tr.prompted() != 2 {
		t.Errorf("Expected exactly 2 prompts to reach the transport, but got %d", tr.prompted())
	}
}

func TestAskQuotaIsPerSession(t *testing.T) {
	tr := &fakeTransport{answers: []string{"a", "b"}}
	c := NewCoordinator(Options{Transport: tr, MaxQuestions: 1})

	if _, err := c.Ask(context.Background(), "s1", "q?", QuestionInfoNeeded, nil); err != nil {
		t.Fatalf("Expected ask in s1 to succeed, but got %v", err)
	}
	if _, err := c.Ask(context.Background(), "s2", "q?", QuestionInfoNeeded, nil); err != nil {
		t.Errorf("Expected fresh budget in s2, but got %v", err)
	}
}

func TestShouldAskUserQuotaShortCircuit(t *testing.T) {
	tr := &fakeTransport{answers: []string{"fine"}}
	oracle := &fakeOracle{responses: []string{`{"should_ask":true,"question":"more?","question_type":"infoNeeded"}`}}
	c := NewCoordinator(Options{Transport: tr, MaxQuestions: 1, Oracle: oracle})

	if _, err := c.Ask(context.Background(), "s1", "q?", QuestionInfoNeeded, nil); err != nil {
		t.Fatal(err)
	}

	ask, question, qType := c.ShouldAskUser(context.Background(), "s1", "anything", "")
	if ask || question != "" || qType != QuestionInfoNeeded {
		t.Errorf("Expected (false, \"\", infoNeeded) after quota exhaustion, but got (%v, %q, %v)", ask, question, qType)
	}
	if oracle.callCount() != 0 {
		t.Errorf("Expected no oracle call once the quota is spent, but got %d calls", oracle.callCount())
	}
}

func TestShouldAskUserFollowsOracle(t *testing.T) {
	tr := &fakeTransport{}
	oracle := &fakeOracle{responses: []string{`{"should_ask":true,"question":"Which timeframe?","question_type":"clarification"}`}}
	c := NewCoordinator(Options{Transport: tr, MaxQuestions: 5, Oracle: oracle})

	ask, question, qType := c.ShouldAskUser(context.Background(), "s1", "analyze", "")
	if !ask {
		t.Fatalf("Expected ask=true, but got false")
	}
	if question != "Which timeframe?" {
		t.Errorf("Expected the oracle's question, but got %q", question)
	}
	if qType != QuestionClarification {
		t.Errorf("Expected clarification type, but got %v", qType)
	}
}

func TestShouldAskUserMalformedOracle(t *testing.T) {
	tr := &fakeTransport{}
	oracle := &fakeOracle{responses: []string{"sorry, I cannot answer in JSON"}}
	c := NewCoordinator(Options{Transport: tr, MaxQuestions: 5, Oracle: oracle})

	ask, question, qType := c.ShouldAskUser(context.Background(), "s1", "analyze", "")
	if ask || question != "" || qType != QuestionInfoNeeded {
		t.Errorf("Expected malformed advice to mean don't ask, but got (%v, %q, %v)", ask, question, qType)
	}
}

func TestAskRecordsExchange(t *testing.T) {
	tr := &fakeTransport{answers: []string{"  BTC and ETH  "}}
	c := NewCoordinator(Options{Transport: tr, MaxQuestions: 5})

	answer, err := c.Ask(context.Background(), "s1", "Which symbols?", QuestionClarification, nil)
	if err != nil {
		t.Fatalf("Expected ask to succeed, but got %v", err)
	}
	if answer != "BTC and ETH" {
		t.Errorf("Expected trimmed answer, but got %q", answer)
	}

	stats := c.SessionStats("s1")
	if stats.TotalQuestions != 1 || stats.TotalResponses != 1 {
		t.Errorf("Expected 1 question and 1 response, but got %+v", stats)
	}
	if stats.ByType[QuestionClarification] != 1 {
		t.Errorf("Expected clarification counted, but got %+v", stats.ByType)
	}

	history := c.History("s1")
	if len(history) != 1 {
		t.Fatalf("Expected 1 exchange in history, but got %d", len(history))
	}
	if history[0].Response.UserResponse != "BTC and ETH" {
		t.Errorf("Expected recorded answer, but got %q", history[0].Response.UserResponse)
	}
}

func TestAskEmptyAnswerIsNotAnError(t *testing.T) {
	tr := &fakeTransport{answers: []string{""}}
	c := NewCoordinator(Options{Transport: tr, MaxQuestions: 5})

	answer, err := c.Ask(context.Background(), "s1", "anything?", QuestionInfoNeeded, nil)
	if err != nil {
		t.Fatalf("Expected empty answer without error, but got %v", err)
	}
	if answer != "" {
		t.Errorf("Expected empty answer, but got %q", answer)
	}
}

func TestNonInteractiveTransport(t *testing.T) {
	c := NewCoordinator(Options{Transport: NonInteractive{}, MaxQuestions: 5, Oracle: &fakeOracle{}})

	if c.Enabled() {
		t.Errorf("Expected Enabled()=false for non-interactive transport")
	}
	ask, _, _ := c.ShouldAskUser(context.Background(), "s1", "analyze", "")
	if ask {
		t.Errorf("Expected no questions in non-interactive mode, but got ask=true")
	}
	answer, err := c.Ask(context.Background(), "s1", "q?", QuestionInfoNeeded, nil)
	if err != nil || answer != "" {
		t.Errorf("Expected immediate empty answer, but got (%q, %v)", answer, err)
	}
}

func TestResetSessionRestoresBudget(t *testing.T) {
	tr := &fakeTransport{answers: []string{"a", "b"}}
	c := NewCoordinator(Options{Transport: tr, MaxQuestions: 1})

	if _, err := c.Ask(context.Background(), "s1", "q?", QuestionInfoNeeded, nil); err != nil {
		t.Fatal(err)
	}
	c.ResetSession("s1")
	if _, err := c.Ask(context.Background(), "s1", "again?", QuestionInfoNeeded, nil); err != nil {
		t.Errorf("Expected budget back after reset, but got %v", err)
	}
	if got := c.Remaining("s1"); got != 0 {
		t.Errorf("Expected 0 remaining after spending the fresh budget, but got %d", got)
	}
}
