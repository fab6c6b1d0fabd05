package agent

import (
	"context"
	"strings"
	"time"
)

type TaskType string

const (
	TaskNews         TaskType = "news"
	TaskTechnical    TaskType = "technical"
	TaskSentiment    TaskType = "sentiment"
	TaskGeneralChat  TaskType = "generalChat"
	TaskDeepAnalysis TaskType = "deepAnalysis"
	TaskUnknown      TaskType = "unknown"
)

// ParseTaskType folds loose oracle spellings onto the canonical enum.
func ParseTaskType(raw string) TaskType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "news", "headline", "headlines":
		return TaskNews
	case "technical", "ta", "price", "market":
		return TaskTechnical
	case "sentiment":
		return TaskSentiment
	case "generalchat", "general_chat", "chat", "general":
		return TaskGeneralChat
	case "deepanalysis", "deep_analysis", "analysis":
		return TaskDeepAnalysis
	default:
		return TaskUnknown
	}
}

type State string

const (
	StateIdle      State = "idle"
	StateThinking  State = "thinking"
	StateExecuting State = "executing"
	StateWaiting   State = "waiting"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Task is one unit of dispatched work. Context carries cross-step data:
// the session id, the user's original query and the outputs of earlier
// successful steps.
type Task struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Type      TaskType       `json:"type"`
	Symbols   []string       `json:"symbols,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Priority  int            `json:"priority,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (t Task) SessionID() string {
	if t.Context == nil {
		return ""
	}
	sid, _ := t.Context["session_id"].(string)
	return sid
}

// Result is what one agent invocation hands back to the manager. The
// manager owns it from then on.
type Result struct {
	Success          bool           `json:"success"`
	Data             map[string]any `json:"data,omitempty"`
	Message          string         `json:"message"`
	AgentName        string         `json:"agent_name"`
	Observations     []string       `json:"observations,omitempty"`
	NeedsMoreInfo    bool           `json:"needs_more_info,omitempty"`
	FollowUpQuestion string         `json:"follow_up_question,omitempty"`
	State            State          `json:"state"`
	Timestamp        time.Time      `json:"timestamp"`
}

// Agent is a dispatchable specialist. Implementations keep no state
// between Execute calls; everything a call needs rides in the Task.
type Agent interface {
	Name() string
	ShouldParticipate(t Task) (bool, string)
	Execute(ctx context.Context, t Task) Result
}
