package manager

import (
	"github.com/aaaa47080/stock-agent-sub003/internal/agent"
	"github.com/aaaa47080/stock-agent-sub003/internal/metrics"
	"github.com/aaaa47080/stock-agent-sub003/internal/parser"
)

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Fixed user-facing strings. Tests and callers rely on these exact values.
const (
	ApologyMessage   = "Sorry, something went wrong while handling your request. Please try again."
	CancelledMessage = "Task cancelled. Nothing was executed."
	NoResultsMessage = "Sorry, I could not complete this task."
	AllFailedMessage = "All plan steps failed. Please try again later."
	EmptyQueryReply  = "Please tell me what you would like to do."
)

// ConversationContext is the working state of one Process call. It is
// created at the top of Process and discarded at the end; nothing here
// survives the session except what learning writes to the codebook and
// the turns written to conversation memory.
type ConversationContext struct {
	SessionID     string
	OriginalQuery string
	TaskType      agent.TaskType
	Symbols       []string

	Plan       parser.Plan
	StepStatus []StepStatus

	Observations []string
	AgentResults []agent.Result
	UserInputs   []string

	IterationCount int
	MaxIterations  int

	Metrics metrics.SessionMetrics
}

func (cc *ConversationContext) nextPending() int {
	for i, st := range cc.StepStatus {
		if st == StepPending {
			return i
		}
	}
	return -1
}

func (cc *ConversationContext) succeededCount() int {
	n := 0
	for _, r := range cc.AgentResults {
		if r.Success {
			n++
		}
	}
	return n
}
