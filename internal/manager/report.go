package manager

import (
	"strings"

	"github.com/aaaa47080/stock-agent-sub003/internal/agent"
	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
)

// synthesizeReport folds the agent results into the final reply. One
// success is returned verbatim; several are concatenated under per-agent
// headings with a footer naming the agents whose steps did not finish.
// Failure detail only surfaces when nothing succeeded.
func (m *Manager) synthesizeReport(cc *ConversationContext) string {
	if len(cc.AgentResults) == 0 {
		return NoResultsMessage
	}

	var successes []agent.Result
	var failed []string
	for _, r := range cc.AgentResults {
		if r.Success {
			successes = append(successes, r)
			continue
		}
		dup := false
		for _, name := range failed {
			if name == r.AgentName {
				dup = true
				break
			}
		}
		if !dup {
			failed = append(failed, r.AgentName)
		}
	}
	if len(successes) == 0 {
		return AllFailedMessage
	}
	if len(successes) == 1 {
		if msg := strings.TrimSpace(successes[0].Message); msg != "" {
			return msg
		}
		return NoResultsMessage
	}

	var sb strings.Builder
	for _, r := range successes {
		msg := strings.TrimSpace(r.Message)
		if msg == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("## ")
		sb.WriteString(r.AgentName)
		sb.WriteString("\n")
		sb.WriteString(msg)
	}
	if sb.Len() == 0 {
		return NoResultsMessage
	}
	if len(failed) > 0 {
		sb.WriteString("\n\nIncomplete: the ")
		sb.WriteString(strings.Join(failed, ", "))
		sb.WriteString(" step(s) did not finish.")
	}
	return sb.String()
}

// learn stores the executed plan for reuse. Runs after any session with
// at least one successful step; storage failures only log.
func (m *Manager) learn(cc *ConversationContext, intent, reasoning string) {
	if m.codebook == nil || len(cc.Plan.Steps) == 0 {
		return
	}
	if intent == "unknown" {
		intent = ""
	}
	if err := m.codebook.AddEntry(cc.OriginalQuery, cc.Plan, reasoning, intent); err != nil {
		logger.Log.Warnw("Could not store the plan for reuse", "session", cc.SessionID, "error", err)
		return
	}
	logger.Log.Debugw("Stored the plan for reuse", "session", cc.SessionID, "query", cc.OriginalQuery)
}
