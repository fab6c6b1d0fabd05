package manager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aaaa47080/stock-agent-sub003/internal/agent"
	"github.com/aaaa47080/stock-agent-sub003/internal/hitl"
	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
	"github.com/aaaa47080/stock-agent-sub003/internal/metrics"
	"github.com/aaaa47080/stock-agent-sub003/internal/parser"
)

// dispatch walks the plan one pending step at a time. A failed step marks
// itself failed and the loop moves on; an agent signalling task
// completion ends the loop early.
func (m *Manager) dispatch(ctx context.Context, cc *ConversationContext) {
	for iter := 0; iter < m.maxIterations; iter++ {
		cc.IterationCount = iter + 1

		if ctx.Err() != nil {
			logger.Log.Infow("Dispatch stopped by cancellation", "session", cc.SessionID)
			return
		}
		idx := cc.nextPending()
		if idx < 0 {
			return
		}
		step := cc.Plan.Steps[idx]

		res := m.runStep(ctx, cc, step)
		if res.Success {
			cc.StepStatus[idx] = StepCompleted
		} else {
			cc.StepStatus[idx] = StepFailed
		}

		if res.NeedsMoreInfo && res.FollowUpQuestion != "" && m.hitl.Enabled() {
			answer, err := m.hitl.Ask(ctx, cc.SessionID, res.FollowUpQuestion, hitl.QuestionInfoNeeded, nil)
			if err == nil && answer != "" {
				cc.UserInputs = append(cc.UserInputs, answer)
			}
		}

		if done, _ := res.Data["task_complete"].(bool); done && res.Success {
			logger.Log.Infow("Agent signalled the task is complete, stopping early",
				"session", cc.SessionID, "step", step.Step, "agent", res.AgentName)
			return
		}
	}
	logger.Log.Warnw("Dispatch loop hit its iteration cap", "session", cc.SessionID, "iterations", m.maxIterations)
}

// runStep executes one plan step and records everything about it into the
// conversation context.
func (m *Manager) runStep(ctx context.Context, cc *ConversationContext, step parser.PlanStep) agent.Result {
	ag := m.agentFor(step.Agent)
	if ag == nil {
		logger.Log.Errorw("No agents registered", "session", cc.SessionID)
		return agent.Result{
			Success:   false,
			Message:   "no agent available for this step",
			AgentName: step.Agent,
			State:     agent.StateFailed,
			Timestamp: time.Now(),
		}
	}

	task := m.taskForStep(cc, step)
	logger.Log.Infow("Dispatching step",
		"session", cc.SessionID, "step", step.Step, "agent", ag.Name(), "description", step.Description)

	sm := metrics.StepMetrics{Step: step.Step, Agent: ag.Name(), Start: time.Now()}
	res := ag.Execute(ctx, task)
	sm.End = time.Now()
	sm.Success = res.Success
	if !res.Success {
		sm.Err = res.Message
	}
	sm.Finalize()
	cc.Metrics.Steps = append(cc.Metrics.Steps, sm)

	cc.AgentResults = append(cc.AgentResults, res)
	cc.Observations = append(cc.Observations, res.Observations...)
	recordUserInputs(cc, res)

	return res
}

func recordUserInputs(cc *ConversationContext, res agent.Result) {
	switch v := res.Data["userInput"].(type) {
	case string:
		cc.UserInputs = append(cc.UserInputs, v)
	case []string:
		cc.UserInputs = append(cc.UserInputs, v...)
	}
}

// agentFor resolves a step's agent by name, falling back to chat, then to
// any registered agent.
func (m *Manager) agentFor(name string) agent.Agent {
	if a, ok := m.agents[name]; ok {
		return a
	}
	if a, ok := m.agents["chat"]; ok {
		return a
	}
	if len(m.agentOrder) > 0 {
		return m.agents[m.agentOrder[0]]
	}
	return nil
}

func (m *Manager) taskForStep(cc *ConversationContext, step parser.PlanStep) agent.Task {
	taskCtx := map[string]any{
		"session_id":     cc.SessionID,
		"original_query": cc.OriginalQuery,
	}
	if step.ToolHint != "" {
		taskCtx["tool_hint"] = step.ToolHint
	}
	if prior := priorResults(cc); len(prior) > 0 {
		taskCtx["prior_results"] = prior
	}
	if len(cc.UserInputs) > 0 {
		taskCtx["user_inputs"] = append([]string(nil), cc.UserInputs...)
	}
	return agent.Task{
		ID:        uuid.NewString(),
		Query:     step.Description,
		Type:      cc.TaskType,
		Symbols:   append([]string(nil), cc.Symbols...),
		Context:   taskCtx,
		Priority:  step.Step,
		CreatedAt: time.Now(),
	}
}

// priorResults maps agent name to its latest successful message, for
// feeding later steps.
func priorResults(cc *ConversationContext) map[string]string {
	out := make(map[string]string)
	for _, r := range cc.AgentResults {
		if r.Success && r.Message != "" {
			out[r.AgentName] = r.Message
		}
	}
	return out
}
