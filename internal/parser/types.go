package parser

import "sort"

// Classification is the oracle's reading of one user query.
type Classification struct {
	Intent                string   `json:"intent"`
	Symbols               []string `json:"symbols"`
	AgentsToDispatch      []string `json:"agents_to_dispatch"`
	OutOfScope            bool     `json:"out_of_scope"`
	NeedMoreInfo          bool     `json:"need_more_info"`
	ClarificationQuestion string   `json:"clarification_question"`
	Reasoning             string   `json:"reasoning"`
}

type PlanStep struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
	Agent       string `json:"agent"`
	ToolHint    string `json:"tool_hint,omitempty"`
}

type Plan struct {
	Steps     []PlanStep `json:"steps"`
	Reasoning string     `json:"reasoning,omitempty"`
}

// Decision is one step of an agent's reasoning loop.
type Decision struct {
	Thought      string         `json:"thought"`
	Action       string         `json:"action"`
	ToolName     string         `json:"tool_name"`
	ToolArgs     map[string]any `json:"tool_args"`
	Question     string         `json:"question"`
	Result       string         `json:"result"`
	TaskComplete bool           `json:"task_complete"`
}

// AskAdvice is the oracle's verdict on whether to interrupt the user.
type AskAdvice struct {
	ShouldAsk    bool   `json:"should_ask"`
	Question     string `json:"question"`
	QuestionType string `json:"question_type"`
}

const (
	ActionUseTool = "useTool"
	ActionAskUser = "askUser"
	ActionFinish  = "finish"
)

// NormalizeSteps sorts steps by their declared number, drops steps with an
// empty description and renumbers 1..n so callers can rely on contiguous
// ordering.
func (p *Plan) NormalizeSteps() {
	kept := p.Steps[:0]
	for _, s := range p.Steps {
		if s.Description != "" {
			kept = append(kept, s)
		}
	}
	p.Steps = kept
	sort.SliceStable(p.Steps, func(i, j int) bool { return p.Steps[i].Step < p.Steps[j].Step })
	for i := range p.Steps {
		p.Steps[i].Step = i + 1
	}
}
