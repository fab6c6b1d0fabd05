package parser

import (
	"reflect"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected map[string]any
	}{
		{
			name:     "Plain JSON object",
			raw:      `{"intent": "news"}`,
			expected: map[string]any{"intent": "news"},
		},
		{
			name:     "Fenced JSON object",
			raw:      "```json\n{\"intent\": \"technical\"}\n```",
			expected: map[string]any{"intent": "technical"},
		},
		{
			name:     "Fence without language tag",
			raw:      "```\n{\"ok\": true}\n```",
			expected: map[string]any{"ok": true},
		},
		{
			name:     "JSON wrapped in prose",
			raw:      "Sure, here is the result: {\"symbols\": [\"BTC\"]} hope that helps!",
			expected: map[string]any{"symbols": []any{"BTC"}},
		},
		{
			name:     "No JSON at all",
			raw:      "I am sorry, I cannot do that.",
			expected: map[string]any{},
		},
		{
			name:     "Empty input",
			raw:      "",
			expected: map[string]any{},
		},
		{
			name:     "Braces but unparsable",
			raw:      "{this is not json}",
			expected: map[string]any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractJSONObject(tc.raw)
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("mismatched object: \n got:  %v\n want: %v", got, tc.expected)
			}
		})
	}
}

func TestDecodeClassificationDefaults(t *testing.T) {
	def := Classification{Intent: "unknown", Symbols: []string{}}

	testCases := []struct {
		name       string
		raw        string
		expectOK   bool
		wantIntent string
	}{
		{"Valid reply", `{"intent": "technical", "symbols": ["BTC"]}`, true, "technical"},
		{"Prose wrapped", `The classification is {"intent": "news"} as requested.`, true, "news"},
		{"Garbage falls back", `no json here`, false, "unknown"},
		{"Empty intent keeps default", `{"out_of_scope": true}`, true, "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DecodeClassification(tc.raw, def)
			if ok != tc.expectOK {
				t.Errorf("Expected ok=%v, but got ok=%v", tc.expectOK, ok)
			}
			if got.Intent != tc.wantIntent {
				t.Errorf("Expected intent=%q, but got %q", tc.wantIntent, got.Intent)
			}
		})
	}
}

func TestDecodePlanNormalizes(t *testing.T) {
	raw := `{"steps": [
		{"step": 7, "description": "read headlines", "agent": "news"},
		{"step": 2, "description": "", "agent": "chat"},
		{"step": 3, "description": "compute RSI", "agent": "technical"}
	], "reasoning": "two useful steps"}`

	plan, ok := DecodePlan(raw)
	if !ok {
		t.Fatalf("expected plan to decode")
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps after normalization, got %d", len(plan.Steps))
	}
	if plan.Steps[0].Agent != "technical" || plan.Steps[0].Step != 1 {
		t.Errorf("unexpected first step: %+v", plan.Steps[0])
	}
	if plan.Steps[1].Agent != "news" || plan.Steps[1].Step != 2 {
		t.Errorf("unexpected second step: %+v", plan.Steps[1])
	}
}

func TestDecodePlanRejectsEmpty(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"No steps field", `{"reasoning": "nothing to do"}`},
		{"Empty steps", `{"steps": []}`},
		{"Not JSON", `cannot help`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := DecodePlan(tc.raw); ok {
				t.Errorf("expected decode to fail for %q", tc.raw)
			}
		})
	}
}

func TestDecodeDecision(t *testing.T) {
	def := Decision{Action: ActionFinish, Result: "could not complete task"}

	testCases := []struct {
		name       string
		raw        string
		wantAction string
		wantResult string
	}{
		{
			name:       "Tool use",
			raw:        `{"thought": "need a quote", "action": "useTool", "tool_name": "get_price", "tool_args": {"symbol": "BTC"}}`,
			wantAction: ActionUseTool,
			wantResult: "could not complete task",
		},
		{
			name:       "Finish with result",
			raw:        `{"action": "finish", "result": "BTC looks strong"}`,
			wantAction: ActionFinish,
			wantResult: "BTC looks strong",
		},
		{
			name:       "Unknown action folds to default",
			raw:        `{"action": "ponder"}`,
			wantAction: ActionFinish,
			wantResult: "could not complete task",
		},
		{
			name:       "Unparsable reply keeps default",
			raw:        "I will now use a tool.",
			wantAction: ActionFinish,
			wantResult: "could not complete task",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := DecodeDecision(tc.raw, def)
			if got.Action != tc.wantAction {
				t.Errorf("Expected action=%q, but got %q", tc.wantAction, got.Action)
			}
			if got.Result != tc.wantResult {
				t.Errorf("Expected result=%q, but got %q", tc.wantResult, got.Result)
			}
		})
	}
}

func TestDecodeAskAdvice(t *testing.T) {
	adv, ok := DecodeAskAdvice(`{"should_ask": true, "question": "Which coin?", "question_type": "clarification"}`)
	if !ok || !adv.ShouldAsk || adv.Question != "Which coin?" {
		t.Errorf("unexpected advice: %+v ok=%v", adv, ok)
	}
	if _, ok := DecodeAskAdvice("nope"); ok {
		t.Errorf("expected decode to fail on non-JSON")
	}
}
