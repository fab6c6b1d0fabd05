package parser

import "strings"

// Every oracle call site decodes with an explicit default so a malformed
// reply can never stop execution. The bool reports whether the reply parsed;
// callers that only care about totality may ignore it.

func DecodeClassification(raw string, def Classification) (Classification, bool) {
	out := def
	if !decodeInto(raw, &out) {
		return def, false
	}
	if strings.TrimSpace(out.Intent) == "" {
		out.Intent = def.Intent
	}
	return out, true
}

func DecodePlan(raw string) (Plan, bool) {
	var out Plan
	if !decodeInto(raw, &out) {
		return Plan{}, false
	}
	out.NormalizeSteps()
	if len(out.Steps) == 0 {
		return Plan{}, false
	}
	return out, true
}

func DecodeDecision(raw string, def Decision) (Decision, bool) {
	out := def
	if !decodeInto(raw, &out) {
		return def, false
	}
	switch out.Action {
	case ActionUseTool, ActionAskUser, ActionFinish:
	default:
		out.Action = def.Action
	}
	return out, true
}

func DecodeAskAdvice(raw string) (AskAdvice, bool) {
	var out AskAdvice
	if !decodeInto(raw, &out) {
		return AskAdvice{}, false
	}
	return out, true
}
