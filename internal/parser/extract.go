package parser

import (
	"encoding/json"
	"strings"
)

// Oracle replies often wrap the JSON object in prose or markdown fences.
// candidates returns the texts worth attempting to parse, in order: the raw
// reply, the reply with code fences stripped, and the substring between the
// first '{' and the last '}'.
func candidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	out := []string{trimmed}

	if fenced := stripFences(trimmed); fenced != trimmed {
		out = append(out, fenced)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if sub := trimmed[start : end+1]; sub != trimmed {
			out = append(out, sub)
		}
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject pulls the first parsable JSON object out of an oracle
// reply. It never fails: when nothing parses it returns an empty map.
func ExtractJSONObject(raw string) map[string]any {
	for _, c := range candidates(raw) {
		var m map[string]any
		if err := json.Unmarshal([]byte(c), &m); err == nil && m != nil {
			return m
		}
	}
	return map[string]any{}
}

// decodeInto unmarshals the first candidate that is valid JSON into v.
// The validity pre-check keeps failed attempts from half-filling v.
func decodeInto(raw string, v any) bool {
	for _, c := range candidates(raw) {
		if !json.Valid([]byte(c)) {
			continue
		}
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return true
		}
	}
	return false
}
