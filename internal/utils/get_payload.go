package utils

import (
	"fmt"
	"strconv"
	"strings"
)

func GetStringPayload(payload map[string]any, key string) (string, error) {
	value, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("payload is missing required key: '%s'", key)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("payload key '%s' has an invalid type (expected string)", key)
	}
	return strValue, nil
}

func GetIntPayload(payload map[string]any, key string) (int, error) {
	v, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("payload is missing required key: '%s'", key)
	}
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("payload key '%s' invalid int: %v", key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("payload key '%s' has unsupported type %T", key, v)
	}
}

// OptionalString returns def when the key is absent, empty or not a string.
func OptionalString(payload map[string]any, key, def string) string {
	s, err := GetStringPayload(payload, key)
	if err != nil || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// OptionalInt returns def when the key is absent or not numeric.
func OptionalInt(payload map[string]any, key string, def int) int {
	i, err := GetIntPayload(payload, key)
	if err != nil {
		return def
	}
	return i
}

// GetStringListPayload accepts a JSON array of strings or a comma separated
// string under the key.
func GetStringListPayload(payload map[string]any, key string) ([]string, error) {
	v, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("payload is missing required key: '%s'", key)
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("payload key '%s' must be a list of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("payload key '%s' has unsupported type %T", key, v)
	}
}
