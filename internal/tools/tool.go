package tools

import (
	"context"
	"time"
)

// DomainGeneral tools are visible to every agent, unioned with the agent's
// own domain.
const DomainGeneral = "general"

type ParamSpec struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

type Tool struct {
	Name        string
	Description string
	Domain      string
	Params      []ParamSpec
	Run         func(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ToolResult is the only shape callers ever see. Failures are data, not
// errors: they go into agent observation logs as context.
type ToolResult struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type UsageRecord struct {
	Tool      string        `json:"tool"`
	Agent     string        `json:"agent"`
	Success   bool          `json:"success"`
	Latency   time.Duration `json:"latency"`
	Timestamp time.Time     `json:"timestamp"`
}

type UsageStat struct {
	Tool         string `json:"tool"`
	Calls        int    `json:"calls"`
	Failures     int    `json:"failures"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}
