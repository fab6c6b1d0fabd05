package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
)

// Registry holds every registered tool and a bounded ring of usage records.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	tools    map[string]Tool
	order    []string
	usage    []UsageRecord
	usageCap int
	timeout  time.Duration
}

func NewRegistry(timeout time.Duration, usageCap int) *Registry {
	if usageCap <= 0 {
		usageCap = 1000
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Registry{
		tools:    make(map[string]Tool),
		usageCap: usageCap,
		timeout:  timeout,
	}
}

func (r *Registry) Register(t Tool) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Run == nil {
		return fmt.Errorf("tool '%s' has no run function", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool '%s' is already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	return t, ok
}

// ForDomain returns the tools visible to an agent: its own domain plus the
// general domain, in registration order.
func (r *Registry) ForDomain(domain string) []Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Tool
	for _, name := range r.order {
		t := r.tools[name]
		if t.Domain == domain || t.Domain == DomainGeneral {
			out = append(out, t)
		}
	}
	return out
}

// CatalogueForDomain renders the tool list the way think prompts expect it:
// one block per tool with its parameters and whether each is required.
func (r *Registry) CatalogueForDomain(domain string) string {
	visible := r.ForDomain(domain)
	if len(visible) == 0 {
		return "(no tools available)"
	}
	var sb strings.Builder
	for _, t := range visible {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", t.Name, t.Description))
		for _, p := range t.Params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			sb.WriteString(fmt.Sprintf("    %s (%s, %s): %s\n", p.Name, p.Type, req, p.Description))
		}
	}
	return sb.String()
}

// Execute runs a named tool on behalf of an agent. Unknown tools, missing
// required parameters, timeouts and panics all come back as a failed
// ToolResult rather than an error, so the caller can fold them into its
// observation log. Every call is recorded.
func (r *Registry) Execute(ctx context.Context, name, agent string, args map[string]any) ToolResult {
	t, ok := r.Get(name)
	if !ok {
		res := ToolResult{Success: false, Error: fmt.Sprintf("unknown tool '%s'", name)}
		r.record(name, agent, false, 0)
		return res
	}
	if args == nil {
		args = map[string]any{}
	}
	for _, p := range t.Params {
		if !p.Required {
			continue
		}
		if _, present := args[p.Name]; !present {
			res := ToolResult{Success: false, Error: fmt.Sprintf("tool '%s' missing required parameter '%s'", name, p.Name)}
			r.record(name, agent, false, 0)
			return res
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	res := runTool(runCtx, t, args)
	elapsed := time.Since(start)

	r.record(name, agent, res.Success, elapsed)
	if res.Success {
		logger.Log.Debugw("Tool finished", "tool", name, "agent", agent, "latency", elapsed)
	} else {
		logger.Log.Warnw("Tool failed", "tool", name, "agent", agent, "error", res.Error)
	}
	return res
}

func runTool(ctx context.Context, t Tool, args map[string]any) (res ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = ToolResult{Success: false, Error: fmt.Sprintf("tool '%s' panicked: %v", t.Name, rec)}
		}
	}()
	data, err := t.Run(ctx, args)
	if err != nil {
		return ToolResult{Success: false, Error: err.Error()}
	}
	return ToolResult{Success: true, Data: data}
}

func (r *Registry) record(tool, agent string, success bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage = append(r.usage, UsageRecord{
		Tool:      tool,
		Agent:     agent,
		Success:   success,
		Latency:   latency,
		Timestamp: time.Now(),
	})
	for len(r.usage) > r.usageCap {
		r.usage = r.usage[1:]
	}
}

// Usage returns a copy of the retained usage records, oldest first.
func (r *Registry) Usage() []UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UsageRecord, len(r.usage))
	copy(out, r.usage)
	return out
}

// UsageSummary aggregates the retained records per tool, sorted by call
// count descending then name.
func (r *Registry) UsageSummary() []UsageStat {
	records := r.Usage()
	byTool := make(map[string]*UsageStat)
	totals := make(map[string]time.Duration)
	for _, rec := range records {
		st, ok := byTool[rec.Tool]
		if !ok {
			st = &UsageStat{Tool: rec.Tool}
			byTool[rec.Tool] = st
		}
		st.Calls++
		if !rec.Success {
			st.Failures++
		}
		totals[rec.Tool] += rec.Latency
	}
	out := make([]UsageStat, 0, len(byTool))
	for name, st := range byTool {
		if st.Calls > 0 {
			st.AvgLatencyMs = totals[name].Milliseconds() / int64(st.Calls)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Tool < out[j].Tool
	})
	return out
}
