package metrics

import "time"

type StepMetrics struct {
	Step       int       `json:"step"`
	Agent      string    `json:"agent"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type SessionMetrics struct {
	SessionID   string        `json:"session_id"`
	Query       string        `json:"query"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	DurationMs  int64         `json:"duration_ms"`
	Succeeded   bool          `json:"succeeded"`
	OracleCalls int           `json:"oracle_calls"`
	Steps       []StepMetrics `json:"steps"`
}

// Compute derived fields for a step.
func (s *StepMetrics) Finalize() {
	s.DurationMs = s.End.Sub(s.Start).Milliseconds()
}

// Compute derived fields for a session.
func (m *SessionMetrics) Finalize() {
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
}
