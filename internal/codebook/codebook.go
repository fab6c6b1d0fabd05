package codebook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/fsnotify/fsnotify"

	"github.com/aaaa47080/stock-agent-sub003/internal/parser"
)

const DefaultThreshold = 0.6

// Entry is one learned query → plan association. Entries are keyed by
// exact query text for updates and matched fuzzily for reuse.
type Entry struct {
	Query      string      `json:"query"`
	Plan       parser.Plan `json:"plan"`
	Reasoning  string      `json:"reasoning,omitempty"`
	Intent     string      `json:"intent,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	UsageCount int         `json:"usage_count"`
}

type fileFormat struct {
	Entries []Entry `json:"entries"`
}

// Store is the process-wide plan cache backed by one flat JSON file. The
// whole document is rewritten on every AddEntry, which is fine at the
// hundreds-of-entries scale this runs at.
type Store struct {
	mu            sync.Mutex
	path          string
	threshold     float64
	entries       []Entry
	pendingWrites int

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads the codebook at path. A missing file is an empty store; an
// unparseable file is an error so a corrupt cache never silently vanishes
// on the next save.
func Open(path string, threshold float64) (*Store, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	s := &Store{path: path, threshold: threshold}

	entries, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	s.entries = entries
	return s, nil
}

func loadFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read codebook: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	var wrapped fileFormat
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return sanitize(wrapped.Entries), nil
	}
	var bare []Entry
	if err := json.Unmarshal(raw, &bare); err == nil {
		return sanitize(bare), nil
	}
	return nil, fmt.Errorf("parse codebook %s: not a JSON entry list", path)
}

func sanitize(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Query) == "" {
			continue
		}
		if e.UsageCount < 1 {
			e.UsageCount = 1
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) Threshold() float64 {
	return s.threshold
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a snapshot copy, in stored order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Similarity is a normalized edit-distance ratio over the case-folded,
// trimmed inputs: 1 - distance/(len(a)+len(b)) in runes. Identical strings
// score 1, an empty side scores 0. Dividing by the combined length keeps
// short queries that differ only in a symbol above the usual threshold.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	return 1 - float64(d)/float64(total)
}

// FindSimilar returns the stored entry most similar to query, or nil when
// nothing reaches the threshold. When intentFilter is non-empty, entries
// tagged with a different intent are skipped; untagged entries stay
// eligible. Ties keep the first entry in stored order. The returned entry
// is a copy.
func (s *Store) FindSimilar(query, intentFilter string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := -1.0
	bestIdx := -1
	for i, e := range s.entries {
		if intentFilter != "" && e.Intent != "" && e.Intent != intentFilter {
			continue
		}
		if sim := Similarity(query, e.Query); sim > best {
			best = sim
			bestIdx = i
		}
	}
	if bestIdx < 0 || best < s.threshold {
		return nil
	}

	cp := s.entries[bestIdx]
	cp.Plan.Steps = append([]parser.PlanStep(nil), cp.Plan.Steps...)
	return &cp
}

// AddEntry learns a plan. An exact query match updates the existing entry
// in place and bumps its usage count; anything else appends a fresh entry.
// The file is rewritten in full either way.
func (s *Store) AddEntry(query string, plan parser.Plan, reasoning, intent string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("codebook entry query cannot be empty")
	}
	if len(plan.Steps) == 0 {
		return fmt.Errorf("codebook entry plan cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := false
	for i := range s.entries {
		if s.entries[i].Query == query {
			s.entries[i].Plan = plan
			s.entries[i].Reasoning = reasoning
			s.entries[i].Intent = intent
			s.entries[i].Timestamp = time.Now()
			s.entries[i].UsageCount++
			updated = true
			break
		}
	}
	if !updated {
		s.entries = append(s.entries, Entry{
			Query:      query,
			Plan:       plan,
			Reasoning:  reasoning,
			Intent:     intent,
			Timestamp:  time.Now(),
			UsageCount: 1,
		})
	}
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	doc := fileFormat{Entries: s.entries}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode codebook: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create codebook dir: %w", err)
		}
	}
	s.pendingWrites++
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		s.pendingWrites--
		return fmt.Errorf("write codebook: %w", err)
	}
	return nil
}

func (s *Store) reload() error {
	entries, err := loadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}
