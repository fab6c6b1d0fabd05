package memory

import (
	"strings"
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Conversation is one session's scratch state: the running topic, the
// symbols and entities mentioned so far, and every turn in order. Turns
// are retained for the whole process lifetime; callers window what they
// feed into prompts. Persistence belongs to the codebook, not here.
type Conversation struct {
	mu        sync.Mutex
	sessionID string
	topic     string
	entities  []string
	turns     []Turn
	updatedAt time.Time
}

func (c *Conversation) SessionID() string {
	return c.sessionID
}

func (c *Conversation) AddTurn(role, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: role, Text: text, At: time.Now()})
	c.updatedAt = time.Now()
}

// RecentTurns returns up to n of the latest turns, oldest first.
func (c *Conversation) RecentTurns(n int) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || len(c.turns) == 0 {
		return nil
	}
	if n > len(c.turns) {
		n = len(c.turns)
	}
	out := make([]Turn, n)
	copy(out, c.turns[len(c.turns)-n:])
	return out
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func (c *Conversation) SetTopic(topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topic = topic
	c.updatedAt = time.Now()
}

func (c *Conversation) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

// RememberEntities records symbol or entity mentions, keeping first-seen
// order and dropping exact duplicates.
func (c *Conversation) RememberEntities(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		known := false
		for _, e := range c.entities {
			if e == name {
				known = true
				break
			}
		}
		if !known {
			c.entities = append(c.entities, name)
		}
	}
	c.updatedAt = time.Now()
}

func (c *Conversation) Entities() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entities...)
}

func (c *Conversation) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Reset clears the conversation back to a fresh state while keeping the
// session id.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topic = ""
	c.entities = nil
	c.turns = nil
	c.updatedAt = time.Now()
}

// Store hands out per-session conversations, creating them on first use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Conversation
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Conversation)}
}

func (s *Store) Session(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[id]
	if !ok {
		c = &Conversation{sessionID: id}
		s.sessions[id] = c
	}
	return c
}

// Forget drops a session entirely. Used when the caller retires a session
// id for good, as opposed to Reset which keeps it alive but empty.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
