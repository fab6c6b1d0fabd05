package hitl

import (
	"context"
	"errors"
	"time"
)

type QuestionType string

const (
	QuestionInfoNeeded    QuestionType = "infoNeeded"
	QuestionPreference    QuestionType = "preference"
	QuestionConfirmation  QuestionType = "confirmation"
	QuestionSatisfaction  QuestionType = "satisfaction"
	QuestionClarification QuestionType = "clarification"
)

// ParseQuestionType folds unknown labels to infoNeeded.
func ParseQuestionType(raw string) QuestionType {
	switch QuestionType(raw) {
	case QuestionPreference, QuestionConfirmation, QuestionSatisfaction, QuestionClarification:
		return QuestionType(raw)
	default:
		return QuestionInfoNeeded
	}
}

var ErrQuotaExceeded = errors.New("question quota exceeded for this session")

type Question struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Text      string       `json:"text"`
	Type      QuestionType `json:"type"`
	Options   []string     `json:"options,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type Response struct {
	Question     string    `json:"question"`
	UserResponse string    `json:"user_response"`
	RespondedAt  time.Time `json:"responded_at"`
}

type Exchange struct {
	Question Question `json:"question"`
	Response Response `json:"response"`
}

type Stats struct {
	TotalQuestions int                  `json:"total_questions"`
	TotalResponses int                  `json:"total_responses"`
	ByType         map[QuestionType]int `json:"by_type"`
}

// Transport is where questions actually reach a human. The console
// implementation lives in the cli package; NonInteractive is for one-shot
// runs with no human attached.
type Transport interface {
	Interactive() bool
	Prompt(ctx context.Context, q Question) (string, error)
}

type NonInteractive struct{}

func (NonInteractive) Interactive() bool { return false }

func (NonInteractive) Prompt(ctx context.Context, q Question) (string, error) {
	return "", nil
}
