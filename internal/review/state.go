// Package review runs gap-fill review rounds over a category's phrases.
package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/lexis/internal/cloze"
)

// State is the phase of a review session.
type State int

const (
	NoSession            State = iota // no active round
	AwaitingFirstAnswer               // question shown, no answer yet
	AwaitingSecondAnswer              // one wrong answer given
	RoundAnswered                     // round over, waiting for next or exit
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no_session"
	case AwaitingFirstAnswer:
		return "awaiting_first_answer"
	case AwaitingSecondAnswer:
		return "awaiting_second_answer"
	case RoundAnswered:
		return "round_answered"
	default:
		return "unknown"
	}
}

// Key identifies the conversation a session belongs to.
type Key struct {
	UserID int64
	ChatID int64
}

// Question is the phrase asked in one round. It does not change once the
// round has started.
type Question struct {
	PhraseID    int
	Text        string // the expected answer
	Spaced      string
	Cloze       cloze.Cloze
	Translation string
	AudioID     string
	ImageID     string
}

// Prompt is the gapped rendering shown to the user.
func (q Question) Prompt() string { return q.Cloze.Text }

// Session is a snapshot of a conversation's review state.
type Session struct {
	ID           uuid.UUID
	Key          Key
	CategoryID   int
	CategoryName string
	State        State

	// Question is valid in every state but NoSession.
	Question Question

	// Attempts counts wrong answers in the current round.
	Attempts int

	// FirstOpen is true only while the first round of the session is
	// rendered for the first time.
	FirstOpen bool

	// Round numbers the rounds of the session from 1.
	Round     int
	StartedAt time.Time
}

// Active reports whether the session is mid-review.
func (s Session) Active() bool { return s.State != NoSession }

// Verdict is the outcome of one submitted answer.
type Verdict struct {
	Correct bool
	State   State

	// Revealed holds the expected answer once the round ends after a
	// wrong first answer.
	Revealed string

	Session Session
}
