package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup by id matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write would give a user two phrases
	// whose texts differ only in case.
	ErrDuplicate = errors.New("duplicate phrase")
)

// Subscription tier names. Any tier other than TierFree is unlimited.
const (
	TierFree      = "Free"
	TierFreeTrial = "Free trial"
	TierVip       = "Vip"
)

// Phrase is a saved phrase with its enrichment.
type Phrase struct {
	ID           int
	CategoryID   int
	UserID       int64
	TextPhrase   string
	SpacedPhrase string
	Translation  string
	AudioID      string // delivery-channel file id, empty when the phrase has no audio
	ImageID      string
	Comment      string
	CreatedAt    time.Time
}

// Category groups phrases. Public categories are reviewable by every user.
type Category struct {
	ID        int
	UserID    int64
	Name      string
	Public    bool
	CreatedAt time.Time
}

// User is a bot user. DayCounter counts quiz rounds granted today.
type User struct {
	ID         int64
	Username   string
	FirstName  string
	LastName   string
	Language   string
	DayCounter int
	CreatedAt  time.Time
}

// Subscription records the tier a user is on.
type Subscription struct {
	UserID  int64
	Tier    string
	DateEnd time.Time // zero for tiers without an end date
}

// ProgressEntry is one day of archived quiz activity.
type ProgressEntry struct {
	UserID int64
	Date   time.Time // see Day
	Score  int
}

// PhraseRepo persists phrases.
type PhraseRepo interface {
	// Create inserts p and sets its ID and CreatedAt.
	Create(ctx context.Context, p *Phrase) error

	// Get returns the phrase with the given id or ErrNotFound.
	Get(ctx context.Context, id int) (*Phrase, error)

	// Update overwrites the mutable fields of p.
	Update(ctx context.Context, p *Phrase) error

	// FindByCategory returns the phrases of a category visible to viewerID:
	// every phrase when the category is public, otherwise only the viewer's own.
	FindByCategory(ctx context.Context, categoryID int, viewerID int64) ([]Phrase, error)

	// FindDuplicate returns the user's phrase whose text equals text
	// case-insensitively, or nil when there is none.
	FindDuplicate(ctx context.Context, userID int64, text string) (*Phrase, error)
}

// CategoryRepo persists categories.
type CategoryRepo interface {
	Create(ctx context.Context, c *Category) error
	Get(ctx context.Context, id int) (*Category, error)

	// FindByName returns the user's category with the given name, or nil.
	FindByName(ctx context.Context, userID int64, name string) (*Category, error)

	// Reviewable returns the user's own categories that hold at least one
	// phrase, and the public categories of other users that hold at least one.
	Reviewable(ctx context.Context, userID int64) (own, shared []Category, err error)
}

// UserRepo persists users, their subscription tier and the daily counter.
type UserRepo interface {
	// Ensure inserts the user if missing and refreshes the profile fields
	// otherwise. DayCounter is never touched.
	Ensure(ctx context.Context, u *User) error

	Get(ctx context.Context, id int64) (*User, error)

	// IDs lists every user id.
	IDs(ctx context.Context) ([]int64, error)

	// Tier returns the user's subscription tier, TierFree when none is recorded.
	Tier(ctx context.Context, id int64) (string, error)

	SetSubscription(ctx context.Context, sub Subscription) error

	DayCounter(ctx context.Context, id int64) (int, error)

	// IncrementDayCounter adds one to the counter and returns the new value.
	IncrementDayCounter(ctx context.Context, id int64) (int, error)

	// IncrementDayCounterBelow adds one to the counter only while it is
	// below limit, in a single statement. It returns the counter after the
	// call and whether it was incremented.
	IncrementDayCounterBelow(ctx context.Context, id int64, limit int) (int, bool, error)

	// DeductDayCounter subtracts n from the counter, stopping at zero.
	DeductDayCounter(ctx context.Context, id int64, n int) error
}

// ProgressRepo archives daily counters.
type ProgressRepo interface {
	// Upsert records score for (userID, day), replacing an earlier value.
	Upsert(ctx context.Context, e ProgressEntry) error

	// Range returns entries with from <= date <= to, oldest first.
	Range(ctx context.Context, userID int64, from, to time.Time) ([]ProgressEntry, error)
}

// QueryOpts configures event queries.
type QueryOpts struct {
	Limit int // max results (0 = unlimited)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo records and reads back LLM requests.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)
}

// Backend is a complete persistence backend.
type Backend interface {
	Phrases() PhraseRepo
	Categories() CategoryRepo
	Users() UserRepo
	Progress() ProgressRepo
	Events() EventRepo
	Ping(ctx context.Context) error
	Close() error
}

// Day returns the calendar date of t (in t's location) as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
