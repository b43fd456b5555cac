// Package quota limits how many review rounds a user may start per day.
package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/store"
)

// DefaultLimit is the daily round ceiling of the free tier.
const DefaultLimit = 50

// DefaultMessage is sent to a user who reached the ceiling.
const DefaultMessage = "You have reached today's practice limit. Come back tomorrow!"

// Accounts is the part of the user store the gate reads and writes.
type Accounts interface {
	Tier(ctx context.Context, userID int64) (string, error)
	IncrementDayCounter(ctx context.Context, userID int64) (int, error)
	IncrementDayCounterBelow(ctx context.Context, userID int64, limit int) (int, bool, error)
}

// Notifier delivers a message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, userID int64, text string) error

func (f NotifierFunc) Notify(ctx context.Context, userID int64, text string) error {
	return f(ctx, userID, text)
}

// Denial reasons.
const (
	ReasonLimitReached = "daily limit reached"
)

// Decision is the outcome of a quota check.
type Decision struct {
	Granted bool
	Reason  string // set when denied
	Counter int    // the day counter after the check
	Limit   int
}

// Config configures a Gate.
type Config struct {
	Limit   int
	Admins  map[int64]bool
	Message string
}

// Gate grants review rounds. Admins and users on any tier other than
// store.TierFree are always granted; free users are granted while their
// day counter is below the limit. Every grant except an admin's
// increments the counter. The gate never resets counters.
type Gate struct {
	accounts Accounts
	notifier Notifier
	limit    int
	admins   map[int64]bool
	message  string
	logger   *zap.Logger
}

// NewGate builds a Gate. notifier may be nil.
func NewGate(accounts Accounts, notifier Notifier, cfg Config, logger *zap.Logger) *Gate {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		accounts: accounts,
		notifier: notifier,
		limit:    cfg.Limit,
		admins:   cfg.Admins,
		message:  cfg.Message,
		logger:   logger,
	}
}

// Limit is the free tier ceiling.
func (g *Gate) Limit() int { return g.limit }

// Allow decides whether userID may start another round, incrementing the
// day counter on grant. A denied user is notified.
func (g *Gate) Allow(ctx context.Context, userID int64) (Decision, error) {
	if g.admins[userID] {
		return Decision{Granted: true, Limit: g.limit}, nil
	}

	tier, err := g.accounts.Tier(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("quota: tier of user %d: %w", userID, err)
	}

	if tier == store.TierFree {
		// Check and increment in one statement so concurrent rounds
		// cannot overshoot the limit.
		n, ok, err := g.accounts.IncrementDayCounterBelow(ctx, userID, g.limit)
		if err != nil {
			return Decision{}, fmt.Errorf("quota: increment counter of user %d: %w", userID, err)
		}
		if !ok {
			g.notify(ctx, userID)
			return Decision{Reason: ReasonLimitReached, Counter: n, Limit: g.limit}, nil
		}
		return Decision{Granted: true, Counter: n, Limit: g.limit}, nil
	}

	n, err := g.accounts.IncrementDayCounter(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("quota: increment counter of user %d: %w", userID, err)
	}
	return Decision{Granted: true, Counter: n, Limit: g.limit}, nil
}

func (g *Gate) notify(ctx context.Context, userID int64) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.Notify(ctx, userID, g.message); err != nil {
		g.logger.Warn("send daily limit notice", zap.Int64("user_id", userID), zap.Error(err))
	}
}
