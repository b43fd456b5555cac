package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/store"
)

// Rollover archives every user's day counter as progress for a day and
// deducts the archived rounds from the counter. Rounds granted while the
// rollover runs stay on the counter for the next day. It is run once a
// day by an external scheduler.
type Rollover struct {
	users    store.UserRepo
	progress store.ProgressRepo
	logger   *zap.Logger
}

func NewRollover(users store.UserRepo, progress store.ProgressRepo, logger *zap.Logger) *Rollover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rollover{users: users, progress: progress, logger: logger}
}

// Run closes day for every user. A failure for one user does not stop the
// others; the failures are returned joined. It returns the number of
// users rolled over.
func (r *Rollover) Run(ctx context.Context, day time.Time) (int, error) {
	ids, err := r.users.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("rollover: %w", err)
	}

	var errs []error
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.rollUser(ctx, id, day); err != nil {
			r.logger.Error("roll over day counter", zap.Int64("user_id", id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		done++
	}

	r.logger.Info("daily rollover finished",
		zap.String("day", store.Day(day).Format(time.DateOnly)),
		zap.Int("users", done),
		zap.Int("failed", len(errs)))
	return done, errors.Join(errs...)
}

func (r *Rollover) rollUser(ctx context.Context, id int64, day time.Time) error {
	n, err := r.users.DayCounter(ctx, id)
	if err != nil {
		return fmt.Errorf("user %d: %w", id, err)
	}
	if err := r.progress.Upsert(ctx, store.ProgressEntry{UserID: id, Date: day, Score: n}); err != nil {
		return fmt.Errorf("user %d: %w", id, err)
	}
	if err := r.users.DeductDayCounter(ctx, id, n); err != nil {
		return fmt.Errorf("user %d: %w", id, err)
	}
	return nil
}
