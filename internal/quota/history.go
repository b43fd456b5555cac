package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/lexis/internal/store"
)

// DayScore is the number of rounds played on one day.
type DayScore struct {
	Date  time.Time
	Score int
}

// History returns one entry per day for the days before today, oldest
// first, with zeros for days without archived progress, followed by today
// taken from the live counter.
func History(ctx context.Context, users store.UserRepo, progress store.ProgressRepo, userID int64, days int, today time.Time) ([]DayScore, error) {
	if days < 1 {
		return nil, fmt.Errorf("history: days must be positive, got %d", days)
	}

	end := store.Day(today)
	start := end.AddDate(0, 0, -(days - 1))

	entries, err := progress.Range(ctx, userID, start, end.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	byDay := make(map[time.Time]int, len(entries))
	for _, e := range entries {
		byDay[store.Day(e.Date)] = e.Score
	}

	current, err := users.DayCounter(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	out := make([]DayScore, 0, days)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, DayScore{Date: d, Score: byDay[d]})
	}
	out = append(out, DayScore{Date: end, Score: current})
	return out, nil
}
