package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const dateLayout = "2006-01-02"

type progressRepo struct {
	db *sql.DB
}

func (r *progressRepo) Upsert(ctx context.Context, e ProgressEntry) error {
	query, args := builder.Insert("user_progress").
		Columns("user_id", "date", "score").
		Values(e.UserID, Day(e.Date).Format(dateLayout), e.Score).
		OnConflict(
			entsql.ConflictColumns("user_id", "date"),
			entsql.ResolveWith(func(s *entsql.UpdateSet) {
				s.SetExcluded("score")
			}),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert progress of user %d: %w", e.UserID, err)
	}
	return nil
}

func (r *progressRepo) Range(ctx context.Context, userID int64, from, to time.Time) ([]ProgressEntry, error) {
	query, args := builder.Select("date", "score").
		From(builder.Table("user_progress")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.GTE("date", Day(from).Format(dateLayout)),
			entsql.LTE("date", Day(to).Format(dateLayout)),
		)).
		OrderBy("date").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress of user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []ProgressEntry
	for rows.Next() {
		var (
			date  string
			score int
		)
		if err := rows.Scan(&date, &score); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse progress date %q: %w", date, err)
		}
		out = append(out, ProgressEntry{UserID: userID, Date: d, Score: score})
	}
	return out, rows.Err()
}
