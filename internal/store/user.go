package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var userFields = []string{"id", "username", "first_name", "last_name", "language", "day_counter", "created_at"}

type userRepo struct {
	db *sql.DB
}

func (r *userRepo) Ensure(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	query, args := builder.Insert("users").
		Columns(userFields...).
		Values(u.ID, u.Username, u.FirstName, u.LastName, u.Language, 0, now).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(s *entsql.UpdateSet) {
				s.SetExcluded("username")
				s.SetExcluded("first_name")
				s.SetExcluded("last_name")
				s.SetExcluded("language")
			}),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, id int64) (*User, error) {
	query, args := builder.Select(userFields...).
		From(builder.Table("users")).
		Where(entsql.EQ("id", id)).
		Query()

	var u User
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Language, &u.DayCounter, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) IDs(ctx context.Context) ([]int64, error) {
	query, args := builder.Select("id").From(builder.Table("users")).OrderBy("id").Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepo) Tier(ctx context.Context, id int64) (string, error) {
	query, args := builder.Select("tier").
		From(builder.Table("subscriptions")).
		Where(entsql.EQ("user_id", id)).
		Query()

	var tier string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&tier)
	if errors.Is(err, sql.ErrNoRows) {
		return TierFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("get tier of user %d: %w", id, err)
	}
	return tier, nil
}

func (r *userRepo) SetSubscription(ctx context.Context, sub Subscription) error {
	var end any
	if !sub.DateEnd.IsZero() {
		end = sub.DateEnd.UTC()
	}
	query, args := builder.Insert("subscriptions").
		Columns("user_id", "tier", "date_end").
		Values(sub.UserID, sub.Tier, end).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.ResolveWithNewValues()).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set subscription of user %d: %w", sub.UserID, err)
	}
	return nil
}

func (r *userRepo) DayCounter(ctx context.Context, id int64) (int, error) {
	query, args := builder.Select("day_counter").
		From(builder.Table("users")).
		Where(entsql.EQ("id", id)).
		Query()

	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get day counter of user %d: %w", id, err)
	}
	return n, nil
}

func (r *userRepo) IncrementDayCounter(ctx context.Context, id int64) (int, error) {
	query, args := builder.Update("users").
		Add("day_counter", 1).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("increment day counter of user %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, ErrNotFound
	}
	return r.DayCounter(ctx, id)
}

func (r *userRepo) IncrementDayCounterBelow(ctx context.Context, id int64, limit int) (int, bool, error) {
	query, args := builder.Update("users").
		Add("day_counter", 1).
		Where(entsql.And(entsql.EQ("id", id), entsql.LT("day_counter", limit))).
		Returning("day_counter").
		Query()

	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		n, err = r.DayCounter(ctx, id)
		return n, false, err
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment day counter of user %d: %w", id, err)
	}
	return n, true, nil
}

func (r *userRepo) DeductDayCounter(ctx context.Context, id int64, n int) error {
	query, args := builder.Update("users").
		Set("day_counter", entsql.Expr("MAX(day_counter - ?, 0)", n)).
		Where(entsql.EQ("id", id)).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deduct day counter of user %d: %w", id, err)
	}
	return nil
}
