package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var categoryFields = []string{"id", "user_id", "name", "public", "created_at"}

type categoryRepo struct {
	db *sql.DB
}

func (r *categoryRepo) Create(ctx context.Context, c *Category) error {
	now := time.Now().UTC()
	query, args := builder.Insert("categories").
		Columns(categoryFields[1:]...).
		Values(c.UserID, c.Name, c.Public, now).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	c.ID = int(id)
	c.CreatedAt = now
	return nil
}

func (r *categoryRepo) Get(ctx context.Context, id int) (*Category, error) {
	query, args := builder.Select(categoryFields...).
		From(builder.Table("categories")).
		Where(entsql.EQ("id", id)).
		Query()

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *categoryRepo) FindByName(ctx context.Context, userID int64, name string) (*Category, error) {
	query, args := builder.Select(categoryFields...).
		From(builder.Table("categories")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("name", name))).
		Limit(1).
		Query()

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}
	return c, nil
}

func (r *categoryRepo) Reviewable(ctx context.Context, userID int64) ([]Category, []Category, error) {
	own, err := r.withPhrases(ctx, entsql.EQ("user_id", userID))
	if err != nil {
		return nil, nil, err
	}
	shared, err := r.withPhrases(ctx, entsql.And(
		entsql.EQ("public", true),
		entsql.NEQ("user_id", userID),
	))
	if err != nil {
		return nil, nil, err
	}
	return own, shared, nil
}

// withPhrases lists categories matching pred that hold at least one phrase.
func (r *categoryRepo) withPhrases(ctx context.Context, pred *entsql.Predicate) ([]Category, error) {
	c := builder.Table("categories")
	p := builder.Table("phrases")
	query, args := builder.Select(c.Columns(categoryFields...)...).
		From(c).
		Where(entsql.And(
			pred,
			entsql.In(c.C("id"), builder.Select(p.C("category_id")).From(p)),
		)).
		OrderBy(c.C("name")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, *cat)
	}
	return out, rows.Err()
}

func scanCategory(row rowScanner) (*Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Public, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
