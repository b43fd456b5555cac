package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var phraseFields = []string{
	"id", "category_id", "user_id", "text_phrase", "spaced_phrase",
	"translation", "audio_id", "image_id", "comment", "created_at",
}

type phraseRepo struct {
	db *sql.DB
}

func (r *phraseRepo) Create(ctx context.Context, p *Phrase) error {
	now := time.Now().UTC()
	query, args := builder.Insert("phrases").
		Columns(append(phraseFields[1:], "text_key")...).
		Values(p.CategoryID, p.UserID, p.TextPhrase, p.SpacedPhrase,
			p.Translation, p.AudioID, p.ImageID, p.Comment, now, TextKey(p.TextPhrase)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert phrase: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert phrase: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("phrase id: %w", err)
	}
	p.ID = int(id)
	p.CreatedAt = now
	return nil
}

func (r *phraseRepo) Get(ctx context.Context, id int) (*Phrase, error) {
	query, args := builder.Select(phraseFields...).
		From(builder.Table("phrases")).
		Where(entsql.EQ("id", id)).
		Query()

	p, err := scanPhrase(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get phrase %d: %w", id, err)
	}
	return p, nil
}

func (r *phraseRepo) Update(ctx context.Context, p *Phrase) error {
	query, args := builder.Update("phrases").
		Set("category_id", p.CategoryID).
		Set("text_phrase", p.TextPhrase).
		Set("text_key", TextKey(p.TextPhrase)).
		Set("spaced_phrase", p.SpacedPhrase).
		Set("translation", p.Translation).
		Set("audio_id", p.AudioID).
		Set("image_id", p.ImageID).
		Set("comment", p.Comment).
		Where(entsql.EQ("id", p.ID)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("update phrase %d: %w", p.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("update phrase %d: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *phraseRepo) FindByCategory(ctx context.Context, categoryID int, viewerID int64) ([]Phrase, error) {
	p := builder.Table("phrases")
	c := builder.Table("categories")
	query, args := builder.Select(p.Columns(phraseFields...)...).
		From(p).
		Join(c).On(p.C("category_id"), c.C("id")).
		Where(entsql.And(
			entsql.EQ(p.C("category_id"), categoryID),
			entsql.Or(
				entsql.EQ(c.C("public"), true),
				entsql.EQ(p.C("user_id"), viewerID),
			),
		)).
		OrderBy(p.C("id")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query phrases of category %d: %w", categoryID, err)
	}
	defer rows.Close()

	var out []Phrase
	for rows.Next() {
		ph, err := scanPhrase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan phrase: %w", err)
		}
		out = append(out, *ph)
	}
	return out, rows.Err()
}

func (r *phraseRepo) FindDuplicate(ctx context.Context, userID int64, text string) (*Phrase, error) {
	query, args := builder.Select(phraseFields...).
		From(builder.Table("phrases")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("text_key", TextKey(text)),
		)).
		Limit(1).
		Query()

	p, err := scanPhrase(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate phrase: %w", err)
	}
	return p, nil
}

// TextKey is the case-folded form of a phrase used for duplicate detection.
// SQLite's LOWER only folds ASCII, so folding happens here.
func TextKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhrase(row rowScanner) (*Phrase, error) {
	var p Phrase
	err := row.Scan(&p.ID, &p.CategoryID, &p.UserID, &p.TextPhrase, &p.SpacedPhrase,
		&p.Translation, &p.AudioID, &p.ImageID, &p.Comment, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// isUniqueViolation reports whether err comes from the (user_id, text_key)
// unique index.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
