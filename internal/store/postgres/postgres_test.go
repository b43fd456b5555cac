package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lexis/internal/store"
)

// openTestStore connects to LEXIS_TEST_POSTGRES_DSN and truncates every table.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LEXIS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEXIS_TEST_POSTGRES_DSN not set")
	}
	s, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.db.Exec(
		"TRUNCATE users, subscriptions, categories, phrases, user_progress, llm_request_events RESTART IDENTITY CASCADE").Error)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresPhrases(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cat := &store.Category{UserID: 1, Name: "Greetings"}
	require.NoError(t, s.Categories().Create(ctx, cat))
	p := &store.Phrase{CategoryID: cat.ID, UserID: 1, TextPhrase: "hello", Translation: "привет"}
	require.NoError(t, s.Phrases().Create(ctx, p))
	assert.NotZero(t, p.ID)

	dup, err := s.Phrases().FindDuplicate(ctx, 1, "Hello")
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, p.ID, dup.ID)

	err = s.Phrases().Create(ctx, &store.Phrase{CategoryID: cat.ID, UserID: 1, TextPhrase: "Hello"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	visible, err := s.Phrases().FindByCategory(ctx, cat.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, visible)

	own, shared, err := s.Categories().Reviewable(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, own, 1)
	assert.Empty(t, shared)

	_, err = s.Phrases().Get(ctx, p.ID+1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgresDayCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	users := s.Users()

	require.NoError(t, users.Ensure(ctx, &store.User{ID: 10}))
	n, err := users.IncrementDayCounter(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, ok, err := users.IncrementDayCounterBelow(ctx, 10, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, n)

	require.NoError(t, users.DeductDayCounter(ctx, 10, 3))
	n, err = users.DayCounter(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	tier, err := users.Tier(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, store.TierFree, tier)
}

func TestPostgresProgress(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Progress().Upsert(ctx, store.ProgressEntry{UserID: 1, Date: day, Score: 3}))
	require.NoError(t, s.Progress().Upsert(ctx, store.ProgressEntry{UserID: 1, Date: day, Score: 8}))

	got, err := s.Progress().Range(ctx, 1, day, day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].Score)
}
