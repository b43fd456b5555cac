package quota

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/lexis/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addUser(t *testing.T, s *store.Store, id int64, counter int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Users().Ensure(ctx, &store.User{ID: id, FirstName: "u"}))
	for range counter {
		_, err := s.Users().IncrementDayCounter(ctx, id)
		require.NoError(t, err)
	}
}

type notices struct {
	sent map[int64][]string
}

func (n *notices) Notify(_ context.Context, userID int64, text string) error {
	if n.sent == nil {
		n.sent = map[int64][]string{}
	}
	n.sent[userID] = append(n.sent[userID], text)
	return nil
}

func TestGateFreeBelowLimit(t *testing.T) {
	s := openStore(t)
	addUser(t, s, 1, 49)
	n := &notices{}
	g := NewGate(s.Users(), n, Config{}, nil)

	d, err := g.Allow(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, d.Granted)
	assert.Equal(t, 50, d.Counter)
	assert.Equal(t, DefaultLimit, d.Limit)
	assert.Empty(t, n.sent)
}

func TestGateFreeAtLimit(t *testing.T) {
	s := openStore(t)
	addUser(t, s, 1, 50)
	n := &notices{}
	g := NewGate(s.Users(), n, Config{}, nil)

	d, err := g.Allow(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonLimitReached, d.Reason)
	assert.Equal(t, 50, d.Counter)
	assert.Equal(t, []string{DefaultMessage}, n.sent[1])

	c, err := s.Users().DayCounter(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 50, c, "denial must not increment")
}

func TestGateAdminBypass(t *testing.T) {
	s := openStore(t)
	addUser(t, s, 7, 80)
	g := NewGate(s.Users(), nil, Config{Admins: map[int64]bool{7: true}}, nil)

	d, err := g.Allow(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, d.Granted)

	c, err := s.Users().DayCounter(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 80, c)
}

func TestGatePaidTierUnlimited(t *testing.T) {
	for _, tier := range []string{store.TierVip, store.TierFreeTrial} {
		t.Run(tier, func(t *testing.T) {
			s := openStore(t)
			ctx := context.Background()
			addUser(t, s, 3, 120)
			require.NoError(t, s.Users().SetSubscription(ctx, store.Subscription{UserID: 3, Tier: tier}))
			g := NewGate(s.Users(), nil, Config{}, nil)

			d, err := g.Allow(ctx, 3)
			require.NoError(t, err)
			assert.True(t, d.Granted)
			assert.Equal(t, 121, d.Counter)
		})
	}
}

func TestGateCustomLimit(t *testing.T) {
	s := openStore(t)
	addUser(t, s, 1, 0)
	g := NewGate(s.Users(), nil, Config{Limit: 2}, nil)
	ctx := context.Background()

	var granted int
	for range 5 {
		d, err := g.Allow(ctx, 1)
		require.NoError(t, err)
		if d.Granted {
			granted++
		}
	}
	assert.Equal(t, 2, granted)
	assert.Equal(t, 2, g.Limit())
}

func TestGateConcurrentRoundsStopAtLimit(t *testing.T) {
	s := openStore(t)
	addUser(t, s, 1, 49)
	n := &notices{}
	var mu sync.Mutex
	g := NewGate(s.Users(), NotifierFunc(func(ctx context.Context, id int64, text string) error {
		mu.Lock()
		defer mu.Unlock()
		return n.Notify(ctx, id, text)
	}), Config{}, nil)

	var granted sync.Map
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			d, err := g.Allow(context.Background(), 1)
			assert.NoError(t, err)
			granted.Store(i, d.Granted)
		})
	}
	wg.Wait()

	count := 0
	granted.Range(func(_, v any) bool {
		if v.(bool) {
			count++
		}
		return true
	})
	assert.Equal(t, 1, count)
	assert.Len(t, n.sent[1], 19)

	c, err := s.Users().DayCounter(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 50, c)
}

func TestGateUnknownUser(t *testing.T) {
	s := openStore(t)
	g := NewGate(s.Users(), nil, Config{}, nil)
	_, err := g.Allow(context.Background(), 404)
	assert.Error(t, err)
}

func TestGateNotifyFailureIsLogged(t *testing.T) {
	s := openStore(t)
	addUser(t, s, 1, 50)
	core, logs := observer.New(zapcore.WarnLevel)
	failing := NotifierFunc(func(context.Context, int64, string) error {
		return fmt.Errorf("blocked by user")
	})
	g := NewGate(s.Users(), failing, Config{}, zap.New(core))

	d, err := g.Allow(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, d.Granted)
	assert.Equal(t, 1, logs.FilterMessage("send daily limit notice").Len())
}

func TestRollover(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	addUser(t, s, 1, 12)
	addUser(t, s, 2, 0)
	day := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)

	n, err := NewRollover(s.Users(), s.Progress(), nil).Run(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[int64]int{1: 12, 2: 0} {
		entries, err := s.Progress().Range(ctx, id, store.Day(day), store.Day(day))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, want, entries[0].Score)

		c, err := s.Users().DayCounter(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, c)
	}

	// A second run on the same day overwrites with the reset counter.
	_, err = NewRollover(s.Users(), s.Progress(), nil).Run(ctx, day)
	require.NoError(t, err)
	entries, err := s.Progress().Range(ctx, 1, store.Day(day), store.Day(day))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].Score)
}

// lateRound grants one more round after the counter was archived and
// before it is deducted.
type lateRound struct {
	store.UserRepo
	done bool
}

func (u *lateRound) DeductDayCounter(ctx context.Context, id int64, n int) error {
	if !u.done {
		u.done = true
		if _, err := u.UserRepo.IncrementDayCounter(ctx, id); err != nil {
			return err
		}
	}
	return u.UserRepo.DeductDayCounter(ctx, id, n)
}

func TestRolloverKeepsRoundsGrantedMeanwhile(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	addUser(t, s, 1, 12)
	day := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)

	_, err := NewRollover(&lateRound{UserRepo: s.Users()}, s.Progress(), nil).Run(ctx, day)
	require.NoError(t, err)

	entries, err := s.Progress().Range(ctx, 1, store.Day(day), store.Day(day))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 12, entries[0].Score)

	c, err := s.Users().DayCounter(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c, "the late round counts toward the next day")
}

func TestHistory(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	addUser(t, s, 1, 4)
	today := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Progress().Upsert(ctx, store.ProgressEntry{UserID: 1, Date: today.AddDate(0, 0, -1), Score: 9}))
	require.NoError(t, s.Progress().Upsert(ctx, store.ProgressEntry{UserID: 1, Date: today.AddDate(0, 0, -3), Score: 5}))
	require.NoError(t, s.Progress().Upsert(ctx, store.ProgressEntry{UserID: 1, Date: today.AddDate(0, 0, -30), Score: 99}))

	h, err := History(ctx, s.Users(), s.Progress(), 1, 7, today)
	require.NoError(t, err)
	require.Len(t, h, 7)

	scores := make([]int, len(h))
	for i, d := range h {
		scores[i] = d.Score
	}
	assert.Equal(t, []int{0, 0, 0, 5, 0, 9, 4}, scores)
	assert.Equal(t, store.Day(today), h[6].Date)
	assert.Equal(t, store.Day(today.AddDate(0, 0, -6)), h[0].Date)

	_, err = History(ctx, s.Users(), s.Progress(), 1, 0, today)
	assert.Error(t, err)
}
