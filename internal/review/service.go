package review

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/cloze"
	"github.com/abhisek/lexis/internal/quota"
	"github.com/abhisek/lexis/internal/store"
)

// Phrases lists the phrases of a category visible to a viewer.
type Phrases interface {
	FindByCategory(ctx context.Context, categoryID int, viewerID int64) ([]store.Phrase, error)
}

// Categories looks up categories by id.
type Categories interface {
	Get(ctx context.Context, id int) (*store.Category, error)
}

// Gate decides whether a user may play another round.
type Gate interface {
	Allow(ctx context.Context, userID int64) (quota.Decision, error)
}

// Idle conversations are forgotten after IdleTimeout by a sweeper running
// every SweepInterval.
const (
	SweepInterval = time.Hour
	IdleTimeout   = 24 * time.Hour
)

// Config configures a Service.
type Config struct {
	// Location selects how gapped tokens are joined.
	Location string

	// Rand drives question choice and masking. Nil seeds from the runtime.
	Rand rand.Source

	Logger *zap.Logger
	Now    func() time.Time
}

// Service drives review sessions. Operations on one conversation are
// serialized; different conversations proceed independently.
type Service struct {
	phrases    Phrases
	categories Categories
	gate       Gate
	gaps       *cloze.Generator
	sessions   *registry
	logger     *zap.Logger
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(phrases Phrases, categories Categories, gate Gate, cfg Config) *Service {
	if cfg.Rand == nil {
		cfg.Rand = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	rng := rand.New(cfg.Rand)
	return &Service{
		phrases:    phrases,
		categories: categories,
		gate:       gate,
		gaps:       cloze.New(cfg.Location, rand.NewPCG(rng.Uint64(), rng.Uint64())),
		sessions:   newRegistry(),
		logger:     cfg.Logger,
		now:        cfg.Now,
		rng:        rng,
	}
}

// Start opens a session on categoryID and asks its first question,
// replacing any session the conversation already had. A category without
// visible phrases fails with ErrNoContent before any quota is spent.
func (s *Service) Start(ctx context.Context, key Key, categoryID int) (Session, error) {
	sl := s.sessions.acquire(key)
	defer s.release(sl)

	cat, err := s.categories.Get(ctx, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: category %d does not exist", ErrNoContent, categoryID)
	}
	if err != nil {
		return Session{}, fmt.Errorf("review: start: %w", err)
	}
	if !cat.Public && cat.UserID != key.UserID {
		return Session{}, fmt.Errorf("%w: category %d is private", ErrNoContent, categoryID)
	}

	q, err := s.draw(ctx, key, categoryID, sl.lastPhrase)
	if err != nil {
		return Session{}, err
	}
	if err := s.allow(ctx, key); err != nil {
		return Session{}, err
	}

	sl.session = Session{
		ID:           uuid.New(),
		Key:          key,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		State:        AwaitingFirstAnswer,
		Question:     q,
		FirstOpen:    true,
		Round:        1,
		StartedAt:    s.now(),
	}
	sl.lastPhrase = q.PhraseID

	s.logger.Info("review started",
		zap.String("session_id", sl.session.ID.String()),
		zap.Int64("user_id", key.UserID),
		zap.Int("category_id", cat.ID),
		zap.Int("phrase_id", q.PhraseID))
	return sl.session, nil
}

// Submit checks answer against the current question. A wrong first answer
// leaves one more attempt; the second answer always ends the round and
// reveals the expected text.
func (s *Service) Submit(ctx context.Context, key Key, answer string) (Verdict, error) {
	sl := s.sessions.acquire(key)
	defer s.release(sl)

	sess := &sl.session
	correct := CheckAnswer(answer, sess.Question.Text)
	v := Verdict{Correct: correct}

	switch sess.State {
	case AwaitingFirstAnswer:
		if correct {
			sess.State = RoundAnswered
		} else {
			sess.Attempts++
			sess.State = AwaitingSecondAnswer
		}
	case AwaitingSecondAnswer:
		if !correct {
			sess.Attempts++
		}
		sess.State = RoundAnswered
		v.Revealed = sess.Question.Text
	default:
		return Verdict{}, invalid("submit", sess.State)
	}

	s.logger.Debug("answer checked",
		zap.String("session_id", sess.ID.String()),
		zap.Bool("correct", correct),
		zap.Stringer("state", sess.State))

	v.State = sess.State
	v.Session = *sess
	return v, nil
}

// Advance asks the next question of the session's category. It consumes
// quota like Start. On failure the session stays in RoundAnswered.
func (s *Service) Advance(ctx context.Context, key Key) (Session, error) {
	sl := s.sessions.acquire(key)
	defer s.release(sl)

	sess := &sl.session
	if sess.State != RoundAnswered {
		return Session{}, invalid("next", sess.State)
	}

	q, err := s.draw(ctx, key, sess.CategoryID, sess.Question.PhraseID)
	if err != nil {
		return Session{}, err
	}
	if err := s.allow(ctx, key); err != nil {
		return Session{}, err
	}

	sess.Question = q
	sess.State = AwaitingFirstAnswer
	sess.Attempts = 0
	sess.FirstOpen = false
	sess.Round++
	sl.lastPhrase = q.PhraseID
	return *sess, nil
}

// Exit ends the conversation's session. It reports whether one was active.
func (s *Service) Exit(key Key) bool {
	sl := s.sessions.acquire(key)
	defer s.release(sl)

	was := sl.session.Active()
	if was {
		s.logger.Info("review ended",
			zap.String("session_id", sl.session.ID.String()),
			zap.Int("rounds", sl.session.Round))
	}
	sl.session = Session{Key: key}
	return was
}

// Current returns the conversation's session and whether it is active.
func (s *Service) Current(key Key) (Session, bool) {
	sl := s.sessions.acquire(key)
	defer s.release(sl)
	return sl.session, sl.session.Active()
}

func (s *Service) release(sl *slot) {
	s.sessions.release(sl, s.now())
}

// Sweep forgets conversations idle for longer than idle, together with
// their sessions and the phrase they last saw. It returns how many were
// forgotten.
func (s *Service) Sweep(idle time.Duration) int {
	n := s.sessions.sweep(s.now().Add(-idle))
	if n > 0 {
		s.logger.Debug("idle conversations forgotten", zap.Int("count", n))
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, every, idle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep(idle)
		}
	}
}

// draw picks a phrase of the category other than exclude, unless it is
// the only one.
func (s *Service) draw(ctx context.Context, key Key, categoryID, exclude int) (Question, error) {
	all, err := s.phrases.FindByCategory(ctx, categoryID, key.UserID)
	if err != nil {
		return Question{}, fmt.Errorf("review: load phrases: %w", err)
	}
	if len(all) == 0 {
		return Question{}, fmt.Errorf("%w: category %d is empty", ErrNoContent, categoryID)
	}

	candidates := all
	if len(all) > 1 {
		candidates = make([]store.Phrase, 0, len(all))
		for _, p := range all {
			if p.ID != exclude {
				candidates = append(candidates, p)
			}
		}
	}

	p := candidates[s.intN(len(candidates))]
	spaced := p.SpacedPhrase
	if spaced == "" {
		spaced = p.TextPhrase
	}
	return Question{
		PhraseID:    p.ID,
		Text:        p.TextPhrase,
		Spaced:      spaced,
		Cloze:       s.gaps.Gap(spaced),
		Translation: p.Translation,
		AudioID:     p.AudioID,
		ImageID:     p.ImageID,
	}, nil
}

func (s *Service) allow(ctx context.Context, key Key) error {
	d, err := s.gate.Allow(ctx, key.UserID)
	if err != nil {
		return fmt.Errorf("review: quota: %w", err)
	}
	if !d.Granted {
		return &QuotaDeniedError{Reason: d.Reason, Limit: d.Limit}
	}
	return nil
}

func (s *Service) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
