package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/phrase"
	"github.com/abhisek/lexis/internal/quota"
	"github.com/abhisek/lexis/internal/review"
	"github.com/abhisek/lexis/internal/store"
)

// StatsDays is how many days /stats shows.
const StatsDays = 7

// Bot turns Telegram updates into phrase and review operations.
type Bot struct {
	client  *Client
	backend store.Backend
	phrases *phrase.Service
	review  *review.Service
	limit   int
	admins  map[int64]bool
	logger  *zap.Logger
	now     func() time.Time
}

// BotConfig configures a Bot.
type BotConfig struct {
	DailyLimit int
	Admins     map[int64]bool
	Logger     *zap.Logger
}

func NewBot(client *Client, backend store.Backend, phrases *phrase.Service, rs *review.Service, cfg BotConfig) *Bot {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = quota.DefaultLimit
	}
	return &Bot{
		client:  client,
		backend: backend,
		phrases: phrases,
		review:  rs,
		limit:   cfg.DailyLimit,
		admins:  cfg.Admins,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// HandleUpdate processes one update. Failures are logged and reported to
// the user; HandleUpdate itself never fails.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return
	}

	log := b.logger.With(zap.Int64("user_id", m.From.ID), zap.Int64("chat_id", m.Chat.ID))
	if err := b.handleMessage(ctx, m); err != nil {
		log.Error("handle update", zap.Error(err))
		if err := b.client.Text(ctx, m.Chat.ID, msgFailed); err != nil {
			log.Warn("report failure", zap.Error(err))
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	err := b.backend.Users().Ensure(ctx, &store.User{
		ID:        m.From.ID,
		Username:  m.From.UserName,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
		Language:  m.From.LanguageCode,
	})
	if err != nil {
		return err
	}

	key := review.Key{UserID: m.From.ID, ChatID: m.Chat.ID}
	if !m.IsCommand() {
		return b.answer(ctx, key, m.Text)
	}

	args := strings.TrimSpace(m.CommandArguments())
	switch m.Command() {
	case "start", "help":
		return b.client.Text(ctx, key.ChatID, msgHelp)
	case "categories":
		return b.categories(ctx, key)
	case "add":
		return b.add(ctx, key, args)
	case "phrases":
		return b.listPhrases(ctx, key, args)
	case "phrase":
		return b.showPhrase(ctx, key, args)
	case "edit":
		return b.edit(ctx, key, args)
	case "voice":
		return b.voice(ctx, key, m, args)
	case "image":
		return b.image(ctx, key, m, args)
	case "review":
		return b.start(ctx, key, args)
	case "next":
		return b.next(ctx, key)
	case "stop":
		b.review.Exit(key)
		return b.client.Text(ctx, key.ChatID, msgStopped)
	case "stats":
		return b.stats(ctx, key)
	default:
		return b.client.Text(ctx, key.ChatID, msgUnknown)
	}
}

func (b *Bot) categories(ctx context.Context, key review.Key) error {
	own, shared, err := b.backend.Categories().Reviewable(ctx, key.UserID)
	if err != nil {
		return err
	}
	if len(own) == 0 && len(shared) == 0 {
		return b.client.Text(ctx, key.ChatID, msgNoCategories)
	}
	return b.client.Text(ctx, key.ChatID, renderCategories(own, shared))
}

func (b *Bot) add(ctx context.Context, key review.Key, args string) error {
	category, text, ok := strings.Cut(args, "|")
	category, text = strings.TrimSpace(category), strings.TrimSpace(text)
	if !ok || category == "" || text == "" {
		return b.client.Text(ctx, key.ChatID, msgAddUsage)
	}

	p, err := b.phrases.Add(ctx, key.UserID, category, text)
	if err != nil {
		return b.phraseError(ctx, key, err)
	}
	return b.client.HTML(ctx, key.ChatID, renderSaved(p, category))
}

func (b *Bot) start(ctx context.Context, key review.Key, args string) error {
	id, err := strconv.Atoi(args)
	if err != nil {
		return b.client.Text(ctx, key.ChatID, msgReviewUsage)
	}
	sess, err := b.review.Start(ctx, key, id)
	if err != nil {
		return b.reviewError(ctx, key, err)
	}
	return b.ask(ctx, sess)
}

func (b *Bot) next(ctx context.Context, key review.Key) error {
	cur, ok := b.review.Current(key)
	switch {
	case !ok:
		return b.client.Text(ctx, key.ChatID, msgNoSession)
	case cur.State != review.RoundAnswered:
		return b.client.Text(ctx, key.ChatID, msgAnswerFirst)
	}

	sess, err := b.review.Advance(ctx, key)
	if err != nil {
		return b.reviewError(ctx, key, err)
	}
	return b.ask(ctx, sess)
}

func (b *Bot) answer(ctx context.Context, key review.Key, text string) error {
	cur, ok := b.review.Current(key)
	if !ok {
		return b.client.Text(ctx, key.ChatID, msgNoSession)
	}
	if cur.State == review.RoundAnswered {
		return b.client.Text(ctx, key.ChatID, msgNextHint)
	}

	v, err := b.review.Submit(ctx, key, text)
	if err != nil {
		return err
	}
	if err := b.client.Text(ctx, key.ChatID, renderVerdict(v)); err != nil {
		return err
	}
	if v.State == review.RoundAnswered && v.Session.Question.ImageID != "" {
		return b.client.Photo(ctx, key.ChatID, v.Session.Question.ImageID, v.Session.Question.Text)
	}
	return nil
}

// ask shows the session's current question, as a voice message when the
// phrase has audio.
func (b *Bot) ask(ctx context.Context, s review.Session) error {
	text := renderQuestion(s)
	if s.Question.AudioID != "" {
		err := b.client.Voice(ctx, s.Key.ChatID, s.Question.AudioID, text)
		if err == nil {
			return nil
		}
		b.logger.Warn("send question voice", zap.Int("phrase_id", s.Question.PhraseID), zap.Error(err))
	}
	return b.client.Text(ctx, s.Key.ChatID, text)
}

// reviewError reports the typed review failures. A quota denial needs no
// reply because the gate has already told the user.
func (b *Bot) reviewError(ctx context.Context, key review.Key, err error) error {
	switch {
	case errors.Is(err, review.ErrNoContent):
		return b.client.Text(ctx, key.ChatID, msgNoContent)
	case errors.Is(err, review.ErrQuotaDenied):
		b.logger.Info("review denied by quota", zap.Int64("user_id", key.UserID), zap.Error(err))
		return nil
	default:
		return err
	}
}

func (b *Bot) stats(ctx context.Context, key review.Key) error {
	days, err := quota.History(ctx, b.backend.Users(), b.backend.Progress(), key.UserID, StatsDays, b.now())
	if err != nil {
		return err
	}
	tier, err := b.backend.Users().Tier(ctx, key.UserID)
	if err != nil {
		return err
	}
	unlimited := b.admins[key.UserID] || tier != store.TierFree
	return b.client.Text(ctx, key.ChatID, renderStats(days, b.limit, unlimited))
}
