package telegram

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/enrich"
	"github.com/abhisek/lexis/internal/imagegen"
	"github.com/abhisek/lexis/internal/phrase"
	"github.com/abhisek/lexis/internal/quota"
	"github.com/abhisek/lexis/internal/review"
	"github.com/abhisek/lexis/internal/store"
)

type sent struct {
	chatID int64
	kind   string
	text   string
	file   tgbotapi.RequestFileData
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	fail bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return tgbotapi.Message{}, errors.New("network down")
	}

	n := len(f.sent) + 1
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.sent = append(f.sent, sent{chatID: m.ChatID, kind: "text", text: m.Text})
		return tgbotapi.Message{MessageID: n, Text: m.Text}, nil
	case tgbotapi.VoiceConfig:
		f.sent = append(f.sent, sent{chatID: m.ChatID, kind: "voice", text: m.Caption, file: m.File})
		return tgbotapi.Message{MessageID: n, Voice: &tgbotapi.Voice{FileID: fmt.Sprintf("voice-%d", n)}}, nil
	case tgbotapi.PhotoConfig:
		f.sent = append(f.sent, sent{chatID: m.ChatID, kind: "photo", text: m.Caption, file: m.File})
		return tgbotapi.Message{MessageID: n, Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: fmt.Sprintf("photo-%d", n), Width: 1024},
		}}, nil
	}
	return tgbotapi.Message{}, fmt.Errorf("unexpected %T", c)
}

func (f *fakeSender) last() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sent{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type tts struct{}

type painter struct{ prompts []string }

func (p *painter) Generate(_ context.Context, prompt string) (*imagegen.Image, error) {
	p.prompts = append(p.prompts, prompt)
	return &imagegen.Image{Data: []byte("png"), FileName: "p.png", MIME: "image/png"}, nil
}

func (tts) Synthesize(_ context.Context, text string) (*enrich.Audio, error) {
	return &enrich.Audio{Data: []byte(text), FileName: "a.ogg", MIME: "audio/ogg"}, nil
}

func message(userID int64, text string) tgbotapi.Update {
	m := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Ann", UserName: "ann"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: m}
}

type harness struct {
	bot     *Bot
	sender  *fakeSender
	store   *store.Store
	painter *painter
}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sender := &fakeSender{}
	client := NewClient(sender)
	pipeline := enrich.New(nil, nil, tts{})
	images := &painter{}
	phrases := phrase.NewService(s.Phrases(), s.Categories(), pipeline, phrase.Config{Uploader: client, Images: images})
	gate := quota.NewGate(s.Users(), client, quota.Config{Limit: limit}, nil)
	rs := review.NewService(s.Phrases(), s.Categories(), gate, review.Config{Rand: rand.NewPCG(1, 2)})

	bot := NewBot(client, s, phrases, rs, BotConfig{DailyLimit: limit})
	bot.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return &harness{bot: bot, sender: sender, store: s, painter: images}
}

func (h *harness) send(text string) sent {
	h.bot.HandleUpdate(context.Background(), message(1, text))
	return h.sender.last()
}

func TestStartCommand(t *testing.T) {
	h := newHarness(t, 50)
	got := h.send("/start")
	assert.Equal(t, msgHelp, got.text)

	u, err := h.store.Users().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Username)
}

func TestAddCommand(t *testing.T) {
	h := newHarness(t, 50)

	assert.Equal(t, msgAddUsage, h.send("/add Greetings").text)
	assert.Equal(t, msgAddUsage, h.send("/add | hello").text)

	got := h.send("/add Greetings | Good <i>morning</i>")
	assert.Equal(t, "text", got.kind)
	assert.Contains(t, got.text, "Saved to <b>Greetings</b>")
	assert.Contains(t, got.text, "Good morning")

	assert.Equal(t, msgDuplicate, h.send("/add Greetings | good morning").text)
	assert.Equal(t, tooLong(phrase.DefaultMaxLen), h.send("/add Greetings | "+strings.Repeat("a", 200)).text)

	own, _, err := h.store.Categories().Reviewable(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Greetings", own[0].Name)
}

func TestCategoriesCommand(t *testing.T) {
	h := newHarness(t, 50)
	assert.Equal(t, msgNoCategories, h.send("/categories").text)

	h.send("/add Greetings | Hello")
	got := h.send("/categories")
	assert.Contains(t, got.text, "Greetings")
	assert.NotContains(t, got.text, "Shared")
}

func TestReviewRound(t *testing.T) {
	h := newHarness(t, 50)
	h.send("/add Greetings | Good morning")
	h.send("/add Greetings | Good night")
	own, _, err := h.store.Categories().Reviewable(context.Background(), 1)
	require.NoError(t, err)
	id := own[0].ID

	assert.Equal(t, msgReviewUsage, h.send("/review greetings").text)

	q := h.send(fmt.Sprintf("/review %d", id))
	assert.Equal(t, "voice", q.kind, "phrases with audio are asked by voice")
	assert.Contains(t, q.text, "Reviewing Greetings")
	assert.Contains(t, q.text, "___")

	assert.Equal(t, msgAnswerFirst, h.send("/next").text)

	cur, ok := h.bot.review.Current(review.Key{UserID: 1, ChatID: 1})
	require.True(t, ok)
	assert.Equal(t, msgTryAgain, h.send("wrong").text)
	got := h.send("nope")
	assert.Contains(t, got.text, "The answer was: "+cur.Question.Text)

	assert.Equal(t, msgNextHint, h.send("more text").text)

	q = h.send("/next")
	assert.Equal(t, "voice", q.kind)
	assert.NotContains(t, q.text, "Reviewing")

	cur, _ = h.bot.review.Current(review.Key{UserID: 1, ChatID: 1})
	assert.Contains(t, h.send(strings.ToUpper(cur.Question.Text)).text, msgCorrect)

	assert.Equal(t, msgStopped, h.send("/stop").text)
	assert.Equal(t, msgNoSession, h.send("hello").text)
	assert.Equal(t, msgNoSession, h.send("/next").text)
}

func TestReviewNoContent(t *testing.T) {
	h := newHarness(t, 50)
	assert.Equal(t, msgNoContent, h.send("/review 42").text)
}

func TestReviewQuotaDenied(t *testing.T) {
	h := newHarness(t, 1)
	h.send("/add Greetings | Hello")
	h.send("/add Greetings | Bye")
	own, _, err := h.store.Categories().Reviewable(context.Background(), 1)
	require.NoError(t, err)

	h.send(fmt.Sprintf("/review %d", own[0].ID))
	h.sender.reset()

	got := h.send(fmt.Sprintf("/review %d", own[0].ID))
	assert.Equal(t, quota.DefaultMessage, got.text)
	assert.Len(t, h.sender.sent, 1)
}

func TestStatsCommand(t *testing.T) {
	h := newHarness(t, 50)
	h.send("/start")
	ctx := context.Background()
	_, err := h.store.Users().IncrementDayCounter(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, h.store.Progress().Upsert(ctx, store.ProgressEntry{
		UserID: 1, Date: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), Score: 7,
	}))

	got := h.send("/stats")
	assert.Contains(t, got.text, "2026-03-13    7")
	assert.Contains(t, got.text, "2026-03-08    0")
	assert.Contains(t, got.text, "Today: 1 of 50")

	require.NoError(t, h.store.Users().SetSubscription(ctx, store.Subscription{UserID: 1, Tier: store.TierVip}))
	assert.NotContains(t, h.send("/stats").text, "Today:")
}

func (h *harness) reply(text string, to *tgbotapi.Message) sent {
	u := message(1, text)
	u.Message.ReplyToMessage = to
	h.bot.HandleUpdate(context.Background(), u)
	return h.sender.last()
}

func (h *harness) phrase(t *testing.T, id int) *store.Phrase {
	t.Helper()
	p, err := h.store.Phrases().Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestEditCommands(t *testing.T) {
	h := newHarness(t, 50)
	assert.Contains(t, h.send("/add Greetings | Good morning").text, "as #1")
	h.send("/add Greetings | Hello")

	list := h.send("/phrases 1").text
	assert.Contains(t, list, "#1 Good morning")
	assert.Contains(t, list, "#2 Hello")
	assert.Equal(t, msgPhrasesUsage, h.send("/phrases x").text)

	card := h.send("/phrase 1").text
	assert.Contains(t, card, "<b>#1</b> Good morning")
	assert.Contains(t, card, "🔊 voice")

	got := h.send("/edit 1 translation Доброе утро")
	assert.Contains(t, got.text, msgUpdated)
	assert.Equal(t, "Доброе утро", h.phrase(t, 1).Translation)

	h.send("/edit 1 Comment formal")
	assert.Equal(t, "formal", h.phrase(t, 1).Comment)
	h.send("/edit 1 comment")
	assert.Empty(t, h.phrase(t, 1).Comment)

	h.send("/edit 1 text Good evening")
	assert.Equal(t, "Good evening", h.phrase(t, 1).TextPhrase)

	assert.Equal(t, msgDuplicate, h.send("/edit 1 text hello").text)
	assert.Equal(t, tooLong(phrase.DefaultMaxLen), h.send("/edit 1 text "+strings.Repeat("a", 200)).text)
	assert.Equal(t, msgEditUsage, h.send("/edit 1 colour red").text)
	assert.Equal(t, msgEditUsage, h.send("/edit").text)
	assert.Equal(t, msgNoPhrase, h.send("/edit 99 comment x").text)
	assert.Equal(t, msgNoPhrase, h.send("/phrase 99").text)

	// Another user cannot touch the phrase.
	h.bot.HandleUpdate(context.Background(), message(2, "/edit 1 comment mine"))
	assert.Equal(t, msgNoPhrase, h.sender.last().text)
	h.bot.HandleUpdate(context.Background(), message(2, "/phrase 1"))
	assert.Equal(t, msgNoPhrase, h.sender.last().text)
	assert.Empty(t, h.phrase(t, 1).Comment)
}

func TestVoiceAndImageCommands(t *testing.T) {
	h := newHarness(t, 50)
	h.send("/add Greetings | Good morning")
	before := h.phrase(t, 1).AudioID
	require.NotEmpty(t, before)

	h.sender.reset()
	assert.Equal(t, msgVoiceUpdated, h.send("/voice 1").text)
	require.Len(t, h.sender.sent, 2)
	assert.Equal(t, "voice", h.sender.sent[0].kind)
	assert.Equal(t, "voice-1", h.phrase(t, 1).AudioID)

	own := &tgbotapi.Message{MessageID: 7, Voice: &tgbotapi.Voice{FileID: "recorded-by-user"}}
	assert.Equal(t, msgVoiceUpdated, h.reply("/voice 1", own).text)
	assert.Equal(t, "recorded-by-user", h.phrase(t, 1).AudioID)

	h.sender.reset()
	assert.Equal(t, msgImageUpdated, h.send("/image 1").text)
	require.Len(t, h.painter.prompts, 1)
	assert.Contains(t, h.painter.prompts[0], "Good morning")
	assert.Equal(t, "photo-1", h.phrase(t, 1).ImageID)

	photo := &tgbotapi.Message{MessageID: 8, Photo: []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: "full"}}}
	assert.Equal(t, msgImageUpdated, h.reply("/image 1", photo).text)
	assert.Equal(t, "full", h.phrase(t, 1).ImageID)
	assert.Contains(t, h.send("/phrase 1").text, "🖼 picture")

	assert.Equal(t, msgVoiceUsage, h.send("/voice").text)
	assert.Equal(t, msgImageUsage, h.send("/image abc").text)
	assert.Equal(t, msgNoPhrase, h.send("/image 42").text)
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, 50)
	assert.Equal(t, msgUnknown, h.send("/dance").text)
}

func TestHandleUpdateIgnoresNonMessages(t *testing.T) {
	h := newHarness(t, 50)
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 5})
	assert.Empty(t, h.sender.sent)
}

func TestClientUploads(t *testing.T) {
	sender := &fakeSender{}
	c := NewClient(sender)
	ctx := context.Background()

	id, err := c.UploadVoice(ctx, 9, &enrich.Audio{Data: []byte("ogg"), FileName: "hi.ogg"}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "voice-1", id)
	assert.Equal(t, tgbotapi.FileBytes{Name: "hi.ogg", Bytes: []byte("ogg")}, sender.last().file)

	id, err = c.UploadPhoto(ctx, 9, &imagegen.Image{Data: []byte("png"), FileName: "hi.png"}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "photo-2", id)

	require.NoError(t, c.Voice(ctx, 9, "voice-1", "again"))
	assert.Equal(t, tgbotapi.FileID("voice-1"), sender.last().file)

	sender.fail = true
	_, err = c.UploadVoice(ctx, 9, &enrich.Audio{Data: []byte("ogg")}, "")
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, c.Notify(cancelled, 9, "x"), context.Canceled)
}

func TestDispatcherSerializesPerUser(t *testing.T) {
	var (
		mu      sync.Mutex
		order   = map[int64][]int{}
		running = map[int64]bool{}
		overlap bool
	)
	d := NewDispatcher(func(_ context.Context, u tgbotapi.Update) {
		id := u.Message.From.ID
		mu.Lock()
		if running[id] {
			overlap = true
		}
		running[id] = true
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		running[id] = false
		order[id] = append(order[id], u.UpdateID)
		mu.Unlock()
	})

	for i := range 20 {
		for _, user := range []int64{1, 2, 3} {
			u := message(user, "x")
			u.UpdateID = i
			d.Dispatch(context.Background(), u)
		}
	}
	d.Wait()

	assert.False(t, overlap)
	for _, user := range []int64{1, 2, 3} {
		require.Len(t, order[user], 20)
		for i, id := range order[user] {
			assert.Equal(t, i, id)
		}
	}
}

type fakeUpdates struct {
	ch      chan tgbotapi.Update
	stopped bool
}

func (f *fakeUpdates) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.ch }
func (f *fakeUpdates) StopReceivingUpdates()                                        { f.stopped = true }

func TestRun(t *testing.T) {
	src := &fakeUpdates{ch: make(chan tgbotapi.Update, 2)}
	var handled sync.WaitGroup
	handled.Add(2)
	d := NewDispatcher(func(context.Context, tgbotapi.Update) { handled.Done() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- Run(ctx, src, d, zapNop()) }()

	src.ch <- message(1, "a")
	src.ch <- message(2, "b")
	handled.Wait()
	cancel()

	require.NoError(t, <-done)
	assert.True(t, src.stopped)
}

type fakeRequester struct {
	params tgbotapi.Params
}

func (f *fakeRequester) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.params = params
	return &tgbotapi.APIResponse{Ok: endpoint == "setWebhook", Description: "bad endpoint"}, nil
}

func TestSetWebhook(t *testing.T) {
	r := &fakeRequester{}
	require.NoError(t, SetWebhook(r, "https://example.com/telegram/webhook", "s3cret"))
	assert.Equal(t, "https://example.com/telegram/webhook", r.params["url"])
	assert.Equal(t, "s3cret", r.params["secret_token"])

	require.NoError(t, SetWebhook(r, "https://example.com/hook", ""))
	_, ok := r.params["secret_token"]
	assert.False(t, ok)
}

func zapNop() *zap.Logger { return zap.NewNop() }
