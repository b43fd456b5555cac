package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abhisek/lexis/internal/phrase"
	"github.com/abhisek/lexis/internal/review"
	"github.com/abhisek/lexis/internal/store"
)

// phraseID parses the leading phrase id of args and returns the rest.
func phraseID(args string) (int, string, bool) {
	head, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	id, err := strconv.Atoi(head)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, strings.TrimSpace(rest), true
}

func (b *Bot) listPhrases(ctx context.Context, key review.Key, args string) error {
	id, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return b.client.Text(ctx, key.ChatID, msgPhrasesUsage)
	}
	cat, err := b.backend.Categories().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return b.client.Text(ctx, key.ChatID, msgNoContent)
	}
	if err != nil {
		return err
	}
	ps, err := b.backend.Phrases().FindByCategory(ctx, id, key.UserID)
	if err != nil {
		return err
	}
	if len(ps) == 0 {
		return b.client.Text(ctx, key.ChatID, msgNoContent)
	}
	return b.client.Text(ctx, key.ChatID, renderPhraseList(cat.Name, ps))
}

func (b *Bot) showPhrase(ctx context.Context, key review.Key, args string) error {
	id, _, ok := phraseID(args)
	if !ok {
		return b.client.Text(ctx, key.ChatID, msgPhraseUsage)
	}
	p, err := b.backend.Phrases().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && p.UserID != key.UserID) {
		return b.client.Text(ctx, key.ChatID, msgNoPhrase)
	}
	if err != nil {
		return err
	}
	return b.client.HTML(ctx, key.ChatID, renderPhrase(p))
}

// edit handles "/edit <id> text|translation|comment <value>".
func (b *Bot) edit(ctx context.Context, key review.Key, args string) error {
	id, rest, ok := phraseID(args)
	field, value, _ := strings.Cut(rest, " ")
	field, value = strings.ToLower(field), strings.TrimSpace(value)
	if !ok || (value == "" && field != "comment") {
		return b.client.Text(ctx, key.ChatID, msgEditUsage)
	}

	var (
		p   *store.Phrase
		err error
	)
	switch field {
	case "text":
		p, err = b.phrases.ChangeText(ctx, key.UserID, id, value)
	case "translation":
		p, err = b.phrases.ChangeTranslation(ctx, key.UserID, id, value)
	case "comment":
		p, err = b.phrases.SetComment(ctx, key.UserID, id, value)
	default:
		return b.client.Text(ctx, key.ChatID, msgEditUsage)
	}
	if err != nil {
		return b.phraseError(ctx, key, err)
	}
	return b.client.HTML(ctx, key.ChatID, msgUpdated+"\n"+renderPhrase(p))
}

// voice synthesizes the phrase again, or attaches the voice message the
// command replies to.
func (b *Bot) voice(ctx context.Context, key review.Key, m *tgbotapi.Message, args string) error {
	id, _, ok := phraseID(args)
	if !ok {
		return b.client.Text(ctx, key.ChatID, msgVoiceUsage)
	}

	var err error
	if r := m.ReplyToMessage; r != nil && r.Voice != nil {
		_, err = b.phrases.SetAudio(ctx, key.UserID, id, r.Voice.FileID)
	} else {
		_, err = b.phrases.Revoice(ctx, key.UserID, id)
	}
	if err != nil {
		return b.phraseError(ctx, key, err)
	}
	return b.client.Text(ctx, key.ChatID, msgVoiceUpdated)
}

// image draws a picture for the phrase, or attaches the photo the command
// replies to.
func (b *Bot) image(ctx context.Context, key review.Key, m *tgbotapi.Message, args string) error {
	id, _, ok := phraseID(args)
	if !ok {
		return b.client.Text(ctx, key.ChatID, msgImageUsage)
	}

	var err error
	if r := m.ReplyToMessage; r != nil && len(r.Photo) > 0 {
		_, err = b.phrases.SetImage(ctx, key.UserID, id, r.Photo[len(r.Photo)-1].FileID)
	} else {
		_, err = b.phrases.GenerateImage(ctx, key.UserID, id)
	}
	if err != nil {
		return b.phraseError(ctx, key, err)
	}
	return b.client.Text(ctx, key.ChatID, msgImageUpdated)
}

// phraseError reports the typed phrase failures and passes the rest on.
func (b *Bot) phraseError(ctx context.Context, key review.Key, err error) error {
	var reply string
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, phrase.ErrNotOwner):
		reply = msgNoPhrase
	case errors.Is(err, phrase.ErrDuplicatePhrase):
		reply = msgDuplicate
	case errors.Is(err, phrase.ErrTooLong):
		reply = tooLong(b.phrases.MaxLen())
	case errors.Is(err, phrase.ErrEmpty):
		reply = msgEmpty
	case errors.Is(err, phrase.ErrNoAudio):
		reply = msgNoAudio
	case errors.Is(err, phrase.ErrNoImages):
		reply = msgNoImages
	default:
		return err
	}
	return b.client.Text(ctx, key.ChatID, reply)
}
