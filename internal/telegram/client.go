// Package telegram connects the review core to a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abhisek/lexis/internal/enrich"
	"github.com/abhisek/lexis/internal/imagegen"
)

// Sender is the part of *tgbotapi.BotAPI used to talk to users.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client sends messages and uploads media. In private chats the chat id
// equals the user id, which is how users are addressed here.
type Client struct {
	api Sender
}

func NewClient(api Sender) *Client {
	return &Client{api: api}
}

// Notify sends a plain text message to a user.
func (c *Client) Notify(ctx context.Context, userID int64, text string) error {
	return c.Text(ctx, userID, text)
}

// Text sends a plain text message to a chat.
func (c *Client) Text(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// HTML sends a message rendered as Telegram HTML.
func (c *Client) HTML(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// UploadVoice sends audio to the user as a voice message and returns the
// file id Telegram assigned to it.
func (c *Client) UploadVoice(ctx context.Context, userID int64, audio *enrich.Audio, caption string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v := tgbotapi.NewVoice(userID, tgbotapi.FileBytes{Name: audio.FileName, Bytes: audio.Data})
	v.Caption = caption
	msg, err := c.api.Send(v)
	if err != nil {
		return "", fmt.Errorf("telegram: upload voice: %w", err)
	}
	if msg.Voice == nil {
		return "", errors.New("telegram: upload voice: no voice in reply")
	}
	return msg.Voice.FileID, nil
}

// UploadPhoto sends img to the user and returns the file id of its largest size.
func (c *Client) UploadPhoto(ctx context.Context, userID int64, img *imagegen.Image, caption string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := tgbotapi.NewPhoto(userID, tgbotapi.FileBytes{Name: img.FileName, Bytes: img.Data})
	p.Caption = caption
	msg, err := c.api.Send(p)
	if err != nil {
		return "", fmt.Errorf("telegram: upload photo: %w", err)
	}
	if len(msg.Photo) == 0 {
		return "", errors.New("telegram: upload photo: no photo in reply")
	}
	return msg.Photo[len(msg.Photo)-1].FileID, nil
}

// Voice resends a previously uploaded voice message.
func (c *Client) Voice(ctx context.Context, chatID int64, fileID, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := tgbotapi.NewVoice(chatID, tgbotapi.FileID(fileID))
	v.Caption = caption
	if _, err := c.api.Send(v); err != nil {
		return fmt.Errorf("telegram: send voice: %w", err)
	}
	return nil
}

// Photo resends a previously uploaded picture.
func (c *Client) Photo(ctx context.Context, chatID int64, fileID, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	p.Caption = caption
	if _, err := c.api.Send(p); err != nil {
		return fmt.Errorf("telegram: send photo: %w", err)
	}
	return nil
}
