package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Updates is the long-polling part of *tgbotapi.BotAPI.
type Updates interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// PollTimeout is the long-poll timeout in seconds.
const PollTimeout = 60

// Run long-polls for updates and dispatches them until ctx is cancelled,
// then waits for in-flight updates to finish.
func Run(ctx context.Context, src Updates, d *Dispatcher, logger *zap.Logger) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = PollTimeout
	updates := src.GetUpdatesChan(cfg)

	logger.Info("polling for updates")
	defer d.Wait()
	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			logger.Info("stopped polling")
			return nil
		case u, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram: update channel closed")
			}
			d.Dispatch(ctx, u)
		}
	}
}

// Requester is the raw API call part of *tgbotapi.BotAPI.
type Requester interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// SetWebhook points Telegram at url. Telegram echoes secret in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func SetWebhook(api Requester, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	resp, err := api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("telegram: set webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram: set webhook: %s", resp.Description)
	}
	return nil
}
