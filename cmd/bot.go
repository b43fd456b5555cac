package cmd

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/phrase"
	"github.com/abhisek/lexis/internal/quota"
	"github.com/abhisek/lexis/internal/review"
	"github.com/abhisek/lexis/internal/telegram"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot with long polling",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		api, bot, err := d.telegramBot(ctx)
		if err != nil {
			return err
		}
		dispatcher := telegram.NewDispatcher(bot.HandleUpdate)
		return telegram.Run(ctx, api, dispatcher, d.logger.Named("telegram"))
	},
}

// telegramBot connects to Telegram and wires the bot to the services.
func (d *deps) telegramBot(ctx context.Context) (*tgbotapi.BotAPI, *telegram.Bot, error) {
	if d.cfg.TelegramToken == "" {
		return nil, nil, errNoToken
	}
	api, err := tgbotapi.NewBotAPI(d.cfg.TelegramToken)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to telegram: %w", err)
	}
	d.logger.Info("connected to telegram", zap.String("bot", api.Self.UserName))

	pipeline, err := d.pipeline(ctx)
	if err != nil {
		return nil, nil, err
	}

	client := telegram.NewClient(api)
	pcfg := phrase.Config{
		MaxLen:   d.cfg.PhraseMaxLen,
		Uploader: client,
		Logger:   d.logger.Named("phrase"),
	}
	if g := d.images(); g != nil {
		pcfg.Images = g
	}
	phrases := phrase.NewService(d.backend.Phrases(), d.backend.Categories(), pipeline, pcfg)

	gate := quota.NewGate(d.backend.Users(), client, quota.Config{
		Limit:  d.cfg.DailyLimit,
		Admins: d.cfg.AdminIDs,
	}, d.logger.Named("quota"))

	rs := review.NewService(d.backend.Phrases(), d.backend.Categories(), gate, review.Config{
		Location: d.cfg.Location,
		Logger:   d.logger.Named("review"),
	})
	go rs.RunSweeper(ctx, review.SweepInterval, review.IdleTimeout)

	bot := telegram.NewBot(client, d.backend, phrases, rs, telegram.BotConfig{
		DailyLimit: d.cfg.DailyLimit,
		Admins:     d.cfg.AdminIDs,
		Logger:     d.logger.Named("bot"),
	})
	return api, bot, nil
}
