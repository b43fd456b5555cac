package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexis/internal/server"
	"github.com/abhisek/lexis/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot behind a Telegram webhook",
	Long: "Serve accepts Telegram updates on " + server.WebhookPath + " and exposes /healthz. " +
		"When LEXIS_WEBHOOK_URL is set the webhook is registered with Telegram on start.",
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

		if d.cfg.WebhookURL != "" {
			url := strings.TrimRight(d.cfg.WebhookURL, "/")
			if !strings.HasSuffix(url, server.WebhookPath) {
				url += server.WebhookPath
			}
			if err := telegram.SetWebhook(api, url, d.cfg.WebhookSecret); err != nil {
				return fmt.Errorf("register webhook: %w", err)
			}
		}

		dispatcher := telegram.NewDispatcher(bot.HandleUpdate)
		defer dispatcher.Wait()

		srv := server.New(ctx, server.Config{
			Addr:   d.cfg.HTTPAddr,
			Secret: d.cfg.WebhookSecret,
		}, d.backend, dispatcher, d.logger.Named("http"))
		return srv.Run(ctx)
	},
}
