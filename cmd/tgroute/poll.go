package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bjaus/tgroute"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Receives updates by long polling",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("bot-token")
		if token == "" {
			return fmt.Errorf("failed to receive a bot token")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logrus.WithField("mode", "poll")

		store, closer, err := openStore(ctx, log)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer closer.Close()

		collector, err := newCollector()
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}

		// The router is built after bot.New, so the default handler reaches
		// it through this variable.
		var router *tgroute.Router
		b, err := bot.New(token, bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, u *models.Update) {
			if err := router.Route(ctx, b, u); err != nil {
				log.WithError(err).WithField("update_id", u.ID).Error("failed to route update")
			}
		}))
		if err != nil {
			return fmt.Errorf("failed to create bot: %w", err)
		}
		if router, err = newRouter(ctx, b, store, collector, log); err != nil {
			return err
		}
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			log.WithError(err).Warn("failed to delete webhook before polling")
		}

		log.Info("polling for updates")
		b.Start(ctx)
		return nil
	},
}
