package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bjaus/tgroute/webhook"
)

func init() {
	flags := serveCmd.Flags()
	flags.String("listen-addr", ":8080", "address the webhook server listens on")
	flags.String("webhook-url", "", "public base URL; when set the bot's webhook is pointed at <url>/bot/<token>")
	flags.String("webhook-secret", "", "secret token Telegram must echo in "+webhook.SecretHeader)
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receives updates through a webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("bot-token")
		if token == "" {
			return fmt.Errorf("failed to receive a bot token")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logrus.WithField("mode", "webhook")

		store, closer, err := openStore(ctx, log)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer closer.Close()

		collector, err := newCollector()
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}

		b, err := bot.New(token)
		if err != nil {
			return fmt.Errorf("failed to create bot: %w", err)
		}
		router, err := newRouter(ctx, b, store, collector, log)
		if err != nil {
			return err
		}

		registry := webhook.NewRegistry()
		if _, err := registry.Add(token, b, router); err != nil {
			return err
		}

		secret := viper.GetString("webhook-secret")
		if base := viper.GetString("webhook-url"); base != "" {
			url := strings.TrimSuffix(base, "/") + "/bot/" + token
			if _, err := b.SetWebhook(ctx, &bot.SetWebhookParams{URL: url, SecretToken: secret}); err != nil {
				return fmt.Errorf("failed to set webhook: %w", err)
			}
			log.Info("webhook registered")
		}

		server := &http.Server{
			Addr: viper.GetString("listen-addr"),
			Handler: webhook.NewServer(registry,
				webhook.WithSecret(secret),
				webhook.WithLogger(log),
				webhook.WithMetrics(collector, prometheus.DefaultGatherer),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errs := make(chan error, 1)
		go func() {
			log.Infof("listening on addr[%s]", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("failed to start http server: %w", err)
			}
			close(errs)
		}()

		select {
		case err := <-errs:
			return err
		case <-ctx.Done():
		}
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}
