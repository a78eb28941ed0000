package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/bjaus/tgroute"
	"github.com/bjaus/tgroute/metrics"
	"github.com/bjaus/tgroute/session"
)

// newRouter builds the router for b and registers the demo handlers.
func newRouter(ctx context.Context, b *bot.Bot, store session.Store, collector *metrics.Collector, log logrus.FieldLogger) (*tgroute.Router, error) {
	me, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot identity: %w", err)
	}
	log.Infof("running as bot[%d] @%s", me.ID, me.Username)

	opts := []tgroute.Option{
		tgroute.WithLogger(log),
		tgroute.WithIdentity(me.ID, me.Username),
		tgroute.WithSessionStore(store),
		tgroute.WithContinuationTTL(viper.GetDuration("continuation-ttl")),
	}
	if collector != nil {
		opts = append(opts, collector.Options()...)
	}
	r := tgroute.New(opts...)

	if err := registerDemo(r, log); err != nil {
		return nil, err
	}
	r.OnError(func(ctx context.Context, req *tgroute.Request, err error) {
		log.WithError(err).WithField("dispatch_id", req.DispatchID).Warn("stale prompt, dropping it")
		if id, ok := req.SenderID(); ok {
			_ = req.Continuations.Remove(ctx, me.ID, id)
		}
	}, tgroute.Is(tgroute.ErrStaleContinuation))

	commands := make([]models.BotCommand, 0, len(r.Commands()))
	for _, token := range r.Commands() {
		commands = append(commands, models.BotCommand{
			Command:     strings.TrimPrefix(token, "/"),
			Description: demoDescriptions[token],
		})
	}
	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		log.WithError(err).Warn("failed to publish command list")
	}
	return r, nil
}

func newCollector() (*metrics.Collector, error) {
	return metrics.NewCollector(prometheus.DefaultRegisterer)
}

var demoDescriptions = map[string]string{
	"/start":  "Show the menu",
	"/rename": "Set the name the bot calls you",
	"/whoami": "Show the name the bot calls you",
}

const (
	fieldDisplayName = "display_name"
	sessionTTL       = 30 * 24 * time.Hour
)

func userKey(botID, userID int64) string {
	return fmt.Sprintf("tgroute-demo:%d:%d", botID, userID)
}

func reply(ctx context.Context, req *tgroute.Request, text string, markup models.ReplyMarkup) error {
	var chatID int64
	switch {
	case req.Message() != nil:
		chatID = req.Message().Chat.ID
	case req.Update.CallbackQuery != nil && req.Update.CallbackQuery.Message.Message != nil:
		chatID = req.Update.CallbackQuery.Message.Message.Chat.ID
	default:
		return fmt.Errorf("update has no chat to reply to")
	}
	_, err := req.Bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	return err
}

// registerDemo wires a small bot that exercises commands, named callbacks
// and force-reply continuations.
func registerDemo(r *tgroute.Router, log logrus.FieldLogger) error {
	botID := r.Identity().ID

	menu := func() (models.ReplyMarkup, error) {
		rename, err := tgroute.CallbackData("menu", "rename")
		if err != nil {
			return nil, err
		}
		whoami, err := tgroute.CallbackData("menu", "whoami")
		if err != nil {
			return nil, err
		}
		return &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "Rename", CallbackData: rename},
				{Text: "Who am I?", CallbackData: whoami},
			}},
		}, nil
	}

	prompt := func(ctx context.Context, req *tgroute.Request, userID int64) error {
		if err := req.Continuations.Join(ctx, botID, userID, "rename.reply", 0, req.DispatchID); err != nil {
			return err
		}
		return reply(ctx, req, "What should I call you?", &models.ForceReply{ForceReply: true})
	}

	whoami := func(ctx context.Context, req *tgroute.Request, userID int64) error {
		name, ok, err := req.Continuations.Store().GetField(ctx, userKey(botID, userID), fieldDisplayName, sessionTTL)
		if err != nil {
			return err
		}
		if !ok {
			return reply(ctx, req, "I don't know your name yet, try /rename", nil)
		}
		return reply(ctx, req, "You are "+name, nil)
	}

	steps := []error{
		r.HandleCommand("start", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
			markup, err := menu()
			if err != nil {
				return tgroute.Stop, err
			}
			return tgroute.Stop, reply(ctx, req, "Pick one:", markup)
		}, "/start"),

		r.HandleCommand("rename", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
			id, _ := req.SenderID()
			return tgroute.Stop, prompt(ctx, req, id)
		}, "/rename"),

		r.HandleCommand("whoami", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
			id, _ := req.SenderID()
			return tgroute.Stop, whoami(ctx, req, id)
		}, "/whoami"),

		r.HandleCommand("unknown-command", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
			return tgroute.Stop, reply(ctx, req, "Unknown command, try /start", nil)
		}, tgroute.AnyCommand),

		r.HandleCallback("menu", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
			q := req.Update.CallbackQuery
			if _, err := req.Bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: q.ID}); err != nil {
				return tgroute.Stop, err
			}
			switch req.Args.String(0) {
			case "rename":
				return tgroute.Stop, prompt(ctx, req, q.From.ID)
			case "whoami":
				return tgroute.Stop, whoami(ctx, req, q.From.ID)
			}
			return tgroute.Stop, nil
		}, tgroute.CallbackMatch{Named: true}),

		r.HandleForceReply("rename.reply", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
			id, _ := req.SenderID()
			name := strings.TrimSpace(req.Message().Text)
			if name == "" {
				if err := req.Continuations.Update(ctx, botID, id, 0, ""); err != nil {
					return tgroute.Stop, err
				}
				return tgroute.Stop, reply(ctx, req, "Please send your name as text.", &models.ForceReply{ForceReply: true})
			}
			if err := req.Continuations.Store().UpdateFields(ctx, userKey(botID, id), map[string]string{fieldDisplayName: name}, sessionTTL); err != nil {
				return tgroute.Stop, err
			}
			if err := req.Continuations.Remove(ctx, botID, id); err != nil {
				return tgroute.Stop, err
			}
			return tgroute.Stop, reply(ctx, req, "Nice to meet you, "+name, nil)
		}),

		r.HandleFields(tgroute.Message, "media", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
			return tgroute.Stop, reply(ctx, req, "I only read text, try /start", nil)
		}, tgroute.AnyOf(tgroute.FieldPhoto, tgroute.FieldVideo, tgroute.FieldDocument, tgroute.FieldSticker, tgroute.FieldVoice)),

		r.Intercept(tgroute.Before, func(_ context.Context, req *tgroute.Request) error {
			log.WithFields(logrus.Fields{
				"category":    req.Category.String(),
				"dispatch_id": req.DispatchID,
			}).Debug("update received")
			return nil
		}),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}
