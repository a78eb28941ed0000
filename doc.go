// Package tgroute routes Telegram bot updates to handlers.
//
// A Router indexes handlers by update category and by what they match on
// (message fields, command tokens, callback payloads), runs interceptors
// around each dispatch and fans errors out to error handlers. It also keeps
// force-reply continuations: a handler can ask that the user's next message
// be delivered to a specific handler together with arguments bound now.
//
// # Quick Start
//
//	b, _ := bot.New(token)
//	me, _ := b.GetMe(ctx)
//
//	r := tgroute.New(tgroute.WithIdentity(me.ID, me.Username))
//
//	r.HandleCommand("start", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
//	    _, err := req.Bot.SendMessage(ctx, &bot.SendMessageParams{
//	        ChatID: req.Message().Chat.ID,
//	        Text:   "hello",
//	    })
//	    return tgroute.Stop, err
//	}, "/start")
//
//	// For each update, from polling or a webhook:
//	err := r.Route(ctx, b, update)
//
// # Categories
//
// CategoryOf names the payload an update carries: Message, EditedMessage,
// CallbackQuery, InlineQuery and so on. Two more categories exist only for
// registration. Command handlers fire for message text that starts with a
// command token, and ForceReply handlers are the targets of continuations.
//
// # Message Matching
//
// Handlers for Message, EditedMessage, ChannelPost and EditedChannelPost
// match on the optional fields a message carries (see Field and FieldsOf):
//
//	r.Handle(tgroute.Message, "fallback", fn)                                          // every message
//	r.HandleFields(tgroute.Message, "media", fn, tgroute.AnyOf(tgroute.FieldPhoto, tgroute.FieldVideo))
//	r.HandleFields(tgroute.Message, "captioned", fn, tgroute.AllOf(tgroute.FieldPhoto, tgroute.FieldCaption))
//
// For a Message update the router first checks for a command, then for a
// pending continuation of the sender, then runs the match-any handler, the
// AllOf handlers whose fields are all present, and the AnyOf handlers for
// each present field. Present fields are visited in Field declaration order
// and an AnyOf handler runs at most once per update even when several of
// its fields are present.
//
// Every handler returns a Signal. Stop, the zero value, ends dispatch of
// the update; Continue lets the next candidate run.
//
// # Commands
//
// Command tokens are case-insensitive and may be registered with or without
// the leading slash. "/start@otherbot" is ignored when the router's identity
// has a different username. The AnyCommand token catches commands without
// a handler of their own. Request.Args holds the whitespace-separated words
// that follow the command.
//
// # Callback Queries
//
// A CallbackQuery handler picks one or more strategies in CallbackMatch.
// They are tried in this order:
//
//  1. Data: exact payload equality
//  2. Named: "name|[json args]" payloads built with CallbackData
//  3. Patterns: regular expressions, first match wins
//  4. Predicate: a function, first one that accepts wins
//
// The first strategy that fires ends dispatch unless its handler returns
// Continue. A handler with Any set receives payloads that nothing matched.
//
// # Continuations
//
// Continuations implement force-reply conversations:
//
//	r.HandleForceReply("ask-age", func(ctx context.Context, req *tgroute.Request) (tgroute.Signal, error) {
//	    formID, _ := req.Args.Int(0)
//	    // req.Message().Text is the user's answer
//	    return tgroute.Stop, req.Continuations.Remove(ctx, botID, userID)
//	})
//
//	err := req.Continuations.Join(ctx, botID, userID, "ask-age", 0, formID)
//
// Records live in a session.Store under "tgroute:<botID>:<userID>" and
// expire after the router's continuation TTL unless touched. The in-memory
// store is the default; session also provides Redis, SQL and MongoDB
// stores for bots that run more than one process.
//
// # Interceptors and Errors
//
// Interceptors run before and after normal dispatch, either for every
// update or for chosen categories:
//
//	r.Intercept(tgroute.Before, authorize, tgroute.Message, tgroute.CallbackQuery)
//
// Before interceptors run catch-all first, After interceptors run
// category-specific first.
//
// Errors from handlers, interceptors and predicates come back from Route
// wrapped in *HandlerError. Before they are returned, every error handler
// whose matchers accept the error runs:
//
//	r.OnError(notifyUser, tgroute.Is(ErrQuotaExceeded))
//	r.OnError(logAll) // no matchers: every error
//
// Panics in handlers are recovered and reported the same way.
//
// # Hooks
//
// Hooks observe dispatch without changing it:
//
//	r := tgroute.New(
//	    tgroute.WithOnSuccess(func(ctx context.Context, c tgroute.Category, handler string, d time.Duration) {
//	        log.WithField("handler", handler).Debugf("done in %v", d)
//	    }),
//	)
//
// Available hooks:
//   - WithOnDispatch: Called just before a handler executes
//   - WithOnSuccess: Called after a handler succeeds
//   - WithOnFailure: Called after a handler fails
//   - WithOnNoHandler: Called when an update reached no handler
//
// The metrics package turns these hooks into Prometheus metrics.
//
// # Thread Safety
//
// Router is safe for concurrent use. Handlers may be registered and
// unregistered while updates are routed, including from inside a handler;
// a dispatch that is already running keeps the candidates it looked up.
// Handlers for one update run sequentially.
package tgroute
