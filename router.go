package tgroute

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bjaus/tgroute/session"
)

// DefaultContinuationTTL is how long a force-reply continuation stays
// pending when no ttl is given.
const DefaultContinuationTTL = 10 * time.Minute

// Option configures a Router.
type Option func(*Router)

// Identity is the bot a router serves. Username is used to ignore commands
// addressed to other bots; ID scopes continuations.
type Identity struct {
	ID       int64
	Username string
}

// Router indexes handlers by update category and match criteria and
// dispatches updates to them.
//
// Usage:
//  1. Create a router with New
//  2. Register handlers, interceptors and error handlers
//  3. Call Route for each inbound update
//
// Route may be called concurrently. Registration is guarded by a lock, so
// handlers may also be added or removed while updates are being routed; a
// dispatch already in progress keeps the candidates it looked up.
type Router struct {
	mu            sync.RWMutex
	table         *routeTable
	before        []interceptor
	after         []interceptor
	errorHandlers []errorHandler
	identity      Identity

	hooks         hooks
	log           logrus.FieldLogger
	store         session.Store
	ttl           time.Duration
	continuations *Continuations
}

// New creates a Router with the given options.
//
// By default continuations are kept in an in-memory session store and
// diagnostics go to the standard logrus logger.
//
// Example:
//
//	r := tgroute.New(
//	    tgroute.WithIdentity(me.ID, me.Username),
//	    tgroute.WithSessionStore(session.NewRedis(client)),
//	    tgroute.WithOnFailure(func(ctx context.Context, c tgroute.Category, h string, err error, d time.Duration) {
//	        log.WithError(err).WithField("handler", h).Warn("handler failed")
//	    }),
//	)
func New(opts ...Option) *Router {
	r := &Router{
		table: newRouteTable(),
		log:   logrus.StandardLogger(),
		ttl:   DefaultContinuationTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = session.NewMemory()
	}
	r.continuations = &Continuations{store: r.store, router: r, ttl: r.ttl}
	return r
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Router) {
		r.log = l
	}
}

// WithIdentity sets the bot the router serves.
func WithIdentity(id int64, username string) Option {
	return func(r *Router) {
		r.identity = Identity{ID: id, Username: strings.TrimPrefix(username, "@")}
	}
}

// WithSessionStore sets the store continuations are kept in.
func WithSessionStore(s session.Store) Option {
	return func(r *Router) {
		r.store = s
	}
}

// WithContinuationTTL sets the lifetime of continuations joined with a zero
// ttl. Each continuation keeps the window it was joined with.
func WithContinuationTTL(ttl time.Duration) Option {
	return func(r *Router) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// SetIdentity replaces the bot identity, typically after a getMe call.
func (r *Router) SetIdentity(id Identity) {
	id.Username = strings.TrimPrefix(id.Username, "@")
	r.mu.Lock()
	r.identity = id
	r.mu.Unlock()
}

// Identity returns the bot identity.
func (r *Router) Identity() Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identity
}

// Continuations returns the router's force-reply store.
func (r *Router) Continuations() *Continuations { return r.continuations }

// Register validates h and adds it to the route table. Replacing the
// occupant of a single-handler slot is allowed and logged as a warning.
func (r *Router) Register(h Handler) error {
	if err := h.validate(); err != nil {
		return err
	}
	h.AnyOf = append([]Field(nil), h.AnyOf...)
	h.AllOf = append([]Field(nil), h.AllOf...)
	h.Commands = append([]string(nil), h.Commands...)

	r.mu.Lock()
	displaced := r.table.register(&h)
	r.mu.Unlock()

	for _, old := range displaced {
		r.log.WithFields(logrus.Fields{
			"category": h.Category.String(),
			"handler":  h.Name,
			"replaced": old.Name,
		}).Warn("handler registration overwrote an existing route")
	}
	return nil
}

// FieldMatch is the field criteria of a message-like handler.
type FieldMatch struct {
	any []Field
	all []Field
}

// AnyOf matches messages carrying at least one of fields.
func AnyOf(fields ...Field) FieldMatch { return FieldMatch{any: fields} }

// AllOf matches messages carrying every one of fields.
func AllOf(fields ...Field) FieldMatch { return FieldMatch{all: fields} }

// Handle registers fn for category c without match criteria: the match-any
// handler of a message-like category, or the single handler of categories
// such as InlineQuery.
func (r *Router) Handle(c Category, name string, fn HandlerFunc) error {
	return r.Register(Handler{Name: name, Category: c, Func: fn})
}

// HandleFields registers a message-like handler that matches on fields.
func (r *Router) HandleFields(c Category, name string, fn HandlerFunc, match FieldMatch) error {
	return r.Register(Handler{Name: name, Category: c, Func: fn, AnyOf: match.any, AllOf: match.all})
}

// HandleCommand registers fn for command tokens such as "/start" or "help".
func (r *Router) HandleCommand(name string, fn HandlerFunc, tokens ...string) error {
	return r.Register(Handler{Name: name, Category: Command, Func: fn, Commands: tokens})
}

// HandleCallback registers a callback query handler.
func (r *Router) HandleCallback(name string, fn HandlerFunc, match CallbackMatch) error {
	return r.Register(Handler{Name: name, Category: CallbackQuery, Func: fn, Callback: match})
}

// HandleForceReply registers fn as a continuation target under name.
func (r *Router) HandleForceReply(name string, fn HandlerFunc) error {
	return r.Register(Handler{Name: name, Category: ForceReply, Func: fn})
}

// Unregister removes every route of the named handler. It reports whether
// anything was removed.
func (r *Router) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := false
	for c := range categoryNames {
		if r.table.remove(name, c) {
			removed = true
		}
	}
	return removed
}

// Commands returns the registered command tokens, sorted.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.commandTokens()
}

// Intercept adds an interceptor for phase. Without categories it applies to
// every update. Before interceptors run catch-all first, then
// category-specific; After interceptors run in the mirrored order.
// Command and ForceReply are rejected: updates are routed as Message or
// EditedMessage.
func (r *Router) Intercept(phase Phase, fn InterceptorFunc, categories ...Category) error {
	if fn == nil {
		return fmt.Errorf("%w: nil interceptor", ErrInvalidHandler)
	}
	for _, c := range categories {
		if !c.Valid() || c == Command || c == ForceReply {
			return fmt.Errorf("%w: category %s (%d) is never routed", ErrInvalidHandler, c, int(c))
		}
	}
	in := interceptor{categories: newCategorySet(categories), fn: fn}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch phase {
	case Before:
		r.before = append(r.before, in)
	case After:
		r.after = append(r.after, in)
	default:
		return fmt.Errorf("%w: unknown phase %d", ErrInvalidHandler, phase)
	}
	return nil
}

// OnError adds an error handler. Without matchers it receives every error.
// All matching error handlers run, in registration order.
func (r *Router) OnError(fn ErrorHandlerFunc, matchers ...ErrorMatcher) {
	r.mu.Lock()
	r.errorHandlers = append(r.errorHandlers, errorHandler{matchers: matchers, fn: fn})
	r.mu.Unlock()
}

func (r *Router) hasForceReply(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.lookupForceReply(name) != nil
}

// Route dispatches one update.
//
// The processing flow:
//  1. Resolve the update category (ErrUnknownCategory otherwise)
//  2. Run Before interceptors
//  3. Run the category's match-and-invoke logic
//  4. On error, run every matching error handler and return the error
//  5. Otherwise run After interceptors
//
// b is handed to handlers unchanged and may be nil in tests.
func (r *Router) Route(ctx context.Context, b *bot.Bot, u *models.Update) error {
	c, err := CategoryOf(u)
	if err != nil {
		return err
	}

	req := &Request{
		Bot:           b,
		Update:        u,
		Category:      c,
		DispatchID:    uuid.NewString(),
		Continuations: r.continuations,
	}
	log := r.log.WithFields(logrus.Fields{
		"category":    c.String(),
		"dispatch_id": req.DispatchID,
		"update_id":   u.ID,
	})
	log.Debug("routing update")

	if err := r.intercept(ctx, req, Before); err != nil {
		return r.fail(ctx, req, log, err)
	}
	if err := r.dispatch(ctx, req, log); err != nil {
		return r.fail(ctx, req, log, err)
	}
	return r.intercept(ctx, req, After)
}

func (r *Router) fail(ctx context.Context, req *Request, log logrus.FieldLogger, err error) error {
	log.WithError(err).Warn("dispatch failed")

	r.mu.RLock()
	handlers := append([]errorHandler(nil), r.errorHandlers...)
	r.mu.RUnlock()

	for _, eh := range handlers {
		if eh.matches(err) {
			eh.fn(ctx, req, err)
		}
	}
	return err
}

// intercept runs the interceptors of phase that apply to the request.
func (r *Router) intercept(ctx context.Context, req *Request, phase Phase) error {
	r.mu.RLock()
	all := r.before
	if phase == After {
		all = r.after
	}
	var catchAll, specific []interceptor
	for _, in := range all {
		switch {
		case in.categories.all():
			catchAll = append(catchAll, in)
		case in.categories.has(req.Category):
			specific = append(specific, in)
		}
	}
	r.mu.RUnlock()

	var ordered []interceptor
	if phase == After {
		ordered = append(specific, catchAll...)
	} else {
		ordered = append(catchAll, specific...)
	}
	name := "interceptor:" + phase.String()
	for _, in := range ordered {
		if err := call(ctx, req, func(ctx context.Context, req *Request) (Signal, error) {
			return Continue, in.fn(ctx, req)
		}); err != nil {
			return &HandlerError{Category: req.Category, Handler: name, Err: err}
		}
	}
	return nil
}

func (r *Router) dispatch(ctx context.Context, req *Request, log logrus.FieldLogger) error {
	c := req.Category
	switch {
	case c.messageLike():
		return r.dispatchMessage(ctx, req, log)
	case c == CallbackQuery:
		return r.dispatchCallback(ctx, req)
	}

	r.mu.RLock()
	h := r.table.lookupSingleton(c)
	r.mu.RUnlock()
	if h == nil {
		r.hooks.noHandler(ctx, c)
		return nil
	}
	_, err := r.invoke(ctx, req, h, c, nil, nil)
	return err
}

// dispatchMessage runs the command and continuation pre-checks, then the
// match-any, AND and OR handlers, stopping at the first Stop.
func (r *Router) dispatchMessage(ctx context.Context, req *Request, log logrus.FieldLogger) error {
	c := req.Category
	m := messageOf(req.Update, c)
	fired := false

	if c == Message || c == EditedMessage {
		if cmd, ok := parseCommand(m.Text); ok {
			identity := r.Identity()
			if !cmd.addressedTo(identity.Username) {
				log.WithField("addressed_to", cmd.username).Debug("command for another bot")
				return nil
			}
			r.mu.RLock()
			h := r.table.lookupCommand(cmd.token)
			r.mu.RUnlock()
			if h != nil {
				args := make(Args, len(cmd.args))
				for i, a := range cmd.args {
					args[i] = a
				}
				sig, err := r.invoke(ctx, req, h, Command, args, nil)
				if err != nil || sig == Stop {
					return err
				}
				fired = true
			}
		}

		if m.From != nil && (c == Message || m.Text != "") {
			resumed, err := r.resume(ctx, req, m.From.ID)
			if err != nil || resumed {
				return err
			}
		}
	}

	r.mu.RLock()
	candidates := r.table.lookupMessageCandidates(c, FieldsOf(m))
	r.mu.RUnlock()

	for _, h := range candidates {
		sig, err := r.invoke(ctx, req, h, c, nil, nil)
		if err != nil {
			return err
		}
		fired = true
		if sig == Stop {
			return nil
		}
	}
	if !fired {
		r.hooks.noHandler(ctx, c)
	}
	return nil
}

// resume invokes the pending continuation of userID, if any.
func (r *Router) resume(ctx context.Context, req *Request, userID int64) (bool, error) {
	botID := r.Identity().ID
	name, args, err := r.continuations.Resume(ctx, botID, userID)
	if err != nil {
		return false, err
	}
	if name == "" {
		return false, nil
	}

	r.mu.RLock()
	h := r.table.lookupForceReply(name)
	r.mu.RUnlock()
	if h == nil {
		return true, fmt.Errorf("%w: handler %q is not registered (bot %d, user %d)", ErrStaleContinuation, name, botID, userID)
	}
	_, err = r.invoke(ctx, req, h, ForceReply, args, nil)
	return true, err
}

// dispatchCallback tries exact, named, regex and predicate matching in that
// order. The first strategy that fires ends dispatch unless its handler
// returns Continue. The match-any handler runs only when nothing matched.
func (r *Router) dispatchCallback(ctx context.Context, req *Request) error {
	q := req.Update.CallbackQuery
	if q.Data == "" {
		return fmt.Errorf("%w: query %s", ErrMissingCallbackPayload, q.ID)
	}
	data := q.Data

	r.mu.RLock()
	cands := r.table.lookupCallbackQuery(data)
	r.mu.RUnlock()

	matched := false
	fire := func(h *Handler, args Args, match []string) (bool, error) {
		matched = true
		sig, err := r.invoke(ctx, req, h, CallbackQuery, args, match)
		return err != nil || sig == Stop, err
	}

	if h := cands.exact; h != nil {
		if done, err := fire(h, nil, nil); done {
			return err
		}
	}

	if name, _, _ := strings.Cut(data, callbackSeparator); cands.named[name] != nil {
		_, args, err := ParseCallbackData(data)
		if err != nil {
			return &HandlerError{Category: CallbackQuery, Handler: name, Err: err}
		}
		if done, err := fire(cands.named[name], args, nil); done {
			return err
		}
	}

	for _, route := range cands.regex {
		m := route.pattern.FindStringSubmatch(data)
		if m == nil {
			continue
		}
		args := make(Args, len(m)-1)
		for i, g := range m[1:] {
			args[i] = g
		}
		if done, err := fire(route.handler, args, m); done {
			return err
		}
		break
	}

	for _, h := range cands.predicate {
		args, ok, err := r.predicate(ctx, h, data)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if done, err := fire(h, args, nil); done {
			return err
		}
		break
	}

	if !matched {
		if cands.any == nil {
			r.hooks.noHandler(ctx, CallbackQuery)
			return nil
		}
		_, err := r.invoke(ctx, req, cands.any, CallbackQuery, nil, nil)
		return err
	}
	return nil
}

// predicate evaluates a handler's predicate, converting a panic to an error.
func (r *Router) predicate(ctx context.Context, h *Handler, data string) (args Args, ok bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &HandlerError{Category: CallbackQuery, Handler: h.Name, Err: &panicError{value: v}}
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, false, &HandlerError{Category: CallbackQuery, Handler: h.Name, Err: err}
	}
	res, ok := h.Callback.Predicate(data, h.Callback.Config)
	return Args(res), ok, nil
}

// invoke runs one handler with the observability hooks around it.
func (r *Router) invoke(ctx context.Context, base *Request, h *Handler, c Category, args Args, match []string) (Signal, error) {
	if err := ctx.Err(); err != nil {
		return Stop, &HandlerError{Category: c, Handler: h.Name, Err: err}
	}

	req := *base
	req.Category = c
	req.Handler = h.Name
	req.Args = args
	req.Match = match

	r.hooks.dispatch(ctx, c, h.Name)
	start := time.Now()
	var sig Signal
	err := call(ctx, &req, func(ctx context.Context, req *Request) (Signal, error) {
		var err error
		sig, err = h.Func(ctx, req)
		return sig, err
	})
	if err != nil {
		err = &HandlerError{Category: c, Handler: h.Name, Err: err}
	}
	r.hooks.done(ctx, c, h.Name, err, time.Since(start))
	return sig, err
}

// call runs fn, converting a panic to an error.
func call(ctx context.Context, req *Request, fn HandlerFunc) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{value: v}
		}
	}()
	_, err = fn(ctx, req)
	return err
}
