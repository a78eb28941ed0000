package tgroute

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Signal tells the router whether to keep dispatching the current update
// after a handler returns.
type Signal bool

const (
	// Stop ends dispatch of the current update. It is the zero value.
	Stop Signal = false
	// Continue lets later handlers for the same update run.
	Continue Signal = true
)

// HandlerFunc is the single callback shape used for every category.
//
// Handlers run sequentially within one update. A handler that needs to do
// asynchronous work should block until that work completes or ctx is done.
type HandlerFunc func(ctx context.Context, req *Request) (Signal, error)

// Request is what a handler receives for one invocation.
type Request struct {
	// Bot is the platform facade, passed through from Route unchanged.
	Bot *bot.Bot

	// Update is the inbound update.
	Update *models.Update

	// Category is the category the handler was registered for. Command and
	// ForceReply handlers see Command and ForceReply here.
	Category Category

	// Handler is the name of the handler being invoked.
	Handler string

	// Args holds positional arguments: command tokens, named callback
	// arguments, continuation bound arguments or predicate results.
	Args Args

	// Match holds the regular expression submatches for regex callback
	// handlers; Match[0] is the whole payload match.
	Match []string

	// DispatchID identifies the Route call, for log correlation.
	DispatchID string

	// Continuations is the router's force-reply store.
	Continuations *Continuations
}

// Message returns the message payload for message-like updates, or nil.
func (r *Request) Message() *models.Message {
	if r.Update == nil {
		return nil
	}
	c := r.Category
	if c == Command || c == ForceReply {
		if r.Update.Message != nil {
			return r.Update.Message
		}
		return r.Update.EditedMessage
	}
	return messageOf(r.Update, c)
}

// SenderID returns the id of the user behind a message or callback update.
func (r *Request) SenderID() (int64, bool) {
	if m := r.Message(); m != nil && m.From != nil {
		return m.From.ID, true
	}
	if r.Update != nil && r.Update.CallbackQuery != nil {
		return r.Update.CallbackQuery.From.ID, true
	}
	return 0, false
}

// Args is a positional argument list with typed accessors.
type Args []any

// Len returns the number of arguments.
func (a Args) Len() int { return len(a) }

// String returns argument i formatted as a string, or "" when out of range.
func (a Args) String(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	switch v := a[i].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns argument i as an integer. Strings and JSON numbers are parsed.
func (a Args) Int(i int) (int64, error) {
	if i < 0 || i >= len(a) {
		return 0, fmt.Errorf("argument %d out of range (len %d)", i, len(a))
	}
	switch v := a[i].(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("argument %d has type %T", i, v)
	}
}

// Predicate decides whether a callback payload matches. The returned
// arguments are passed to the handler; ok=false means "try the next one".
type Predicate func(data string, config map[string]any) (args []any, ok bool)

// CallbackMatch describes how a CallbackQuery handler matches payloads.
// Strategies may be combined; they are tried in a fixed priority order.
type CallbackMatch struct {
	// Data lists payloads that match by exact equality.
	Data []string

	// Named matches payloads of the form "name|[json args]" where name is
	// the handler name.
	Named bool

	// Patterns are tried in order; the first that matches wins.
	Patterns []*regexp.Regexp

	// Predicate is consulted last, with Config as its second argument.
	Predicate Predicate
	Config    map[string]any

	// Any makes the handler the fallback for payloads nothing else matched.
	Any bool
}

func (m CallbackMatch) empty() bool {
	return len(m.Data) == 0 && !m.Named && len(m.Patterns) == 0 && m.Predicate == nil && !m.Any
}

// Handler is a registered callback plus the criteria that select it.
type Handler struct {
	// Name identifies the handler in logs, continuations and Unregister.
	// It must be unique per callback.
	Name string

	Category Category
	Func     HandlerFunc

	// AnyOf fires the handler once if any listed field is present (message-like).
	AnyOf []Field
	// AllOf fires the handler only if every listed field is present (message-like).
	AllOf []Field

	// Commands lists command tokens such as "/start" (Command category).
	Commands []string

	// Callback describes payload matching (CallbackQuery category).
	Callback CallbackMatch
}

func (h *Handler) validate() error {
	if h.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidHandler)
	}
	if h.Func == nil {
		return invalidHandler(h.Name, "nil func")
	}
	if !h.Category.Valid() {
		return invalidHandler(h.Name, "unknown category %d", h.Category)
	}

	hasFields := len(h.AnyOf) > 0 || len(h.AllOf) > 0
	if hasFields && !h.Category.messageLike() {
		return invalidHandler(h.Name, "field match on %s", h.Category)
	}
	if len(h.AnyOf) > 0 && len(h.AllOf) > 0 {
		return invalidHandler(h.Name, "both AnyOf and AllOf set")
	}
	for _, f := range append(append([]Field(nil), h.AnyOf...), h.AllOf...) {
		if !f.valid() {
			return invalidHandler(h.Name, "unknown field %d", f)
		}
	}

	if len(h.Commands) > 0 && h.Category != Command {
		return invalidHandler(h.Name, "commands on %s", h.Category)
	}
	if h.Category == Command {
		if len(h.Commands) == 0 {
			return invalidHandler(h.Name, "no command tokens")
		}
		for _, c := range h.Commands {
			if normalizeCommand(c) == "/" {
				return invalidHandler(h.Name, "empty command token")
			}
		}
	}

	if !h.Callback.empty() && h.Category != CallbackQuery {
		return invalidHandler(h.Name, "callback match on %s", h.Category)
	}
	if h.Category == CallbackQuery {
		if h.Callback.empty() {
			return invalidHandler(h.Name, "no callback match strategy")
		}
		if h.Callback.Named && strings.Contains(h.Name, callbackSeparator) {
			return invalidHandler(h.Name, "named handler contains %q", callbackSeparator)
		}
		for i, p := range h.Callback.Patterns {
			if p == nil {
				return invalidHandler(h.Name, "nil pattern at %d", i)
			}
		}
	}
	return nil
}

// normalizeCommand lower-cases a command token and adds the leading slash.
// The wildcard token "*" is kept as is.
func normalizeCommand(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == AnyCommand {
		return token
	}
	return "/" + strings.TrimPrefix(token, "/")
}
