package tgroute

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bjaus/tgroute/session"
)

const (
	fieldContinuationHandler = "force_reply_handler"
	fieldContinuationArgs    = "force_reply_args"
	fieldContinuationTTL     = "force_reply_ttl"
)

// Continuations associates a user with the force-reply handler their next
// message resumes, plus the arguments bound when the continuation was joined.
// Records live in a session.Store and expire by its TTL rules. The ttl given
// to Join is kept with the record and every later read extends it by that
// same window.
type Continuations struct {
	store  session.Store
	router *Router
	ttl    time.Duration
}

func continuationKey(botID, userID int64) string {
	return fmt.Sprintf("tgroute:%d:%d", botID, userID)
}

// Join makes handler the target of the user's next message. The handler
// must be registered for ForceReply. Args must be JSON-encodable. A ttl of
// zero means the router default.
func (c *Continuations) Join(ctx context.Context, botID, userID int64, handler string, ttl time.Duration, args ...any) error {
	if !c.router.hasForceReply(handler) {
		return fmt.Errorf("%w: %q", ErrNotAForceReplyHandler, handler)
	}
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode continuation args: %w", err)
	}
	ttl = c.ttlOr(ttl)
	return c.store.UpdateFields(ctx, continuationKey(botID, userID), map[string]string{
		fieldContinuationHandler: handler,
		fieldContinuationArgs:    string(encoded),
		fieldContinuationTTL:     ttl.String(),
	}, ttl)
}

// Resume returns the pending handler name and bound arguments. The name is
// empty when nothing is pending. Numbers in args decode as json.Number.
func (c *Continuations) Resume(ctx context.Context, botID, userID int64) (string, Args, error) {
	key := continuationKey(botID, userID)
	fields, err := c.store.Snapshot(ctx, key, c.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("read continuation: %w", err)
	}
	handler := fields[fieldContinuationHandler]
	if handler == "" {
		return "", nil, nil
	}
	if err := c.extend(ctx, key, c.window(fields)); err != nil {
		return "", nil, err
	}
	raw := fields[fieldContinuationArgs]
	if raw == "" {
		return handler, Args{}, nil
	}
	args, err := decodeArgs(raw)
	if err != nil {
		return "", nil, fmt.Errorf("decode continuation args: %w", err)
	}
	return handler, args, nil
}

// Update keeps a pending continuation alive, for example to re-prompt after
// invalid input. A positive ttl becomes the record's new window; zero keeps
// the one it was joined with. A non-empty handler replaces the target;
// bound arguments are kept.
func (c *Continuations) Update(ctx context.Context, botID, userID int64, ttl time.Duration, handler string) error {
	if handler != "" && !c.router.hasForceReply(handler) {
		return fmt.Errorf("%w: %q", ErrNotAForceReplyHandler, handler)
	}
	key := continuationKey(botID, userID)
	fields, err := c.store.Snapshot(ctx, key, c.ttl)
	if err != nil {
		return fmt.Errorf("read continuation: %w", err)
	}
	current := fields[fieldContinuationHandler]
	if current == "" {
		return ErrNoContinuation
	}

	if ttl <= 0 && (handler == "" || handler == current) {
		return c.extend(ctx, key, c.window(fields))
	}
	if ttl <= 0 {
		ttl = c.window(fields)
	}
	update := map[string]string{fieldContinuationTTL: ttl.String()}
	if handler != "" {
		update[fieldContinuationHandler] = handler
	}
	return c.store.UpdateFields(ctx, key, update, ttl)
}

// Remove completes the continuation.
func (c *Continuations) Remove(ctx context.Context, botID, userID int64) error {
	return c.store.DeleteKey(ctx, continuationKey(botID, userID))
}

// Store exposes the underlying session store to handlers that keep their
// own per-user state next to the continuation.
func (c *Continuations) Store() session.Store { return c.store }

// window returns the ttl a record was joined with, or the router default
// for records written without one.
func (c *Continuations) window(fields map[string]string) time.Duration {
	if d, err := time.ParseDuration(fields[fieldContinuationTTL]); err == nil && d > 0 {
		return d
	}
	return c.ttl
}

// extend moves the expiry of key to now+ttl. Reads already extended it by
// the router default, so only a different window needs another write.
func (c *Continuations) extend(ctx context.Context, key string, ttl time.Duration) error {
	if ttl == c.ttl {
		return nil
	}
	if _, _, err := c.store.GetField(ctx, key, fieldContinuationHandler, ttl); err != nil {
		return fmt.Errorf("refresh continuation: %w", err)
	}
	return nil
}

func (c *Continuations) ttlOr(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return c.ttl
}
