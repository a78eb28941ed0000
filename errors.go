package tgroute

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory is returned when an update carries no payload the
	// router knows how to route.
	ErrUnknownCategory = errors.New("unknown update category")

	// ErrInvalidHandler is returned by Register when a handler's match
	// criteria are incomplete or contradictory.
	ErrInvalidHandler = errors.New("invalid handler")

	// ErrNotAForceReplyHandler is returned by Continuations.Join when the
	// named handler is not registered for the ForceReply category.
	ErrNotAForceReplyHandler = errors.New("not a force-reply handler")

	// ErrStaleContinuation is returned when a pending continuation names a
	// handler that is no longer registered.
	ErrStaleContinuation = errors.New("stale continuation")

	// ErrMissingCallbackPayload is returned for callback queries without data.
	ErrMissingCallbackPayload = errors.New("callback query without data")

	// ErrNoContinuation is returned by Continuations.Update when nothing is
	// pending for the user.
	ErrNoContinuation = errors.New("no continuation pending")

	// ErrInvalidCallbackData is returned when a named callback payload carries
	// arguments that are not a JSON array.
	ErrInvalidCallbackData = errors.New("invalid callback data")
)

// HandlerError wraps an error returned (or a panic raised) by a handler,
// interceptor or predicate with the routing context it happened in.
type HandlerError struct {
	Category Category
	Handler  string
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler %q: %v", e.Category, e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// invalidHandler builds an ErrInvalidHandler with a reason.
func invalidHandler(name, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidHandler, name, fmt.Sprintf(format, args...))
}

// panicError is what a recovered panic turns into.
type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }
