package tgroute

import (
	"context"
	"errors"
	"time"
)

// OnDispatchFunc is called just before a handler executes.
type OnDispatchFunc func(ctx context.Context, category Category, handler string)

// OnSuccessFunc is called after a handler returns without error.
type OnSuccessFunc func(ctx context.Context, category Category, handler string, duration time.Duration)

// OnFailureFunc is called after a handler returns an error.
type OnFailureFunc func(ctx context.Context, category Category, handler string, err error, duration time.Duration)

// OnNoHandlerFunc is called when an update of a known category reached no
// handler at all.
type OnNoHandlerFunc func(ctx context.Context, category Category)

// hooks holds the observability callbacks. They never influence dispatch.
type hooks struct {
	onDispatch  []OnDispatchFunc
	onSuccess   []OnSuccessFunc
	onFailure   []OnFailureFunc
	onNoHandler []OnNoHandlerFunc
}

// WithOnDispatch adds a hook called just before each handler executes.
// Multiple hooks are called in order.
//
// Example:
//
//	tgroute.WithOnDispatch(func(ctx context.Context, c tgroute.Category, handler string) {
//	    log.WithField("handler", handler).Debug("dispatching")
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(r *Router) {
		r.hooks.onDispatch = append(r.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after a handler succeeds.
// Multiple hooks are called in order.
//
// Example:
//
//	tgroute.WithOnSuccess(func(ctx context.Context, c tgroute.Category, handler string, d time.Duration) {
//	    histogram.WithLabelValues(c.String()).Observe(d.Seconds())
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(r *Router) {
		r.hooks.onSuccess = append(r.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a handler fails.
// Multiple hooks are called in order.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(r *Router) {
		r.hooks.onFailure = append(r.hooks.onFailure, fn)
	}
}

// WithOnNoHandler adds a hook called when an update fired no handler.
func WithOnNoHandler(fn OnNoHandlerFunc) Option {
	return func(r *Router) {
		r.hooks.onNoHandler = append(r.hooks.onNoHandler, fn)
	}
}

func (h *hooks) dispatch(ctx context.Context, c Category, handler string) {
	for _, fn := range h.onDispatch {
		fn(ctx, c, handler)
	}
}

func (h *hooks) done(ctx context.Context, c Category, handler string, err error, d time.Duration) {
	if err != nil {
		for _, fn := range h.onFailure {
			fn(ctx, c, handler, err, d)
		}
		return
	}
	for _, fn := range h.onSuccess {
		fn(ctx, c, handler, d)
	}
}

func (h *hooks) noHandler(ctx context.Context, c Category) {
	for _, fn := range h.onNoHandler {
		fn(ctx, c)
	}
}

// Phase selects when an interceptor runs.
type Phase int

const (
	Before Phase = iota + 1
	After
)

func (p Phase) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	}
	return "unknown"
}

// InterceptorFunc runs around normal dispatch. Its outcome never
// short-circuits dispatch; a returned error is routed like a handler error.
type InterceptorFunc func(ctx context.Context, req *Request) error

type interceptor struct {
	categories categorySet
	fn         InterceptorFunc
}

// categorySet is a set of categories; the zero value means all of them.
type categorySet uint32

func newCategorySet(cs []Category) categorySet {
	var s categorySet
	for _, c := range cs {
		s |= 1 << uint(c)
	}
	return s
}

func (s categorySet) all() bool { return s == 0 }

func (s categorySet) has(c Category) bool { return s&(1<<uint(c)) != 0 }

// ErrorMatcher selects the errors an error handler is interested in.
type ErrorMatcher func(err error) bool

// Is matches errors for which errors.Is(err, target) holds.
func Is(target error) ErrorMatcher {
	return func(err error) bool { return errors.Is(err, target) }
}

// As matches errors that have a T somewhere in their chain.
func As[T error]() ErrorMatcher {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// ErrorHandlerFunc observes an error raised during dispatch. The error is
// still returned from Route afterwards.
type ErrorHandlerFunc func(ctx context.Context, req *Request, err error)

type errorHandler struct {
	matchers []ErrorMatcher
	fn       ErrorHandlerFunc
}

func (e errorHandler) matches(err error) bool {
	if len(e.matchers) == 0 {
		return true
	}
	for _, m := range e.matchers {
		if m(err) {
			return true
		}
	}
	return false
}
