package tgroute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type HooksSuite struct {
	suite.Suite
}

func TestHooksSuite(t *testing.T) {
	suite.Run(t, new(HooksSuite))
}

func (s *HooksSuite) TestDispatchAndSuccess() {
	var order []string

	r := newTestRouter(
		WithOnDispatch(func(_ context.Context, c Category, handler string) {
			order = append(order, "dispatch:"+c.String()+":"+handler)
		}),
		WithOnSuccess(func(_ context.Context, c Category, handler string, d time.Duration) {
			order = append(order, "success:"+handler)
		}),
		WithOnFailure(func(context.Context, Category, string, error, time.Duration) {
			order = append(order, "failure")
		}),
	)
	s.Require().NoError(r.HandleCommand("start", func(context.Context, *Request) (Signal, error) {
		order = append(order, "handler")
		return Stop, nil
	}, "/start"))

	s.Require().NoError(r.Route(context.Background(), nil, textUpdate("/start")))

	s.Assert().Equal([]string{"dispatch:command:start", "handler", "success:start"}, order)
}

func (s *HooksSuite) TestFailureReceivesWrappedError() {
	boom := errors.New("boom")
	var got error

	r := newTestRouter(WithOnFailure(func(_ context.Context, _ Category, _ string, err error, _ time.Duration) {
		got = err
	}))
	s.Require().NoError(r.Handle(Message, "any", func(context.Context, *Request) (Signal, error) {
		return Stop, boom
	}))

	s.Require().Error(r.Route(context.Background(), nil, textUpdate("hi")))

	s.Assert().ErrorIs(got, boom)
	var he *HandlerError
	s.Assert().ErrorAs(got, &he)
}

func (s *HooksSuite) TestMultipleHooksRunInOrder() {
	var order []string

	r := newTestRouter(
		WithOnNoHandler(func(context.Context, Category) { order = append(order, "first") }),
		WithOnNoHandler(func(context.Context, Category) { order = append(order, "second") }),
	)

	s.Require().NoError(r.Route(context.Background(), nil, textUpdate("hi")))

	s.Assert().Equal([]string{"first", "second"}, order)
}

func (s *HooksSuite) TestNoHandlerNotCalledWhenSomethingFired() {
	called := false

	r := newTestRouter(WithOnNoHandler(func(context.Context, Category) { called = true }))
	s.Require().NoError(r.HandleCallback("any", func(context.Context, *Request) (Signal, error) {
		return Stop, nil
	}, CallbackMatch{Any: true}))

	s.Require().NoError(r.Route(context.Background(), nil, callbackUpdate("x")))

	s.Assert().False(called)
}

type ErrorMatcherSuite struct {
	suite.Suite
}

func TestErrorMatcherSuite(t *testing.T) {
	suite.Run(t, new(ErrorMatcherSuite))
}

func (s *ErrorMatcherSuite) TestIs() {
	target := errors.New("target")
	wrapped := &HandlerError{Category: Message, Handler: "h", Err: target}

	s.Assert().True(Is(target)(wrapped))
	s.Assert().False(Is(ErrStaleContinuation)(wrapped))
}

func (s *ErrorMatcherSuite) TestAs() {
	s.Assert().True(As[*HandlerError]()(&HandlerError{Err: errors.New("x")}))
	s.Assert().False(As[*HandlerError]()(errors.New("plain")))
}

func (s *ErrorMatcherSuite) TestCatchAll() {
	s.Assert().True(errorHandler{}.matches(errors.New("anything")))
}

func (s *ErrorMatcherSuite) TestAnyMatcherSuffices() {
	eh := errorHandler{matchers: []ErrorMatcher{Is(ErrNoContinuation), Is(ErrStaleContinuation)}}

	s.Assert().True(eh.matches(ErrStaleContinuation))
	s.Assert().False(eh.matches(ErrUnknownCategory))
}

func (s *ErrorMatcherSuite) TestPhaseString() {
	s.Assert().Equal("before", Before.String())
	s.Assert().Equal("after", After.String())
	s.Assert().Equal("unknown", Phase(0).String())
}
