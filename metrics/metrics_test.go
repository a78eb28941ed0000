package metrics_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/bjaus/tgroute"
	"github.com/bjaus/tgroute/metrics"
)

type CollectorSuite struct {
	suite.Suite
	reg       *prometheus.Registry
	collector *metrics.Collector
	router    *tgroute.Router
}

func TestCollectorSuite(t *testing.T) {
	suite.Run(t, new(CollectorSuite))
}

func (s *CollectorSuite) SetupTest() {
	s.reg = prometheus.NewRegistry()
	c, err := metrics.NewCollector(s.reg)
	s.Require().NoError(err)
	s.collector = c
	s.router = tgroute.New(c.Options()...)
}

func message(text string) *models.Update {
	return &models.Update{ID: 1, Message: &models.Message{Text: text, From: &models.User{ID: 7}}}
}

func (s *CollectorSuite) TestCountsSuccessfulInvocations() {
	s.Require().NoError(s.router.Handle(tgroute.Message, "echo", func(context.Context, *tgroute.Request) (tgroute.Signal, error) {
		return tgroute.Stop, nil
	}))

	s.Require().NoError(s.router.Route(context.Background(), nil, message("hi")))
	s.Require().NoError(s.router.Route(context.Background(), nil, message("there")))

	expected := `
# HELP tgroute_handler_invocations_total Total number of handler invocations
# TYPE tgroute_handler_invocations_total counter
tgroute_handler_invocations_total{category="message",handler="echo"} 2
`
	s.Assert().NoError(testutil.GatherAndCompare(s.reg, strings.NewReader(expected), "tgroute_handler_invocations_total"))
	s.Assert().Equal(1, testutil.CollectAndCount(s.reg, "tgroute_handler_duration_seconds"))
}

func (s *CollectorSuite) TestCountsFailures() {
	s.Require().NoError(s.router.Handle(tgroute.Message, "broken", func(context.Context, *tgroute.Request) (tgroute.Signal, error) {
		return tgroute.Stop, errors.New("boom")
	}))

	s.Require().Error(s.router.Route(context.Background(), nil, message("hi")))

	expected := `
# HELP tgroute_handler_failures_total Total number of handler invocations that returned an error
# TYPE tgroute_handler_failures_total counter
tgroute_handler_failures_total{category="message",handler="broken"} 1
`
	s.Assert().NoError(testutil.GatherAndCompare(s.reg, strings.NewReader(expected), "tgroute_handler_failures_total"))
}

func (s *CollectorSuite) TestCountsUnroutedUpdates() {
	s.Require().NoError(s.router.Route(context.Background(), nil, message("nobody listens")))

	expected := `
# HELP tgroute_unrouted_updates_total Total number of updates no handler fired for
# TYPE tgroute_unrouted_updates_total counter
tgroute_unrouted_updates_total{category="message"} 1
`
	s.Assert().NoError(testutil.GatherAndCompare(s.reg, strings.NewReader(expected), "tgroute_unrouted_updates_total"))
}

func (s *CollectorSuite) TestObserveWebhook() {
	s.collector.ObserveWebhook(200)
	s.collector.ObserveWebhook(200)
	s.collector.ObserveWebhook(404)

	expected := `
# HELP tgroute_webhook_requests_total Total number of webhook requests by response code
# TYPE tgroute_webhook_requests_total counter
tgroute_webhook_requests_total{code="200"} 2
tgroute_webhook_requests_total{code="404"} 1
`
	s.Assert().NoError(testutil.GatherAndCompare(s.reg, strings.NewReader(expected), "tgroute_webhook_requests_total"))
}

func (s *CollectorSuite) TestDoubleRegistrationFails() {
	_, err := metrics.NewCollector(s.reg)
	s.Assert().Error(err)
}
