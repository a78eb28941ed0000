package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-telegram/bot/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bjaus/tgroute"
	"github.com/bjaus/tgroute/metrics"
)

// SecretHeader carries the secret token configured with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// DefaultMaxBodySize caps the size of one update body.
const DefaultMaxBodySize = 1 << 20

// Server is an http.Handler that feeds webhook deliveries into the router
// registered for the bot token in the URL.
//
// Routes:
//
//	POST /bot/{token}  one update
//	GET  /healthz      liveness
//	GET  /metrics      prometheus exposition
//
// Updates whose routing fails are still acknowledged with 200 so that the
// platform does not redeliver them; the failure is logged instead.
type Server struct {
	registry  *Registry
	secret    string
	maxBody   int64
	log       logrus.FieldLogger
	collector *metrics.Collector
	gatherer  prometheus.Gatherer
	mux       *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithSecret requires every delivery to carry secret in SecretHeader.
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics counts responses in c and serves g on /metrics. A nil g
// serves the default gatherer.
func WithMetrics(c *metrics.Collector, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.collector = c
		s.gatherer = g
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewServer returns a Server dispatching into reg.
func NewServer(reg *Registry, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		maxBody:  DefaultMaxBodySize,
		log:      logrus.StandardLogger(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	s.mux = mux.NewRouter()
	s.mux.HandleFunc("/bot/{token}", s.handleUpdate).Methods(http.MethodPost)
	s.mux.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	entry, ok := s.registry.Lookup(token)
	if !ok {
		s.respond(w, http.StatusNotFound)
		return
	}
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(s.secret)) != 1 {
		s.log.WithField("remote_addr", r.RemoteAddr).Warn("webhook delivery with bad secret")
		s.respond(w, http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBody+1))
	if err != nil {
		s.log.WithError(err).Warn("failed to read webhook body")
		s.respond(w, http.StatusBadRequest)
		return
	}
	if int64(len(body)) > s.maxBody {
		s.respond(w, http.StatusRequestEntityTooLarge)
		return
	}

	env, err := tgroute.Inspect(body)
	switch {
	case errors.Is(err, tgroute.ErrUnknownCategory):
		s.log.WithError(err).Info("ignoring update of unknown category")
		s.respond(w, http.StatusOK)
		return
	case err != nil:
		s.respond(w, http.StatusBadRequest)
		return
	}

	var u models.Update
	if err := json.Unmarshal(body, &u); err != nil {
		s.log.WithError(err).WithField("update_id", env.UpdateID()).Warn("failed to decode update")
		s.respond(w, http.StatusBadRequest)
		return
	}

	if err := entry.Router.Route(r.Context(), entry.Bot, &u); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"category":  env.Category().String(),
			"update_id": env.UpdateID(),
		}).Error("failed to route update")
	}
	s.respond(w, http.StatusOK)
}

func (s *Server) respond(w http.ResponseWriter, code int) {
	if s.collector != nil {
		s.collector.ObserveWebhook(code)
	}
	w.WriteHeader(code)
}
