// Package httpapi is the HTTP surface: login and logout, key management and
// the proxied draw, result and chat endpoints.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/dmitrijs2005/keyproxy/internal/server/metrics"
	"github.com/dmitrijs2005/keyproxy/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Auth   *services.AuthService
	Keys   *services.APIKeyService
	Proxy  *services.ProxyService
	Health Pinger
}

type Server struct {
	address   string
	svc       Services
	metrics   *metrics.Metrics
	logger    logging.Logger
	autoLogin bool
}

// NewServer builds the HTTP server. With autoLogin set, requests without a
// valid session are served as the seed user and receive its session cookie.
func NewServer(address string, l logging.Logger, svc Services, m *metrics.Metrics, autoLogin bool) *Server {
	return &Server{
		address:   address,
		svc:       svc,
		metrics:   m,
		logger:    l.With("module", "http_server"),
		autoLogin: autoLogin,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/login", s.loginStatus)
	r.Post("/login", s.login)
	r.Get("/logout", s.logout)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/profile", s.profile)

		r.Get("/keys", s.listKeys)
		r.Post("/keys", s.addKey)
		r.Post("/keys/active", s.setActiveKey)
		r.Delete("/keys/{id}", s.deleteKey)

		r.Post("/draw", s.draw)
		r.Post("/result", s.result)
		r.Post("/chat", s.chat)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
