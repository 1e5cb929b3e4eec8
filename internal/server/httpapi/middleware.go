package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
	"github.com/dmitrijs2005/keyproxy/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const (
	userIDKey   ctxKey = "userID"
	usernameKey ctxKey = "username"
)

func userIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

func usernameFrom(ctx context.Context) string {
	v, _ := ctx.Value(usernameKey).(string)
	return v
}

func withUser(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requireSession resolves the caller. Without a valid session the request
// is rejected with 401, or served as the seed user when autoLogin is on.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if token := sessionToken(r); token != "" {
			claims, err := s.svc.Auth.Authenticate(ctx, token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(withUser(ctx, claims.UserID, claims.Username)))
				return
			}
			if _, ok := apperr.As(err); !ok || !s.autoLogin {
				s.writeError(ctx, w, err)
				return
			}
		}

		if !s.autoLogin {
			s.writeError(ctx, w, errAuthRequired)
			return
		}

		sess, err := s.svc.Auth.DefaultSession(ctx)
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}
		s.logger.Debug(ctx, "default session issued", "username", sess.Username)
		s.setSessionCookie(w, sess.Token, sess.ExpiresAt)
		next.ServeHTTP(w, r.WithContext(withUser(ctx, sess.UserID, sess.Username)))
	})
}

// observe logs each request and feeds the HTTP metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)

		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		}
		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
