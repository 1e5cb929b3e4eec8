package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
	"github.com/dmitrijs2005/keyproxy/internal/common"
)

var errAuthRequired = apperr.Authentication("Authentication required")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
}

type statusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// readLogin accepts a JSON body or form fields.
func readLogin(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := decodeJSON(r, &req)
		return req, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		return req, apperr.Validation("Invalid form body")
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := readLogin(w, r)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	sess, err := s.svc.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	if err := s.svc.Keys.Bootstrap(ctx, sess.UserID); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	s.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{OK: true, Username: sess.Username})
}

func (s *Server) loginStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{}
	if token := sessionToken(r); token != "" {
		if claims, err := s.svc.Auth.Authenticate(r.Context(), token); err == nil {
			resp.Authenticated = true
			resp.Username = claims.Username
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
