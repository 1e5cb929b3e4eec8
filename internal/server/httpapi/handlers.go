package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/keyproxy/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type addKeyRequest struct {
	Value string `json:"value"`
}

type idRequest struct {
	ID string `json:"id"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		if err := s.svc.Health.Ping(r.Context()); err != nil {
			s.logger.Error(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.svc.Keys.Profile(ctx, userIDFrom(ctx))
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	if err := s.svc.Keys.Bootstrap(ctx, userID); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	set, err := s.svc.Keys.Serialize(ctx, userID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) addKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	set, err := s.svc.Keys.Add(ctx, userIDFrom(ctx), req.Value)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	set, err := s.svc.Keys.Delete(ctx, userIDFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) setActiveKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req idRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	set, err := s.svc.Keys.SetActive(ctx, userIDFrom(ctx), req.ID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) draw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.DrawRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	body, err := s.svc.Proxy.GenerateImage(ctx, userIDFrom(ctx), req)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeRaw(w, body)
}

func (s *Server) result(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req idRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	body, err := s.svc.Proxy.GetImageResult(ctx, userIDFrom(ctx), req.ID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeRaw(w, body)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	res, err := s.svc.Proxy.ChatCompletion(ctx, userIDFrom(ctx), req)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	if res.Stream == nil {
		writeRaw(w, res.Body)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	flush := func() { _ = rc.Flush() }
	flush()

	// headers are gone, so a failed relay can only be logged
	if err := res.Stream.Relay(ctx, w, flush); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug(ctx, "chat stream cancelled by client", "username", usernameFrom(ctx))
			return
		}
		s.logger.Warn(ctx, "chat stream aborted", "username", usernameFrom(ctx), "error", err)
	}
}
