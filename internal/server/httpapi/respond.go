package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
)

// maxBodyBytes bounds request bodies; reference images travel inline.
const maxBodyBytes = 64 << 20

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw passes an upstream body through unchanged.
func writeRaw(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError renders err as {error, details?}. Errors outside the apperr
// taxonomy are logged and hidden behind a generic 500.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if e, ok := apperr.As(err); ok {
		if e.Status >= http.StatusInternalServerError {
			s.logger.Warn(ctx, "request failed", "status", e.Status, "error", e.Message)
		}
		writeJSON(w, e.Status, errorBody{Error: e.Message, Details: e.Details})
		return
	}

	s.logger.Error(ctx, "internal error", "error", err)
	e := apperr.Internal("internal server error")
	writeJSON(w, e.Status, errorBody{Error: e.Message})
}

// decodeJSON fills v from the request body. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Validation("Invalid JSON body")
}
