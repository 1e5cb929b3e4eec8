package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/dmitrijs2005/keyproxy/internal/server/upstream"
)

const (
	DefaultDrawModel   = "nano-banana-fast"
	DefaultAspectRatio = "auto"
	DefaultWebHook     = "-1"
	DefaultChatModel   = "gpt-4o-mini"
)

// Upstream is the transport to the third-party API.
type Upstream interface {
	PostJSON(ctx context.Context, endpoint string, headers http.Header, payload any) (json.RawMessage, error)
	OpenStream(ctx context.Context, endpoint string, headers http.Header, payload any) (io.ReadCloser, error)
}

// HeaderBuilder resolves the upstream credentials for a user.
type HeaderBuilder interface {
	BuildHeaders(ctx context.Context, userID string) (http.Header, error)
}

type DrawRequest struct {
	Prompt       string   `json:"prompt"`
	Model        string   `json:"model,omitempty"`
	AspectRatio  string   `json:"aspectRatio,omitempty"`
	ImageSize    string   `json:"imageSize,omitempty"`
	URLs         []string `json:"urls,omitempty"`
	WebHook      string   `json:"webHook,omitempty"`
	ShutProgress bool     `json:"shutProgress,omitempty"`
}

type ChatRequest struct {
	Model    string            `json:"model,omitempty"`
	Messages []json.RawMessage `json:"messages"`
	Stream   bool              `json:"stream,omitempty"`
}

// drawPayload is what the draw endpoint receives.
type drawPayload struct {
	Model        string   `json:"model"`
	Prompt       string   `json:"prompt"`
	AspectRatio  string   `json:"aspectRatio"`
	ShutProgress bool     `json:"shutProgress"`
	WebHook      string   `json:"webHook"`
	ImageSize    string   `json:"imageSize,omitempty"`
	URLs         []string `json:"urls,omitempty"`
}

type chatPayload struct {
	Model    string            `json:"model"`
	Messages []json.RawMessage `json:"messages"`
	Stream   bool              `json:"stream"`
}

// ChatResult holds either a buffered body or an open stream.
type ChatResult struct {
	Body   json.RawMessage
	Stream *Stream
}

// ProxyService forwards validated requests upstream with the caller's active
// key and counts the successful ones.
type ProxyService struct {
	headers   HeaderBuilder
	usage     UsageStore
	upstream  Upstream
	endpoints upstream.Endpoints
	validator *Validator
	logger    logging.Logger
}

func NewProxyService(headers HeaderBuilder, usage UsageStore, up Upstream, endpoints upstream.Endpoints, validator *Validator, logger logging.Logger) *ProxyService {
	return &ProxyService{
		headers:   headers,
		usage:     usage,
		upstream:  up,
		endpoints: endpoints,
		validator: validator,
		logger:    logger,
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// GenerateImage submits a draw job and returns the upstream body verbatim.
func (s *ProxyService) GenerateImage(ctx context.Context, userID string, req DrawRequest) (json.RawMessage, error) {
	prompt := strings.TrimSpace(req.Prompt)
	urls := SanitizeURLs(req.URLs)

	if err := s.validator.Prompt(prompt); err != nil {
		return nil, err
	}
	if err := s.validator.ReferenceImages(urls); err != nil {
		return nil, err
	}

	payload := drawPayload{
		Model:        orDefault(req.Model, DefaultDrawModel),
		Prompt:       prompt,
		AspectRatio:  orDefault(req.AspectRatio, DefaultAspectRatio),
		ShutProgress: req.ShutProgress,
		WebHook:      orDefault(req.WebHook, DefaultWebHook),
		ImageSize:    strings.TrimSpace(req.ImageSize),
		URLs:         urls,
	}
	return s.call(ctx, userID, s.endpoints.Draw, payload)
}

// GetImageResult polls a draw job.
func (s *ProxyService) GetImageResult(ctx context.Context, userID, drawID string) (json.RawMessage, error) {
	drawID = strings.TrimSpace(drawID)
	if err := s.validator.DrawID(drawID); err != nil {
		return nil, err
	}
	return s.call(ctx, userID, s.endpoints.Result, map[string]string{"id": drawID})
}

// ChatCompletion forwards a chat request. With Stream set the result holds
// an open stream bound to ctx, which the caller must relay or close.
func (s *ProxyService) ChatCompletion(ctx context.Context, userID string, req ChatRequest) (*ChatResult, error) {
	if err := s.validator.Messages(req.Messages); err != nil {
		return nil, err
	}

	payload := chatPayload{
		Model:    orDefault(req.Model, DefaultChatModel),
		Messages: req.Messages,
		Stream:   req.Stream,
	}

	if !req.Stream {
		body, err := s.call(ctx, userID, s.endpoints.Chat, payload)
		if err != nil {
			return nil, err
		}
		return &ChatResult{Body: body}, nil
	}

	h, err := s.headers.BuildHeaders(ctx, userID)
	if err != nil {
		return nil, err
	}

	body, err := s.upstream.OpenStream(ctx, s.endpoints.Chat, h, payload)
	if err != nil {
		return nil, err
	}
	s.recordUsage(ctx, userID)
	return &ChatResult{Stream: NewStream(body)}, nil
}

func (s *ProxyService) call(ctx context.Context, userID, endpoint string, payload any) (json.RawMessage, error) {
	h, err := s.headers.BuildHeaders(ctx, userID)
	if err != nil {
		return nil, err
	}

	body, err := s.upstream.PostJSON(ctx, endpoint, h, payload)
	if err != nil {
		return nil, err
	}
	s.recordUsage(ctx, userID)
	return body, nil
}

// recordUsage only logs failures.
func (s *ProxyService) recordUsage(ctx context.Context, userID string) {
	if err := s.usage.RecordUsage(ctx, userID); err != nil {
		s.logger.Warn(ctx, "record usage failed", "user_id", userID, "error", err)
	}
}
