// Package services contains the server-side business logic: login and
// sessions, API key management, request validation and the upstream proxy.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
	"github.com/dmitrijs2005/keyproxy/internal/common"
	"github.com/dmitrijs2005/keyproxy/internal/cryptox"
	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/dmitrijs2005/keyproxy/internal/server/auth"
)

// Session is an issued login.
type Session struct {
	Token     string
	UserID    string
	Username  string
	ExpiresAt time.Time
}

type AuthConfig struct {
	SecretKey    string
	SessionTTL   time.Duration
	SeedUsername string
	SeedPassword string
}

// AuthService verifies credentials under a LoginThrottle and issues session
// tokens.
type AuthService struct {
	users    UserStore
	throttle *LoginThrottle
	cfg      AuthConfig
	metrics  AuthMetrics
	logger   logging.Logger

	// dummySalt and dummyHash make unknown usernames cost one hash too.
	dummySalt string
	dummyHash string
}

func NewAuthService(users UserStore, throttle *LoginThrottle, cfg AuthConfig, metrics AuthMetrics, logger logging.Logger) *AuthService {
	if metrics == nil {
		metrics = nopAuthMetrics{}
	}
	salt := cryptox.NewSalt()
	return &AuthService{
		users:     users,
		throttle:  throttle,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		dummySalt: salt,
		dummyHash: cryptox.HashPassword("", salt),
	}
}

// EnsureSeedUser creates the configured seed user if it does not exist.
func (s *AuthService) EnsureSeedUser(ctx context.Context) (string, error) {
	u, err := s.users.EnsureUser(ctx, s.cfg.SeedUsername, s.cfg.SeedPassword)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// VerifyCredentials returns the user id when password matches. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) VerifyCredentials(ctx context.Context, username, password string) (string, bool, error) {
	u, err := s.users.GetUserByName(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.VerifyPassword(password, s.dummySalt, s.dummyHash)
			return "", false, nil
		}
		return "", false, err
	}

	if !cryptox.VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return "", false, nil
	}
	return u.ID, true, nil
}

// Login checks the throttle, verifies the credentials and issues a session.
// Failures return an Authentication error with the attempts left, or a
// Locked error once the username is locked.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)

	if err := s.throttle.Check(username); err != nil {
		return nil, err
	}

	if _, err := s.EnsureSeedUser(ctx); err != nil {
		return nil, err
	}

	userID, ok, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if !ok {
		s.metrics.LoginFailed()
		remaining, locked := s.throttle.Fail(username)
		if locked {
			s.metrics.LoginLocked()
			s.logger.Warn(ctx, "login locked", "username", username)
			return nil, apperr.Locked(fmt.Sprintf("Too many failed attempts, locked for %d minutes", s.throttle.LockMinutes()))
		}
		return nil, apperr.Authentication(fmt.Sprintf("Invalid username or password, %d attempts remaining", remaining))
	}

	s.throttle.Reset(username)
	s.logger.Info(ctx, "login", "username", username)
	return s.issue(userID, username)
}

// DefaultSession issues a session for the seed user without credentials.
func (s *AuthService) DefaultSession(ctx context.Context) (*Session, error) {
	id, err := s.EnsureSeedUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.issue(id, s.cfg.SeedUsername)
}

// ParseSession validates a session token.
func (s *AuthService) ParseSession(token string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(token, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, apperr.Authentication("Authentication required")
	}
	return claims, nil
}

// Authenticate validates a session token and checks that its user still
// exists.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.ParseSession(token)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.Authentication("Authentication required")
		}
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) issue(userID, username string) (*Session, error) {
	token, err := auth.GenerateToken(userID, username, []byte(s.cfg.SecretKey), s.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Session{
		Token:     token,
		UserID:    userID,
		Username:  username,
		ExpiresAt: time.Now().Add(s.cfg.SessionTTL),
	}, nil
}
