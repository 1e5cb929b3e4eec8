package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	mu       sync.Mutex
	failures int
	lockouts int
}

func (m *countingMetrics) LoginFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *countingMetrics) LoginLocked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockouts++
}

func newAuthService(t *testing.T, maxAttempts int) (*AuthService, *countingMetrics) {
	t.Helper()
	st := newTestStore(t)
	m := &countingMetrics{}
	cfg := AuthConfig{
		SecretKey:    testSecret,
		SessionTTL:   time.Hour,
		SeedUsername: "admin",
		SeedPassword: "banana123",
	}
	return NewAuthService(st, NewLoginThrottle(maxAttempts, 10*time.Minute, nil), cfg, m, logging.Nop{}), m
}

func TestAuthService_LoginSuccess(t *testing.T) {
	svc, _ := newAuthService(t, 5)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "  admin ", "banana123")
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)
	assert.NotEmpty(t, sess.UserID)
	assert.NotEmpty(t, sess.Token)

	claims, err := svc.ParseSession(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, claims.UserID)
	assert.Equal(t, "admin", claims.Username)
}

// Five failures lock the account and even the right password is
// rejected afterwards.
func TestAuthService_Lockout(t *testing.T) {
	svc, m := newAuthService(t, 5)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := svc.Login(ctx, "admin", "wrong")
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, 401, e.Status)
		assert.Contains(t, e.Message, "attempts remaining")
	}

	_, err := svc.Login(ctx, "admin", "wrong")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 429, e.Status)
	assert.Equal(t, "Too many failed attempts, locked for 10 minutes", e.Message)

	_, err = svc.Login(ctx, "admin", "banana123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrLocked))
	e, _ = apperr.As(err)
	assert.Equal(t, "Account locked, retry in 10 minutes", e.Message)

	assert.Equal(t, 5, m.failures)
	assert.Equal(t, 1, m.lockouts)
}

func TestAuthService_FailureMessage(t *testing.T) {
	svc, _ := newAuthService(t, 5)

	_, err := svc.Login(context.Background(), "admin", "nope")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid username or password, 4 attempts remaining", e.Message)
}

func TestAuthService_UnknownUser(t *testing.T) {
	svc, _ := newAuthService(t, 5)

	id, ok, err := svc.VerifyCredentials(context.Background(), "ghost", "pw")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestAuthService_SuccessResetsCounter(t *testing.T) {
	svc, _ := newAuthService(t, 2)
	ctx := context.Background()

	_, err := svc.Login(ctx, "admin", "wrong")
	require.Error(t, err)
	_, err = svc.Login(ctx, "admin", "banana123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "admin", "wrong")
	e, _ := apperr.As(err)
	assert.Equal(t, 401, e.Status, "counter restarted after success")
}

func TestAuthService_DefaultSession(t *testing.T) {
	svc, _ := newAuthService(t, 5)

	sess, err := svc.DefaultSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)

	id, err := svc.EnsureSeedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, sess.UserID)
}

func TestAuthService_ParseSessionRejectsGarbage(t *testing.T) {
	svc, _ := newAuthService(t, 5)

	_, err := svc.ParseSession("not-a-token")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 401, e.Status)
	assert.Equal(t, "Authentication required", e.Message)
}

func TestAuthService_AuthenticateUnknownUser(t *testing.T) {
	svc, _ := newAuthService(t, 5)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "admin", "banana123")
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, claims.UserID)

	orphan, err := svc.issue("no-such-user", "ghost")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, orphan.Token)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 401, e.Status)
}
