package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/keyproxy/internal/cryptox"
	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/keyproxy/internal/server/store"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(repotest.NewSQLiteDB(t), repomanager.NewSQLiteRepositoryManager())
}

func newTestCipher(t *testing.T) *cryptox.Cipher {
	t.Helper()
	c, err := cryptox.NewCipher(testSecret)
	require.NoError(t, err)
	return c
}

func newKeyService(t *testing.T, st *store.Store, envKey string) *APIKeyService {
	t.Helper()
	return NewAPIKeyService(st, st, newTestCipher(t), NewValidator(3, 5*1024*1024), envKey, logging.Nop{})
}

func newTestUser(t *testing.T, st *store.Store, name string) string {
	t.Helper()
	u, err := st.EnsureUser(context.Background(), name, "pw")
	require.NoError(t, err)
	return u.ID
}
