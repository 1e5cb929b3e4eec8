package users

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/common"
	"github.com/dmitrijs2005/keyproxy/internal/server/models"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_CreateAndRead(t *testing.T) {
	db := repotest.NewSQLiteDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	u := &models.User{ID: "u-1", UserName: "alice", PasswordSalt: "s", PasswordHash: "h", CreatedAt: now}

	created, err := repo.CreateIfAbsent(ctx, u)
	require.NoError(t, err)
	assert.True(t, created)

	dup := *u
	dup.ID = "u-2"
	created, err = repo.CreateIfAbsent(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created, "username is unique")

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.True(t, now.Equal(got.CreatedAt))

	got, err = repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Lock(ctx, "u-1"))
	assert.ErrorIs(t, repo.Lock(ctx, "nope"), common.ErrorNotFound)
}
