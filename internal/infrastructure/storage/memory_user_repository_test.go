package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"boxity-analyzer/internal/domain/entity"
)

func TestMemoryUserRepository_GetCreatesUser(t *testing.T) {
	repo := NewMemoryUserRepository()

	user, err := repo.Get(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), user.ChatID)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestMemoryUserRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	user.BeginCheck(entity.ModeDualAngle)

	stored, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, stored.State)

	require.NoError(t, repo.Save(ctx, user))
	stored, err = repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingBaseline, stored.State)
	require.Equal(t, entity.ModeDualAngle, stored.Mode)
}

func TestMemoryUserRepository_UpdateState(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.UpdateState(ctx, 5, entity.StateProcessing))
	_, err := repo.Get(ctx, 5, 50)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateState(ctx, 5, entity.StateAwaitingCurrent))
	user, err := repo.Get(ctx, 5, 50)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingCurrent, user.State)
}
