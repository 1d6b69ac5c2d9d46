package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/infrastructure/storage"
)

func TestUserService_BeginCheckAndCancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.BeginCheck(ctx, 1, 10, entity.ModeDualAngle)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingBaseline, user.State)
	require.Equal(t, entity.ModeDualAngle, user.Mode)

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_SetState(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.SetState(ctx, 2, 20, entity.StateAwaitingCurrent)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingCurrent, user.State)

	stored, err := svc.Get(ctx, 2, 20)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingCurrent, stored.State)
}
