package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUser_DefaultState(t *testing.T) {
	u := NewUser(1, 10)
	require.Equal(t, StateMainMenu, u.State)
	require.Equal(t, ModeSingleAngle, u.Mode)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, int64(10), u.ChatID)
}

func TestUser_AdvancePhoto_SingleAngle(t *testing.T) {
	u := NewUser(1, 10)
	u.BeginCheck(ModeSingleAngle)
	require.True(t, u.AwaitingPhoto())
	require.Equal(t, 2, u.ExpectedPhotos())

	require.False(t, u.AdvancePhoto())
	require.Equal(t, StateAwaitingCurrent, u.State)

	require.True(t, u.AdvancePhoto())
	require.Equal(t, StateProcessing, u.State)
	require.False(t, u.AwaitingPhoto())
}

func TestUser_AdvancePhoto_DualAngle(t *testing.T) {
	u := NewUser(1, 10)
	u.BeginCheck(ModeDualAngle)
	require.Equal(t, 4, u.ExpectedPhotos())

	states := []UserState{StateAwaitingCurrent, StateAwaitingBaseline2, StateAwaitingCurrent2}
	for _, want := range states {
		require.False(t, u.AdvancePhoto())
		require.Equal(t, want, u.State)
	}
	require.True(t, u.AdvancePhoto())
	require.Equal(t, StateProcessing, u.State)
}

func TestUser_AdvancePhoto_OutsideCheck(t *testing.T) {
	u := NewUser(1, 10)
	require.False(t, u.AdvancePhoto())
	require.Equal(t, StateMainMenu, u.State)
}
