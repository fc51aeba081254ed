package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MindMateGo/models"
	"MindMateGo/store"
)

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewUserService(st)
	svc.now = fixedClock(testNow)

	user, err := svc.Ensure(ctx, Identity{Subject: "sub-1", Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", user.ID)
	assert.Equal(t, "09:00", user.ReminderTime)
	assert.True(t, user.Notifications)

	// 空字段不覆盖已有信息
	user, err = svc.Ensure(ctx, Identity{Subject: "sub-1", Email: "sam@new.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.Name)
	assert.Equal(t, "sam@new.example.com", user.Email)

	_, err = svc.Ensure(ctx, Identity{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdatePreferences(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewUserService(st)

	_, err := svc.Ensure(ctx, Identity{Subject: "u1"})
	require.NoError(t, err)

	off := false
	reminder := "21:30"
	user, err := svc.UpdatePreferences(ctx, "u1", models.PreferencesRequest{Notifications: &off, ReminderTime: &reminder})
	require.NoError(t, err)
	assert.False(t, user.Notifications)
	assert.Equal(t, "21:30", user.ReminderTime)
	assert.Equal(t, "UTC", user.Timezone)

	bad := "25:00"
	_, err = svc.UpdatePreferences(ctx, "u1", models.PreferencesRequest{ReminderTime: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdatePreferences(ctx, "nobody", models.PreferencesRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOnboardingSaveStep(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewOnboardingService(st, NewMemoryLocker())

	_, created, err := svc.SaveStep(ctx, "u1", models.OnboardingRequest{Question: "What brings you here?", Response: []string{"stress"}})
	require.NoError(t, err)
	assert.True(t, created)

	ec, created, err := svc.SaveStep(ctx, "u1", models.OnboardingRequest{Question: "What brings you here?", Response: []string{"stress", "sleep"}})
	require.NoError(t, err)
	assert.False(t, created)
	require.Len(t, ec.Responses, 1)
	assert.Equal(t, []string{"stress", "sleep"}, ec.Responses[0].Response)

	_, _, err = svc.SaveStep(ctx, "u1", models.OnboardingRequest{Question: " "})
	assert.ErrorIs(t, err, ErrValidation)
}
