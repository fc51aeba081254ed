package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MindMateGo/models"
)

func TestMemoryChatRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 3, 25, 10, 0, 0, 0, time.UTC)

	_, err := s.GetChat(ctx, "u1", "s1")
	require.ErrorIs(t, err, ErrNotFound)

	chat := models.NewChat("c1", "u1", "s1", now)
	chat.Append("m1", models.RoleUser, "hello", now)
	require.NoError(t, s.SaveChat(ctx, chat))

	// 调用方修改不影响已保存的数据
	chat.Append("m2", models.RoleAssistant, "hi", now)

	got, err := s.GetChat(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)

	n, err := s.CountChats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.DeleteChat(ctx, "u1", "s1"))
	assert.ErrorIs(t, s.DeleteChat(ctx, "u1", "s1"), ErrNotFound)
}

func TestMemoryListChatsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 3, 25, 10, 0, 0, 0, time.UTC)
	happy := models.MoodHappy

	for i := 0; i < 4; i++ {
		c := models.NewChat(fmt.Sprintf("c%d", i), "u1", fmt.Sprintf("s%d", i), base.AddDate(0, 0, -i))
		if i%2 == 0 {
			c.MoodDetected = &happy
		}
		require.NoError(t, s.SaveChat(ctx, c))
	}
	require.NoError(t, s.SaveChat(ctx, models.NewChat("other", "u2", "s0", base)))

	all, err := s.ListChats(ctx, ChatQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "c0", all[0].ID)

	oldest, err := s.ListChats(ctx, ChatQuery{UserID: "u1", Order: OldestFirst, Limit: 1})
	require.NoError(t, err)
	require.Len(t, oldest, 1)
	assert.Equal(t, "c3", oldest[0].ID)

	moods, err := s.ListChats(ctx, ChatQuery{UserID: "u1", MoodOnly: true, Since: base.AddDate(0, 0, -2)})
	require.NoError(t, err)
	assert.Len(t, moods, 2)

	window, err := s.ListChats(ctx, ChatQuery{UserID: "u1", Since: base.AddDate(0, 0, -2), Until: base})
	require.NoError(t, err)
	assert.Len(t, window, 2)
}

func TestMemoryMoodUpsertKeepsOnePerDay(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 3, 25, 10, 0, 0, 0, time.UTC)

	first := &models.MoodEntry{ID: "m1", UserID: "u1", Day: "2024-03-25", Date: now, CreatedAt: now}
	first.SetMood(models.MoodSad)
	require.NoError(t, s.SaveMood(ctx, first))

	second := &models.MoodEntry{ID: "m2", UserID: "u1", Day: "2024-03-25", Date: now.Add(time.Hour)}
	second.SetMood(models.MoodHappy)
	require.NoError(t, s.SaveMood(ctx, second))
	assert.Equal(t, "m1", second.ID)

	list, err := s.ListMoods(ctx, "u1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.MoodHappy, list[0].Mood)
	assert.Equal(t, 4, list[0].Score)
}

func TestMemoryTaskKeysAreDistinct(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 3, 25, 10, 0, 0, 0, time.UTC)
	ids := 0
	newID := func() string { ids++; return fmt.Sprintf("st%d", ids) }

	daily := &models.Task{ID: "t1", UserID: "u1", Scope: models.ScopeDaily, ScopeKey: "2024-03-25", Date: now, Status: models.TaskPending}
	daily.ReplaceSteps([]string{"a", "b"}, newID)
	session := &models.Task{ID: "t2", UserID: "u1", Scope: models.ScopeSession, ScopeKey: "2024-03-25", Date: now, Status: models.TaskPending}
	session.ReplaceSteps([]string{"c"}, newID)

	require.NoError(t, s.SaveTask(ctx, daily))
	require.NoError(t, s.SaveTask(ctx, session))

	got, err := s.GetTask(ctx, "u1", models.DailyKey("2024-03-25"))
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)

	got, err = s.GetTaskByStep(ctx, "u1", "st3")
	require.NoError(t, err)
	assert.Equal(t, "t2", got.ID)

	_, err = s.GetTaskByStep(ctx, "u2", "st3")
	assert.ErrorIs(t, err, ErrNotFound)

	dup := &models.Task{ID: "t3", UserID: "u1", Scope: models.ScopeDaily, ScopeKey: "2024-03-25"}
	assert.ErrorIs(t, s.SaveTask(ctx, dup), ErrDuplicate)

	pending, err := s.ListTasks(ctx, TaskQuery{UserID: "u1", Status: models.TaskPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestMemoryRecordEventOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ev := &models.SubscriptionEvent{ID: "evt_1", Type: models.EventSubscriptionActivated}

	created, err := s.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, created)
}
