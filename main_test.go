package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MindMateGo/store"
	"MindMateGo/utils"
)

func TestSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	now := time.Date(2024, 3, 27, 12, 0, 0, 0, time.UTC)

	require.NoError(t, seed(ctx, st, "demo", now, time.UTC))
	day := utils.DayKey(now, time.UTC)
	first, err := st.GetChat(ctx, "demo", "seed-"+day)
	require.NoError(t, err)
	mood, err := st.GetMood(ctx, "demo", day)
	require.NoError(t, err)

	require.NoError(t, seed(ctx, st, "demo", now, time.UTC))

	again, err := st.GetChat(ctx, "demo", "seed-"+day)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, again.Messages, 2)

	moodAgain, err := st.GetMood(ctx, "demo", day)
	require.NoError(t, err)
	assert.Equal(t, mood.ID, moodAgain.ID)

	n, err := st.CountChats(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, int64(len(seedMoods)), n)
}
