package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoodScoreIsMonotonic(t *testing.T) {
	prev := 0
	for _, m := range MoodLevels {
		assert.Greater(t, m.Score(), prev, m)
		prev = m.Score()
	}
	assert.Equal(t, 3, MoodLevel("unknown").Score())
}

func TestJourneyPercentage(t *testing.T) {
	want := map[MoodLevel]int{
		MoodVerySad: 10, MoodSad: 30, MoodNeutral: 60, MoodHappy: 80, MoodVeryHappy: 95,
	}
	for m, p := range want {
		assert.Equal(t, p, m.JourneyPercentage(), m)
	}
}

func TestParseMoodLevel(t *testing.T) {
	m, err := ParseMoodLevel("happy")
	require.NoError(t, err)
	assert.Equal(t, MoodHappy, m)

	_, err = ParseMoodLevel("ecstatic")
	assert.Error(t, err)
	assert.False(t, MoodLevel("").Valid())
}

func TestParseSentiment(t *testing.T) {
	assert.Equal(t, SentimentPositive, ParseSentiment("positive"))
	assert.Equal(t, SentimentNeutral, ParseSentiment("angry"))
}

func TestSetMoodDerivesScore(t *testing.T) {
	e := &MoodEntry{Score: 5}
	e.SetMood(MoodSad)
	assert.Equal(t, 2, e.Score)
}

func TestValidateFactors(t *testing.T) {
	assert.NoError(t, ValidateFactors([]string{"work", "sleep"}))
	assert.Error(t, ValidateFactors([]string{"work", "money"}))
}

func TestUpdateStreak(t *testing.T) {
	day := time.Date(2024, 3, 25, 9, 0, 0, 0, time.UTC)
	u := NewUser("u1", "", "a@b.c", day)

	u.UpdateStreak(day, time.UTC)
	assert.Equal(t, 1, u.StreakCount)

	u.UpdateStreak(day.Add(3*time.Hour), time.UTC)
	assert.Equal(t, 1, u.StreakCount)

	u.UpdateStreak(day.AddDate(0, 0, 1), time.UTC)
	assert.Equal(t, 2, u.StreakCount)

	u.UpdateStreak(day.AddDate(0, 0, 4), time.UTC)
	assert.Equal(t, 1, u.StreakCount)
}

func TestHasActivePremium(t *testing.T) {
	now := time.Date(2024, 3, 25, 9, 0, 0, 0, time.UTC)
	u := NewUser("u1", "Sam", "", now)
	assert.False(t, u.HasActivePremium(now))

	u.IsPremium = true
	assert.True(t, u.HasActivePremium(now))

	past := now.Add(-time.Hour)
	u.PremiumExpiresAt = &past
	assert.False(t, u.HasActivePremium(now))
}

func TestEmotionalContextUpsert(t *testing.T) {
	ec := &EmotionalContext{UserID: "u1"}
	assert.True(t, ec.Upsert("What stresses you?", []string{"work"}))
	assert.True(t, ec.Upsert("How do you sleep?", []string{"badly"}))
	assert.False(t, ec.Upsert("What stresses you?", []string{"family", "money"}))

	require.Len(t, ec.Responses, 2)
	assert.Equal(t, []string{"family", "money"}, ec.Responses[0].Response)
	assert.Equal(t, []string{"What stresses you?: family, money", "How do you sleep?: badly"}, ec.Lines())
}

func TestChatTurns(t *testing.T) {
	now := time.Now()
	c := NewChat("c1", "u1", "s1", now)
	_, ok := c.FirstUserMessage()
	assert.False(t, ok)

	c.Append("m1", RoleUser, "hi", now)
	c.Append("m2", RoleAssistant, "hello", now)
	c.Append("m3", RoleUser, "sad today", now)

	assert.Equal(t, 2, c.UserTurns())
	first, ok := c.FirstUserMessage()
	require.True(t, ok)
	assert.Equal(t, "hi", first.Content)
	// 同一时间戳的消息仍按追加顺序编号
	for i, m := range c.Messages {
		assert.Equal(t, i, m.Position, m.ID)
	}

	cp := c.Clone()
	cp.Append("m4", RoleUser, "more", now)
	assert.Len(t, c.Messages, 3)
}
