package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MindMateGo/models"
)

func TestGenerateTaskParsesResponse(t *testing.T) {
	ai := NewAIService(NewMockGenerator(), 0)

	res := ai.GenerateTask(context.Background(), TaskInput{Mood: models.MoodHappy})
	require.False(t, res.Fallback)
	assert.Equal(t, "Take a mindful walk", res.Task.Title)
	assert.Equal(t, "physical", res.Task.Category)
	assert.Len(t, res.Task.Steps, 3)
	assert.Contains(t, res.Prompt, "good and happy")
}

func TestGenerateTaskFallsBack(t *testing.T) {
	cases := map[string]func(GenerateRequest) (string, error){
		"error":     func(GenerateRequest) (string, error) { return "", errors.New("boom") },
		"malformed": func(GenerateRequest) (string, error) { return "not json at all", nil },
		"one step": func(GenerateRequest) (string, error) {
			return `{"taskTitle":"x","steps":[{"label":"only"}],"category":"mental","difficulty":"easy"}`, nil
		},
		"bad category": func(GenerateRequest) (string, error) {
			return `{"taskTitle":"x","steps":[{"label":"a"},{"label":"b"}],"category":"chores","difficulty":"easy"}`, nil
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			ai := NewAIService(NewScriptedGenerator(handler), 0)
			res := ai.GenerateTask(context.Background(), TaskInput{Mood: models.MoodVerySad})
			assert.True(t, res.Fallback)
			assert.Error(t, res.Err)
			assert.Equal(t, FallbackTask(models.MoodVerySad), res.Task)
		})
	}
}

func TestGenerateTaskInvalidMoodUsesNeutral(t *testing.T) {
	ai := NewAIService(failing(PurposeTask), 0)

	res := ai.GenerateTask(context.Background(), TaskInput{Mood: "furious"})
	assert.Equal(t, FallbackTask(models.MoodNeutral), res.Task)
}

func TestParseGeneratedTaskTrimsSteps(t *testing.T) {
	raw := "```json\n" + `{"taskTitle":" Stretch ","description":"d","steps":[{"label":"a"},{"label":" "},{"label":"b"},{"label":"c"},{"label":"d"}],"category":"physical","difficulty":"easy"}` + "\n```"

	task, err := parseGeneratedTask(raw)
	require.NoError(t, err)
	assert.Equal(t, "Stretch", task.Title)
	assert.Equal(t, []string{"a", "b", "c"}, task.Steps)
}

func TestAnalyzeMoodNeutralOnFailure(t *testing.T) {
	ai := NewAIService(failing(PurposeMood), 0)

	analysis, err := ai.AnalyzeMood(context.Background(), "whatever")
	assert.Error(t, err)
	assert.Equal(t, models.NeutralMoodAnalysis(), analysis)

	ai = NewAIService(NewScriptedGenerator(func(GenerateRequest) (string, error) {
		return `{"mood":"elated","sentiment":"positive","confidence":0.9}`, nil
	}), 0)
	analysis, err = ai.AnalyzeMood(context.Background(), "whatever")
	assert.Error(t, err)
	assert.Equal(t, models.MoodNeutral, analysis.Mood)
}

func TestAnalyzeMoodClampsConfidence(t *testing.T) {
	ai := NewAIService(NewScriptedGenerator(func(GenerateRequest) (string, error) {
		return `{"mood":"happy","sentiment":"weird","confidence":4,"topics":["Family",""]}`, nil
	}), 0)

	analysis, err := ai.AnalyzeMood(context.Background(), "great day with family")
	require.NoError(t, err)
	assert.Equal(t, models.MoodHappy, analysis.Mood)
	assert.Equal(t, models.SentimentNeutral, analysis.Sentiment)
	assert.Equal(t, 1.0, analysis.Confidence)
	assert.Equal(t, []string{"family"}, analysis.Topics)
}

func TestSummarizeFallsBackToRecentUserLines(t *testing.T) {
	ai := NewAIService(failing(PurposeSummary), 0)
	messages := []models.Message{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "reply"},
		{Role: models.RoleUser, Content: "two"},
		{Role: models.RoleUser, Content: "three"},
		{Role: models.RoleUser, Content: "four"},
	}

	assert.Equal(t, "two three four", ai.Summarize(context.Background(), messages))
}

func TestChatReplyWrapsUpstreamError(t *testing.T) {
	ai := NewAIService(failing(PurposeChat), 0)

	_, err := ai.ChatReply(context.Background(), nil, nil, false)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGenerateRespectsCanceledContext(t *testing.T) {
	ai := NewAIService(NewMockGenerator(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := ai.GenerateTask(ctx, TaskInput{Mood: models.MoodHappy})
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, context.Canceled)
}
