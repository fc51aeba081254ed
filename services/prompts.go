package services

import (
	"fmt"
	"strings"

	"MindMateGo/models"
)

const taskSystemPrompt = `You are a mental health assistant focused on creating gentle, achievable daily tasks. Always respond with valid JSON.`

const chatSystemPrompt = `You are a compassionate mental health assistant. Your role is to:
1. Listen empathetically to the user's concerns
2. Provide gentle, supportive responses
3. Offer practical coping strategies when appropriate
4. Encourage professional help when needed
5. Never provide medical diagnoses or emergency crisis intervention

Keep responses warm, supportive, and under 200 words. If the user seems to be in crisis, gently encourage them to contact a mental health professional or crisis helpline.`

const offerInstruction = `After responding to what the user shared, gently ask whether they would like a few small, actionable steps to help with what they are going through. Ask it as a single yes or no question at the end of your reply.`

const moodSystemPrompt = `You are a mood analysis assistant. Always respond with valid JSON.`

const summarySystemPrompt = `Summarize the conversation below in at most three sentences. Focus on how the user feels and what is troubling or motivating them. Write in the third person and do not give advice.`

const insightsSystemPrompt = `You are a supportive wellbeing coach who reviews weekly mood data. Always respond with valid JSON.`

// TaskReadyMessage 生成任务后附带的固定说明
const TaskReadyMessage = `I've put together a small task with a few steps based on our conversation. Take it one step at a time and tick each one off when you're done. If this one doesn't feel right, just say "mate" and I'll come up with a different one.`

func buildTaskPrompt(in TaskInput) string {
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = "No additional notes"
	}
	history := "No recent tasks"
	if len(in.PendingTitles) > 0 {
		history = strings.Join(in.PendingTitles, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a compassionate mental health assistant. Generate a gentle, achievable daily task for someone whose mood is %s.\n\n", in.Mood.Describe())
	sb.WriteString("Context:\n")
	fmt.Fprintf(&sb, "- User's mood: %s\n", in.Mood)
	fmt.Fprintf(&sb, "- User's notes: %q\n", notes)
	fmt.Fprintf(&sb, "- Tasks to avoid repeating: %s\n", history)
	if len(in.Background) > 0 {
		sb.WriteString("- What the user told us about themselves:\n")
		for _, line := range in.Background {
			fmt.Fprintf(&sb, "  * %s\n", line)
		}
	}
	sb.WriteString(`
Requirements:
1. Create a task that takes 15-30 minutes
2. Break it into 2-3 simple steps
3. Make it appropriate for their current mood
4. Focus on small wins and self-care
5. Be encouraging and supportive

If the mood is low, focus on basic self-care, gentle activities, or reaching out to others.
If the mood is neutral, focus on productivity or personal growth.
If the mood is high, focus on activities that maintain positive energy.

Respond with a JSON object containing:
{
  "taskTitle": "Clear, encouraging task title",
  "description": "Brief description of why this task is helpful",
  "steps": [
    {"label": "Step 1 description"},
    {"label": "Step 2 description"},
    {"label": "Step 3 description (optional)"}
  ],
  "category": "self_care|productivity|social|physical|mental|creative",
  "difficulty": "easy|medium|hard"
}`)
	return sb.String()
}

func buildChatSystemPrompt(mood *models.MoodLevel, offer bool) string {
	prompt := chatSystemPrompt
	if mood != nil {
		prompt += fmt.Sprintf("\n\nCurrent user mood: %s", *mood)
	}
	if offer {
		prompt += "\n\n" + offerInstruction
	}
	return prompt
}

func buildMoodPrompt(text string) string {
	return fmt.Sprintf(`Analyze the mood/sentiment of this text and return a JSON response:
%q

Respond with:
{
  "mood": "very_sad|sad|neutral|happy|very_happy",
  "sentiment": "negative|neutral|positive",
  "confidence": 0.0-1.0,
  "topics": ["topic1", "topic2"]
}`, text)
}

func buildTranscript(messages []models.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return sb.String()
}

// DayMood 某天检测到的情绪
type DayMood struct {
	Day  string           `json:"day"`
	Mood models.MoodLevel `json:"mood"`
}

func formatDayMoods(moods []DayMood) string {
	if len(moods) == 0 {
		return "no data"
	}
	parts := make([]string, 0, len(moods))
	for _, m := range moods {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Day, m.Mood))
	}
	return strings.Join(parts, ", ")
}

func buildInsightsPrompt(current, previous []DayMood) string {
	return fmt.Sprintf(`Here is the user's detected mood by day.

This week (%d entries): %s
Last week (%d entries): %s

Write exactly three short, encouraging insights (one sentence each) about patterns, changes from last week and one gentle suggestion.

Respond with:
{
  "insights": ["insight 1", "insight 2", "insight 3"]
}`, len(current), formatDayMoods(current), len(previous), formatDayMoods(previous))
}
