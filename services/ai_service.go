package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"MindMateGo/config"
	"MindMateGo/models"
)

// AIService 封装所有文本生成调用，失败时给出结构化结果而不是直接返回给用户
type AIService struct {
	gen     TextGenerator
	timeout time.Duration
}

func NewAIService(gen TextGenerator, timeout time.Duration) *AIService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &AIService{gen: gen, timeout: timeout}
}

// TaskInput 任务生成的上下文
type TaskInput struct {
	Mood          models.MoodLevel
	Notes         string
	PendingTitles []string
	Background    []string
}

// TaskResult 任务生成结果，Fallback 为 true 时 Err 记录失败原因
type TaskResult struct {
	Task     models.GeneratedTask
	Prompt   string
	Fallback bool
	Err      error
}

func (s *AIService) generate(ctx context.Context, req GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.gen.Generate(ctx, req)
	if err != nil {
		config.Logger.Warnw("文本生成失败",
			"purpose", req.Purpose,
			"elapsed", time.Since(start),
			"error", err,
		)
		return "", err
	}
	config.Logger.Debugw("文本生成完成",
		"purpose", req.Purpose,
		"elapsed", time.Since(start),
		"length", len(text),
	)
	return text, nil
}

// GenerateTask 生成自我关怀任务，任何失败都回退到按情绪预设的模板
func (s *AIService) GenerateTask(ctx context.Context, in TaskInput) TaskResult {
	if !in.Mood.Valid() {
		in.Mood = models.MoodNeutral
	}
	prompt := buildTaskPrompt(in)

	text, err := s.generate(ctx, GenerateRequest{
		Purpose:     PurposeTask,
		System:      taskSystemPrompt,
		Messages:    []ChatMessage{{Role: models.RoleUser, Content: prompt}},
		MaxTokens:   500,
		Temperature: 0.7,
		JSON:        true,
	})
	if err == nil {
		var task models.GeneratedTask
		task, err = parseGeneratedTask(text)
		if err == nil {
			return TaskResult{Task: task, Prompt: prompt}
		}
		config.Logger.Warnw("任务内容解析失败", "error", err)
	}

	return TaskResult{
		Task:     FallbackTask(in.Mood),
		Prompt:   prompt,
		Fallback: true,
		Err:      err,
	}
}

// ChatReply 生成支持性回复，offer 为 true 时在结尾询问是否需要行动步骤
func (s *AIService) ChatReply(ctx context.Context, history []models.Message, mood *models.MoodLevel, offer bool) (string, error) {
	messages := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}

	text, err := s.generate(ctx, GenerateRequest{
		Purpose:     PurposeChat,
		System:      buildChatSystemPrompt(mood, offer),
		Messages:    messages,
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat reply: %v", ErrUpstream, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty chat reply", ErrUpstream)
	}
	return text, nil
}

// AnalyzeMood 分析文本情绪；失败时返回中性结果和错误，由调用方决定是否采用
func (s *AIService) AnalyzeMood(ctx context.Context, text string) (models.MoodAnalysis, error) {
	raw, err := s.generate(ctx, GenerateRequest{
		Purpose:     PurposeMood,
		System:      moodSystemPrompt,
		Messages:    []ChatMessage{{Role: models.RoleUser, Content: buildMoodPrompt(text)}},
		MaxTokens:   150,
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		return models.NeutralMoodAnalysis(), err
	}

	var parsed struct {
		Mood       string   `json:"mood"`
		Sentiment  string   `json:"sentiment"`
		Confidence float64  `json:"confidence"`
		Topics     []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return models.NeutralMoodAnalysis(), fmt.Errorf("decode mood analysis: %w", err)
	}
	mood, err := models.ParseMoodLevel(parsed.Mood)
	if err != nil {
		return models.NeutralMoodAnalysis(), err
	}

	topics := make([]string, 0, len(parsed.Topics))
	for _, t := range parsed.Topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			topics = append(topics, t)
		}
	}
	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	return models.MoodAnalysis{
		Mood:       mood,
		Sentiment:  models.ParseSentiment(parsed.Sentiment),
		Confidence: confidence,
		Topics:     topics,
	}, nil
}

// Summarize 总结对话，失败时使用最近几条用户消息
func (s *AIService) Summarize(ctx context.Context, messages []models.Message) string {
	text, err := s.generate(ctx, GenerateRequest{
		Purpose:     PurposeSummary,
		System:      summarySystemPrompt,
		Messages:    []ChatMessage{{Role: models.RoleUser, Content: buildTranscript(messages)}},
		MaxTokens:   120,
		Temperature: 0.3,
	})
	if err == nil {
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return recentUserLines(messages, 3)
}

// WeeklyInsights 根据两周的情绪数据生成洞察
func (s *AIService) WeeklyInsights(ctx context.Context, current, previous []DayMood) ([]string, error) {
	raw, err := s.generate(ctx, GenerateRequest{
		Purpose:     PurposeInsights,
		System:      insightsSystemPrompt,
		Messages:    []ChatMessage{{Role: models.RoleUser, Content: buildInsightsPrompt(current, previous)}},
		MaxTokens:   300,
		Temperature: 0.6,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Insights []string `json:"insights"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	out := make([]string, 0, len(parsed.Insights))
	for _, in := range parsed.Insights {
		if in = strings.TrimSpace(in); in != "" {
			out = append(out, in)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no insights returned")
	}
	return out, nil
}

func parseGeneratedTask(raw string) (models.GeneratedTask, error) {
	var parsed struct {
		Title       string `json:"taskTitle"`
		Description string `json:"description"`
		Steps       []struct {
			Label string `json:"label"`
		} `json:"steps"`
		Category   string `json:"category"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return models.GeneratedTask{}, fmt.Errorf("decode task: %w", err)
	}

	task := models.GeneratedTask{
		Title:       truncate(strings.TrimSpace(parsed.Title), 200),
		Description: truncate(strings.TrimSpace(parsed.Description), 300),
		Category:    strings.TrimSpace(parsed.Category),
		Difficulty:  strings.TrimSpace(parsed.Difficulty),
	}
	for _, st := range parsed.Steps {
		if label := strings.TrimSpace(st.Label); label != "" {
			task.Steps = append(task.Steps, truncate(label, 255))
		}
	}

	switch {
	case task.Title == "":
		return task, fmt.Errorf("task title is empty")
	case len(task.Steps) < 2:
		return task, fmt.Errorf("task has %d steps", len(task.Steps))
	case !models.ValidCategory(task.Category):
		return task, fmt.Errorf("invalid category %q", task.Category)
	case !models.ValidDifficulty(task.Difficulty):
		return task, fmt.Errorf("invalid difficulty %q", task.Difficulty)
	}
	if len(task.Steps) > 3 {
		task.Steps = task.Steps[:3]
	}
	return task, nil
}

// extractJSON 去掉模型可能包裹的代码块等多余内容
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func recentUserLines(messages []models.Message, n int) string {
	var lines []string
	for i := len(messages) - 1; i >= 0 && len(lines) < n; i-- {
		if messages[i].Role == models.RoleUser {
			lines = append([]string{messages[i].Content}, lines...)
		}
	}
	return strings.Join(lines, " ")
}

var fallbackTasks = map[models.MoodLevel]models.GeneratedTask{
	models.MoodVerySad: {
		Title:       "Take a gentle self-care break",
		Description: "Small acts of kindness to yourself can help during difficult times",
		Steps:       []string{"Take 5 deep breaths", "Make a warm drink", "Write down one thing you're grateful for"},
		Category:    "self_care",
		Difficulty:  "easy",
	},
	models.MoodSad: {
		Title:       "Connect with something positive",
		Description: "Gentle activities to lift your spirits",
		Steps:       []string{"Listen to a favorite song", "Step outside for fresh air", "Text a friend or family member"},
		Category:    "social",
		Difficulty:  "easy",
	},
	models.MoodNeutral: {
		Title:       "Organize one small space",
		Description: "A simple task to create a sense of accomplishment",
		Steps:       []string{"Choose a small area (desk, drawer, etc.)", "Remove everything and clean the space", "Put items back in an organized way"},
		Category:    "productivity",
		Difficulty:  "medium",
	},
	models.MoodHappy: {
		Title:       "Share your positive energy",
		Description: "Spread joy while maintaining your good mood",
		Steps:       []string{"Do something creative for 10 minutes", "Share a positive message with someone", "Plan something fun for later"},
		Category:    "creative",
		Difficulty:  "medium",
	},
	models.MoodVeryHappy: {
		Title:       "Channel your energy into growth",
		Description: "Use your positive energy for personal development",
		Steps:       []string{"Learn something new for 15 minutes", "Exercise or do physical activity", "Set a small goal for tomorrow"},
		Category:    "mental",
		Difficulty:  "medium",
	},
}

// FallbackTask 按情绪返回预设任务
func FallbackTask(mood models.MoodLevel) models.GeneratedTask {
	t, ok := fallbackTasks[mood]
	if !ok {
		t = fallbackTasks[models.MoodNeutral]
	}
	t.Steps = append([]string{}, t.Steps...)
	return t
}
