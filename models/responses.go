package models

import "time"

// ChatSendResponse 聊天回复
type ChatSendResponse struct {
	SessionID    string     `json:"sessionId"`
	Response     string     `json:"response"`
	Timestamp    time.Time  `json:"timestamp"`
	GenerateTask bool       `json:"generateTask"`
	Task         *Task      `json:"task,omitempty"`
	MoodDetected *MoodLevel `json:"moodDetected"`
	Sentiment    Sentiment  `json:"sentiment"`
}

// MoodAnalysis 文本情绪分析结果
type MoodAnalysis struct {
	Mood       MoodLevel `json:"mood"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Topics     []string  `json:"topics"`
}

// NeutralMoodAnalysis 分析失败时的默认结果
func NeutralMoodAnalysis() MoodAnalysis {
	return MoodAnalysis{
		Mood:       MoodNeutral,
		Sentiment:  SentimentNeutral,
		Confidence: 0.0,
		Topics:     []string{},
	}
}

// GeneratedTask 模型生成的任务内容
type GeneratedTask struct {
	Title       string   `json:"taskTitle"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Category    string   `json:"category"`
	Difficulty  string   `json:"difficulty"`
}

// ProgressStats 进度概览
type ProgressStats struct {
	TaskStreak   int   `json:"taskStreak"`
	MoodCheckIns int64 `json:"moodCheckIns"`
	WeeklyGoal   int   `json:"weeklyGoal"`
}

// JourneyDay 情绪旅程中的一天
type JourneyDay struct {
	Day        string    `json:"day"`
	Mood       MoodLevel `json:"mood"`
	Percentage int       `json:"percentage"`
}

// CommonMood 本周最常见情绪
type CommonMood struct {
	Mood       MoodLevel `json:"mood"`
	Percentage int       `json:"percentage"`
}

// StabilityScore 情绪稳定度
type StabilityScore struct {
	StabilityScore     int    `json:"stabilityScore"`
	ChangeFromLastWeek int    `json:"changeFromLastWeek"`
	IsImproved         bool   `json:"isImproved"`
	Message            string `json:"message"`
}

// WeeklyInsights 每周洞察
type WeeklyInsights struct {
	Insights []string `json:"insights"`
}

// MoodAnalyticsResponse 情绪仪表盘
type MoodAnalyticsResponse struct {
	Progress       ProgressStats  `json:"progress"`
	TodaysTask     []*Task        `json:"todaysTask"`
	MoodJourney    []JourneyDay   `json:"moodJourney"`
	CommonMood     CommonMood     `json:"commonMood"`
	StabilityScore StabilityScore `json:"stabilityScore"`
	WeeklyInsights WeeklyInsights `json:"weeklyInsights"`
}

// TopicCount 话题计数
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// ChatAnalyticsResponse 聊天统计
type ChatAnalyticsResponse struct {
	TotalSessions             int            `json:"totalSessions"`
	TotalMessages             int            `json:"totalMessages"`
	AverageMessagesPerSession int            `json:"averageMessagesPerSession"`
	MoodDistribution          map[string]int `json:"moodDistribution"`
	SentimentDistribution     map[string]int `json:"sentimentDistribution"`
	TopTopics                 []TopicCount   `json:"topTopics"`
}

// MoodStatsResponse 情绪统计
type MoodStatsResponse struct {
	AverageScore     float64        `json:"averageScore"`
	TotalEntries     int            `json:"totalEntries"`
	MoodDistribution map[string]int `json:"moodDistribution"`
	Trend            string         `json:"trend"`
}

// TaskStatsResponse 任务完成统计
type TaskStatsResponse struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"inProgress"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"`
}

// CalendarDay 日历中的一天
type CalendarDay struct {
	Status      TaskStatus `json:"status"`
	CompletedAt *time.Time `json:"completedAt"`
}

// PaymentFeatures 会员功能开关
type PaymentFeatures struct {
	AIChat            bool `json:"aiChat"`
	AdvancedAnalytics bool `json:"advancedAnalytics"`
	CustomTasks       bool `json:"customTasks"`
	ExportData        bool `json:"exportData"`
}

// PaymentStatusResponse 会员状态
type PaymentStatusResponse struct {
	IsPremium       bool            `json:"isPremium"`
	Status          string          `json:"status"`
	Plan            string          `json:"plan"`
	NextBillingDate *time.Time      `json:"nextBillingDate"`
	Features        PaymentFeatures `json:"features"`
}

// UserResponse 用户响应结构体
type UserResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt"`
	StreakCount      int        `json:"streakCount"`
	LastCheckIn      *time.Time `json:"lastCheckIn"`
	Timezone         string     `json:"timezone"`
	Notifications    bool       `json:"notifications"`
	ReminderTime     string     `json:"reminderTime"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ToResponse 转为响应结构
func (u *User) ToResponse(now time.Time) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Name:             u.GetDisplayName(),
		Email:            u.Email,
		IsPremium:        u.HasActivePremium(now),
		PremiumExpiresAt: u.PremiumExpiresAt,
		StreakCount:      u.StreakCount,
		LastCheckIn:      u.LastCheckIn,
		Timezone:         u.Timezone,
		Notifications:    u.Notifications,
		ReminderTime:     u.ReminderTime,
		CreatedAt:        u.CreatedAt,
	}
}
