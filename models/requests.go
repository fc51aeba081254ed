package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ChatSendRequest 发送聊天消息
type ChatSendRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// MoodCheckInRequest 情绪打卡请求；客户端提交的分值不被采用
type MoodCheckInRequest struct {
	Mood    string   `json:"mood" binding:"required"`
	Notes   string   `json:"notes"`
	Factors []string `json:"factors"`
}

func (r *MoodCheckInRequest) Validate() error {
	if _, err := ParseMoodLevel(r.Mood); err != nil {
		return fmt.Errorf("Invalid mood value")
	}
	if len([]rune(r.Notes)) > 500 {
		return fmt.Errorf("notes must be at most 500 characters")
	}
	return ValidateFactors(r.Factors)
}

// StepUpdateRequest 更新步骤完成状态
type StepUpdateRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// OnboardingRequest 引导问答
type OnboardingRequest struct {
	Question string   `json:"question"`
	Response []string `json:"response"`
}

func (r *OnboardingRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" || r.Response == nil {
		return fmt.Errorf(`Invalid payload. "question" and "response" are required.`)
	}
	return nil
}

var reminderPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// PreferencesRequest 更新用户偏好，空字段保持不变
type PreferencesRequest struct {
	Notifications *bool   `json:"notifications"`
	ReminderTime  *string `json:"reminderTime"`
	Timezone      *string `json:"timezone"`
}

func (r *PreferencesRequest) Validate() error {
	if r.ReminderTime != nil && !reminderPattern.MatchString(*r.ReminderTime) {
		return fmt.Errorf("reminderTime must be HH:MM")
	}
	if r.Timezone != nil {
		if _, err := time.LoadLocation(*r.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q", *r.Timezone)
		}
	}
	return nil
}

// WebhookEvent 支付回调事件
type WebhookEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

// WebhookEventData 回调事件数据
type WebhookEventData struct {
	UserID    string     `json:"userId"`
	Plan      string     `json:"plan"`
	ExpiresAt *time.Time `json:"expiresAt"`
}
