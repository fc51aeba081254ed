package models

import (
	"time"

	"gorm.io/datatypes"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 会话中的一条消息
type Message struct {
	ID        string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	ChatID    string    `gorm:"type:varchar(50);index" json:"-"`
	Position  int       `gorm:"not null;default:0" json:"-"`
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	Content   string    `gorm:"type:text" json:"content"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (Message) TableName() string {
	return "chat_messages"
}

// Chat 一次聊天会话，(UserID, SessionID) 唯一
type Chat struct {
	ID           string                      `gorm:"type:varchar(50);primaryKey" json:"id"`
	UserID       string                      `gorm:"type:varchar(100);not null;uniqueIndex:uidx_chat_user_session;index:idx_chat_user_created,priority:1" json:"userId"`
	SessionID    string                      `gorm:"type:varchar(100);not null;uniqueIndex:uidx_chat_user_session" json:"sessionId"`
	Messages     []Message                   `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"messages"`
	MoodDetected *MoodLevel                  `gorm:"type:varchar(20)" json:"moodDetected"`
	Sentiment    Sentiment                   `gorm:"type:varchar(20)" json:"sentiment"`
	Topics       datatypes.JSONSlice[string] `json:"topics"`
	// 已向用户提出“是否需要可执行步骤”
	AwaitingConfirmation bool      `json:"awaitingConfirmation"`
	IsActive             bool      `json:"isActive"`
	CreatedAt            time.Time `gorm:"index:idx_chat_user_created,priority:2" json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// NewChat 创建空会话
func NewChat(id, userID, sessionID string, now time.Time) *Chat {
	return &Chat{
		ID:        id,
		UserID:    userID,
		SessionID: sessionID,
		Messages:  []Message{},
		Sentiment: SentimentNeutral,
		Topics:    []string{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append 追加消息
func (c *Chat) Append(id string, role Role, content string, at time.Time) Message {
	msg := Message{
		ID:        id,
		ChatID:    c.ID,
		Position:  len(c.Messages),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = at
	return msg
}

// UserTurns 用户发言次数
func (c *Chat) UserTurns() int {
	n := 0
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// FirstUserMessage 会话中的第一条用户消息
func (c *Chat) FirstUserMessage() (Message, bool) {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m, true
		}
	}
	return Message{}, false
}

// Clone 深拷贝
func (c *Chat) Clone() *Chat {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = append([]Message{}, c.Messages...)
	cp.Topics = cloneStrings(c.Topics)
	if c.MoodDetected != nil {
		m := *c.MoodDetected
		cp.MoodDetected = &m
	}
	return &cp
}
