package store

import (
	"context"
	"errors"
	"time"

	"MindMateGo/models"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 自然键冲突
	ErrDuplicate = errors.New("duplicate record")
)

// ChatOrder 会话列表排序方式
type ChatOrder int

const (
	NewestFirst ChatOrder = iota
	OldestFirst
	RecentlyUpdated
)

// ChatQuery 会话查询条件，零值字段不参与过滤
type ChatQuery struct {
	UserID    string
	SessionID string
	Since     time.Time // CreatedAt >= Since
	Until     time.Time // CreatedAt < Until
	MoodOnly  bool
	Order     ChatOrder
	Limit     int
}

// TaskQuery 任务查询条件，结果按日期倒序
type TaskQuery struct {
	UserID string
	Since  time.Time // Date >= Since
	Until  time.Time // Date < Until
	Status models.TaskStatus
	Limit  int
}

type ChatStore interface {
	GetChat(ctx context.Context, userID, sessionID string) (*models.Chat, error)
	// SaveChat 保存会话，消息只追加
	SaveChat(ctx context.Context, chat *models.Chat) error
	DeleteChat(ctx context.Context, userID, sessionID string) error
	ListChats(ctx context.Context, q ChatQuery) ([]*models.Chat, error)
	CountChats(ctx context.Context, userID string) (int64, error)
}

type MoodStore interface {
	GetMood(ctx context.Context, userID, day string) (*models.MoodEntry, error)
	// SaveMood 按 (UserID, Day) 写入或更新
	SaveMood(ctx context.Context, entry *models.MoodEntry) error
	// ListMoods 返回 Date >= since 的记录，按日期倒序
	ListMoods(ctx context.Context, userID string, since time.Time) ([]*models.MoodEntry, error)
}

type TaskStore interface {
	GetTask(ctx context.Context, userID string, key models.TaskKey) (*models.Task, error)
	GetTaskByID(ctx context.Context, userID, taskID string) (*models.Task, error)
	GetTaskByStep(ctx context.Context, userID, stepID string) (*models.Task, error)
	// SaveTask 写入任务并整体替换步骤
	SaveTask(ctx context.Context, task *models.Task) error
	ListTasks(ctx context.Context, q TaskQuery) ([]*models.Task, error)
}

type ContextStore interface {
	GetContext(ctx context.Context, userID string) (*models.EmotionalContext, error)
	SaveContext(ctx context.Context, ec *models.EmotionalContext) error
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
}

type SubscriptionStore interface {
	// RecordEvent 记录回调事件，已处理过返回 false
	RecordEvent(ctx context.Context, event *models.SubscriptionEvent) (bool, error)
	// DeleteEvent 撤销记录，处理失败时允许重放
	DeleteEvent(ctx context.Context, eventID string) error
}

// Store 所有存储能力的集合
type Store interface {
	ChatStore
	MoodStore
	TaskStore
	ContextStore
	UserStore
	SubscriptionStore
	Close() error
}
