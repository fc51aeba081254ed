package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"MindMateGo/models"
)

// GormStore 基于 gorm 的关系型存储
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate 同步表结构
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
		&models.MoodEntry{},
		&models.Task{},
		&models.TaskStep{},
		&models.EmotionalContext{},
		&models.SubscriptionEvent{},
	)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func orderedMessages(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("timestamp ASC")
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// ---- chats ----

func (s *GormStore) GetChat(ctx context.Context, userID, sessionID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.WithContext(ctx).
		Preload("Messages", orderedMessages).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		First(&chat).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

func (s *GormStore) SaveChat(ctx context.Context, chat *models.Chat) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(chat).Error; err != nil {
			return fmt.Errorf("save chat: %w", duplicate(err))
		}
		if len(chat.Messages) == 0 {
			return nil
		}
		for i := range chat.Messages {
			chat.Messages[i].ChatID = chat.ID
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&chat.Messages).Error; err != nil {
			return fmt.Errorf("append messages: %w", err)
		}
		return nil
	})
}

func (s *GormStore) DeleteChat(ctx context.Context, userID, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		if err := tx.Where("user_id = ? AND session_id = ?", userID, sessionID).First(&chat).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("chat_id = ?", chat.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&chat).Error
	})
}

func (s *GormStore) ListChats(ctx context.Context, q ChatQuery) ([]*models.Chat, error) {
	db := s.db.WithContext(ctx).Preload("Messages", orderedMessages).Where("user_id = ?", q.UserID)
	if q.SessionID != "" {
		db = db.Where("session_id = ?", q.SessionID)
	}
	if !q.Since.IsZero() {
		db = db.Where("created_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		db = db.Where("created_at < ?", q.Until)
	}
	if q.MoodOnly {
		db = db.Where("mood_detected IS NOT NULL")
	}
	switch q.Order {
	case OldestFirst:
		db = db.Order("created_at ASC")
	case RecentlyUpdated:
		db = db.Order("updated_at DESC")
	default:
		db = db.Order("created_at DESC")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var chats []*models.Chat
	if err := db.Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *GormStore) CountChats(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Chat{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// ---- moods ----

func (s *GormStore) GetMood(ctx context.Context, userID, day string) (*models.MoodEntry, error) {
	var entry models.MoodEntry
	err := s.db.WithContext(ctx).Where("user_id = ? AND day = ?", userID, day).First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (s *GormStore) SaveMood(ctx context.Context, entry *models.MoodEntry) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"mood", "score", "notes", "factors", "chat_reference", "date", "updated_at"}),
	}).Create(entry).Error
}

func (s *GormStore) ListMoods(ctx context.Context, userID string, since time.Time) ([]*models.MoodEntry, error) {
	var entries []*models.MoodEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, since).
		Order("date DESC").
		Find(&entries).Error
	return entries, err
}

// ---- tasks ----

func (s *GormStore) findTask(ctx context.Context, query string, args ...interface{}) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Preload("Steps", orderedSteps).Where(query, args...).First(&task).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (s *GormStore) GetTask(ctx context.Context, userID string, key models.TaskKey) (*models.Task, error) {
	return s.findTask(ctx, "user_id = ? AND scope = ? AND scope_key = ?", userID, key.Scope, key.Key)
}

func (s *GormStore) GetTaskByID(ctx context.Context, userID, taskID string) (*models.Task, error) {
	return s.findTask(ctx, "user_id = ? AND id = ?", userID, taskID)
}

func (s *GormStore) GetTaskByStep(ctx context.Context, userID, stepID string) (*models.Task, error) {
	var step models.TaskStep
	err := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, stepID).First(&step).Error
	if err != nil {
		return nil, notFound(err)
	}
	return s.GetTaskByID(ctx, userID, step.TaskID)
}

func (s *GormStore) SaveTask(ctx context.Context, task *models.Task) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
			return fmt.Errorf("save task: %w", duplicate(err))
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskStep{}).Error; err != nil {
			return fmt.Errorf("clear steps: %w", err)
		}
		if len(task.Steps) == 0 {
			return nil
		}
		for i := range task.Steps {
			task.Steps[i].TaskID = task.ID
			task.Steps[i].UserID = task.UserID
			task.Steps[i].Position = i
		}
		if err := tx.Create(&task.Steps).Error; err != nil {
			return fmt.Errorf("save steps: %w", err)
		}
		return nil
	})
}

func (s *GormStore) ListTasks(ctx context.Context, q TaskQuery) ([]*models.Task, error) {
	db := s.db.WithContext(ctx).Preload("Steps", orderedSteps).Where("user_id = ?", q.UserID)
	if !q.Since.IsZero() {
		db = db.Where("date >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		db = db.Where("date < ?", q.Until)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	db = db.Order("date DESC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var tasks []*models.Task
	if err := db.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ---- emotional context ----

func (s *GormStore) GetContext(ctx context.Context, userID string) (*models.EmotionalContext, error) {
	var ec models.EmotionalContext
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&ec).Error; err != nil {
		return nil, notFound(err)
	}
	return &ec, nil
}

func (s *GormStore) SaveContext(ctx context.Context, ec *models.EmotionalContext) error {
	return s.db.WithContext(ctx).Save(ec).Error
}

// ---- users ----

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// ---- subscription events ----

func (s *GormStore) RecordEvent(ctx context.Context, event *models.SubscriptionEvent) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) DeleteEvent(ctx context.Context, eventID string) error {
	return s.db.WithContext(ctx).Delete(&models.SubscriptionEvent{}, "id = ?", eventID).Error
}
