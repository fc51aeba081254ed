package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MindMateGo/models"
	"MindMateGo/store"
)

// Identity 从令牌中解析出的身份
type Identity struct {
	Subject string
	Name    string
	Email   string
}

// UserService 用户同步与偏好
type UserService struct {
	users store.UserStore
	now   func() time.Time
}

func NewUserService(users store.UserStore) *UserService {
	return &UserService{users: users, now: time.Now}
}

// Ensure 首次请求时创建用户，之后同步名称和邮箱
func (s *UserService) Ensure(ctx context.Context, id Identity) (*models.User, error) {
	if id.Subject == "" {
		return nil, invalid("missing subject")
	}
	now := s.now()

	user, err := s.users.GetUser(ctx, id.Subject)
	if errors.Is(err, store.ErrNotFound) {
		user = models.NewUser(id.Subject, id.Name, id.Email, now)
		if err := s.users.SaveUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	changed := false
	if id.Name != "" && id.Name != user.Name {
		user.Name = id.Name
		changed = true
	}
	if id.Email != "" && id.Email != user.Email {
		user.Email = id.Email
		changed = true
	}
	if changed {
		user.UpdatedAt = now
		if err := s.users.SaveUser(ctx, user); err != nil {
			return nil, fmt.Errorf("sync user: %w", err)
		}
	}
	return user, nil
}

// Me 当前用户
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUser(ctx, userID)
}

// UpdatePreferences 只更新请求中出现的字段
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, req models.PreferencesRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err.Error())
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Notifications != nil {
		user.Notifications = *req.Notifications
	}
	if req.ReminderTime != nil {
		user.ReminderTime = *req.ReminderTime
	}
	if req.Timezone != nil {
		user.Timezone = *req.Timezone
	}
	user.UpdatedAt = s.now()
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	return user, nil
}
