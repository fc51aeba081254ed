package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MindMateGo/models"
	"MindMateGo/store"
)

// OnboardingService 保存引导问答，作为任务生成的长期背景
type OnboardingService struct {
	contexts store.ContextStore
	locker   SessionLocker
	now      func() time.Time
}

func NewOnboardingService(contexts store.ContextStore, locker SessionLocker) *OnboardingService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &OnboardingService{contexts: contexts, locker: locker, now: time.Now}
}

// SaveStep 写入一道问题的回答，返回是否为新建的背景记录
func (s *OnboardingService) SaveStep(ctx context.Context, userID string, req models.OnboardingRequest) (*models.EmotionalContext, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, invalid(err.Error())
	}

	unlock, err := s.locker.Lock(ctx, LockKey(userID, "context"))
	if err != nil {
		return nil, false, fmt.Errorf("lock context: %w", err)
	}
	defer unlock()

	now := s.now()
	ec, err := s.contexts.GetContext(ctx, userID)
	created := false
	switch {
	case errors.Is(err, store.ErrNotFound):
		created = true
		ec = &models.EmotionalContext{UserID: userID, CreatedAt: now}
	case err != nil:
		return nil, false, fmt.Errorf("load context: %w", err)
	}

	ec.Upsert(strings.TrimSpace(req.Question), req.Response)
	ec.UpdatedAt = now
	if err := s.contexts.SaveContext(ctx, ec); err != nil {
		return nil, false, fmt.Errorf("save context: %w", err)
	}
	return ec, created, nil
}
