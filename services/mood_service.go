package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MindMateGo/config"
	"MindMateGo/models"
	"MindMateGo/store"
	"MindMateGo/utils"
)

// MoodService 每日情绪打卡
type MoodService struct {
	moods  store.MoodStore
	users  store.UserStore
	locker SessionLocker
	loc    *time.Location
	now    func() time.Time
	newID  func() string
}

func NewMoodService(moods store.MoodStore, users store.UserStore, locker SessionLocker, loc *time.Location) *MoodService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MoodService{
		moods:  moods,
		users:  users,
		locker: locker,
		loc:    loc,
		now:    time.Now,
		newID:  utils.GenerateID,
	}
}

// CheckIn 打卡，同一天再次打卡会更新已有记录；返回是否为新建
func (s *MoodService) CheckIn(ctx context.Context, userID string, req models.MoodCheckInRequest) (*models.MoodEntry, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, invalid(err.Error())
	}
	mood, _ := models.ParseMoodLevel(req.Mood)

	now := s.now()
	day := utils.DayKey(now, s.loc)

	unlock, err := s.locker.Lock(ctx, LockKey(userID, "mood:"+day))
	if err != nil {
		return nil, false, fmt.Errorf("lock mood: %w", err)
	}
	defer unlock()

	entry, err := s.moods.GetMood(ctx, userID, day)
	created := false
	switch {
	case errors.Is(err, store.ErrNotFound):
		created = true
		entry = &models.MoodEntry{
			ID:        s.newID(),
			UserID:    userID,
			Day:       day,
			CreatedAt: now,
		}
	case err != nil:
		return nil, false, fmt.Errorf("load mood: %w", err)
	}

	entry.SetMood(mood)
	entry.Notes = req.Notes
	entry.Factors = append([]string{}, req.Factors...)
	entry.Date = now
	entry.UpdatedAt = now
	if err := s.moods.SaveMood(ctx, entry); err != nil {
		return nil, false, fmt.Errorf("save mood: %w", err)
	}

	s.updateStreak(ctx, userID, now)
	return entry, created, nil
}

func (s *MoodService) updateStreak(ctx context.Context, userID string, now time.Time) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			config.Logger.Warnw("读取用户失败", "userId", userID, "error", err)
		}
		return
	}
	user.UpdateStreak(now, s.loc)
	user.UpdatedAt = now
	if err := s.users.SaveUser(ctx, user); err != nil {
		config.Logger.Warnw("更新连续打卡失败", "userId", userID, "error", err)
	}
}

// Today 今天的打卡，没有时返回 nil
func (s *MoodService) Today(ctx context.Context, userID string) (*models.MoodEntry, error) {
	entry, err := s.moods.GetMood(ctx, userID, utils.DayKey(s.now(), s.loc))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return entry, err
}

// History 最近 N 天的打卡，按日期倒序
func (s *MoodService) History(ctx context.Context, userID string, days int) ([]*models.MoodEntry, error) {
	since := s.now().AddDate(0, 0, -normalizeDays(days))
	entries, err := s.moods.ListMoods(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.MoodEntry{}
	}
	return entries, nil
}
