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

// TaskService 每日任务及步骤完成
type TaskService struct {
	tasks    store.TaskStore
	moods    store.MoodStore
	contexts store.ContextStore
	ai       *AIService
	locker   SessionLocker
	loc      *time.Location
	now      func() time.Time
	newID    func() string
}

func NewTaskService(tasks store.TaskStore, moods store.MoodStore, contexts store.ContextStore, ai *AIService, locker SessionLocker, loc *time.Location) *TaskService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{
		tasks:    tasks,
		moods:    moods,
		contexts: contexts,
		ai:       ai,
		locker:   locker,
		loc:      loc,
		now:      time.Now,
		newID:    utils.GenerateID,
	}
}

// Daily 获取或生成今天的任务，同一天重复调用返回同一个任务
func (s *TaskService) Daily(ctx context.Context, userID string) (*models.Task, bool, error) {
	now := s.now()
	today := utils.DayKey(now, s.loc)

	unlock, err := s.locker.Lock(ctx, LockKey(userID, "tasks"))
	if err != nil {
		return nil, false, fmt.Errorf("lock tasks: %w", err)
	}
	defer unlock()

	existing, err := s.tasks.GetTask(ctx, userID, models.DailyKey(today))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("load daily task: %w", err)
	}

	in := TaskInput{Mood: models.MoodNeutral, Background: loadBackground(ctx, s.contexts, userID)}
	if mood, err := s.moods.GetMood(ctx, userID, today); err == nil {
		in.Mood = mood.Mood
		in.Notes = mood.Notes
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("load today's mood: %w", err)
	}

	recent, err := s.tasks.ListTasks(ctx, store.TaskQuery{UserID: userID, Since: now.AddDate(0, 0, -7), Limit: 5})
	if err != nil {
		return nil, false, fmt.Errorf("list recent tasks: %w", err)
	}
	for _, t := range recent {
		in.PendingTitles = append(in.PendingTitles, t.Title)
	}

	result := s.ai.GenerateTask(ctx, in)
	if result.Fallback {
		config.Logger.Warnw("每日任务回退到预设模板", "userId", userID, "error", result.Err)
	}

	task := &models.Task{
		ID:        s.newID(),
		UserID:    userID,
		Scope:     models.ScopeDaily,
		ScopeKey:  today,
		CreatedAt: now,
	}
	applyGenerated(task, result, now, s.newID)
	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return nil, false, fmt.Errorf("save daily task: %w", err)
	}
	return task, true, nil
}

// ForDate 某天的任务，优先返回每日任务；没有时返回 nil
func (s *TaskService) ForDate(ctx context.Context, userID, date string) (*models.Task, error) {
	day, err := utils.ParseDay(date, s.loc)
	if err != nil {
		return nil, invalid("Invalid date, expected YYYY-MM-DD")
	}

	task, err := s.tasks.GetTask(ctx, userID, models.DailyKey(day.Format(utils.DayLayout)))
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	tasks, err := s.tasks.ListTasks(ctx, store.TaskQuery{
		UserID: userID,
		Since:  day,
		Until:  day.AddDate(0, 0, 1),
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks[0], nil
}

// UpdateStep 更新步骤完成状态
func (s *TaskService) UpdateStep(ctx context.Context, userID, stepID string, completed bool) (*models.Task, error) {
	unlock, err := s.locker.Lock(ctx, LockKey(userID, "tasks"))
	if err != nil {
		return nil, fmt.Errorf("lock tasks: %w", err)
	}
	defer unlock()

	task, err := s.tasks.GetTaskByStep(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !task.SetStepCompleted(stepID, completed, now) {
		return nil, ErrNotFound
	}
	task.UpdatedAt = now
	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	return task, nil
}

// Complete 将任务和全部步骤标记为完成
func (s *TaskService) Complete(ctx context.Context, userID, taskID string) (*models.Task, error) {
	unlock, err := s.locker.Lock(ctx, LockKey(userID, "tasks"))
	if err != nil {
		return nil, fmt.Errorf("lock tasks: %w", err)
	}
	defer unlock()

	task, err := s.tasks.GetTaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	task.MarkAllComplete(now)
	task.UpdatedAt = now
	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	return task, nil
}
