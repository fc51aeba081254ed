package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"MindMateGo/models"
)

// MemoryStore 进程内存储，用于开发和测试；读写均做深拷贝
type MemoryStore struct {
	mu       sync.RWMutex
	chats    map[string]*models.Chat // key: userID/sessionID
	moods    map[string]*models.MoodEntry
	tasks    map[string]*models.Task // key: task id
	contexts map[string]*models.EmotionalContext
	users    map[string]*models.User
	events   map[string]*models.SubscriptionEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[string]*models.Chat),
		moods:    make(map[string]*models.MoodEntry),
		tasks:    make(map[string]*models.Task),
		contexts: make(map[string]*models.EmotionalContext),
		users:    make(map[string]*models.User),
		events:   make(map[string]*models.SubscriptionEvent),
	}
}

func (s *MemoryStore) Close() error { return nil }

func pairKey(a, b string) string { return a + "/" + b }

// ---- chats ----

func (s *MemoryStore) GetChat(_ context.Context, userID, sessionID string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[pairKey(userID, sessionID)]
	if !ok {
		return nil, ErrNotFound
	}
	return chat.Clone(), nil
}

func (s *MemoryStore) SaveChat(_ context.Context, chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats[pairKey(chat.UserID, chat.SessionID)] = chat.Clone()
	return nil
}

func (s *MemoryStore) DeleteChat(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(userID, sessionID)
	if _, ok := s.chats[key]; !ok {
		return ErrNotFound
	}
	delete(s.chats, key)
	return nil
}

func (s *MemoryStore) ListChats(_ context.Context, q ChatQuery) ([]*models.Chat, error) {
	s.mu.RLock()
	var out []*models.Chat
	for _, c := range s.chats {
		if c.UserID != q.UserID {
			continue
		}
		if q.SessionID != "" && c.SessionID != q.SessionID {
			continue
		}
		if !q.Since.IsZero() && c.CreatedAt.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && !c.CreatedAt.Before(q.Until) {
			continue
		}
		if q.MoodOnly && c.MoodDetected == nil {
			continue
		}
		out = append(out, c.Clone())
	}
	s.mu.RUnlock()

	sortChats(out, q.Order)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func sortChats(chats []*models.Chat, order ChatOrder) {
	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i], chats[j]
		switch order {
		case OldestFirst:
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		case RecentlyUpdated:
			if a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.ID < b.ID
			}
			return a.UpdatedAt.After(b.UpdatedAt)
		default:
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

func (s *MemoryStore) CountChats(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.chats {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ---- moods ----

func (s *MemoryStore) GetMood(_ context.Context, userID, day string) (*models.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.moods[pairKey(userID, day)]
	if !ok {
		return nil, ErrNotFound
	}
	return entry.Clone(), nil
}

func (s *MemoryStore) SaveMood(_ context.Context, entry *models.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(entry.UserID, entry.Day)
	cp := entry.Clone()
	if existing, ok := s.moods[key]; ok {
		// 保留首次写入的ID与创建时间
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	}
	s.moods[key] = cp
	return nil
}

func (s *MemoryStore) ListMoods(_ context.Context, userID string, since time.Time) ([]*models.MoodEntry, error) {
	s.mu.RLock()
	var out []*models.MoodEntry
	for _, e := range s.moods {
		if e.UserID == userID && !e.Date.Before(since) {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// ---- tasks ----

func (s *MemoryStore) findTask(match func(*models.Task) bool) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if match(t) {
			return t.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetTask(_ context.Context, userID string, key models.TaskKey) (*models.Task, error) {
	return s.findTask(func(t *models.Task) bool {
		return t.UserID == userID && t.Key() == key
	})
}

func (s *MemoryStore) GetTaskByID(_ context.Context, userID, taskID string) (*models.Task, error) {
	return s.findTask(func(t *models.Task) bool {
		return t.UserID == userID && t.ID == taskID
	})
}

func (s *MemoryStore) GetTaskByStep(_ context.Context, userID, stepID string) (*models.Task, error) {
	return s.findTask(func(t *models.Task) bool {
		if t.UserID != userID {
			return false
		}
		for _, step := range t.Steps {
			if step.ID == stepID {
				return true
			}
		}
		return false
	})
}

func (s *MemoryStore) SaveTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tasks {
		if id != task.ID && t.UserID == task.UserID && t.Key() == task.Key() {
			return ErrDuplicate
		}
	}
	cp := task.Clone()
	for i := range cp.Steps {
		cp.Steps[i].TaskID = cp.ID
		cp.Steps[i].UserID = cp.UserID
		cp.Steps[i].Position = i
	}
	s.tasks[task.ID] = cp
	return nil
}

func (s *MemoryStore) ListTasks(_ context.Context, q TaskQuery) ([]*models.Task, error) {
	s.mu.RLock()
	var out []*models.Task
	for _, t := range s.tasks {
		if t.UserID != q.UserID {
			continue
		}
		if !q.Since.IsZero() && t.Date.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && !t.Date.Before(q.Until) {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// ---- emotional context ----

func (s *MemoryStore) GetContext(_ context.Context, userID string) (*models.EmotionalContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ec, ok := s.contexts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return ec.Clone(), nil
}

func (s *MemoryStore) SaveContext(_ context.Context, ec *models.EmotionalContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contexts[ec.UserID] = ec.Clone()
	return nil
}

// ---- users ----

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user.Clone()
	return nil
}

// ---- subscription events ----

func (s *MemoryStore) RecordEvent(_ context.Context, event *models.SubscriptionEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return false, nil
	}
	cp := *event
	s.events[event.ID] = &cp
	return true, nil
}

func (s *MemoryStore) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, eventID)
	return nil
}
