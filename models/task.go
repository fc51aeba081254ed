package models

import (
	"time"
)

// TaskStatus 任务状态，由步骤完成情况推导
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// TaskScope 任务唯一性的作用域
type TaskScope string

const (
	// ScopeDaily 每用户每天一个，ScopeKey 为日期
	ScopeDaily TaskScope = "daily"
	// ScopeSession 每个聊天会话一个，ScopeKey 为 sessionId
	ScopeSession TaskScope = "session"
)

// TaskKey 任务的自然键
type TaskKey struct {
	Scope TaskScope
	Key   string
}

func DailyKey(day string) TaskKey         { return TaskKey{Scope: ScopeDaily, Key: day} }
func SessionKey(sessionID string) TaskKey { return TaskKey{Scope: ScopeSession, Key: sessionID} }

const (
	GeneratedByAI     = "ai"
	GeneratedByManual = "manual"
)

var taskCategories = map[string]bool{
	"self_care": true, "productivity": true, "social": true,
	"physical": true, "mental": true, "creative": true,
}

var taskDifficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

// ValidCategory 类别是否合法
func ValidCategory(c string) bool { return taskCategories[c] }

// ValidDifficulty 难度是否合法
func ValidDifficulty(d string) bool { return taskDifficulties[d] }

// Task 自我关怀任务
type Task struct {
	ID          string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	UserID      string     `gorm:"type:varchar(100);not null;uniqueIndex:uidx_task_scope,priority:1;index:idx_task_user_date,priority:1" json:"userId"`
	Scope       TaskScope  `gorm:"type:varchar(20);not null;uniqueIndex:uidx_task_scope,priority:2" json:"scope"`
	ScopeKey    string     `gorm:"type:varchar(100);not null;uniqueIndex:uidx_task_scope,priority:3" json:"scopeKey"`
	Date        time.Time  `gorm:"index:idx_task_user_date,priority:2" json:"date"`
	Title       string     `gorm:"type:varchar(200);not null" json:"taskTitle"`
	Description string     `gorm:"type:varchar(300)" json:"description"`
	Steps       []TaskStep `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"steps"`
	Status      TaskStatus `gorm:"type:varchar(20);index" json:"status"`
	GeneratedBy string     `gorm:"type:varchar(10)" json:"generatedBy"`
	Difficulty  string     `gorm:"type:varchar(10)" json:"difficulty"`
	Category    string     `gorm:"type:varchar(20)" json:"category"`
	CompletedAt *time.Time `json:"completedAt"`
	AIPrompt    *string    `gorm:"type:text" json:"aiPrompt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskStep 任务步骤
type TaskStep struct {
	ID          string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	TaskID      string     `gorm:"type:varchar(50);index" json:"-"`
	UserID      string     `gorm:"type:varchar(100);index" json:"-"`
	Position    int        `json:"-"`
	Label       string     `gorm:"type:varchar(255)" json:"label"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (TaskStep) TableName() string {
	return "task_steps"
}

// Key 任务的自然键
func (t *Task) Key() TaskKey {
	return TaskKey{Scope: t.Scope, Key: t.ScopeKey}
}

// ReplaceSteps 用新的步骤标签替换全部步骤
func (t *Task) ReplaceSteps(labels []string, newID func() string) {
	steps := make([]TaskStep, 0, len(labels))
	for i, label := range labels {
		steps = append(steps, TaskStep{
			ID:       newID(),
			TaskID:   t.ID,
			UserID:   t.UserID,
			Position: i,
			Label:    label,
		})
	}
	t.Steps = steps
}

// RefreshStatus 根据步骤推导状态；CompletedAt 只在进入 completed 时写入
func (t *Task) RefreshStatus(now time.Time) {
	done := 0
	for _, s := range t.Steps {
		if s.Completed {
			done++
		}
	}

	prev := t.Status
	switch {
	case done == 0:
		t.Status = TaskPending
	case done < len(t.Steps):
		t.Status = TaskInProgress
	default:
		t.Status = TaskCompleted
	}

	if t.Status != TaskCompleted {
		t.CompletedAt = nil
		return
	}
	if prev != TaskCompleted || t.CompletedAt == nil {
		ts := now
		t.CompletedAt = &ts
	}
}

// SetStepCompleted 更新单个步骤并刷新状态，步骤不存在返回 false
func (t *Task) SetStepCompleted(stepID string, completed bool, now time.Time) bool {
	for i := range t.Steps {
		if t.Steps[i].ID != stepID {
			continue
		}
		t.Steps[i].Completed = completed
		if completed {
			ts := now
			t.Steps[i].CompletedAt = &ts
		} else {
			t.Steps[i].CompletedAt = nil
		}
		t.RefreshStatus(now)
		return true
	}
	return false
}

// MarkAllComplete 同时完成全部步骤和任务
func (t *Task) MarkAllComplete(now time.Time) {
	for i := range t.Steps {
		if !t.Steps[i].Completed || t.Steps[i].CompletedAt == nil {
			ts := now
			t.Steps[i].Completed = true
			t.Steps[i].CompletedAt = &ts
		}
	}
	if t.Status != TaskCompleted || t.CompletedAt == nil {
		ts := now
		t.CompletedAt = &ts
	}
	t.Status = TaskCompleted
}

// StepIDs 所有步骤ID
func (t *Task) StepIDs() []string {
	ids := make([]string, 0, len(t.Steps))
	for _, s := range t.Steps {
		ids = append(ids, s.ID)
	}
	return ids
}

// Clone 深拷贝
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Steps = make([]TaskStep, len(t.Steps))
	for i, s := range t.Steps {
		c.Steps[i] = s
		if s.CompletedAt != nil {
			ts := *s.CompletedAt
			c.Steps[i].CompletedAt = &ts
		}
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	if t.AIPrompt != nil {
		p := *t.AIPrompt
		c.AIPrompt = &p
	}
	return &c
}
