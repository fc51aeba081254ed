package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(steps int) *Task {
	n := 0
	t := &Task{ID: "t1", UserID: "u1", Scope: ScopeDaily, ScopeKey: "2024-03-25", Status: TaskPending}
	labels := make([]string, steps)
	for i := range labels {
		labels[i] = fmt.Sprintf("step %d", i+1)
	}
	t.ReplaceSteps(labels, func() string {
		n++
		return fmt.Sprintf("s%d", n)
	})
	return t
}

func TestRefreshStatusDerivesFromSteps(t *testing.T) {
	now := time.Date(2024, 3, 25, 10, 0, 0, 0, time.UTC)
	task := newTestTask(3)

	task.RefreshStatus(now)
	assert.Equal(t, TaskPending, task.Status)
	assert.Nil(t, task.CompletedAt)

	require.True(t, task.SetStepCompleted("s1", true, now))
	assert.Equal(t, TaskInProgress, task.Status)
	assert.Nil(t, task.CompletedAt)

	require.True(t, task.SetStepCompleted("s2", true, now))
	require.True(t, task.SetStepCompleted("s3", true, now))
	assert.Equal(t, TaskCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)
}

func TestCompletedAtSetOnlyOnTransition(t *testing.T) {
	first := time.Date(2024, 3, 25, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)
	task := newTestTask(1)

	require.True(t, task.SetStepCompleted("s1", true, first))
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, first, *task.CompletedAt)

	// 再次刷新不改变完成时间
	task.RefreshStatus(later)
	assert.Equal(t, first, *task.CompletedAt)

	require.True(t, task.SetStepCompleted("s1", false, later))
	assert.Equal(t, TaskPending, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.Nil(t, task.Steps[0].CompletedAt)
}

func TestSetStepCompletedUnknownStep(t *testing.T) {
	task := newTestTask(2)
	assert.False(t, task.SetStepCompleted("missing", true, time.Now()))
	assert.Equal(t, TaskPending, task.Status)
}

func TestMarkAllComplete(t *testing.T) {
	now := time.Date(2024, 3, 25, 10, 0, 0, 0, time.UTC)
	task := newTestTask(3)
	task.MarkAllComplete(now)

	assert.Equal(t, TaskCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	for _, s := range task.Steps {
		assert.True(t, s.Completed)
		require.NotNil(t, s.CompletedAt)
	}

	// 状态与步骤保持一致
	before := task.Status
	task.RefreshStatus(now.Add(time.Minute))
	assert.Equal(t, before, task.Status)
	assert.Equal(t, now, *task.CompletedAt)
}

func TestTaskCloneIsDeep(t *testing.T) {
	task := newTestTask(2)
	cp := task.Clone()
	cp.Steps[0].Label = "changed"
	cp.SetStepCompleted("s2", true, time.Now())

	assert.Equal(t, "step 1", task.Steps[0].Label)
	assert.False(t, task.Steps[1].Completed)
}

func TestTaskKeys(t *testing.T) {
	assert.NotEqual(t, DailyKey("abc"), SessionKey("abc"))
	task := newTestTask(1)
	assert.Equal(t, DailyKey("2024-03-25"), task.Key())
}
