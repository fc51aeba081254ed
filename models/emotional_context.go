package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ContextResponse 一道引导问题及其回答
type ContextResponse struct {
	Question string   `json:"question"`
	Response []string `json:"response"`
}

// EmotionalContext 用户的长期情绪背景，每个用户一条
type EmotionalContext struct {
	UserID    string                                `gorm:"type:varchar(100);primaryKey" json:"userId"`
	Responses datatypes.JSONSlice[ContextResponse] `json:"responses"`
	CreatedAt time.Time                             `json:"createdAt"`
	UpdatedAt time.Time                             `json:"updatedAt"`
}

func (EmotionalContext) TableName() string {
	return "emotional_contexts"
}

// Upsert 已有问题则替换回答，否则追加；返回是否为新增
func (e *EmotionalContext) Upsert(question string, response []string) bool {
	for i := range e.Responses {
		if e.Responses[i].Question == question {
			e.Responses[i].Response = cloneStrings(response)
			return false
		}
	}
	e.Responses = append(e.Responses, ContextResponse{
		Question: question,
		Response: cloneStrings(response),
	})
	return true
}

// Lines 拼成提示词可用的文本行
func (e *EmotionalContext) Lines() []string {
	if e == nil {
		return nil
	}
	lines := make([]string, 0, len(e.Responses))
	for _, r := range e.Responses {
		if len(r.Response) == 0 {
			continue
		}
		lines = append(lines, r.Question+": "+strings.Join(r.Response, ", "))
	}
	return lines
}

// Clone 深拷贝
func (e *EmotionalContext) Clone() *EmotionalContext {
	if e == nil {
		return nil
	}
	c := *e
	c.Responses = make([]ContextResponse, len(e.Responses))
	for i, r := range e.Responses {
		c.Responses[i] = ContextResponse{Question: r.Question, Response: cloneStrings(r.Response)}
	}
	return &c
}
