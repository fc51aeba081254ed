package services

import (
	"context"
	"fmt"
	"sync"
)

// MockGenerator 本地开发和测试用的文本生成替身
type MockGenerator struct {
	mu      sync.Mutex
	calls   []GenerateRequest
	handler func(req GenerateRequest) (string, error)
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{handler: cannedResponse}
}

// NewScriptedGenerator 使用自定义回复逻辑
func NewScriptedGenerator(handler func(req GenerateRequest) (string, error)) *MockGenerator {
	return &MockGenerator{handler: handler}
}

func (m *MockGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	handler := m.handler
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return handler(req)
}

// Calls 返回指定用途的调用记录，purpose 为空时返回全部
func (m *MockGenerator) Calls(purpose string) []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []GenerateRequest
	for _, c := range m.calls {
		if purpose == "" || c.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out
}

func cannedResponse(req GenerateRequest) (string, error) {
	switch req.Purpose {
	case PurposeTask:
		return `{"taskTitle":"Take a mindful walk","description":"A short walk helps reset your mind","steps":[{"label":"Put on comfortable shoes"},{"label":"Walk for 15 minutes"},{"label":"Notice three things you can see"}],"category":"physical","difficulty":"easy"}`, nil
	case PurposeMood:
		return `{"mood":"neutral","sentiment":"neutral","confidence":0.5,"topics":[]}`, nil
	case PurposeSummary:
		return "The user has been sharing how their day is going.", nil
	case PurposeInsights:
		return `{"insights":["Your mood has been steady this week","Keep up your regular check-ins","Try a short walk on lower days"]}`, nil
	default:
		last := ""
		if n := len(req.Messages); n > 0 {
			last = req.Messages[n-1].Content
		}
		return fmt.Sprintf("I hear you. You said %q. Tell me a little more about how that makes you feel.", last), nil
	}
}
