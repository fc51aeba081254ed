package services

import (
	"context"
	"fmt"

	"MindMateGo/config"
	"MindMateGo/models"
)

// 调用用途，用于日志和测试替身
const (
	PurposeTask     = "task"
	PurposeChat     = "chat"
	PurposeMood     = "mood"
	PurposeSummary  = "summary"
	PurposeInsights = "insights"
)

// ChatMessage 发送给模型的一条消息
type ChatMessage struct {
	Role    models.Role
	Content string
}

// GenerateRequest 一次文本生成请求
type GenerateRequest struct {
	Purpose     string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// TextGenerator 文本生成服务
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// NewTextGenerator 按配置创建文本生成客户端
func NewTextGenerator(ctx context.Context, conf config.Config) (TextGenerator, error) {
	switch conf.LLMProvider {
	case "openai":
		return NewOpenAIGenerator(conf.OpenAIAPIKey, conf.OpenAIAPIEndpoint, conf.LLMModel)
	case "gemini":
		return NewGeminiGenerator(ctx, conf)
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", conf.LLMProvider)
	}
}
