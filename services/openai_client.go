package services

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"MindMateGo/models"
)

// OpenAIGenerator 兼容 OpenAI 协议的文本生成客户端
type OpenAIGenerator struct {
	llm llms.Model
}

func NewOpenAIGenerator(apiKey, apiEndpoint, model string) (*OpenAIGenerator, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if apiEndpoint != "" {
		opts = append(opts, openai.WithBaseURL(apiEndpoint))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &OpenAIGenerator{llm: llm}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	options := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		options = append(options, llms.WithJSONMode())
	}

	response, err := g.llm.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", fmt.Errorf("openai generate content: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return response.Choices[0].Content, nil
}
