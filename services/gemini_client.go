package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"MindMateGo/config"
	"MindMateGo/models"
)

// GeminiGenerator 基于 Gemini 的文本生成客户端，有 API Key 时走 Gemini API，否则走 Vertex AI
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
}

func NewGeminiGenerator(ctx context.Context, conf config.Config) (*GeminiGenerator, error) {
	cc := &genai.ClientConfig{
		APIKey:  conf.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if conf.GeminiAPIKey == "" {
		cc = &genai.ClientConfig{
			Project:  conf.GCPProjectID,
			Location: conf.GCPLocation,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	modelName := conf.LLMModel
	if modelName == "" || modelName == "gpt-3.5-turbo" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiGenerator{client: client, modelName: modelName}, nil
}

// thinkingConfig flash 系列关闭思考，输出上限全部留给正文；其他模型使用默认
func thinkingConfig(model string) *genai.ThinkingConfig {
	if !strings.Contains(model, "flash") {
		return nil
	}
	var budget int32
	return &genai.ThinkingConfig{ThinkingBudget: &budget}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		var role genai.Role = genai.RoleUser
		if m.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	cfg.ThinkingConfig = thinkingConfig(g.modelName)

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}
