package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultDeepSeekURL = "https://api.deepseek.com"
	defaultMoonshotURL = "https://api.moonshot.cn/v1"
)

// OpenAICompatibleProvider talks to any chat-completions API that follows
// the OpenAI wire format (DeepSeek, Moonshot)
type OpenAICompatibleProvider struct {
	client *openai.Client
	lang   string
}

// NewOpenAICompatibleProvider creates a provider rooted at baseURL
func NewOpenAICompatibleProvider(baseURL, apiKey, lang string) *OpenAICompatibleProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}

	return &OpenAICompatibleProvider{
		client: openai.NewClientWithConfig(cfg),
		lang:   lang,
	}
}

func (p *OpenAICompatibleProvider) TranslateOne(ctx context.Context, model, text string) (string, error) {
	out, err := p.complete(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: singlePrompt(p.lang, text)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (p *OpenAICompatibleProvider) TranslateMany(ctx context.Context, model string, texts []string) (string, error) {
	return p.complete(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: batchSystemPrompt(p.lang)},
			{Role: openai.ChatMessageRoleUser, Content: batchUserPrompt(texts)},
		},
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

func (p *OpenAICompatibleProvider) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResult
	}
	return resp.Choices[0].Message.Content, nil
}
