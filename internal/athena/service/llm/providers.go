package llm

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoClaude "github.com/cloudwego/eino-ext/components/model/claude"
	einoDeepseek "github.com/cloudwego/eino-ext/components/model/deepseek"
	einoGemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoOllama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoOpenAI "github.com/cloudwego/eino-ext/components/model/openai"
	einoQwen "github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

const (
	OpenAIName    = "openai"
	AnthropicName = "anthropic"
	GeminiName    = "gemini"
	DeepSeekName  = "deepseek"
	QwenName      = "qwen"
	OllamaName    = "ollama"
)

// buildOpenAI is the common path for every OpenAI compatible endpoint.
func buildOpenAI(ctx context.Context, p *Params) (model.BaseChatModel, error) {
	cfg := &einoOpenAI.ChatModelConfig{
		Model:       p.Model,
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		ResponseFormat: &einoOpenAI.ChatCompletionResponseFormat{
			Type: einoOpenAI.ChatCompletionResponseFormatTypeText,
		},
	}
	if p.MaxTokens > 0 {
		cfg.MaxTokens = gptr.Of(p.MaxTokens)
	}
	return einoOpenAI.NewChatModel(ctx, cfg)
}

func buildAnthropic(ctx context.Context, p *Params) (model.BaseChatModel, error) {
	cfg := &einoClaude.Config{
		APIKey:      p.APIKey,
		Model:       p.Model,
		MaxTokens:   4096,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
	if p.MaxTokens > 0 {
		cfg.MaxTokens = p.MaxTokens
	}
	if p.BaseURL != "" {
		cfg.BaseURL = gptr.Of(p.BaseURL)
	}
	return einoClaude.NewChatModel(ctx, cfg)
}

func buildGemini(ctx context.Context, p *Params) (model.BaseChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: p.BaseURL,
		},
	})
	if err != nil {
		return nil, err
	}

	cfg := &einoGemini.Config{
		Client:      client,
		Model:       p.Model,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
	if p.MaxTokens > 0 {
		cfg.MaxTokens = gptr.Of(p.MaxTokens)
	}
	return einoGemini.NewChatModel(ctx, cfg)
}

func buildDeepSeek(ctx context.Context, p *Params) (model.BaseChatModel, error) {
	conf := &einoDeepseek.ChatModelConfig{
		APIKey:             p.APIKey,
		Model:              p.Model,
		BaseURL:            p.BaseURL,
		Temperature:        0.7,
		MaxTokens:          p.MaxTokens,
		ResponseFormatType: einoDeepseek.ResponseFormatTypeText,
	}
	if p.Temperature != nil {
		conf.Temperature = *p.Temperature
	}
	return einoDeepseek.NewChatModel(ctx, conf)
}

func buildQwen(ctx context.Context, p *Params) (model.BaseChatModel, error) {
	conf := &einoQwen.ChatModelConfig{
		APIKey:      p.APIKey,
		Model:       p.Model,
		BaseURL:     p.BaseURL,
		Temperature: gptr.Of(float32(0.7)),
		TopP:        p.TopP,
		ResponseFormat: &einoOpenAI.ChatCompletionResponseFormat{
			Type: einoOpenAI.ChatCompletionResponseFormatTypeText,
		},
	}
	if p.Temperature != nil {
		conf.Temperature = gptr.Of(*p.Temperature)
	}
	if p.MaxTokens > 0 {
		conf.MaxTokens = gptr.Of(p.MaxTokens)
	}
	return einoQwen.NewChatModel(ctx, conf)
}

func buildOllama(ctx context.Context, p *Params) (model.BaseChatModel, error) {
	conf := &einoOllama.ChatModelConfig{
		BaseURL: p.BaseURL,
		Model:   p.Model,
		Options: &einoOllama.Options{},
	}
	if p.Temperature != nil {
		conf.Options.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		conf.Options.TopP = *p.TopP
	}
	return einoOllama.NewChatModel(ctx, conf)
}
