// Package llmchat lets the model consult other language models.
package llmchat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/athena/internal/athena/service/llm"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/utils/json"
)

const PluginName = "llm"

type Config struct {
	Provider string   `mapstructure:"provider"`
	BaseURL  string   `mapstructure:"base_url"`
	APIKey   string   `mapstructure:"api_key"`
	Models   []string `mapstructure:"models"`
}

type builder func(ctx context.Context, p llm.Params) (model.BaseChatModel, error)

type chatPlugin struct {
	cfg   Config
	build builder
	tools []plugin.ToolDefinition

	mu     sync.Mutex
	models map[string]model.BaseChatModel
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	var conf Config
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode llm config: %w", err)
	}
	return newPlugin(conf, llm.Default().BuildChatModel), nil
}

func newPlugin(conf Config, build builder) *chatPlugin {
	return &chatPlugin{cfg: conf, build: build, models: make(map[string]model.BaseChatModel)}
}

func (p *chatPlugin) Load(_ context.Context, api plugin.API) error {
	available, _ := json.MarshalString(p.cfg.Models)
	p.tools = []plugin.ToolDefinition{{
		Name:        "llm/chat",
		Description: "Chats with another language model.",
		Args: plugin.Args{
			"message": plugin.String("The message to send.", true),
			"image": plugin.String("URL of an image to send along. Only models that support images accept it. "+
				"Do not put the URL in the message.", false),
			"model":       plugin.String("The model to use. Available models: "+available, true),
			"temperature": plugin.Number("The temperature to use, 0 is the most deterministic and 1 the most random.", false),
		},
		Retvals: plugin.Args{
			"result": plugin.String("The answer of the model.", true),
		},
		Handler: p.chat,
		ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
			return &plugin.Explanation{
				Summary: fmt.Sprintf("Asking %s...", plugin.StringArg(args, "model")),
				Details: plugin.StringArg(args, "message"),
			}
		},
		ExplainRetvals: func(_ map[string]interface{}, retvals interface{}) *plugin.Explanation {
			m, _ := retvals.(map[string]interface{})
			result, _ := m["result"].(string)
			return &plugin.Explanation{Summary: "Got an answer.", Details: result}
		},
	}}
	return plugin.RegisterAll(api, nil, p.tools)
}

func (p *chatPlugin) Unload(_ context.Context, api plugin.API) error {
	return plugin.DeregisterAll(api, nil, p.tools)
}

func (p *chatPlugin) allowed(name string) bool {
	if len(p.cfg.Models) == 0 {
		return true
	}
	for _, m := range p.cfg.Models {
		if m == name {
			return true
		}
	}
	return false
}

// chatModel returns the cached chat model for name, building it on first use.
func (p *chatPlugin) chatModel(ctx context.Context, name string) (model.BaseChatModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cm, ok := p.models[name]; ok {
		return cm, nil
	}
	cm, err := p.build(ctx, llm.Params{
		Provider: p.cfg.Provider,
		BaseURL:  p.cfg.BaseURL,
		APIKey:   p.cfg.APIKey,
		Model:    name,
	})
	if err != nil {
		return nil, err
	}
	p.models[name] = cm
	return cm, nil
}

func (p *chatPlugin) chat(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	name := plugin.StringArg(args, "model")
	if !p.allowed(name) {
		return nil, fmt.Errorf("model %q is not available, use one of %s", name, strings.Join(p.cfg.Models, ", "))
	}
	cm, err := p.chatModel(ctx, name)
	if err != nil {
		return nil, err
	}

	message := plugin.StringArg(args, "message")
	msg := schema.UserMessage(message)
	if image := plugin.StringArg(args, "image"); image != "" {
		msg = &schema.Message{Role: schema.User, MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: message},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: image}},
		}}
	}

	var opts []model.Option
	if t, ok := plugin.NumberArg(args, "temperature"); ok {
		opts = append(opts, model.WithTemperature(float32(t)))
	}
	resp, err := cm.Generate(ctx, []*schema.Message{msg}, opts...)
	if err != nil {
		return nil, fmt.Errorf("chat with %s: %w", name, err)
	}
	return map[string]interface{}{"result": resp.Content}, nil
}
