// Package shorttermmemory keeps a handful of notes in the system preamble so
// they survive transcript truncation.
package shorttermmemory

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/utils/json"
)

const PluginName = "short-term-memory"

type Config struct {
	MaxMessages int `mapstructure:"max_messages"`
	MaxLength   int `mapstructure:"max_length"`
}

type memory struct {
	cfg   Config
	tools []plugin.ToolDefinition

	mu       sync.Mutex
	messages []string
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	conf := Config{MaxMessages: 20, MaxLength: 500}
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode short-term-memory config: %w", err)
	}
	return &memory{cfg: conf}, nil
}

func (m *memory) Describe() string {
	m.mu.Lock()
	current, _ := json.MarshalString(m.messages)
	m.mu.Unlock()
	if current == "null" {
		current = "[]"
	}
	return fmt.Sprintf("You have a short-term memory. Put whatever matters most in the current context there, "+
		"because the conversation and even your own thoughts can disappear at any time. Be specific and detailed. "+
		"It holds at most %d messages of at most %d characters each. Current messages: %s",
		m.cfg.MaxMessages, m.cfg.MaxLength, current)
}

func (m *memory) Load(_ context.Context, api plugin.API) error {
	status := plugin.Args{"status": plugin.String("The status of the operation.", true)}
	m.tools = []plugin.ToolDefinition{
		{
			Name:        "short-term-memory/add",
			Description: "Adds a message to your short-term memory.",
			Args: plugin.Args{
				"message": plugin.String("The message to add.", true),
			},
			Retvals: status,
			Handler: m.add,
		},
		{
			Name:        "short-term-memory/remove",
			Description: "Removes a message from your short-term memory.",
			Args: plugin.Args{
				"index": plugin.Number("The index of the message to remove.", true),
			},
			Retvals: status,
			Handler: m.remove,
		},
		{
			Name:        "short-term-memory/edit",
			Description: "Replaces a message in your short-term memory.",
			Args: plugin.Args{
				"index":   plugin.Number("The index of the message to edit.", true),
				"message": plugin.String("The new message.", true),
			},
			Retvals: status,
			Handler: m.edit,
		},
	}
	return plugin.RegisterAll(api, nil, m.tools)
}

func (m *memory) Unload(_ context.Context, api plugin.API) error {
	return plugin.DeregisterAll(api, nil, m.tools)
}

func (m *memory) checkLength(msg string) error {
	if utf8.RuneCountInString(msg) > m.cfg.MaxLength {
		return fmt.Errorf("message is too long: each message can have at most %d characters", m.cfg.MaxLength)
	}
	return nil
}

// index validates the index argument. Callers hold m.mu.
func (m *memory) index(args map[string]interface{}) (int, error) {
	f, _ := plugin.NumberArg(args, "index")
	i := int(f)
	if float64(i) != f || i < 0 || i >= len(m.messages) {
		return 0, fmt.Errorf("invalid index %v: it must be an integer between 0 and %d", f, len(m.messages)-1)
	}
	return i, nil
}

func (m *memory) add(_ context.Context, args map[string]interface{}) (interface{}, error) {
	msg := plugin.StringArg(args, "message")
	if err := m.checkLength(msg); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) >= m.cfg.MaxMessages {
		return nil, fmt.Errorf("short-term memory is full (%d messages), remove or edit some messages first", m.cfg.MaxMessages)
	}
	m.messages = append(m.messages, msg)
	return plugin.Status("success"), nil
}

func (m *memory) remove(_ context.Context, args map[string]interface{}) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(args)
	if err != nil {
		return nil, err
	}
	m.messages = append(m.messages[:i], m.messages[i+1:]...)
	return plugin.Status("success"), nil
}

func (m *memory) edit(_ context.Context, args map[string]interface{}) (interface{}, error) {
	msg := plugin.StringArg(args, "message")
	if err := m.checkLength(msg); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(args)
	if err != nil {
		return nil, err
	}
	m.messages[i] = msg
	return plugin.Status("success"), nil
}

type stateBlob struct {
	Messages []string `json:"messages"`
}

func (m *memory) State() (plugin.StateBlob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.Marshal(stateBlob{Messages: m.messages})
}

func (m *memory) SetState(blob plugin.StateBlob) error {
	var s stateBlob
	if err := json.Unmarshal(blob, &s); err != nil {
		return fmt.Errorf("decode short-term-memory state: %w", err)
	}
	m.mu.Lock()
	m.messages = s.Messages
	m.mu.Unlock()
	return nil
}
