// Package cerebrum is the cognition loop: it queues domain events and tool
// results, feeds them to a language model in debounced turns, and dispatches
// the tool calls the model asks for.
package cerebrum

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/jinzhu/copier"
	"github.com/kiosk404/athena/internal/athena/service/llm"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/kiosk404/athena/pkg/safego"
	"github.com/kiosk404/athena/pkg/utils/json"
)

const PluginName = "cerebrum"

// Private events.
const (
	EventQueued        = "cerebrum/event"
	EventBusy          = "cerebrum/busy"
	EventModelResponse = "cerebrum/model-response"
	EventThinking      = "cerebrum/thinking"
	EventError         = "cerebrum/error"

	// TokenRefreshed carries {token}: a new api key for the model endpoint.
	TokenRefreshed = "webui/token-refreshed"
)

const imageToolName = "image/check-out"

// Config of the cognition loop.
type Config struct {
	llm.Params     `mapstructure:",squash"`
	MaxPrompts     int           `mapstructure:"max_prompts"`
	MaxEventStrlen int           `mapstructure:"max_event_strlen"`
	ImageSupported bool          `mapstructure:"image_supported"`
	Debounce       time.Duration `mapstructure:"debounce"`
	SpillDir       string        `mapstructure:"spill_dir"`
}

func (c *Config) complete() {
	if c.Provider == "" {
		c.Provider = llm.OpenAIName
	}
	if c.MaxPrompts <= 0 {
		c.MaxPrompts = 30
	}
	// the system preamble plus at least one turn
	if c.MaxPrompts < 2 {
		c.MaxPrompts = 2
	}
	if c.MaxEventStrlen <= 0 {
		c.MaxEventStrlen = 8192
	}
	if c.Debounce <= 0 {
		c.Debounce = 500 * time.Millisecond
	}
	if c.SpillDir == "" {
		c.SpillDir = "data/spill"
	}
}

type modelBuilder func(ctx context.Context, p llm.Params) (model.BaseChatModel, error)

// Cerebrum is the cognition loop plugin.
type Cerebrum struct {
	cfg    Config
	build  modelBuilder
	spill  *spiller
	events Queue[Item]
	images Queue[string]

	mu          sync.Mutex
	api         plugin.API
	chat        model.BaseChatModel
	transcript  []*schema.Message
	busy        bool
	unloaded    bool
	timer       *time.Timer
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe []func()

	// cycles tracks the cycle in flight so Unload can wait for it.
	cycles sync.WaitGroup
}

var (
	_ plugin.Plugin   = (*Cerebrum)(nil)
	_ plugin.Stateful = (*Cerebrum)(nil)
)

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	var conf Config
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode cerebrum config: %w", err)
	}
	return newCerebrum(conf, llm.Default().BuildChatModel), nil
}

func newCerebrum(conf Config, build modelBuilder) *Cerebrum {
	conf.complete()
	return &Cerebrum{
		cfg:   conf,
		build: build,
		spill: &spiller{maxLen: conf.MaxEventStrlen, dir: conf.SpillDir},
	}
}

func (c *Cerebrum) Load(ctx context.Context, api plugin.API) error {
	chat, err := c.build(ctx, c.cfg.Params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.api = api
	c.chat = chat
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	if c.cfg.ImageSupported {
		if err := api.RegisterTool(c.imageTool()); err != nil {
			c.cancel()
			return err
		}
	}

	c.mu.Lock()
	c.unsubscribe = append(c.unsubscribe,
		api.Subscribe(c.onEvent),
		api.SubscribePrivate(c.onPrivateEvent),
	)
	c.mu.Unlock()

	logger.InfoX(PluginName, "[Cerebrum] loaded with %s/%s, debounce %s", c.cfg.Provider, c.cfg.Model, c.cfg.Debounce)
	return nil
}

func (c *Cerebrum) Unload(_ context.Context, api plugin.API) error {
	c.mu.Lock()
	c.unloaded = true
	if c.timer != nil {
		c.timer.Stop()
	}
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	cancel := c.cancel
	c.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	if cancel != nil {
		cancel()
	}
	c.cycles.Wait()

	if c.cfg.ImageSupported {
		return api.DeregisterTool(imageToolName)
	}
	return nil
}

type stateBlob struct {
	Prompts    []*schema.Message `json:"prompts"`
	EventQueue []Item            `json:"event_queue"`
	ImageURLs  []string          `json:"image_urls"`
}

func (c *Cerebrum) State() (plugin.StateBlob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.Marshal(stateBlob{
		Prompts:    c.transcript,
		EventQueue: c.events.Items(),
		ImageURLs:  c.images.Items(),
	})
}

func (c *Cerebrum) SetState(blob plugin.StateBlob) error {
	var s stateBlob
	if err := json.Unmarshal(blob, &s); err != nil {
		return fmt.Errorf("decode cerebrum state: %w", err)
	}

	c.mu.Lock()
	c.transcript = s.Prompts
	c.events.Reset(s.EventQueue)
	c.images.Reset(s.ImageURLs)
	api := c.api
	c.mu.Unlock()

	// Restored on a live runtime: nothing will announce plugins-loaded again.
	if api != nil && api.PluginsLoaded() && c.events.PeekLength() > 0 {
		c.schedule()
	}
	return nil
}

// Transcript returns a copy of the live transcript.
func (c *Cerebrum) Transcript() []*schema.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*schema.Message(nil), c.transcript...)
}

// Busy reports whether a cycle is running.
func (c *Cerebrum) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Cerebrum) onEvent(name string, args map[string]interface{}) {
	c.enqueue(Item{Name: name, Args: args})
}

func (c *Cerebrum) onPrivateEvent(name string, data interface{}) {
	switch name {
	case plugin.PrivatePluginsLoaded:
		c.mu.Lock()
		api := c.api
		c.mu.Unlock()
		logger.DebugX(PluginName, "[Cerebrum] system preamble:\n%s", buildPreamble(api.Catalog(), api.Descriptions()))
		if c.events.PeekLength() > 0 {
			c.schedule()
		}
	case TokenRefreshed:
		c.refreshToken(data)
	}
}

func (c *Cerebrum) refreshToken(data interface{}) {
	var token string
	switch d := data.(type) {
	case map[string]interface{}:
		token, _ = d["token"].(string)
	case map[string]string:
		token = d["token"]
	}
	if token == "" {
		return
	}

	params := c.cfg.Params
	params.APIKey = token

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	chat, err := c.build(ctx, params)
	if err != nil {
		logger.ErrorX(PluginName, "[Cerebrum] rebuild chat model after token refresh: %v", err)
		return
	}
	c.mu.Lock()
	c.chat = chat
	c.mu.Unlock()
	logger.InfoX(PluginName, "[Cerebrum] chat model rebuilt with refreshed token")
}

// enqueue appends an item and restarts the debounce window.
func (c *Cerebrum) enqueue(it Item) {
	it.Args = c.spill.sanitize(normalize(it.Args))
	text := renderItem(it)
	logger.InfoX(PluginName, "[Cerebrum] %s", text)

	c.mu.Lock()
	api, unloaded := c.api, c.unloaded
	c.mu.Unlock()
	if api != nil && !unloaded {
		api.EmitPrivateEvent(EventQueued, map[string]interface{}{"content": text})
	}

	c.events.EnqueueTail(it)
	c.schedule()
}

func (c *Cerebrum) schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unloaded {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.cfg.Debounce, c.process)
}

// process runs one cycle unless one is already running. A busy loop picks
// the queue up again when it finishes.
func (c *Cerebrum) process() {
	c.mu.Lock()
	if c.busy || c.unloaded {
		c.mu.Unlock()
		return
	}
	c.busy = true
	c.cycles.Add(1)
	c.mu.Unlock()

	defer c.cycles.Done()
	defer c.finish()
	c.cycle()
}

func (c *Cerebrum) cycle() {
	nEvents := c.events.PeekLength()
	nImages := c.images.PeekLength()
	if nEvents == 0 && nImages == 0 {
		return
	}
	items := c.events.Snapshot(nEvents)
	images := c.images.Snapshot(nImages)

	c.mu.Lock()
	var working []*schema.Message
	if err := copier.CopyWithOption(&working, &c.transcript, copier.Option{DeepCopy: true}); err != nil {
		working = append(working[:0], c.transcript...)
	}
	api, chat, ctx := c.api, c.chat, c.ctx
	c.mu.Unlock()

	system := schema.SystemMessage(buildPreamble(api.Catalog(), api.Descriptions()))
	if len(working) == 0 {
		working = append(working, system)
	} else {
		working[0] = system
	}
	working = append(working, userTurn(items, images))
	working = truncate(working, c.cfg.MaxPrompts)

	api.EmitPrivateEvent(EventBusy, map[string]interface{}{"busy": true})

	resp, err := chat.Generate(ctx, working, c.generateOptions()...)
	if err != nil {
		c.fail(err)
		return
	}
	text := trimResponse(resp.Content)
	working = truncate(append(working, schema.AssistantMessage(text, nil)), c.cfg.MaxPrompts)

	c.mu.Lock()
	if c.unloaded {
		c.mu.Unlock()
		return
	}
	c.events.RemovePrefix(nEvents)
	c.images.RemovePrefix(nImages)
	c.transcript = working
	c.mu.Unlock()

	logger.InfoX(PluginName, "[Cerebrum] model response:\n%s", text)
	api.EmitPrivateEvent(EventModelResponse, map[string]interface{}{"content": text})

	for _, thinking := range extractThinking(text) {
		api.EmitPrivateEvent(EventThinking, map[string]interface{}{"content": thinking})
	}
	for _, raw := range extractToolCalls(text) {
		raw := raw
		safego.Go(ctx, func() { c.dispatch(ctx, raw) })
	}
}

func (c *Cerebrum) generateOptions() []model.Option {
	opts := []model.Option{model.WithStop(stopTokens)}
	if c.cfg.Temperature != nil {
		opts = append(opts, model.WithTemperature(*c.cfg.Temperature))
	}
	if c.cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(c.cfg.MaxTokens))
	}
	return opts
}

// dispatch runs one tool call. Its outcome, error or not, goes back on the
// queue as a tool result.
func (c *Cerebrum) dispatch(ctx context.Context, raw string) {
	call, err := parseToolCall(raw)
	var result interface{}
	if err == nil {
		result, err = c.api.CallTool(context.WithoutCancel(ctx), call.Name, call.Args)
	}
	if err != nil {
		name, id := call.Name, call.ID
		if name == "" {
			name = "tool_error"
		}
		if id == "" {
			id = "tool_error"
		}
		c.deliver(Item{ToolResult: true, Name: name, ID: id, Args: map[string]interface{}{"error": err.Error()}})
		return
	}
	c.deliver(Item{ToolResult: true, Name: call.Name, ID: call.ID, Args: result})
}

// deliver queues a tool result unless the plugin was unloaded while the
// call ran. Its state is already gathered by then, so the result is dropped.
func (c *Cerebrum) deliver(it Item) {
	c.mu.Lock()
	unloaded := c.unloaded
	c.mu.Unlock()
	if unloaded {
		logger.WarnX(PluginName, "[Cerebrum] dropping result of %s (id %s): unloaded while the call ran", it.Name, it.ID)
		return
	}
	c.enqueue(it)
}

func (c *Cerebrum) fail(err error) {
	c.mu.Lock()
	if c.unloaded {
		c.mu.Unlock()
		return
	}
	overflow := isContextOverflow(err)
	if overflow && len(c.transcript) > 1 {
		c.transcript = append(c.transcript[:1:1], c.transcript[2:]...)
	}
	api := c.api
	c.mu.Unlock()

	logger.ErrorX(PluginName, "[Cerebrum] llm call failed (context overflow: %t): %v", overflow, err)
	api.EmitPrivateEvent(EventError, map[string]interface{}{"content": err.Error()})
}

func (c *Cerebrum) finish() {
	c.mu.Lock()
	c.busy = false
	unloaded := c.unloaded
	api := c.api
	c.mu.Unlock()

	if unloaded {
		return
	}
	api.EmitPrivateEvent(EventBusy, map[string]interface{}{"busy": false})
	if c.events.PeekLength() > 0 {
		c.schedule()
	}
}

var overflowSignatures = []string{
	"maximum context length",
	"context_length_exceeded",
	"context length",
	"too many tokens",
	"prompt is too long",
}

func isContextOverflow(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, sig := range overflowSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func (c *Cerebrum) imageTool() plugin.ToolDefinition {
	return plugin.ToolDefinition{
		Name:        imageToolName,
		Description: "Check out an image. Use it whenever you want to see an image or someone asks you to look at one.",
		Args: plugin.Args{
			"image": plugin.String("The URL or local path of the image.", true),
		},
		Retvals: plugin.Args{
			"result": plugin.String("The result of checking out the image.", true),
		},
		Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			image := plugin.StringArg(args, "image")
			if !strings.HasPrefix(image, "http://") && !strings.HasPrefix(image, "https://") {
				uri, err := dataURI(image)
				if err != nil {
					return nil, err
				}
				image = uri
			}
			c.images.EnqueueTail(image)
			return map[string]interface{}{"result": "success"}, nil
		},
		ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
			return &plugin.Explanation{Summary: "Checking out the image...", Details: plugin.StringArg(args, "image")}
		},
	}
}

// dataURI inlines a local image file.
func dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
