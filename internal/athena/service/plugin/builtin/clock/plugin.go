// Package clock gives the model a sense of time: periodic ticks, timers and
// the current time.
package clock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/kiosk404/athena/pkg/utils/json"
	"github.com/robfig/cron/v3"
)

const (
	PluginName = "clock"

	EventTick         = "clock/tick"
	EventTimerExpired = "clock/timer-expired"
)

// Config of the clock plugin. A zero TickEverySeconds disables ticks.
type Config struct {
	TickEverySeconds int `mapstructure:"tick_every_seconds"`
}

// Timer is a pending timer as persisted in the plugin state.
type Timer struct {
	ID         string    `json:"id"`
	Seconds    float64   `json:"seconds"`
	Reason     string    `json:"reason"`
	TargetTime time.Time `json:"target_time"`

	t *time.Timer
}

type clockPlugin struct {
	cfg    Config
	events []plugin.EventDefinition
	tools  []plugin.ToolDefinition

	mu          sync.Mutex
	api         plugin.API
	timers      map[string]*Timer
	cron        *cron.Cron
	unsubscribe func()
	unloaded    bool
}

var _ plugin.Stateful = (*clockPlugin)(nil)

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	var conf Config
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode clock config: %w", err)
	}
	if conf.TickEverySeconds < 0 {
		return nil, fmt.Errorf("tick_every_seconds must not be negative, got %d", conf.TickEverySeconds)
	}
	return &clockPlugin{cfg: conf, timers: make(map[string]*Timer)}, nil
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

func (p *clockPlugin) Describe() string {
	p.mu.Lock()
	pending := len(p.timers)
	p.mu.Unlock()

	desc := fmt.Sprintf("There are %d timers pending.", pending)
	if p.cfg.TickEverySeconds > 0 {
		desc = fmt.Sprintf("The clock/tick event fires every %d seconds. When it does, check whether the current time calls for doing something, "+
			"or think about something you are interested in. ", p.cfg.TickEverySeconds) + desc
	}
	return desc
}

func (p *clockPlugin) Load(_ context.Context, api plugin.API) error {
	p.mu.Lock()
	p.api = api
	p.mu.Unlock()

	p.events = []plugin.EventDefinition{
		{
			Name:        EventTick,
			Description: "Fires periodically.",
			Args: plugin.Args{
				"current_time": plugin.String("Current time in ISO 8601 format.", true),
			},
		},
		{
			Name:        EventTimerExpired,
			Description: "Fires when a timer is up.",
			Args: plugin.Args{
				"seconds":      plugin.Number("Number of seconds the timer was set for.", true),
				"reason":       plugin.String("Reason for setting the timer.", true),
				"current_time": plugin.String("Current time in ISO 8601 format.", true),
			},
			ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
				return &plugin.Explanation{Summary: "Timer expired.", Details: plugin.StringArg(args, "reason")}
			},
		},
	}
	p.tools = []plugin.ToolDefinition{
		{
			Name:        "clock/set-timer",
			Description: "Sets a timer.",
			Args: plugin.Args{
				"seconds": plugin.Number("Number of seconds to set the timer for.", true),
				"reason":  plugin.String("Reason for setting the timer.", true),
			},
			Retvals: plugin.Args{
				"id":          plugin.String("The id of the timer.", true),
				"target_time": plugin.String("Target time in ISO 8601 format.", true),
			},
			Handler: p.setTimer,
			ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
				seconds, _ := plugin.NumberArg(args, "seconds")
				return &plugin.Explanation{
					Summary: fmt.Sprintf("Setting a timer for %s...", time.Duration(seconds*float64(time.Second))),
					Details: plugin.StringArg(args, "reason"),
				}
			},
		},
		{
			Name:        "clock/cancel-timer",
			Description: "Cancels a pending timer.",
			Args: plugin.Args{
				"id": plugin.String("The id of the timer.", true),
			},
			Retvals: plugin.Args{
				"status": plugin.String("The status of the operation.", true),
			},
			Handler: p.cancelTimer,
		},
		{
			Name:        "clock/get-current-time",
			Description: "Gets the current time.",
			Args:        plugin.Args{},
			Retvals: plugin.Args{
				"current_time": plugin.String("Current time in ISO 8601 format.", true),
			},
			Handler: func(context.Context, map[string]interface{}) (interface{}, error) {
				return map[string]interface{}{"current_time": now()}, nil
			},
		},
	}
	if err := plugin.RegisterAll(api, p.events, p.tools); err != nil {
		return err
	}

	if p.cfg.TickEverySeconds == 0 {
		return nil
	}
	if api.PluginsLoaded() {
		return p.startTicks()
	}
	unsubscribe := api.SubscribePrivate(func(name string, _ interface{}) {
		if name != plugin.PrivatePluginsLoaded {
			return
		}
		if err := p.startTicks(); err != nil {
			logger.ErrorX(PluginName, "[Clock] start ticks: %v", err)
		}
	})
	p.mu.Lock()
	p.unsubscribe = unsubscribe
	p.mu.Unlock()
	return nil
}

func (p *clockPlugin) Unload(_ context.Context, api plugin.API) error {
	p.mu.Lock()
	p.unloaded = true
	c := p.cron
	p.cron = nil
	for _, t := range p.timers {
		if t.t != nil {
			t.t.Stop()
		}
	}
	p.timers = make(map[string]*Timer)
	unsubscribe := p.unsubscribe
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if c != nil {
		<-c.Stop().Done()
	}
	return plugin.DeregisterAll(api, p.events, p.tools)
}

func (p *clockPlugin) startTicks() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil || p.unloaded {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %ds", p.cfg.TickEverySeconds), p.tick); err != nil {
		return err
	}
	c.Start()
	p.cron = c
	logger.InfoX(PluginName, "[Clock] ticking every %ds", p.cfg.TickEverySeconds)
	return nil
}

func (p *clockPlugin) tick() {
	if err := p.api.EmitEvent(EventTick, map[string]interface{}{"current_time": now()}); err != nil {
		logger.WarnX(PluginName, "[Clock] emit tick: %v", err)
	}
}

func (p *clockPlugin) setTimer(_ context.Context, args map[string]interface{}) (interface{}, error) {
	seconds, _ := plugin.NumberArg(args, "seconds")
	if seconds < 0 {
		return nil, fmt.Errorf("seconds must not be negative")
	}
	t := &Timer{
		ID:         uuid.NewString()[:8],
		Seconds:    seconds,
		Reason:     plugin.StringArg(args, "reason"),
		TargetTime: time.Now().Add(time.Duration(seconds * float64(time.Second))),
	}
	p.mu.Lock()
	p.arm(t)
	p.mu.Unlock()
	return map[string]interface{}{"id": t.ID, "target_time": t.TargetTime.Format(time.RFC3339)}, nil
}

// arm schedules t for its target time. Overdue timers fire right away.
// Callers hold p.mu.
func (p *clockPlugin) arm(t *Timer) {
	remaining := time.Until(t.TargetTime)
	if remaining < 0 {
		remaining = 0
	}
	id := t.ID
	t.t = time.AfterFunc(remaining, func() { p.expire(id) })
	p.timers[id] = t
}

func (p *clockPlugin) expire(id string) {
	p.mu.Lock()
	t, ok := p.timers[id]
	delete(p.timers, id)
	unloaded := p.unloaded
	p.mu.Unlock()
	if !ok || unloaded {
		return
	}

	err := p.api.EmitEvent(EventTimerExpired, map[string]interface{}{
		"seconds":      t.Seconds,
		"reason":       t.Reason,
		"current_time": now(),
	})
	if err != nil {
		logger.WarnX(PluginName, "[Clock] emit timer %s: %v", id, err)
	}
}

func (p *clockPlugin) cancelTimer(_ context.Context, args map[string]interface{}) (interface{}, error) {
	id := plugin.StringArg(args, "id")
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.timers[id]
	if !ok {
		return nil, fmt.Errorf("no pending timer with id %q", id)
	}
	t.t.Stop()
	delete(p.timers, id)
	return plugin.Status("success"), nil
}

// Pending returns the pending timers ordered by target time.
func (p *clockPlugin) Pending() []Timer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Timer, 0, len(p.timers))
	for _, t := range p.timers {
		out = append(out, Timer{ID: t.ID, Seconds: t.Seconds, Reason: t.Reason, TargetTime: t.TargetTime})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetTime.Before(out[j].TargetTime) })
	return out
}

type stateBlob struct {
	Timers []Timer `json:"timers"`
}

func (p *clockPlugin) State() (plugin.StateBlob, error) {
	return json.Marshal(stateBlob{Timers: p.Pending()})
}

func (p *clockPlugin) SetState(blob plugin.StateBlob) error {
	var s stateBlob
	if err := json.Unmarshal(blob, &s); err != nil {
		return fmt.Errorf("decode clock state: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range s.Timers {
		t := s.Timers[i]
		p.arm(&t)
	}
	return nil
}
