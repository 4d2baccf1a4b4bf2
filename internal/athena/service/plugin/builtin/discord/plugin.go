// Package discord connects the agent to a Discord bot account.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/athena/service/llm"
	"github.com/kiosk404/athena/pkg/logger"
)

const (
	PluginName = "discord"
	logModule  = "discord"

	EventMessageReceived = "discord/message-received"
	ToolSendMessage      = "discord/send-message"
)

type Config struct {
	// BotToken may be given as ${ENV_NAME}.
	BotToken string `mapstructure:"bot_token"`
}

// session is the part of *discordgo.Session the plugin uses.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type dialer func(token string) (session, error)

type Plugin struct {
	token string
	dial  dialer

	mu            sync.Mutex
	api           plugin.API
	sess          session
	removeHandler func()

	events []plugin.EventDefinition
	tools  []plugin.ToolDefinition
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return newPlugin(cfg, dialDiscord)
}

func newPlugin(cfg plugin.Config, dial dialer) (*Plugin, error) {
	var conf Config
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode discord config: %w", err)
	}
	token := llm.ResolveEnvValue(conf.BotToken)
	if token == "" {
		return nil, errors.New("discord: bot_token is required")
	}
	return &Plugin{token: token, dial: dial}, nil
}

func dialDiscord(token string) (session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuilds
	return dg, nil
}

func (p *Plugin) Describe() string {
	return "You are connected to Discord as a bot. Messages sent to you arrive as " + EventMessageReceived +
		" events. Reply with " + ToolSendMessage + ", quoting the message id when answering a specific message."
}

func (p *Plugin) Load(_ context.Context, api plugin.API) error {
	p.events = []plugin.EventDefinition{{
		Name:        EventMessageReceived,
		Description: "A Discord message was received.",
		Args: plugin.Args{
			"id": plugin.String("The message id.", true),
			"author": plugin.Object("The author of the message.", true, plugin.Args{
				"id":       plugin.String("The user id.", true),
				"username": plugin.String("The user name.", true),
			}),
			"channel": plugin.Object("The channel of the message.", true, plugin.Args{
				"id":   plugin.String("The channel id.", true),
				"type": plugin.String("One of text, dm, group_dm, thread.", true),
				"name": plugin.String("The channel name.", false),
			}),
			"guild": plugin.Object("The server of the message, absent for direct messages.", false, plugin.Args{
				"id":   plugin.String("The guild id.", true),
				"name": plugin.String("The guild name.", false),
			}),
			"reference_message_id": plugin.String("The id of the message this one replies to.", false),
			"content":              plugin.String("The message text.", true),
			"timestamp":            plugin.String("When the message was sent, RFC 3339.", true),
		},
		ExplainArgs: explainMessage,
	}}
	p.tools = []plugin.ToolDefinition{{
		Name:        ToolSendMessage,
		Description: "Sends a message to a Discord channel. Long messages are split into several.",
		Args: plugin.Args{
			"channel_id":          plugin.String("The channel to send to.", true),
			"reply_to_message_id": plugin.String("The message to reply to.", false),
			"content":             plugin.String("The message text.", true),
		},
		Retvals: plugin.Args{
			"id": plugin.String("The id of the first message sent.", true),
		},
		Handler:     p.send,
		ExplainArgs: explainSend,
	}}
	if err := plugin.RegisterAll(api, p.events, p.tools); err != nil {
		return err
	}

	sess, err := p.dial(p.token)
	if err != nil {
		_ = plugin.DeregisterAll(api, p.events, p.tools)
		return fmt.Errorf("create discord session: %w", err)
	}
	p.mu.Lock()
	p.api = api
	p.sess = sess
	p.removeHandler = sess.AddHandler(p.onMessageCreate)
	p.mu.Unlock()

	if err := sess.Open(); err != nil {
		p.teardown()
		_ = plugin.DeregisterAll(api, p.events, p.tools)
		return fmt.Errorf("open discord connection: %w", err)
	}
	logger.InfoX(logModule, "connected")
	return nil
}

func (p *Plugin) Unload(_ context.Context, api plugin.API) error {
	err := p.teardown()
	return errors.Join(err, plugin.DeregisterAll(api, p.events, p.tools))
}

func (p *Plugin) teardown() error {
	p.mu.Lock()
	sess, remove := p.sess, p.removeHandler
	p.sess, p.removeHandler, p.api = nil, nil, nil
	p.mu.Unlock()

	if remove != nil {
		remove()
	}
	if sess == nil {
		return nil
	}
	return sess.Close()
}

func (p *Plugin) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || s.State == nil || s.State.User == nil {
		return
	}
	var (
		ch *discordgo.Channel
		g  *discordgo.Guild
	)
	if c, err := s.State.Channel(m.ChannelID); err == nil {
		ch = c
	} else if c, err := s.Channel(m.ChannelID); err == nil {
		ch = c
	}
	if m.GuildID != "" {
		if gg, err := s.State.Guild(m.GuildID); err == nil {
			g = gg
		}
	}
	p.receive(s.State.User.ID, m.Message, ch, g)
}

// receive emits the message unless the bot wrote it.
func (p *Plugin) receive(selfID string, m *discordgo.Message, ch *discordgo.Channel, g *discordgo.Guild) {
	if m == nil || m.Author == nil || m.Author.ID == selfID {
		return
	}
	p.mu.Lock()
	api := p.api
	p.mu.Unlock()
	if api == nil {
		return
	}
	if err := api.EmitEvent(EventMessageReceived, messageArgs(m, ch, g)); err != nil {
		logger.WarnX(logModule, "emit message %s: %v", m.ID, err)
	}
}

func messageArgs(m *discordgo.Message, ch *discordgo.Channel, g *discordgo.Guild) map[string]interface{} {
	channel := map[string]interface{}{"id": m.ChannelID, "type": "text"}
	if ch != nil {
		channel["type"] = channelType(ch.Type)
		if ch.Name != "" {
			channel["name"] = ch.Name
		}
	}
	args := map[string]interface{}{
		"id": m.ID,
		"author": map[string]interface{}{
			"id":       m.Author.ID,
			"username": m.Author.Username,
		},
		"channel":   channel,
		"content":   m.Content,
		"timestamp": m.Timestamp.Format(time.RFC3339),
	}
	if m.GuildID != "" {
		guild := map[string]interface{}{"id": m.GuildID}
		if g != nil && g.Name != "" {
			guild["name"] = g.Name
		}
		args["guild"] = guild
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		args["reference_message_id"] = m.MessageReference.MessageID
	}
	return args
}

func channelType(t discordgo.ChannelType) string {
	switch t {
	case discordgo.ChannelTypeDM:
		return "dm"
	case discordgo.ChannelTypeGroupDM:
		return "group_dm"
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread, discordgo.ChannelTypeGuildNewsThread:
		return "thread"
	default:
		return "text"
	}
}

func (p *Plugin) send(_ context.Context, args map[string]interface{}) (interface{}, error) {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()
	if sess == nil {
		return nil, errors.New("discord is not connected")
	}

	channelID := plugin.StringArg(args, "channel_id")
	replyTo := plugin.StringArg(args, "reply_to_message_id")
	content := plugin.StringArg(args, "content")
	if content == "" {
		return nil, errors.New("content must not be empty")
	}

	var firstID string
	for i, chunk := range splitMessage(content, maxMessageLen) {
		msg := &discordgo.MessageSend{Content: chunk}
		if i == 0 && replyTo != "" {
			msg.Reference = &discordgo.MessageReference{MessageID: replyTo, ChannelID: channelID}
		}
		sent, err := sess.ChannelMessageSendComplex(channelID, msg)
		if err != nil {
			return nil, fmt.Errorf("send message to channel %s: %w", channelID, err)
		}
		if i == 0 && sent != nil {
			firstID = sent.ID
		}
	}
	return map[string]interface{}{"id": firstID}, nil
}

func explainMessage(args map[string]interface{}) *plugin.Explanation {
	author, _ := args["author"].(map[string]interface{})
	return &plugin.Explanation{
		Summary: fmt.Sprintf("Discord message from %v", author["username"]),
		Details: plugin.StringArg(args, "content"),
	}
}

func explainSend(args map[string]interface{}) *plugin.Explanation {
	return &plugin.Explanation{
		Summary: "Sending a Discord message to channel " + plugin.StringArg(args, "channel_id"),
		Details: plugin.StringArg(args, "content"),
	}
}
