package discord

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu      sync.Mutex
	opened  bool
	closed  bool
	removed bool
	sent    []*discordgo.MessageSend
}

func (f *fakeSession) Open() error  { f.opened = true; return nil }
func (f *fakeSession) Close() error { f.closed = true; return nil }

func (f *fakeSession) AddHandler(interface{}) func() {
	return func() { f.removed = true }
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return &discordgo.Message{ID: "m" + string(rune('0'+len(f.sent))), ChannelID: channelID}, nil
}

func load(t *testing.T) (*plugin.Registry, *Plugin, *fakeSession, *[]map[string]interface{}) {
	t.Helper()
	fake := &fakeSession{}
	var p *Plugin
	factories := plugin.NewInTreeRegistry()
	factories.MustRegister(PluginName, func(cfg plugin.Config) (plugin.Plugin, error) {
		var err error
		p, err = newPlugin(cfg, func(string) (session, error) { return fake, nil })
		return p, err
	})
	reg := (&plugin.RegistryConfig{
		Factories:     factories,
		Plugins:       []string{PluginName},
		PluginConfigs: map[string]plugin.Config{PluginName: {"bot_token": "secret"}},
	}).Complete().New()

	var mu sync.Mutex
	var got []map[string]interface{}
	unsubscribe := reg.Subscribe(func(name string, args map[string]interface{}) {
		if name == EventMessageReceived {
			mu.Lock()
			got = append(got, args)
			mu.Unlock()
		}
	})
	require.NoError(t, reg.LoadPlugins(context.Background()))
	t.Cleanup(unsubscribe)
	return reg, p, fake, &got
}

func TestLoadOpensAndUnloadCloses(t *testing.T) {
	reg, _, fake, _ := load(t)
	assert.True(t, fake.opened)
	reg.UnloadPlugins(context.Background())
	assert.True(t, fake.closed)
	assert.True(t, fake.removed)
}

func TestReceiveSkipsOwnMessages(t *testing.T) {
	reg, p, _, got := load(t)
	defer reg.UnloadPlugins(context.Background())

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.receive("bot", &discordgo.Message{ID: "1", Author: &discordgo.User{ID: "bot"}, Content: "mine"}, nil, nil)
	p.receive("bot", &discordgo.Message{
		ID:               "2",
		ChannelID:        "c1",
		GuildID:          "g1",
		Author:           &discordgo.User{ID: "u1", Username: "alice"},
		Content:          "hello",
		Timestamp:        ts,
		MessageReference: &discordgo.MessageReference{MessageID: "1"},
	}, &discordgo.Channel{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText}, &discordgo.Guild{ID: "g1", Name: "home"})

	require.Eventually(t, func() bool { return len(*got) == 1 }, time.Second, 10*time.Millisecond)
	args := (*got)[0]
	assert.Equal(t, "2", args["id"])
	assert.Equal(t, "hello", args["content"])
	assert.Equal(t, "2026-01-02T03:04:05Z", args["timestamp"])
	assert.Equal(t, "1", args["reference_message_id"])
	assert.Equal(t, map[string]interface{}{"id": "c1", "type": "text", "name": "general"}, args["channel"])
	assert.Equal(t, map[string]interface{}{"id": "g1", "name": "home"}, args["guild"])
}

func TestDirectMessageHasNoGuild(t *testing.T) {
	args := messageArgs(&discordgo.Message{
		ID:        "3",
		ChannelID: "d1",
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
	}, &discordgo.Channel{ID: "d1", Type: discordgo.ChannelTypeDM}, nil)
	assert.NotContains(t, args, "guild")
	assert.NotContains(t, args, "reference_message_id")
	assert.Equal(t, "dm", args["channel"].(map[string]interface{})["type"])
}

func TestSendMessage(t *testing.T) {
	reg, _, fake, _ := load(t)
	defer reg.UnloadPlugins(context.Background())

	out, err := reg.CallTool(context.Background(), ToolSendMessage, map[string]interface{}{
		"channel_id":          "c1",
		"reply_to_message_id": "42",
		"content":             strings.Repeat("word ", 500),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": "m1"}, out)
	require.Len(t, fake.sent, 2)
	require.NotNil(t, fake.sent[0].Reference)
	assert.Equal(t, "42", fake.sent[0].Reference.MessageID)
	assert.Nil(t, fake.sent[1].Reference)
}

func TestMissingToken(t *testing.T) {
	_, err := New(plugin.Config{})
	assert.ErrorContains(t, err, "bot_token")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"aaaa", "bbbb"}, splitMessage("aaaa\n\nbbbb", 6))
	assert.Equal(t, []string{"abcde", "fgh"}, splitMessage("abcdefgh", 5))
	for _, c := range splitMessage(strings.Repeat("é", 25), 10) {
		assert.LessOrEqual(t, len([]rune(c)), 10)
	}
}
