package cerebrum

import (
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/kiosk404/athena/pkg/utils/json"
)

const (
	tagToolResult = "<tool_result>"
	tagEvent      = "<event>"
)

// stopTokens keep the model from writing feedback blocks of its own.
var stopTokens = []string{tagToolResult, tagEvent}

const identitySection = `You are Athena, an autonomous assistant living inside a plugin runtime. You perceive the world only through events and act on it only through tools. Behave the way a thoughtful person would: notice what matters, plan, then act.`

const instructionsSection = `How to work:

1. Events arrive inside <event> tags. Decide whether each needs a reaction; ignoring one is fine.
2. Plan before acting. Put your reasoning inside <thinking> tags.
3. To use a tool, write one JSON object inside <tool_call> tags with the tool name, a unique call id and the arguments:
<tool_call>
{"name":"tool_name","id":"call_1","args":{"arg1":"value1"}}
</tool_call>
Arguments must be valid JSON. Escape newlines in strings as \n.
4. Results come back later inside <tool_result> tags carrying the same id. They may arrive after other events.
5. You may emit several <tool_call> blocks in one response, but they run concurrently and must not depend on each other. Wait for a result before issuing a call that needs it.
6. Never write <tool_result> or <event> tags yourself.
7. Everything you output must sit inside <thinking> or <tool_call> tags. Replying to someone means calling the tool that reaches them.
8. Answer in the language the user is writing in.`

// buildPreamble renders the system message from the live catalog and the
// descriptions of every loaded plugin.
func buildPreamble(catalog plugin.Catalog, descs []plugin.Description) string {
	var b strings.Builder
	b.WriteString(identitySection)
	b.WriteString("\n\nThese are the tools you can call and the events you may receive:\n\n<tools>\n")
	for i, t := range catalog.Tools {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(mustJSON(t))
	}
	b.WriteString("\n</tools>\n\n<events>\n")
	for i, e := range catalog.Events {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(mustJSON(e))
	}
	b.WriteString("\n</events>\n\n")
	b.WriteString(instructionsSection)

	for _, d := range descs {
		if d.Text == "" {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(d.Text)
	}
	return b.String()
}

type toolResultBlock struct {
	Name   string      `json:"name"`
	ID     string      `json:"id,omitempty"`
	Result interface{} `json:"result"`
}

type eventBlock struct {
	Name string      `json:"name"`
	Args interface{} `json:"args"`
}

// renderItem formats one queue item the way the model sees it.
func renderItem(it Item) string {
	if it.ToolResult {
		return tagToolResult + "\n" + mustJSON(toolResultBlock{Name: it.Name, ID: it.ID, Result: it.Args}) + "\n</tool_result>"
	}
	return tagEvent + "\n" + mustJSON(eventBlock{Name: it.Name, Args: it.Args}) + "\n</event>"
}

// userTurn joins the rendered items into one user message. Images become
// extra parts of the same message.
func userTurn(items []Item, images []string) *schema.Message {
	blocks := make([]string, len(items))
	for i, it := range items {
		blocks[i] = renderItem(it)
	}
	text := strings.Join(blocks, "\n\n")
	if len(images) == 0 {
		return schema.UserMessage(text)
	}

	parts := make([]schema.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, schema.ChatMessagePart{Type: schema.ChatMessagePartTypeText, Text: text})
	for _, url := range images {
		parts = append(parts, schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{URL: url},
		})
	}
	return &schema.Message{Role: schema.User, MultiContent: parts}
}

// truncate keeps the system message and the newest max-1 messages.
func truncate(msgs []*schema.Message, max int) []*schema.Message {
	if max < 2 || len(msgs) <= max {
		return msgs
	}
	out := make([]*schema.Message, 0, max)
	out = append(out, msgs[0])
	return append(out, msgs[len(msgs)-(max-1):]...)
}

func mustJSON(v interface{}) string {
	s, err := json.MarshalString(v)
	if err != nil {
		logger.WarnX(PluginName, "[Cerebrum] marshal %T: %v", v, err)
		return "{}"
	}
	return s
}
