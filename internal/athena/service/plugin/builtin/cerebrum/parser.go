package cerebrum

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/kiosk404/athena/pkg/utils/json"
)

var (
	thinkingPattern = regexp.MustCompile(`<thinking>\s*([\s\S]*?)\s*</thinking>`)
	toolCallPattern = regexp.MustCompile(`<tool_call>\s*(\{[\s\S]*?\})\s*</tool_call>`)
)

// ToolCall is one directive parsed out of a model response.
type ToolCall struct {
	Name string                 `json:"name"`
	ID   string                 `json:"id"`
	Args map[string]interface{} `json:"args"`
}

// trimResponse cuts the response at the first feedback tag the model made up.
func trimResponse(resp string) string {
	cut := -1
	for _, tag := range stopTokens {
		if i := strings.Index(resp, tag); i != -1 && (cut == -1 || i < cut) {
			cut = i
		}
	}
	if cut == -1 {
		return resp
	}
	return resp[:cut]
}

// extractThinking returns the content of every thinking block, in order.
func extractThinking(resp string) []string {
	var out []string
	for _, m := range thinkingPattern.FindAllStringSubmatch(resp, -1) {
		out = append(out, m[1])
	}
	return out
}

// extractToolCalls returns the raw JSON of every tool call block, in order.
func extractToolCalls(resp string) []string {
	var out []string
	for _, m := range toolCallPattern.FindAllStringSubmatch(resp, -1) {
		out = append(out, m[1])
	}
	return out
}

// parseToolCall repairs and decodes one directive. On a decode failure the
// partially decoded call is still returned so the error can carry its name.
func parseToolCall(raw string) (ToolCall, error) {
	var call ToolCall
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return call, fmt.Errorf("malformed tool call: %w", err)
	}
	if err := json.UnmarshalString(repaired, &call); err != nil {
		return call, fmt.Errorf("malformed tool call: %w", err)
	}
	if call.Name == "" {
		return call, fmt.Errorf("malformed tool call: missing name")
	}
	if call.Args == nil {
		call.Args = map[string]interface{}{}
	}
	return call, nil
}
