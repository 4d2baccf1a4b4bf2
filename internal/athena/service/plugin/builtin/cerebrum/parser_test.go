package cerebrum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimResponse(t *testing.T) {
	assert.Equal(t, "plain", trimResponse("plain"))
	assert.Equal(t, "<thinking>a</thinking>\n", trimResponse("<thinking>a</thinking>\n<tool_result>{}</tool_result>"))
	assert.Equal(t, "x", trimResponse("x<event>1</event><tool_result>2</tool_result>"))
	assert.Equal(t, "y", trimResponse("y<tool_result>2</tool_result><event>1</event>"))
}

func TestExtract(t *testing.T) {
	resp := `<thinking>
  first
</thinking>
<tool_call>
{"name":"a/b","id":"1","args":{}}
</tool_call>
<thinking>second</thinking>
<tool_call>{"name":"c/d","id":"2","args":{"x":{"y":1}}}</tool_call>`

	assert.Equal(t, []string{"first", "second"}, extractThinking(resp))
	assert.Equal(t, []string{
		`{"name":"a/b","id":"1","args":{}}`,
		`{"name":"c/d","id":"2","args":{"x":{"y":1}}}`,
	}, extractToolCalls(resp))
	assert.Empty(t, extractToolCalls("no calls here"))
}

func TestParseToolCall(t *testing.T) {
	call, err := parseToolCall(`{"name":"math/add","id":"c1","args":{"a":2,"b":3}}`)
	require.NoError(t, err)
	assert.Equal(t, "math/add", call.Name)
	assert.Equal(t, "c1", call.ID)
	assert.EqualValues(t, 2, call.Args["a"])

	call, err = parseToolCall(`{name: 'math/add', id: 'c2', args: {a: 1, b: 2,}}`)
	require.NoError(t, err)
	assert.Equal(t, "math/add", call.Name)
	assert.Equal(t, "c2", call.ID)

	call, err = parseToolCall(`{"name":"x/y","id":"c3"}`)
	require.NoError(t, err)
	assert.NotNil(t, call.Args)

	_, err = parseToolCall(`{"id":"c4","args":{}}`)
	assert.Error(t, err)
}
