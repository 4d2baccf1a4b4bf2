package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInTreeRegistry(t *testing.T) {
	r := NewInTreeRegistry()
	assert.Equal(t, []string{
		"athena", "calculator", "cerebrum", "clock", "discord", "file-system", "llm",
		"long-term-memory", "mcp", "shell", "short-term-memory", "system", "webui",
	}, r.Names())
}
