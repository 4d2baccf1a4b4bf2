package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs(`{"reason":"tea","nested":{"a":1}}`, []string{"seconds=90", "loud=true", "tags=[\"x\"]", "note=hello world"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"reason":  "tea",
		"nested":  map[string]interface{}{"a": float64(1)},
		"seconds": float64(90),
		"loud":    true,
		"tags":    []interface{}{"x"},
		"note":    "hello world",
	}, args)
}

func TestParseArgsErrors(t *testing.T) {
	_, err := ParseArgs(`[1]`, nil)
	assert.Error(t, err)

	_, err = ParseArgs("", []string{"novalue"})
	assert.Error(t, err)

	_, err = ParseArgs("", []string{"=1"})
	assert.Error(t, err)
}

func TestParseArgsEmpty(t *testing.T) {
	args, err := ParseArgs("", nil)
	require.NoError(t, err)
	assert.Empty(t, args)
}
