package plugin

import (
	"testing"

	"github.com/kiosk404/athena/pkg/utils/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageArgs() Args {
	return Args{
		"author": Object("Message author.", true, Args{
			"id":       String("Author id.", true),
			"username": String("Author name.", false),
		}),
		"tags":   Array("Tags.", false, String("A tag.", true)),
		"pinned": Boolean("Whether pinned.", false),
	}
}

func TestSchemaJSONShape(t *testing.T) {
	data, err := json.Marshal(messageArgs())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"author": {"type": "object", "desc": "Message author.", "required": true, "of": {
			"id": {"type": "string", "desc": "Author id.", "required": true},
			"username": {"type": "string", "desc": "Author name.", "required": false}
		}},
		"tags": {"type": "array", "desc": "Tags.", "required": false,
			"of": {"type": "string", "desc": "A tag.", "required": true}},
		"pinned": {"type": "boolean", "desc": "Whether pinned.", "required": false}
	}`, string(data))

	var back Args
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, messageArgs(), back)
}

func TestArgsValidate(t *testing.T) {
	args := messageArgs()

	cases := []struct {
		name   string
		values map[string]interface{}
		errMsg string
	}{
		{
			name:   "valid",
			values: map[string]interface{}{"author": map[string]interface{}{"id": "1"}, "tags": []interface{}{"a", "b"}},
		},
		{
			name:   "missing required",
			values: map[string]interface{}{},
			errMsg: "author: required argument is missing",
		},
		{
			name:   "nested missing",
			values: map[string]interface{}{"author": map[string]interface{}{"username": "x"}},
			errMsg: "author.id: required argument is missing",
		},
		{
			name:   "array element type",
			values: map[string]interface{}{"author": map[string]string{"id": "1"}, "tags": []interface{}{"a", 2}},
			errMsg: "tags[1]: expected string",
		},
		{
			name:   "wrong primitive",
			values: map[string]interface{}{"author": map[string]interface{}{"id": "1"}, "pinned": "yes"},
			errMsg: "pinned: expected boolean",
		},
		{
			name:   "extra arguments are accepted",
			values: map[string]interface{}{"author": map[string]interface{}{"id": "1"}, "extra": 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := args.Validate(tc.values)
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidArgs)
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestToFloat(t *testing.T) {
	for _, v := range []interface{}{3, int64(3), uint8(3), float32(3), 3.0, json.Number("3")} {
		f, ok := ToFloat(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, 3.0, f)
	}
	_, ok := ToFloat("3")
	assert.False(t, ok)
}

func TestConfigDecode(t *testing.T) {
	var out struct {
		Name  string   `mapstructure:"name"`
		Count int      `mapstructure:"count"`
		Tags  []string `mapstructure:"tags"`
	}
	cfg := Config{"name": "clock", "count": 3.0, "tags": []interface{}{"a", "b"}}
	require.NoError(t, cfg.Decode(&out))
	assert.Equal(t, "clock", out.Name)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, []string{"a", "b"}, out.Tags)
}
