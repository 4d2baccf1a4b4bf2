package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEnvValue(t *testing.T) {
	t.Setenv("ATHENA_TEST_KEY", "sk-test")

	assert.Equal(t, "sk-test", ResolveEnvValue("${ATHENA_TEST_KEY}"))
	assert.Equal(t, "", ResolveEnvValue("${ATHENA_TEST_MISSING}"))
	assert.Equal(t, "plain", ResolveEnvValue("plain"))
	assert.Equal(t, "${broken", ResolveEnvValue("${broken"))
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Provider{Name: "x"}))
	assert.Error(t, r.Register(Provider{Name: "x"}))
	assert.Panics(t, func() { r.MustRegister(Provider{Name: "x"}) })
}

func TestInTreeRegistry_List(t *testing.T) {
	names := NewInTreeRegistry().List()
	assert.Equal(t, []string{"anthropic", "deepseek", "gemini", "glm", "kimi", "ollama", "openai", "qwen"}, names)
}

func TestRegistry_Resolve(t *testing.T) {
	t.Setenv("FAKE_PROVIDER_KEY", "from-env")

	var got *Params
	r := NewRegistry()
	r.MustRegister(Provider{
		Name:           "fake",
		DefaultBaseURL: "http://fake.local",
		APIKeyEnv:      "FAKE_PROVIDER_KEY",
		Build: func(_ context.Context, p *Params) (model.BaseChatModel, error) {
			got = p
			return nil, errors.New("no model")
		},
	})

	_, err := r.BuildChatModel(context.Background(), Params{Provider: "fake", Model: "m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model")
	require.NotNil(t, got)
	assert.Equal(t, "http://fake.local", got.BaseURL)
	assert.Equal(t, "from-env", got.APIKey)

	_, err = r.BuildChatModel(context.Background(), Params{Provider: "fake", Model: "m1", APIKey: "explicit", BaseURL: "http://other"})
	require.Error(t, err)
	assert.Equal(t, "explicit", got.APIKey)
	assert.Equal(t, "http://other", got.BaseURL)

	_, _, err = r.Resolve(Params{Provider: "fake"})
	assert.Error(t, err, "model is required")

	_, _, err = r.Resolve(Params{Provider: "missing", Model: "m"})
	assert.Error(t, err)
}
