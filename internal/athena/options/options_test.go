package options

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Empty(t, o.Validate())
}

func TestFlagsAreGrouped(t *testing.T) {
	fss := NewOptions().Flags()
	for _, name := range []string{"generic", "log", "state", "plugins"} {
		assert.NotNil(t, fss.FlagSets[name], name)
	}
	assert.NotNil(t, fss.FlagSet("state").Lookup("state.path"))
}

func TestInvalidOptionsAreReported(t *testing.T) {
	o := NewOptions()
	o.GenericServerRunOptions.BindPort = 70000
	o.LogOptions.Level = "loud"
	o.StateOptions.Path = ""
	assert.Len(t, o.Validate(), 3)
}

func TestStringHidesAuthToken(t *testing.T) {
	o := NewOptions()
	o.GenericServerRunOptions.AuthToken = "s3cret"
	assert.False(t, strings.Contains(o.String(), "s3cret"))
}
