package errorx

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapCKeepsCause(t *testing.T) {
	Register(defaultCoder{code: 990001, http: http.StatusNotFound, msg: "Thing not found"})
	cause := errors.New("boom")

	err := WrapC(cause, 990001, "load %s", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsCode(err, 990001))
	assert.Equal(t, "load x: boom", err.Error())
	assert.Equal(t, http.StatusNotFound, ParseCoder(err).HTTPStatus())
	assert.Nil(t, WrapC(nil, 990001, "nothing"))
}

func TestParseCoderUnknown(t *testing.T) {
	err := WithCode(990999, "never registered")
	assert.Equal(t, ErrUnknown, ParseCoder(err).Code())
	assert.Equal(t, ErrUnknown, ParseCoder(errors.New("plain")).Code())
	assert.Nil(t, ParseCoder(nil))
}
