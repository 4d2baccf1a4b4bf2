package v1

import (
	"errors"
	"net/http"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/errorx"
)

// Athena admin handler error codes.
// Code format: 1XXYYZ
//   - 1:  module prefix (athena admin handler)
//   - XX: resource group (00=common, 01=plugin, 02=tool, 03=event, 04=state)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (100xxx).
	ErrBind       = 100001
	ErrValidation = 100002

	// Plugin errors (1001xx).
	ErrPluginNotFound      = 100101
	ErrPluginAlreadyLoaded = 100102
	ErrPluginNotLoaded     = 100103
	ErrPluginLoad          = 100104
	ErrPluginUnload        = 100105

	// Tool errors (1002xx).
	ErrToolNotFound = 100201
	ErrToolArgs     = 100202
	ErrToolCall     = 100203

	// Event errors (1003xx).
	ErrEventNotFound = 100301
	ErrEventArgs     = 100302

	// State errors (1004xx).
	ErrStateGather = 100401
)

func init() {
	// Common.
	errorx.MustRegister(newCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))
	errorx.MustRegister(newCoder(ErrValidation, http.StatusBadRequest, "Request validation failed"))

	// Plugin.
	errorx.MustRegister(newCoder(ErrPluginNotFound, http.StatusNotFound, "Plugin not found"))
	errorx.MustRegister(newCoder(ErrPluginAlreadyLoaded, http.StatusConflict, "Plugin already loaded"))
	errorx.MustRegister(newCoder(ErrPluginNotLoaded, http.StatusNotFound, "Plugin not loaded"))
	errorx.MustRegister(newCoder(ErrPluginLoad, http.StatusInternalServerError, "Failed to load plugin"))
	errorx.MustRegister(newCoder(ErrPluginUnload, http.StatusInternalServerError, "Failed to unload plugin"))

	// Tool.
	errorx.MustRegister(newCoder(ErrToolNotFound, http.StatusNotFound, "Tool not found"))
	errorx.MustRegister(newCoder(ErrToolArgs, http.StatusBadRequest, "Invalid tool arguments"))
	errorx.MustRegister(newCoder(ErrToolCall, http.StatusInternalServerError, "Tool call failed"))

	// Event.
	errorx.MustRegister(newCoder(ErrEventNotFound, http.StatusNotFound, "Event not found"))
	errorx.MustRegister(newCoder(ErrEventArgs, http.StatusBadRequest, "Invalid event arguments"))

	// State.
	errorx.MustRegister(newCoder(ErrStateGather, http.StatusInternalServerError, "Failed to gather plugin state"))
}

type coder struct {
	code int
	http int
	msg  string
}

func newCoder(code, httpStatus int, msg string) *coder {
	return &coder{code: code, http: httpStatus, msg: msg}
}

func (c *coder) Code() int         { return c.code }
func (c *coder) HTTPStatus() int   { return c.http }
func (c *coder) String() string    { return c.msg }
func (c *coder) Reference() string { return "" }

// pluginCode picks the code for an error returned by a plugin lifecycle call.
func pluginCode(err error, fallback int) int {
	switch {
	case errors.Is(err, plugin.ErrUnknownPlugin):
		return ErrPluginNotFound
	case errors.Is(err, plugin.ErrAlreadyLoaded):
		return ErrPluginAlreadyLoaded
	case errors.Is(err, plugin.ErrNotLoaded):
		return ErrPluginNotLoaded
	default:
		return fallback
	}
}

func toolCode(err error) int {
	switch {
	case errors.Is(err, plugin.ErrUnknownTool):
		return ErrToolNotFound
	case errors.Is(err, plugin.ErrInvalidArgs):
		return ErrToolArgs
	default:
		return ErrToolCall
	}
}

func eventCode(err error) int {
	switch {
	case errors.Is(err, plugin.ErrUnknownEvent):
		return ErrEventNotFound
	default:
		return ErrEventArgs
	}
}
