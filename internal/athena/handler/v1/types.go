package v1

import (
	"github.com/kiosk404/athena/internal/athena/service/plugin"
)

// PluginResponse is one entry of GET /v1/plugins.
type PluginResponse struct {
	plugin.PluginInfo
	Loaded bool          `json:"loaded"`
	Config plugin.Config `json:"config,omitempty"`
}

// CallToolRequest is the body of POST /v1/tools/call.
type CallToolRequest struct {
	Name string                 `json:"name" binding:"required"`
	Args map[string]interface{} `json:"args"`
}

// CallToolResponse carries the result of a tool call.
type CallToolResponse struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Result interface{} `json:"result"`
}

// EmitEventRequest is the body of POST /v1/events/emit.
type EmitEventRequest struct {
	Name string                 `json:"name" binding:"required"`
	Args map[string]interface{} `json:"args"`
}

// StatusResponse acknowledges a command.
type StatusResponse struct {
	Status string `json:"status"`
}

// StreamFrame is the data of one server-sent event on /v1/stream.
type StreamFrame struct {
	Name string      `json:"name"`
	Data interface{} `json:"data"`
}

// StatesResponse maps plugin names to their last gathered state blobs.
type StatesResponse struct {
	Data map[string]plugin.StateBlob `json:"data"`
}
