package plugin

import (
	"context"
)

// ToolHandler is called when a tool is invoked. args have already been
// validated against the tool's Args schema.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Explanation is a short human-readable account of a call or event, used for
// observability only.
type Explanation struct {
	Summary string `json:"summary"`
	Details string `json:"details,omitempty"`
}

// ToolDefinition describes a tool registered by a plugin.
// Names follow the "<namespace>/<verb>" convention and are globally unique.
type ToolDefinition struct {
	Name        string
	Description string
	Args        Args
	Retvals     Args
	Handler     ToolHandler

	// ExplainArgs and ExplainRetvals are optional. Their results are published
	// on the private bus as athena/tool-call and athena/tool-result.
	ExplainArgs    func(args map[string]interface{}) *Explanation
	ExplainRetvals func(args map[string]interface{}, retvals interface{}) *Explanation
}

// EventDefinition describes an event a plugin broadcasts.
type EventDefinition struct {
	Name        string
	Description string
	Args        Args

	// ExplainArgs is optional; its result is published as athena/event.
	ExplainArgs func(args map[string]interface{}) *Explanation
}

// ToolSpec is the JSON shape of a tool exposed to the model and to clients.
type ToolSpec struct {
	Name    string `json:"name"`
	Desc    string `json:"desc"`
	Args    Args   `json:"args"`
	Retvals Args   `json:"retvals,omitempty"`
}

// EventSpec is the JSON shape of an event exposed to the model and to clients.
type EventSpec struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
	Args Args   `json:"args"`
}

// Catalog lists every registered tool and event, sorted by name.
type Catalog struct {
	Tools  []ToolSpec  `json:"tools"`
	Events []EventSpec `json:"events"`
}

// Description is one plugin's contribution to the system preamble.
type Description struct {
	Plugin string `json:"plugin"`
	Text   string `json:"text"`
}

// Spec returns the client facing shape of the tool.
func (d ToolDefinition) Spec() ToolSpec {
	args := d.Args
	if args == nil {
		args = Args{}
	}
	return ToolSpec{Name: d.Name, Desc: d.Description, Args: args, Retvals: d.Retvals}
}

// Spec returns the client facing shape of the event.
func (d EventDefinition) Spec() EventSpec {
	args := d.Args
	if args == nil {
		args = Args{}
	}
	return EventSpec{Name: d.Name, Desc: d.Description, Args: args}
}
