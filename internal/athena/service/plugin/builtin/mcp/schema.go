package mcp

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/utils/json"
)

// jsonSchema is the subset of JSON Schema the registry can express.
type jsonSchema struct {
	Type        interface{}            `json:"type"`
	Description string                 `json:"description"`
	Properties  map[string]*jsonSchema `json:"properties"`
	Required    []string               `json:"required"`
	Items       *jsonSchema            `json:"items"`
}

// toolArgs reads the parameter schema of an eino tool.
func toolArgs(ctx context.Context, t tool.BaseTool) (name, desc string, args plugin.Args, err error) {
	info, err := t.Info(ctx)
	if err != nil {
		return "", "", nil, err
	}
	if info.ParamsOneOf == nil {
		return info.Name, info.Desc, plugin.Args{}, nil
	}
	raw, err := info.ParamsOneOf.ToJSONSchema()
	if err != nil {
		return "", "", nil, fmt.Errorf("tool %q: read parameters: %w", info.Name, err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", "", nil, err
	}
	var s jsonSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return "", "", nil, fmt.Errorf("tool %q: decode parameters: %w", info.Name, err)
	}
	return info.Name, info.Desc, convertProperties(&s), nil
}

func convertProperties(s *jsonSchema) plugin.Args {
	args := make(plugin.Args, len(s.Properties))
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	for name, prop := range s.Properties {
		if prop == nil {
			continue
		}
		args[name] = convert(prop, required[name])
	}
	return args
}

// convert maps a JSON Schema node onto a registry schema. Integers become
// numbers; anything the registry has no type for is passed as a string.
func convert(s *jsonSchema, required bool) *plugin.Schema {
	switch schemaType(s) {
	case "number", "integer":
		return plugin.Number(s.Description, required)
	case "boolean":
		return plugin.Boolean(s.Description, required)
	case "object":
		var fields plugin.Args
		if len(s.Properties) > 0 {
			fields = convertProperties(s)
		}
		return plugin.Object(s.Description, required, fields)
	case "array":
		var items *plugin.Schema
		if s.Items != nil {
			items = convert(s.Items, true)
		}
		return plugin.Array(s.Description, required, items)
	default:
		return plugin.String(s.Description, required)
	}
}

// schemaType returns the first non-null type. "type" may be a list.
func schemaType(s *jsonSchema) string {
	switch t := s.Type.(type) {
	case string:
		return t
	case []interface{}:
		for _, v := range t {
			if name, ok := v.(string); ok && name != "null" {
				return name
			}
		}
	}
	if len(s.Properties) > 0 {
		return "object"
	}
	return ""
}
