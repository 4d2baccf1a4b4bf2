package plugin

import (
	"errors"
)

// RegisterAll registers events first, then tools, and stops at the first error.
func RegisterAll(api API, events []EventDefinition, tools []ToolDefinition) error {
	for _, e := range events {
		if err := api.RegisterEvent(e); err != nil {
			return err
		}
	}
	for _, t := range tools {
		if err := api.RegisterTool(t); err != nil {
			return err
		}
	}
	return nil
}

// DeregisterAll removes the given tools and events, continuing past
// failures. The failures are joined into the returned error.
func DeregisterAll(api API, events []EventDefinition, tools []ToolDefinition) error {
	var errs []error
	for _, t := range tools {
		if err := api.DeregisterTool(t.Name); err != nil {
			errs = append(errs, err)
		}
	}
	for _, e := range events {
		if err := api.DeregisterEvent(e.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status is the conventional {status} result of tools with no other output.
func Status(status string) map[string]interface{} {
	return map[string]interface{}{"status": status}
}
