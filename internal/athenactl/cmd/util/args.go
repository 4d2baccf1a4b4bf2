package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kiosk404/athena/pkg/utils/json"
)

// ParseArgs builds an argument map from an optional JSON object followed by
// key=value pairs. Values that parse as JSON (numbers, booleans, objects)
// keep their type, everything else is a string.
func ParseArgs(jsonArgs string, pairs []string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(jsonArgs) != "" {
		if err := json.UnmarshalString(jsonArgs, &args); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", pair)
		}
		args[key] = parseValue(raw)
	}
	return args, nil
}

func parseValue(raw string) interface{} {
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		var v interface{}
		if err := json.UnmarshalString(raw, &v); err == nil {
			return v
		}
	}
	return raw
}
