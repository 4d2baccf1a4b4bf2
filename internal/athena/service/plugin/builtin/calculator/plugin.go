// Package calculator evaluates JavaScript expressions in a sandboxed goja runtime.
package calculator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dop251/goja"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
)

const PluginName = "calculator"

type Config struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type calculator struct {
	cfg   Config
	tools []plugin.ToolDefinition
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	conf := Config{Timeout: time.Second}
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode calculator config: %w", err)
	}
	return &calculator{cfg: conf}, nil
}

func (c *calculator) Load(_ context.Context, api plugin.API) error {
	c.tools = []plugin.ToolDefinition{{
		Name:        "calculator/evaluate",
		Description: "Evaluates a mathematical expression.",
		Args: plugin.Args{
			"expression": plugin.String("The expression to evaluate. Any JavaScript expression works, including Math functions and immediately invoked functions.", true),
		},
		Retvals: plugin.Args{
			"result": plugin.Number("The result of the expression.", true),
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			result, err := Evaluate(ctx, plugin.StringArg(args, "expression"), c.cfg.Timeout)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"result": result}, nil
		},
		ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
			return &plugin.Explanation{Summary: "Calculating...", Details: plugin.StringArg(args, "expression")}
		},
		ExplainRetvals: func(args map[string]interface{}, retvals interface{}) *plugin.Explanation {
			if m, ok := retvals.(map[string]interface{}); ok {
				return &plugin.Explanation{Summary: fmt.Sprintf("%s = %v", plugin.StringArg(args, "expression"), m["result"])}
			}
			return nil
		},
	}}
	return plugin.RegisterAll(api, nil, c.tools)
}

func (c *calculator) Unload(_ context.Context, api plugin.API) error {
	return plugin.DeregisterAll(api, nil, c.tools)
}

// Evaluate runs expr on a fresh runtime and returns its numeric value.
// Evaluation is interrupted after timeout or when ctx is done.
func Evaluate(ctx context.Context, expr string, timeout time.Duration) (float64, error) {
	vm := goja.New()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("evaluation timed out")
		case <-done:
		}
	}()

	v, err := vm.RunString(expr)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	switch n := v.Export().(type) {
	case int64:
		return float64(n), nil
	case float64:
		if math.IsNaN(n) {
			return 0, fmt.Errorf("evaluate %q: result is NaN", expr)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("evaluate %q: result %v is not a number", expr, v)
	}
}
