// Package shell lets the agent run shell commands on the host.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/logger"
)

const PluginName = "shell"

type Config struct {
	Shell   string        `mapstructure:"shell"`
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
	Env     []string      `mapstructure:"env"`
}

type shell struct {
	cfg   Config
	tools []plugin.ToolDefinition
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	conf := Config{Shell: "/bin/sh", Timeout: time.Minute}
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode shell config: %w", err)
	}
	if conf.Timeout <= 0 {
		conf.Timeout = time.Minute
	}
	return &shell{cfg: conf}, nil
}

func (s *shell) Describe() string {
	return fmt.Sprintf("shell/exec runs a command with %s -c. Commands are killed after %s unless you pass timeout_seconds. "+
		"Long output is written to a file and can be read with the fs tools.", s.cfg.Shell, s.cfg.Timeout)
}

func (s *shell) Load(_ context.Context, api plugin.API) error {
	s.tools = []plugin.ToolDefinition{{
		Name:        "shell/exec",
		Description: "Executes a shell command. Use it whenever a request needs a command run on this machine.",
		Args: plugin.Args{
			"command":         plugin.String("The shell command.", true),
			"timeout_seconds": plugin.Number("Kill the command after this many seconds.", false),
		},
		Retvals: plugin.Args{
			"stdout":    plugin.String("Standard output of the command.", true),
			"stderr":    plugin.String("Standard error of the command.", true),
			"exit_code": plugin.Number("Exit code of the command.", true),
		},
		Handler: s.run,
		ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
			return &plugin.Explanation{Summary: "Running a command...", Details: plugin.StringArg(args, "command")}
		},
		ExplainRetvals: func(_ map[string]interface{}, retvals interface{}) *plugin.Explanation {
			if m, ok := retvals.(map[string]interface{}); ok {
				return &plugin.Explanation{Summary: fmt.Sprintf("Command exited with %v", m["exit_code"])}
			}
			return nil
		},
	}}
	return plugin.RegisterAll(api, nil, s.tools)
}

func (s *shell) Unload(_ context.Context, api plugin.API) error {
	return plugin.DeregisterAll(api, nil, s.tools)
}

// run executes the command to completion. A non-zero exit is a result, not an
// error; failing to start or running out of time is.
func (s *shell) run(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	command := plugin.StringArg(args, "command")
	timeout := s.cfg.Timeout
	if secs, ok := plugin.NumberArg(args, "timeout_seconds"); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cfg.Shell, "-c", command)
	cmd.Dir = s.cfg.Dir
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.cfg.Env...)
	}
	// Children that inherited the pipes must not keep Wait blocked.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command timed out after %s: %s", timeout, stderr.String())
	}
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}
	logger.DebugX(PluginName, "[Shell] %q exited with %d in %s", command, exitCode, time.Since(start))

	return map[string]interface{}{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}, nil
}
