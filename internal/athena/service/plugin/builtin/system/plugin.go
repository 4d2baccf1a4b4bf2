// Package system lets the model inspect the host it runs on.
package system

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	hoststat "github.com/likexian/host-stat-go"
)

const PluginName = "system"

type system struct {
	started time.Time
	tools   []plugin.ToolDefinition
}

// New is the plugin factory. The plugin takes no configuration.
func New(plugin.Config) (plugin.Plugin, error) {
	return &system{started: time.Now()}, nil
}

func (s *system) Load(_ context.Context, api plugin.API) error {
	s.tools = []plugin.ToolDefinition{{
		Name:        "system/get-info",
		Description: "Returns information about the host: hostname, OS release, memory in megabytes, CPU cores and agent uptime.",
		Args:        plugin.Args{},
		Retvals: plugin.Args{
			"hostname":     plugin.String("The host name.", true),
			"os_release":   plugin.String("The operating system release.", true),
			"mem_total_mb": plugin.Number("Total memory in megabytes.", false),
			"mem_free_mb":  plugin.Number("Free memory in megabytes.", false),
			"cpu_cores":    plugin.Number("Number of CPU cores.", true),
			"uptime_sec":   plugin.Number("Seconds since the agent started.", true),
		},
		Handler: s.getInfo,
	}}
	return plugin.RegisterAll(api, nil, s.tools)
}

func (s *system) Unload(_ context.Context, api plugin.API) error {
	return plugin.DeregisterAll(api, nil, s.tools)
}

func (s *system) getInfo(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	out := map[string]interface{}{
		"hostname":   "",
		"os_release": runtime.GOOS + "/" + runtime.GOARCH,
		"cpu_cores":  runtime.NumCPU(),
		"uptime_sec": int64(time.Since(s.started).Seconds()),
	}

	hostInfo, err := hoststat.GetHostInfo()
	if err != nil {
		// Fall back to what the runtime knows on hosts without /proc.
		name, herr := os.Hostname()
		if herr != nil {
			return nil, fmt.Errorf("get host info: %w", err)
		}
		out["hostname"] = name
		return out, nil
	}
	out["hostname"] = hostInfo.HostName
	out["os_release"] = hostInfo.Release + " " + hostInfo.OSBit

	if memStat, err := hoststat.GetMemStat(); err == nil {
		out["mem_total_mb"] = memStat.MemTotal
		out["mem_free_mb"] = memStat.MemFree
	}
	if cpuStat, err := hoststat.GetCPUInfo(); err == nil && cpuStat.CoreCount > 0 {
		out["cpu_cores"] = cpuStat.CoreCount
	}
	return out, nil
}
