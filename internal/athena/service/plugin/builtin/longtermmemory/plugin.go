// Package longtermmemory is a persistent key/value memory backed by sqlite.
package longtermmemory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/utils/json"
)

const PluginName = "long-term-memory"

type Config struct {
	DBPath string `mapstructure:"db_path"`
}

type memory struct {
	cfg   Config
	store *Store
	tools []plugin.ToolDefinition
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	conf := Config{DBPath: "data/long-term-memory.db"}
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode long-term-memory config: %w", err)
	}
	return &memory{cfg: conf}, nil
}

func (m *memory) Describe() string {
	return "You have a long-term memory: a key/value store that outlives restarts. Put there whatever a person would remember " +
		"for a long time, such as knowledge and experiences. Values are JSON objects; storing an existing key overwrites it. " +
		"To recall something, list and then retrieve it."
}

func (m *memory) Load(_ context.Context, api plugin.API) error {
	store, err := OpenStore(m.cfg.DBPath)
	if err != nil {
		return err
	}
	m.store = store

	status := plugin.Args{"status": plugin.String("The status of the operation.", true)}
	m.tools = []plugin.ToolDefinition{
		{
			Name:        "long-term-memory/store",
			Description: "Stores data in your long-term memory.",
			Args: plugin.Args{
				"key":  plugin.String("The key to store the data under.", true),
				"desc": plugin.String("A description of the data.", true),
				"data": plugin.Object("The data to store.", true, nil),
			},
			Retvals: status,
			Handler: m.put,
			ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
				return &plugin.Explanation{Summary: "Memorizing " + plugin.StringArg(args, "key") + "...", Details: plugin.StringArg(args, "desc")}
			},
		},
		{
			Name:        "long-term-memory/remove",
			Description: "Removes data from your long-term memory.",
			Args: plugin.Args{
				"key": plugin.String("The key of the data.", true),
			},
			Retvals: status,
			Handler: m.remove,
		},
		{
			Name:        "long-term-memory/list",
			Description: "Lists what is in your long-term memory.",
			Args:        plugin.Args{},
			Retvals: plugin.Args{
				"list": plugin.Array("The entries, without their data.", true, plugin.Object("An entry.", false, plugin.Args{
					"key":        plugin.String("The key of the data.", true),
					"desc":       plugin.String("The description of the data.", true),
					"created_at": plugin.String("When the data was stored.", true),
				})),
			},
			Handler: m.list,
		},
		{
			Name:        "long-term-memory/retrieve",
			Description: "Retrieves data from your long-term memory.",
			Args: plugin.Args{
				"key": plugin.String("The key of the data.", true),
			},
			Retvals: plugin.Args{
				"desc":       plugin.String("The description of the data.", true),
				"data":       plugin.Object("The data.", true, nil),
				"created_at": plugin.String("When the data was stored.", true),
			},
			Handler: m.retrieve,
			ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
				return &plugin.Explanation{Summary: "Recalling " + plugin.StringArg(args, "key") + "..."}
			},
		},
	}
	if err := plugin.RegisterAll(api, nil, m.tools); err != nil {
		_ = store.Close()
		return err
	}
	return nil
}

func (m *memory) Unload(_ context.Context, api plugin.API) error {
	err := plugin.DeregisterAll(api, nil, m.tools)
	if m.store != nil {
		err = errors.Join(err, m.store.Close())
	}
	return err
}

func (m *memory) put(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	data, err := json.MarshalString(args["data"])
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	err = m.store.Put(ctx, Entry{
		Key:       plugin.StringArg(args, "key"),
		Desc:      plugin.StringArg(args, "desc"),
		Data:      data,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return plugin.Status("success"), nil
}

func (m *memory) remove(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	key := plugin.StringArg(args, "key")
	if err := m.store.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("remove %q: %w", key, err)
	}
	return plugin.Status("success"), nil
}

func (m *memory) list(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	entries, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{
			"key":        e.Key,
			"desc":       e.Desc,
			"created_at": e.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]interface{}{"list": out}, nil
}

func (m *memory) retrieve(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	key := plugin.StringArg(args, "key")
	e, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", key, err)
	}
	var data interface{}
	if err := json.UnmarshalString(e.Data, &data); err != nil {
		return nil, fmt.Errorf("decode data of %q: %w", key, err)
	}
	return map[string]interface{}{
		"desc":       e.Desc,
		"data":       data,
		"created_at": e.CreatedAt.Format(time.RFC3339),
	}, nil
}
