package athena

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	genericoptions "github.com/kiosk404/athena/internal/pkg/options"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/kiosk404/athena/pkg/safego"
	"github.com/spf13/viper"
)

const watchDebounce = 300 * time.Millisecond

// configWatcher reconciles the loaded plugins with the plugins section of
// the configuration file whenever the file changes.
type configWatcher struct {
	path     string
	registry *plugin.Registry
	watcher  *fsnotify.Watcher
	debounce time.Duration

	current *genericoptions.PluginsOptions

	stop chan struct{}
	done chan struct{}
}

func newConfigWatcher(path string, registry *plugin.Registry, current *genericoptions.PluginsOptions) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors replace files on save, so the directory is watched.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &configWatcher{
		path:     abs,
		registry: registry,
		watcher:  w,
		debounce: watchDebounce,
		current:  current,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (w *configWatcher) Start() {
	logger.Info("[Athena] watching %s for plugin changes", w.path)
	safego.Go(context.Background(), w.loop)
}

// Stop ends the watch loop and waits for an in-flight reconcile.
func (w *configWatcher) Stop() {
	close(w.stop)
	<-w.done
	_ = w.watcher.Close()
}

func (w *configWatcher) loop() {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("[Athena] config watcher: %v", err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *configWatcher) reload() {
	next, err := readPluginsOptions(w.path)
	if err != nil {
		logger.Error("[Athena] reread %s: %v", w.path, err)
		return
	}
	if errs := next.Validate(); len(errs) > 0 {
		logger.Error("[Athena] ignoring invalid plugin configuration: %v", errors.Join(errs...))
		return
	}
	reconcile(context.Background(), w.registry, w.current, next)
	w.current = next
}

func readPluginsOptions(path string) (*genericoptions.PluginsOptions, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	opts := genericoptions.NewPluginsOptions()
	if err := v.UnmarshalKey("plugins", opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// reconcile brings the registry in line with next. Plugins that prev listed
// and next does not are unloaded, newly listed ones are loaded and loaded
// ones whose configuration changed are reloaded. Plugins loaded at runtime
// outside the configuration are left alone.
func reconcile(ctx context.Context, registry *plugin.Registry, prev, next *genericoptions.PluginsOptions) {
	order := next.LoadOrder()

	if prev != nil {
		for _, name := range prev.LoadOrder() {
			if slices.Contains(order, name) || !registry.IsLoaded(name) {
				continue
			}
			if err := registry.UnloadPlugin(ctx, name); err != nil {
				logger.Warn("[Athena] unload de-listed plugin %q: %v", name, err)
				continue
			}
			logger.Info("[Athena] unloaded de-listed plugin %q", name)
		}
	}

	for _, name := range order {
		cfg := next.ConfigOf(name)
		if current, ok := registry.PluginConfig(name); ok {
			if cmp.Equal(map[string]interface{}(current), cfg, cmpopts.EquateEmpty()) {
				continue
			}
			if err := registry.UnloadPlugin(ctx, name); err != nil {
				logger.Warn("[Athena] unload %q before reload: %v", name, err)
			}
		}
		if err := registry.LoadPlugin(ctx, name, cfg); err != nil {
			logger.Error("[Athena] load plugin %q from changed configuration: %v", name, err)
			continue
		}
	}
}
