package athena

import (
	"context"
	"fmt"
	"sync"

	"github.com/kiosk404/athena/internal/athena/config"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin"
	"github.com/kiosk404/athena/internal/athena/service/state"
	genericapiserver "github.com/kiosk404/athena/internal/pkg/server"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/kiosk404/athena/pkg/shutdown"
	"github.com/kiosk404/athena/pkg/shutdown/posixsignal"
	"github.com/robfig/cron/v3"
)

type athenaServer struct {
	cfg              *config.Config
	gs               *shutdown.GracefulShutdown
	genericAPIServer *genericapiserver.GenericAPIServer

	registry *plugin.Registry
	store    *state.Store
	cron     *cron.Cron
	watcher  *configWatcher

	// persistMu serializes autosave with the final save on shutdown.
	persistMu sync.Mutex
}

type preparedAthenaServer struct {
	*athenaServer
}

func createAthenaServer(cfg *config.Config) (*athenaServer, error) {
	gs := shutdown.New()
	gs.AddShutdownManager(posixsignal.NewPosixSignalManager())
	gs.SetErrorHandler(shutdown.ErrorFunc(func(err error) {
		logger.Error("[Athena] shutdown: %v", err)
	}))

	genericConfig, err := buildGenericConfig(cfg)
	if err != nil {
		return nil, err
	}
	genericServer, err := genericConfig.Complete().New()
	if err != nil {
		return nil, err
	}

	store, err := state.Open(cfg.StateOptions.Path)
	if err != nil {
		return nil, err
	}
	states, err := store.Load(context.Background())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("[Athena] restored %d plugin states from %s", len(states), cfg.StateOptions.Path)

	registry := newRegistry(cfg, states)

	return &athenaServer{
		cfg:              cfg,
		gs:               gs,
		genericAPIServer: genericServer,
		registry:         registry,
		store:            store,
		cron:             cron.New(),
	}, nil
}

func newRegistry(cfg *config.Config, states map[string]plugin.StateBlob) *plugin.Registry {
	order := cfg.PluginOptions.LoadOrder()
	configs := make(map[string]plugin.Config, len(order))
	for _, name := range order {
		configs[name] = cfg.PluginOptions.ConfigOf(name)
	}

	registryConfig := &plugin.RegistryConfig{
		Factories:     builtin.NewInTreeRegistry(),
		Plugins:       order,
		PluginConfigs: configs,
		States:        states,
	}
	return registryConfig.Complete().New()
}

func (s *athenaServer) PrepareRun() preparedAthenaServer {
	initRouter(s.genericAPIServer.Engine, &routerDeps{
		registry:  s.registry,
		authToken: s.cfg.GenericServerRunOptions.AuthToken,
	})

	s.gs.AddShutdownCallback(shutdown.Func(func(string) error {
		s.shutdown(context.Background())
		return nil
	}))

	return preparedAthenaServer{s}
}

func (s preparedAthenaServer) Run() error {
	ctx := context.Background()
	if err := s.registry.LoadPlugins(ctx); err != nil {
		s.registry.UnloadPlugins(ctx)
		_ = s.store.Close()
		return fmt.Errorf("load plugins: %w", err)
	}

	if err := s.start(); err != nil {
		s.shutdown(ctx)
		return err
	}

	return s.genericAPIServer.Run()
}

// start brings up everything that runs beside the loaded plugins.
func (s *athenaServer) start() error {
	if interval := s.cfg.StateOptions.AutosaveInterval; interval > 0 {
		spec := fmt.Sprintf("@every %s", interval)
		if _, err := s.cron.AddFunc(spec, s.autosave); err != nil {
			return fmt.Errorf("schedule state autosave: %w", err)
		}
		s.cron.Start()
	}

	if s.cfg.PluginOptions.Watch && s.cfg.ConfigFile != "" {
		w, err := newConfigWatcher(s.cfg.ConfigFile, s.registry, s.cfg.PluginOptions)
		if err != nil {
			logger.Warn("[Athena] config watcher disabled: %v", err)
		} else {
			s.watcher = w
			w.Start()
		}
	}

	if err := s.gs.Start(); err != nil {
		return fmt.Errorf("start shutdown manager: %w", err)
	}
	return nil
}

// autosave gathers every plugin's state and writes the table to disk.
func (s *athenaServer) autosave() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.registry.GatherStates()
	if err := s.store.Save(context.Background(), s.registry.States()); err != nil {
		logger.Error("[Athena] autosave plugin states: %v", err)
		return
	}
	logger.Debug("[Athena] plugin states saved")
}

// shutdown unloads the plugins, persists their states and stops serving.
func (s *athenaServer) shutdown(ctx context.Context) {
	<-s.cron.Stop().Done()
	if s.watcher != nil {
		s.watcher.Stop()
	}

	s.registry.UnloadPlugins(ctx)

	s.persistMu.Lock()
	if err := s.store.Save(ctx, s.registry.States()); err != nil {
		logger.Error("[Athena] save plugin states: %v", err)
	}
	if err := s.store.Close(); err != nil {
		logger.Warn("[Athena] close state store: %v", err)
	}
	s.persistMu.Unlock()

	s.genericAPIServer.Close()
	logger.Info("[Athena] shutdown complete")
}

func buildGenericConfig(cfg *config.Config) (genericConfig *genericapiserver.Config, lastErr error) {
	genericConfig = genericapiserver.NewConfig()
	if lastErr = cfg.ApplyTo(genericConfig); lastErr != nil {
		return
	}

	return
}
