package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Manager serves the current configuration and reloads it when the file
// changes on disk.
type Manager struct {
	log zerolog.Logger

	mu       sync.RWMutex
	config   *Config
	onReload func(*Config)
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
}

func NewManager(log zerolog.Logger) (*Manager, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Manager{log: log, config: cfg}, nil
}

// OnReload registers a callback invoked with each successfully reloaded
// config. Must be set before StartWatching.
func (m *Manager) OnReload(fn func(*Config)) {
	m.onReload = fn
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification.
	cfg := *m.config
	return &cfg
}

func (m *Manager) StartWatching(ctx context.Context) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return err
	}

	m.wg.Add(1)
	go m.watchLoop(ctx, configPath)

	m.log.Info().Str("path", configPath).Msg("watching config for changes")
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context, configPath string) {
	defer m.wg.Done()
	configFileName := filepath.Base(configPath)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			// Only Write and Create matter; Chmod and Remove do not.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.log.Info().Str("event", event.Op.String()).Msg("config changed, reloading")
				m.reload(configPath)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Error().Err(err).Msg("config watcher error")

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reload(configPath string) {
	cfg, err := LoadFile(configPath)
	if err != nil {
		m.log.Error().Err(err).Msg("config reload failed")
		return
	}
	if err := cfg.Validate(); err != nil {
		m.log.Error().Err(err).Msg("invalid config after reload, keeping previous")
		return
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	if m.onReload != nil {
		m.onReload(cfg)
	}

	m.log.Info().Msg("config reloaded")
}
