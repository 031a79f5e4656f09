package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Store holds a hot-reloadable Config behind an atomic pointer so concurrent
// readers never observe a half-updated struct while a reload is in flight.
type Store struct {
	current atomic.Pointer[Config]
	path    string
	logger  *zap.Logger
}

// NewStore loads the initial configuration from path and returns a Store
// ready to be watched.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, logger: logger}
	s.current.Store(cfg)
	return s, nil
}

// Get returns the currently active configuration snapshot.
func (s *Store) Get() *Config {
	return s.current.Load()
}

// Watch reloads the configuration whenever path changes on disk, logging and
// keeping the previous snapshot on a bad reload rather than propagating the
// error to in-flight orchestration calls.
func (s *Store) Watch() (func() error, error) {
	if s.path == "" {
		return func() error { return nil }, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(s.path)
				if err != nil {
					s.logger.Warn("config reload failed, keeping previous snapshot", zap.Error(err))
					continue
				}
				s.current.Store(cfg)
				s.logger.Info("config reloaded", zap.String("path", s.path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()

	return watcher.Close, nil
}
