package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/carelog/internal/logging"
)

// Store owns the process-wide incident config. The config is loaded lazily
// on first Get and replaced atomically on Reload, so readers always see a
// complete IncidentConfig.
type Store struct {
	path    string
	logger  logrus.FieldLogger
	current atomic.Pointer[IncidentConfig]
	mu      sync.Mutex // serializes loads
}

// NewStore creates a store backed by the YAML file at path.
func NewStore(path string, logger logrus.FieldLogger) *Store {
	return &Store{path: path, logger: logging.OrDiscard(logger)}
}

// NewStaticStore wraps an already-loaded config. Reload re-reads cfg's path
// when it has one.
func NewStaticStore(cfg *IncidentConfig) *Store {
	s := &Store{path: cfg.Path(), logger: logging.Discard()}
	s.current.Store(cfg)
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get returns the current config, loading it on first use.
func (s *Store) Get() (*IncidentConfig, error) {
	if cfg := s.current.Load(); cfg != nil {
		return cfg, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg := s.current.Load(); cfg != nil {
		return cfg, nil
	}
	cfg, err := Load(s.path, s.logger)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)
	return cfg, nil
}

// Reload re-reads the backing file. On failure the previous config stays
// in place and the error is returned.
func (s *Store) Reload() (*IncidentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := Load(s.path, s.logger)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)
	return cfg, nil
}

// Watch reloads the config whenever its file is written, created or renamed
// into place. The parent directory is watched so editors that replace the
// file are handled. Watch blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.path, err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	log := s.logger.WithField("config", s.path)
	log.Info("watching incident config")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if _, err := s.Reload(); err != nil {
				log.WithError(err).Warn("config reload failed, keeping previous config")
				continue
			}
			log.Info("incident config reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("config watcher error")
		}
	}
}
