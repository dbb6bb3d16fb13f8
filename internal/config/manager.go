package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ChangeEvent describes one configuration change.
type ChangeEvent struct {
	File      string                 `json:"file"`
	Action    string                 `json:"action"` // create, modify, delete
	Config    map[string]interface{} `json:"config"`
	Timestamp time.Time              `json:"timestamp"`
}

// ChangeHandler is called when configuration changes.
type ChangeHandler func(event ChangeEvent) error

// Manager watches a directory of yaml/json config files and hot-reloads them.
type Manager struct {
	dir      string
	configs  map[string]map[string]interface{}
	handlers map[string][]ChangeHandler
	watcher  *fsnotify.Watcher
	started  bool
	stopCh   chan struct{}
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewManager creates a configuration manager for dir.
func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("config directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Manager{
		dir:      dir,
		configs:  make(map[string]map[string]interface{}),
		handlers: make(map[string][]ChangeHandler),
		watcher:  watcher,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}, nil
}

// Start loads all config files and begins watching for changes.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if err := m.watcher.Add(m.dir); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}
	if err := m.loadAll(); err != nil {
		return fmt.Errorf("load initial configs: %w", err)
	}

	go m.watchLoop()

	m.logger.Info("Configuration manager started", zap.String("config_dir", m.dir))
	return nil
}

// Stop stops watching for changes.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	close(m.stopCh)
	m.started = false
	return m.watcher.Close()
}

// RegisterHandler registers a change handler for a config file.
func (m *Manager) RegisterHandler(filename string, handler ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[filename] = append(m.handlers[filename], handler)
}

// Get returns a copy of the current configuration for a file.
func (m *Manager) Get(filename string) (map[string]interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[filename]
	if !ok {
		return nil, false
	}
	out := make(map[string]interface{}, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out, true
}

// Reload manually reloads one file.
func (m *Manager) Reload(filename string) error {
	return m.loadFile(filepath.Join(m.dir, filename), "manual_reload")
}

func (m *Manager) watchLoop() {
	for {
		select {
		case <-m.stopCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (m *Manager) handleEvent(event fsnotify.Event) {
	if !isConfigFile(event.Name) {
		return
	}
	filename := filepath.Base(event.Name)

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		m.handleRemoval(filename)
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		// Small delay to handle rapid successive writes
		time.Sleep(50 * time.Millisecond)
		if err := m.loadFile(event.Name, "modify"); err != nil {
			m.logger.Error("Failed to reload config file",
				zap.String("file", filename),
				zap.Error(err))
		}
	}
}

func (m *Manager) loadAll() error {
	return filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isConfigFile(path) {
			return nil
		}
		return m.loadFile(path, "initial_load")
	})
}

func (m *Manager) loadFile(path, action string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	filename := filepath.Base(path)
	cfg := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse json config %s: %w", filename, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", filename, err)
		}
	default:
		return fmt.Errorf("unsupported config format for %s", filename)
	}

	m.mu.Lock()
	m.configs[filename] = cfg
	handlers := append([]ChangeHandler(nil), m.handlers[filename]...)
	m.mu.Unlock()

	m.notify(handlers, ChangeEvent{
		File:      filename,
		Action:    action,
		Config:    cfg,
		Timestamp: time.Now(),
	})

	m.logger.Info("Configuration loaded",
		zap.String("filename", filename),
		zap.String("action", action),
		zap.Int("keys", len(cfg)))
	return nil
}

func (m *Manager) handleRemoval(filename string) {
	m.mu.Lock()
	last := m.configs[filename]
	delete(m.configs, filename)
	handlers := append([]ChangeHandler(nil), m.handlers[filename]...)
	m.mu.Unlock()

	m.notify(handlers, ChangeEvent{
		File:      filename,
		Action:    "delete",
		Config:    last,
		Timestamp: time.Now(),
	})
	m.logger.Info("Configuration file removed", zap.String("filename", filename))
}

// notify runs handlers asynchronously so a slow handler never blocks the
// watch loop.
func (m *Manager) notify(handlers []ChangeHandler, event ChangeEvent) {
	for _, handler := range handlers {
		h := handler
		go func() {
			if err := h(event); err != nil {
				m.logger.Error("Configuration handler error",
					zap.String("filename", event.File),
					zap.String("action", event.Action),
					zap.Error(err))
			}
		}()
	}
}

func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
