// Package storage provides a file-backed key/value store component for
// devicecore applications. Values persist across reboots in a TOML file,
// the device-firmware analog of flash-backed preferences.
//
// Writes are buffered and flushed by a non-blocking interval timer inside
// Loop, so Set stays cheap on the hot path. External edits to the backing
// file are detected with fsnotify and reloaded on the next tick; every
// mutation and reload is announced on the event bus.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/golobby/cast"

	"github.com/GoCodeAlone/devicecore"
)

// ComponentName is the registry name of this component.
const ComponentName = "storage"

// Event topics published by the storage component.
const (
	// TopicChanged carries a ChangeEvent after every Set or Delete.
	TopicChanged = "storage/changed"

	// TopicReloaded is published after the store reloaded the backing
	// file because something else modified it.
	TopicReloaded = "storage/reloaded"
)

// ChangeEvent is the payload for TopicChanged.
type ChangeEvent struct {
	Key     string
	Deleted bool
}

// Config configures the storage component.
type Config struct {
	// Path is the TOML file backing the store. Required.
	Path string `yaml:"path" toml:"path" env:"STORAGE_PATH"`

	// FlushInterval bounds how often dirty data is written out from Loop.
	// Defaults to 5s.
	FlushInterval time.Duration `yaml:"flushInterval" toml:"flush_interval" env:"STORAGE_FLUSH_INTERVAL"`

	// WatchFile enables reloading when the backing file is modified
	// externally.
	WatchFile bool `yaml:"watchFile" toml:"watch_file" env:"STORAGE_WATCH_FILE"`
}

// Component is the storage component. It must only be used from the
// orchestrator loop goroutine, like every component.
type Component struct {
	cfg    Config
	logger devicecore.Logger
	bus    *devicecore.EventBus

	data       map[string]any
	dirty      bool
	flushTimer *devicecore.Timer

	watcher *fsnotify.Watcher
	// external hands fsnotify events from the watcher goroutine to Loop;
	// the kernel is single-threaded, so nothing else may touch component
	// state from that goroutine.
	external   chan struct{}
	selfWrites int

	terminated bool
}

// New creates the component. A nil logger is allowed and silences it.
func New(cfg Config, logger devicecore.Logger) *Component {
	if logger == nil {
		logger = devicecore.NewNoopLogger()
	}
	return &Component{
		cfg:      cfg,
		logger:   logger,
		data:     make(map[string]any),
		external: make(chan struct{}, 1),
	}
}

// Name returns the registry name.
func (c *Component) Name() string { return ComponentName }

// Version reports the component version.
func (c *Component) Version() string { return "1.1.0" }

// AttachBus receives the shared event bus from the registry.
func (c *Component) AttachBus(bus *devicecore.EventBus) { c.bus = bus }

// Begin loads the backing file and, if configured, starts the file watcher.
// Blocking I/O is acceptable here; it never happens again after startup.
func (c *Component) Begin() devicecore.Result {
	if c.cfg.Path == "" {
		c.logger.Error("Storage path not configured")
		return devicecore.ConfigError
	}
	if c.cfg.FlushInterval <= 0 {
		c.cfg.FlushInterval = 5 * time.Second
	}
	c.flushTimer = devicecore.NewTimer(c.cfg.FlushInterval)

	if err := c.load(); err != nil {
		c.logger.Error("Failed to load storage file", "path", c.cfg.Path, "error", err)
		return devicecore.Failure
	}

	if c.cfg.WatchFile {
		if err := c.startWatcher(); err != nil {
			c.logger.Error("Failed to watch storage file", "path", c.cfg.Path, "error", err)
			return devicecore.Failure
		}
	}

	c.logger.Info("Storage ready", "path", c.cfg.Path, "keys", len(c.data))
	return devicecore.Success
}

// Loop drains watcher notifications and flushes dirty data when the flush
// timer fires. It never blocks.
func (c *Component) Loop() {
	select {
	case <-c.external:
		if c.selfWrites > 0 {
			c.selfWrites--
		} else if err := c.load(); err != nil {
			c.logger.Error("Failed to reload storage file", "error", err)
		} else {
			c.logger.Info("Storage reloaded after external change", "keys", len(c.data))
			c.publish(TopicReloaded, nil)
		}
	default:
	}

	if c.dirty && c.flushTimer.IsReady() {
		if err := c.Flush(); err != nil {
			c.logger.Error("Failed to flush storage", "error", err)
		}
	}
}

// Shutdown flushes pending writes and stops the watcher. Idempotent.
func (c *Component) Shutdown() devicecore.Result {
	if c.terminated {
		return devicecore.Success
	}
	c.terminated = true

	res := devicecore.Success
	if c.dirty {
		if err := c.Flush(); err != nil {
			c.logger.Error("Failed to flush storage on shutdown", "error", err)
			res = devicecore.Failure
		}
	}
	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			c.logger.Warn("Failed to close storage watcher", "error", err)
		}
		c.watcher = nil
	}
	return res
}

// Set stores a value under key and schedules a flush.
func (c *Component) Set(key string, value any) {
	c.data[key] = value
	c.dirty = true
	c.publish(TopicChanged, ChangeEvent{Key: key})
}

// Delete removes a key, reporting whether it existed.
func (c *Component) Delete(key string) bool {
	if _, ok := c.data[key]; !ok {
		return false
	}
	delete(c.data, key)
	c.dirty = true
	c.publish(TopicChanged, ChangeEvent{Key: key, Deleted: true})
	return true
}

// Get returns the raw stored value.
func (c *Component) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Has reports whether a key exists.
func (c *Component) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Len returns the number of stored keys.
func (c *Component) Len() int { return len(c.data) }

// GetString returns the value coerced to a string, or def.
func (c *Component) GetString(key, def string) string {
	v, ok := c.data[key]
	if !ok {
		return def
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return fmt.Sprint(v)
}

// GetInt returns the value coerced to an int, or def when the key is absent
// or the value cannot be converted.
func (c *Component) GetInt(key string, def int) int {
	v, ok := c.data[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	if n, ok := coerce[int](v); ok {
		return n
	}
	return def
}

// GetBool returns the value coerced to a bool, or def.
func (c *Component) GetBool(key string, def bool) bool {
	v, ok := c.data[key]
	if !ok {
		return def
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	if b, ok := coerce[bool](v); ok {
		return b
	}
	return def
}

// GetFloat returns the value coerced to a float64, or def.
func (c *Component) GetFloat(key string, def float64) float64 {
	v, ok := c.data[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	if f, ok := coerce[float64](v); ok {
		return f
	}
	return def
}

// Flush writes the store to the backing file immediately and clears the
// dirty flag. Loop calls this on the flush timer; callers needing durability
// right now (before a reboot, say) can call it directly.
func (c *Component) Flush() error {
	data, err := toml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("failed to encode storage: %w", err)
	}
	if c.watcher != nil {
		c.selfWrites++
	}
	if err := os.WriteFile(c.cfg.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	c.dirty = false
	c.logger.Debug("Storage flushed", "path", c.cfg.Path, "keys", len(c.data))
	return nil
}

func (c *Component) load() error {
	raw := make(map[string]any)
	if _, err := os.Stat(c.cfg.Path); os.IsNotExist(err) {
		c.data = raw
		return nil
	}
	if _, err := toml.DecodeFile(c.cfg.Path, &raw); err != nil {
		return fmt.Errorf("failed to decode storage file: %w", err)
	}
	c.data = raw
	return nil
}

func (c *Component) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: editors and atomic writers replace the file,
	// which would break a direct file watch.
	if err := w.Add(filepath.Dir(c.cfg.Path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch storage directory: %w", err)
	}
	c.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != c.cfg.Path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case c.external <- struct{}{}:
				default: // a reload is already pending, coalesce
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

func (c *Component) publish(topic string, payload any) {
	if c.bus != nil {
		c.bus.Publish(topic, payload)
	}
}

// coerce converts arbitrary scalars through golobby/cast so values read
// back from TOML keep working regardless of the decoded concrete type.
func coerce[T any](v any) (T, bool) {
	var zero T
	converted, err := cast.FromType(fmt.Sprint(v), reflect.TypeOf(zero))
	if err != nil {
		return zero, false
	}
	typed, ok := converted.(T)
	return typed, ok
}

