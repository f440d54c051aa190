// Package sysinfo provides a telemetry component that periodically
// publishes runtime metrics (uptime, heap usage, goroutine count) on the
// event bus. The latest snapshot is published sticky, so late subscribers
// like a dashboard get a reading immediately instead of waiting a full
// reporting interval.
//
// When the storage component is present, sysinfo also maintains a persisted
// boot counter. Storage is an optional dependency: the lookup is deferred
// to AfterAllComponentsReady and the component runs fine without it.
package sysinfo

import (
	"runtime"
	"time"

	"github.com/GoCodeAlone/devicecore"
	"github.com/GoCodeAlone/devicecore/modules/storage"
)

// ComponentName is the registry name of this component.
const ComponentName = "sysinfo"

// TopicMetrics carries a Metrics snapshot, published sticky on every
// reporting interval.
const TopicMetrics = "sysinfo/metrics"

const bootCountKey = "sysinfo.boot_count"

// Metrics is the payload for TopicMetrics.
type Metrics struct {
	Uptime       time.Duration `json:"uptime"`
	HeapAlloc    uint64        `json:"heapAlloc"`
	HeapSys      uint64        `json:"heapSys"`
	NumGoroutine int           `json:"numGoroutine"`
	NumGC        uint32        `json:"numGC"`
	GoVersion    string        `json:"goVersion"`
	BootCount    int           `json:"bootCount,omitempty"`
	CollectedAt  time.Time     `json:"collectedAt"`
}

// Config configures the sysinfo component.
type Config struct {
	// Interval between metric snapshots. Defaults to 10s.
	Interval time.Duration `yaml:"interval" toml:"interval" env:"SYSINFO_INTERVAL"`
}

// Component collects and publishes runtime metrics.
type Component struct {
	cfg      Config
	logger   devicecore.Logger
	bus      *devicecore.EventBus
	registry *devicecore.Registry

	timer     *devicecore.Timer
	startedAt time.Time
	bootCount int
}

// New creates the component. A nil logger is allowed and silences it.
func New(cfg Config, logger devicecore.Logger) *Component {
	if logger == nil {
		logger = devicecore.NewNoopLogger()
	}
	return &Component{cfg: cfg, logger: logger}
}

// Name returns the registry name.
func (c *Component) Name() string { return ComponentName }

// Version reports the component version.
func (c *Component) Version() string { return "1.0.0" }

// AttachBus receives the shared event bus from the registry.
func (c *Component) AttachBus(bus *devicecore.EventBus) { c.bus = bus }

// AttachRegistry receives a non-owning registry reference for the deferred
// storage lookup.
func (c *Component) AttachRegistry(r *devicecore.Registry) { c.registry = r }

// Dependencies declares storage as optional: metrics work without
// persistence, only the boot counter needs it.
func (c *Component) Dependencies() []devicecore.Dependency {
	return []devicecore.Dependency{devicecore.Optional(storage.ComponentName)}
}

// Begin starts the reporting timer. The first snapshot is published here so
// the sticky topic is never empty once the system is up.
func (c *Component) Begin() devicecore.Result {
	if c.cfg.Interval <= 0 {
		c.cfg.Interval = 10 * time.Second
	}
	c.timer = devicecore.NewTimer(c.cfg.Interval)
	c.startedAt = time.Now()
	c.publishMetrics()
	return devicecore.Success
}

// AfterAllComponentsReady resolves the optional storage dependency and
// bumps the persisted boot counter. Runs after batch startup, when the
// storage component is either Ready or known to be absent.
func (c *Component) AfterAllComponentsReady() {
	if c.registry == nil {
		return
	}
	store, ok := devicecore.GetAs[*storage.Component](c.registry, storage.ComponentName)
	if !ok {
		c.logger.Debug("Storage not available, boot counter disabled")
		return
	}
	c.bootCount = store.GetInt(bootCountKey, 0) + 1
	store.Set(bootCountKey, c.bootCount)
	c.logger.Info("Boot counter updated", "bootCount", c.bootCount)
}

// Loop publishes a fresh snapshot whenever the reporting interval elapses.
func (c *Component) Loop() {
	if c.timer.IsReady() {
		c.publishMetrics()
	}
}

// Shutdown has nothing to release.
func (c *Component) Shutdown() devicecore.Result {
	return devicecore.Success
}

// Snapshot returns current metrics without publishing them.
func (c *Component) Snapshot() Metrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return Metrics{
		Uptime:       time.Since(c.startedAt),
		HeapAlloc:    mem.HeapAlloc,
		HeapSys:      mem.HeapSys,
		NumGoroutine: runtime.NumGoroutine(),
		NumGC:        mem.NumGC,
		GoVersion:    runtime.Version(),
		BootCount:    c.bootCount,
		CollectedAt:  time.Now(),
	}
}

func (c *Component) publishMetrics() {
	if c.bus == nil {
		return
	}
	m := c.Snapshot()
	c.bus.PublishSticky(TopicMetrics, m)
	c.logger.Debug("Published metrics", "heapAlloc", m.HeapAlloc, "goroutines", m.NumGoroutine)
}
