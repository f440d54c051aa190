// Package webui provides a status dashboard component: a small JSON API
// over HTTP exposing the component inventory and the latest telemetry
// snapshot.
//
// The HTTP server is a boundary adapter and runs on its own goroutine;
// handlers never touch kernel state directly. Instead the component mirrors
// what it needs — component statuses snapshotted each tick, telemetry
// received over the event bus — behind a mutex that only the mirror and the
// handlers share.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/devicecore"
	"github.com/GoCodeAlone/devicecore/modules/sysinfo"
)

// ComponentName is the registry name of this component.
const ComponentName = "webui"

// Config configures the dashboard component.
type Config struct {
	// Addr is the listen address, e.g. ":8080". Required.
	Addr string `yaml:"addr" toml:"addr" env:"WEBUI_ADDR"`

	// ShutdownTimeout bounds graceful HTTP shutdown. Defaults to 5s.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdown_timeout" env:"WEBUI_SHUTDOWN_TIMEOUT"`
}

// componentStatus is one row of the /api/components response.
type componentStatus struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// statusResponse is the /api/status response.
type statusResponse struct {
	DeviceName string            `json:"deviceName,omitempty"`
	Components int               `json:"components"`
	Inventory  []componentStatus `json:"inventory"`
}

// Component serves the dashboard API.
type Component struct {
	cfg      Config
	logger   devicecore.Logger
	bus      *devicecore.EventBus
	registry *devicecore.Registry

	server     *http.Server
	router     chi.Router
	deviceName string

	mu        sync.RWMutex
	inventory []componentStatus
	metrics   *sysinfo.Metrics

	terminated bool
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

// AttachRegistry receives a non-owning registry reference used to snapshot
// the component inventory each tick.
func (c *Component) AttachRegistry(r *devicecore.Registry) { c.registry = r }

// Dependencies declares sysinfo as optional: the dashboard serves the
// inventory either way, the telemetry endpoint just stays empty.
func (c *Component) Dependencies() []devicecore.Dependency {
	return []devicecore.Dependency{devicecore.Optional(sysinfo.ComponentName)}
}

// SetDeviceName sets the device name reported by /api/status.
func (c *Component) SetDeviceName(name string) { c.deviceName = name }

// Begin builds the router, subscribes to telemetry with sticky replay, and
// starts the listener.
func (c *Component) Begin() devicecore.Result {
	if c.cfg.Addr == "" {
		c.logger.Error("WebUI listen address not configured")
		return devicecore.ConfigError
	}
	if c.cfg.ShutdownTimeout <= 0 {
		c.cfg.ShutdownTimeout = 5 * time.Second
	}

	// Sticky replay hands us the last snapshot even when sysinfo
	// published before we came up.
	if c.bus != nil {
		c.subscribeMetrics()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/status", c.handleStatus)
	r.Get("/api/metrics", c.handleMetrics)
	c.router = r

	c.server = &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		c.logger.Info("WebUI listening", "addr", c.cfg.Addr)
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("WebUI server stopped", "error", err)
		}
	}()
	return devicecore.Success
}

func (c *Component) subscribeMetrics() {
	c.bus.SubscribeSticky(sysinfo.TopicMetrics, c, func(ev devicecore.Event) {
		if m, ok := ev.Payload.(sysinfo.Metrics); ok {
			c.mu.Lock()
			c.metrics = &m
			c.mu.Unlock()
		}
	})
}

// Loop refreshes the inventory mirror the handlers read from.
func (c *Component) Loop() {
	if c.registry == nil {
		return
	}
	names := c.registry.Names()
	inventory := make([]componentStatus, 0, len(names))
	for _, name := range names {
		comp := c.registry.Get(name)
		if comp == nil {
			continue
		}
		inventory = append(inventory, componentStatus{
			Name:    name,
			Version: devicecore.ComponentVersion(comp),
			Status:  c.registry.Status(name).String(),
		})
	}
	c.mu.Lock()
	c.inventory = inventory
	c.mu.Unlock()
}

// Shutdown stops the HTTP listener gracefully. Idempotent.
func (c *Component) Shutdown() devicecore.Result {
	if c.terminated {
		return devicecore.Success
	}
	c.terminated = true
	if c.server == nil {
		return devicecore.Success
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancel()
	if err := c.server.Shutdown(ctx); err != nil {
		c.logger.Error("WebUI shutdown failed", "error", err)
		return devicecore.Failure
	}
	return devicecore.Success
}

// Handler exposes the router for tests and for embedding the API under a
// larger mux.
func (c *Component) Handler() http.Handler { return c.router }

func (c *Component) handleStatus(w http.ResponseWriter, _ *http.Request) {
	c.mu.RLock()
	resp := statusResponse{
		DeviceName: c.deviceName,
		Components: len(c.inventory),
		Inventory:  c.inventory,
	}
	c.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

func (c *Component) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	c.mu.RLock()
	m := c.metrics
	c.mu.RUnlock()
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no metrics collected yet"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
