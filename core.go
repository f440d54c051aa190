package devicecore

import (
	"github.com/google/uuid"
)

// CoreConfig carries device identity and logging defaults. It is
// orchestrator bookkeeping, not kernel logic: components read it through
// Core accessors if they care.
type CoreConfig struct {
	// DeviceName is a human-readable name for this device.
	DeviceName string `yaml:"deviceName" toml:"device_name" env:"DEVICE_NAME"`

	// DeviceID uniquely identifies the device. Left empty, Begin assigns
	// a random one.
	DeviceID string `yaml:"deviceId" toml:"device_id" env:"DEVICE_ID"`

	// LogLevel is the minimum level the application's logger should emit.
	// Informational: the kernel logs through whatever Logger it was given.
	LogLevel string `yaml:"logLevel" toml:"log_level" env:"LOG_LEVEL"`
}

// Core composes the component Registry and the EventBus and drives the
// per-tick polling loop. The application registers components, calls Begin
// once, then invokes Loop from its own cooperative loop until it calls
// Shutdown.
type Core struct {
	config      CoreConfig
	registry    *Registry
	bus         *EventBus
	logger      Logger
	initialized bool
}

// NewCore creates a core with an empty registry and bus. A nil logger is
// replaced with a no-op logger.
func NewCore(logger Logger) *Core {
	if logger == nil {
		logger = noopLogger{}
	}
	bus := NewEventBus(logger)
	return &Core{
		registry: NewRegistry(bus, logger),
		bus:      bus,
		logger:   logger,
	}
}

// AddComponent registers a component. Legal at any time, including after
// Begin; late-added components are not begun by the core (early-init
// pattern, see Registry.Add).
func (c *Core) AddComponent(comp Component) bool {
	return c.registry.Add(comp)
}

// Begin stores the configuration and executes the batch startup protocol.
// It returns false when any component failed to come up; components that
// did reach Ready stay Ready, and the caller decides whether to halt or run
// degraded. Calling Begin twice is a warning no-op.
func (c *Core) Begin(cfg CoreConfig) bool {
	if c.initialized {
		c.logger.Warn("Core already initialized")
		return true
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = "devicecore"
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.New().String()
	}
	c.config = cfg
	c.registry.SetDeviceIdentity(cfg.DeviceName, cfg.DeviceID)
	c.initialized = true

	c.logger.Info("Starting core", "device", cfg.DeviceName, "deviceId", cfg.DeviceID,
		"components", c.registry.Count())
	return c.registry.BeginAll()
}

// Loop runs one tick: every Ready component's Loop in registration order,
// then exactly one event bus Poll.
func (c *Core) Loop() {
	c.registry.LoopAll()
}

// Shutdown stops all components in reverse registration order and clears
// the registry.
func (c *Core) Shutdown() {
	if !c.initialized {
		return
	}
	c.logger.Info("Shutting down core", "device", c.config.DeviceName)
	c.registry.ShutdownAll()
	c.initialized = false
}

// GetComponent returns a non-owning reference to the named component, nil
// if absent.
func (c *Core) GetComponent(name string) Component {
	return c.registry.Get(name)
}

// GetComponentAs returns the named component downcast to a concrete type,
// false if it is absent or of a different type.
func GetComponentAs[T Component](c *Core, name string) (T, bool) {
	return GetAs[T](c.registry, name)
}

// RemoveComponent shuts down and removes the named component at runtime.
func (c *Core) RemoveComponent(name string) bool {
	return c.registry.Remove(name)
}

// ComponentCount returns the number of live components.
func (c *Core) ComponentCount() int {
	return c.registry.Count()
}

// Registry exposes the component registry for runtime lookups.
func (c *Core) Registry() *Registry {
	return c.registry
}

// EventBus exposes the shared event bus.
func (c *Core) EventBus() *EventBus {
	return c.bus
}

// Logger returns the logger the core was constructed with.
func (c *Core) Logger() Logger {
	return c.logger
}

// Config returns the configuration passed to Begin.
func (c *Core) Config() CoreConfig {
	return c.config
}

// DeviceID returns the configured or generated device identifier.
func (c *Core) DeviceID() string {
	return c.config.DeviceID
}

// DeviceName returns the configured device name.
func (c *Core) DeviceName() string {
	return c.config.DeviceName
}
