// Package devicecore provides a cooperative component-lifecycle runtime for
// firmware-style applications built from pluggable feature components.
//
// Applications are composed from independent components that declare
// dependencies on each other, communicate over a deferred-dispatch event bus,
// and are driven by a single caller-owned polling loop. Each component
// implements the Component interface and can optionally implement additional
// interfaces like DependencyAware or ReadyNotifiable.
//
// Basic usage:
//
//	core := devicecore.NewCore(logger)
//	core.AddComponent(sysinfo.New(cfg))
//	if !core.Begin(devicecore.CoreConfig{DeviceName: "sensor-hub"}) {
//		log.Fatal("startup failed")
//	}
//	for {
//		core.Loop()
//		time.Sleep(tick)
//	}
package devicecore

// Result is the outcome of a component lifecycle operation.
// Lifecycle methods report failure through Result values rather than
// panicking; the kernel never aborts the process on a component failure.
type Result int

const (
	// Success indicates the operation completed normally.
	Success Result = iota

	// ConfigError indicates the component could not run because its
	// configuration is invalid or a required dependency was missing or
	// never became Ready.
	ConfigError

	// Failure indicates a component-internal initialization or shutdown
	// error.
	Failure
)

// String returns a human-readable name for the result.
func (r Result) String() string {
	switch r {
	case Success:
		return "Success"
	case ConfigError:
		return "Configuration Error"
	case Failure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// Status describes where a component is in its lifecycle. Status is
// bookkeeping owned by the Registry, not by the component itself.
type Status int

const (
	// Uninitialized means the component has been registered but Begin has
	// not been attempted yet.
	Uninitialized Status = iota

	// Initializing means Begin is currently executing.
	Initializing

	// Ready means Begin succeeded and the component participates in ticks.
	Ready

	// Failed means Begin failed or was never attempted because a required
	// dependency did not become Ready.
	Failed

	// ShuttingDown means Shutdown is currently executing.
	ShuttingDown

	// Terminated means the component has been shut down.
	Terminated
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initializing:
		return "Initializing"
	case Ready:
		return "Ready"
	case Failed:
		return "Failed"
	case ShuttingDown:
		return "ShuttingDown"
	case Terminated:
		return "Terminated"
	}
	return "Unknown"
}

// Component represents a registrable feature component in the runtime.
// All components must implement this interface to be managed by the Registry.
type Component interface {
	// Name returns the unique identifier for this component.
	// The name is used for dependency resolution and registry lookups and
	// must be unique among live components.
	//
	// Example: "wifi", "storage", "sysinfo"
	Name() string

	// Begin performs one-shot initialization. It is called once during
	// startup, after every required dependency has reached Ready. Blocking
	// setup is acceptable here (and only here).
	//
	// Begin must report failure through its return value; it must not
	// panic or terminate the process.
	Begin() Result

	// Loop is called once per orchestrator tick. It must not block; side
	// effects are limited to the component's own state, the event bus, and
	// hardware the component owns.
	Loop()

	// Shutdown releases resources held by the component. It must be
	// idempotent: a second call is a no-op returning Success.
	Shutdown() Result
}

// Dependency declares a component's requirement on another component by name.
type Dependency struct {
	// Name is the registered name of the depended-on component.
	Name string

	// Required controls startup semantics. A required dependency must
	// reach Ready before the declaring component's Begin is attempted; if
	// it never does, the declaring component is failed with ConfigError
	// without Begin being called. An optional dependency never blocks
	// startup and may be absent from the registry entirely.
	Required bool
}

// Required is a convenience constructor for a required dependency.
func Required(name string) Dependency { return Dependency{Name: name, Required: true} }

// Optional is a convenience constructor for an optional dependency.
func Optional(name string) Dependency { return Dependency{Name: name, Required: false} }

// DependencyAware is an optional interface for components that depend on
// other components. The Registry reads the declarations once, during
// BeginAll, to compute startup order.
type DependencyAware interface {
	// Dependencies returns the components this component depends on.
	// Names must match the Name() of the dependency components exactly.
	Dependencies() []Dependency
}

// ReadyNotifiable is an optional interface for components that need a hook
// after batch startup. AfterAllComponentsReady is called exactly once per
// Ready component, after every component's Begin has been attempted, and it
// runs even when the overall startup partially failed. Components typically
// resolve cross-component references here that could not be resolved during
// Begin, such as optional dependencies or early-init components.
type ReadyNotifiable interface {
	AfterAllComponentsReady()
}

// VersionProvider is an optional interface for components that report a
// version string. The version is informational only; components without it
// report "1.0.0".
type VersionProvider interface {
	Version() string
}

// BusAware is an optional interface for components that communicate over the
// event bus. The Registry attaches its bus when the component is added,
// before any lifecycle method runs.
type BusAware interface {
	AttachBus(bus *EventBus)
}

// RegistryAware is an optional interface for components that look up other
// components at runtime. The Registry attaches itself when the component is
// added. The reference is non-owning: the Registry owns the component, never
// the other way around, and components must re-lookup after any removal
// rather than caching what they resolved.
type RegistryAware interface {
	AttachRegistry(registry *Registry)
}

// ComponentVersion returns the component's reported version, or "1.0.0" if
// it does not implement VersionProvider.
func ComponentVersion(c Component) string {
	if vp, ok := c.(VersionProvider); ok {
		if v := vp.Version(); v != "" {
			return v
		}
	}
	return "1.0.0"
}
