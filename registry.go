package devicecore

import (
	"slices"
)

// LifecycleListener observes components entering and leaving the registry.
// Listeners are non-owning; a listener must not retain the component past
// OnComponentRemoved.
type LifecycleListener interface {
	OnComponentAdded(c Component)
	OnComponentRemoved(c Component)
}

type registryEntry struct {
	comp       Component
	status     Status
	lastResult Result
}

// Registry owns every live component and executes the dependency-ordered
// two-phase startup/shutdown protocol.
//
// Components are indexed by name and kept in registration order; that order
// is the tie-break among dependency-free components during startup and the
// iteration order for per-tick polling. The Registry is the single owner of
// its components from Add until Remove or ShutdownAll: lookups hand out
// non-owning references that are valid only until the component is removed.
//
// Like the rest of the kernel, the Registry is confined to the goroutine
// that drives the orchestrator loop.
type Registry struct {
	entries     []*registryEntry
	byName      map[string]*registryEntry
	bus         *EventBus
	logger      Logger
	listeners   []LifecycleListener
	initialized bool

	deviceName string
	deviceID   string
}

// NewRegistry creates an empty registry wired to the given bus. A nil
// logger is replaced with a no-op logger.
func NewRegistry(bus *EventBus, logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		byName: make(map[string]*registryEntry),
		bus:    bus,
		logger: logger,
	}
}

// SetDeviceIdentity sets the identity stamped on the system-ready event.
// The orchestrator calls this before BeginAll; standalone registries may
// leave it unset.
func (r *Registry) SetDeviceIdentity(name, id string) {
	r.deviceName = name
	r.deviceID = id
}

// EventBus returns the bus shared by all components in this registry.
func (r *Registry) EventBus() *EventBus {
	return r.bus
}

// Add takes ownership of a component. It returns false if the component is
// nil, its name is empty, or a component with the same name already exists.
//
// Add is legal before or after BeginAll has run; components added afterwards
// are not begun retroactively — the caller drives their lifecycle explicitly
// (the early-init pattern). The bus and registry are attached before Add
// returns so early-init components can subscribe immediately.
func (r *Registry) Add(c Component) bool {
	if c == nil {
		r.logger.Error("Cannot register nil component")
		return false
	}
	name := c.Name()
	if name == "" {
		r.logger.Error("Cannot register component with empty name")
		return false
	}
	if _, exists := r.byName[name]; exists {
		r.logger.Error("Component already registered", "component", name)
		return false
	}

	if ba, ok := c.(BusAware); ok {
		ba.AttachBus(r.bus)
	}
	if ra, ok := c.(RegistryAware); ok {
		ra.AttachRegistry(r)
	}

	e := &registryEntry{comp: c, status: Uninitialized}
	r.byName[name] = e
	r.entries = append(r.entries, e)

	r.logger.Info("Registered component", "component", name, "version", ComponentVersion(c))
	for _, l := range r.listeners {
		l.OnComponentAdded(c)
	}
	return true
}

// Remove shuts down the named component, drops its event bus subscriptions,
// detaches it from the registry, and notifies listeners. It returns false
// if no such component exists.
//
// Non-owning references obtained from Get do not survive this call; callers
// must re-lookup rather than cache across a Remove.
func (r *Registry) Remove(name string) bool {
	e, ok := r.byName[name]
	if !ok {
		return false
	}
	if e.status == Ready {
		r.logger.Info("Shutting down component before removal", "component", name)
		e.status = ShuttingDown
		e.lastResult = e.comp.Shutdown()
	}
	r.bus.UnsubscribeOwner(e.comp)
	e.status = Terminated

	for _, l := range r.listeners {
		l.OnComponentRemoved(e.comp)
	}

	delete(r.byName, name)
	if i := slices.Index(r.entries, e); i >= 0 {
		r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
	}

	r.bus.Publish(TopicComponentRemoved, ComponentEvent{Name: name, Result: e.lastResult})
	r.logger.Info("Component removed", "component", name)
	return true
}

// Get returns the named component, or nil if it does not exist. The
// reference is non-owning and valid only until the component is removed.
func (r *Registry) Get(name string) Component {
	if e, ok := r.byName[name]; ok {
		return e.comp
	}
	return nil
}

// GetAs returns the named component downcast to a concrete type. The second
// return is false when the component is absent or has a different type.
func GetAs[T Component](r *Registry, name string) (T, bool) {
	var zero T
	e, ok := r.byName[name]
	if !ok {
		return zero, false
	}
	c, ok := e.comp.(T)
	if !ok {
		return zero, false
	}
	return c, true
}

// Count returns the number of live components.
func (r *Registry) Count() int {
	return len(r.entries)
}

// Names returns the live component names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.comp.Name())
	}
	return names
}

// Status returns the lifecycle status of the named component. Unknown names
// report Uninitialized.
func (r *Registry) Status(name string) Status {
	if e, ok := r.byName[name]; ok {
		return e.status
	}
	return Uninitialized
}

// LastResult returns the result of the named component's last lifecycle
// operation, including ConfigError for components whose Begin was skipped
// because a required dependency never became Ready.
func (r *Registry) LastResult(name string) Result {
	if e, ok := r.byName[name]; ok {
		return e.lastResult
	}
	return Success
}

// Initialized reports whether BeginAll has run.
func (r *Registry) Initialized() bool {
	return r.initialized
}

// AddListener registers a lifecycle listener.
func (r *Registry) AddListener(l LifecycleListener) {
	if l != nil {
		r.listeners = append(r.listeners, l)
	}
}

// RemoveListener removes a previously registered lifecycle listener.
func (r *Registry) RemoveListener(l LifecycleListener) {
	for i, x := range r.listeners {
		if x == l {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return
		}
	}
}

// BeginAll executes the two-phase startup protocol and returns true only if
// every component reached Ready.
//
// Phase 1 processes components in a stable order respecting required
// dependencies: a component becomes eligible only once all its required
// dependencies are Ready, and ties among eligible components are broken by
// registration order. A component whose required dependency is not
// registered, or never reaches Ready, is marked Failed with ConfigError and
// its Begin is never called. Failures do not roll back components that
// already succeeded (a boot, not a transaction). A stalled pass —
// no eligible component, unprocessed components remaining — fails
// deterministically, which is how dependency cycles surface.
//
// Phase 2 calls AfterAllComponentsReady on every Ready component in
// registration order, even when phase 1 partially failed, so components
// that did come up can wire cross-references.
func (r *Registry) BeginAll() bool {
	if r.initialized {
		r.logger.Warn("Components already initialized")
		return true
	}

	// Components added by a Begin call mid-startup belong to the caller,
	// not to this batch.
	batch := append([]*registryEntry(nil), r.entries...)

	ok := true
	for {
		progressed := false
		for _, e := range batch {
			if e.status != Uninitialized {
				continue
			}
			eligible, missing := r.depsReady(e)
			if missing != "" {
				r.logger.Error("Required dependency not registered",
					"component", e.comp.Name(), "dependency", missing)
				r.fail(e, ConfigError)
				ok = false
				progressed = true
				continue
			}
			if !eligible {
				continue
			}
			r.beginOne(e, &ok)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	// Whatever is still Uninitialized was waiting on a dependency that
	// never became Ready: a failed dependency, or a cycle.
	for _, e := range batch {
		if e.status != Uninitialized {
			continue
		}
		r.logger.Error("Component startup stalled, required dependency never became ready",
			"component", e.comp.Name())
		r.fail(e, ConfigError)
		ok = false
	}

	if ok {
		r.logger.Info("All components initialized", "count", len(batch))
		r.bus.PublishSticky(TopicSystemReady, SystemReadyEvent{
			DeviceID:   r.deviceID,
			DeviceName: r.deviceName,
			Components: len(batch),
		})
	} else {
		r.logger.Error("Component startup completed with failures")
	}

	for _, e := range batch {
		if e.status != Ready {
			continue
		}
		if rn, okRN := e.comp.(ReadyNotifiable); okRN {
			rn.AfterAllComponentsReady()
		}
	}

	r.initialized = true
	return ok
}

// BeginComponent runs one component's Begin outside the batch protocol.
// This is the early-init path for components added after BeginAll: the
// caller takes responsibility for ordering, no dependency check is made.
// Returns ConfigError for a name that is not registered; a component that
// is already Ready is a Success no-op.
func (r *Registry) BeginComponent(name string) Result {
	e, ok := r.byName[name]
	if !ok {
		return ConfigError
	}
	if e.status == Ready {
		return Success
	}
	success := true
	r.beginOne(e, &success)
	return e.lastResult
}

func (r *Registry) beginOne(e *registryEntry, ok *bool) {
	name := e.comp.Name()
	r.logger.Info("Initializing component", "component", name)
	e.status = Initializing
	res := e.comp.Begin()
	e.lastResult = res
	if res != Success {
		r.logger.Error("Component initialization failed", "component", name, "result", res.String())
		e.status = Failed
		r.bus.Publish(TopicComponentError, ComponentEvent{Name: name, Result: res})
		*ok = false
		return
	}
	e.status = Ready
	r.logger.Info("Component initialized", "component", name)
	r.bus.Publish(TopicComponentReady, ComponentEvent{Name: name, Result: res})
}

func (r *Registry) fail(e *registryEntry, res Result) {
	e.status = Failed
	e.lastResult = res
	r.bus.Publish(TopicComponentError, ComponentEvent{Name: e.comp.Name(), Result: res})
}

// depsReady reports whether every required dependency of e is Ready. When a
// required dependency is not registered at all, its name is returned as
// missing and the component must fail without waiting.
func (r *Registry) depsReady(e *registryEntry) (eligible bool, missing string) {
	da, ok := e.comp.(DependencyAware)
	if !ok {
		return true, ""
	}
	for _, dep := range da.Dependencies() {
		if !dep.Required {
			// Optional dependencies never block startup; the component
			// tolerates them being absent or late, typically by deferring
			// the lookup to AfterAllComponentsReady or its own Loop.
			continue
		}
		target, exists := r.byName[dep.Name]
		if !exists {
			return false, dep.Name
		}
		if target.status != Ready {
			return false, ""
		}
	}
	return true, ""
}

// LoopAll ticks every Ready component in registration order, then drains
// the event bus once. Components removed during the tick, by another
// component's Loop, are not ticked again in the same call. LoopAll is a
// no-op before BeginAll has run.
func (r *Registry) LoopAll() {
	if !r.initialized {
		return
	}
	// Iterate by name so a removal mid-tick skips the victim instead of
	// invoking a component the registry no longer owns.
	for _, name := range r.Names() {
		e, ok := r.byName[name]
		if !ok || e.status != Ready {
			continue
		}
		e.comp.Loop()
	}
	r.bus.Poll()
}

// ShutdownAll shuts every component down in reverse registration order,
// best-effort: individual failures are logged and do not stop the pass.
// TopicShutdownStart is published and dispatched before the first Shutdown
// so listeners can react while components are still alive. The registry is
// cleared afterwards.
func (r *Registry) ShutdownAll() {
	if len(r.entries) == 0 {
		r.initialized = false
		return
	}

	r.bus.Publish(TopicShutdownStart, nil)
	r.bus.Poll()

	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		name := e.comp.Name()
		r.logger.Info("Shutting down component", "component", name)
		e.status = ShuttingDown
		res := e.comp.Shutdown()
		e.lastResult = res
		if res != Success {
			r.logger.Warn("Component shutdown reported failure", "component", name, "result", res.String())
		}
		r.bus.UnsubscribeOwner(e.comp)
		e.status = Terminated
	}

	r.entries = nil
	r.byName = make(map[string]*registryEntry)
	r.initialized = false
	r.logger.Info("All components shut down")
}
