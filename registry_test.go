package devicecore

import (
	"testing"
)

// testComponent is a scriptable component for kernel tests.
type testComponent struct {
	name          string
	deps          []Dependency
	beginResult   Result
	beginCalls    int
	loopCalls     int
	shutdownCalls int
	readyCalls    int
	beginOrder    *[]string // shared log of Begin invocations
	shutdownOrder *[]string // shared log of Shutdown invocations
	onBegin       func(c *testComponent)
	onLoop        func(c *testComponent)
	bus           *EventBus
	registry      *Registry
}

func (c *testComponent) Name() string { return c.name }

func (c *testComponent) Begin() Result {
	c.beginCalls++
	if c.beginOrder != nil {
		*c.beginOrder = append(*c.beginOrder, c.name)
	}
	if c.onBegin != nil {
		c.onBegin(c)
	}
	return c.beginResult
}

func (c *testComponent) Loop() {
	c.loopCalls++
	if c.onLoop != nil {
		c.onLoop(c)
	}
}

func (c *testComponent) Shutdown() Result {
	c.shutdownCalls++
	if c.shutdownOrder != nil {
		*c.shutdownOrder = append(*c.shutdownOrder, c.name)
	}
	return Success
}

func (c *testComponent) Dependencies() []Dependency   { return c.deps }
func (c *testComponent) AfterAllComponentsReady()     { c.readyCalls++ }
func (c *testComponent) AttachBus(bus *EventBus)      { c.bus = bus }
func (c *testComponent) AttachRegistry(r *Registry)   { c.registry = r }

func newTestRegistry() *Registry {
	return NewRegistry(NewEventBus(nil), nil)
}

func TestRegistryAdd(t *testing.T) {
	r := newTestRegistry()

	if !r.Add(&testComponent{name: "a"}) {
		t.Fatal("adding a fresh component should succeed")
	}
	if r.Add(&testComponent{name: "a"}) {
		t.Error("duplicate name must be rejected")
	}
	if r.Add(&testComponent{name: ""}) {
		t.Error("empty name must be rejected")
	}
	if r.Add(nil) {
		t.Error("nil component must be rejected")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryAddAttachesBusAndRegistry(t *testing.T) {
	r := newTestRegistry()
	c := &testComponent{name: "a"}
	r.Add(c)

	if c.bus != r.EventBus() {
		t.Error("bus must be attached at Add time so early-init components can subscribe")
	}
	if c.registry != r {
		t.Error("registry must be attached at Add time")
	}
}

func TestRegistryGet(t *testing.T) {
	r := newTestRegistry()
	c := &testComponent{name: "a"}
	r.Add(c)

	if got := r.Get("a"); got != Component(c) {
		t.Error("Get should return the registered component")
	}
	if got := r.Get("missing"); got != nil {
		t.Error("Get of an unknown name should return nil")
	}
}

func TestRegistryGetAs(t *testing.T) {
	r := newTestRegistry()
	r.Add(&testComponent{name: "a"})

	if c, ok := GetAs[*testComponent](r, "a"); !ok || c.name != "a" {
		t.Error("typed lookup of the right type should succeed")
	}
	if _, ok := GetAs[*testComponent](r, "missing"); ok {
		t.Error("typed lookup of an unknown name should fail")
	}
}

func TestBeginAllDependencyOrder(t *testing.T) {
	// "A" requires "B": B's Begin must complete strictly before A's.
	r := newTestRegistry()
	var order []string
	r.Add(&testComponent{name: "A", deps: []Dependency{Required("B")}, beginOrder: &order})
	r.Add(&testComponent{name: "B", beginOrder: &order})

	if !r.BeginAll() {
		t.Fatal("BeginAll should succeed")
	}
	if len(order) != 2 || order[0] != "B" || order[1] != "A" {
		t.Errorf("begin order = %v, want [B A]", order)
	}
	if r.Status("A") != Ready || r.Status("B") != Ready {
		t.Error("both components should be Ready")
	}
}

func TestBeginAllRegistrationOrderTieBreak(t *testing.T) {
	r := newTestRegistry()
	var order []string
	for _, name := range []string{"c", "a", "b"} {
		r.Add(&testComponent{name: name, beginOrder: &order})
	}

	r.BeginAll()
	want := []string{"c", "a", "b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("begin order = %v, want registration order %v", order, want)
		}
	}
}

func TestBeginAllMissingRequiredDependency(t *testing.T) {
	r := newTestRegistry()
	a := &testComponent{name: "A", deps: []Dependency{Required("B")}}
	r.Add(a)

	if r.BeginAll() {
		t.Fatal("BeginAll must fail when a required dependency is unregistered")
	}
	if a.beginCalls != 0 {
		t.Error("Begin must never be called when a required dependency is missing")
	}
	if r.Status("A") != Failed {
		t.Errorf("Status(A) = %v, want Failed", r.Status("A"))
	}
	if r.LastResult("A") != ConfigError {
		t.Errorf("LastResult(A) = %v, want ConfigError", r.LastResult("A"))
	}
}

func TestBeginAllOptionalDependencyAbsent(t *testing.T) {
	r := newTestRegistry()
	a := &testComponent{name: "A", deps: []Dependency{Optional("B")}}
	r.Add(a)

	if !r.BeginAll() {
		t.Fatal("an absent optional dependency must not fail startup")
	}
	if r.Status("A") != Ready {
		t.Errorf("Status(A) = %v, want Ready", r.Status("A"))
	}
}

func TestBeginAllFailedDependencyBlocksDependent(t *testing.T) {
	r := newTestRegistry()
	a := &testComponent{name: "A", deps: []Dependency{Required("B")}}
	b := &testComponent{name: "B", beginResult: Failure}
	r.Add(a)
	r.Add(b)

	if r.BeginAll() {
		t.Fatal("BeginAll must fail")
	}
	if a.beginCalls != 0 {
		t.Error("A's Begin must not run when B never reached Ready")
	}
	if r.Status("B") != Failed || r.LastResult("B") != Failure {
		t.Errorf("B: status %v result %v, want Failed/Failure", r.Status("B"), r.LastResult("B"))
	}
	if r.Status("A") != Failed || r.LastResult("A") != ConfigError {
		t.Errorf("A: status %v result %v, want Failed/ConfigError", r.Status("A"), r.LastResult("A"))
	}
}

func TestBeginAllFailSoft(t *testing.T) {
	// A failure does not roll back components that already succeeded.
	r := newTestRegistry()
	good := &testComponent{name: "good"}
	bad := &testComponent{name: "bad", beginResult: Failure}
	r.Add(good)
	r.Add(bad)

	if r.BeginAll() {
		t.Fatal("BeginAll must report the failure")
	}
	if r.Status("good") != Ready {
		t.Error("components that succeeded must stay Ready")
	}
	if good.shutdownCalls != 0 {
		t.Error("no rollback: Shutdown must not run on failure of another component")
	}
}

func TestBeginAllCycleFailsDeterministically(t *testing.T) {
	r := newTestRegistry()
	a := &testComponent{name: "A", deps: []Dependency{Required("B")}}
	b := &testComponent{name: "B", deps: []Dependency{Required("A")}}
	r.Add(a)
	r.Add(b)

	if r.BeginAll() {
		t.Fatal("a required-dependency cycle must fail startup, not hang")
	}
	if a.beginCalls != 0 || b.beginCalls != 0 {
		t.Error("no component in a cycle may be begun")
	}
	if r.LastResult("A") != ConfigError || r.LastResult("B") != ConfigError {
		t.Error("cycle members must be marked ConfigError")
	}
}

func TestAfterAllComponentsReady(t *testing.T) {
	r := newTestRegistry()
	good := &testComponent{name: "good"}
	bad := &testComponent{name: "bad", beginResult: Failure}
	dependent := &testComponent{name: "dependent", deps: []Dependency{Required("bad")}}
	r.Add(good)
	r.Add(bad)
	r.Add(dependent)

	r.BeginAll()

	if good.readyCalls != 1 {
		t.Errorf("good.readyCalls = %d, want exactly 1 even on partial failure", good.readyCalls)
	}
	if bad.readyCalls != 0 || dependent.readyCalls != 0 {
		t.Error("AfterAllComponentsReady must only run for Ready components")
	}
}

func TestBeginAllIsOneShot(t *testing.T) {
	r := newTestRegistry()
	c := &testComponent{name: "a"}
	r.Add(c)

	r.BeginAll()
	if !r.BeginAll() {
		t.Error("second BeginAll is a warning no-op reporting success")
	}
	if c.beginCalls != 1 {
		t.Errorf("beginCalls = %d, want 1", c.beginCalls)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := newTestRegistry()
	a := &testComponent{name: "a"}
	b := &testComponent{name: "b"}
	r.Add(a)
	r.Add(b)
	r.BeginAll()

	if !r.Remove("a") {
		t.Fatal("removing a live component should succeed")
	}
	if a.shutdownCalls != 1 {
		t.Error("Remove must shut the component down")
	}
	if r.Get("a") != nil {
		t.Error("removed component must not be retrievable")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	if r.Get("b") == nil {
		t.Error("other components must remain retrievable")
	}
	if r.Remove("a") {
		t.Error("removing an unknown name must return false")
	}
}

func TestRemoveDropsBusSubscriptions(t *testing.T) {
	r := newTestRegistry()
	calls := 0
	a := &testComponent{name: "a"}
	r.Add(a)
	r.BeginAll()
	r.EventBus().Subscribe("t", a, func(Event) { calls++ })

	r.Remove("a")
	r.EventBus().Publish("t", nil)
	r.EventBus().Poll()

	if calls != 0 {
		t.Error("subscriptions owned by a removed component must be dropped")
	}
}

func TestShutdownAllReverseOrder(t *testing.T) {
	r := newTestRegistry()
	var order []string
	a := &testComponent{name: "a", shutdownOrder: &order}
	b := &testComponent{name: "b", shutdownOrder: &order}
	c := &testComponent{name: "c", shutdownOrder: &order}
	r.Add(a)
	r.Add(b)
	r.Add(c)
	r.BeginAll()

	r.ShutdownAll()

	want := []string{"c", "b", "a"}
	if len(order) != 3 {
		t.Fatalf("shutdown order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("shutdown order = %v, want reverse registration order %v", order, want)
		}
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after ShutdownAll", r.Count())
	}
	if r.Initialized() {
		t.Error("registry must report uninitialized after ShutdownAll")
	}
}

func TestShutdownStartEventDispatchedBeforeShutdown(t *testing.T) {
	r := newTestRegistry()
	c := &testComponent{name: "a"}
	r.Add(c)
	r.BeginAll()

	sawShutdownWhileAlive := false
	r.EventBus().Subscribe(TopicShutdownStart, nil, func(Event) {
		sawShutdownWhileAlive = c.shutdownCalls == 0
	})
	r.ShutdownAll()

	if !sawShutdownWhileAlive {
		t.Error("shutdown/start must be dispatched before components are shut down")
	}
}

func TestLifecycleListeners(t *testing.T) {
	r := newTestRegistry()
	var added, removed []string
	r.AddListener(&funcListener{
		onAdd:    func(c Component) { added = append(added, c.Name()) },
		onRemove: func(c Component) { removed = append(removed, c.Name()) },
	})

	r.Add(&testComponent{name: "a"})
	r.Remove("a")

	if len(added) != 1 || added[0] != "a" {
		t.Errorf("added = %v, want [a]", added)
	}
	if len(removed) != 1 || removed[0] != "a" {
		t.Errorf("removed = %v, want [a]", removed)
	}
}

type funcListener struct {
	onAdd    func(Component)
	onRemove func(Component)
}

func (l *funcListener) OnComponentAdded(c Component)   { l.onAdd(c) }
func (l *funcListener) OnComponentRemoved(c Component) { l.onRemove(c) }
