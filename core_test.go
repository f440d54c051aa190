package devicecore

import (
	"testing"
)

func TestCoreBeginAssignsDeviceIdentity(t *testing.T) {
	core := NewCore(nil)

	if !core.Begin(CoreConfig{}) {
		t.Fatal("Begin with no components should succeed")
	}
	if core.DeviceName() != "devicecore" {
		t.Errorf("DeviceName() = %q, want default", core.DeviceName())
	}
	if core.DeviceID() == "" {
		t.Error("Begin must assign a device id when none is configured")
	}
}

func TestCoreBeginKeepsConfiguredIdentity(t *testing.T) {
	core := NewCore(nil)
	core.Begin(CoreConfig{DeviceName: "sensor-hub", DeviceID: "dev-42"})

	if core.DeviceName() != "sensor-hub" || core.DeviceID() != "dev-42" {
		t.Errorf("identity = %q/%q, want sensor-hub/dev-42", core.DeviceName(), core.DeviceID())
	}
}

func TestCoreBeginTwice(t *testing.T) {
	core := NewCore(nil)
	c := &testComponent{name: "a"}
	core.AddComponent(c)

	core.Begin(CoreConfig{})
	if !core.Begin(CoreConfig{}) {
		t.Error("second Begin is a warning no-op")
	}
	if c.beginCalls != 1 {
		t.Errorf("beginCalls = %d, want 1", c.beginCalls)
	}
}

func TestCoreLoopTicksAndPolls(t *testing.T) {
	core := NewCore(nil)
	c := &testComponent{name: "a"}
	core.AddComponent(c)
	core.Begin(CoreConfig{})

	delivered := 0
	core.EventBus().Subscribe("t", nil, func(Event) { delivered++ })
	core.EventBus().Publish("t", nil)

	core.Loop()
	if c.loopCalls != 1 {
		t.Errorf("loopCalls = %d, want 1", c.loopCalls)
	}
	if delivered != 1 {
		t.Error("Loop must drain the event bus exactly once per tick")
	}
}

func TestCoreLoopSkipsFailedComponents(t *testing.T) {
	core := NewCore(nil)
	good := &testComponent{name: "good"}
	bad := &testComponent{name: "bad", beginResult: Failure}
	core.AddComponent(good)
	core.AddComponent(bad)
	core.Begin(CoreConfig{})

	core.Loop()
	if good.loopCalls != 1 {
		t.Error("Ready components must be ticked")
	}
	if bad.loopCalls != 0 {
		t.Error("Failed components must not be ticked")
	}
}

func TestCoreLoopBeforeBeginIsNoop(t *testing.T) {
	core := NewCore(nil)
	c := &testComponent{name: "a"}
	core.AddComponent(c)

	core.Loop()
	if c.loopCalls != 0 {
		t.Error("Loop must not tick components before Begin")
	}
}

func TestComponentRemovedMidTickIsNotTicked(t *testing.T) {
	core := NewCore(nil)
	victim := &testComponent{name: "victim"}
	remover := &testComponent{name: "remover"}
	remover.onLoop = func(*testComponent) {
		core.RemoveComponent("victim")
	}
	core.AddComponent(remover)
	core.AddComponent(victim) // registered after remover, ticked after it
	core.Begin(CoreConfig{})

	core.Loop()

	if victim.loopCalls != 0 {
		t.Error("a component removed earlier in the same tick must not be ticked")
	}
	if core.ComponentCount() != 1 {
		t.Errorf("ComponentCount() = %d, want 1", core.ComponentCount())
	}
}

func TestCoreAccessorsPassThrough(t *testing.T) {
	core := NewCore(nil)
	c := &testComponent{name: "a"}
	core.AddComponent(c)

	if core.GetComponent("a") == nil {
		t.Error("GetComponent should find the registered component")
	}
	if got, ok := GetComponentAs[*testComponent](core, "a"); !ok || got != c {
		t.Error("typed lookup through the core should succeed")
	}
	if core.ComponentCount() != 1 {
		t.Errorf("ComponentCount() = %d, want 1", core.ComponentCount())
	}
	if !core.RemoveComponent("a") {
		t.Error("RemoveComponent should succeed for a live component")
	}
	if core.GetComponent("a") != nil {
		t.Error("removed component must not be retrievable")
	}
}

func TestCoreShutdown(t *testing.T) {
	core := NewCore(nil)
	c := &testComponent{name: "a"}
	core.AddComponent(c)
	core.Begin(CoreConfig{})

	core.Shutdown()
	if c.shutdownCalls != 1 {
		t.Errorf("shutdownCalls = %d, want 1", c.shutdownCalls)
	}
	if core.ComponentCount() != 0 {
		t.Error("shutdown must clear the registry")
	}
	core.Shutdown() // second call is a no-op
	if c.shutdownCalls != 1 {
		t.Error("second Shutdown must not re-run component shutdown")
	}
}

func TestSystemReadyStickyReplayForLateComponents(t *testing.T) {
	core := NewCore(nil)
	core.AddComponent(&testComponent{name: "a"})
	core.Begin(CoreConfig{})
	core.Loop() // drain startup events

	// An early-init component added after Begin can still learn the
	// system is up, via sticky replay.
	sawReady := false
	core.EventBus().SubscribeSticky(TopicSystemReady, nil, func(Event) { sawReady = true })
	if !sawReady {
		t.Error("system/ready must be sticky for late subscribers")
	}
}

func TestEarlyInitComponentNotBatchBegun(t *testing.T) {
	core := NewCore(nil)
	core.Begin(CoreConfig{})

	late := &testComponent{name: "late"}
	if !core.AddComponent(late) {
		t.Fatal("adding after Begin must be legal")
	}
	core.Loop()
	if late.beginCalls != 0 {
		t.Error("components added after startup are not begun by the core")
	}

	// The caller drives the early-init lifecycle explicitly.
	if res := core.Registry().BeginComponent("late"); res != Success {
		t.Fatalf("BeginComponent = %v, want Success", res)
	}
	core.Loop()
	if late.loopCalls != 1 {
		t.Error("an explicitly begun early-init component must join the tick loop")
	}
}
