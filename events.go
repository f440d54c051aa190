package devicecore

// Core lifecycle topics. Feature components define their own topics next to
// their payload types; only the kernel's own events live here.
const (
	// TopicComponentReady carries a ComponentEvent each time a component
	// reaches Ready during batch startup.
	TopicComponentReady = "component/ready"

	// TopicComponentError carries a ComponentEvent when a component's
	// Begin fails or is skipped because a required dependency was not
	// Ready.
	TopicComponentError = "component/error"

	// TopicSystemReady is published sticky once every component in the
	// startup batch reached Ready, so components added later can observe
	// that the system is up via sticky replay.
	TopicSystemReady = "system/ready"

	// TopicShutdownStart is published, and dispatched immediately, right
	// before components are shut down in reverse order.
	TopicShutdownStart = "shutdown/start"

	// TopicComponentRemoved carries a ComponentEvent after a component
	// has been removed from the registry at runtime.
	TopicComponentRemoved = "component/removed"
)

// ComponentEvent is the payload for per-component lifecycle topics.
type ComponentEvent struct {
	Name   string
	Result Result
}

// SystemReadyEvent is the payload for TopicSystemReady.
type SystemReadyEvent struct {
	DeviceID   string
	DeviceName string
	Components int
}
