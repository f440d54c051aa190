package devicecore

import (
	"errors"
)

// Kernel errors. Component lifecycle failures are reported through Result
// values (see component.go); these errors cover API misuse and lookups.
var (
	// Registry errors
	ErrComponentNil               = errors.New("component is nil")
	ErrComponentNameEmpty         = errors.New("component name is empty")
	ErrComponentAlreadyRegistered = errors.New("component already registered")
	ErrComponentNotFound          = errors.New("component not found")
	ErrComponentWrongType         = errors.New("component has a different concrete type")

	// Dependency resolution errors
	ErrDependencyMissing  = errors.New("required dependency not registered")
	ErrDependencyNotReady = errors.New("required dependency never became ready")
	ErrStartupStalled     = errors.New("startup cannot make progress, dependency cycle suspected")

	// Event bus errors
	ErrHandlerNil = errors.New("event handler cannot be nil")
	ErrTopicEmpty = errors.New("topic is empty")

	// Config errors
	ErrConfigNil        = errors.New("config is nil")
	ErrConfigNotPointer = errors.New("config must be a pointer")
)
