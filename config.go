package devicecore

import (
	"fmt"
	"reflect"
)

// ConfigProvider supplies configuration values to components and the core.
type ConfigProvider interface {
	GetConfig() any
}

// StdConfigProvider wraps a plain config value.
type StdConfigProvider struct {
	cfg any
}

// GetConfig returns the wrapped config value.
func (s *StdConfigProvider) GetConfig() any {
	return s.cfg
}

// NewStdConfigProvider creates a provider around an existing config value.
func NewStdConfigProvider(cfg any) *StdConfigProvider {
	return &StdConfigProvider{cfg: cfg}
}

// Feeder populates a config struct from some source (file, environment).
// Implementations live in the feeders package; feeders run in order, later
// feeders overriding earlier ones for the fields they set.
type Feeder interface {
	Feed(target any) error
}

// LoadConfig feeds target, which must be a non-nil pointer to a struct,
// from each feeder in order.
func LoadConfig(target any, feeders ...Feeder) error {
	if target == nil {
		return ErrConfigNil
	}
	if reflect.ValueOf(target).Kind() != reflect.Ptr {
		return ErrConfigNotPointer
	}
	for _, f := range feeders {
		if err := f.Feed(target); err != nil {
			return fmt.Errorf("config feeder failed: %w", err)
		}
	}
	return nil
}
