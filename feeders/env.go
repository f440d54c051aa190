package feeders

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// EnvFeeder populates a config struct from environment variables using
// `env:"..."` struct tags. Variables can share a common prefix, e.g.
// DEVICECORE_DEVICE_NAME with prefix "DEVICECORE_".
type EnvFeeder struct {
	Prefix string
}

// NewEnvFeeder creates a feeder without a prefix.
func NewEnvFeeder() EnvFeeder {
	return EnvFeeder{}
}

// NewEnvFeederWithPrefix creates a feeder that prepends prefix to every
// tagged variable name.
func NewEnvFeederWithPrefix(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed parses the environment into target.
func (e EnvFeeder) Feed(target any) error {
	opts := env.Options{Prefix: e.Prefix}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}
