package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML file into a config struct.
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder creates a feeder for the given file path.
func NewTomlFeeder(path string) TomlFeeder {
	return TomlFeeder{Path: path}
}

// Feed decodes the file into target.
func (t TomlFeeder) Feed(target any) error {
	if _, err := toml.DecodeFile(t.Path, target); err != nil {
		return fmt.Errorf("failed to decode toml file %s: %w", t.Path, err)
	}
	return nil
}
