// Package feeders provides configuration feeders for devicecore
// applications: YAML and TOML files and environment variables. Feeders are
// composed through devicecore.LoadConfig.
package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML file into a config struct.
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a feeder for the given file path.
func NewYamlFeeder(path string) YamlFeeder {
	return YamlFeeder{Path: path}
}

// Feed unmarshals the file into target. A missing file is an error; use
// FeedIfPresent when the file is optional.
func (y YamlFeeder) Feed(target any) error {
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return fmt.Errorf("failed to read yaml file %s: %w", y.Path, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse yaml file %s: %w", y.Path, err)
	}
	return nil
}

// FeedIfPresent is Feed, except a missing file is a no-op.
func (y YamlFeeder) FeedIfPresent(target any) error {
	if _, err := os.Stat(y.Path); os.IsNotExist(err) {
		return nil
	}
	return y.Feed(target)
}
