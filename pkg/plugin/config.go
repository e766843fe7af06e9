package plugin

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadManifest reads a YAML file listing plugin descriptors under a
// top-level "plugins" key and returns them, already struct-tag
// validated. The original implementation has no equivalent — its
// plugins are hard-coded Go/Rust literals — but a deployment spawning
// more than a couple of plugins needs this instead of hand-written
// Descriptor{} literals.
func LoadManifest(path string) ([]Descriptor, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("plugin: read manifest %s: %w", path, err)
	}

	var manifest struct {
		Plugins []Descriptor `mapstructure:"plugins"`
	}
	if err := v.Unmarshal(&manifest); err != nil {
		return nil, fmt.Errorf("plugin: decode manifest %s: %w", path, err)
	}

	for i, desc := range manifest.Plugins {
		if err := desc.Validate(); err != nil {
			return nil, fmt.Errorf("plugin: manifest %s entry %d (%s): %w", path, i, desc.Name, err)
		}
	}
	return manifest.Plugins, nil
}
