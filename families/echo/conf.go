package echo

import (
	"github.com/goccy/go-yaml"
)

type Config struct {
	Log     bool   `yaml:"log"`
	Name    string `yaml:"name"`
	ID      uint16 `yaml:"id"`
	Version uint8  `yaml:"version"`
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		Log:     true,
		Name:    DefaultName,
		Version: 1,
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)

	return nil
}
