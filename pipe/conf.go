package pipe

import "github.com/goccy/go-yaml"

type Config struct {
	Log        bool   `yaml:"log"`
	MaxReaders int    `yaml:"maxReaders"`
	BuffSize   int    `yaml:"buffSize"`
	PipePath   string `yaml:"pipePath"`
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		Log:        true,
		MaxReaders: 5,
		BuffSize:   16 * 1024,
		PipePath:   "genetlinkd.np",
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)

	return nil
}
