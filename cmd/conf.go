package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/scitags/genetlinkd/api"
	"github.com/scitags/genetlinkd/families/ctrl"
	"github.com/scitags/genetlinkd/families/echo"
	"github.com/scitags/genetlinkd/genl"
	"github.com/scitags/genetlinkd/pipe"
	"github.com/scitags/genetlinkd/transport"
)

const schemaURL = "https://github.com/scitags/genetlinkd/conf.schema.json"

//go:embed schema.json
var confSchema []byte

type Config struct {
	Transport  *transport.Config `yaml:"transport"`
	Dispatcher *genl.Config      `yaml:"dispatcher"`
	Families   *FamiliesConfig   `yaml:"families"`
	Services   *ServicesConfig   `yaml:"services"`
}

// FamiliesConfig configures the built-in families. The controller is
// always registered; the echo family only when configured.
type FamiliesConfig struct {
	Ctrl *ctrl.Config `yaml:"nlctrl"`
	Echo *echo.Config `yaml:"echo"`
}

type ServicesConfig struct {
	Api *api.Config  `yaml:"api"`
	Np  *pipe.Config `yaml:"namedPipe"`
}

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

// seed runs u's defaults.
func seed(u yaml.BytesUnmarshaler) {
	// Unmarshalling an empty mapping can't fail
	_ = u.UnmarshalYAML([]byte("{}"))
}

// fill supplies the sections the core can't run without.
func (c *Config) fill() {
	if c.Transport == nil {
		c.Transport = &transport.Config{}
		seed(c.Transport)
	}

	if c.Dispatcher == nil {
		c.Dispatcher = &genl.Config{}
		seed(c.Dispatcher)
	}

	if c.Families == nil {
		c.Families = &FamiliesConfig{}
	}

	if c.Families.Ctrl == nil {
		c.Families.Ctrl = &ctrl.Config{}
		seed(c.Families.Ctrl)
	}

	if c.Services == nil {
		c.Services = &ServicesConfig{}
	}
}

func DefaultConf() *Config {
	conf := &Config{}
	conf.fill()
	return conf
}

func validateConf(raw []byte) error {
	c := jsonschema.NewCompiler()

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(confSchema))
	if err != nil {
		return fmt.Errorf("error unmarshalling the schema: %w", err)
	}

	if err := c.AddResource(schemaURL, doc); err != nil {
		return fmt.Errorf("error adding the schema: %w", err)
	}

	sch, err := c.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("error compiling the schema: %w", err)
	}

	j, err := yaml.YAMLToJSON(raw)
	if err != nil {
		return fmt.Errorf("error converting the configuration to JSON: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(j))
	if err != nil {
		return fmt.Errorf("error unmarshalling the configuration: %w", err)
	}

	return sch.Validate(inst)
}

func ReadConf(path string) (*Config, error) {
	r, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the configuration file: %w", err)
	}

	conf := Config{}

	// An empty file is as good as no file at all
	if len(bytes.TrimSpace(r)) == 0 {
		conf.fill()
		return &conf, nil
	}

	if err := validateConf(r); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := yaml.Unmarshal(r, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}

	conf.fill()

	return &conf, nil
}
