package genl

import (
	"github.com/goccy/go-yaml"
	"github.com/scitags/genetlinkd/nlmsg"
)

type Config struct {
	Log bool `yaml:"log"`

	// ReplyBufferSize bounds doit replies.
	ReplyBufferSize int `yaml:"replyBufferSize"`

	// DumpBufferSize bounds each datagram of a dump.
	DumpBufferSize int `yaml:"dumpBufferSize"`

	// Permit is consulted before running operations flagged with
	// AdminPerm. A nil Permit lets everything through.
	Permit func(req *Request) bool `yaml:"-"`
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		Log:             true,
		ReplyBufferSize: nlmsg.DefaultBufferSize,
		DumpBufferSize:  64 * 1024,
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)

	return nil
}
