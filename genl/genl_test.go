package genl

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/scitags/genetlinkd/nlmsg"
)

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelError,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

// capture records every datagram sent to it.
type capture struct {
	port uint32
	sent [][]byte
}

func (c *capture) PortID() uint32 {
	return c.port
}

func (c *capture) Send(b []byte) error {
	c.sent = append(c.sent, append([]byte(nil), b...))
	return nil
}

// messages parses every captured datagram.
func (c *capture) messages(t *testing.T) []nlmsg.Message {
	t.Helper()

	var msgs []nlmsg.Message
	for _, b := range c.sent {
		ms, err := nlmsg.ParseMessages(b)
		if err != nil {
			t.Fatalf("error parsing a reply: %v", err)
		}
		msgs = append(msgs, ms...)
	}

	return msgs
}

// request builds a generic netlink request for family id carrying cmd and
// the given fixed header and attribute bytes.
func request(id uint16, flags uint16, seq uint32, cmd uint8, payload []byte) []byte {
	b := make([]byte, nlmsg.HeaderLen+nlmsg.GenericHeaderLen+len(payload))
	nlmsg.Header{
		Length:   uint32(len(b)),
		Type:     id,
		Flags:    flags,
		Sequence: seq,
		PortID:   77,
	}.Put(b)
	nlmsg.GenericHeader{Command: cmd, Version: 1}.Put(b[nlmsg.HeaderLen:])
	copy(b[nlmsg.HeaderLen+nlmsg.GenericHeaderLen:], payload)
	return b
}

func nop(*Request) error {
	return nil
}
