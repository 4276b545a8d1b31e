package transport

import (
	"errors"
	"fmt"

	"github.com/mdlayher/netlink"
	"github.com/scitags/genetlinkd/nlmsg"
)

// nlSocket lets an Endpoint back a netlink.Conn so that regular netlink
// clients can talk to the loopback.
type nlSocket struct {
	e *Endpoint
}

var _ netlink.Socket = &nlSocket{}

func (s *nlSocket) Close() error {
	return s.e.Close()
}

func (s *nlSocket) Send(m netlink.Message) error {
	b, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	return s.e.Write(b)
}

func (s *nlSocket) SendMessages(ms []netlink.Message) error {
	var batch []byte
	for _, m := range ms {
		b, err := m.MarshalBinary()
		if err != nil {
			return err
		}
		batch = append(batch, b...)
	}
	return s.e.Write(batch)
}

// Receive returns the messages within the oldest datagram. An empty queue
// yields no messages.
func (s *nlSocket) Receive() ([]netlink.Message, error) {
	b, err := s.e.Read()
	if errors.Is(err, ErrNoMessages) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := nlmsg.ParseMessages(b)
	if err != nil {
		return nil, fmt.Errorf("error parsing datagram for port %d: %w", s.e.port, err)
	}

	msgs := make([]netlink.Message, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, netlink.Message{
			Header: netlink.Header{
				Length:   m.Header.Length,
				Type:     netlink.HeaderType(m.Header.Type),
				Flags:    netlink.HeaderFlags(m.Header.Flags),
				Sequence: m.Header.Sequence,
				PID:      m.Header.PortID,
			},
			Data: m.Data,
		})
	}

	return msgs, nil
}

// Conn wraps e into a netlink.Conn. Closing the Conn closes e.
func (e *Endpoint) Conn() *netlink.Conn {
	return netlink.NewConn(&nlSocket{e: e}, e.port)
}

// Dial opens a new endpoint on proto and wraps it into a netlink.Conn.
func (l *Loopback) Dial(proto int) (*netlink.Conn, error) {
	e, err := l.Open(proto)
	if err != nil {
		return nil, err
	}
	return e.Conn(), nil
}
