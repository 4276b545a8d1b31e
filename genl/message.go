package genl

import (
	"errors"

	"github.com/scitags/genetlinkd/nlmsg"
)

// Message is a generic netlink message under construction within a
// nlmsg.Buffer. Its length is only set once End is called: a message that
// is never ended must not be handed to a transport.
type Message struct {
	buf *nlmsg.Buffer

	start    int
	fixedLen int
	length   int

	// spill makes room in buf when a write doesn't fit. It may move the
	// message, updating start.
	spill func(m *Message) error
}

// BeginMessage appends the message header, the generic header and room for
// the family specific header to buf. The message is addressed to portID
// and typed after the family; the generic header carries cmd and the
// family's version. Whatever is written next through the returned Message
// lands right after the fixed header.
func BeginMessage(buf *nlmsg.Buffer, portID, seq uint32, f *Family, flags uint16, cmd uint8) (*Message, error) {
	fixedLen := int(f.HeaderSize)

	start, err := buf.Grow(nlmsg.HeaderLen + nlmsg.GenericHeaderLen + fixedLen)
	if err != nil {
		return nil, err
	}

	b := buf.Bytes()[start:]

	nlmsg.Header{
		Type:     f.ID,
		Flags:    flags,
		Sequence: seq,
		PortID:   portID,
	}.Put(b)

	nlmsg.GenericHeader{
		Command: cmd,
		Version: f.Version,
	}.Put(b[nlmsg.HeaderLen:])

	return &Message{buf: buf, start: start, fixedLen: fixedLen}, nil
}

// FixedHeader returns the zeroed room reserved for the family specific
// header. The slice is only valid until the next write.
func (m *Message) FixedHeader() []byte {
	off := m.start + nlmsg.HeaderLen + nlmsg.GenericHeaderLen
	return m.buf.Bytes()[off : off+m.fixedLen]
}

// put runs write and, when the buffer runs out of room, gives spill a
// chance to make some before running it once more.
func (m *Message) put(write func() error) error {
	err := write()
	if m.spill == nil || !errors.Is(err, nlmsg.ErrNoBufferSpace) {
		return err
	}

	if err := m.spill(m); err != nil {
		return err
	}

	return write()
}

func (m *Message) PutAttribute(typ uint16, data []byte) error {
	return m.put(func() error { return m.buf.PutAttribute(typ, data) })
}

func (m *Message) PutUint8(typ uint16, v uint8) error {
	return m.put(func() error { return m.buf.PutUint8(typ, v) })
}

func (m *Message) PutUint16(typ uint16, v uint16) error {
	return m.put(func() error { return m.buf.PutUint16(typ, v) })
}

func (m *Message) PutUint32(typ uint16, v uint32) error {
	return m.put(func() error { return m.buf.PutUint32(typ, v) })
}

func (m *Message) PutUint64(typ uint16, v uint64) error {
	return m.put(func() error { return m.buf.PutUint64(typ, v) })
}

func (m *Message) PutString(typ uint16, s string) error {
	return m.put(func() error { return m.buf.PutString(typ, s) })
}

func (m *Message) PutFlag(typ uint16) error {
	return m.put(func() error { return m.buf.PutFlag(typ) })
}

// NestStart opens a nested attribute. The returned offset is relative to
// the start of the message and must be handed over to NestEnd.
func (m *Message) NestStart(typ uint16) (int, error) {
	var off int
	err := m.put(func() (err error) {
		off, err = m.buf.NestStart(typ)
		return err
	})
	if err != nil {
		return 0, err
	}
	return off - m.start, nil
}

func (m *Message) NestEnd(start int) error {
	return m.buf.NestEnd(m.start + start)
}

// End sets the message length to cover everything written so far.
func (m *Message) End() error {
	l, err := m.buf.EndMessage(m.start)
	if err != nil {
		return err
	}

	m.length = int(l)

	return nil
}

func (m *Message) Ended() bool {
	return m.length != 0
}

// Len is the current length of the message, headers included.
func (m *Message) Len() int {
	if m.Ended() {
		return m.length
	}
	return m.buf.Len() - m.start
}

// Bytes returns the message as it stands. The slice is only valid until
// the next write to the underlying buffer.
func (m *Message) Bytes() []byte {
	return m.buf.Bytes()[m.start : m.start+m.Len()]
}
