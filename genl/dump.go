package genl

import (
	"errors"
	"fmt"

	"github.com/scitags/genetlinkd/nlmsg"
)

// Dump collects the messages produced by a dumpit handler. Messages are
// batched into datagrams of at most the configured dump buffer size; a
// full datagram is sent as soon as the message being built doesn't fit,
// and that message carries on at the start of the next datagram. Only a
// single message outgrowing the buffer fails the dump.
type Dump struct {
	req *Request
	buf *nlmsg.Buffer
	cur *Message

	n    int
	sent int
}

func newDump(req *Request, size int) *Dump {
	return &Dump{req: req, buf: nlmsg.NewBuffer(size)}
}

// NewMessage begins the next message of the dump. The previous one must
// have been ended already.
func (d *Dump) NewMessage(cmd uint8) (*Message, error) {
	if d.cur != nil && !d.cur.Ended() {
		return nil, ErrUnterminated
	}

	m, err := BeginMessage(d.buf, d.req.PortID(), d.req.Header.Sequence, d.req.Family, nlmsg.FlagMulti, cmd)
	if errors.Is(err, nlmsg.ErrNoBufferSpace) && d.buf.Len() > 0 {
		if err := d.flush(); err != nil {
			return nil, err
		}
		m, err = BeginMessage(d.buf, d.req.PortID(), d.req.Header.Sequence, d.req.Family, nlmsg.FlagMulti, cmd)
	}
	if err != nil {
		return nil, err
	}

	m.spill = d.spill
	d.cur = m
	d.n++

	return m, nil
}

// Len returns the number of messages begun so far.
func (d *Dump) Len() int {
	return d.n
}

// spill sends every message preceding m and moves m to the start of the
// emptied buffer.
func (d *Dump) spill(m *Message) error {
	if m.start == 0 {
		return fmt.Errorf("%w: message outgrows the %d byte dump buffer", nlmsg.ErrNoBufferSpace, d.buf.Cap())
	}

	pending := append([]byte(nil), d.buf.Bytes()[m.start:]...)

	d.buf.Truncate(m.start)
	if err := d.flush(); err != nil {
		return err
	}

	off, err := d.buf.Grow(len(pending))
	if err != nil {
		return err
	}
	copy(d.buf.Bytes()[off:], pending)
	m.start = off

	return nil
}

func (d *Dump) flush() error {
	if d.buf.Len() == 0 {
		return nil
	}

	if err := d.req.Socket.Send(d.buf.Bytes()); err != nil {
		return err
	}

	d.sent++
	d.buf.Reset()

	return nil
}

// close terminates the stream with a done message.
func (d *Dump) close() error {
	if d.cur != nil && !d.cur.Ended() {
		return ErrUnterminated
	}

	h := nlmsg.Header{Sequence: d.req.Header.Sequence, PortID: d.req.PortID()}

	err := d.buf.PutDone(h, 0)
	if errors.Is(err, nlmsg.ErrNoBufferSpace) && d.buf.Len() > 0 {
		if err := d.flush(); err != nil {
			return err
		}
		err = d.buf.PutDone(h, 0)
	}
	if err != nil {
		return err
	}

	return d.flush()
}
