package genl

import (
	"fmt"

	"github.com/scitags/genetlinkd/nlmsg"
	"github.com/scitags/genetlinkd/transport"
)

// Request is a validated inbound message together with the family and
// operation it resolved to.
type Request struct {
	Header    nlmsg.Header
	Generic   nlmsg.GenericHeader
	Family    *Family
	Operation *Operation

	// Socket is the sender: replies are sent through it.
	Socket transport.Socket

	// payload follows the generic header.
	payload []byte

	replySize int
	replied   bool
}

// Payload is everything following the generic header: the fixed header
// and the attributes.
func (r *Request) Payload() []byte {
	return r.payload
}

func (r *Request) FixedHeader() []byte {
	return r.payload[:r.Family.HeaderSize]
}

// Attributes iterates over the attributes following the fixed header.
func (r *Request) Attributes() *nlmsg.AttributeIterator {
	off := nlmsg.Align(int(r.Family.HeaderSize))
	if off > len(r.payload) {
		off = len(r.payload)
	}
	return nlmsg.Attributes(r.payload[off:])
}

// PortID returns the port of the sender.
func (r *Request) PortID() uint32 {
	if r.Socket != nil {
		return r.Socket.PortID()
	}
	return r.Header.PortID
}

// NewReply begins a reply to r in a fresh buffer.
func (r *Request) NewReply(cmd uint8) (*Message, error) {
	return BeginMessage(nlmsg.NewBuffer(r.replySize), r.PortID(), r.Header.Sequence, r.Family, 0, cmd)
}

// Send hands an ended message over to the sender. A request is answered at
// most once; dumps stream their replies through a Dump instead.
func (r *Request) Send(m *Message) error {
	if !m.Ended() {
		return ErrUnterminated
	}

	if r.replied {
		return fmt.Errorf("%w to port %d", ErrAlreadyReplied, r.PortID())
	}

	if r.Socket == nil {
		return fmt.Errorf("no socket to reply to port %d", r.Header.PortID)
	}

	if err := r.Socket.Send(m.Bytes()); err != nil {
		return err
	}
	r.replied = true

	return nil
}
