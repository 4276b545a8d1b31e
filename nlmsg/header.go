package nlmsg

import "fmt"

// Header mirrors struct nlmsghdr. Its memory layout is the wire layout.
type Header struct {
	// Length of the message including this header.
	Length uint32

	// Type is a family id for generic netlink traffic or one of the
	// reserved control types.
	Type uint16

	Flags    uint16
	Sequence uint32

	// PortID identifies the sending (or receiving) socket.
	PortID uint32
}

// ParseHeader decodes the header at the start of b. The declared length
// must cover at least the header itself and must not run past b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: got %d bytes; want at least %d", ErrMalformed, len(b), HeaderLen)
	}

	h := decodeHeader(b)

	if h.Length < uint32(Align(HeaderLen)) {
		return Header{}, fmt.Errorf("%w: declared length %d below header size", ErrMalformed, h.Length)
	}

	if uint64(h.Length) > uint64(len(b)) {
		return Header{}, fmt.Errorf("%w: declared length %d exceeds %d available bytes", ErrMalformed, h.Length, len(b))
	}

	return h, nil
}

// PeekHeader decodes the first HeaderLen bytes of b without checking the
// declared length. It's meant for reporting on messages ParseHeader
// rejected.
func PeekHeader(b []byte) (Header, bool) {
	if len(b) < HeaderLen {
		return Header{}, false
	}
	return decodeHeader(b), true
}

func decodeHeader(b []byte) Header {
	return Header{
		Length:   native.Uint32(b[0:4]),
		Type:     native.Uint16(b[4:6]),
		Flags:    native.Uint16(b[6:8]),
		Sequence: native.Uint32(b[8:12]),
		PortID:   native.Uint32(b[12:16]),
	}
}

// Put encodes h into the first HeaderLen bytes of b.
func (h Header) Put(b []byte) {
	_ = b[HeaderLen-1]
	native.PutUint32(b[0:4], h.Length)
	native.PutUint16(b[4:6], h.Type)
	native.PutUint16(b[6:8], h.Flags)
	native.PutUint32(b[8:12], h.Sequence)
	native.PutUint32(b[12:16], h.PortID)
}

func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderLen)
	h.Put(b)
	return b, nil
}

// Dump reports whether both bits of FlagDump are set.
func (h Header) Dump() bool {
	return h.Flags&FlagDump == FlagDump
}

func (h Header) String() string {
	return fmt.Sprintf("len=%d type=%#x flags=%#x seq=%d port=%d", h.Length, h.Type, h.Flags, h.Sequence, h.PortID)
}

// GenericHeader mirrors struct genlmsghdr.
type GenericHeader struct {
	Command  uint8
	Version  uint8
	Reserved uint16
}

func ParseGenericHeader(b []byte) (GenericHeader, error) {
	if len(b) < GenericHeaderLen {
		return GenericHeader{}, fmt.Errorf("%w: got %d bytes for the generic header; want %d", ErrMalformed, len(b), GenericHeaderLen)
	}

	return GenericHeader{
		Command:  b[0],
		Version:  b[1],
		Reserved: native.Uint16(b[2:4]),
	}, nil
}

func (g GenericHeader) Put(b []byte) {
	_ = b[GenericHeaderLen-1]
	b[0] = g.Command
	b[1] = g.Version
	native.PutUint16(b[2:4], g.Reserved)
}

// ErrorPayload mirrors struct nlmsgerr: the body of a TypeError message
// acknowledging (Code == 0) or rejecting a request. Code carries a negated
// errno just like the kernel does.
type ErrorPayload struct {
	Code    int32
	Request Header
}

func ParseErrorPayload(b []byte) (ErrorPayload, error) {
	if len(b) < ErrorPayloadLen {
		return ErrorPayload{}, fmt.Errorf("%w: got %d bytes for an error payload; want %d", ErrMalformed, len(b), ErrorPayloadLen)
	}

	// The embedded header is a copy of the request's: its length refers to
	// the original message, so don't bound it against b.
	return ErrorPayload{
		Code:    int32(native.Uint32(b[0:4])),
		Request: decodeHeader(b[4:]),
	}, nil
}

func (e ErrorPayload) Put(b []byte) {
	_ = b[ErrorPayloadLen-1]
	native.PutUint32(b[0:4], uint32(e.Code))
	e.Request.Put(b[4:])
}
