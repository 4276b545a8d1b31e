package nlmsg

import (
	"fmt"
	"math"
)

// DefaultBufferSize matches the kernel's NLMSG_GOODSIZE on most systems.
const DefaultBufferSize = 8192

// Buffer is a bounded, append-only byte buffer holding one or more
// outbound messages. Every write is padded to Alignment so that whatever
// comes next starts aligned.
//
// Slices returned by Bytes are only valid until the next write.
type Buffer struct {
	b   []byte
	max int
}

// NewBuffer returns a buffer that refuses to grow past max bytes. A
// non-positive max means DefaultBufferSize.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &Buffer{b: make([]byte, 0, min(max, DefaultBufferSize)), max: max}
}

func (b *Buffer) Len() int {
	return len(b.b)
}

func (b *Buffer) Cap() int {
	return b.max
}

func (b *Buffer) Bytes() []byte {
	return b.b
}

func (b *Buffer) Reset() {
	b.b = b.b[:0]
}

// Truncate drops everything past the first n bytes.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > len(b.b) {
		panic(fmt.Sprintf("nlmsg: truncating %d byte buffer to %d bytes", len(b.b), n))
	}
	b.b = b.b[:n]
}

// Grow appends Align(n) zeroed bytes and returns the offset they start at.
func (b *Buffer) Grow(n int) (int, error) {
	n = Align(n)
	if n < 0 || len(b.b)+n > b.max {
		return 0, fmt.Errorf("%w: need %d bytes with %d of %d in use", ErrNoBufferSpace, n, len(b.b), b.max)
	}

	off := len(b.b)
	b.b = append(b.b, make([]byte, n)...)

	return off, nil
}

// PutHeader appends h and returns the offset it starts at. A zero length
// is left for EndMessage to fill in.
func (b *Buffer) PutHeader(h Header) (int, error) {
	off, err := b.Grow(HeaderLen)
	if err != nil {
		return 0, err
	}
	h.Put(b.b[off:])
	return off, nil
}

// EndMessage sets the length of the message starting at start so that it
// spans up to the current end of the buffer.
func (b *Buffer) EndMessage(start int) (uint32, error) {
	if start < 0 || start+HeaderLen > len(b.b) {
		return 0, fmt.Errorf("%w: no message header at offset %d", ErrMalformed, start)
	}

	l := uint32(len(b.b) - start)
	native.PutUint32(b.b[start:start+4], l)

	return l, nil
}

// PutError appends a complete TypeError message. Pass a zero code to
// acknowledge the request.
func (b *Buffer) PutError(h Header, e ErrorPayload) error {
	h.Type = TypeError
	h.Length = HeaderLen + ErrorPayloadLen

	off, err := b.Grow(int(h.Length))
	if err != nil {
		return err
	}

	h.Put(b.b[off:])
	e.Put(b.b[off+HeaderLen:])

	return nil
}

// PutDone appends the TypeDone message closing a multi-part reply. Its
// payload is the status of the dump.
func (b *Buffer) PutDone(h Header, code int32) error {
	h.Type = TypeDone
	h.Flags |= FlagMulti
	h.Length = HeaderLen + 4

	off, err := b.Grow(int(h.Length))
	if err != nil {
		return err
	}

	h.Put(b.b[off:])
	native.PutUint32(b.b[off+HeaderLen:], uint32(code))

	return nil
}

// PutAttribute appends a single attribute. The raw type is written as is:
// OR in AttrNested or AttrNetByteOrder when appropriate.
func (b *Buffer) PutAttribute(typ uint16, data []byte) error {
	l := AttributeHeaderLen + len(data)
	if l > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes for attribute %d", ErrAttributeOverflow, l, typ&AttrTypeMask)
	}

	off, err := b.Grow(l)
	if err != nil {
		return err
	}

	native.PutUint16(b.b[off:off+2], uint16(l))
	native.PutUint16(b.b[off+2:off+4], typ)
	copy(b.b[off+AttributeHeaderLen:], data)

	return nil
}

func (b *Buffer) PutUint8(typ uint16, v uint8) error {
	return b.PutAttribute(typ, []byte{v})
}

func (b *Buffer) PutUint16(typ uint16, v uint16) error {
	var d [2]byte
	native.PutUint16(d[:], v)
	return b.PutAttribute(typ, d[:])
}

func (b *Buffer) PutUint32(typ uint16, v uint32) error {
	var d [4]byte
	native.PutUint32(d[:], v)
	return b.PutAttribute(typ, d[:])
}

func (b *Buffer) PutUint64(typ uint16, v uint64) error {
	var d [8]byte
	native.PutUint64(d[:], v)
	return b.PutAttribute(typ, d[:])
}

// PutNetUint16 writes v in network byte order and flags the attribute.
func (b *Buffer) PutNetUint16(typ uint16, v uint16) error {
	var d [2]byte
	networkOrder.PutUint16(d[:], v)
	return b.PutAttribute(typ|AttrNetByteOrder, d[:])
}

func (b *Buffer) PutNetUint32(typ uint16, v uint32) error {
	var d [4]byte
	networkOrder.PutUint32(d[:], v)
	return b.PutAttribute(typ|AttrNetByteOrder, d[:])
}

// PutString writes s followed by a NUL byte like nla_put_string does.
func (b *Buffer) PutString(typ uint16, s string) error {
	d := make([]byte, len(s)+1)
	copy(d, s)
	return b.PutAttribute(typ, d)
}

// PutFlag writes an attribute without payload.
func (b *Buffer) PutFlag(typ uint16) error {
	return b.PutAttribute(typ, nil)
}

// NestStart opens a nested attribute and returns its offset, which must
// be handed over to NestEnd once the nested attributes have been written.
func (b *Buffer) NestStart(typ uint16) (int, error) {
	off, err := b.Grow(AttributeHeaderLen)
	if err != nil {
		return 0, err
	}
	native.PutUint16(b.b[off+2:off+4], typ|AttrNested)
	return off, nil
}

func (b *Buffer) NestEnd(start int) error {
	if start < 0 || start+AttributeHeaderLen > len(b.b) {
		return fmt.Errorf("%w: no nested attribute at offset %d", ErrTruncatedAttribute, start)
	}

	l := len(b.b) - start
	if l > math.MaxUint16 {
		return fmt.Errorf("%w: nested attribute spans %d bytes", ErrAttributeOverflow, l)
	}
	native.PutUint16(b.b[start:start+2], uint16(l))

	return nil
}
