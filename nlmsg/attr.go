package nlmsg

import (
	"bytes"
	"fmt"
)

// Attribute is a single decoded TLV. Type has the nested and byte order
// flags stripped; they are reported separately.
type Attribute struct {
	Type         uint16
	Nested       bool
	NetByteOrder bool

	// Data aliases the buffer the attribute was decoded from and excludes
	// both the header and the trailing padding.
	Data []byte
}

// AttributeIterator lazily decodes a sequence of attributes. It can only
// be walked once.
type AttributeIterator struct {
	b   []byte
	cur Attribute
	err error
}

func Attributes(b []byte) *AttributeIterator {
	return &AttributeIterator{b: b}
}

// Next decodes the next attribute. Iteration stops at the first attribute
// whose declared length is shorter than its header or overruns the
// remaining bytes; Err then wraps ErrTruncatedAttribute.
func (it *AttributeIterator) Next() bool {
	if it.err != nil || len(it.b) == 0 {
		return false
	}

	if len(it.b) < AttributeHeaderLen {
		it.err = fmt.Errorf("%w: %d trailing bytes", ErrTruncatedAttribute, len(it.b))
		return false
	}

	l := int(native.Uint16(it.b[0:2]))
	t := native.Uint16(it.b[2:4])

	if l < AttributeHeaderLen || l > len(it.b) {
		it.err = fmt.Errorf("%w: declared length %d with %d bytes left", ErrTruncatedAttribute, l, len(it.b))
		return false
	}

	it.cur = Attribute{
		Type:         t & AttrTypeMask,
		Nested:       t&AttrNested != 0,
		NetByteOrder: t&AttrNetByteOrder != 0,
		Data:         it.b[AttributeHeaderLen:l],
	}

	adv := Align(l)
	if adv > len(it.b) {
		adv = len(it.b)
	}
	it.b = it.b[adv:]

	return true
}

func (it *AttributeIterator) Attribute() Attribute {
	return it.cur
}

func (it *AttributeIterator) Err() error {
	return it.err
}

// ParseAttributes decodes every attribute in b.
func ParseAttributes(b []byte) ([]Attribute, error) {
	attrs := []Attribute{}

	it := Attributes(b)
	for it.Next() {
		attrs = append(attrs, it.Attribute())
	}

	if err := it.Err(); err != nil {
		return nil, err
	}

	return attrs, nil
}

// RawType rebuilds the on-the-wire type including its flags.
func (a Attribute) RawType() uint16 {
	t := a.Type
	if a.Nested {
		t |= AttrNested
	}
	if a.NetByteOrder {
		t |= AttrNetByteOrder
	}
	return t
}

// Attributes iterates over the attributes nested within a.
func (a Attribute) Attributes() *AttributeIterator {
	return Attributes(a.Data)
}

func (a Attribute) checkSize(want int) error {
	if len(a.Data) != want {
		return fmt.Errorf("%w: attribute %d holds %d bytes; want %d", ErrAttributeSize, a.Type, len(a.Data), want)
	}
	return nil
}

func (a Attribute) Uint8() (uint8, error) {
	if err := a.checkSize(1); err != nil {
		return 0, err
	}
	return a.Data[0], nil
}

// Uint16 decodes a host byte order value. Use NetUint16 for attributes
// flagged with AttrNetByteOrder.
func (a Attribute) Uint16() (uint16, error) {
	if err := a.checkSize(2); err != nil {
		return 0, err
	}
	return native.Uint16(a.Data), nil
}

func (a Attribute) Uint32() (uint32, error) {
	if err := a.checkSize(4); err != nil {
		return 0, err
	}
	return native.Uint32(a.Data), nil
}

func (a Attribute) Uint64() (uint64, error) {
	if err := a.checkSize(8); err != nil {
		return 0, err
	}
	return native.Uint64(a.Data), nil
}

func (a Attribute) NetUint16() (uint16, error) {
	if err := a.checkSize(2); err != nil {
		return 0, err
	}
	return networkOrder.Uint16(a.Data), nil
}

func (a Attribute) NetUint32() (uint32, error) {
	if err := a.checkSize(4); err != nil {
		return 0, err
	}
	return networkOrder.Uint32(a.Data), nil
}

// String drops everything from the first NUL onwards.
func (a Attribute) String() string {
	if i := bytes.IndexByte(a.Data, 0); i >= 0 {
		return string(a.Data[:i])
	}
	return string(a.Data)
}
