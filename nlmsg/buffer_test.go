package nlmsg

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/netlink"
)

func TestBufferMessage(t *testing.T) {
	buf := NewBuffer(0)

	start, err := buf.PutHeader(Header{Type: 0x13, Flags: FlagRequest, Sequence: 5, PortID: 9})
	if err != nil {
		t.Fatalf("error writing header: %v", err)
	}

	if err := buf.PutString(1, "abc"); err != nil {
		t.Fatalf("error writing attribute: %v", err)
	}

	nest, err := buf.NestStart(2)
	if err != nil {
		t.Fatalf("error opening nest: %v", err)
	}
	if err := buf.PutUint16(1, 10); err != nil {
		t.Fatalf("error writing attribute: %v", err)
	}
	if err := buf.NestEnd(nest); err != nil {
		t.Fatalf("error closing nest: %v", err)
	}

	l, err := buf.EndMessage(start)
	if err != nil {
		t.Fatalf("error ending message: %v", err)
	}

	// Header + "abc\0" attribute + nest holding a padded uint16.
	if want := uint32(16 + 8 + 4 + 8); l != want {
		t.Errorf("got length %d, want %d", l, want)
	}

	var nm netlink.Message
	if err := nm.UnmarshalBinary(buf.Bytes()); err != nil {
		t.Fatalf("netlink rejected the message: %v", err)
	}

	ad, err := netlink.NewAttributeDecoder(nm.Data)
	if err != nil {
		t.Fatalf("error creating decoder: %v", err)
	}

	var (
		name  string
		inner uint16
	)
	for ad.Next() {
		switch ad.Type() {
		case 1:
			name = ad.String()
		case 2:
			ad.Nested(func(nad *netlink.AttributeDecoder) error {
				for nad.Next() {
					inner = nad.Uint16()
				}
				return nil
			})
		}
	}
	if err := ad.Err(); err != nil {
		t.Fatalf("error decoding attributes: %v", err)
	}

	if name != "abc" || inner != 10 {
		t.Errorf("got (%q, %d), want (\"abc\", 10)", name, inner)
	}
}

func TestBufferBounded(t *testing.T) {
	buf := NewBuffer(HeaderLen + 8)

	if _, err := buf.PutHeader(Header{}); err != nil {
		t.Fatalf("error writing header: %v", err)
	}
	if err := buf.PutUint32(1, 1); err != nil {
		t.Fatalf("error writing attribute: %v", err)
	}

	if err := buf.PutFlag(2); !errors.Is(err, ErrNoBufferSpace) {
		t.Errorf("got error %v, want %v", err, ErrNoBufferSpace)
	}
	if got, want := buf.Len(), HeaderLen+8; got != want {
		t.Errorf("failed write changed the length: got %d, want %d", got, want)
	}

	buf.Reset()
	if buf.Len() != 0 {
		t.Errorf("got length %d after reset, want 0", buf.Len())
	}
}

func TestBufferGrowAligned(t *testing.T) {
	buf := NewBuffer(0)

	for _, n := range []int{1, 2, 5} {
		if _, err := buf.Grow(n); err != nil {
			t.Fatalf("error growing by %d: %v", n, err)
		}
	}

	if got, want := buf.Len(), 4+4+8; got != want {
		t.Errorf("got length %d, want %d", got, want)
	}
}

func TestBufferAttributeOverflow(t *testing.T) {
	buf := NewBuffer(1 << 17)

	err := buf.PutString(1, strings.Repeat("x", 1<<16))
	if !errors.Is(err, ErrAttributeOverflow) {
		t.Errorf("got error %v, want %v", err, ErrAttributeOverflow)
	}
}

func TestBufferErrorAndDone(t *testing.T) {
	req := Header{Length: 20, Type: 0x13, Flags: FlagRequest | FlagAck, Sequence: 3, PortID: 8}

	buf := NewBuffer(0)
	if err := buf.PutError(Header{Sequence: 3, PortID: 8}, ErrorPayload{Code: -2, Request: req}); err != nil {
		t.Fatalf("error writing error message: %v", err)
	}
	if err := buf.PutDone(Header{Sequence: 3, PortID: 8}, 0); err != nil {
		t.Fatalf("error writing done message: %v", err)
	}

	msgs, err := ParseMessages(buf.Bytes())
	if err != nil {
		t.Fatalf("error parsing messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}

	if msgs[0].Header.Type != TypeError {
		t.Errorf("got type %d, want %d", msgs[0].Header.Type, TypeError)
	}
	ep, err := ParseErrorPayload(msgs[0].Data)
	if err != nil {
		t.Fatalf("error parsing error payload: %v", err)
	}
	if want := (ErrorPayload{Code: -2, Request: req}); !cmp.Equal(ep, want) {
		t.Errorf("error payload mismatch: %s", cmp.Diff(want, ep))
	}

	done := msgs[1].Header
	if done.Type != TypeDone || done.Flags&FlagMulti == 0 || len(msgs[1].Data) != 4 {
		t.Errorf("got done message %v with %d bytes, want a multi-part done with 4 bytes", done, len(msgs[1].Data))
	}
}
