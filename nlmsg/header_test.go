package nlmsg

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/netlink"
)

func TestAlign(t *testing.T) {
	tests := map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8, 16: 16, 17: 20}
	for in, want := range tests {
		if got := Align(in); got != want {
			t.Errorf("Align(%d): got %d, want %d", in, got, want)
		}
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    Header
		wantErr error
	}{
		{
			name: "bareHeader",
			in:   rawMessage(MinType, FlagRequest|FlagAck, 1, 2, nil),
			want: Header{Length: 16, Type: MinType, Flags: FlagRequest | FlagAck, Sequence: 1, PortID: 2},
		},
		{
			name: "trailingBytes",
			in:   append(rawMessage(0x20, 0, 7, 0, []byte{1, 2, 3, 4}), 0xff, 0xff),
			want: Header{Length: 20, Type: 0x20, Sequence: 7},
		},
		{
			name:    "short",
			in:      make([]byte, HeaderLen-1),
			wantErr: ErrMalformed,
		},
		{
			name: "lengthBelowHeader",
			in: func() []byte {
				b := rawMessage(MinType, 0, 0, 0, nil)
				native.PutUint32(b, 15)
				return b
			}(),
			wantErr: ErrMalformed,
		},
		{
			name: "lengthPastBuffer",
			in: func() []byte {
				b := rawMessage(MinType, 0, 0, 0, nil)
				native.PutUint32(b, 32)
				return b
			}(),
			wantErr: ErrMalformed,
		},
	}

	for _, tc := range tests {
		got, err := ParseHeader(tc.in)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%q: got error %v, want %v", tc.name, err, tc.wantErr)
			continue
		}
		if !cmp.Equal(got, tc.want) {
			t.Errorf("%q: %s", tc.name, cmp.Diff(tc.want, got))
		}
	}
}

func TestHeaderMatchesNetlink(t *testing.T) {
	nm := netlink.Message{
		Header: netlink.Header{
			Length:   20,
			Type:     netlink.HeaderType(0x1a),
			Flags:    netlink.Request | netlink.Dump,
			Sequence: 42,
			PID:      1234,
		},
		Data: []byte{0xde, 0xad, 0xbe, 0xef},
	}

	b, err := nm.MarshalBinary()
	if err != nil {
		t.Fatalf("error marshalling netlink message: %v", err)
	}

	h, err := ParseHeader(b)
	if err != nil {
		t.Fatalf("error parsing header: %v", err)
	}

	want := Header{Length: 20, Type: 0x1a, Flags: FlagRequest | FlagDump, Sequence: 42, PortID: 1234}
	if !cmp.Equal(h, want) {
		t.Errorf("header mismatch: %s", cmp.Diff(want, h))
	}

	if !h.Dump() {
		t.Errorf("got Dump() == false, want true")
	}

	ours, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("error marshalling header: %v", err)
	}
	if !cmp.Equal(ours, b[:HeaderLen]) {
		t.Errorf("marshalled header mismatch: %s", cmp.Diff(b[:HeaderLen], ours))
	}
}

func TestGenericHeader(t *testing.T) {
	b := make([]byte, GenericHeaderLen)
	want := GenericHeader{Command: 3, Version: 2}
	want.Put(b)

	if !cmp.Equal(b, []byte{3, 2, 0, 0}) {
		t.Errorf("got %v, want [3 2 0 0]", b)
	}

	got, err := ParseGenericHeader(b)
	if err != nil {
		t.Fatalf("error parsing generic header: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := ParseGenericHeader(b[:3]); !errors.Is(err, ErrMalformed) {
		t.Errorf("got error %v, want %v", err, ErrMalformed)
	}
}

func TestErrorPayload(t *testing.T) {
	want := ErrorPayload{
		Code:    -95,
		Request: Header{Length: 36, Type: 0x13, Flags: FlagRequest, Sequence: 9, PortID: 3},
	}

	b := make([]byte, ErrorPayloadLen)
	want.Put(b)

	got, err := ParseErrorPayload(b)
	if err != nil {
		t.Fatalf("error parsing error payload: %v", err)
	}
	if !cmp.Equal(got, want) {
		t.Errorf("error payload mismatch: %s", cmp.Diff(want, got))
	}
}
