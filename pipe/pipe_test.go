package pipe

import (
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/scitags/genetlinkd/nlmsg"
	"github.com/scitags/genetlinkd/transport"
	"golang.org/x/sys/unix"
)

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Remove the directory from the source's filename.
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

func encode(t *testing.T, h nlmsg.Header) string {
	t.Helper()

	b, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("error marshalling header: %v", err)
	}
	return hex.EncodeToString(b)
}

// setup returns an initialised injector whose loopback hands every request
// to seen and rejects the ones with type 0x20.
func setup(t *testing.T) (*Injector, chan nlmsg.Header) {
	t.Helper()

	seen := make(chan nlmsg.Header, 16)

	l := transport.NewLoopback(&transport.Config{QueueLength: 16})
	l.RegisterOrReplaceHandler(nlmsg.ProtoGeneric, func(data []byte, sock transport.Socket) int {
		h, err := nlmsg.ParseHeader(data)
		if err != nil {
			return int(unix.EINVAL)
		}
		seen <- h
		if h.Type == 0x20 {
			return int(unix.EOPNOTSUPP)
		}
		return 0
	})

	in := New(&Config{
		Log:        true,
		MaxReaders: 5,
		BuffSize:   1000,
		PipePath:   filepath.Join(t.TempDir(), "np"),
	}, l)
	if err := in.Init(); err != nil {
		t.Fatalf("error initialising the injector: %v", err)
	}
	t.Cleanup(func() { in.Cleanup() })

	return in, seen
}

func TestInject(t *testing.T) {
	in, _ := setup(t)

	ack := nlmsg.Header{Length: 16, Type: 0x21, Flags: nlmsg.FlagRequest | nlmsg.FlagAck, Sequence: 1}
	fail := nlmsg.Header{Length: 16, Type: 0x20, Flags: nlmsg.FlagRequest, Sequence: 2}
	quiet := nlmsg.Header{Length: 16, Type: 0x21, Flags: nlmsg.FlagRequest, Sequence: 3}

	tests := []struct {
		name  string
		line  string
		codes []int32
		err   bool
	}{
		{"blank", "   ", nil, false},
		{"comment", "# nothing to see here", nil, false},
		{"ack", encode(t, ack), []int32{0}, false},
		{"error", encode(t, fail), []int32{-int32(unix.EOPNOTSUPP)}, false},
		{"noReply", encode(t, quiet), nil, false},
		{"spaced", encode(t, ack)[:8] + " " + encode(t, ack)[8:], []int32{0}, false},
		{"badHex", "zz", nil, true},
	}

	for _, test := range tests {
		replies, err := in.Inject(test.line)
		if (err != nil) != test.err {
			t.Errorf("%q: got err %v, want err %t", test.name, err, test.err)
			continue
		}

		var codes []int32
		for _, m := range replies {
			if m.Header.Type != nlmsg.TypeError {
				t.Errorf("%q: got reply type %d, want %d", test.name, m.Header.Type, nlmsg.TypeError)
				continue
			}
			ep, err := nlmsg.ParseErrorPayload(m.Data)
			if err != nil {
				t.Errorf("%q: error parsing error payload: %v", test.name, err)
				continue
			}
			codes = append(codes, ep.Code)
		}

		if diff := cmp.Diff(test.codes, codes); diff != "" {
			t.Errorf("%q: codes mismatch (-want +got):\n%s", test.name, diff)
		}
	}
}

func TestRun(t *testing.T) {
	in, seen := setup(t)

	done := make(chan struct{})
	defer close(done)
	go in.Run(done)

	// Give the injector a bit of time to catch up and open the pipe
	time.Sleep(1 * time.Second)

	pipe, err := os.OpenFile(in.PipePath, os.O_WRONLY, os.ModeNamedPipe)
	if err != nil {
		t.Fatalf("error opening the pipe: %v", err)
	}
	defer pipe.Close()

	tests := []nlmsg.Header{
		{Length: 16, Type: 0x21, Flags: nlmsg.FlagRequest | nlmsg.FlagAck, Sequence: 10},
		{Length: 16, Type: 0x22, Flags: nlmsg.FlagRequest, Sequence: 11},
	}

	for _, test := range tests {
		n, err := pipe.Write([]byte(encode(t, test) + "\n"))
		t.Logf("wrote %d bytes to the pipe", n)
		if err != nil {
			t.Errorf("error writing to the pipe: %v", err)
			continue
		}

		select {
		case h := <-seen:
			if diff := cmp.Diff(test, h); diff != "" {
				t.Errorf("%d: header mismatch (-want +got):\n%s", test.Sequence, diff)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%d: timed out waiting for the request", test.Sequence)
		}
	}

	// A line split across two writes is only injected once it's complete.
	split := nlmsg.Header{Length: 16, Type: 0x23, Flags: nlmsg.FlagRequest, Sequence: 12}
	line := encode(t, split) + "\n"
	for _, chunk := range []string{line[:10], line[10:]} {
		if _, err := pipe.Write([]byte(chunk)); err != nil {
			t.Fatalf("error writing to the pipe: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	select {
	case h := <-seen:
		if diff := cmp.Diff(split, h); diff != "" {
			t.Errorf("split line: header mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("split line: timed out waiting for the request")
	}
}

func TestLines(t *testing.T) {
	in := &Injector{}

	tests := []struct {
		chunk string
		want  []string
	}{
		{chunk: "0a0b", want: nil},
		{chunk: "0c\n0d", want: []string{"0a0b0c"}},
		{chunk: "0e\n# hi\n\n", want: []string{"0d0e", "# hi", ""}},
		{chunk: "\n", want: []string{""}},
		{chunk: "1f", want: nil},
	}

	for i, test := range tests {
		if diff := cmp.Diff(test.want, in.lines([]byte(test.chunk))); diff != "" {
			t.Errorf("%d: lines mismatch (-want +got):\n%s", i, diff)
		}
	}

	if got := string(in.partial); got != "1f" {
		t.Errorf("got partial line %q, want %q", got, "1f")
	}
}
