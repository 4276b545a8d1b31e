package nlmsg

import (
	"log/slog"
	"os"
	"path/filepath"
)

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelError,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

// rawMessage builds a message by hand with the declared length set to the
// actual size of the payload plus the header.
func rawMessage(typ, flags uint16, seq, port uint32, payload []byte) []byte {
	b := make([]byte, HeaderLen+len(payload))
	Header{
		Length:   uint32(len(b)),
		Type:     typ,
		Flags:    flags,
		Sequence: seq,
		PortID:   port,
	}.Put(b)
	copy(b[HeaderLen:], payload)
	return b
}
