// Package pipe feeds messages written to a named pipe into the loopback
// transport. Each line holds a single hex encoded datagram; empty lines and
// lines starting with a '#' are ignored. Replies are logged.
package pipe

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/rjeczalik/notify"
	"github.com/scitags/genetlinkd/nlmsg"
	"github.com/scitags/genetlinkd/transport"
	"golang.org/x/sys/unix"
)

var logger = slog.New(slog.DiscardHandler)

type Injector struct {
	Config

	l *transport.Loopback
	e *transport.Endpoint

	// partial holds a line still waiting for its newline.
	partial []byte
}

func New(c *Config, l *transport.Loopback) *Injector {
	if c.Log {
		logger = slog.Default().With("t", "pipe")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Injector{Config: *c, l: l}
}

func (in *Injector) String() string {
	return "named pipe"
}

func (in *Injector) Init() error {
	logger.Debug("initialising the named pipe injector")

	e, err := in.l.Open(nlmsg.ProtoGeneric)
	if err != nil {
		return fmt.Errorf("couldn't open a loopback endpoint: %w", err)
	}
	in.e = e

	if _, err := os.Stat(in.PipePath); !errors.Is(err, os.ErrNotExist) {
		logger.Debug("it looks like the named pipe exists!", "path", in.PipePath)
		return nil
	}

	if err := syscall.Mkfifo(in.PipePath, 0666); err != nil {
		return fmt.Errorf("couldn't create the named pipe: %w", err)
	}

	return nil
}

func (in *Injector) Run(done <-chan struct{}) {
	logger.Debug("running the named pipe injector")

	// Opening the FIFO with O_RDWR makes us a writer too so that the call
	// doesn't block until somebody else opens it for writing.
	pipe, err := os.OpenFile(in.PipePath, os.O_RDWR, os.ModeNamedPipe)
	if err != nil {
		logger.Error("couldn't open the named pipe", "err", err)
		return
	}
	defer pipe.Close()

	// A buffered channel guarantees that we don't loose events even
	// if writes take place at the exact same time
	c := make(chan notify.EventInfo, in.MaxReaders)

	if err := notify.Watch(in.PipePath, c, notify.Write|notify.Remove); err != nil {
		logger.Error("couldn't watch the named pipe", "err", err)
		return
	}
	defer notify.Stop(c)

	buff := make([]byte, in.BuffSize)
	for {
		select {
		case e := <-c:
			switch e.Event() {
			case notify.Write:
				n, err := pipe.Read(buff)
				if err != nil {
					logger.Warn("error reading pipe", "err", err)
					continue
				}
				logger.Debug("read pipe", "n", n)

				for i, line := range in.lines(buff[:n]) {
					replies, err := in.Inject(line)
					if err != nil {
						logger.Warn("couldn't inject line", "i", i, "err", err)
						continue
					}
					logReplies(replies)
				}
			case notify.Remove:
				logger.Error("the named pipe was removed from under us!")
				return
			}
		case <-done:
			logger.Debug("cleanly exiting the named pipe injector")
			return
		}
	}
}

func (in *Injector) Cleanup() error {
	logger.Debug("cleaning up the named pipe injector")

	var errs []error
	if in.e != nil {
		errs = append(errs, in.e.Close())
	}
	if err := os.Remove(in.PipePath); err != nil {
		errs = append(errs, fmt.Errorf("error removing named pipe: %w", err))
	}

	return errors.Join(errs...)
}

// lines splits b into complete lines. A trailing unterminated line is kept
// and prepended to whatever is read next.
func (in *Injector) lines(b []byte) []string {
	in.partial = append(in.partial, b...)

	end := bytes.LastIndexByte(in.partial, '\n')
	if end < 0 {
		return nil
	}

	lines := strings.Split(string(in.partial[:end]), "\n")
	in.partial = append(in.partial[:0], in.partial[end+1:]...)

	return lines
}

// Inject decodes line and writes it to the loopback, returning whatever
// replies it produced. Blank and comment lines yield no replies.
func (in *Injector) Inject(line string) ([]nlmsg.Message, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	b, err := hex.DecodeString(strings.Join(strings.Fields(line), ""))
	if err != nil {
		return nil, fmt.Errorf("error decoding %q: %w", line, err)
	}

	if err := in.e.Write(b); err != nil {
		return nil, fmt.Errorf("error writing %d bytes: %w", len(b), err)
	}

	var replies []nlmsg.Message
	for in.e.Pending() > 0 {
		d, err := in.e.Read()
		if err != nil {
			return replies, err
		}

		msgs, err := nlmsg.ParseMessages(d)
		if err != nil {
			return replies, fmt.Errorf("error parsing reply: %w", err)
		}
		replies = append(replies, msgs...)
	}

	return replies, nil
}

func logReplies(msgs []nlmsg.Message) {
	for _, m := range msgs {
		switch m.Header.Type {
		case nlmsg.TypeError:
			ep, err := nlmsg.ParseErrorPayload(m.Data)
			if err != nil {
				logger.Warn("malformed error reply", "hdr", m.Header, "err", err)
				continue
			}
			if ep.Code == 0 {
				logger.Info("ack", "seq", ep.Request.Sequence)
			} else {
				logger.Info("error", "seq", ep.Request.Sequence, "errno", unix.Errno(-ep.Code).Error())
			}
		case nlmsg.TypeDone:
			logger.Info("done", "seq", m.Header.Sequence)
		default:
			logger.Info("reply", "hdr", m.Header, "payload", hex.EncodeToString(m.Data))
		}
	}
}
