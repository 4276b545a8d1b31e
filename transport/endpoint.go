package transport

import (
	"fmt"
	"sync"

	"github.com/scitags/genetlinkd/nlmsg"
	"golang.org/x/sys/unix"
)

// Endpoint is the user side of a loopback socket. It implements Socket so
// that handlers can reply to it.
type Endpoint struct {
	l     *Loopback
	proto int
	port  uint32

	mu     sync.Mutex
	queue  [][]byte
	closed bool
}

func (e *Endpoint) PortID() uint32 {
	return e.port
}

func (e *Endpoint) Protocol() int {
	return e.proto
}

// Send queues a copy of b for the endpoint to read.
func (e *Endpoint) Send(b []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("port %d: %w", e.port, ErrClosed)
	}

	if len(e.queue) >= e.l.QueueLength {
		logger.Warn("dropping datagram on a full queue", "port", e.port, "len", len(b))
		return fmt.Errorf("queue of port %d is full: %w", e.port, unix.ENOBUFS)
	}

	e.queue = append(e.queue, append([]byte(nil), b...))

	return nil
}

// Write hands a batch of messages over to the protocol handler one by
// one. Only requests of a type past the reserved control types reach the
// handler. A request is acknowledged when it asks for it or when the
// handler fails. A malformed tail is still handed over so the handler
// can account for it; processing stops right after.
func (e *Endpoint) Write(b []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return fmt.Errorf("port %d: %w", e.port, ErrClosed)
	}

	fn, ok := e.l.handler(e.proto)
	if !ok {
		return fmt.Errorf("no handler for protocol %d: %w", e.proto, unix.ECONNREFUSED)
	}

	it := nlmsg.Messages(b)
	for it.Next() {
		m := it.Message()

		status := 0
		if m.Header.Flags&nlmsg.FlagRequest != 0 && m.Header.Type >= nlmsg.MinType {
			status = fn(m.Raw, e)
		}

		if m.Header.Flags&nlmsg.FlagAck != 0 || status != 0 {
			if err := e.ack(m.Header, status); err != nil {
				return err
			}
		}
	}

	if err := it.Err(); err != nil {
		rest := it.Rest()
		status := fn(rest, e)

		logger.Debug("stopped at a malformed message", "port", e.port, "len", len(rest), "status", status, "err", err)

		if h, ok := nlmsg.PeekHeader(rest); ok && status != 0 {
			return e.ack(h, status)
		}
	}

	return nil
}

// ack queues an error message carrying status for the request with
// header h. Only the request header is echoed back.
func (e *Endpoint) ack(h nlmsg.Header, status int) error {
	buf := nlmsg.NewBuffer(nlmsg.HeaderLen + nlmsg.ErrorPayloadLen)

	err := buf.PutError(
		nlmsg.Header{Flags: nlmsg.FlagCapped, Sequence: h.Sequence, PortID: e.port},
		nlmsg.ErrorPayload{Code: -int32(status), Request: h},
	)
	if err != nil {
		return err
	}

	return e.Send(buf.Bytes())
}

// Read dequeues the oldest datagram.
func (e *Endpoint) Read() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		if e.closed {
			return nil, ErrClosed
		}
		return nil, ErrNoMessages
	}

	b := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]

	return b, nil
}

// Pending returns the number of datagrams waiting to be read.
func (e *Endpoint) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.queue)
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true
	e.queue = nil
	e.l.release(e.port)

	logger.Debug("closed endpoint", "port", e.port)

	return nil
}
