// Package transport provides the socket layer generic netlink runs on top
// of. Given Go programs can't serve NETLINK_GENERIC from the kernel, the
// Loopback type plays its role in-process: it assigns port ids, hands
// inbound requests to the handler registered for the protocol and queues
// replies and acknowledgements on the sending endpoint.
package transport

import (
	"errors"
	"log/slog"
)

var logger = slog.New(slog.DiscardHandler)

var (
	ErrClosed     = errors.New("endpoint closed")
	ErrNoMessages = errors.New("no pending messages")
)

// Socket is the sender of an inbound message as seen by a protocol
// handler. Send queues a reply for it; implementations must not retain b.
type Socket interface {
	PortID() uint32
	Send(b []byte) error
}

// ReceiveFunc handles a single inbound message. It returns 0 when the
// message has been handled or a positive errno otherwise.
type ReceiveFunc func(data []byte, sock Socket) int
