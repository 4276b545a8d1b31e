package transport

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"
)

const defaultQueueLength = 64

// Loopback connects endpoints with the protocol handlers registered on it.
type Loopback struct {
	Config

	mu        sync.Mutex
	handlers  map[int]ReceiveFunc
	endpoints map[uint32]*Endpoint
	lastPort  uint32
}

func NewLoopback(c *Config) *Loopback {
	if c.Log {
		logger = slog.Default().With("t", "transport")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	l := &Loopback{
		Config:    *c,
		handlers:  map[int]ReceiveFunc{},
		endpoints: map[uint32]*Endpoint{},
	}

	if l.QueueLength <= 0 {
		l.QueueLength = defaultQueueLength
	}

	return l
}

// RegisterOrReplaceHandler makes fn the receiver of every message sent on
// proto.
func (l *Loopback) RegisterOrReplaceHandler(proto int, fn ReceiveFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.handlers[proto]; ok {
		logger.Warn("replacing protocol handler", "proto", proto)
	}
	l.handlers[proto] = fn
}

func (l *Loopback) UnregisterHandler(proto int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.handlers, proto)
}

func (l *Loopback) handler(proto int) (ReceiveFunc, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn, ok := l.handlers[proto]
	return fn, ok
}

// Open returns a new endpoint bound to proto with a port id of its own.
func (l *Loopback) Open(proto int) (*Endpoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.handlers[proto]; !ok {
		return nil, fmt.Errorf("no handler for protocol %d: %w", proto, unix.EPROTONOSUPPORT)
	}

	// Port 0 belongs to the kernel.
	port := l.lastPort
	for {
		port++
		if _, ok := l.endpoints[port]; port != 0 && !ok {
			break
		}
	}
	l.lastPort = port

	e := &Endpoint{l: l, proto: proto, port: port}
	l.endpoints[port] = e

	logger.Debug("opened endpoint", "proto", proto, "port", port)

	return e, nil
}

func (l *Loopback) release(port uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.endpoints, port)
}

// Endpoints returns the number of open endpoints.
func (l *Loopback) Endpoints() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.endpoints)
}
