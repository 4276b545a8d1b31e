package genl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/scitags/genetlinkd/nlmsg"
	"github.com/scitags/genetlinkd/transport"
	"github.com/scitags/genetlinkd/types"
)

var logger = slog.New(slog.DiscardHandler)

// Dispatcher routes inbound messages to the families of a Registry.
type Dispatcher struct {
	Config

	r *Registry
	m *metrics
}

func NewDispatcher(r *Registry, c *Config) *Dispatcher {
	if c.Log {
		logger = slog.Default().With("t", "genl")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{Config: *c, r: r, m: newMetrics(r)}

	if d.ReplyBufferSize <= 0 {
		d.ReplyBufferSize = nlmsg.DefaultBufferSize
	}
	if d.DumpBufferSize <= 0 {
		d.DumpBufferSize = nlmsg.DefaultBufferSize
	}

	return d
}

func (d *Dispatcher) Registry() *Registry {
	return d.r
}

// RegisterMetrics exposes the dispatcher's collectors through reg.
func (d *Dispatcher) RegisterMetrics(reg prometheus.Registerer) error {
	return d.m.register(reg)
}

// Receive is the transport callback: it returns 0 once the message has
// been handled or the positive errno to report back to the sender.
func (d *Dispatcher) Receive(data []byte, sock transport.Socket) int {
	return int(Errno(d.Dispatch(data, sock)))
}

// Dispatch runs a single inbound message through validation and routes it
// to exactly one handler.
func (d *Dispatcher) Dispatch(data []byte, sock transport.Socket) error {
	h, err := nlmsg.ParseHeader(data)
	if err != nil {
		d.m.count(unknownFamily, outcomeMalformed)
		logger.Debug("dropping malformed message", "len", len(data), "err", err)
		return err
	}

	logger.Log(context.Background(), types.LevelTrace, "dispatching", "hdr", h, "port", sock.PortID())

	handle, ok := d.r.FindByID(h.Type)
	if !ok {
		d.m.count(unknownFamily, outcomeUnknownFamily)
		logger.Debug("dropping message for an unknown family", "hdr", h)
		return fmt.Errorf("%w: message type %#x", ErrUnknownFamily, h.Type)
	}
	defer handle.Release()

	f := handle.Family()

	if want := nlmsg.Align(nlmsg.HeaderLen) + nlmsg.GenericHeaderLen + int(f.HeaderSize); int(h.Length) < want {
		d.m.count(f.Name, outcomeTooShort)
		logger.Debug("dropping truncated message", "family", f.Name, "hdr", h, "want", want)
		return fmt.Errorf("%w: %d bytes for %q; want at least %d", ErrHeaderTooShort, h.Length, f.Name, want)
	}

	body := data[nlmsg.HeaderLen:h.Length]

	gh, err := nlmsg.ParseGenericHeader(body)
	if err != nil {
		d.m.count(f.Name, outcomeMalformed)
		return err
	}

	op, ok := f.Operation(gh.Command)
	if !ok {
		d.m.count(f.Name, outcomeUnsupported)
		logger.Debug("unsupported command", "family", f.Name, "cmd", gh.Command)
		return fmt.Errorf("%w: command %d of %q", ErrUnsupportedCommand, gh.Command, f.Name)
	}

	req := &Request{
		Header:    h,
		Generic:   gh,
		Family:    f,
		Operation: op,
		Socket:    sock,
		payload:   body[nlmsg.GenericHeaderLen:],
		replySize: d.ReplyBufferSize,
	}

	if op.Flags&AdminPerm != 0 && d.Permit != nil && !d.Permit(req) {
		d.m.count(f.Name, outcomeDenied)
		logger.Info("denied privileged command", "family", f.Name, "cmd", gh.Command, "port", req.PortID())
		return fmt.Errorf("%w: command %d of %q", ErrPermission, gh.Command, f.Name)
	}

	if h.Dump() {
		err = d.dump(req)
	} else {
		err = d.doit(req)
	}

	if err != nil {
		d.m.count(f.Name, outcomeFor(err))
		logger.Debug("handler failed", "family", f.Name, "cmd", gh.Command, "dump", h.Dump(), "err", err)
		return err
	}

	d.m.count(f.Name, outcomeOK)

	return nil
}

func (d *Dispatcher) doit(req *Request) error {
	if req.Operation.Doit == nil {
		return fmt.Errorf("%w: command %d of %q has no doit handler", ErrUnsupportedCommand, req.Generic.Command, req.Family.Name)
	}

	defer d.observe(req.Family.Name, "doit", time.Now())

	return req.Operation.Doit.Doit(req)
}

func (d *Dispatcher) dump(req *Request) error {
	if req.Operation.Dumpit == nil {
		return fmt.Errorf("%w: command %d of %q has no dumpit handler", ErrUnsupportedCommand, req.Generic.Command, req.Family.Name)
	}

	dump := newDump(req, d.DumpBufferSize)

	start := time.Now()
	err := req.Operation.Dumpit.Dumpit(req, dump)
	d.observe(req.Family.Name, "dumpit", start)

	if err != nil {
		return err
	}

	if err := dump.close(); err != nil {
		return fmt.Errorf("error closing the dump after %d messages: %w", dump.Len(), err)
	}

	logger.Debug("finished dump", "family", req.Family.Name, "msgs", dump.Len(), "datagrams", dump.sent)

	return nil
}

func (d *Dispatcher) observe(family, handler string, start time.Time) {
	d.m.Handlers.WithLabelValues(family, handler).Observe(time.Since(start).Seconds())
}

func outcomeFor(err error) string {
	switch Errno(err) {
	case Errno(ErrUnsupportedCommand):
		return outcomeUnsupported
	case Errno(ErrPermission):
		return outcomeDenied
	}
	return outcomeHandlerError
}
