// Package echo implements a demo family bouncing requests back to their
// senders. Every message carries a 4 byte cookie as its family header
// which is copied into the replies.
package echo

import (
	"log/slog"
	"sync/atomic"

	"github.com/scitags/genetlinkd/genl"
)

const DefaultName = "echo"

// HeaderSize is the size of the cookie.
const HeaderSize = 4

// Commands
const (
	CmdUnspec uint8 = iota

	// CmdEcho replies with the attributes of the request. When dumping,
	// each attribute comes back in a message of its own.
	CmdEcho

	// CmdStats reports how many requests have been served.
	CmdStats
)

// Attributes
const (
	AttrUnspec uint16 = iota
	AttrMessage
	AttrEchoes
	AttrDumps
)

var logger = slog.New(slog.DiscardHandler)

type Echo struct {
	Config

	r *genl.Registry
	f *genl.Family

	echoes atomic.Uint64
	dumps  atomic.Uint64
}

func New(r *genl.Registry, c *Config) *Echo {
	if c.Log {
		logger = slog.Default().With("t", "echo")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Echo{Config: *c, r: r}

	if e.Name == "" {
		e.Name = DefaultName
	}

	e.f = &genl.Family{
		ID:         e.ID,
		Name:       e.Name,
		Version:    e.Version,
		HeaderSize: HeaderSize,
		MaxAttr:    AttrDumps,
		Operations: []genl.Operation{
			{
				Command: CmdEcho,
				Doit:    genl.DoitFunc(e.echo),
				Dumpit:  genl.DumpitFunc(e.echoDump),
			},
			{
				Command: CmdStats,
				Doit:    genl.DoitFunc(e.stats),
			},
		},
	}

	return e
}

func (e *Echo) Family() *genl.Family {
	return e.f
}

func (e *Echo) Register() error {
	return e.r.Register(e.f)
}

func (e *Echo) Unregister() error {
	return e.r.Unregister(e.f.ID)
}

func (e *Echo) echo(req *genl.Request) error {
	m, err := req.NewReply(CmdEcho)
	if err != nil {
		return err
	}

	copy(m.FixedHeader(), req.FixedHeader())

	n := 0
	it := req.Attributes()
	for it.Next() {
		a := it.Attribute()
		if err := m.PutAttribute(a.RawType(), a.Data); err != nil {
			return err
		}
		n++
	}
	if err := it.Err(); err != nil {
		return err
	}

	if err := m.End(); err != nil {
		return err
	}

	e.echoes.Add(1)
	logger.Debug("echoing", "port", req.PortID(), "attrs", n)

	return req.Send(m)
}

func (e *Echo) echoDump(req *genl.Request, d *genl.Dump) error {
	it := req.Attributes()
	for it.Next() {
		a := it.Attribute()

		m, err := d.NewMessage(CmdEcho)
		if err != nil {
			return err
		}

		copy(m.FixedHeader(), req.FixedHeader())

		if err := m.PutAttribute(a.RawType(), a.Data); err != nil {
			return err
		}
		if err := m.End(); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	e.dumps.Add(1)
	logger.Debug("echoed dump", "port", req.PortID(), "msgs", d.Len())

	return nil
}

func (e *Echo) stats(req *genl.Request) error {
	m, err := req.NewReply(CmdStats)
	if err != nil {
		return err
	}

	copy(m.FixedHeader(), req.FixedHeader())

	if err := m.PutUint64(AttrEchoes, e.echoes.Load()); err != nil {
		return err
	}
	if err := m.PutUint64(AttrDumps, e.dumps.Load()); err != nil {
		return err
	}
	if err := m.End(); err != nil {
		return err
	}

	return req.Send(m)
}
