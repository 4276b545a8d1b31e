// Package ctrl implements nlctrl, the controller family clients query to
// resolve family names into ids.
package ctrl

import (
	"fmt"
	"log/slog"

	"github.com/scitags/genetlinkd/genl"
	"github.com/scitags/genetlinkd/nlmsg"
	"golang.org/x/sys/unix"
)

const (
	Name    = "nlctrl"
	Version = 2
)

// Commands
const (
	CmdUnspec uint8 = iota
	CmdNewFamily
	CmdDelFamily
	CmdGetFamily
)

// Attributes
const (
	AttrUnspec uint16 = iota
	AttrFamilyID
	AttrFamilyName
	AttrVersion
	AttrHdrSize
	AttrMaxAttr
	AttrOps
	AttrMcastGroups
)

// Attributes nested within each entry of AttrOps.
const (
	AttrOpUnspec uint16 = iota
	AttrOpID
	AttrOpFlags
)

var logger = slog.New(slog.DiscardHandler)

type Controller struct {
	r *genl.Registry
	f *genl.Family
}

func New(r *genl.Registry, c *Config) *Controller {
	if c.Log {
		logger = slog.Default().With("t", "nlctrl")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	ctl := &Controller{r: r}

	ctl.f = &genl.Family{
		ID:      genl.IDCtrl,
		Name:    Name,
		Version: Version,
		MaxAttr: AttrMcastGroups,
		Operations: []genl.Operation{
			{
				Command: CmdGetFamily,
				Doit:    genl.DoitFunc(ctl.getFamily),
				Dumpit:  genl.DumpitFunc(ctl.dumpFamilies),
			},
		},
	}

	return ctl
}

func (ctl *Controller) Family() *genl.Family {
	return ctl.f
}

func (ctl *Controller) Register() error {
	return ctl.r.Register(ctl.f)
}

func (ctl *Controller) Unregister() error {
	return ctl.r.Unregister(ctl.f.ID)
}

// getFamily looks a family up by id or, failing that, by name.
func (ctl *Controller) getFamily(req *genl.Request) error {
	var (
		id   uint16
		name string
		err  error
	)

	it := req.Attributes()
	for it.Next() {
		a := it.Attribute()
		switch a.Type {
		case AttrFamilyID:
			if id, err = a.Uint16(); err != nil {
				return err
			}
		case AttrFamilyName:
			name = a.String()
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	var (
		h  *genl.Handle
		ok bool
	)
	switch {
	case id != 0:
		h, ok = ctl.r.FindByID(id)
	case name != "":
		h, ok = ctl.r.FindByName(name)
	default:
		return fmt.Errorf("neither a family id nor a name were provided: %w", unix.EINVAL)
	}

	if !ok {
		logger.Debug("no such family", "id", id, "name", name)
		return fmt.Errorf("%w: id %#x, name %q", genl.ErrUnknownFamily, id, name)
	}
	fi := h.Family().Info()
	h.Release()

	m, err := req.NewReply(CmdNewFamily)
	if err != nil {
		return err
	}

	if err := putFamily(m, fi); err != nil {
		return err
	}

	if err := m.End(); err != nil {
		return err
	}

	return req.Send(m)
}

func (ctl *Controller) dumpFamilies(req *genl.Request, d *genl.Dump) error {
	for _, fi := range ctl.r.Families() {
		m, err := d.NewMessage(CmdNewFamily)
		if err != nil {
			return err
		}

		if err := putFamily(m, fi); err != nil {
			return fmt.Errorf("error describing family %q: %w", fi.Name, err)
		}

		if err := m.End(); err != nil {
			return err
		}
	}

	return nil
}

func putFamily(m *genl.Message, fi genl.FamilyInfo) error {
	if err := m.PutString(AttrFamilyName, fi.Name); err != nil {
		return err
	}
	if err := m.PutUint16(AttrFamilyID, fi.ID); err != nil {
		return err
	}
	if err := m.PutUint32(AttrVersion, uint32(fi.Version)); err != nil {
		return err
	}
	if err := m.PutUint32(AttrHdrSize, uint32(fi.HeaderSize)); err != nil {
		return err
	}
	if err := m.PutUint32(AttrMaxAttr, uint32(fi.MaxAttr)); err != nil {
		return err
	}

	if len(fi.Operations) == 0 {
		return nil
	}

	ops, err := m.NestStart(AttrOps)
	if err != nil {
		return err
	}

	for i, op := range fi.Operations {
		nest, err := m.NestStart(uint16(i + 1))
		if err != nil {
			return err
		}
		if err := m.PutUint32(AttrOpID, uint32(op.Command)); err != nil {
			return err
		}
		if err := m.PutUint32(AttrOpFlags, uint32(op.Flags)); err != nil {
			return err
		}
		if err := m.NestEnd(nest); err != nil {
			return err
		}
	}

	return m.NestEnd(ops)
}

// ParseFamily decodes the attributes of a CmdNewFamily message.
func ParseFamily(attrs *nlmsg.AttributeIterator) (genl.FamilyInfo, error) {
	var (
		fi  genl.FamilyInfo
		err error
	)

	u32 := func(a nlmsg.Attribute) uint32 {
		var v uint32
		if err == nil {
			v, err = a.Uint32()
		}
		return v
	}

	for attrs.Next() {
		a := attrs.Attribute()
		switch a.Type {
		case AttrFamilyName:
			fi.Name = a.String()
		case AttrFamilyID:
			if err == nil {
				fi.ID, err = a.Uint16()
			}
		case AttrVersion:
			fi.Version = uint8(u32(a))
		case AttrHdrSize:
			fi.HeaderSize = uint16(u32(a))
		case AttrMaxAttr:
			fi.MaxAttr = uint16(u32(a))
		case AttrOps:
			ops := a.Attributes()
			for ops.Next() {
				var op genl.OperationInfo

				fields := ops.Attribute().Attributes()
				for fields.Next() {
					switch f := fields.Attribute(); f.Type {
					case AttrOpID:
						op.Command = uint8(u32(f))
					case AttrOpFlags:
						op.Flags = genl.OpFlags(u32(f))
					}
				}
				if err == nil {
					err = fields.Err()
				}

				fi.Operations = append(fi.Operations, op)
			}
			if err == nil {
				err = ops.Err()
			}
		}

		if err != nil {
			return genl.FamilyInfo{}, err
		}
	}

	return fi, attrs.Err()
}
