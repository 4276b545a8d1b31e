package genl

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/structs"
	"github.com/scitags/genetlinkd/nlmsg"
)

const (
	// NameSize bounds family names, trailing NUL included.
	NameSize = 16

	// IDGenerate asks the registry to pick a free id.
	IDGenerate uint16 = 0

	// IDCtrl is the fixed id of the controller family.
	IDCtrl uint16 = nlmsg.MinType

	// Dynamically allocated ids start past the ones the kernel reserves for
	// nlctrl, VFS_DQUOT and PMCRAID.
	MinDynamicID uint16 = 0x13
	MaxID        uint16 = 1023
)

// OpFlags mirrors the GENL_* operation flags.
type OpFlags uint32

const (
	AdminPerm OpFlags = 0x1

	// Capabilities are derived from the handlers an operation has. They're
	// only ever reported by the controller.
	CapDo        OpFlags = 0x2
	CapDump      OpFlags = 0x4
	CapHasPolicy OpFlags = 0x8
)

// Operation binds a command to its handlers. At least one of them must be
// set.
type Operation struct {
	Command uint8
	Flags   OpFlags
	Doit    DoitHandler
	Dumpit  DumpitHandler
}

// Capabilities returns the flags of o including the derived capabilities.
func (o *Operation) Capabilities() OpFlags {
	f := o.Flags &^ (CapDo | CapDump | CapHasPolicy)
	if o.Doit != nil {
		f |= CapDo
	}
	if o.Dumpit != nil {
		f |= CapDump
	}
	return f
}

// Family describes a protocol module. Once registered it must not be
// modified until it has been unregistered.
type Family struct {
	// ID is the message type addressing the family. Leave it as
	// IDGenerate to have the registry pick one.
	ID uint16

	Name    string
	Version uint8

	// HeaderSize is the size of the family specific header following the
	// generic header.
	HeaderSize uint16

	// MaxAttr is only advertised through the controller.
	MaxAttr uint16

	Operations []Operation

	ops        map[uint8]*Operation
	refs       int
	registered bool
}

// Operation looks cmd up in the operations of a registered family.
func (f *Family) Operation(cmd uint8) (*Operation, bool) {
	op, ok := f.ops[cmd]
	return op, ok
}

func (f *Family) validate() (map[uint8]*Operation, error) {
	if f.Name == "" || len(f.Name) >= NameSize {
		return nil, fmt.Errorf("%w: name %q must hold between 1 and %d bytes", ErrInvalidFamily, f.Name, NameSize-1)
	}

	if f.ID != IDGenerate && (f.ID < nlmsg.MinType || f.ID > MaxID) {
		return nil, fmt.Errorf("%w: id %#x out of range", ErrInvalidFamily, f.ID)
	}

	ops := make(map[uint8]*Operation, len(f.Operations))
	for i := range f.Operations {
		op := &f.Operations[i]

		if op.Doit == nil && op.Dumpit == nil {
			return nil, fmt.Errorf("%w: command %d has no handlers", ErrInvalidFamily, op.Command)
		}

		if _, ok := ops[op.Command]; ok {
			return nil, fmt.Errorf("%w: duplicate command %d", ErrInvalidFamily, op.Command)
		}

		ops[op.Command] = op
	}

	return ops, nil
}

// Info takes a snapshot of f.
func (f *Family) Info() FamilyInfo {
	fi := FamilyInfo{
		ID:         f.ID,
		Name:       f.Name,
		Version:    f.Version,
		HeaderSize: f.HeaderSize,
		MaxAttr:    f.MaxAttr,
		Operations: make([]OperationInfo, 0, len(f.Operations)),
	}

	for i := range f.Operations {
		fi.Operations = append(fi.Operations, OperationInfo{
			Command: f.Operations[i].Command,
			Flags:   f.Operations[i].Capabilities(),
		})
	}

	return fi
}

// FamilyInfo is a snapshot of a registered family which is safe to hold on
// to after the family is gone.
type FamilyInfo struct {
	// Verbosity picks the struct tag used when marshalling: the default
	// structs tag or lean, which drops everything but the id and name.
	Verbosity string `structs:"-" lean:"-"`

	ID         uint16          `structs:"id" lean:"id"`
	Name       string          `structs:"name" lean:"name"`
	Version    uint8           `structs:"version" lean:"-"`
	HeaderSize uint16          `structs:"hdrSize" lean:"-"`
	MaxAttr    uint16          `structs:"maxAttr" lean:"-"`
	Operations []OperationInfo `structs:"ops" lean:"-"`
}

type OperationInfo struct {
	Command uint8   `structs:"cmd" lean:"cmd"`
	Flags   OpFlags `structs:"flags" lean:"flags"`
}

// MarshalJSON lets the Verbosity decide what fields make it into the
// output.
func (fi FamilyInfo) MarshalJSON() ([]byte, error) {
	s := structs.New(fi)
	if fi.Verbosity == "lean" {
		s.TagName = fi.Verbosity
	}

	return json.Marshal(s.Map())
}
