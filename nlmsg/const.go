package nlmsg

// Sizes of the fixed wire structures. All of them are already multiples
// of Alignment.
const (
	Alignment          = 4
	HeaderLen          = 16
	GenericHeaderLen   = 4
	AttributeHeaderLen = 4
	ErrorPayloadLen    = 4 + HeaderLen
)

// ProtoGeneric is the netlink protocol number of generic netlink
// (NETLINK_GENERIC).
const ProtoGeneric = 16

// Reserved control message types. Anything below MinType is never routed
// to a family.
const (
	TypeNoop    uint16 = 0x1
	TypeError   uint16 = 0x2
	TypeDone    uint16 = 0x3
	TypeOverrun uint16 = 0x4

	MinType uint16 = 0x10
)

// Header flags as defined in uapi/linux/netlink.h.
const (
	FlagRequest      uint16 = 0x1
	FlagMulti        uint16 = 0x2
	FlagAck          uint16 = 0x4
	FlagEcho         uint16 = 0x8
	FlagDumpIntr     uint16 = 0x10
	FlagDumpFiltered uint16 = 0x20

	// Modifiers to GET requests.
	FlagRoot   uint16 = 0x100
	FlagMatch  uint16 = 0x200
	FlagAtomic uint16 = 0x400
	FlagDump          = FlagRoot | FlagMatch

	// Modifiers to NEW requests.
	FlagReplace uint16 = 0x100
	FlagExcl    uint16 = 0x200
	FlagCreate  uint16 = 0x400
	FlagAppend  uint16 = 0x800

	// Flags for ACK messages.
	FlagCapped  uint16 = 0x100
	FlagAckTLVs uint16 = 0x200
)

// The two most significant bits of an attribute's type are flags:
//
//	+---+---+-------------------------------+
//	| N | O | Attribute Type                |
//	+---+---+-------------------------------+
//	N := Carries nested attributes
//	O := Payload stored in network byte order
//
// Note the N and O flags are mutually exclusive.
const (
	AttrNested       uint16 = 1 << 15
	AttrNetByteOrder uint16 = 1 << 14
	AttrTypeMask            = ^(AttrNested | AttrNetByteOrder)
)

// Align rounds n up to the next multiple of Alignment.
func Align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}
