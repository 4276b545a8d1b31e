package nlmsg

import (
	"encoding/binary"

	ne "github.com/josharian/native"
)

var (
	native       = ne.Endian
	networkOrder = binary.BigEndian
)
