// Package nlmsg implements the netlink wire format shared by every generic
// netlink family: the 16-byte message header, the 4-byte generic header and
// length-prefixed TLV attributes, all aligned to 4 bytes.
//
// Header fields are encoded in the host's native byte order, exactly like
// the kernel does. Attributes carrying the network-byte-order flag are
// handed to the consumer untouched: it's up to the consumer to decide how
// to interpret the value. Be sure to check netlink(7) and genetlink(7) for
// the full picture.
package nlmsg
