package nlmsg

import "errors"

var (
	ErrMalformed          = errors.New("malformed netlink message")
	ErrTruncatedAttribute = errors.New("truncated netlink attribute")
	ErrAttributeSize      = errors.New("unexpected netlink attribute size")
	ErrAttributeOverflow  = errors.New("netlink attribute exceeds maximum length")
	ErrNoBufferSpace      = errors.New("no netlink buffer space available")
)
