package genl

import (
	"errors"

	"github.com/scitags/genetlinkd/nlmsg"
	"golang.org/x/sys/unix"
)

var (
	ErrUnknownFamily      = errors.New("unknown generic netlink family")
	ErrHeaderTooShort     = errors.New("message too short for the family headers")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrAlreadyExists      = errors.New("family already registered")
	ErrNotFound           = errors.New("family not registered")
	ErrInvalidFamily      = errors.New("invalid family")
	ErrNoFreeID           = errors.New("no free family id")
	ErrPermission         = errors.New("operation not permitted")
	ErrUnterminated       = errors.New("message was not ended")
	ErrAlreadyReplied     = errors.New("request already answered")
)

// Errno maps err onto the errno reported back to the sender. Handlers can
// return a unix.Errno (possibly wrapped) to control the value exactly;
// anything unknown is reported as EINVAL.
func Errno(err error) unix.Errno {
	if err == nil {
		return 0
	}

	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}

	switch {
	case errors.Is(err, nlmsg.ErrMalformed):
		return unix.EBADMSG
	case errors.Is(err, ErrUnknownFamily), errors.Is(err, ErrNotFound):
		return unix.ENOENT
	case errors.Is(err, ErrUnsupportedCommand):
		return unix.EOPNOTSUPP
	case errors.Is(err, ErrAlreadyExists):
		return unix.EEXIST
	case errors.Is(err, ErrPermission):
		return unix.EPERM
	case errors.Is(err, ErrNoFreeID):
		return unix.ENOSPC
	case errors.Is(err, nlmsg.ErrNoBufferSpace):
		return unix.ENOBUFS
	}

	// ErrHeaderTooShort, ErrInvalidFamily, nlmsg.ErrTruncatedAttribute and
	// friends.
	return unix.EINVAL
}
