//go:build linux

package uinput

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const devicePath = "/dev/uinput"

type timeval = unix.Timeval

func nsecToTimeval(nsec int64) timeval { return unix.NsecToTimeval(nsec) }

// Available reports whether /dev/uinput can be opened for writing.
func Available() bool {
	f, err := os.OpenFile(devicePath, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// NewBackend creates and registers a virtual keyboard.
func NewBackend(logger *zerolog.Logger) (*Backend, error) {
	f, err := os.OpenFile(devicePath, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s failed: %w. Ensure 'modprobe uinput' and permissions", devicePath, err)
	}
	fd := int(f.Fd())
	ioctl := func(req uint, arg int) error { return unix.IoctlSetInt(fd, req, arg) }

	u := newBackend(f, ioctl, f.Close, logger)
	if err := u.setup(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return u, nil
}
