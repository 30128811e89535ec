//go:build !linux

package uinput

import (
	"errors"

	"github.com/rs/zerolog"
)

func Available() bool { return false }

func NewBackend(_ *zerolog.Logger) (*Backend, error) {
	return nil, errors.New("uinput: only supported on linux")
}

type timeval struct {
	Sec  int64
	Usec int64
}

func nsecToTimeval(nsec int64) timeval {
	return timeval{Sec: nsec / 1e9, Usec: nsec % 1e9 / 1e3}
}
