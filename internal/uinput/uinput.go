package uinput

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var defaultLogger = zerolog.New(os.Stdout).With().Str("subsystem", "uinput").Logger()

// ErrUnmapped is returned for characters the virtual keyboard cannot type.
var ErrUnmapped = errors.New("uinput: no key for character")

// evdev/uinput constants
const (
	UI_DEV_CREATE  = 0x5501
	UI_DEV_DESTROY = 0x5502
	UI_SET_EVBIT   = 0x40045564
	UI_SET_KEYBIT  = 0x40045565

	EV_SYN = 0x00
	EV_KEY = 0x01

	SYN_REPORT = 0

	BUS_VIRTUAL = 0x06
	absCnt      = 64
)

// DeviceName is what the virtual keyboard reports to the kernel.
const DeviceName = "chatpad-bridge virtual keyboard"

// inputEvent mirrors struct input_event; timeval width follows the platform.
type inputEvent struct {
	Time  timeval
	Type  uint16
	Code  uint16
	Value int32
}

// userDev mirrors the legacy struct uinput_user_dev.
type userDev struct {
	Name         [80]byte
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	FFEffectsMax uint32
	Absmax       [absCnt]int32
	Absmin       [absCnt]int32
	Absfuzz      [absCnt]int32
	Absflat      [absCnt]int32
}

type ioctlFunc func(req uint, arg int) error

// Backend is a virtual keyboard that types decoded chatpad characters.
type Backend struct {
	out   io.Writer
	ioctl ioctlFunc
	close func() error
	log   *zerolog.Logger

	mu            sync.Mutex
	lastUserInput time.Time
}

func newBackend(out io.Writer, ioctl ioctlFunc, closeFn func() error, logger *zerolog.Logger) *Backend {
	if logger == nil {
		l := defaultLogger
		logger = &l
	}
	return &Backend{
		out:           out,
		ioctl:         ioctl,
		close:         closeFn,
		log:           logger,
		lastUserInput: time.Now(),
	}
}

// setup registers the key bits and creates the device.
func (u *Backend) setup() error {
	if err := u.ioctl(UI_SET_EVBIT, EV_KEY); err != nil {
		return fmt.Errorf("ioctl UI_SET_EVBIT EV_KEY failed: %w", err)
	}
	for _, code := range registeredKeys() {
		if err := u.ioctl(UI_SET_KEYBIT, int(code)); err != nil {
			u.log.Warn().Err(err).Uint16("code", code).Msg("failed to register key")
		}
	}

	dev := userDev{Bustype: BUS_VIRTUAL, Vendor: 0x045e, Product: 0x028e, Version: 1}
	copy(dev.Name[:], DeviceName)
	if err := binary.Write(u.out, binary.LittleEndian, &dev); err != nil {
		return fmt.Errorf("write uinput_user_dev failed: %w", err)
	}

	if err := u.ioctl(UI_DEV_CREATE, 0); err != nil {
		return fmt.Errorf("ioctl UI_DEV_CREATE failed: %w", err)
	}
	return nil
}

func (u *Backend) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.close == nil {
		return nil
	}
	_ = u.ioctl(UI_DEV_DESTROY, 0)
	err := u.close()
	u.close = nil
	return err
}

func (u *Backend) writeEvent(typ, code uint16, val int32) error {
	ev := inputEvent{
		Time:  nsecToTimeval(time.Now().UnixNano()),
		Type:  typ,
		Code:  code,
		Value: val,
	}
	return binary.Write(u.out, binary.LittleEndian, &ev)
}

func (u *Backend) sync() error {
	return u.writeEvent(EV_SYN, SYN_REPORT, 0)
}

func (u *Backend) key(code uint16, press bool) error {
	val := int32(0)
	if press {
		val = 1
	}
	return u.writeEvent(EV_KEY, code, val)
}

// TypeRune presses and releases the key for r, holding shift when needed.
func (u *Backend) TypeRune(r rune) error {
	s, ok := StrokeFor(r)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnmapped, r)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	steps := []func() error{}
	if s.Shift {
		steps = append(steps, func() error { return u.key(KEY_LEFTSHIFT, true) })
	}
	steps = append(steps,
		func() error { return u.key(s.Code, true) },
		u.sync,
		func() error { return u.key(s.Code, false) },
	)
	if s.Shift {
		steps = append(steps, func() error { return u.key(KEY_LEFTSHIFT, false) })
	}
	steps = append(steps, u.sync)

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	u.lastUserInput = time.Now()
	return nil
}

// TypeString types every mappable character of s and skips the rest.
func (u *Backend) TypeString(s string) error {
	for _, r := range s {
		err := u.TypeRune(r)
		if errors.Is(err, ErrUnmapped) {
			u.log.Debug().Str("char", string(r)).Msg("skipping unmapped character")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (u *Backend) GetLastUserInputTime() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastUserInput
}
