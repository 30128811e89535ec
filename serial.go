package bridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jetkvm/chatpad-bridge/internal/chatpad"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var defaultMode = &serial.Mode{
	BaudRate: chatpad.BaudRate,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// serialPort is the subset of serial.Port used here.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// sessionTransport is a chatpad.Transport bound to one opened device.
type sessionTransport interface {
	chatpad.Transport
	Close() error
	Path() string
}

type serialTransport struct {
	port serialPort
	path string
}

func (s *serialTransport) Path() string { return s.path }

func (s *serialTransport) Close() error { return s.port.Close() }

func (s *serialTransport) Write(data []byte) error {
	for len(data) > 0 {
		n, err := s.port.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("serial write made no progress")
		}
		data = data[n:]
	}
	return nil
}

// Read collects up to n bytes, giving up when timeout expires. go.bug.st/serial
// reports a read timeout as a zero-length read.
func (s *serialTransport) Read(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(timeout)
	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return buf[:got], err
		}
		k, err := s.port.Read(buf[got:])
		if err != nil {
			return buf[:got], err
		}
		if k == 0 {
			break
		}
		got += k
	}
	return buf[:got], nil
}

// portLister is enumerator.GetDetailedPortsList, replaceable in tests.
var portLister = enumerator.GetDetailedPortsList

// findSerialPort picks the first USB serial port matching the configured
// VID/PID, or the first USB serial port when neither is set.
func findSerialPort(cfg *Config) (string, error) {
	ports, err := portLister()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	serialLogger.Debug().Int("port_count", len(ports)).Msg("checking serial ports")

	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if cfg.USBVendorID.Valid && !strings.EqualFold(p.VID, cfg.USBVendorID.String) {
			continue
		}
		if cfg.USBProductID.Valid && !strings.EqualFold(p.PID, cfg.USBProductID.String) {
			continue
		}
		serialLogger.Info().
			Str("port", p.Name).
			Str("vid", p.VID).
			Str("pid", p.PID).
			Str("product", p.Product).
			Msg("serial port detected")
		return p.Name, nil
	}
	return "", errors.New("no matching USB serial port found")
}

// openSerialTransport opens the configured port in 8N1 mode.
func openSerialTransport(cfg *Config) (sessionTransport, error) {
	path := cfg.SerialPort
	if path == "" || path == "auto" {
		var err error
		if path, err = findSerialPort(cfg); err != nil {
			return nil, err
		}
	}

	mode := *defaultMode
	mode.BaudRate = cfg.BaudRate

	port, err := serial.Open(path, &mode)
	if err != nil {
		serialLogger.Error().
			Err(err).
			Str("path", path).
			Str("reason", describePortError(err)).
			Interface("mode", mode).
			Msg("Error opening serial port")
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		serialLogger.Warn().Err(err).Str("path", path).Msg("failed to flush input buffer")
	}
	serialLogger.Info().Str("path", path).Int("baud", mode.BaudRate).Msg("serial port opened")
	return &serialTransport{port: port, path: path}, nil
}

func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		return pe.Code(), true
	}
	var pv serial.PortError
	if errors.As(err, &pv) {
		return pv.Code(), true
	}
	return 0, false
}

func describePortError(err error) string {
	code, ok := portErrorCode(err)
	if !ok {
		return "io"
	}
	switch code {
	case serial.PortNotFound:
		return "port_not_found"
	case serial.PortBusy:
		return "port_busy"
	case serial.PermissionDenied:
		return "permission_denied"
	case serial.PortClosed:
		return "port_closed"
	case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
		return "invalid_mode"
	case serial.InvalidSerialPort:
		return "invalid_serial_port"
	}
	return "other"
}
