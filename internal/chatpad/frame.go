package chatpad

import (
	"strconv"
	"strings"
)

type FrameKind int

const (
	FrameNone FrameKind = iota
	FrameHeartbeat
	FrameKeyReport
	FrameMalformed
	FrameUnrecognized
)

func (k FrameKind) String() string {
	switch k {
	case FrameNone:
		return "none"
	case FrameHeartbeat:
		return "heartbeat"
	case FrameKeyReport:
		return "key_report"
	case FrameMalformed:
		return "malformed"
	case FrameUnrecognized:
		return "unrecognized"
	}
	return "invalid"
}

// Frame is one fixed-size report read from the pad.
// Layout: Header(1) | Marker(1) | ?(1) | Modifier(1) | Code(1) | ?(3)
type Frame [FrameSize]byte

// FrameFrom copies data into a Frame. ok is false if data is not exactly FrameSize long.
func FrameFrom(data []byte) (f Frame, ok bool) {
	if len(data) != FrameSize {
		return f, false
	}
	copy(f[:], data)
	return f, true
}

// Kind classifies the frame by its header byte.
func (f Frame) Kind() FrameKind {
	switch f[0] {
	case HeaderHeartbeat:
		return FrameHeartbeat
	case HeaderKeyReport:
		if f[1] == KeyReportMarker {
			return FrameKeyReport
		}
		return FrameMalformed
	}
	return FrameUnrecognized
}

func (f Frame) Modifier() Modifier { return Modifier(f[3]) }
func (f Frame) Code() KeyCode      { return KeyCode(f[4]) }

// ChecksumOK reports whether all bytes sum to zero modulo 256.
func (f Frame) ChecksumOK() bool {
	var sum byte
	for _, b := range f {
		sum += b
	}
	return sum == 0
}

// Hex renders the frame as unpadded lowercase hex joined by commas, e.g. "12,0,ff".
func (f Frame) Hex() string {
	var sb strings.Builder
	for i, b := range f {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(b), 16))
	}
	return sb.String()
}

// resyncOffset returns the last position after the first byte holding a frame
// header, or 0 if there is none.
func (f Frame) resyncOffset() int {
	off := 0
	for i := 1; i < FrameSize; i++ {
		if f[i] == HeaderHeartbeat || f[i] == HeaderKeyReport {
			off = i
		}
	}
	return off
}

// KeyReport is the payload of a validated key-report frame.
type KeyReport struct {
	Modifier Modifier
	Code     KeyCode
}

// Idle reports whether nothing is held on the pad.
func (r KeyReport) Idle() bool { return r.Modifier == ModNone && r.Code == 0 }

// ParseKeyReport extracts the modifier and code from a key-report frame.
func ParseKeyReport(f Frame) (KeyReport, error) {
	if f.Kind() != FrameKeyReport {
		return KeyReport{}, ErrMalformedFrame
	}
	return KeyReport{Modifier: f.Modifier(), Code: f.Code()}, nil
}
