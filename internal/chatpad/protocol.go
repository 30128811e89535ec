package chatpad

import "time"

// Wire constants for the chatpad UART link.
const (
	BaudRate = 19200

	// FrameSize is the fixed length of every report the pad sends.
	FrameSize = 8

	HeaderHeartbeat = 0xA5
	HeaderKeyReport = 0xB4
	KeyReportMarker = 0xC5

	// SyncInterval is the number of polls between two sync commands.
	SyncInterval = 100

	PollTimeout = 10 * time.Millisecond
	InitTimeout = 1000 * time.Millisecond

	initRetryDelay = 500 * time.Millisecond
)

var (
	initCommand = [...]byte{0x87, 0x02, 0x8C, 0x1F, 0xCC}
	syncCommand = [...]byte{0x87, 0x02, 0x8C, 0x1B, 0xD0}
)

// InitCommand returns a copy of the initialization sequence.
func InitCommand() []byte { return append([]byte(nil), initCommand[:]...) }

// SyncCommand returns a copy of the keep-alive sequence.
func SyncCommand() []byte { return append([]byte(nil), syncCommand[:]...) }
