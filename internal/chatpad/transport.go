package chatpad

import "time"

// Transport is the byte link to the pad.
//
// Read returns at most n bytes. A read that times out returns whatever arrived,
// possibly nothing, with either a nil error or ErrTimeout.
type Transport interface {
	Write(data []byte) error
	Read(n int, timeout time.Duration) ([]byte, error)
}
