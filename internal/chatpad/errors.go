package chatpad

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout may be returned by a Transport when a read produced no data.
	ErrTimeout        = errors.New("chatpad: read timed out")
	ErrMalformedFrame = errors.New("chatpad: malformed frame")
)

// TransportError wraps a failed write or read against the Transport.
// It ends the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chatpad: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is fatal to the session.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
