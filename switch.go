package bridge

import (
	"context"
	"sync"
)

// sessionSwitch turns the chatpad worker on and off at runtime.
type sessionSwitch struct {
	mu      sync.Mutex
	enabled bool
	changed chan struct{}
}

func newSessionSwitch(enabled bool) *sessionSwitch {
	return &sessionSwitch{enabled: enabled, changed: make(chan struct{}, 1)}
}

func (s *sessionSwitch) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled reports whether the value changed.
func (s *sessionSwitch) SetEnabled(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == enabled {
		return false
	}
	s.enabled = enabled
	select {
	case s.changed <- struct{}{}:
	default:
	}
	return true
}

// supervise runs sessions while the switch is on and parks while it is off,
// until ctx is done.
func (a *application) supervise(ctx context.Context) error {
	for {
		if !a.sessions.Enabled() {
			a.status.stop()
			rootLogger.Info().Msg("chatpad disabled")
			select {
			case <-ctx.Done():
				return nil
			case <-a.sessions.changed:
				continue
			}
		}

		sctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = a.runSessions(sctx)
		}()

		for running := true; running; {
			select {
			case <-ctx.Done():
				cancel()
				<-done
				return nil
			case <-a.sessions.changed:
				running = a.sessions.Enabled()
			}
		}
		cancel()
		<-done
	}
}
