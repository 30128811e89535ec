package bridge

import (
	"sync"
	"time"

	"github.com/guregu/null/v6"
	"github.com/jetkvm/chatpad-bridge/internal/chatpad"
	"github.com/prometheus/procfs"
)

type SessionState string

const (
	StateStopped SessionState = "stopped"
	StateStarted SessionState = "started"
	StateReady   SessionState = "ready"
	StateError   SessionState = "error"
)

type Status struct {
	State         SessionState `json:"state"`
	Stale         bool         `json:"stale"`
	Session       null.String  `json:"session"`
	Port          null.String  `json:"port"`
	StartedAt     null.Time    `json:"started_at"`
	Polls         uint64       `json:"polls"`
	CapsLock      bool         `json:"caps_lock"`
	LastKey       null.String  `json:"last_key"`
	LastHeartbeat null.Time    `json:"last_heartbeat"`
	LastError     null.String  `json:"last_error"`
	Sessions      int          `json:"sessions"`
}

// statusTracker mirrors session state for readers outside the polling goroutine.
type statusTracker struct {
	mu       sync.RWMutex
	st       Status
	onChange func(SessionState)
}

func newStatusTracker() *statusTracker {
	return &statusTracker{st: Status{State: StateStopped}}
}

func (t *statusTracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.st
}

func (t *statusTracker) setState(s SessionState) {
	t.mu.Lock()
	changed := t.st.State != s
	t.st.State = s
	cb := t.onChange
	t.mu.Unlock()
	updateStateMetric(s)
	if changed && cb != nil {
		cb(s)
	}
}

func (t *statusTracker) start(session, port string, now time.Time) {
	t.mu.Lock()
	t.st = Status{
		Session:   null.StringFrom(session),
		Port:      null.StringFrom(port),
		StartedAt: null.TimeFrom(now),
		Sessions:  t.st.Sessions + 1,
		LastError: t.st.LastError,
		State:     t.st.State,
	}
	t.mu.Unlock()
	t.setState(StateStarted)
}

func (t *statusTracker) fail(err error) {
	t.mu.Lock()
	t.st.LastError = null.StringFrom(err.Error())
	t.mu.Unlock()
	t.setState(StateError)
}

func (t *statusTracker) stop() {
	t.setState(StateStopped)
}

func (t *statusTracker) observeTick(tick chatpad.Tick, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Polls = tick.Index + 1
	if tick.Kind == chatpad.FrameHeartbeat {
		t.st.LastHeartbeat = null.TimeFrom(now)
		t.st.Stale = false
	}
}

func (t *statusTracker) observeEvent(ev chatpad.Event) {
	switch ev.Type {
	case chatpad.EventReady:
		t.setState(StateReady)
	case chatpad.EventKey:
		t.mu.Lock()
		t.st.LastKey = null.StringFrom(ev.Key.String())
		t.mu.Unlock()
	case chatpad.EventCapsLock:
		t.mu.Lock()
		t.st.CapsLock = ev.CapsLock
		t.mu.Unlock()
	}
}

// checkStale flags a ready session whose last heartbeat is older than
// staleAfter. It returns true only on the transition to stale.
func (t *statusTracker) checkStale(now time.Time, staleAfter time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.st.State != StateReady || !t.st.LastHeartbeat.Valid || t.st.Stale || staleAfter <= 0 {
		return false
	}
	if now.Sub(t.st.LastHeartbeat.Time) < staleAfter {
		return false
	}
	t.st.Stale = true
	return true
}

type processStats struct {
	ResidentMemory null.Int   `json:"resident_memory_bytes"`
	CPUSeconds     null.Float `json:"cpu_seconds"`
	Threads        null.Int   `json:"threads"`
}

func readProcessStats() processStats {
	var ps processStats
	p, err := procfs.Self()
	if err != nil {
		return ps
	}
	stat, err := p.Stat()
	if err != nil {
		return ps
	}
	ps.ResidentMemory = null.IntFrom(int64(stat.ResidentMemory()))
	ps.CPUSeconds = null.FloatFrom(stat.CPUTime())
	ps.Threads = null.IntFrom(int64(stat.NumThreads))
	return ps
}
