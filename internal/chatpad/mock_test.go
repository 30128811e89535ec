package chatpad

import (
	"sync"
	"time"
)

type readCall struct {
	n       int
	timeout time.Duration
}

// mockTransport replays queued reads and records writes.
type mockTransport struct {
	mu       sync.Mutex
	rxData   [][]byte
	txLog    [][]byte
	reads    []readCall
	writeErr error
	readErr  error
}

func newMockTransport() *mockTransport {
	return &mockTransport{}
}

func (m *mockTransport) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.txLog = append(m.txLog, append([]byte(nil), data...))
	return nil
}

func (m *mockTransport) Read(n int, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, readCall{n: n, timeout: timeout})
	if m.readErr != nil {
		return nil, m.readErr
	}
	if len(m.rxData) == 0 {
		return nil, ErrTimeout
	}
	data := m.rxData[0]
	m.rxData = m.rxData[1:]
	if len(data) > n {
		data = data[:n]
	}
	return append([]byte(nil), data...), nil
}

func (m *mockTransport) InjectRx(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.rxData = append(m.rxData, append([]byte(nil), c...))
	}
}

func (m *mockTransport) TxLog() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.txLog))
	copy(out, m.txLog)
	return out
}

func (m *mockTransport) Reads() []readCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]readCall(nil), m.reads...)
}

func heartbeatFrame() []byte {
	return []byte{HeaderHeartbeat, 0, 0, 0, 0, 0, 0, 0}
}

func keyFrame(mod Modifier, code KeyCode) []byte {
	return []byte{HeaderKeyReport, KeyReportMarker, 0, byte(mod), byte(code), 0, 0, 0}
}

// withChecksum sets the last byte so the frame sums to zero.
func withChecksum(data []byte) []byte {
	out := append([]byte(nil), data...)
	var sum byte
	for _, b := range out[:len(out)-1] {
		sum += b
	}
	out[len(out)-1] = -sum
	return out
}

type recordingSink struct {
	events []Event
}

func (r *recordingSink) HandleEvent(ev Event) { r.events = append(r.events, ev) }

func (r *recordingSink) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
