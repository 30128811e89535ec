package bridge

import (
	"testing"
	"time"

	"github.com/jetkvm/chatpad-bridge/internal/chatpad"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusTrackerLifecycle(t *testing.T) {
	st := newStatusTracker()
	var changes []SessionState
	st.onChange = func(s SessionState) { changes = append(changes, s) }

	st.start("s1", "/dev/ttyUSB0", fixedNow)
	st.observeEvent(chatpad.Event{Type: chatpad.EventReady})
	st.observeEvent(chatpad.Event{Type: chatpad.EventReady})
	st.observeTick(chatpad.Tick{Index: 9, Kind: chatpad.FrameHeartbeat}, fixedNow)

	snap := st.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, uint64(10), snap.Polls)
	assert.Equal(t, fixedNow, snap.LastHeartbeat.Time)
	assert.Equal(t, 1, snap.Sessions)

	st.stop()
	assert.Equal(t, []SessionState{StateStarted, StateReady, StateStopped}, changes)
}

func TestHeartbeatWatchdog(t *testing.T) {
	st := newStatusTracker()
	st.start("s1", "/dev/ttyUSB0", fixedNow)

	// Not ready yet: nothing to watch.
	assert.False(t, checkHeartbeat(st, fixedNow.Add(time.Hour), time.Second))

	st.observeEvent(chatpad.Event{Type: chatpad.EventReady})
	st.observeTick(chatpad.Tick{Kind: chatpad.FrameHeartbeat}, fixedNow)

	assert.False(t, checkHeartbeat(st, fixedNow.Add(500*time.Millisecond), time.Second))
	assert.True(t, checkHeartbeat(st, fixedNow.Add(2*time.Second), time.Second))
	assert.False(t, checkHeartbeat(st, fixedNow.Add(3*time.Second), time.Second), "reported once")
	assert.True(t, st.Snapshot().Stale)

	st.observeTick(chatpad.Tick{Kind: chatpad.FrameHeartbeat}, fixedNow.Add(4*time.Second))
	assert.False(t, st.Snapshot().Stale)
}

func TestStatusTrackerFailKeepsErrorAcrossRestart(t *testing.T) {
	st := newStatusTracker()
	st.fail(assert.AnError)
	assert.Equal(t, StateError, st.Snapshot().State)

	st.start("s2", "/dev/ttyUSB0", fixedNow)
	snap := st.Snapshot()
	assert.Equal(t, StateStarted, snap.State)
	assert.Equal(t, assert.AnError.Error(), snap.LastError.String)
}

func TestObserveTickCountsSyncsAndFrames(t *testing.T) {
	syncs := testutil.ToFloat64(metricSyncs)
	heartbeats := testutil.ToFloat64(metricFrames.WithLabelValues("heartbeat"))

	observeTick(chatpad.Tick{Synced: true, Kind: chatpad.FrameHeartbeat})
	observeTick(chatpad.Tick{})

	assert.Equal(t, syncs+1, testutil.ToFloat64(metricSyncs))
	assert.Equal(t, heartbeats+1, testutil.ToFloat64(metricFrames.WithLabelValues("heartbeat")))
}
