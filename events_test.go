package bridge

import (
	"errors"
	"testing"
	"time"

	"github.com/jetkvm/chatpad-bridge/internal/chatpad"
	"github.com/jetkvm/chatpad-bridge/internal/macros"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOutput struct {
	typed []string
	err   error
}

func (r *recordingOutput) Name() string { return "recording" }
func (r *recordingOutput) TypeText(text string) error {
	r.typed = append(r.typed, text)
	return r.err
}
func (r *recordingOutput) GetLastUserInputTime() time.Time { return time.Time{} }
func (r *recordingOutput) Close() error                    { return nil }

type recordingHub struct{ msgs []KeyMessage }

func (h *recordingHub) Broadcast(msg KeyMessage) { h.msgs = append(h.msgs, msg) }

type recordingPublisher struct {
	msgs []KeyMessage
	err  error
}

func (p *recordingPublisher) Publish(msg KeyMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}
func (p *recordingPublisher) Close() {}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDispatcher(t *testing.T) (*dispatcher, *recordingOutput, *recordingHub, *recordingPublisher) {
	t.Helper()
	out := &recordingOutput{}
	hub := &recordingHub{}
	pub := &recordingPublisher{}
	d := &dispatcher{
		session:   "session-1",
		macros:    macros.NewStore("", macroLogger),
		output:    out,
		hub:       hub,
		publisher: pub,
		status:    newStatusTracker(),
		now:       func() time.Time { return fixedNow },
	}
	return d, out, hub, pub
}

func keyEvent(code chatpad.KeyCode, mod chatpad.Modifier) chatpad.Event {
	return chatpad.Event{Type: chatpad.EventKey, Key: chatpad.Decode(code, mod), Polls: 42}
}

func TestDispatcherTypesCharacters(t *testing.T) {
	d, out, hub, pub := newTestDispatcher(t)

	d.HandleEvent(keyEvent(0x37, chatpad.ModNone))  // A
	d.HandleEvent(keyEvent(0x37, chatpad.ModShift)) // A
	d.HandleEvent(keyEvent(0x11, chatpad.ModGreen)) // 7 has no green symbol

	assert.Equal(t, []string{"a", "A"}, out.typed)
	require.Len(t, hub.msgs, 3)
	assert.Len(t, pub.msgs, 3)

	msg := hub.msgs[0]
	assert.Equal(t, "session-1", msg.Session)
	assert.Equal(t, "key", msg.Type)
	assert.Equal(t, "a", msg.Key)
	assert.Equal(t, "a", msg.Text)
	assert.Equal(t, "None", msg.Modifier)
	assert.Equal(t, "0x37", msg.Code)
	assert.Equal(t, uint64(42), msg.Polls)
	assert.Equal(t, fixedNow, msg.Time)
	assert.NotEmpty(t, msg.ID)
	assert.NotEqual(t, msg.ID, hub.msgs[1].ID)

	assert.Equal(t, "unknown", hub.msgs[2].Key)
	assert.Empty(t, hub.msgs[2].Text)
}

func TestDispatcherPeopleMacro(t *testing.T) {
	d, out, hub, _ := newTestDispatcher(t)
	require.NoError(t, d.macros.Set('q', "hello world"))

	d.HandleEvent(keyEvent(0x27, chatpad.ModPeople)) // Q
	d.HandleEvent(keyEvent(0x26, chatpad.ModPeople)) // W, unset

	assert.Equal(t, []string{"hello world", "w"}, out.typed)
	assert.True(t, hub.msgs[0].Macro)
	assert.False(t, hub.msgs[1].Macro)
}

func TestDispatcherModifierAndReady(t *testing.T) {
	d, out, hub, pub := newTestDispatcher(t)

	d.HandleEvent(chatpad.Event{Type: chatpad.EventReady, Polls: 3})
	d.HandleEvent(chatpad.Event{Type: chatpad.EventModifier, Key: chatpad.Decode(0, chatpad.ModGreen)})

	assert.Empty(t, out.typed)
	require.Len(t, hub.msgs, 2)
	assert.Equal(t, "ready", hub.msgs[0].Type)
	assert.Empty(t, hub.msgs[0].Key)
	assert.Equal(t, "modifier", hub.msgs[1].Type)
	assert.Equal(t, "Green", hub.msgs[1].Key)
	assert.Len(t, pub.msgs, 2)
	assert.Equal(t, StateReady, d.status.Snapshot().State)
}

func TestDispatcherCapsLockUpdatesStatus(t *testing.T) {
	d, _, hub, _ := newTestDispatcher(t)

	d.HandleEvent(chatpad.Event{Type: chatpad.EventCapsLock, CapsLock: true})
	assert.True(t, d.status.Snapshot().CapsLock)
	assert.True(t, hub.msgs[0].CapsLock)
	assert.Equal(t, "caps_lock", hub.msgs[0].Type)
}

func TestDispatcherSurvivesSinkErrors(t *testing.T) {
	d, out, hub, pub := newTestDispatcher(t)
	out.err = errors.New("no device")
	pub.err = errors.New("nats down")

	d.HandleEvent(keyEvent(0x37, chatpad.ModNone))
	assert.Len(t, out.typed, 1)
	assert.Len(t, hub.msgs, 1)
	assert.Len(t, pub.msgs, 1)
	assert.Equal(t, "a", d.status.Snapshot().LastKey.String)
}
