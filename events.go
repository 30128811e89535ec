package bridge

import (
	"fmt"
	"time"
	"unicode"

	"github.com/jetkvm/chatpad-bridge/internal/chatpad"
	"github.com/jetkvm/chatpad-bridge/internal/macros"
	"github.com/rs/xid"
)

// KeyMessage is the JSON form of an engine event sent to websocket clients
// and the NATS bus.
type KeyMessage struct {
	ID       string    `json:"id"`
	Session  string    `json:"session"`
	Type     string    `json:"type"`
	Key      string    `json:"key,omitempty"`
	Text     string    `json:"text,omitempty"`
	Macro    bool      `json:"macro,omitempty"`
	Modifier string    `json:"modifier,omitempty"`
	Code     string    `json:"code,omitempty"`
	CapsLock bool      `json:"caps_lock"`
	Polls    uint64    `json:"polls"`
	Time     time.Time `json:"time"`
}

type broadcaster interface {
	Broadcast(msg KeyMessage)
}

type eventPublisher interface {
	Publish(msg KeyMessage) error
	Close()
}

// dispatcher is the engine sink for one session. It resolves text, types it
// on the output backend and fans the event out.
type dispatcher struct {
	session   string
	macros    *macros.Store
	output    outputBackend
	hub       broadcaster
	publisher eventPublisher
	status    *statusTracker
	now       func() time.Time
}

func (d *dispatcher) HandleEvent(ev chatpad.Event) {
	metricEvents.WithLabelValues(ev.Type.String()).Inc()
	if d.status != nil {
		d.status.observeEvent(ev)
	}

	msg := KeyMessage{
		ID:       xid.New().String(),
		Session:  d.session,
		Type:     ev.Type.String(),
		CapsLock: ev.CapsLock,
		Polls:    ev.Polls,
		Time:     d.now(),
	}

	if ev.Type == chatpad.EventKey || ev.Type == chatpad.EventModifier {
		msg.Key = ev.Key.String()
		msg.Modifier = ev.Key.Modifier.String()
		msg.Code = fmt.Sprintf("0x%02x", byte(ev.Key.Code))
	}

	if ev.Type == chatpad.EventKey {
		msg.Text, msg.Macro = d.resolveText(ev.Key)
		if msg.Text != "" && d.output != nil {
			if err := d.output.TypeText(msg.Text); err != nil {
				metricOutputErrors.Inc()
				outputLogger.Warn().Err(err).Str("backend", d.output.Name()).Msg("failed to type text")
			}
		}
	}

	if d.hub != nil {
		d.hub.Broadcast(msg)
	}
	if d.publisher != nil {
		if err := d.publisher.Publish(msg); err != nil {
			natsLogger.Warn().Err(err).Str("type", msg.Type).Msg("failed to publish event")
		}
	}
}

// resolveText returns what a key event types. People plus a letter expands a
// macro slot; unknown keys type nothing.
func (d *dispatcher) resolveText(k chatpad.KeyEvent) (text string, macro bool) {
	if k.Kind != chatpad.KindChar {
		return "", false
	}
	if k.Modifier == chatpad.ModPeople && unicode.IsLetter(k.Char) && k.Char < unicode.MaxASCII {
		if d.macros == nil {
			return string(unicode.ToLower(k.Char)), false
		}
		_, set := d.macros.Get(k.Char)
		return d.macros.Expand(k.Char), set
	}
	return string(k.Char), false
}
