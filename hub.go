package bridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

const (
	clientSendBuffer = 64
	wsWriteTimeout   = 5 * time.Second
)

type hubClient struct {
	id   string
	send chan KeyMessage
}

// eventHub fans key messages out to websocket clients. Broadcast never
// blocks; a client whose buffer is full misses the message.
type eventHub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	l       *zerolog.Logger

	// originPatterns are extra hosts allowed to open /events from a browser.
	// Same-origin requests are always accepted.
	originPatterns []string
}

func newEventHub(logger *zerolog.Logger, originPatterns ...string) *eventHub {
	return &eventHub{
		clients:        make(map[*hubClient]struct{}),
		l:              logger,
		originPatterns: originPatterns,
	}
}

func (h *eventHub) Broadcast(msg KeyMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.l.Debug().Str("client", c.id).Str("event", msg.ID).Msg("client too slow, dropping event")
		}
	}
}

func (h *eventHub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.l.Info().Str("client", c.id).Int("clients", n).Msg("websocket client connected")
}

func (h *eventHub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.l.Info().Str("client", c.id).Int("clients", n).Msg("websocket client disconnected")
}

func (h *eventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// serveWS streams key messages to one client until it goes away or ctx ends.
// Incoming messages are ignored.
func (h *eventHub) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	c := &hubClient{id: id, send: make(chan KeyMessage, clientSendBuffer)}
	h.register(c)
	defer h.unregister(c)

	ctx = conn.CloseRead(ctx)
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "closing")
			return nil
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(wctx, conn, msg)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
