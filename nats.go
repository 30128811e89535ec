package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// natsPublisher puts key messages on <subject>.<type>. Publish only buffers;
// the client flushes in the background.
type natsPublisher struct {
	nc      *nats.Conn
	subject string
}

func newNATSPublisher(url, subject string) (*natsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("chatpad-bridge"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				natsLogger.Warn().Err(err).Msg("disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			natsLogger.Info().Str("url", c.ConnectedUrl()).Msg("reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	natsLogger.Info().Str("url", nc.ConnectedUrl()).Str("subject", subject).Msg("connected to NATS")
	return &natsPublisher{nc: nc, subject: subject}, nil
}

func (p *natsPublisher) Publish(msg KeyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject+"."+msg.Type, data)
}

func (p *natsPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		natsLogger.Warn().Err(err).Msg("failed to drain NATS connection")
	}
}
