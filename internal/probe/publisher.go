package probe

import (
	"time"

	"Go2NetModel/internal/codec"
	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// publishConn is the part of *nats.Conn the publisher needs.
type publishConn interface {
	Publish(subject string, data []byte) error
}

// Publisher is a model.Sink that publishes traffic models to a NATS subject.
type Publisher struct {
	conn    publishConn
	nc      *nats.Conn
	closed  <-chan struct{}
	subject string
	timeout time.Duration
}

// NewPublisher creates a new NATS publisher for the configured model subject.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, closed, err := connect(cfg, "publisher")
	if err != nil {
		return nil, err
	}
	return &Publisher{
		conn:    nc,
		nc:      nc,
		closed:  closed,
		subject: cfg.ModelSubject,
		timeout: drainTimeout(cfg),
	}, nil
}

// Subject returns the subject models are published on.
func (p *Publisher) Subject() string {
	return p.subject
}

// Publish encodes s in the TrafficModel wire format and publishes it.
// The NATS client buffers outgoing messages, so this does not wait on the network.
func (p *Publisher) Publish(s model.Snapshot) error {
	return p.conn.Publish(p.subject, codec.Marshal(s))
}

// PublishRaw publishes an opaque payload on subject. ns-probe uses it to
// generate endpoint traffic.
func (p *Publisher) PublishRaw(subject string, data []byte) error {
	return p.conn.Publish(subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	err := drain(p.nc, p.closed, p.timeout)
	if err == nil {
		log.Println("NATS publisher drained and closed.")
	}
	return err
}
