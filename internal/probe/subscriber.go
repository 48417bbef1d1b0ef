package probe

import (
	"time"

	"Go2NetModel/internal/codec"
	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// ArrivalHandler is called for every message received on a monitored subject.
// Calls for one subscription never overlap.
type ArrivalHandler func(size int)

// ModelHandler is called for every traffic model received on the model subject.
type ModelHandler func(s model.Snapshot)

// Subscriber is responsible for subscribing to NATS subjects and dispatching messages.
type Subscriber struct {
	nc      *nats.Conn
	closed  <-chan struct{}
	subs    []*nats.Subscription
	timeout time.Duration
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, closed, err := connect(cfg, "subscriber")
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, closed: closed, timeout: drainTimeout(cfg)}, nil
}

// Watch subscribes to an endpoint subject and reports the payload size of
// each message. NATS delivers one subscription's messages on a single
// goroutine, which gives the handler the serialization collectors require.
func (s *Subscriber) Watch(subject string, handler ArrivalHandler) error {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(len(msg.Data))
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	log.Printf("Subscribed to '%s'. Waiting for messages...", subject)
	return nil
}

// WatchModels subscribes to the model subject and decodes every record.
func (s *Subscriber) WatchModels(subject string, handler ModelHandler) error {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		snapshot, err := codec.Unmarshal(msg.Data)
		if err != nil {
			log.Printf("Error decoding traffic model: %v", err)
			return
		}
		handler(snapshot)
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	log.Printf("Watching traffic models on '%s'...", subject)
	return nil
}

// Close drains every subscription, waiting for in-flight handlers to
// return, then closes the NATS connection.
func (s *Subscriber) Close() error {
	if s.nc == nil {
		return nil
	}
	err := drain(s.nc, s.closed, s.timeout)
	if err == nil {
		log.Println("NATS subscriber drained and closed.")
	}
	return err
}
