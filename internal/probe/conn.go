package probe

import (
	"fmt"
	"time"

	"Go2NetModel/internal/config"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// connect dials NATS with reconnect handling. The returned channel is closed
// once the connection has been fully closed, which Drain relies on.
func connect(cfg config.NATSConfig, role string) (*nats.Conn, <-chan struct{}, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(cfg.URL,
		nats.Name(fmt.Sprintf("%s-%s", cfg.Name, role)),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATS %s disconnected: %v", role, err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infof("NATS %s reconnected to %s", role, c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			close(closed)
		}),
	)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Connected to NATS server at %s (%s)", cfg.URL, role)
	return nc, closed, nil
}

// drain drains nc and waits for it to close, up to timeout.
func drain(nc *nats.Conn, closed <-chan struct{}, timeout time.Duration) error {
	if err := nc.Drain(); err != nil {
		nc.Close()
		return err
	}
	select {
	case <-closed:
		return nil
	case <-time.After(timeout):
		nc.Close()
		return fmt.Errorf("timed out draining NATS connection after %s", timeout)
	}
}

func drainTimeout(cfg config.NATSConfig) time.Duration {
	d, err := time.ParseDuration(cfg.DrainTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}
