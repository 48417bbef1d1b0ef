// Package sink provides model.Sink combinators shared by the binaries.
package sink

import (
	"Go2NetModel/internal/model"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Fanout publishes every snapshot to all sinks. One failing sink does not
// stop delivery to the others; their errors are combined.
type Fanout struct {
	sinks []model.Sink
}

// NewFanout creates a fan-out over sinks, skipping nil entries.
func NewFanout(sinks ...model.Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Publish implements model.Sink.
func (f *Fanout) Publish(s model.Snapshot) error {
	var err error
	for _, sk := range f.sinks {
		err = multierr.Append(err, sk.Publish(s))
	}
	return err
}

// Close closes every sink.
func (f *Fanout) Close() error {
	var err error
	for _, sk := range f.sinks {
		err = multierr.Append(err, sk.Close())
	}
	return err
}

// Len returns the number of downstream sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

type nopCloser struct {
	model.Sink
}

func (nopCloser) Close() error { return nil }

// NopCloser returns s with a Close that does nothing, for handing a shared
// sink to collectors that each close their own handle on teardown.
func NopCloser(s model.Sink) model.Sink {
	return nopCloser{s}
}

// Log writes each snapshot to the logger at info level.
type Log struct {
	logger *log.Entry
}

// NewLog creates a log sink tagged with the given component name.
func NewLog(component string) *Log {
	return &Log{logger: log.WithField("component", component)}
}

// Publish implements model.Sink.
func (l *Log) Publish(s model.Snapshot) error {
	l.logger.WithField("topic", s.ID).Infof("Traffic model: period=%.6fs offset=%.6fs sigma_t=%.6fs size=%.1fB sigma_s=%.1fB",
		s.A, s.B, s.SigmaT, s.S, s.SigmaS)
	return nil
}

// Close implements model.Sink.
func (l *Log) Close() error { return nil }
